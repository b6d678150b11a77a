package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

const listTablesQuery = `SELECT TABLE_SCHEMA, TABLE_NAME
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_SCHEMA, TABLE_NAME`

const listColumnsQuery = `SELECT COLUMN_NAME, DATA_TYPE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`

// Queryer is satisfied by *sql.DB and *sql.Conn.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Catalog reads table and column metadata from INFORMATION_SCHEMA.
type Catalog struct {
	q Queryer
}

// NewCatalog wraps a source connection.
func NewCatalog(q Queryer) *Catalog {
	return &Catalog{q: q}
}

// ListTables returns every base table, ordered by schema then name. Views are excluded.
func (c *Catalog) ListTables(ctx context.Context) ([]domain.TableIdentifier, error) {
	rows, err := c.q.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []domain.TableIdentifier
	for rows.Next() {
		var t domain.TableIdentifier
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// ListColumns returns the table's columns in ordinal position order.
func (c *Catalog) ListColumns(ctx context.Context, table domain.TableIdentifier) ([]domain.ColumnMetadata, error) {
	rows, err := c.q.QueryContext(ctx, listColumnsQuery, table.Schema, table.Name)
	if err != nil {
		return nil, &domain.MetadataError{Table: table, Err: err}
	}
	defer rows.Close()

	var cols []domain.ColumnMetadata
	for rows.Next() {
		var col domain.ColumnMetadata
		if err := rows.Scan(&col.Name, &col.SourceType); err != nil {
			return nil, &domain.MetadataError{Table: table, Err: fmt.Errorf("scan column: %w", err)}
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.MetadataError{Table: table, Err: err}
	}
	return cols, nil
}

// ListTables delegates to a Catalog over the source pool.
func (s *Source) ListTables(ctx context.Context) ([]domain.TableIdentifier, error) {
	return NewCatalog(s.db).ListTables(ctx)
}

// ListColumns delegates to a Catalog over the source pool.
func (s *Source) ListColumns(ctx context.Context, table domain.TableIdentifier) ([]domain.ColumnMetadata, error) {
	return NewCatalog(s.db).ListColumns(ctx, table)
}
