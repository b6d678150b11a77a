// Package inspect reads back exported Parquet files with an embedded DuckDB
// so a run's output can be checked before it is loaded.
package inspect

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/cuderbk/adw-elt-pipeline/internal/ddl"
)

// Column is one column of the file schema as DuckDB reads it.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// FileInfo describes a Parquet file.
type FileInfo struct {
	Path        string   `json:"path" yaml:"path"`
	Rows        int64    `json:"rows" yaml:"rows"`
	RowGroups   int64    `json:"row_groups" yaml:"row_groups"`
	Compression string   `json:"compression" yaml:"compression"`
	Columns     []Column `json:"columns" yaml:"columns"`
}

// Inspector runs read-only queries against Parquet files.
type Inspector struct {
	db *sql.DB
}

// New opens an in-memory DuckDB instance.
func New() (*Inspector, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Inspector{db: db}, nil
}

// Close releases the DuckDB instance.
func (i *Inspector) Close() error {
	return i.db.Close()
}

// File returns the schema, row count and layout of the Parquet file at path.
func (i *Inspector) File(ctx context.Context, path string) (*FileInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	lit := ddl.QuoteLiteral(path)
	info := &FileInfo{Path: path}

	cols, err := i.describe(ctx, lit)
	if err != nil {
		return nil, err
	}
	info.Columns = cols

	if err := i.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT count(*) FROM read_parquet(%s)", lit),
	).Scan(&info.Rows); err != nil {
		return nil, fmt.Errorf("count rows of %s: %w", path, err)
	}

	var compression sql.NullString
	if err := i.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT count(DISTINCT row_group_id), any_value(compression) FROM parquet_metadata(%s)", lit),
	).Scan(&info.RowGroups, &compression); err != nil {
		return nil, fmt.Errorf("read metadata of %s: %w", path, err)
	}
	info.Compression = compression.String

	return info, nil
}

func (i *Inspector) describe(ctx context.Context, lit string) ([]Column, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("DESCRIBE SELECT * FROM read_parquet(%s)", lit))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", lit, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}

	var cols []Column
	for rows.Next() {
		// column_name, column_type, null, key, default, extra
		vals := make([]sql.NullString, len(names))
		ptrs := make([]any, len(names))
		for k := range vals {
			ptrs[k] = &vals[k]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan describe row: %w", err)
		}
		cols = append(cols, Column{Name: vals[0].String, Type: vals[1].String})
	}
	return cols, rows.Err()
}
