package translate

import (
	"fmt"

	"github.com/cuderbk/adw-elt-pipeline/internal/ddl"
	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// DefaultTablePrefix is prepended to every source table name in Snowflake.
const DefaultTablePrefix = "STG_ADW_"

// Translation is the pair of statements derived from one table's metadata.
// DDL and Query enumerate the same columns in the same order.
type Translation struct {
	Table       domain.TableIdentifier
	TargetTable string // destination table name, without schema
	DDL         string // Snowflake CREATE OR REPLACE TABLE
	Query       string // SQL Server projection SELECT
	Columns     int
}

// Translator derives destination DDL and the source projection query.
type Translator struct {
	TargetSchema string
	TablePrefix  string
}

// NewTranslator creates a Translator for the given Snowflake schema and table prefix.
func NewTranslator(targetSchema, tablePrefix string) (*Translator, error) {
	if err := ddl.ValidateIdentifier(targetSchema); err != nil {
		return nil, fmt.Errorf("invalid target schema: %w", err)
	}
	return &Translator{TargetSchema: targetSchema, TablePrefix: tablePrefix}, nil
}

// TargetTable returns the destination table name for a source table.
func (t *Translator) TargetTable(table domain.TableIdentifier) string {
	return t.TablePrefix + table.Name
}

// Translate builds the DDL and projection query for one table. The output is
// a pure function of the inputs: identical metadata yields identical strings.
func (t *Translator) Translate(table domain.TableIdentifier, columns []domain.ColumnMetadata) (*Translation, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns", table)
	}

	defs := make([]ddl.ColumnDef, len(columns))
	exprs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = ddl.ColumnDef{Name: c.Name, Type: MapType(c.SourceType)}
		exprs[i] = ProjectColumn(c.Name, c.SourceType)
	}

	target := t.TargetTable(table)
	createSQL, err := ddl.CreateOrReplaceTable(t.TargetSchema, target, defs)
	if err != nil {
		return nil, fmt.Errorf("build DDL for %s: %w", table, err)
	}
	selectSQL, err := ddl.Select(table.Schema, table.Name, exprs)
	if err != nil {
		return nil, fmt.Errorf("build projection for %s: %w", table, err)
	}

	return &Translation{
		Table:       table,
		TargetTable: target,
		DDL:         createSQL,
		Query:       selectSQL,
		Columns:     len(columns),
	}, nil
}
