// Package ddl builds the SQL statements the migration sends to SQL Server and
// Snowflake. All identifier interpolation goes through the quoting helpers in
// identifier.go.
package ddl

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ColumnDef describes a column for CREATE TABLE.
type ColumnDef struct {
	Name string
	Type string
}

// plainStagePathRe matches stage paths that can be written without quoting.
var plainStagePathRe = regexp.MustCompile(`^[a-zA-Z0-9_./$-]+$`)

// CreateOrReplaceTable returns a Snowflake DDL statement:
// CREATE OR REPLACE TABLE <schema>."<table>" ("<col1>" TYPE1, "<col2>" TYPE2, ...);
//
// The schema is emitted unquoted so Snowflake resolves it case-insensitively.
func CreateOrReplaceTable(schema, table string, columns []ColumnDef) (string, error) {
	if err := ValidateIdentifier(schema); err != nil {
		return "", fmt.Errorf("invalid schema name: %w", err)
	}
	if table == "" {
		return "", fmt.Errorf("invalid table name: name is required")
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	colDefs := make([]string, 0, len(columns))
	for _, c := range columns {
		if c.Name == "" {
			return "", fmt.Errorf("invalid column name: name is required")
		}
		if err := ValidateColumnType(c.Type); err != nil {
			return "", fmt.Errorf("invalid column type for %q: %w", c.Name, err)
		}
		colDefs = append(colDefs, fmt.Sprintf("%s %s", QuoteIdentifier(c.Name), c.Type))
	}

	return fmt.Sprintf("CREATE OR REPLACE TABLE %s.%s (%s);",
		schema,
		QuoteIdentifier(table),
		strings.Join(colDefs, ", "),
	), nil
}

// TableRef returns a fully qualified Snowflake table reference:
// <database>.<schema>."<table>".
func TableRef(database, schema, table string) (string, error) {
	if err := ValidateIdentifier(database); err != nil {
		return "", fmt.Errorf("invalid database name: %w", err)
	}
	if err := ValidateIdentifier(schema); err != nil {
		return "", fmt.Errorf("invalid schema name: %w", err)
	}
	if table == "" {
		return "", fmt.Errorf("invalid table name: name is required")
	}
	return fmt.Sprintf("%s.%s.%s", database, schema, QuoteIdentifier(table)), nil
}

// StageRef returns a fully qualified named stage reference: @<database>.<schema>.<stage>.
func StageRef(database, schema, stage string) (string, error) {
	if err := ValidateIdentifier(database); err != nil {
		return "", fmt.Errorf("invalid database name: %w", err)
	}
	if err := ValidateIdentifier(schema); err != nil {
		return "", fmt.Errorf("invalid schema name: %w", err)
	}
	if err := ValidateIdentifier(stage); err != nil {
		return "", fmt.Errorf("invalid stage name: %w", err)
	}
	return fmt.Sprintf("@%s.%s.%s", database, schema, stage), nil
}

// Put returns a Snowflake PUT command uploading a local file into a stage:
//
//	PUT 'file:///abs/path/file.parquet' @DB.SCH.stage/ AUTO_COMPRESS=TRUE;
//
// localPath must be absolute.
func Put(localPath, stageRef string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("local path is required")
	}
	if !strings.HasPrefix(stageRef, "@") {
		return "", fmt.Errorf("stage reference %q must start with @", stageRef)
	}
	uri := "file://" + filepath.ToSlash(localPath)
	return fmt.Sprintf("PUT %s %s/ AUTO_COMPRESS=TRUE;", QuoteLiteral(uri), stageRef), nil
}

// CopyInto returns a Snowflake bulk-load command matching Parquet columns to
// table columns by name, case-insensitively:
//
//	COPY INTO DB.SCH."T" FROM @DB.SCH.stage/file.parquet.gz FILE_FORMAT = (TYPE = PARQUET) MATCH_BY_COLUMN_NAME = CASE_INSENSITIVE;
//
// Locations containing characters outside [a-zA-Z0-9_./$-] are single-quoted.
func CopyInto(tableRef, location string) (string, error) {
	if tableRef == "" {
		return "", fmt.Errorf("table reference is required")
	}
	if !strings.HasPrefix(location, "@") {
		return "", fmt.Errorf("stage location %q must start with @", location)
	}
	from := location
	if !plainStagePathRe.MatchString(strings.TrimPrefix(location, "@")) {
		from = QuoteLiteral(location)
	}
	return fmt.Sprintf("COPY INTO %s FROM %s FILE_FORMAT = (TYPE = PARQUET) MATCH_BY_COLUMN_NAME = CASE_INSENSITIVE;",
		tableRef, from), nil
}

// Select returns a SQL Server SELECT over a bracket-quoted schema and table:
// SELECT <expr1>, <expr2> FROM [schema].[table].
func Select(schema, table string, exprs []string) (string, error) {
	if schema == "" || table == "" {
		return "", fmt.Errorf("schema and table are required")
	}
	if len(exprs) == 0 {
		return "", fmt.Errorf("at least one select expression is required")
	}
	return fmt.Sprintf("SELECT %s FROM %s.%s",
		strings.Join(exprs, ", "),
		QuoteBracket(schema),
		QuoteBracket(table),
	), nil
}
