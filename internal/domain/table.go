// Package domain defines core types, interfaces, and errors for the staging migration.
package domain

import "fmt"

// TableIdentifier names one source base table.
type TableIdentifier struct {
	Schema string
	Name   string
}

// String returns "schema.table".
func (t TableIdentifier) String() string {
	return fmt.Sprintf("%s.%s", t.Schema, t.Name)
}

// ColumnMetadata describes one source column as reported by the catalog.
// SourceType is the SQL Server DATA_TYPE name and is matched case-insensitively.
type ColumnMetadata struct {
	Name       string
	SourceType string
}

// ExportedFile is the Parquet file written for one table during a run.
type ExportedFile struct {
	Table   TableIdentifier
	Path    string
	Columns []string // column names as written to the file
	Rows    int64

	// DuplicateColumns lists every column name that appeared more than once
	// in the source row set, in first-seen order. Empty when there were none.
	DuplicateColumns []string
}

// StagedObject references a file that has been placed in a Snowflake stage.
type StagedObject struct {
	Stage string // fully qualified stage reference, e.g. "@DB.SCH.staging_stage"
	Name  string // path of the file relative to the stage
}

// Location returns the stage path used in a COPY INTO ... FROM clause.
func (o StagedObject) Location() string {
	return o.Stage + "/" + o.Name
}
