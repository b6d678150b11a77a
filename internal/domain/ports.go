package domain

import (
	"context"
	"time"
)

// SourceCatalog discovers tables and columns in the source database.
// Implemented by mssql.Source.
type SourceCatalog interface {
	ListTables(ctx context.Context) ([]TableIdentifier, error)
	ListColumns(ctx context.Context, table TableIdentifier) ([]ColumnMetadata, error)
}

// TableExporter runs a projection query and writes the result to a file.
// Implemented by export.Exporter.
type TableExporter interface {
	Export(ctx context.Context, table TableIdentifier, query string) (*ExportedFile, error)
}

// Warehouse executes statements against the destination.
// Implemented by snowflake.Client.
type Warehouse interface {
	Exec(ctx context.Context, stmt string) error
}

// Stager places a local file where the destination's COPY command can read it.
// Implementations: snowflake.InternalStager, stage.S3Stager, stage.GCSStager,
// stage.AzureStager.
type Stager interface {
	Stage(ctx context.Context, file *ExportedFile) (*StagedObject, error)
}

// RunJournal persists run and table state transitions.
// Implemented by journal.Journal. Optional: the orchestrator runs without one.
type RunJournal interface {
	StartRun(ctx context.Context, runID string, startedAt time.Time, dryRun bool) error
	RecordTable(ctx context.Context, runID string, outcome *TableOutcome) error
	FinishRun(ctx context.Context, report *RunReport) error
}
