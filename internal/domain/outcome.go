package domain

import "time"

// TableState is the position of one table in the migration lifecycle.
type TableState string

// Table states. The happy path is pending → extracted → ddl_issued → staged → loaded.
const (
	TableStatePending      TableState = "pending"
	TableStateExtracted    TableState = "extracted"
	TableStateDDLIssued    TableState = "ddl_issued"
	TableStateStaged       TableState = "staged"
	TableStateLoaded       TableState = "loaded"
	TableStateExportFailed TableState = "export_failed"
	TableStateStageFailed  TableState = "stage_failed"
	TableStateLoadFailed   TableState = "load_failed"
)

// Failed reports whether s is a terminal failure state.
func (s TableState) Failed() bool {
	switch s {
	case TableStateExportFailed, TableStateStageFailed, TableStateLoadFailed:
		return true
	}
	return false
}

// Phase is one step of the orchestrated run.
type Phase string

// Run phases, executed in this order.
const (
	PhaseExtract Phase = "extract"
	PhaseDDL     Phase = "ddl"
	PhaseLoad    Phase = "load"
)

// TableOutcome is the per-table result record the orchestrator threads through
// every phase. DDLError does not change State: a table whose DDL failed is still
// attempted in the load phase and fails there on the destination side.
type TableOutcome struct {
	Table       TableIdentifier
	State       TableState
	TargetTable string
	DDL         string
	Query       string
	File        *ExportedFile
	Staged      *StagedObject
	DDLError    error
	Err         error
}

// Eligible reports whether the table takes part in the given phase.
func (o TableOutcome) Eligible(p Phase) bool {
	switch p {
	case PhaseExtract:
		return o.State == TableStatePending
	case PhaseDDL:
		return o.State == TableStateExtracted
	case PhaseLoad:
		return o.State == TableStateExtracted || o.State == TableStateDDLIssued
	}
	return false
}

// Warnings returns the duplicate column names recorded during export, if any.
func (o TableOutcome) Warnings() []string {
	if o.File == nil {
		return nil
	}
	return o.File.DuplicateColumns
}

// RunReport summarises one execution of the migration.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Outcomes   []*TableOutcome
}

// Count returns the number of tables in the given state.
func (r *RunReport) Count(s TableState) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == s {
			n++
		}
	}
	return n
}

// Failed returns the number of tables that ended in a failure state.
func (r *RunReport) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State.Failed() {
			n++
		}
	}
	return n
}

// DDLFailed returns the number of tables whose CREATE TABLE failed. A table
// can be counted here and still be loaded into an existing staging table.
func (r *RunReport) DDLFailed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.DDLError != nil {
			n++
		}
	}
	return n
}
