package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// Journal is a domain.RunJournal backed by SQLite.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.RunJournal = (*Journal)(nil)

// Open opens (creating if needed) the journal at path and applies migrations.
func Open(path string) (*Journal, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// StartRun records the beginning of a run.
func (j *Journal) StartRun(ctx context.Context, runID string, startedAt time.Time, dryRun bool) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, dry_run) VALUES (?, ?, ?)`,
		runID, formatTime(startedAt), boolToInt(dryRun))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// RecordTable appends the outcome's current state as a table event.
func (j *Journal) RecordTable(ctx context.Context, runID string, o *domain.TableOutcome) error {
	var filePath, staged, errText sql.NullString
	var rows sql.NullInt64
	if o.File != nil {
		filePath = sql.NullString{String: o.File.Path, Valid: true}
		rows = sql.NullInt64{Int64: o.File.Rows, Valid: true}
	}
	if o.Staged != nil {
		staged = sql.NullString{String: o.Staged.Location(), Valid: true}
	}
	switch {
	case o.Err != nil:
		errText = sql.NullString{String: o.Err.Error(), Valid: true}
	case o.DDLError != nil:
		errText = sql.NullString{String: o.DDLError.Error(), Valid: true}
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO table_events
			(run_id, table_schema, table_name, state, target_table, file_path, row_count, staged_location, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Table.Schema, o.Table.Name, string(o.State), nullIfEmpty(o.TargetTable),
		filePath, rows, staged, errText, formatTime(j.now()))
	if err != nil {
		return fmt.Errorf("insert table event %s: %w", o.Table, err)
	}
	return nil
}

// FinishRun stores the run's end time and totals.
func (j *Journal) FinishRun(ctx context.Context, r *domain.RunReport) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, tables_total = ?, tables_loaded = ?, tables_failed = ? WHERE id = ?`,
		formatTime(r.FinishedAt), len(r.Outcomes), r.Count(domain.TableStateLoaded), r.Failed(), r.RunID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.RunID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: run not found", r.RunID)
	}
	return nil
}

// RunSummary is a stored run with the latest state of each table.
type RunSummary struct {
	ID         string        `json:"id" yaml:"id"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	DryRun     bool          `json:"dry_run" yaml:"dry_run"`
	Total      int           `json:"tables_total" yaml:"tables_total"`
	Loaded     int           `json:"tables_loaded" yaml:"tables_loaded"`
	Failed     int           `json:"tables_failed" yaml:"tables_failed"`
	Tables     []TableStatus `json:"tables" yaml:"tables"`
}

// TableStatus is the last recorded state of one table in a run.
type TableStatus struct {
	Schema     string    `json:"schema" yaml:"schema"`
	Name       string    `json:"name" yaml:"name"`
	State      string    `json:"state" yaml:"state"`
	Rows       *int64    `json:"rows,omitempty" yaml:"rows,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// ErrNoRuns is returned by LatestRun when the journal is empty.
var ErrNoRuns = errors.New("no runs recorded")

// LatestRun returns the most recently started run.
func (j *Journal) LatestRun(ctx context.Context) (*RunSummary, error) {
	var (
		s                     RunSummary
		started               string
		finished              sql.NullString
		dry                   int
		total, loaded, failed sql.NullInt64
	)
	err := j.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, dry_run, tables_total, tables_loaded, tables_failed
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	).Scan(&s.ID, &started, &finished, &dry, &total, &loaded, &failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}

	if s.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return nil, err
		}
		s.FinishedAt = &t
	}
	s.DryRun = dry != 0
	s.Total, s.Loaded, s.Failed = int(total.Int64), int(loaded.Int64), int(failed.Int64)

	if s.Tables, err = j.tableStatuses(ctx, s.ID); err != nil {
		return nil, err
	}
	return &s, nil
}

// tableStatuses folds a run's events into the latest state per table, in the
// order tables were first recorded.
func (j *Journal) tableStatuses(ctx context.Context, runID string) ([]TableStatus, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT table_schema, table_name, state, row_count, error, recorded_at
		FROM table_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query table events: %w", err)
	}
	defer rows.Close()

	var out []TableStatus
	index := map[domain.TableIdentifier]int{}
	for rows.Next() {
		var (
			ts       TableStatus
			rowCount sql.NullInt64
			errText  sql.NullString
			recorded string
		)
		if err := rows.Scan(&ts.Schema, &ts.Name, &ts.State, &rowCount, &errText, &recorded); err != nil {
			return nil, fmt.Errorf("scan table event: %w", err)
		}
		if rowCount.Valid {
			n := rowCount.Int64
			ts.Rows = &n
		}
		ts.Error = errText.String
		if ts.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, err
		}

		key := domain.TableIdentifier{Schema: ts.Schema, Name: ts.Name}
		if i, ok := index[key]; ok {
			if ts.Rows == nil {
				ts.Rows = out[i].Rows
			}
			out[i] = ts
			continue
		}
		index[key] = len(out)
		out = append(out, ts)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse journal time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
