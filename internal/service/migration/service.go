// Package migration orchestrates the staging migration: discover source
// tables, export each one, create its staging table, then stage and load it.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuderbk/adw-elt-pipeline/internal/ddl"
	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
	"github.com/cuderbk/adw-elt-pipeline/internal/translate"
)

// Options controls a run.
type Options struct {
	// Database and Schema qualify the staging tables in COPY statements.
	Database string
	Schema   string
	// DryRun stops after translation: nothing is exported, created or loaded.
	DryRun bool
	Filter *TableFilter
}

// Service runs migrations. It is not safe for concurrent Run calls.
type Service struct {
	catalog    domain.SourceCatalog
	translator *translate.Translator
	exporter   domain.TableExporter
	warehouse  domain.Warehouse
	stager     domain.Stager
	journal    domain.RunJournal // may be nil
	opts       Options
	logger     *slog.Logger

	newID func() string
	now   func() time.Time
	runID string
}

// NewService creates a Service. journal may be nil.
func NewService(
	catalog domain.SourceCatalog,
	translator *translate.Translator,
	exporter domain.TableExporter,
	warehouse domain.Warehouse,
	stager domain.Stager,
	journal domain.RunJournal,
	opts Options,
	logger *slog.Logger,
) *Service {
	return &Service{
		catalog:    catalog,
		translator: translator,
		exporter:   exporter,
		warehouse:  warehouse,
		stager:     stager,
		journal:    journal,
		opts:       opts,
		logger:     logger,
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Run migrates every discovered base table. Per-table failures are recorded
// on the report and never returned as an error; only a failed discovery or a
// cancelled context aborts the run.
func (s *Service) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{
		RunID:     s.newID(),
		StartedAt: s.now(),
		DryRun:    s.opts.DryRun,
	}
	s.runID = report.RunID
	logger := s.logger.With("run_id", report.RunID)

	tables, err := s.catalog.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}
	discovered := len(tables)
	tables = s.opts.Filter.Apply(tables)
	logger.Info("source tables", "discovered", discovered, "selected", len(tables), "tables", tableNames(tables))

	for _, t := range tables {
		report.Outcomes = append(report.Outcomes, &domain.TableOutcome{Table: t, State: domain.TableStatePending})
	}

	if s.journal != nil {
		if err := s.journal.StartRun(ctx, report.RunID, report.StartedAt, report.DryRun); err != nil {
			logger.Warn("journal unavailable", "error", err)
		}
	}

	phases := []struct {
		phase domain.Phase
		step  func(context.Context, *slog.Logger, *domain.TableOutcome)
	}{
		{domain.PhaseExtract, s.extract},
		{domain.PhaseDDL, s.createTable},
		{domain.PhaseLoad, s.load},
	}
	if s.opts.DryRun {
		phases = phases[:1]
	}

	for _, p := range phases {
		logger.Info("phase started", "phase", string(p.phase))
		for _, o := range report.Outcomes {
			if err := ctx.Err(); err != nil {
				s.finish(ctx, logger, report)
				return report, fmt.Errorf("%s phase interrupted: %w", p.phase, err)
			}
			if !o.Eligible(p.phase) {
				continue
			}
			tl := logger.With("schema", o.Table.Schema, "table", o.Table.Name)
			p.step(ctx, tl, o)
		}
	}

	s.finish(ctx, logger, report)
	return report, nil
}

// extract lists the table's columns, translates them and exports the rows.
// In a dry run the table stays pending once translated.
func (s *Service) extract(ctx context.Context, logger *slog.Logger, o *domain.TableOutcome) {
	cols, err := s.catalog.ListColumns(ctx, o.Table)
	if err != nil {
		var metaErr *domain.MetadataError
		if !errors.As(err, &metaErr) {
			err = &domain.MetadataError{Table: o.Table, Err: err}
		}
		s.fail(ctx, logger, o, domain.TableStateExportFailed, err)
		return
	}

	tr, err := s.translator.Translate(o.Table, cols)
	if err != nil {
		s.fail(ctx, logger, o, domain.TableStateExportFailed, &domain.ExportError{Table: o.Table, Stage: "translate", Err: err})
		return
	}
	o.TargetTable, o.DDL, o.Query = tr.TargetTable, tr.DDL, tr.Query

	if s.opts.DryRun {
		logger.Info("table planned", "target", o.TargetTable, "columns", tr.Columns)
		return
	}

	file, err := s.exporter.Export(ctx, o.Table, o.Query)
	if err != nil {
		var expErr *domain.ExportError
		var dupErr *domain.DuplicateColumnError
		if !errors.As(err, &expErr) && !errors.As(err, &dupErr) {
			err = &domain.ExportError{Table: o.Table, Stage: "query", Err: err}
		}
		s.fail(ctx, logger, o, domain.TableStateExportFailed, err)
		return
	}
	o.File = file
	s.transition(ctx, logger, o, domain.TableStateExtracted, "rows", file.Rows, "path", file.Path)
}

// createTable issues the staging table DDL. A failure is recorded but leaves
// the table eligible for loading.
func (s *Service) createTable(ctx context.Context, logger *slog.Logger, o *domain.TableOutcome) {
	if err := s.warehouse.Exec(ctx, o.DDL); err != nil {
		o.DDLError = &domain.DDLError{Table: o.Table, Err: err}
		logger.Error("create table failed", "state", string(o.State), "target", o.TargetTable, "error", o.DDLError)
		s.record(ctx, logger, o)
		return
	}
	s.transition(ctx, logger, o, domain.TableStateDDLIssued, "target", o.TargetTable)
}

// load stages the table's file and bulk-loads it into the staging table.
func (s *Service) load(ctx context.Context, logger *slog.Logger, o *domain.TableOutcome) {
	staged, err := s.stager.Stage(ctx, o.File)
	if err != nil {
		s.fail(ctx, logger, o, domain.TableStateStageFailed, &domain.StageError{Table: o.Table, Err: err})
		return
	}
	o.Staged = staged
	s.transition(ctx, logger, o, domain.TableStateStaged, "location", staged.Location())

	stmt, err := s.copyStatement(o.TargetTable, staged)
	if err == nil {
		err = s.warehouse.Exec(ctx, stmt)
	}
	if err != nil {
		s.fail(ctx, logger, o, domain.TableStateLoadFailed, &domain.LoadError{Table: o.Table, Err: err})
		return
	}
	s.transition(ctx, logger, o, domain.TableStateLoaded, "target", o.TargetTable)
}

func (s *Service) copyStatement(target string, staged *domain.StagedObject) (string, error) {
	ref, err := ddl.TableRef(s.opts.Database, s.opts.Schema, target)
	if err != nil {
		return "", err
	}
	return ddl.CopyInto(ref, staged.Location())
}

func (s *Service) transition(ctx context.Context, logger *slog.Logger, o *domain.TableOutcome, state domain.TableState, attrs ...any) {
	o.State = state
	logger.Info("table state", append([]any{"state", string(state)}, attrs...)...)
	s.record(ctx, logger, o)
}

func (s *Service) fail(ctx context.Context, logger *slog.Logger, o *domain.TableOutcome, state domain.TableState, err error) {
	o.State = state
	o.Err = err
	logger.Error("table failed", "state", string(state), "error", err)
	s.record(ctx, logger, o)
}

// record appends the outcome to the journal. Journal failures are logged
// and never affect the migration.
func (s *Service) record(ctx context.Context, logger *slog.Logger, o *domain.TableOutcome) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordTable(context.WithoutCancel(ctx), s.runID, o); err != nil {
		logger.Warn("journal write failed", "error", err)
	}
}

func (s *Service) finish(ctx context.Context, logger *slog.Logger, r *domain.RunReport) {
	r.FinishedAt = s.now()
	if s.journal != nil {
		if err := s.journal.FinishRun(context.WithoutCancel(ctx), r); err != nil {
			logger.Warn("journal write failed", "error", err)
		}
	}
	logger.Info("migration finished",
		"tables", len(r.Outcomes),
		"loaded", r.Count(domain.TableStateLoaded),
		"failed", r.Failed(),
		"ddl_failed", r.DDLFailed(),
		"dry_run", r.DryRun,
		"duration_ms", r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	)
}

func tableNames(tables []domain.TableIdentifier) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.String()
	}
	return names
}
