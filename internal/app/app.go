// Package app wires configuration into the source, destination, exporter,
// stager, journal and migration service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cuderbk/adw-elt-pipeline/internal/config"
	"github.com/cuderbk/adw-elt-pipeline/internal/ddl"
	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
	"github.com/cuderbk/adw-elt-pipeline/internal/export"
	"github.com/cuderbk/adw-elt-pipeline/internal/journal"
	"github.com/cuderbk/adw-elt-pipeline/internal/service/migration"
	"github.com/cuderbk/adw-elt-pipeline/internal/source/mssql"
	"github.com/cuderbk/adw-elt-pipeline/internal/stage"
	"github.com/cuderbk/adw-elt-pipeline/internal/translate"
	"github.com/cuderbk/adw-elt-pipeline/internal/warehouse/snowflake"
)

const (
	sourceConnectTimeout = 30 * time.Second
	loginTimeout         = 60 * time.Second
)

// Options selects what a run does beyond the loaded configuration.
type Options struct {
	DryRun  bool
	Include []string
	Exclude []string
}

// App holds the fully wired migration and the resources it owns.
type App struct {
	Service    *migration.Service
	Translator *translate.Translator
	Source     *mssql.Source
	Warehouse  *snowflake.Client // nil in a dry run
	Journal    *journal.Journal  // nil when disabled
	Stager     domain.Stager     // nil in a dry run

	closers []io.Closer
}

// New validates the settings, opens every connection the run needs and
// builds the migration service. A dry run opens only the source.
func New(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (_ *App, err error) {
	dup, err := export.ParseDuplicatePolicy(cfg.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	kind, err := stage.ParseKind(cfg.Stage.Kind)
	if err != nil {
		return nil, err
	}
	filter, err := migration.NewTableFilter(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}
	translator, err := translate.NewTranslator(cfg.Snowflake.Schema, cfg.TablePrefix)
	if err != nil {
		return nil, err
	}

	a := &App{Translator: translator}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	logger.Info("connecting to source", "server", cfg.Source.Server, "database", cfg.Source.Database, "ssh", cfg.SSH.Enabled())
	a.Source, err = mssql.Open(ctx, SourceOptions(cfg))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Source)

	var exporter domain.TableExporter
	var warehouse domain.Warehouse
	if !opts.DryRun {
		logger.Info("connecting to destination", "account", cfg.Snowflake.Account, "database", cfg.Snowflake.Database, "schema", cfg.Snowflake.Schema)
		a.Warehouse, err = snowflake.Open(ctx, WarehouseOptions(cfg), logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.Warehouse)
		warehouse = a.Warehouse

		var stageRef string
		stageRef, err = ddl.StageRef(cfg.Snowflake.Database, cfg.Snowflake.Schema, cfg.Stage.Name)
		if err != nil {
			return nil, domain.ErrValidation("stage: %v", err)
		}
		if kind == stage.KindInternal {
			a.Stager = snowflake.NewInternalStager(a.Warehouse.DB(), stageRef)
		} else {
			a.Stager, err = stage.New(ctx, StageOptions(cfg, kind, stageRef))
			if err != nil {
				return nil, fmt.Errorf("configure %s stage: %w", kind, err)
			}
		}

		exporter = export.NewExporter(a.Source.DB(), export.Options{
			OutputDir:       cfg.OutputDir,
			BatchSize:       cfg.BatchSize,
			DuplicatePolicy: dup,
		}, logger)
	}

	var runJournal domain.RunJournal
	if cfg.JournalPath != "" && !opts.DryRun {
		a.Journal, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.Journal)
		runJournal = a.Journal
	}

	a.Service = migration.NewService(a.Source, translator, exporter, warehouse, a.Stager, runJournal, migration.Options{
		Database: cfg.Snowflake.Database,
		Schema:   cfg.Snowflake.Schema,
		DryRun:   opts.DryRun,
		Filter:   filter,
	}, logger)
	return a, nil
}

// Close releases every opened resource in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// SourceOptions converts the configuration into SQL Server connection options.
func SourceOptions(cfg *config.Config) mssql.Options {
	opts := mssql.Options{
		Server:                 cfg.Source.Server,
		Port:                   cfg.Source.Port,
		Database:               cfg.Source.Database,
		User:                   cfg.Source.User,
		Password:               cfg.Source.Password,
		Encrypt:                cfg.Source.Encrypt,
		TrustServerCertificate: cfg.Source.TrustServerCertificate,
		ConnectTimeout:         sourceConnectTimeout,
	}
	if cfg.SSH.Enabled() {
		opts.Tunnel = &mssql.TunnelOptions{
			Host:          cfg.SSH.Host,
			Port:          cfg.SSH.Port,
			User:          cfg.SSH.User,
			KeyPath:       cfg.SSH.KeyPath,
			KnownHostsKey: cfg.SSH.HostKey,
		}
	}
	return opts
}

// WarehouseOptions converts the configuration into Snowflake connection options.
func WarehouseOptions(cfg *config.Config) snowflake.Options {
	return snowflake.Options{
		Account:      cfg.Snowflake.Account,
		User:         cfg.Snowflake.User,
		Password:     cfg.Snowflake.Password,
		Warehouse:    cfg.Snowflake.Warehouse,
		Database:     cfg.Snowflake.Database,
		Schema:       cfg.Snowflake.Schema,
		Role:         cfg.Snowflake.Role,
		LoginTimeout: loginTimeout,
	}
}

// StageOptions converts the configuration into external stage options.
func StageOptions(cfg *config.Config, kind stage.Kind, stageRef string) stage.Options {
	return stage.Options{
		Kind:         kind,
		URL:          cfg.Stage.URL,
		StageRef:     stageRef,
		Prefix:       cfg.Stage.Prefix,
		S3Region:     cfg.Stage.S3Region,
		S3Endpoint:   cfg.Stage.S3Endpoint,
		S3KeyID:      cfg.Stage.S3KeyID,
		S3Secret:     cfg.Stage.S3Secret,
		GCSKeyFile:   cfg.Stage.GCSKeyFile,
		AzureKey:     cfg.Stage.AzureKey,
		AzureAccount: cfg.Stage.AzureAccount,
	}
}
