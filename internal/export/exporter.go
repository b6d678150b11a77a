// Package export writes the result of a source projection query to a Parquet file.
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// DuplicatePolicy decides what happens when a row set repeats a column name.
type DuplicatePolicy string

const (
	// DuplicateSuffix renames later occurrences to name_2, name_3, ... and
	// exports the table.
	DuplicateSuffix DuplicatePolicy = "suffix"
	// DuplicateFail aborts the export of the table.
	DuplicateFail DuplicatePolicy = "fail"
)

// ParseDuplicatePolicy validates a policy name. Empty means DuplicateSuffix.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DuplicateSuffix:
		return DuplicateSuffix, nil
	case DuplicateFail:
		return DuplicateFail, nil
	}
	return "", domain.ErrValidation("unknown duplicate column policy %q: use 'suffix' or 'fail'", s)
}

// DefaultBatchSize is the number of rows buffered per Parquet row group write.
const DefaultBatchSize = 10000

// FileExtension is appended to every exported file name.
const FileExtension = ".parquet"

// Querier is the subset of *sql.DB the exporter needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Options configures an Exporter.
type Options struct {
	OutputDir       string
	BatchSize       int
	DuplicatePolicy DuplicatePolicy
}

// Exporter runs projection queries and materialises each result as a Parquet file.
type Exporter struct {
	db     Querier
	opts   Options
	alloc  memory.Allocator
	logger *slog.Logger
}

var _ domain.TableExporter = (*Exporter)(nil)

// NewExporter creates an Exporter reading from db.
func NewExporter(db Querier, opts Options, logger *slog.Logger) *Exporter {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.DuplicatePolicy == "" {
		opts.DuplicatePolicy = DuplicateSuffix
	}
	return &Exporter{
		db:     db,
		opts:   opts,
		alloc:  memory.DefaultAllocator,
		logger: logger,
	}
}

// Path returns the file a table is exported to: <outputDir>/<schema>_<table>.parquet.
func (e *Exporter) Path(table domain.TableIdentifier) string {
	return filepath.Join(e.opts.OutputDir, FileName(table))
}

// FileName returns the base name of a table's export file.
func FileName(table domain.TableIdentifier) string {
	return fmt.Sprintf("%s_%s%s", table.Schema, table.Name, FileExtension)
}

// Export runs query against the source and writes the rows to the table's file,
// replacing any file left by a previous run. Duplicate column names are logged
// and reported on the returned ExportedFile before any row is written.
func (e *Exporter) Export(ctx context.Context, table domain.TableIdentifier, query string) (*domain.ExportedFile, error) {
	logger := e.logger.With("schema", table.Schema, "table", table.Name)

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.ExportError{Table: table, Stage: "query", Err: err}
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, &domain.ExportError{Table: table, Stage: "query", Err: fmt.Errorf("read column types: %w", err)}
	}

	names := make([]string, len(colTypes))
	for i, ct := range colTypes {
		names[i] = ct.Name()
	}

	dups := FindDuplicates(names)
	if len(dups) > 0 {
		logger.Warn("duplicate column names", "columns", dups, "policy", string(e.opts.DuplicatePolicy))
		if e.opts.DuplicatePolicy == DuplicateFail {
			return nil, &domain.DuplicateColumnError{Table: table, Columns: dups}
		}
		names = SuffixDuplicates(names)
	}

	columns := make([]column, len(colTypes))
	for i, ct := range colTypes {
		dbType := normalizeDBType(ct.DatabaseTypeName())
		columns[i] = column{name: names[i], dbType: dbType, typ: fileType(dbType)}
	}

	path := e.Path(table)
	n, werr := e.writeFile(path, columns, rows)
	if werr != nil {
		return nil, werr.withTable(table)
	}

	logger.Info("table exported", "path", path, "rows", n, "columns", len(columns))
	return &domain.ExportedFile{
		Table:            table,
		Path:             path,
		Columns:          names,
		Rows:             n,
		DuplicateColumns: dups,
	}, nil
}

// stageError carries the failing stage until the table is known.
type stageError struct {
	stage string
	err   error
}

func (s *stageError) withTable(table domain.TableIdentifier) error {
	return &domain.ExportError{Table: table, Stage: s.stage, Err: s.err}
}

// writeFile streams rows into a temporary file next to path and renames it
// into place once the footer is written. The temporary file is removed on failure.
func (e *Exporter) writeFile(path string, columns []column, rows *sql.Rows) (int64, *stageError) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, &stageError{"write", fmt.Errorf("create output dir: %w", err)}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, &stageError{"write", fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	pw, err := newParquetWriter(tmp, columns, e.opts.BatchSize, e.alloc)
	if err != nil {
		return 0, &stageError{"write", err}
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			_ = pw.Close()
			return 0, &stageError{"query", fmt.Errorf("scan row: %w", err)}
		}
		if err := pw.Append(values); err != nil {
			_ = pw.Close()
			return 0, &stageError{"write", err}
		}
	}
	if err := rows.Err(); err != nil {
		_ = pw.Close()
		return 0, &stageError{"query", err}
	}

	if err := pw.Close(); err != nil {
		return 0, &stageError{"write", err}
	}
	if err := tmp.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return 0, &stageError{"write", fmt.Errorf("close temp file: %w", err)}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, &stageError{"write", fmt.Errorf("replace %s: %w", path, err)}
	}
	committed = true
	return pw.Rows(), nil
}

// FindDuplicates returns every column name that occurs more than once,
// compared case-insensitively because Snowflake matches load columns that way.
// Names are reported in their first-seen spelling and order.
func FindDuplicates(names []string) []string {
	first := make(map[string]string, len(names))
	count := make(map[string]int, len(names))
	var dups []string
	for _, n := range names {
		key := strings.ToLower(n)
		if _, ok := first[key]; !ok {
			first[key] = n
		}
		count[key]++
		if count[key] == 2 {
			dups = append(dups, first[key])
		}
	}
	return dups
}

// SuffixDuplicates renames the second and later occurrences of a name to
// name_2, name_3, ..., skipping suffixes that would collide with another column.
func SuffixDuplicates(names []string) []string {
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[strings.ToLower(n)] = true
	}

	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for i, n := range names {
		key := strings.ToLower(n)
		if !used[key] {
			used[key] = true
			out[i] = n
			continue
		}
		for k := 2; ; k++ {
			candidate := fmt.Sprintf("%s_%d", n, k)
			ckey := strings.ToLower(candidate)
			if !taken[ckey] && !used[ckey] {
				used[ckey] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}
