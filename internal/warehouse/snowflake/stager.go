package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cuderbk/adw-elt-pipeline/internal/ddl"
	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// Querier is satisfied by *sql.DB.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// InternalStager uploads files into a Snowflake named internal stage with PUT.
type InternalStager struct {
	q        Querier
	stageRef string
}

var _ domain.Stager = (*InternalStager)(nil)

// NewInternalStager stages into stageRef, e.g. "@DB.SCH.staging_stage".
func NewInternalStager(q Querier, stageRef string) *InternalStager {
	return &InternalStager{q: q, stageRef: stageRef}
}

// Stage PUTs the file and returns the name Snowflake stored it under, which
// carries the compression suffix added by AUTO_COMPRESS.
func (s *InternalStager) Stage(ctx context.Context, file *domain.ExportedFile) (*domain.StagedObject, error) {
	abs, err := filepath.Abs(file.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", file.Path, err)
	}
	stmt, err := ddl.Put(abs, s.stageRef)
	if err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", filepath.Base(abs), err)
	}
	defer rows.Close()

	target, err := readPutResult(rows)
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", filepath.Base(abs), err)
	}
	return &domain.StagedObject{Stage: s.stageRef, Name: target}, nil
}

// putStatusOK lists the PUT result statuses that leave the file in the stage.
var putStatusOK = map[string]bool{"UPLOADED": true, "SKIPPED": true}

// readPutResult reads the single result row of a PUT and returns its target
// file name. Columns are located by name so driver column order does not matter.
func readPutResult(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read put result columns: %w", err)
	}
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[strings.ToLower(c)] = i
	}
	ti, ok := idx["target"]
	if !ok {
		return "", fmt.Errorf("put result has no target column")
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("put returned no rows")
	}

	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return "", fmt.Errorf("scan put result: %w", err)
	}

	if si, ok := idx["status"]; ok {
		status := strings.ToUpper(vals[si].String)
		if !putStatusOK[status] {
			msg := ""
			if mi, ok := idx["message"]; ok {
				msg = vals[mi].String
			}
			return "", fmt.Errorf("put status %s: %s", status, msg)
		}
	}

	target := vals[ti].String
	if target == "" {
		return "", fmt.Errorf("put result has an empty target")
	}
	return target, nil
}
