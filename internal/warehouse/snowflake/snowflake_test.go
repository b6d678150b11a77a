package snowflake

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// cannedQuerier records the statement it receives and answers with a fixed
// SQLite query standing in for the driver's PUT result.
type cannedQuerier struct {
	db     *sql.DB
	answer string
	err    error
	got    []string
}

func (q *cannedQuerier) QueryContext(ctx context.Context, query string, _ ...any) (*sql.Rows, error) {
	q.got = append(q.got, query)
	if q.err != nil {
		return nil, q.err
	}
	return q.db.QueryContext(ctx, q.answer)
}

func TestOptions_Config(t *testing.T) {
	cfg := Options{
		Account:   "xy12345.eu-west-1",
		User:      "loader",
		Password:  "pw",
		Warehouse: "WH",
		Database:  "DB",
		Schema:    "SCH",
		Role:      "LOADER",
	}.Config()

	assert.Equal(t, "xy12345.eu-west-1", cfg.Account)
	assert.Equal(t, "loader", cfg.User)
	assert.Equal(t, "WH", cfg.Warehouse)
	assert.Equal(t, "DB", cfg.Database)
	assert.Equal(t, "SCH", cfg.Schema)
	assert.Equal(t, "LOADER", cfg.Role)
	assert.Equal(t, "adw-elt", cfg.Application)
}

func TestOpen_MissingAccount(t *testing.T) {
	_, err := Open(context.Background(), Options{User: "u"}, slog.New(slog.DiscardHandler))
	require.Error(t, err)

	var connErr *domain.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "destination", connErr.Endpoint)
}

func TestClient_Exec(t *testing.T) {
	db := openSQLite(t)
	c := newClient(db, slog.New(slog.DiscardHandler))
	assert.Same(t, db, c.DB())

	require.NoError(t, c.Exec(context.Background(), `CREATE TABLE t (a INTEGER)`))
	require.NoError(t, c.Exec(context.Background(), `INSERT INTO t VALUES (1)`))

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM t`).Scan(&n))
	assert.Equal(t, 1, n)

	err := c.Exec(context.Background(), `INSERT INTO missing VALUES (1)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

func TestInternalStager_Stage(t *testing.T) {
	q := &cannedQuerier{
		db: openSQLite(t),
		answer: `SELECT 'dbo_Customers.parquet' AS source, 'dbo_Customers.parquet.gz' AS target,
			1024 AS source_size, 512 AS target_size, 'NONE' AS source_compression,
			'GZIP' AS target_compression, 'UPLOADED' AS status, '' AS message`,
	}
	s := NewInternalStager(q, "@DB.SCH.staging_stage")

	path := filepath.Join(t.TempDir(), "dbo_Customers.parquet")
	got, err := s.Stage(context.Background(), &domain.ExportedFile{Path: path})
	require.NoError(t, err)

	assert.Equal(t, &domain.StagedObject{Stage: "@DB.SCH.staging_stage", Name: "dbo_Customers.parquet.gz"}, got)
	assert.Equal(t, "@DB.SCH.staging_stage/dbo_Customers.parquet.gz", got.Location())
	require.Len(t, q.got, 1)
	assert.Equal(t, "PUT 'file://"+filepath.ToSlash(path)+"' @DB.SCH.staging_stage/ AUTO_COMPRESS=TRUE;", q.got[0])
}

func TestInternalStager_QueryError(t *testing.T) {
	q := &cannedQuerier{db: openSQLite(t), err: errors.New("stage does not exist")}
	s := NewInternalStager(q, "@DB.SCH.staging_stage")

	_, err := s.Stage(context.Background(), &domain.ExportedFile{Path: "/tmp/x.parquet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage does not exist")
}

func TestInternalStager_BadStageRef(t *testing.T) {
	s := NewInternalStager(&cannedQuerier{db: openSQLite(t)}, "DB.SCH.staging_stage")
	_, err := s.Stage(context.Background(), &domain.ExportedFile{Path: "/tmp/x.parquet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with @")
}

func TestReadPutResult(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantErr string
	}{
		{
			name:  "uploaded",
			query: `SELECT 'a.parquet' AS source, 'a.parquet.gz' AS target, 'UPLOADED' AS status, '' AS message`,
			want:  "a.parquet.gz",
		},
		{
			name:  "skipped counts as staged",
			query: `SELECT 'a.parquet.gz' AS target, 'skipped' AS status`,
			want:  "a.parquet.gz",
		},
		{
			name:  "upper case column names",
			query: `SELECT 'b.parquet.gz' AS TARGET, 'UPLOADED' AS STATUS`,
			want:  "b.parquet.gz",
		},
		{
			name:    "failed status",
			query:   `SELECT 'a.parquet.gz' AS target, 'ERROR' AS status, 'access denied' AS message`,
			wantErr: "put status ERROR: access denied",
		},
		{
			name:    "no target column",
			query:   `SELECT 'a' AS source`,
			wantErr: "no target column",
		},
		{
			name:    "no rows",
			query:   `SELECT 'a' AS target WHERE 1 = 0`,
			wantErr: "no rows",
		},
		{
			name:    "empty target",
			query:   `SELECT NULL AS target, 'UPLOADED' AS status`,
			wantErr: "empty target",
		},
	}

	db := openSQLite(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := db.Query(tt.query)
			require.NoError(t, err)
			defer rows.Close()

			got, err := readPutResult(rows)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
