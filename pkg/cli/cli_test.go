package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
	"github.com/cuderbk/adw-elt-pipeline/internal/inspect"
	"github.com/cuderbk/adw-elt-pipeline/internal/journal"
)

func TestVersion_JSON(t *testing.T) {
	stdout, _, err := executeCmd(t, "version", "-o", "json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "dev", got["version"])
	assert.Equal(t, "none", got["commit"])
}

func TestVersion_Table(t *testing.T) {
	stdout, _, err := executeCmd(t, "version", "-o", "table")
	require.NoError(t, err)
	assert.Equal(t, "adw-elt version dev (commit: none)\n", stdout)
}

func TestUnsupportedOutputFormat(t *testing.T) {
	_, _, err := executeCmd(t, "version", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestGetOutputFormat_Default(t *testing.T) {
	orig := stdoutIsTerminal
	t.Cleanup(func() { stdoutIsTerminal = orig })

	root := newRootCmd()

	stdoutIsTerminal = func() bool { return true }
	assert.Equal(t, "table", getOutputFormat(root))

	stdoutIsTerminal = func() bool { return false }
	assert.Equal(t, "json", getOutputFormat(root))

	require.NoError(t, root.PersistentFlags().Set("output", "yaml"))
	assert.Equal(t, "yaml", getOutputFormat(root))
}

func TestPrintError(t *testing.T) {
	root := newRootCmd()
	require.NoError(t, root.PersistentFlags().Set("output", "json"))

	var stdout, stderr bytes.Buffer
	printError(root, &stdout, &stderr, errors.New("boom"))
	assert.JSONEq(t, `{"error":"boom"}`, stdout.String())
	assert.Empty(t, stderr.String())

	require.NoError(t, root.PersistentFlags().Set("output", "table"))
	stdout.Reset()
	printError(root, &stdout, &stderr, errors.New("boom"))
	assert.Empty(t, stdout.String())
	assert.Equal(t, "Error: boom\n", stderr.String())
}

func TestMigrate_MissingConfig(t *testing.T) {
	clearConfigEnv(t)

	_, _, err := executeCmd(t, "migrate", "--env-file", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing DATABASE_MSSQL, SERVER_MSSQL")
	assert.Contains(t, err.Error(), "SNOWFLAKE_ACCOUNT")
}

func TestPlan_OnlyNeedsSource(t *testing.T) {
	clearConfigEnv(t)

	_, _, err := executeCmd(t, "plan", "--env-file", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing DATABASE_MSSQL, SERVER_MSSQL")
	assert.NotContains(t, err.Error(), "SNOWFLAKE_ACCOUNT")
}

func TestMigrate_RejectsArgs(t *testing.T) {
	_, _, err := executeCmd(t, "migrate", "extra")
	require.Error(t, err)
}

func writeParquet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbo_Customers.parquet")
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(fmt.Sprintf(
		`COPY (SELECT 1::BIGINT AS "CustomerID", 'Ada' AS "Name" UNION ALL SELECT 2, 'Grace') TO '%s' (FORMAT PARQUET)`, path))
	require.NoError(t, err)
	return path
}

func TestInspect_JSON(t *testing.T) {
	path := writeParquet(t)

	stdout, _, err := executeCmd(t, "inspect", path, "-o", "json")
	require.NoError(t, err)

	var info inspect.FileInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, int64(2), info.Rows)
	require.Len(t, info.Columns, 2)
	assert.Equal(t, "CustomerID", info.Columns[0].Name)
	assert.Equal(t, "Name", info.Columns[1].Name)
}

func TestInspect_Table(t *testing.T) {
	path := writeParquet(t)

	stdout, _, err := executeCmd(t, "inspect", path, "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 rows")
	assert.Contains(t, stdout, "CustomerID")
}

func TestInspect_MissingFile(t *testing.T) {
	_, _, err := executeCmd(t, "inspect", filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
}

func seedJournal(t *testing.T, path string) {
	t.Helper()
	j, err := journal.Open(path)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	started := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, j.StartRun(ctx, "run-1", started, false))

	loaded := &domain.TableOutcome{
		Table:       domain.TableIdentifier{Schema: "dbo", Name: "Customers"},
		State:       domain.TableStateLoaded,
		TargetTable: "STG_ADW_Customers",
		File:        &domain.ExportedFile{Path: "/tmp/dbo_Customers.parquet", Rows: 3},
	}
	failed := &domain.TableOutcome{
		Table: domain.TableIdentifier{Schema: "dbo", Name: "Orders"},
		State: domain.TableStateExportFailed,
		Err:   errors.New("export dbo.Orders (query): timeout"),
	}
	require.NoError(t, j.RecordTable(ctx, "run-1", loaded))
	require.NoError(t, j.RecordTable(ctx, "run-1", failed))
	require.NoError(t, j.FinishRun(ctx, &domain.RunReport{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Outcomes:   []*domain.TableOutcome{loaded, failed},
	}))
}

func TestStatus_JSON(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "journal.sqlite")
	seedJournal(t, path)

	stdout, _, err := executeCmd(t, "status", "--journal", path, "--env-file", "", "-o", "json")
	require.NoError(t, err)

	var run journal.RunSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &run))
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 2, run.Total)
	assert.Equal(t, 1, run.Loaded)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.Tables, 2)
	assert.Equal(t, "loaded", run.Tables[0].State)
	assert.Equal(t, "export_failed", run.Tables[1].State)
}

func TestStatus_Table(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "journal.sqlite")
	seedJournal(t, path)

	stdout, _, err := executeCmd(t, "status", "--journal", path, "--env-file", "", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, stdout, "run run-1")
	assert.Contains(t, stdout, "2 tables, 1 loaded, 1 failed")
	assert.Contains(t, stdout, "Customers")
	assert.Contains(t, stdout, "timeout")
}

func TestStatus_NoRuns(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "journal.sqlite")

	_, _, err := executeCmd(t, "status", "--journal", path, "--env-file", "")
	require.ErrorIs(t, err, journal.ErrNoRuns)
}

func TestStatus_JournalDisabled(t *testing.T) {
	clearConfigEnv(t)

	_, _, err := executeCmd(t, "status", "--journal", "none", "--env-file", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal is disabled")
}

func testReport() *domain.RunReport {
	started := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	return &domain.RunReport{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Outcomes: []*domain.TableOutcome{
			{
				Table:       domain.TableIdentifier{Schema: "dbo", Name: "Customers"},
				State:       domain.TableStateLoaded,
				TargetTable: "STG_ADW_Customers",
				File:        &domain.ExportedFile{Rows: 3, DuplicateColumns: []string{"Name"}},
				Staged:      &domain.StagedObject{Stage: "@DB.SCH.staging_stage", Name: "dbo_Customers.parquet.gz"},
				DDLError:    errors.New("create table for dbo.Customers: denied"),
			},
			{
				Table: domain.TableIdentifier{Schema: "dbo", Name: "Orders"},
				State: domain.TableStateExportFailed,
				Err:   errors.New("export dbo.Orders (query): timeout"),
			},
		},
	}
}

func TestNewReportView(t *testing.T) {
	v := newReportView(testReport())

	assert.Equal(t, "run-1", v.RunID)
	assert.Equal(t, 1, v.Loaded)
	assert.Equal(t, 1, v.Failed)
	assert.Equal(t, 1, v.DDLFailed)
	require.Len(t, v.Tables, 2)

	c := v.Tables[0]
	assert.Equal(t, "loaded", c.State)
	require.NotNil(t, c.Rows)
	assert.Equal(t, int64(3), *c.Rows)
	assert.Equal(t, "@DB.SCH.staging_stage/dbo_Customers.parquet.gz", c.Location)
	assert.Equal(t, []string{"Name"}, c.Warnings)
	assert.Contains(t, c.DDLError, "denied")
	assert.Empty(t, c.Error)

	o := v.Tables[1]
	assert.Nil(t, o.Rows)
	assert.Contains(t, o.Error, "timeout")
}

func TestPrintReportTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReportTable(&buf, newReportView(testReport())))

	out := buf.String()
	assert.Contains(t, out, "SCHEMA")
	assert.Contains(t, out, "STG_ADW_Customers")
	assert.Contains(t, out, "denied")
	assert.Contains(t, out, "run run-1: 2 tables, 1 loaded, 1 failed, 1 DDL errors\n")
}

func TestPlanViews(t *testing.T) {
	report := &domain.RunReport{Outcomes: []*domain.TableOutcome{
		{
			Table:       domain.TableIdentifier{Schema: "dbo", Name: "Customers"},
			State:       domain.TableStatePending,
			TargetTable: "STG_ADW_Customers",
			DDL:         `CREATE OR REPLACE TABLE SCH."STG_ADW_Customers" ("CustomerID" NUMBER);`,
			Query:       "SELECT [CustomerID] FROM [dbo].[Customers]",
		},
		{
			Table: domain.TableIdentifier{Schema: "dbo", Name: "Broken"},
			State: domain.TableStateExportFailed,
			Err:   errors.New("list columns of dbo.Broken: denied"),
		},
	}}

	plans := newPlanViews(report)
	require.Len(t, plans, 2)

	var buf bytes.Buffer
	require.NoError(t, printPlan(&buf, plans))
	out := buf.String()
	assert.Contains(t, out, "-- dbo.Customers\nCREATE OR REPLACE TABLE")
	assert.Contains(t, out, "SELECT [CustomerID] FROM [dbo].[Customers]")
	assert.Contains(t, out, "-- dbo.Broken\n-- error: list columns of dbo.Broken: denied")

	buf.Reset()
	require.NoError(t, printYAML(&buf, plans))
	var decoded []planView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, plans, decoded)
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTable(&buf, []string{"name", "type"}, [][]string{{"id", "BIGINT"}, {"customer_name", "VARCHAR"}}))
	assert.Equal(t, "NAME           TYPE\nid             BIGINT\ncustomer_name  VARCHAR\n", buf.String())
}

func TestPrintTable_NoColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTable(&buf, nil, [][]string{{"a"}}))
	assert.Empty(t, buf.String())
}
