package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrReplaceTable(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		table   string
		columns []ColumnDef
		want    string
		wantErr string
	}{
		{
			name:    "single_column",
			schema:  "SCH",
			table:   "STG_ADW_Region",
			columns: []ColumnDef{{Name: "RegionID", Type: "NUMBER"}},
			want:    `CREATE OR REPLACE TABLE SCH."STG_ADW_Region" ("RegionID" NUMBER);`,
		},
		{
			name:   "multiple_columns",
			schema: "SCH",
			table:  "STG_ADW_Customers",
			columns: []ColumnDef{
				{Name: "CustomerID", Type: "NUMBER"},
				{Name: "Name", Type: "VARCHAR"},
				{Name: "Photo", Type: "VARCHAR"},
			},
			want: `CREATE OR REPLACE TABLE SCH."STG_ADW_Customers" ("CustomerID" NUMBER, "Name" VARCHAR, "Photo" VARCHAR);`,
		},
		{
			name:    "quoted_names",
			schema:  "SCH",
			table:   `STG_ADW_Odd"Name`,
			columns: []ColumnDef{{Name: "Unit Price", Type: "NUMBER"}},
			want:    `CREATE OR REPLACE TABLE SCH."STG_ADW_Odd""Name" ("Unit Price" NUMBER);`,
		},
		{
			name:    "invalid_schema",
			schema:  "my-schema",
			table:   "T",
			columns: []ColumnDef{{Name: "a", Type: "NUMBER"}},
			wantErr: "invalid schema name",
		},
		{
			name:    "empty_table",
			schema:  "SCH",
			columns: []ColumnDef{{Name: "a", Type: "NUMBER"}},
			wantErr: "invalid table name",
		},
		{
			name:    "no_columns",
			schema:  "SCH",
			table:   "T",
			wantErr: "at least one column",
		},
		{
			name:    "bad_type",
			schema:  "SCH",
			table:   "T",
			columns: []ColumnDef{{Name: "a", Type: "NUMBER; DROP TABLE x"}},
			wantErr: "invalid column type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CreateOrReplaceTable(tt.schema, tt.table, tt.columns)
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

func TestTableRef(t *testing.T) {
	got, err := TableRef("ADW", "SCH", "STG_ADW_Customers")
	require.NoError(t, err)
	assert.Equal(t, `ADW.SCH."STG_ADW_Customers"`, got)

	_, err = TableRef("", "SCH", "T")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database name")

	_, err = TableRef("ADW", "SCH", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestStageRef(t *testing.T) {
	got, err := StageRef("ADW", "SCH", "staging_stage")
	require.NoError(t, err)
	assert.Equal(t, "@ADW.SCH.staging_stage", got)

	_, err = StageRef("ADW", "SCH", "bad stage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid stage name")
}

func TestPut(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		stage   string
		want    string
		wantErr string
	}{
		{
			name:  "absolute_path",
			path:  "/data/parquet_files/dbo_Customers.parquet",
			stage: "@ADW.SCH.staging_stage",
			want:  "PUT 'file:///data/parquet_files/dbo_Customers.parquet' @ADW.SCH.staging_stage/ AUTO_COMPRESS=TRUE;",
		},
		{
			name:  "quote_in_path",
			path:  "/data/o'brien/dbo_T.parquet",
			stage: "@ADW.SCH.staging_stage",
			want:  "PUT 'file:///data/o''brien/dbo_T.parquet' @ADW.SCH.staging_stage/ AUTO_COMPRESS=TRUE;",
		},
		{
			name:    "empty_path",
			stage:   "@ADW.SCH.staging_stage",
			wantErr: "local path is required",
		},
		{
			name:    "stage_without_at",
			path:    "/tmp/x.parquet",
			stage:   "ADW.SCH.staging_stage",
			wantErr: "must start with @",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Put(tt.path, tt.stage)
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

func TestCopyInto(t *testing.T) {
	tests := []struct {
		name     string
		tableRef string
		location string
		want     string
		wantErr  string
	}{
		{
			name:     "plain_location",
			tableRef: `ADW.SCH."STG_ADW_Customers"`,
			location: "@ADW.SCH.staging_stage/dbo_Customers.parquet.gz",
			want: `COPY INTO ADW.SCH."STG_ADW_Customers" FROM @ADW.SCH.staging_stage/dbo_Customers.parquet.gz ` +
				`FILE_FORMAT = (TYPE = PARQUET) MATCH_BY_COLUMN_NAME = CASE_INSENSITIVE;`,
		},
		{
			name:     "location_with_space",
			tableRef: `ADW.SCH."STG_ADW_Order Details"`,
			location: "@ADW.SCH.staging_stage/dbo_Order Details.parquet.gz",
			want: `COPY INTO ADW.SCH."STG_ADW_Order Details" FROM '@ADW.SCH.staging_stage/dbo_Order Details.parquet.gz' ` +
				`FILE_FORMAT = (TYPE = PARQUET) MATCH_BY_COLUMN_NAME = CASE_INSENSITIVE;`,
		},
		{
			name:     "missing_table",
			location: "@s/f",
			wantErr:  "table reference is required",
		},
		{
			name:     "location_without_at",
			tableRef: "T",
			location: "s/f",
			wantErr:  "must start with @",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CopyInto(tt.tableRef, tt.location)
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

func TestSelect(t *testing.T) {
	got, err := Select("dbo", "Customers", []string{"[id]", "[name]"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT [id], [name] FROM [dbo].[Customers]", got)

	got, err = Select("Sales", "Order]Lines", []string{"[x]"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT [x] FROM [Sales].[Order]]Lines]", got)

	_, err = Select("dbo", "T", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one select expression")
}
