package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

func newTestTranslator(t *testing.T) *Translator {
	t.Helper()
	tr, err := NewTranslator("SCH", DefaultTablePrefix)
	require.NoError(t, err)
	return tr
}

func TestTranslate_RoundTrip(t *testing.T) {
	tr := newTestTranslator(t)
	table := domain.TableIdentifier{Schema: "dbo", Name: "People"}
	cols := []domain.ColumnMetadata{
		{Name: "id", SourceType: "int"},
		{Name: "name", SourceType: "nvarchar"},
		{Name: "photo", SourceType: "varbinary"},
	}

	got, err := tr.Translate(table, cols)
	require.NoError(t, err)

	assert.Equal(t, `CREATE OR REPLACE TABLE SCH."STG_ADW_People" ("id" NUMBER, "name" VARCHAR, "photo" VARCHAR);`, got.DDL)
	assert.Equal(t, "SELECT [id], [name], CONVERT(VARCHAR(MAX), [photo], 1) AS [photo] FROM [dbo].[People]", got.Query)
	assert.Equal(t, "STG_ADW_People", got.TargetTable)
	assert.Equal(t, 3, got.Columns)
	assert.Equal(t, table, got.Table)
}

func TestTranslate_Customers(t *testing.T) {
	tr := newTestTranslator(t)
	got, err := tr.Translate(
		domain.TableIdentifier{Schema: "dbo", Name: "Customers"},
		[]domain.ColumnMetadata{
			{Name: "CustomerID", SourceType: "int"},
			{Name: "Name", SourceType: "nvarchar"},
			{Name: "Photo", SourceType: "varbinary"},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, `CREATE OR REPLACE TABLE SCH."STG_ADW_Customers" ("CustomerID" NUMBER, "Name" VARCHAR, "Photo" VARCHAR);`, got.DDL)
}

func TestTranslate_Idempotent(t *testing.T) {
	tr := newTestTranslator(t)
	table := domain.TableIdentifier{Schema: "Sales", Name: "Orders"}
	cols := []domain.ColumnMetadata{
		{Name: "OrderID", SourceType: "int"},
		{Name: "OrderDate", SourceType: "datetime2"},
		{Name: "Notes", SourceType: "xml"},
	}

	first, err := tr.Translate(table, cols)
	require.NoError(t, err)
	second, err := tr.Translate(table, cols)
	require.NoError(t, err)

	assert.Equal(t, first.DDL, second.DDL)
	assert.Equal(t, first.Query, second.Query)
}

func TestTranslate_ColumnOrderPreserved(t *testing.T) {
	tr := newTestTranslator(t)
	cols := []domain.ColumnMetadata{
		{Name: "z", SourceType: "bit"},
		{Name: "a", SourceType: "xml"},
		{Name: "m", SourceType: "date"},
	}
	got, err := tr.Translate(domain.TableIdentifier{Schema: "dbo", Name: "T"}, cols)
	require.NoError(t, err)

	assert.Equal(t, `CREATE OR REPLACE TABLE SCH."STG_ADW_T" ("z" BOOLEAN, "a" VARCHAR, "m" DATE);`, got.DDL)
	assert.Equal(t, "SELECT [z], CAST([a] AS NVARCHAR(MAX)) AS [a], [m] FROM [dbo].[T]", got.Query)
}

func TestTranslate_CustomPrefix(t *testing.T) {
	tr, err := NewTranslator("RAW", "")
	require.NoError(t, err)
	got, err := tr.Translate(domain.TableIdentifier{Schema: "dbo", Name: "T"}, []domain.ColumnMetadata{{Name: "a", SourceType: "int"}})
	require.NoError(t, err)
	assert.Equal(t, `CREATE OR REPLACE TABLE RAW."T" ("a" NUMBER);`, got.DDL)
}

func TestTranslate_NoColumns(t *testing.T) {
	tr := newTestTranslator(t)
	_, err := tr.Translate(domain.TableIdentifier{Schema: "dbo", Name: "Empty"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no columns")
}

func TestNewTranslator_InvalidSchema(t *testing.T) {
	_, err := NewTranslator("bad schema", DefaultTablePrefix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid target schema")
}
