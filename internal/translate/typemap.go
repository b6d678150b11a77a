// Package translate turns SQL Server column metadata into Snowflake DDL and
// the SQL Server projection query that exports matching values.
package translate

import "strings"

// Snowflake column types produced by MapType.
const (
	TypeNumber       = "NUMBER"
	TypeBoolean      = "BOOLEAN"
	TypeVarchar      = "VARCHAR"
	TypeDate         = "DATE"
	TypeTime         = "TIME"
	TypeTimestampNTZ = "TIMESTAMP_NTZ"
	TypeFloat        = "FLOAT"
)

// FallbackType is returned for any source type not in the mapping.
const FallbackType = TypeVarchar

// typeMapping maps lower-cased SQL Server DATA_TYPE names to Snowflake types.
// Precision and scale are not carried over.
var typeMapping = map[string]string{
	// exact numerics
	"int":        TypeNumber,
	"bigint":     TypeNumber,
	"smallint":   TypeNumber,
	"tinyint":    TypeNumber,
	"decimal":    TypeNumber,
	"numeric":    TypeNumber,
	"money":      TypeNumber,
	"smallmoney": TypeNumber,

	"bit": TypeBoolean,

	// character data
	"varchar":  TypeVarchar,
	"nvarchar": TypeVarchar,
	"char":     TypeVarchar,
	"nchar":    TypeVarchar,
	"text":     TypeVarchar,
	"ntext":    TypeVarchar,

	// temporal
	"date":           TypeDate,
	"time":           TypeTime,
	"datetime":       TypeTimestampNTZ,
	"datetime2":      TypeTimestampNTZ,
	"smalldatetime":  TypeTimestampNTZ,
	"datetimeoffset": TypeTimestampNTZ,

	// approximate numerics
	"float": TypeFloat,
	"real":  TypeFloat,

	// exported as text by the projection
	"uniqueidentifier": TypeVarchar,
	"xml":              TypeVarchar,
	"sql_variant":      TypeVarchar,
	"hierarchyid":      TypeVarchar,
	"geometry":         TypeVarchar,
	"geography":        TypeVarchar,
	"image":            TypeVarchar,
	"binary":           TypeVarchar,
	"varbinary":        TypeVarchar,
}

// MapType returns the Snowflake column type for a SQL Server type name.
// Matching is case-insensitive; unknown types map to FallbackType.
func MapType(sourceType string) string {
	if t, ok := typeMapping[normalizeType(sourceType)]; ok {
		return t
	}
	return FallbackType
}

func normalizeType(sourceType string) string {
	return strings.ToLower(strings.TrimSpace(sourceType))
}
