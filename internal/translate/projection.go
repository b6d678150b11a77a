package translate

import (
	"fmt"

	"github.com/cuderbk/adw-elt-pipeline/internal/ddl"
)

// ProjectionKind says how a column is read at the source.
type ProjectionKind int

const (
	// Passthrough selects the column unchanged.
	Passthrough ProjectionKind = iota
	// HexEncode converts binary data to a 0x-prefixed hexadecimal string.
	HexEncode
	// WideCast casts structured or legacy text types to NVARCHAR(MAX).
	WideCast
)

func (k ProjectionKind) String() string {
	switch k {
	case HexEncode:
		return "hex"
	case WideCast:
		return "cast"
	default:
		return "passthrough"
	}
}

var hexEncodedTypes = map[string]bool{
	"image":     true,
	"binary":    true,
	"varbinary": true,
}

var wideCastTypes = map[string]bool{
	"xml":         true,
	"sql_variant": true,
	"hierarchyid": true,
	"geometry":    true,
	"geography":   true,
	"text":        true,
	"ntext":       true,
}

// Classify reports how a column of the given SQL Server type is read at the source.
func Classify(sourceType string) ProjectionKind {
	t := normalizeType(sourceType)
	switch {
	case hexEncodedTypes[t]:
		return HexEncode
	case wideCastTypes[t]:
		return WideCast
	default:
		return Passthrough
	}
}

// ProjectColumn returns the SELECT-list expression that reads one column in a
// form the Parquet writer and Snowflake can both accept. Converted columns are
// aliased back to their original name.
//
//	binary family:    CONVERT(VARCHAR(MAX), [c], 1) AS [c]
//	structured types: CAST([c] AS NVARCHAR(MAX)) AS [c]
//	everything else:  [c]
func ProjectColumn(columnName, sourceType string) string {
	col := ddl.QuoteBracket(columnName)
	switch Classify(sourceType) {
	case HexEncode:
		return fmt.Sprintf("CONVERT(VARCHAR(MAX), %s, 1) AS %s", col, col)
	case WideCast:
		return fmt.Sprintf("CAST(%s AS NVARCHAR(MAX)) AS %s", col, col)
	default:
		return col
	}
}
