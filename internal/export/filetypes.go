package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	mssql "github.com/microsoft/go-mssqldb"
)

// timestampNTZ is a microsecond timestamp without a zone, written to Parquet
// with isAdjustedToUTC=false so Snowflake loads it as TIMESTAMP_NTZ.
var timestampNTZ = &arrow.TimestampType{Unit: arrow.Microsecond}

// timeOfDayLayout renders SQL Server TIME values, which the driver returns as
// a time.Time on 0001-01-01.
const timeOfDayLayout = "15:04:05.999999999"

// column is one output column of the row set.
type column struct {
	name   string
	dbType string // driver type name, upper-cased without length, e.g. "NVARCHAR"
	typ    arrow.DataType
}

// fileType returns the Arrow type a driver column type is written as. This is
// the file's own type system and is independent of the Snowflake column types.
func fileType(dbType string) arrow.DataType {
	switch dbType {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT":
		return arrow.PrimitiveTypes.Int64
	case "BIT", "BOOL", "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean
	case "FLOAT", "REAL", "DOUBLE":
		return arrow.PrimitiveTypes.Float64
	case "DATE":
		return arrow.FixedWidthTypes.Date32
	case "DATETIME", "DATETIME2", "SMALLDATETIME", "DATETIMEOFFSET":
		return timestampNTZ
	default:
		// DECIMAL, NUMERIC and MONEY stay exact as strings; Snowflake casts
		// them on load.
		return arrow.BinaryTypes.String
	}
}

// normalizeDBType upper-cases a driver type name and strips any length or
// precision suffix: "nvarchar(50)" → "NVARCHAR".
func normalizeDBType(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return name
}

// appendValue appends one scanned driver value to the column's builder.
func appendValue(b array.Builder, col column, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch bldr := b.(type) {
	case *array.Int64Builder:
		n, err := toInt64(v)
		if err != nil {
			return fmt.Errorf("column %q: %w", col.name, err)
		}
		bldr.Append(n)
	case *array.BooleanBuilder:
		t, err := toBool(v)
		if err != nil {
			return fmt.Errorf("column %q: %w", col.name, err)
		}
		bldr.Append(t)
	case *array.Float64Builder:
		f, err := toFloat64(v)
		if err != nil {
			return fmt.Errorf("column %q: %w", col.name, err)
		}
		bldr.Append(f)
	case *array.Date32Builder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("column %q: cannot write %T as date", col.name, v)
		}
		bldr.Append(arrow.Date32FromTime(wallClock(t)))
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("column %q: cannot write %T as timestamp", col.name, v)
		}
		bldr.Append(arrow.Timestamp(wallClock(t).UnixMicro()))
	case *array.StringBuilder:
		bldr.Append(toString(col.dbType, v))
	default:
		return fmt.Errorf("column %q: unsupported builder %T", col.name, b)
	}
	return nil
}

// wallClock re-reads t's local date and time as UTC. DATETIMEOFFSET values
// keep the source wall clock and drop the offset, matching TIMESTAMP_NTZ.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// isBinaryType reports driver types whose bytes are not text. Their values
// are written as 0x-prefixed upper-case hex, the CONVERT(..., 1) format.
func isBinaryType(dbType string) bool {
	switch dbType {
	case "BINARY", "VARBINARY", "IMAGE", "TIMESTAMP", "ROWVERSION", "BLOB":
		return true
	}
	return false
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("cannot write %T as integer", v)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case []byte:
		return strconv.ParseFloat(string(n), 64)
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("cannot write %T as float", v)
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case int64:
		return b != 0, nil
	case []byte:
		return strconv.ParseBool(string(b))
	case string:
		return strconv.ParseBool(b)
	}
	return false, fmt.Errorf("cannot write %T as boolean", v)
}

func toString(dbType string, v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		if dbType == "UNIQUEIDENTIFIER" && len(s) == 16 {
			var u mssql.UniqueIdentifier
			if err := u.Scan(s); err == nil {
				return u.String()
			}
		}
		if isBinaryType(dbType) || !utf8.Valid(s) {
			return fmt.Sprintf("0x%X", s)
		}
		return string(s)
	case time.Time:
		if dbType == "TIME" {
			return s.Format(timeOfDayLayout)
		}
		return s.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
