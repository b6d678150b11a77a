package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRe allows alphanumeric, underscores and dollar signs, starting with
// a letter or underscore. Used for configuration-supplied names that are
// emitted unquoted (database, schema, stage).
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]*$`)

// columnTypeRe matches simple Snowflake type names, optionally with precision/scale parameters.
// Accepted forms:
//
//	WORD                         → NUMBER, VARCHAR, TIMESTAMP_NTZ, etc.
//	WORD(digits)                 → VARCHAR(255)
//	WORD(digits, digits)         → NUMBER(38,2)
//
// Case-insensitive. Rejects anything with semicolons, comments, or quotes.
var columnTypeRe = regexp.MustCompile(`(?i)^[A-Z][A-Z0-9_ ]*(?:\(\s*\d+\s*(?:,\s*\d+\s*)?\))?$`)

// maxIdentifierLen is the maximum length Snowflake accepts for an identifier.
const maxIdentifierLen = 255

// maxColumnTypeLen is the maximum length allowed for a column type string.
const maxColumnTypeLen = 64

// ValidateIdentifier checks that name is safe to emit unquoted:
//   - Non-empty
//   - At most 255 characters
//   - Matches [a-zA-Z_][a-zA-Z0-9_$]*
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("name must be at most %d characters", maxIdentifierLen)
	}
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("name %q must match [a-zA-Z_][a-zA-Z0-9_$]*", name)
	}
	return nil
}

// QuoteIdentifier wraps a Snowflake identifier in double quotes, escaping any
// embedded double-quote characters by doubling them (standard SQL).
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBracket wraps a SQL Server identifier in square brackets, escaping any
// embedded closing bracket by doubling it.
func QuoteBracket(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QuoteLiteral wraps a string value in single quotes, escaping any
// embedded single-quote characters by doubling them (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// ValidateColumnType checks that typeName is a safe Snowflake column type:
//   - Non-empty
//   - At most 64 characters
//   - Matches the allowed type pattern (word, optionally with precision/scale)
func ValidateColumnType(typeName string) error {
	if typeName == "" {
		return fmt.Errorf("column type is required")
	}
	if len(typeName) > maxColumnTypeLen {
		return fmt.Errorf("column type must be at most %d characters", maxColumnTypeLen)
	}
	if strings.ContainsAny(typeName, ";-'\"\\") {
		return fmt.Errorf("column type contains invalid characters")
	}
	if !columnTypeRe.MatchString(typeName) {
		return fmt.Errorf("column type %q is not a recognized type pattern", typeName)
	}
	return nil
}
