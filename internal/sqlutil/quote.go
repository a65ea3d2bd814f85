// Package sqlutil provides SQL utility functions.
package sqlutil

import "strings"

// QuoteBacktick quotes a SQL identifier with backticks (MySQL) and escapes
// any backticks within the identifier.
func QuoteBacktick(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// QuoteDouble quotes a SQL identifier with double quotes (PostgreSQL) and
// escapes any double quotes within the identifier.
func QuoteDouble(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// QuoteBracket quotes a SQL identifier with square brackets (SQL Server)
// and escapes any closing brackets within the identifier.
func QuoteBracket(name string) string {
	escaped := strings.ReplaceAll(name, "]", "]]")
	return "[" + escaped + "]"
}

// QuoteString quotes a SQL string literal with single quotes and escapes
// any single quotes within the string by doubling them.
func QuoteString(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	return "'" + escaped + "'"
}
