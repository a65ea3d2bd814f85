package dbexec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"dbgateway/internal/dialect"
)

// BindArgs converts a rendered statement's parameter map into the argument
// list the dialect's driver expects. Statements with a ParamOrder carry
// positional placeholders (`?` for MySQL, `$n` for PostgreSQL mutations)
// and bind in that order; PostgreSQL queries use @name placeholders bound
// through pgx named arguments, and go-mssqldb takes one sql.Named value
// per parameter.
func BindArgs(dialectName string, stmt *dialect.Statement) ([]any, error) {
	switch dialectName {
	case "mysql":
		return orderedArgs(stmt)
	case "postgresql", "postgres":
		if len(stmt.ParamOrder) > 0 {
			return orderedArgs(stmt)
		}
		return []any{pgx.NamedArgs(stmt.Params)}, nil
	case "mssql", "sqlserver":
		args := make([]any, 0, len(stmt.Params))
		for _, name := range sortedParamNames(stmt.Params) {
			args = append(args, sql.Named(name, stmt.Params[name]))
		}
		return args, nil
	default:
		return nil, fmt.Errorf("unknown sql dialect %q", dialectName)
	}
}

func orderedArgs(stmt *dialect.Statement) ([]any, error) {
	args := make([]any, 0, len(stmt.ParamOrder))
	for _, name := range stmt.ParamOrder {
		value, ok := stmt.Params[name]
		if !ok {
			return nil, fmt.Errorf("statement references unbound parameter %s", name)
		}
		args = append(args, value)
	}
	return args, nil
}

// QueryJSON runs a query statement and returns the single JSON document it
// produces. Every rendered query projects exactly one JSON column. SQL
// Server streams FOR JSON output as multiple rows of roughly 2KB text
// fragments, so the document is the concatenation of every row; the other
// engines return it in one row. A SQL NULL or an empty row set comes back
// as a nil document for the reshaper to interpret.
func QueryJSON(ctx context.Context, exec QueryExecutor, dialectName string, stmt *dialect.Statement) (json.RawMessage, error) {
	args, err := BindArgs(dialectName, stmt)
	if err != nil {
		return nil, err
	}
	rows, err := exec.QueryContext(ctx, stmt.SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	var doc []byte
	sawValue := false
	for rows.Next() {
		var chunk sql.NullString
		if err := rows.Scan(&chunk); err != nil {
			return nil, fmt.Errorf("scan query result: %w", err)
		}
		if chunk.Valid {
			sawValue = true
			doc = append(doc, chunk.String...)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read query result: %w", err)
	}
	if !sawValue {
		return nil, nil
	}
	return json.RawMessage(doc), nil
}

// QueryRow runs a mutation statement and returns the affected row as a
// column map. When the statement carries a follow-up (MySQL read-back,
// delete pre-reads) the row is taken from whichever statement yields rows
// and the other is executed for effect.
func QueryRow(ctx context.Context, exec QueryExecutor, dialectName string, stmt *dialect.Statement) (map[string]interface{}, error) {
	row, err := queryOneRow(ctx, exec, dialectName, stmt)
	if err != nil {
		return nil, err
	}
	if stmt.FollowUp == nil {
		return row, nil
	}
	followUpRow, err := queryOneRow(ctx, exec, dialectName, stmt.FollowUp)
	if err != nil {
		return nil, err
	}
	if followUpRow != nil {
		return followUpRow, nil
	}
	return row, nil
}

// queryOneRow executes a single statement and scans its first row, if any,
// into a column map. Statements without a result set return nil.
func queryOneRow(ctx context.Context, exec QueryExecutor, dialectName string, stmt *dialect.Statement) (map[string]interface{}, error) {
	args, err := BindArgs(dialectName, stmt)
	if err != nil {
		return nil, err
	}
	rows, err := exec.QueryContext(ctx, stmt.SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("read statement result: %w", err)
		}
		return nil, nil
	}
	values := make([]any, len(columns))
	targets := make([]any, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}
	if err := rows.Scan(targets...); err != nil {
		return nil, fmt.Errorf("scan statement result: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read statement result: %w", err)
	}
	row := make(map[string]interface{}, len(columns))
	for i, name := range columns {
		row[name] = normalizeValue(values[i])
	}
	return row, nil
}

// normalizeValue converts driver-specific scan results into plain Go
// values. MySQL returns text columns as []byte.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func sortedParamNames(params map[string]interface{}) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
