// Package cursor encodes and decodes opaque pagination cursors.
// A cursor is a base64-encoded JSON array of column entries capturing the
// keyset boundary of the last row on a page. The encoding is a wire
// contract: clients replay cursors across versions, so field omission for
// empty aliases and the scalar JSON representations must stay stable.
package cursor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"dbgateway/internal/qerr"
)

// Direction is a sort direction for a cursor column.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// PaginationColumn is the unit serialized into a cursor token.
type PaginationColumn struct {
	TableAlias string      `json:"tableAlias,omitempty"`
	ColumnName string      `json:"columnName"`
	Value      interface{} `json:"value"`
	Direction  Direction   `json:"direction"`
}

// OrderColumn names an explicit order-by column and its direction.
type OrderColumn struct {
	Column    string
	Direction Direction
}

// MakeCursor builds an opaque cursor token from one result row. The payload
// contains one entry per order-by column (in order) followed by entries for
// any primary key columns not already covered, giving a stable, fully
// deterministic keyset.
func MakeCursor(row map[string]interface{}, primaryKey []string, orderBy []OrderColumn, tableAlias string) (string, error) {
	columns := make([]PaginationColumn, 0, len(orderBy)+len(primaryKey))
	seen := make(map[string]bool, len(orderBy))

	for _, ob := range orderBy {
		value, ok := row[ob.Column]
		if !ok {
			return "", fmt.Errorf("cursor column %s missing from result row", ob.Column)
		}
		scalar, err := resolveScalar(value, ob.Column)
		if err != nil {
			return "", err
		}
		direction := ob.Direction
		if direction == "" {
			direction = Ascending
		}
		columns = append(columns, PaginationColumn{
			TableAlias: tableAlias,
			ColumnName: ob.Column,
			Value:      scalar,
			Direction:  direction,
		})
		seen[ob.Column] = true
	}
	for _, pk := range primaryKey {
		if seen[pk] {
			continue
		}
		value, ok := row[pk]
		if !ok {
			return "", fmt.Errorf("cursor column %s missing from result row", pk)
		}
		scalar, err := resolveScalar(value, pk)
		if err != nil {
			return "", err
		}
		columns = append(columns, PaginationColumn{
			TableAlias: tableAlias,
			ColumnName: pk,
			Value:      scalar,
			Direction:  Ascending,
		})
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("cursor requires at least one column")
	}

	data, err := json.Marshal(columns)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ParseCursor decodes an opaque cursor token and verifies it covers exactly
// the expected column set. Every decode failure collapses into one uniform
// request error so token internals are never leaked back to clients.
func ParseCursor(token string, expectedColumns []string) ([]PaginationColumn, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, errInvalidToken()
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var columns []PaginationColumn
	if err := decoder.Decode(&columns); err != nil {
		return nil, errInvalidToken()
	}

	byName := make(map[string]bool, len(columns))
	for i := range columns {
		col := &columns[i]
		if col.ColumnName == "" {
			return nil, errInvalidToken()
		}
		if col.Direction != Ascending && col.Direction != Descending {
			return nil, errInvalidToken()
		}
		value, err := normalizeValue(col.Value)
		if err != nil {
			return nil, errInvalidToken()
		}
		col.Value = value
		byName[col.ColumnName] = true
	}
	for _, expected := range expectedColumns {
		if !byName[expected] {
			return nil, errInvalidToken()
		}
	}
	return columns, nil
}

func errInvalidToken() error {
	return qerr.BadRequest("invalid pagination token")
}

// resolveScalar restricts cursor values to the sortable primitive kinds.
// Order-by and primary key columns are constrained to these types at the
// schema level, so anything else is a programming error by the caller.
func resolveScalar(v interface{}, column string) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		// Database JSON decodes all numbers as float64; cursor columns are
		// integer-kinded, so a fractional value here is a schema defect.
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("cursor column %s has non-integer numeric value %v", column, val)
		}
		return int64(val), nil
	case json.Number:
		parsed, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("cursor column %s has non-integer numeric value %v", column, val)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("cursor column %s has unsupported value type %T", column, v)
	}
}

func normalizeValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string, bool:
		return val, nil
	case json.Number:
		parsed, err := val.Int64()
		if err != nil {
			return nil, err
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("unsupported cursor value type %T", v)
	}
}
