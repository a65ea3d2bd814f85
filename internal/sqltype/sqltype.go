// Package sqltype provides a shared mapping from SQL data types to scalar
// kind categories, plus literal coercion for request parameters bound
// against column metadata.
package sqltype

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"dbgateway/internal/qerr"
)

// ScalarKind represents the category of scalar value a SQL column holds.
type ScalarKind int

const (
	// KindString is the default kind for text, dates, and unknown SQL types.
	KindString ScalarKind = iota
	// KindInt represents integer numeric types.
	KindInt
	// KindFloat represents floating-point and fixed-point numeric types.
	KindFloat
	// KindBoolean represents boolean types.
	KindBoolean
	// KindUUID represents uniqueidentifier/uuid types.
	KindUUID
	// KindJSON represents JSON data types.
	KindJSON
)

// MapKind converts a SQL data type string to its scalar kind category.
// The input is case-insensitive. Size specifiers like (10,2) or (255) are
// stripped before matching. Covers the MySQL, PostgreSQL, and SQL Server
// type names that appear in entity configs.
func MapKind(sqlType string) ScalarKind {
	if idx := strings.Index(sqlType, "("); idx != -1 {
		sqlType = sqlType[:idx]
	}
	switch strings.ToUpper(strings.TrimSpace(sqlType)) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT",
		"INTEGER", "BIGINT", "SERIAL", "BIGSERIAL", "INT2", "INT4", "INT8":
		return KindInt
	case "FLOAT", "DOUBLE", "REAL", "DOUBLE PRECISION",
		"DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return KindFloat
	case "BOOL", "BOOLEAN", "BIT":
		return KindBoolean
	case "UUID", "UNIQUEIDENTIFIER":
		return KindUUID
	case "JSON", "JSONB":
		return KindJSON
	default:
		return KindString
	}
}

func (k ScalarKind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Boolean"
	case KindUUID:
		return "UUID"
	case KindJSON:
		return "JSON"
	default:
		return "String"
	}
}

// CoerceLiteral converts a raw request value to the Go value matching the
// column's declared system type. A mismatch is a request error naming the
// value and target column so the client can self-correct.
func CoerceLiteral(raw interface{}, columnName, systemType string) (interface{}, error) {
	kind := MapKind(systemType)
	switch kind {
	case KindInt:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		case json.Number:
			if parsed, err := v.Int64(); err == nil {
				return parsed, nil
			}
		case string:
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				return parsed, nil
			}
		}
	case KindFloat:
		switch v := raw.(type) {
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case float64:
			return v, nil
		case json.Number:
			if parsed, err := v.Float64(); err == nil {
				return parsed, nil
			}
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed, nil
			}
		}
	case KindBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			if parsed, err := strconv.ParseBool(v); err == nil {
				return parsed, nil
			}
		}
	case KindUUID:
		if s, ok := raw.(string); ok {
			if parsed, err := uuid.Parse(s); err == nil {
				return parsed.String(), nil
			}
		}
	default:
		switch v := raw.(type) {
		case string:
			return v, nil
		case json.Number:
			return v.String(), nil
		case fmt.Stringer:
			return v.String(), nil
		}
	}
	return nil, qerr.BadRequest("value %v cannot be bound to column %s of type %s", raw, columnName, systemType)
}
