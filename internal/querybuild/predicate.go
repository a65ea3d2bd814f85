package querybuild

import (
	"fmt"

	"dbgateway/internal/cursor"
)

// Operator is a binary comparison operator in a predicate.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
)

// SQL returns the SQL token for the operator.
func (o Operator) SQL() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "<>"
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	default:
		panic(fmt.Sprintf("unknown operator %d", int(o)))
	}
}

// Column identifies a SQL-qualifiable column reference.
type Column struct {
	Schema     string
	TableAlias string // alias when aliased, table name otherwise
	Name       string
}

// LabelledColumn is a Column plus the JSON key it projects as. The label
// defaults to the column name but may differ for renamed exposed fields.
type LabelledColumn struct {
	Column
	Label string
}

// Operand is one side of a predicate: either a column reference or a
// named parameter placeholder.
type Operand struct {
	Column *Column
	Param  string
}

// ColumnOperand wraps a column reference as a predicate operand.
func ColumnOperand(c Column) Operand {
	return Operand{Column: &c}
}

// ParamOperand wraps a parameter placeholder name as a predicate operand.
func ParamOperand(name string) Operand {
	return Operand{Param: name}
}

// Predicate is a single comparison. Predicates collected into a list
// compose with implicit AND.
type Predicate struct {
	Left  Operand
	Op    Operator
	Right Operand
}

// CreateJoinPredicates zips two equal-length column name lists into
// per-pair equality predicates. Mismatched lengths are a caller
// programming error, not a request-time condition, so it panics.
func CreateJoinPredicates(leftAlias string, leftColumns []string, rightAlias string, rightColumns []string) []Predicate {
	if len(leftColumns) != len(rightColumns) {
		panic(fmt.Sprintf("join predicate column count mismatch: %d left vs %d right", len(leftColumns), len(rightColumns)))
	}
	predicates := make([]Predicate, len(leftColumns))
	for i := range leftColumns {
		predicates[i] = Predicate{
			Left:  ColumnOperand(Column{TableAlias: leftAlias, Name: leftColumns[i]}),
			Op:    OpEqual,
			Right: ColumnOperand(Column{TableAlias: rightAlias, Name: rightColumns[i]}),
		}
	}
	return predicates
}

// KeysetColumn pairs a cursor column with the parameter holding its
// decoded boundary value and the direction the column sorts in. An empty
// direction means ascending.
type KeysetColumn struct {
	Column    Column
	Param     string
	Direction cursor.Direction
}

// KeysetPredicate is the lexicographic tuple comparison used for cursor
// seeks: rows strictly after the boundary in the query's ordering, where
// "after" per column means > for ascending and < for descending.
// Renderers emit the native row-constructor comparison when every column
// ascends and the dialect supports it, and the expanded OR-chain
// equivalent otherwise.
type KeysetPredicate struct {
	Columns []KeysetColumn
}

// Ascending reports whether every keyset column sorts ascending.
func (k *KeysetPredicate) Ascending() bool {
	for _, kc := range k.Columns {
		if kc.Direction == cursor.Descending {
			return false
		}
	}
	return true
}
