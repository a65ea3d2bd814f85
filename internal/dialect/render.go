package dialect

import (
	"strings"

	"dbgateway/internal/cursor"
	"dbgateway/internal/querybuild"
)

// sqlFormat bundles the per-dialect rules shared rendering code needs:
// identifier quoting and parameter placeholder emission. The param
// function may record emission order for positional-placeholder engines.
type sqlFormat struct {
	quote func(string) string
	param func(name string) string
}

func (f sqlFormat) column(col querybuild.Column) string {
	if col.TableAlias == "" {
		return f.quote(col.Name)
	}
	return f.quote(col.TableAlias) + "." + f.quote(col.Name)
}

func (f sqlFormat) tableSource(schema, table string) string {
	if schema == "" {
		return f.quote(table)
	}
	return f.quote(schema) + "." + f.quote(table)
}

func (f sqlFormat) operand(op querybuild.Operand) string {
	if op.Column != nil {
		return f.column(*op.Column)
	}
	return f.param(op.Param)
}

func (f sqlFormat) predicate(p querybuild.Predicate) string {
	return f.operand(p.Left) + " " + p.Op.SQL() + " " + f.operand(p.Right)
}

func (f sqlFormat) conjunction(preds []querybuild.Predicate) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = f.predicate(p)
	}
	return strings.Join(parts, " AND ")
}

// keyset renders the cursor seek. The native row-constructor comparison
// (c1, c2) > (v1, v2) is only equivalent to the lexicographic seek when
// every column sorts ascending; mixed-direction orderings take the
// expanded OR-chain with a per-column comparison operator.
func (f sqlFormat) keyset(ks *querybuild.KeysetPredicate) string {
	if ks.Ascending() {
		return f.keysetRow(ks)
	}
	return f.keysetExpanded(ks)
}

func (f sqlFormat) keysetRow(ks *querybuild.KeysetPredicate) string {
	columns := make([]string, len(ks.Columns))
	values := make([]string, len(ks.Columns))
	for i, kc := range ks.Columns {
		columns[i] = f.column(kc.Column)
		values[i] = f.param(kc.Param)
	}
	return "(" + strings.Join(columns, ", ") + ") > (" + strings.Join(values, ", ") + ")"
}

// keysetExpanded renders the seek as the OR-chain expansion, used by
// engines without row-constructor comparison and by mixed-direction
// orderings on every engine:
// (c1 OP1 v1) OR (c1 = v1 AND c2 OP2 v2) OR ...
// where OPi is > for an ascending column and < for a descending one.
func (f sqlFormat) keysetExpanded(ks *querybuild.KeysetPredicate) string {
	terms := make([]string, len(ks.Columns))
	for i := range ks.Columns {
		conditions := make([]string, 0, i+1)
		for j := 0; j < i; j++ {
			conditions = append(conditions, f.column(ks.Columns[j].Column)+" = "+f.param(ks.Columns[j].Param))
		}
		conditions = append(conditions, f.column(ks.Columns[i].Column)+" "+keysetOperator(ks.Columns[i])+" "+f.param(ks.Columns[i].Param))
		terms[i] = "(" + strings.Join(conditions, " AND ") + ")"
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}

func keysetOperator(kc querybuild.KeysetColumn) string {
	if kc.Direction == cursor.Descending {
		return "<"
	}
	return ">"
}

func (f sqlFormat) orderBy(q *querybuild.QueryStructure) string {
	parts := make([]string, len(q.OrderBy))
	for i, ob := range q.OrderBy {
		parts[i] = f.quote(q.TableAlias) + "." + f.quote(ob.Column) + " " + string(ob.Direction)
	}
	return strings.Join(parts, ", ")
}

// wherePredicates collects the explicit predicates; the caller appends the
// keyset seek with its dialect's tuple rendering.
func hasWhere(q *querybuild.QueryStructure) bool {
	return len(q.Predicates) > 0 || (q.Pagination != nil && q.Pagination.Keyset != nil)
}

func copyParams(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for name, value := range src {
		dst[name] = value
	}
	return dst
}
