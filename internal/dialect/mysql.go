package dialect

import (
	"strconv"
	"strings"

	"dbgateway/internal/querybuild"
	"dbgateway/internal/sqlutil"
)

// MySQL renders query structures as MySQL 8 SQL. Nested results are shaped
// with JSON_ARRAYAGG/JSON_OBJECT over LEFT JOIN LATERAL subqueries. The
// driver only supports positional placeholders, so parameters are emitted
// as ? and their names recorded in emission order.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdentifier(name string) string { return sqlutil.QuoteBacktick(name) }

func (m MySQL) Render(q *querybuild.QueryStructure) (*Statement, error) {
	stmt := &Statement{Params: copyParams(q.Parameters())}
	f := sqlFormat{
		quote: sqlutil.QuoteBacktick,
		param: func(name string) string {
			stmt.ParamOrder = append(stmt.ParamOrder, name)
			return "?"
		},
	}
	var sb strings.Builder
	m.renderAggregated(&sb, f, q)
	stmt.SQL = sb.String()
	return stmt, nil
}

func (m MySQL) renderAggregated(sb *strings.Builder, f sqlFormat, q *querybuild.QueryStructure) {
	wrap := q.TableAlias + "_agg"
	object := m.jsonObject(f, wrap, q)
	if q.IsListQuery {
		// Item order, and therefore endCursor, relies on JSON_ARRAYAGG
		// consuming the derived table in its ORDER BY order. MySQL leaves
		// aggregate input order formally unspecified, but 8.x preserves it
		// for an ordered derived table with a LIMIT, which every rendered
		// subquery has; MySQL offers no ORDER BY clause inside JSON_ARRAYAGG
		// to pin it down.
		sb.WriteString("SELECT COALESCE(JSON_ARRAYAGG(" + object + "), JSON_ARRAY()) AS " + f.quote("data") + " FROM (")
	} else {
		sb.WriteString("SELECT " + object + " AS " + f.quote("data") + " FROM (")
	}
	m.renderSelect(sb, f, q)
	sb.WriteString(") AS " + f.quote(wrap))
}

// jsonObject builds the JSON_OBJECT projection over the wrapped subquery's
// labelled columns.
func (MySQL) jsonObject(f sqlFormat, wrap string, q *querybuild.QueryStructure) string {
	pairs := make([]string, 0, len(q.Columns)*2)
	for _, col := range q.Columns {
		pairs = append(pairs, sqlutil.QuoteString(col.Label), f.quote(wrap)+"."+f.quote(col.Label))
	}
	return "JSON_OBJECT(" + strings.Join(pairs, ", ") + ")"
}

func (m MySQL) renderSelect(sb *strings.Builder, f sqlFormat, q *querybuild.QueryStructure) {
	sb.WriteString("SELECT ")
	for i, col := range q.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.column(col.Column) + " AS " + f.quote(col.Label))
	}
	sb.WriteString(" FROM " + f.tableSource(q.SchemaName, q.TableName) + " AS " + f.quote(q.TableAlias))

	for _, join := range q.Joins {
		sb.WriteString(" INNER JOIN " + f.tableSource(join.SchemaName, join.TableName) + " AS " + f.quote(join.TableAlias))
		sb.WriteString(" ON " + f.conjunction(join.Predicates))
	}
	for _, label := range q.SubqueryOrder {
		child := q.Subqueries[label]
		sb.WriteString(" LEFT JOIN LATERAL (")
		m.renderAggregated(sb, f, child)
		sb.WriteString(") AS " + f.quote(child.SubqueryAlias) + " ON TRUE")
	}

	if hasWhere(q) {
		sb.WriteString(" WHERE ")
		clauses := make([]string, 0, 2)
		if len(q.Predicates) > 0 {
			clauses = append(clauses, f.conjunction(q.Predicates))
		}
		if q.Pagination != nil && q.Pagination.Keyset != nil {
			clauses = append(clauses, f.keyset(q.Pagination.Keyset))
		}
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	sb.WriteString(" ORDER BY " + f.orderBy(q))
	sb.WriteString(" LIMIT " + strconv.FormatUint(q.Limit(), 10))
}
