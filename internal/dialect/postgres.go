package dialect

import (
	"strconv"
	"strings"

	"dbgateway/internal/querybuild"
	"dbgateway/internal/sqlutil"
)

// Postgres renders query structures as PostgreSQL SQL. Nested results are
// shaped with jsonb aggregation over LEFT OUTER JOIN LATERAL subqueries.
type Postgres struct{}

func (Postgres) Name() string { return "postgresql" }

func (Postgres) QuoteIdentifier(name string) string { return sqlutil.QuoteDouble(name) }

func (p Postgres) Render(q *querybuild.QueryStructure) (*Statement, error) {
	f := sqlFormat{
		quote: sqlutil.QuoteDouble,
		param: func(name string) string { return "@" + name },
	}
	var sb strings.Builder
	p.renderAggregated(&sb, f, q)
	return &Statement{SQL: sb.String(), Params: copyParams(q.Parameters())}, nil
}

// renderAggregated wraps the row query in JSON aggregation: list queries
// collapse to a jsonb array with an empty-array fallback so callers never
// see SQL NULL for an empty list; point queries produce a single object.
func (p Postgres) renderAggregated(sb *strings.Builder, f sqlFormat, q *querybuild.QueryStructure) {
	wrap := f.quote(q.TableAlias + "_agg")
	if q.IsListQuery {
		sb.WriteString("SELECT COALESCE(jsonb_agg(to_jsonb(" + wrap + ")), '[]'::jsonb) AS " + f.quote("data") + " FROM (")
	} else {
		sb.WriteString("SELECT to_jsonb(" + wrap + ") AS " + f.quote("data") + " FROM (")
	}
	p.renderSelect(sb, f, q)
	sb.WriteString(") AS " + wrap)
}

func (p Postgres) renderSelect(sb *strings.Builder, f sqlFormat, q *querybuild.QueryStructure) {
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
		sb.WriteString(" LEFT OUTER JOIN LATERAL (")
		p.renderAggregated(sb, f, child)
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
