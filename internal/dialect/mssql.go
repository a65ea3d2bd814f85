package dialect

import (
	"strconv"
	"strings"

	"dbgateway/internal/querybuild"
	"dbgateway/internal/sqlutil"
)

// MSSQL renders query structures as SQL Server T-SQL. Nested results are
// shaped with FOR JSON PATH over OUTER APPLY subqueries. SQL Server has no
// row-constructor comparison, so keyset seeks render as the expanded
// OR-chain equivalent.
type MSSQL struct{}

func (MSSQL) Name() string { return "mssql" }

func (MSSQL) QuoteIdentifier(name string) string { return sqlutil.QuoteBracket(name) }

func (m MSSQL) Render(q *querybuild.QueryStructure) (*Statement, error) {
	f := sqlFormat{
		quote: sqlutil.QuoteBracket,
		param: func(name string) string { return "@" + name },
	}
	var sb strings.Builder
	m.renderSelect(&sb, f, q)
	return &Statement{SQL: sb.String(), Params: copyParams(q.Parameters())}, nil
}

func (m MSSQL) renderSelect(sb *strings.Builder, f sqlFormat, q *querybuild.QueryStructure) {
	sb.WriteString("SELECT TOP " + strconv.FormatUint(q.Limit(), 10) + " ")
	for i, col := range q.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		if _, isSubquery := q.Subqueries[col.Label]; isSubquery && col.Name == "data" {
			// Subquery output is JSON text; JSON_QUERY keeps it from being
			// re-escaped as a string by the outer FOR JSON.
			sb.WriteString("JSON_QUERY(" + f.column(col.Column) + ") AS " + f.quote(col.Label))
			continue
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
		sb.WriteString(" OUTER APPLY (")
		m.renderSelect(sb, f, child)
		sb.WriteString(") AS " + f.quote(child.SubqueryAlias) + "(" + f.quote("data") + ")")
	}

	if hasWhere(q) {
		sb.WriteString(" WHERE ")
		clauses := make([]string, 0, 2)
		if len(q.Predicates) > 0 {
			clauses = append(clauses, f.conjunction(q.Predicates))
		}
		if q.Pagination != nil && q.Pagination.Keyset != nil {
			clauses = append(clauses, f.keysetExpanded(q.Pagination.Keyset))
		}
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	sb.WriteString(" ORDER BY " + f.orderBy(q))
	sb.WriteString(" FOR JSON PATH, INCLUDE_NULL_VALUES")
	if !q.IsListQuery {
		sb.WriteString(", WITHOUT_ARRAY_WRAPPER")
	}
}
