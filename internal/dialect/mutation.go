package dialect

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"dbgateway/internal/metadata"
	"dbgateway/internal/sqlutil"
)

// Mutation rendering follows the same quoting and aliasing rules as the
// read path and always returns the affected row's current column values so
// the result can be re-queried through the normal read pipeline:
// SQL Server uses OUTPUT, PostgreSQL uses RETURNING, and MySQL issues a
// follow-up SELECT (by LAST_INSERT_ID for auto-generated keys).

func validateKeys(table *metadata.TableDefinition, keys map[string]interface{}) error {
	if len(keys) != len(table.PrimaryKey) {
		return fmt.Errorf("key count (%d) does not match primary key column count (%d)", len(keys), len(table.PrimaryKey))
	}
	for _, pk := range table.PrimaryKey {
		if _, ok := keys[pk]; !ok {
			return fmt.Errorf("missing primary key column %q", pk)
		}
	}
	return nil
}

func sortedColumns(m map[string]interface{}) []string {
	cols := make([]string, 0, len(m))
	for col := range m {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// namedStatement converts squirrel's positional output into a Statement,
// assigning sequential parameter names in placeholder order.
func namedStatement(sql string, args []interface{}) *Statement {
	stmt := &Statement{
		SQL:        sql,
		Params:     make(map[string]interface{}, len(args)),
		ParamOrder: make([]string, len(args)),
	}
	for i, arg := range args {
		name := "param" + strconv.Itoa(i)
		stmt.Params[name] = arg
		stmt.ParamOrder[i] = name
	}
	return stmt
}

func quotedList(quote func(string) string, names []string) []string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quote(name)
	}
	return quoted
}

// --- MySQL ---

func (m MySQL) RenderInsert(table *metadata.TableDefinition, values map[string]interface{}) (*Statement, error) {
	cols := sortedColumns(values)
	if len(cols) == 0 {
		return nil, fmt.Errorf("insert values cannot be empty")
	}
	vals := make([]interface{}, len(cols))
	for i, col := range cols {
		vals[i] = values[col]
	}
	sql, args, err := sq.Insert(mysqlSource(table)).
		Columns(quotedList(sqlutil.QuoteBacktick, cols)...).
		Values(vals...).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}
	stmt := namedStatement(sql, args)
	readBack, err := m.readBack(table, values)
	if err != nil {
		return nil, err
	}
	stmt.FollowUp = readBack
	return stmt, nil
}

func (m MySQL) RenderUpdate(table *metadata.TableDefinition, keys, values map[string]interface{}) (*Statement, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("update set cannot be empty")
	}
	if err := validateKeys(table, keys); err != nil {
		return nil, err
	}
	builder := sq.Update(mysqlSource(table))
	for _, col := range sortedColumns(values) {
		builder = builder.Set(sqlutil.QuoteBacktick(col), values[col])
	}
	builder = builder.Where(mysqlKeyClause(keys))
	sql, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	stmt := namedStatement(sql, args)
	readBack, err := m.readBack(table, keys)
	if err != nil {
		return nil, err
	}
	stmt.FollowUp = readBack
	return stmt, nil
}

// RenderDelete reads the doomed row first, then deletes it; the executor
// returns rows from whichever statement produced them.
func (m MySQL) RenderDelete(table *metadata.TableDefinition, keys map[string]interface{}) (*Statement, error) {
	if err := validateKeys(table, keys); err != nil {
		return nil, err
	}
	selectStmt, err := m.readBack(table, keys)
	if err != nil {
		return nil, err
	}
	sql, args, err := sq.Delete(mysqlSource(table)).
		Where(mysqlKeyClause(keys)).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}
	selectStmt.FollowUp = namedStatement(sql, args)
	return selectStmt, nil
}

// readBack builds the post-mutation row fetch. A single auto-generated key
// not present in the provided values resolves through LAST_INSERT_ID().
func (MySQL) readBack(table *metadata.TableDefinition, provided map[string]interface{}) (*Statement, error) {
	builder := sq.Select(quotedList(sqlutil.QuoteBacktick, table.ColumnNames())...).
		From(mysqlSource(table))
	for _, pk := range table.PrimaryKey {
		if value, ok := provided[pk]; ok {
			builder = builder.Where(sq.Eq{sqlutil.QuoteBacktick(pk): value})
			continue
		}
		column, _ := table.Column(pk)
		if len(table.PrimaryKey) == 1 && column.IsAutoGenerated {
			builder = builder.Where(sq.Expr(sqlutil.QuoteBacktick(pk) + " = LAST_INSERT_ID()"))
			continue
		}
		return nil, fmt.Errorf("missing value for primary key column %q", pk)
	}
	sql, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	return namedStatement(sql, args), nil
}

func mysqlSource(table *metadata.TableDefinition) string {
	if table.SchemaName == "" {
		return sqlutil.QuoteBacktick(table.Name)
	}
	return sqlutil.QuoteBacktick(table.SchemaName) + "." + sqlutil.QuoteBacktick(table.Name)
}

func mysqlKeyClause(keys map[string]interface{}) sq.Eq {
	clause := sq.Eq{}
	for col, val := range keys {
		clause[sqlutil.QuoteBacktick(col)] = val
	}
	return clause
}

// --- PostgreSQL ---

func (p Postgres) RenderInsert(table *metadata.TableDefinition, values map[string]interface{}) (*Statement, error) {
	cols := sortedColumns(values)
	if len(cols) == 0 {
		return nil, fmt.Errorf("insert values cannot be empty")
	}
	vals := make([]interface{}, len(cols))
	for i, col := range cols {
		vals[i] = values[col]
	}
	sql, args, err := sq.Insert(pgSource(table)).
		Columns(quotedList(sqlutil.QuoteDouble, cols)...).
		Values(vals...).
		Suffix("RETURNING " + strings.Join(quotedList(sqlutil.QuoteDouble, table.ColumnNames()), ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}
	return namedStatement(sql, args), nil
}

func (p Postgres) RenderUpdate(table *metadata.TableDefinition, keys, values map[string]interface{}) (*Statement, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("update set cannot be empty")
	}
	if err := validateKeys(table, keys); err != nil {
		return nil, err
	}
	builder := sq.Update(pgSource(table))
	for _, col := range sortedColumns(values) {
		builder = builder.Set(sqlutil.QuoteDouble(col), values[col])
	}
	where := sq.Eq{}
	for col, val := range keys {
		where[sqlutil.QuoteDouble(col)] = val
	}
	sql, args, err := builder.Where(where).
		Suffix("RETURNING " + strings.Join(quotedList(sqlutil.QuoteDouble, table.ColumnNames()), ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}
	return namedStatement(sql, args), nil
}

func (p Postgres) RenderDelete(table *metadata.TableDefinition, keys map[string]interface{}) (*Statement, error) {
	if err := validateKeys(table, keys); err != nil {
		return nil, err
	}
	where := sq.Eq{}
	for col, val := range keys {
		where[sqlutil.QuoteDouble(col)] = val
	}
	sql, args, err := sq.Delete(pgSource(table)).
		Where(where).
		Suffix("RETURNING " + strings.Join(quotedList(sqlutil.QuoteDouble, table.ColumnNames()), ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}
	return namedStatement(sql, args), nil
}

func pgSource(table *metadata.TableDefinition) string {
	if table.SchemaName == "" {
		return sqlutil.QuoteDouble(table.Name)
	}
	return sqlutil.QuoteDouble(table.SchemaName) + "." + sqlutil.QuoteDouble(table.Name)
}

// --- SQL Server ---
//
// squirrel cannot place OUTPUT clauses between the column list and VALUES
// (or between SET and WHERE), so the T-SQL mutations are assembled
// directly with the same quoting rules.

func (m MSSQL) RenderInsert(table *metadata.TableDefinition, values map[string]interface{}) (*Statement, error) {
	cols := sortedColumns(values)
	if len(cols) == 0 {
		return nil, fmt.Errorf("insert values cannot be empty")
	}
	stmt := &Statement{Params: make(map[string]interface{}, len(cols))}
	placeholders := make([]string, len(cols))
	for i, col := range cols {
		name := "param" + strconv.Itoa(i)
		stmt.Params[name] = values[col]
		placeholders[i] = "@" + name
	}
	stmt.SQL = "INSERT INTO " + mssqlSource(table) +
		" (" + strings.Join(quotedList(sqlutil.QuoteBracket, cols), ", ") + ")" +
		" OUTPUT " + mssqlOutputColumns(table, "Inserted") +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"
	return stmt, nil
}

func (m MSSQL) RenderUpdate(table *metadata.TableDefinition, keys, values map[string]interface{}) (*Statement, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("update set cannot be empty")
	}
	if err := validateKeys(table, keys); err != nil {
		return nil, err
	}
	stmt := &Statement{Params: make(map[string]interface{}, len(values)+len(keys))}
	counter := 0
	nextParam := func(value interface{}) string {
		name := "param" + strconv.Itoa(counter)
		counter++
		stmt.Params[name] = value
		return "@" + name
	}

	assignments := make([]string, 0, len(values))
	for _, col := range sortedColumns(values) {
		assignments = append(assignments, sqlutil.QuoteBracket(col)+" = "+nextParam(values[col]))
	}
	conditions := make([]string, 0, len(keys))
	for _, col := range sortedColumns(keys) {
		conditions = append(conditions, sqlutil.QuoteBracket(col)+" = "+nextParam(keys[col]))
	}
	stmt.SQL = "UPDATE " + mssqlSource(table) +
		" SET " + strings.Join(assignments, ", ") +
		" OUTPUT " + mssqlOutputColumns(table, "Inserted") +
		" WHERE " + strings.Join(conditions, " AND ")
	return stmt, nil
}

func (m MSSQL) RenderDelete(table *metadata.TableDefinition, keys map[string]interface{}) (*Statement, error) {
	if err := validateKeys(table, keys); err != nil {
		return nil, err
	}
	stmt := &Statement{Params: make(map[string]interface{}, len(keys))}
	conditions := make([]string, 0, len(keys))
	for i, col := range sortedColumns(keys) {
		name := "param" + strconv.Itoa(i)
		stmt.Params[name] = keys[col]
		conditions = append(conditions, sqlutil.QuoteBracket(col)+" = @"+name)
	}
	stmt.SQL = "DELETE FROM " + mssqlSource(table) +
		" OUTPUT " + mssqlOutputColumns(table, "Deleted") +
		" WHERE " + strings.Join(conditions, " AND ")
	return stmt, nil
}

func mssqlSource(table *metadata.TableDefinition) string {
	if table.SchemaName == "" {
		return sqlutil.QuoteBracket(table.Name)
	}
	return sqlutil.QuoteBracket(table.SchemaName) + "." + sqlutil.QuoteBracket(table.Name)
}

func mssqlOutputColumns(table *metadata.TableDefinition, source string) string {
	cols := table.ColumnNames()
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = sqlutil.QuoteBracket(source) + "." + sqlutil.QuoteBracket(col)
	}
	return strings.Join(parts, ", ")
}
