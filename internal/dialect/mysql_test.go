package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbgateway/internal/cursor"
	"dbgateway/internal/querybuild"
)

func TestMySQLRenderList(t *testing.T) {
	qs := buildQuery(t, testStore(), `{ books(first: 2) { items { id title } hasNextPage } }`,
		querybuild.Request{Entity: "book", IsList: true, IsPaginated: true})

	stmt, err := MySQL{}.Render(qs)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT COALESCE(JSON_ARRAYAGG(JSON_OBJECT('id', `table0_agg`.`id`, 'title', `table0_agg`.`title`)), JSON_ARRAY()) AS `data` FROM ("+
			"SELECT `table0`.`id` AS `id`, `table0`.`title` AS `title` "+
			"FROM `books` AS `table0` "+
			"ORDER BY `table0`.`id` ASC LIMIT 3) AS `table0_agg`",
		stmt.SQL)
	assert.Empty(t, stmt.Params)
	assert.Empty(t, stmt.ParamOrder)
}

func TestMySQLRenderLookupPlaceholders(t *testing.T) {
	qs := buildQuery(t, testStore(), `{ author(id: 1) { id name } }`, querybuild.Request{Entity: "author"})

	stmt, err := MySQL{}.Render(qs)
	require.NoError(t, err)

	// The driver takes positional placeholders; names are recorded in
	// emission order for binding.
	assert.Equal(t,
		"SELECT JSON_OBJECT('id', `table0_agg`.`id`, 'name', `table0_agg`.`name`) AS `data` FROM ("+
			"SELECT `table0`.`id` AS `id`, `table0`.`name` AS `name` "+
			"FROM `authors` AS `table0` "+
			"WHERE `table0`.`id` = ? "+
			"ORDER BY `table0`.`id` ASC LIMIT 1) AS `table0_agg`",
		stmt.SQL)
	assert.Equal(t, []string{"param0"}, stmt.ParamOrder)
	assert.Equal(t, map[string]interface{}{"param0": int64(1)}, stmt.Params)
}

func TestMySQLRenderKeysetPagination(t *testing.T) {
	token, err := cursor.MakeCursor(
		map[string]interface{}{"name": "melville", "id": 10},
		[]string{"id"},
		[]cursor.OrderColumn{{Column: "name", Direction: cursor.Ascending}},
		"",
	)
	require.NoError(t, err)

	query := `{ authors(first: 2, after: "` + token + `", orderBy: {name: ASC}) { items { id name } endCursor hasNextPage } }`
	qs := buildQuery(t, testStore(), query, querybuild.Request{Entity: "author", IsList: true, IsPaginated: true})

	stmt, err := MySQL{}.Render(qs)
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "WHERE (`table0`.`name`, `table0`.`id`) > (?, ?)")
	assert.Contains(t, stmt.SQL, "ORDER BY `table0`.`name` ASC, `table0`.`id` ASC LIMIT 3")
	assert.Equal(t, []string{"param0", "param1"}, stmt.ParamOrder)
	assert.Equal(t, map[string]interface{}{"param0": "melville", "param1": int64(10)}, stmt.Params)
}

func TestMySQLRenderDescendingKeysetPagination(t *testing.T) {
	token, err := cursor.MakeCursor(
		map[string]interface{}{"name": "melville", "id": 10},
		[]string{"id"},
		[]cursor.OrderColumn{{Column: "name", Direction: cursor.Descending}},
		"",
	)
	require.NoError(t, err)

	query := `{ authors(first: 2, after: "` + token + `", orderBy: {name: DESC}) { items { id name } endCursor hasNextPage } }`
	qs := buildQuery(t, testStore(), query, querybuild.Request{Entity: "author", IsList: true, IsPaginated: true})

	stmt, err := MySQL{}.Render(qs)
	require.NoError(t, err)

	// The descending column takes the expanded seek; the boundary value
	// binds at both of its placeholder positions.
	assert.Contains(t, stmt.SQL,
		"WHERE ((`table0`.`name` < ?) OR (`table0`.`name` = ? AND `table0`.`id` > ?))")
	assert.Contains(t, stmt.SQL, "ORDER BY `table0`.`name` DESC, `table0`.`id` ASC LIMIT 3")
	assert.Equal(t, []string{"param0", "param0", "param1"}, stmt.ParamOrder)
	assert.Equal(t, map[string]interface{}{"param0": "melville", "param1": int64(10)}, stmt.Params)
}

func TestMySQLRenderNestedConnection(t *testing.T) {
	qs := buildQuery(t, testStore(), `{ author(id: 1) { name books { items { title } } } }`,
		querybuild.Request{Entity: "author"})

	stmt, err := MySQL{}.Render(qs)
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "LEFT JOIN LATERAL (")
	assert.Contains(t, stmt.SQL,
		"SELECT COALESCE(JSON_ARRAYAGG(JSON_OBJECT('title', `table1_agg`.`title`, 'id', `table1_agg`.`id`)), JSON_ARRAY()) AS `data`")
	assert.Contains(t, stmt.SQL, "WHERE `table1`.`author_id` = `table0`.`id`")
	assert.Contains(t, stmt.SQL, ") AS `table2` ON TRUE")
	// The parent embeds the subquery's aggregated JSON column.
	assert.Contains(t, stmt.SQL, "`table2`.`data` AS `books`")
}
