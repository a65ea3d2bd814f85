package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbgateway/internal/cursor"
	"dbgateway/internal/querybuild"
)

func TestMSSQLRenderLookup(t *testing.T) {
	qs := buildQuery(t, testStore(), `{ author(id: 1) { id name } }`, querybuild.Request{Entity: "author"})

	stmt, err := MSSQL{}.Render(qs)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT TOP 1 [table0].[id] AS [id], [table0].[name] AS [name] "+
			"FROM [authors] AS [table0] "+
			"WHERE [table0].[id] = @param0 "+
			"ORDER BY [table0].[id] ASC "+
			"FOR JSON PATH, INCLUDE_NULL_VALUES, WITHOUT_ARRAY_WRAPPER",
		stmt.SQL)
	assert.Equal(t, map[string]interface{}{"param0": int64(1)}, stmt.Params)
}

func TestMSSQLRenderKeysetPagination(t *testing.T) {
	token, err := cursor.MakeCursor(
		map[string]interface{}{"name": "melville", "id": 10},
		[]string{"id"},
		[]cursor.OrderColumn{{Column: "name", Direction: cursor.Descending}},
		"",
	)
	require.NoError(t, err)

	query := `{ authors(first: 2, after: "` + token + `", orderBy: {name: DESC}) { items { id name } endCursor hasNextPage } }`
	qs := buildQuery(t, testStore(), query, querybuild.Request{Entity: "author", IsList: true, IsPaginated: true})

	stmt, err := MSSQL{}.Render(qs)
	require.NoError(t, err)

	// SQL Server has no row-constructor comparison; the tuple seek expands
	// into the equivalent OR-chain, with < on the descending column.
	assert.Equal(t,
		"SELECT TOP 3 [table0].[id] AS [id], [table0].[name] AS [name] "+
			"FROM [authors] AS [table0] "+
			"WHERE (([table0].[name] < @param0) OR ([table0].[name] = @param0 AND [table0].[id] > @param1)) "+
			"ORDER BY [table0].[name] DESC, [table0].[id] ASC "+
			"FOR JSON PATH, INCLUDE_NULL_VALUES",
		stmt.SQL)
	assert.Equal(t, map[string]interface{}{"param0": "melville", "param1": int64(10)}, stmt.Params)
}

func TestMSSQLRenderAscendingKeysetOperators(t *testing.T) {
	token, err := cursor.MakeCursor(
		map[string]interface{}{"name": "melville", "id": 10},
		[]string{"id"},
		[]cursor.OrderColumn{{Column: "name", Direction: cursor.Ascending}},
		"",
	)
	require.NoError(t, err)

	query := `{ authors(first: 2, after: "` + token + `", orderBy: {name: ASC}) { items { id name } hasNextPage } }`
	qs := buildQuery(t, testStore(), query, querybuild.Request{Entity: "author", IsList: true, IsPaginated: true})

	stmt, err := MSSQL{}.Render(qs)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL,
		"WHERE (([table0].[name] > @param0) OR ([table0].[name] = @param0 AND [table0].[id] > @param1))")
}

func TestMSSQLRenderSingleColumnKeyset(t *testing.T) {
	token, err := cursor.MakeCursor(map[string]interface{}{"id": 9}, []string{"id"}, nil, "")
	require.NoError(t, err)

	qs, err := querybuild.BuildFromRest(querybuild.NewBuildContext(testStore()), querybuild.RestRequest{
		Entity: "author",
		Fields: []string{"id"},
		After:  token,
	})
	require.NoError(t, err)

	stmt, err := MSSQL{}.Render(qs)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE ([table0].[id] > @param0)")
	assert.NotContains(t, stmt.SQL, " OR ")
}

func TestMSSQLRenderManyToMany(t *testing.T) {
	qs := buildQuery(t, testStore(), `{ book(id: 5) { title tags { items { label } } } }`,
		querybuild.Request{Entity: "book"})

	stmt, err := MSSQL{}.Render(qs)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT TOP 1 [table0].[title] AS [title], JSON_QUERY([table3].[data]) AS [tags] "+
			"FROM [books] AS [table0] "+
			"OUTER APPLY ("+
			"SELECT TOP 100 [table1].[label] AS [label], [table1].[id] AS [id] "+
			"FROM [tags] AS [table1] "+
			"INNER JOIN [book_tags] AS [table2] ON [table2].[tag_id] = [table1].[id] "+
			"WHERE [table2].[book_id] = [table0].[id] "+
			"ORDER BY [table1].[id] ASC "+
			"FOR JSON PATH, INCLUDE_NULL_VALUES"+
			") AS [table3]([data]) "+
			"WHERE [table0].[id] = @param0 "+
			"ORDER BY [table0].[id] ASC "+
			"FOR JSON PATH, INCLUDE_NULL_VALUES, WITHOUT_ARRAY_WRAPPER",
		stmt.SQL)
	assert.Equal(t, map[string]interface{}{"param0": int64(5)}, stmt.Params)
}
