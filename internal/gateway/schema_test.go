package gateway

import (
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbgateway/internal/naming"
)

func buildTestSchema(t *testing.T, exec *fakeExecutor) graphql.Schema {
	t.Helper()
	engine := newTestEngine(exec, EngineConfig{})
	schema, err := BuildSchema(testStore(), naming.Default(), engine)
	require.NoError(t, err)
	return schema
}

func TestBuildSchemaFields(t *testing.T) {
	schema := buildTestSchema(t, &fakeExecutor{})

	queries := schema.QueryType().Fields()
	for _, name := range []string{"author", "authors", "book", "books"} {
		assert.Contains(t, queries, name)
	}

	mutations := schema.MutationType().Fields()
	for _, name := range []string{
		"createAuthor", "updateAuthor", "deleteAuthor",
		"createBook", "updateBook", "deleteBook",
	} {
		assert.Contains(t, mutations, name)
	}

	// Collection fields return the pagination envelope.
	assert.Equal(t, "AuthorConnection", queries["authors"].Type.Name())
	assert.Equal(t, "Author", queries["author"].Type.Name())
}

func TestSchemaCollectionQuery(t *testing.T) {
	exec := &fakeExecutor{results: []fakeResult{
		jsonResult(`[{"id":1,"name":"austen"},{"id":2,"name":"borges"},{"id":3,"name":"calvino"}]`),
	}}
	schema := buildTestSchema(t, exec)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ authors(first: 2) { items { id name } hasNextPage endCursor } }`,
	})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	connection := data["authors"].(map[string]interface{})
	items := connection["items"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, 1, first["id"])
	assert.Equal(t, "austen", first["name"])
	assert.Equal(t, true, connection["hasNextPage"])
	assert.NotEmpty(t, connection["endCursor"])

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "LIMIT 3")
}

func TestSchemaLookupQuery(t *testing.T) {
	exec := &fakeExecutor{results: []fakeResult{
		jsonResult(`{"id":1,"name":"melville"}`),
	}}
	schema := buildTestSchema(t, exec)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ author(id: 1) { id name } }`,
	})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	author := data["author"].(map[string]interface{})
	assert.Equal(t, 1, author["id"])
	assert.Equal(t, "melville", author["name"])

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "LIMIT 1")
}

func TestSchemaLookupMissingRow(t *testing.T) {
	exec := &fakeExecutor{results: []fakeResult{
		{columns: []string{"data"}, rows: [][]any{{nil}}},
	}}
	schema := buildTestSchema(t, exec)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ author(id: 99) { id } }`,
	})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	assert.Nil(t, data["author"])
}

func TestSchemaNestedConnection(t *testing.T) {
	exec := &fakeExecutor{results: []fakeResult{
		jsonResult(`[{"id":1,"books":[{"id":10,"title":"first"},{"id":11,"title":"second"}]}]`),
	}}
	schema := buildTestSchema(t, exec)

	result := graphql.Do(graphql.Params{
		Schema: schema,
		RequestString: `{
			authors(first: 1) {
				items { id books(first: 1) { items { id title } hasNextPage } }
			}
		}`,
	})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	connection := data["authors"].(map[string]interface{})
	items := connection["items"].([]interface{})
	require.Len(t, items, 1)
	books := items[0].(map[string]interface{})["books"].(map[string]interface{})
	bookItems := books["items"].([]interface{})
	require.Len(t, bookItems, 1)
	assert.Equal(t, "first", bookItems[0].(map[string]interface{})["title"])
	assert.Equal(t, true, books["hasNextPage"])
}

func TestSchemaCreateMutation(t *testing.T) {
	exec := &fakeExecutor{results: []fakeResult{
		{columns: []string{"id", "name"}, rows: [][]any{{int64(7), "melville"}}},
	}}
	schema := buildTestSchema(t, exec)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `mutation { createAuthor(input: {name: "melville"}) { id name } }`,
	})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	created := data["createAuthor"].(map[string]interface{})
	assert.Equal(t, 7, created["id"])
	assert.Equal(t, "melville", created["name"])

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], `INSERT INTO "authors"`)
}

func TestSchemaDeleteMutation(t *testing.T) {
	exec := &fakeExecutor{results: []fakeResult{
		{columns: []string{"id", "name"}, rows: [][]any{{int64(7), "melville"}}},
	}}
	schema := buildTestSchema(t, exec)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `mutation { deleteAuthor(id: 7) { id } }`,
	})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	deleted := data["deleteAuthor"].(map[string]interface{})
	assert.Equal(t, 7, deleted["id"])

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], `DELETE FROM "authors"`)
}

func TestSchemaUnknownFieldRejected(t *testing.T) {
	schema := buildTestSchema(t, &fakeExecutor{})

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ author(id: 1) { id nope } }`,
	})
	require.NotEmpty(t, result.Errors)
}

func TestSchemaBadCursorReported(t *testing.T) {
	schema := buildTestSchema(t, &fakeExecutor{})

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ authors(first: 2, after: "garbage!") { items { id } } }`,
	})
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "invalid pagination token")
}
