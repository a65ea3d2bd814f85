package querybuild

import (
	"testing"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbgateway/internal/cursor"
	"dbgateway/internal/metadata"
	"dbgateway/internal/qerr"
)

// testStore builds the author/book/tag fixture covering all three
// relationship cardinalities.
func testStore() *metadata.Store {
	tables := map[string]*metadata.TableDefinition{
		"author": {
			Name:       "authors",
			PrimaryKey: []string{"id"},
			Columns: map[string]metadata.ColumnDefinition{
				"id":   {Name: "id", SystemType: "int", IsAutoGenerated: true},
				"name": {Name: "name", SystemType: "varchar(100)"},
			},
		},
		"book": {
			Name:       "books",
			PrimaryKey: []string{"id"},
			Columns: map[string]metadata.ColumnDefinition{
				"id":        {Name: "id", SystemType: "int", IsAutoGenerated: true},
				"title":     {Name: "title", SystemType: "varchar(200)"},
				"author_id": {Name: "author_id", SystemType: "int", IsNullable: true},
			},
		},
		"tag": {
			Name:       "tags",
			PrimaryKey: []string{"id"},
			Columns: map[string]metadata.ColumnDefinition{
				"id":    {Name: "id", SystemType: "int"},
				"label": {Name: "label", SystemType: "varchar(50)"},
			},
		},
	}
	relationships := map[string]map[string]*metadata.Relationship{
		"author": {
			"books": {
				Kind:          metadata.KindOneToMany,
				TargetEntity:  "book",
				SourceColumns: []string{"id"},
				TargetColumns: []string{"author_id"},
			},
		},
		"book": {
			"author": {
				Kind:          metadata.KindManyToOne,
				TargetEntity:  "author",
				SourceColumns: []string{"author_id"},
				TargetColumns: []string{"id"},
			},
			"tags": {
				Kind:                 metadata.KindManyToMany,
				TargetEntity:         "tag",
				SourceColumns:        []string{"id"},
				TargetColumns:        []string{"id"},
				LinkingTable:         "book_tags",
				LinkingSourceColumns: []string{"book_id"},
				LinkingTargetColumns: []string{"tag_id"},
			},
		},
	}
	return metadata.NewStore(tables, relationships)
}

func parseRootField(t *testing.T, query string) *ast.Field {
	t.Helper()
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	require.NoError(t, err)
	op, ok := doc.Definitions[0].(*ast.OperationDefinition)
	require.True(t, ok)
	field, ok := op.SelectionSet.Selections[0].(*ast.Field)
	require.True(t, ok)
	return field
}

func buildSelection(t *testing.T, query string, req Request) (*QueryStructure, error) {
	t.Helper()
	req.Field = parseRootField(t, query)
	return BuildFromSelection(NewBuildContext(testStore()), req)
}

func TestBuildLookup(t *testing.T) {
	qs, err := buildSelection(t, `{ author(id: 1) { id name } }`, Request{Entity: "author"})
	require.NoError(t, err)

	assert.Equal(t, "author", qs.EntityName)
	assert.Equal(t, "authors", qs.TableName)
	assert.Equal(t, "table0", qs.TableAlias)
	assert.False(t, qs.IsListQuery)
	assert.Equal(t, uint64(1), qs.Limit())

	require.Len(t, qs.Columns, 2)
	assert.Equal(t, "id", qs.Columns[0].Name)
	assert.Equal(t, "id", qs.Columns[0].Label)
	assert.Equal(t, "name", qs.Columns[1].Name)

	require.Len(t, qs.Predicates, 1)
	pred := qs.Predicates[0]
	assert.Equal(t, Column{TableAlias: "table0", Name: "id"}, *pred.Left.Column)
	assert.Equal(t, OpEqual, pred.Op)
	assert.Equal(t, "param0", pred.Right.Param)
	assert.Equal(t, map[string]interface{}{"param0": int64(1)}, qs.Parameters())

	assert.Equal(t, []cursor.OrderColumn{{Column: "id", Direction: cursor.Ascending}}, qs.OrderBy)
}

func TestBuildFieldAlias(t *testing.T) {
	qs, err := buildSelection(t, `{ author(id: 1) { id fullName: name } }`, Request{Entity: "author"})
	require.NoError(t, err)

	require.Len(t, qs.Columns, 2)
	assert.Equal(t, "name", qs.Columns[1].Name)
	assert.Equal(t, "fullName", qs.Columns[1].Label)
}

func TestBuildUnknownFieldRejected(t *testing.T) {
	_, err := buildSelection(t, `{ author(id: 1) { id nonsense } }`, Request{Entity: "author"})
	require.Error(t, err)
	assert.True(t, qerr.IsBadRequest(err))
	assert.Contains(t, err.Error(), "field nonsense is not defined for entity author")
}

func TestBuildUnknownArgumentRejected(t *testing.T) {
	_, err := buildSelection(t, `{ author(wrong: 1) { id } }`, Request{Entity: "author"})
	require.Error(t, err)
	assert.True(t, qerr.IsBadRequest(err))
	assert.Contains(t, err.Error(), "argument wrong is not a column of entity author")
}

func TestBuildManyToOne(t *testing.T) {
	qs, err := buildSelection(t, `{ book(id: 5) { title author { name } } }`, Request{Entity: "book"})
	require.NoError(t, err)

	require.Equal(t, []string{"author"}, qs.SubqueryOrder)
	child := qs.Subqueries["author"]
	require.NotNil(t, child)
	assert.Equal(t, "table1", child.TableAlias)
	assert.Equal(t, "table2", child.SubqueryAlias)
	assert.False(t, child.IsListQuery)

	// The child correlates to its parent through a join predicate on the
	// parent's foreign key columns.
	require.Len(t, child.Predicates, 1)
	join := child.Predicates[0]
	assert.Equal(t, Column{TableAlias: "table1", Name: "id"}, *join.Left.Column)
	assert.Equal(t, Column{TableAlias: "table0", Name: "author_id"}, *join.Right.Column)

	// The parent projects the subquery's aggregated output under the field label.
	require.Len(t, qs.Columns, 2)
	assert.Equal(t, LabelledColumn{
		Column: Column{TableAlias: "table2", Name: "data"},
		Label:  "author",
	}, qs.Columns[1])

	// Metadata mirrors the subquery tree.
	require.Contains(t, qs.Pagination.Subqueries, "author")
	assert.Same(t, child.Pagination, qs.Pagination.Subqueries["author"])
}

func TestBuildOneToManyPlainList(t *testing.T) {
	qs, err := buildSelection(t, `{ author(id: 1) { books { title } } }`, Request{Entity: "author"})
	require.NoError(t, err)

	child := qs.Subqueries["books"]
	require.NotNil(t, child)
	assert.True(t, child.IsListQuery)
	assert.False(t, child.Pagination.IsPaginated)

	require.Len(t, child.Predicates, 1)
	join := child.Predicates[0]
	assert.Equal(t, Column{TableAlias: "table1", Name: "author_id"}, *join.Left.Column)
	assert.Equal(t, Column{TableAlias: "table0", Name: "id"}, *join.Right.Column)
}

func TestBuildManyToMany(t *testing.T) {
	qs, err := buildSelection(t, `{ book(id: 5) { tags { items { label } } } }`, Request{Entity: "book"})
	require.NoError(t, err)

	child := qs.Subqueries["tags"]
	require.NotNil(t, child)
	assert.True(t, child.IsListQuery)
	assert.True(t, child.Pagination.IsPaginated)

	// The linking table joins to the child side under a fresh alias.
	require.Len(t, child.Joins, 1)
	link := child.Joins[0]
	assert.Equal(t, "book_tags", link.TableName)
	assert.Equal(t, "table2", link.TableAlias)
	require.Len(t, link.Predicates, 1)
	assert.Equal(t, Column{TableAlias: "table2", Name: "tag_id"}, *link.Predicates[0].Left.Column)
	assert.Equal(t, Column{TableAlias: "table1", Name: "id"}, *link.Predicates[0].Right.Column)

	// The correlation to the parent runs through the linking table only;
	// there is no direct parent-child join.
	require.Len(t, child.Predicates, 1)
	corr := child.Predicates[0]
	assert.Equal(t, Column{TableAlias: "table2", Name: "book_id"}, *corr.Left.Column)
	assert.Equal(t, Column{TableAlias: "table0", Name: "id"}, *corr.Right.Column)
}

func TestBuildConnection(t *testing.T) {
	token, err := cursor.MakeCursor(
		map[string]interface{}{"name": "melville", "id": 10},
		[]string{"id"},
		[]cursor.OrderColumn{{Column: "name", Direction: cursor.Descending}},
		"",
	)
	require.NoError(t, err)

	query := `{ authors(first: 2, after: "` + token + `", orderBy: {name: DESC}) { items { id name } endCursor hasNextPage } }`
	qs, err := buildSelection(t, query, Request{Entity: "author", IsList: true, IsPaginated: true})
	require.NoError(t, err)

	assert.True(t, qs.IsListQuery)
	assert.Equal(t, 2, qs.First)
	assert.Equal(t, uint64(3), qs.Limit())

	meta := qs.Pagination
	assert.True(t, meta.IsPaginated)
	assert.True(t, meta.RequestedItems)
	assert.True(t, meta.RequestedEndCursor)
	assert.True(t, meta.RequestedHasNextPage)

	// The synthetic items node aligns metadata with the JSON result shape.
	require.Contains(t, meta.Subqueries, "items")
	assert.Same(t, qs, meta.Subqueries["items"].Structure)

	assert.Equal(t, []cursor.OrderColumn{
		{Column: "name", Direction: cursor.Descending},
		{Column: "id", Direction: cursor.Ascending},
	}, qs.OrderBy)

	require.NotNil(t, meta.Keyset)
	require.Len(t, meta.Keyset.Columns, 2)
	assert.Equal(t, "name", meta.Keyset.Columns[0].Column.Name)
	assert.Equal(t, "param0", meta.Keyset.Columns[0].Param)
	assert.Equal(t, "id", meta.Keyset.Columns[1].Column.Name)
	assert.Equal(t, "param1", meta.Keyset.Columns[1].Param)
	// Each keyset column carries its sort direction so renderers can pick
	// the seek operator; a descending column makes the tuple non-ascending.
	assert.Equal(t, cursor.Descending, meta.Keyset.Columns[0].Direction)
	assert.Equal(t, cursor.Ascending, meta.Keyset.Columns[1].Direction)
	assert.False(t, meta.Keyset.Ascending())
	assert.Equal(t, map[string]interface{}{
		"param0": "melville",
		"param1": int64(10),
	}, qs.Parameters())
}

func TestBuildConnectionHasNextPageOnly(t *testing.T) {
	qs, err := buildSelection(t, `{ authors { hasNextPage } }`, Request{Entity: "author", IsList: true, IsPaginated: true})
	require.NoError(t, err)

	assert.False(t, qs.Pagination.RequestedItems)
	assert.True(t, qs.Pagination.RequestedHasNextPage)

	// The projection still carries the primary key so the query is well-formed.
	require.Len(t, qs.Columns, 1)
	assert.Equal(t, "id", qs.Columns[0].Name)
	assert.Equal(t, uint64(DefaultPageSize+1), qs.Limit())
}

func TestBuildConnectionRequiresSelection(t *testing.T) {
	_, err := buildSelection(t, `{ authors }`, Request{Entity: "author", IsList: true, IsPaginated: true})
	require.Error(t, err)
	assert.True(t, qerr.IsBadRequest(err))
	assert.Contains(t, err.Error(), "requires a selection set")
}

func TestBuildCoercedArgumentsWin(t *testing.T) {
	qs, err := buildSelection(t, `{ authors(first: 2) { items { id } } }`, Request{
		Entity:      "author",
		Args:        map[string]interface{}{"first": 5},
		IsList:      true,
		IsPaginated: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, qs.First)
}

func TestBuildInvalidFirst(t *testing.T) {
	for _, query := range []string{
		`{ authors(first: 0) { items { id } } }`,
		`{ authors(first: -3) { items { id } } }`,
	} {
		_, err := buildSelection(t, query, Request{Entity: "author", IsList: true, IsPaginated: true})
		require.Error(t, err, query)
		assert.True(t, qerr.IsBadRequest(err))
		assert.Contains(t, err.Error(), "must be a positive integer")
	}
}

func TestBuildInvalidOrderBy(t *testing.T) {
	_, err := buildSelection(t, `{ authors(orderBy: {nope: ASC}) { items { id } } }`,
		Request{Entity: "author", IsList: true, IsPaginated: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orderBy column nope is not defined")

	_, err = buildSelection(t, `{ authors { items { id } } }`, Request{
		Entity:      "author",
		Args:        map[string]interface{}{"orderBy": map[string]interface{}{"name": "UP"}},
		IsList:      true,
		IsPaginated: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be ASC or DESC")
}

func TestBuildOrderByFromCoercedMapIsSorted(t *testing.T) {
	qs, err := buildSelection(t, `{ authors { items { id } } }`, Request{
		Entity: "author",
		Args: map[string]interface{}{
			"orderBy": map[string]interface{}{"name": "ASC", "id": "DESC"},
		},
		IsList:      true,
		IsPaginated: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []cursor.OrderColumn{
		{Column: "id", Direction: cursor.Descending},
		{Column: "name", Direction: cursor.Ascending},
	}, qs.OrderBy)
}

func TestBuildBadCursorToken(t *testing.T) {
	_, err := buildSelection(t, `{ authors(after: "garbage!") { items { id } } }`,
		Request{Entity: "author", IsList: true, IsPaginated: true})
	require.Error(t, err)
	assert.True(t, qerr.IsBadRequest(err))
	assert.EqualError(t, err, "invalid pagination token")
}

func TestBuildDepthLimit(t *testing.T) {
	ctx := NewBuildContext(testStore())
	ctx.MaxDepth = 2
	field := parseRootField(t, `{ author(id: 1) { books { items { author { name } } } } }`)
	_, err := BuildFromSelection(ctx, Request{Entity: "author", Field: field})
	require.Error(t, err)
	assert.True(t, qerr.IsBadRequest(err))
	assert.Contains(t, err.Error(), "maximum relationship depth of 2")
}

func TestBuildNilField(t *testing.T) {
	_, err := BuildFromSelection(NewBuildContext(testStore()), Request{Entity: "author"})
	require.Error(t, err)
}

func TestBuildAliasesUniqueAcrossTree(t *testing.T) {
	qs, err := buildSelection(t, `{ author(id: 1) { name books { items { title author { name } } } } }`,
		Request{Entity: "author"})
	require.NoError(t, err)

	seen := map[string]bool{}
	var walk func(q *QueryStructure)
	walk = func(q *QueryStructure) {
		assert.False(t, seen[q.TableAlias], "alias %s reused", q.TableAlias)
		seen[q.TableAlias] = true
		if q.SubqueryAlias != "" {
			assert.False(t, seen[q.SubqueryAlias], "alias %s reused", q.SubqueryAlias)
			seen[q.SubqueryAlias] = true
		}
		for _, join := range q.Joins {
			assert.False(t, seen[join.TableAlias], "alias %s reused", join.TableAlias)
			seen[join.TableAlias] = true
		}
		for _, label := range q.SubqueryOrder {
			walk(q.Subqueries[label])
		}
	}
	walk(qs)
}
