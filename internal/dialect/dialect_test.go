package dialect

import (
	"testing"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbgateway/internal/metadata"
	"dbgateway/internal/querybuild"
)

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

func buildQuery(t *testing.T, store *metadata.Store, query string, req querybuild.Request) *querybuild.QueryStructure {
	t.Helper()
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	require.NoError(t, err)
	op, ok := doc.Definitions[0].(*ast.OperationDefinition)
	require.True(t, ok)
	field, ok := op.SelectionSet.Selections[0].(*ast.Field)
	require.True(t, ok)
	req.Field = field
	qs, err := querybuild.BuildFromSelection(querybuild.NewBuildContext(store), req)
	require.NoError(t, err)
	return qs
}

func TestFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"mysql", "mysql"},
		{"postgresql", "postgresql"},
		{"postgres", "postgresql"},
		{"mssql", "mssql"},
		{"sqlserver", "mssql"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			renderer, err := For(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.want, renderer.Name())
		})
	}

	_, err := For("oracle")
	assert.ErrorContains(t, err, `unknown sql dialect "oracle"`)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`name`", MySQL{}.QuoteIdentifier("name"))
	assert.Equal(t, `"name"`, Postgres{}.QuoteIdentifier("name"))
	assert.Equal(t, "[name]", MSSQL{}.QuoteIdentifier("name"))
}
