package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralize(t *testing.T) {
	n := Default()
	assert.Equal(t, "authors", n.Pluralize("author"))
	assert.Equal(t, "categories", n.Pluralize("category"))
	assert.Equal(t, "people", n.Pluralize("person"))
}

func TestSingularize(t *testing.T) {
	n := Default()
	assert.Equal(t, "author", n.Singularize("authors"))
	assert.Equal(t, "category", n.Singularize("categories"))
}

func TestOverridesWin(t *testing.T) {
	n := New(Config{
		PluralOverrides:   map[string]string{"octopus": "octopodes"},
		SingularOverrides: map[string]string{"octopodes": "octopus"},
	})
	assert.Equal(t, "octopodes", n.Pluralize("octopus"))
	assert.Equal(t, "octopus", n.Singularize("octopodes"))

	// Words without an override fall through to the standard rules.
	assert.Equal(t, "books", n.Pluralize("book"))
}

func TestTypeName(t *testing.T) {
	n := Default()
	assert.Equal(t, "Author", n.TypeName("author"))
	assert.Equal(t, "BookCategory", n.TypeName("book_category"))
	assert.Equal(t, "Author", n.TypeName("authors"))
}

func TestFieldName(t *testing.T) {
	n := Default()
	assert.Equal(t, "publishedAt", n.FieldName("published_at"))
	assert.Equal(t, "id", n.FieldName("id"))
	assert.Equal(t, "bookCategory", n.FieldName("book_category"))
}

func TestCollectionName(t *testing.T) {
	n := Default()
	assert.Equal(t, "authors", n.CollectionName("author"))
	assert.Equal(t, "bookCategories", n.CollectionName("book_category"))
}
