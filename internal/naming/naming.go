// Package naming derives API-facing names from entity names. Entities are
// configured in the singular; collection fields and routes use the plural.
package naming

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Config holds custom overrides for words the inflection rules get wrong.
type Config struct {
	PluralOverrides   map[string]string `mapstructure:"plural_overrides"`
	SingularOverrides map[string]string `mapstructure:"singular_overrides"`
}

// DefaultConfig returns a Config with no overrides
func DefaultConfig() Config {
	return Config{
		PluralOverrides:   map[string]string{},
		SingularOverrides: map[string]string{},
	}
}

// Namer provides name transformation functions for converting entity and
// column names to API names.
type Namer struct {
	config Config
}

// New creates a Namer with the given configuration
func New(cfg Config) *Namer {
	return &Namer{config: cfg}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig())
}

// Pluralize converts a singular word to its plural form.
// Checks custom overrides first, then falls back to the inflection library.
func (n *Namer) Pluralize(word string) string {
	if override, ok := n.config.PluralOverrides[word]; ok {
		return override
	}
	return inflection.Plural(word)
}

// Singularize converts a plural word to its singular form.
// Checks custom overrides first, then falls back to the inflection library.
func (n *Namer) Singularize(word string) string {
	if override, ok := n.config.SingularOverrides[word]; ok {
		return override
	}
	return inflection.Singular(word)
}

// TypeName converts an entity name to a type name (PascalCase).
// Example: "book_author" -> "BookAuthor"
func (n *Namer) TypeName(entity string) string {
	return toPascalCase(n.Singularize(entity))
}

// FieldName converts a column or entity name to a field name (camelCase).
// Example: "published_at" -> "publishedAt"
func (n *Namer) FieldName(name string) string {
	return toCamelCase(name)
}

// CollectionName converts an entity name to the plural collection field name.
// Example: "author" -> "authors", "book_category" -> "bookCategories"
func (n *Namer) CollectionName(entity string) string {
	name := toCamelCase(entity)
	return n.Pluralize(name)
}

// toPascalCase converts snake_case to PascalCase
func toPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

// toCamelCase converts snake_case to camelCase
func toCamelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
