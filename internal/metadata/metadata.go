// Package metadata holds the entity model the query engine builds against:
// table, column, and foreign key definitions plus declared relationships.
// Definitions are immutable once loaded; builders only read them.
package metadata

import (
	"fmt"
	"sort"
)

// ColumnDefinition describes a single table column.
type ColumnDefinition struct {
	Name            string
	SystemType      string // database type name, e.g. "int", "varchar"
	IsNullable      bool
	HasDefault      bool
	IsAutoGenerated bool
}

// ForeignKeyDefinition describes one foreign key constraint. Referencing
// columns live on the owning table; referenced columns on the target table.
// The two lists are positional and equal length.
type ForeignKeyDefinition struct {
	ReferencedTable    string
	ReferencingColumns []string
	ReferencedColumns  []string
}

// TableDefinition describes a table or view exposed as an entity.
type TableDefinition struct {
	Name        string
	SchemaName  string
	PrimaryKey  []string // ordered
	Columns     map[string]ColumnDefinition
	ForeignKeys map[string]ForeignKeyDefinition
}

// Column returns the named column definition.
func (t *TableDefinition) Column(name string) (ColumnDefinition, bool) {
	c, ok := t.Columns[name]
	return c, ok
}

// ColumnNames returns all column names in a stable order.
func (t *TableDefinition) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RelationshipKind is the closed set of relationship cardinalities the
// engine knows how to join. Anything else is KindUnsupported and must be
// rejected, never silently dropped.
type RelationshipKind int

const (
	KindUnsupported RelationshipKind = iota
	KindManyToOne
	KindOneToMany
	KindManyToMany
)

func (k RelationshipKind) String() string {
	switch k {
	case KindManyToOne:
		return "many-to-one"
	case KindOneToMany:
		return "one-to-many"
	case KindManyToMany:
		return "many-to-many"
	default:
		return "unsupported"
	}
}

// Relationship describes how a relationship field on one entity reaches
// another. SourceColumns/TargetColumns are positional join mappings between
// the owning table and the target table. For many-to-many, the linking
// table bridges them: LinkingSourceColumns join to SourceColumns and
// LinkingTargetColumns join to TargetColumns.
type Relationship struct {
	Kind                 RelationshipKind
	TargetEntity         string
	SourceColumns        []string
	TargetColumns        []string
	LinkingTable         string
	LinkingSourceColumns []string
	LinkingTargetColumns []string
}

// Provider exposes entity metadata to the query builder.
type Provider interface {
	// GetTableDefinition returns the table backing the named entity.
	GetTableDefinition(entity string) (*TableDefinition, error)
	// GetRelationship resolves a relationship field on an entity.
	GetRelationship(entity, field string) (*Relationship, error)
}

// ErrNotFound wraps missing-entity lookups so callers can distinguish
// schema inconsistency from request errors.
func ErrNotFound(kind, name string) error {
	return fmt.Errorf("%s %q not found in entity metadata", kind, name)
}
