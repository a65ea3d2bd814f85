package metadata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store is an in-memory Provider loaded from a declarative entity config.
type Store struct {
	tables        map[string]*TableDefinition
	relationships map[string]map[string]*Relationship
}

// entityFile mirrors the YAML entity configuration.
type entityFile struct {
	Entities map[string]entityConfig `yaml:"entities"`
}

type entityConfig struct {
	Source        string                        `yaml:"source"`
	Schema        string                        `yaml:"schema"`
	PrimaryKey    []string                      `yaml:"primary_key"`
	Columns       map[string]columnConfig       `yaml:"columns"`
	Relationships map[string]relationshipConfig `yaml:"relationships"`
}

type columnConfig struct {
	Type          string `yaml:"type"`
	Nullable      bool   `yaml:"nullable"`
	Default       bool   `yaml:"has_default"`
	AutoGenerated bool   `yaml:"auto_generated"`
}

type relationshipConfig struct {
	Cardinality          string   `yaml:"cardinality"` // one | many
	Target               string   `yaml:"target"`
	SourceFields         []string `yaml:"source_fields"`
	TargetFields         []string `yaml:"target_fields"`
	LinkingTable         string   `yaml:"linking_table"`
	LinkingSourceFields  []string `yaml:"linking_source_fields"`
	LinkingTargetFields  []string `yaml:"linking_target_fields"`
}

// LoadFile reads and parses an entity config file into a Store.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity config: %w", err)
	}
	return Load(data)
}

// Load parses entity config YAML into a Store.
func Load(data []byte) (*Store, error) {
	var file entityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse entity config: %w", err)
	}
	if len(file.Entities) == 0 {
		return nil, fmt.Errorf("entity config defines no entities")
	}

	store := &Store{
		tables:        make(map[string]*TableDefinition, len(file.Entities)),
		relationships: make(map[string]map[string]*Relationship),
	}
	for name, entity := range file.Entities {
		table := &TableDefinition{
			Name:        entity.Source,
			SchemaName:  entity.Schema,
			PrimaryKey:  append([]string(nil), entity.PrimaryKey...),
			Columns:     make(map[string]ColumnDefinition, len(entity.Columns)),
			ForeignKeys: make(map[string]ForeignKeyDefinition),
		}
		if table.Name == "" {
			table.Name = name
		}
		for colName, col := range entity.Columns {
			table.Columns[colName] = ColumnDefinition{
				Name:            colName,
				SystemType:      col.Type,
				IsNullable:      col.Nullable,
				HasDefault:      col.Default,
				IsAutoGenerated: col.AutoGenerated,
			}
		}
		if len(table.PrimaryKey) == 0 {
			return nil, fmt.Errorf("entity %s: primary_key is required", name)
		}
		for _, pk := range table.PrimaryKey {
			if _, ok := table.Columns[pk]; !ok {
				return nil, fmt.Errorf("entity %s: primary key column %s is not defined", name, pk)
			}
		}
		store.tables[name] = table

		rels := make(map[string]*Relationship, len(entity.Relationships))
		for field, rel := range entity.Relationships {
			resolved, err := resolveRelationship(name, field, rel)
			if err != nil {
				return nil, err
			}
			rels[field] = resolved
			fkName := fmt.Sprintf("fk_%s_%s", entity.Source, field)
			if resolved.Kind == KindManyToOne {
				table.ForeignKeys[fkName] = ForeignKeyDefinition{
					ReferencedTable:    rel.Target,
					ReferencingColumns: append([]string(nil), rel.SourceFields...),
					ReferencedColumns:  append([]string(nil), rel.TargetFields...),
				}
			}
		}
		store.relationships[name] = rels
	}

	// Relationship targets must resolve to declared entities.
	for entity, rels := range store.relationships {
		for field, rel := range rels {
			if _, ok := store.tables[rel.TargetEntity]; !ok {
				return nil, fmt.Errorf("entity %s: relationship %s targets undefined entity %s", entity, field, rel.TargetEntity)
			}
		}
	}
	return store, nil
}

func resolveRelationship(entity, field string, rel relationshipConfig) (*Relationship, error) {
	resolved := &Relationship{
		TargetEntity:         rel.Target,
		SourceColumns:        append([]string(nil), rel.SourceFields...),
		TargetColumns:        append([]string(nil), rel.TargetFields...),
		LinkingTable:         rel.LinkingTable,
		LinkingSourceColumns: append([]string(nil), rel.LinkingSourceFields...),
		LinkingTargetColumns: append([]string(nil), rel.LinkingTargetFields...),
	}
	switch {
	case rel.LinkingTable != "":
		resolved.Kind = KindManyToMany
	case rel.Cardinality == "many":
		resolved.Kind = KindOneToMany
	case rel.Cardinality == "one":
		resolved.Kind = KindManyToOne
	default:
		return nil, fmt.Errorf("entity %s: relationship %s has unknown cardinality %q", entity, field, rel.Cardinality)
	}
	return resolved, nil
}

// NewStore builds a Store from already-constructed definitions. Intended
// for tests and programmatic setup.
func NewStore(tables map[string]*TableDefinition, relationships map[string]map[string]*Relationship) *Store {
	if relationships == nil {
		relationships = make(map[string]map[string]*Relationship)
	}
	return &Store{tables: tables, relationships: relationships}
}

// GetTableDefinition implements Provider.
func (s *Store) GetTableDefinition(entity string) (*TableDefinition, error) {
	table, ok := s.tables[entity]
	if !ok {
		return nil, ErrNotFound("entity", entity)
	}
	return table, nil
}

// GetRelationship implements Provider.
func (s *Store) GetRelationship(entity, field string) (*Relationship, error) {
	rels, ok := s.relationships[entity]
	if !ok {
		return nil, ErrNotFound("entity", entity)
	}
	rel, ok := rels[field]
	if !ok {
		return nil, ErrNotFound("relationship", entity+"."+field)
	}
	return rel, nil
}

// Relationships returns all relationship fields declared on an entity.
func (s *Store) Relationships(entity string) map[string]*Relationship {
	return s.relationships[entity]
}

// Entities returns all declared entity names.
func (s *Store) Entities() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names
}
