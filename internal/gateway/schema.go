package gateway

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/handler"

	"dbgateway/internal/metadata"
	"dbgateway/internal/naming"
	"dbgateway/internal/querybuild"
	"dbgateway/internal/sqltype"
)

// sortDirection is the enum used by orderBy input objects.
var sortDirection = graphql.NewEnum(graphql.EnumConfig{
	Name: "SortDirection",
	Values: graphql.EnumValueConfigMap{
		"ASC":  &graphql.EnumValueConfig{Value: "ASC"},
		"DESC": &graphql.EnumValueConfig{Value: "DESC"},
	},
})

// buildGraphQLHandler builds the schema from entity metadata and wraps it
// in an HTTP handler.
func buildGraphQLHandler(store *metadata.Store, namer *naming.Namer, engine *Engine) (http.Handler, error) {
	schema, err := BuildSchema(store, namer, engine)
	if err != nil {
		return nil, err
	}
	return handler.New(&handler.Config{
		Schema: &schema,
		Pretty: true,
	}), nil
}

// schemaBuilder accumulates the generated types so cyclic relationships
// resolve to the same object instances.
type schemaBuilder struct {
	store  *metadata.Store
	namer  *naming.Namer
	engine *Engine

	types       map[string]*graphql.Object
	connections map[string]*graphql.Object
	orderBys    map[string]*graphql.InputObject
}

// BuildSchema generates the GraphQL schema for every declared entity: a
// lookup and a collection query field per entity plus create, update, and
// delete mutations.
func BuildSchema(store *metadata.Store, namer *naming.Namer, engine *Engine) (graphql.Schema, error) {
	b := &schemaBuilder{
		store:       store,
		namer:       namer,
		engine:      engine,
		types:       make(map[string]*graphql.Object),
		connections: make(map[string]*graphql.Object),
		orderBys:    make(map[string]*graphql.InputObject),
	}

	entities := store.Entities()
	sort.Strings(entities)

	queryFields := graphql.Fields{}
	mutationFields := graphql.Fields{}
	for _, entity := range entities {
		table, err := store.GetTableDefinition(entity)
		if err != nil {
			return graphql.Schema{}, err
		}

		queryFields[namer.FieldName(entity)] = b.lookupField(entity, table)
		queryFields[namer.CollectionName(entity)] = b.collectionField(entity, table)

		typeName := namer.TypeName(entity)
		mutationFields["create"+typeName] = b.createField(entity, table)
		mutationFields["update"+typeName] = b.updateField(entity, table)
		mutationFields["delete"+typeName] = b.deleteField(entity, table)
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: queryFields,
		}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Mutation",
			Fields: mutationFields,
		}),
	})
}

// objectType returns the object type for an entity, creating it on first
// use. Fields are built lazily so mutually-referential entities resolve.
func (b *schemaBuilder) objectType(entity string) *graphql.Object {
	if t, ok := b.types[entity]; ok {
		return t
	}
	t := graphql.NewObject(graphql.ObjectConfig{
		Name: b.namer.TypeName(entity),
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return b.objectFields(entity)
		}),
	})
	b.types[entity] = t
	return t
}

func (b *schemaBuilder) objectFields(entity string) graphql.Fields {
	fields := graphql.Fields{}

	table, err := b.store.GetTableDefinition(entity)
	if err != nil {
		return fields
	}
	for _, name := range table.ColumnNames() {
		column, _ := table.Column(name)
		fields[name] = &graphql.Field{Type: columnType(column)}
	}

	for field, rel := range b.store.Relationships(entity) {
		switch rel.Kind {
		case metadata.KindManyToOne:
			fields[field] = &graphql.Field{Type: b.objectType(rel.TargetEntity)}
		case metadata.KindOneToMany, metadata.KindManyToMany:
			fields[field] = &graphql.Field{
				Type: b.connectionType(rel.TargetEntity),
				Args: b.collectionArgs(rel.TargetEntity),
			}
		}
	}
	return fields
}

// connectionType returns the pagination envelope type for an entity.
func (b *schemaBuilder) connectionType(entity string) *graphql.Object {
	if t, ok := b.connections[entity]; ok {
		return t
	}
	t := graphql.NewObject(graphql.ObjectConfig{
		Name: b.namer.TypeName(entity) + "Connection",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"items":       &graphql.Field{Type: graphql.NewList(b.objectType(entity))},
				"endCursor":   &graphql.Field{Type: graphql.String},
				"hasNextPage": &graphql.Field{Type: graphql.Boolean},
			}
		}),
	})
	b.connections[entity] = t
	return t
}

// orderByType returns the per-entity orderBy input object: one optional
// SortDirection field per column.
func (b *schemaBuilder) orderByType(entity string) *graphql.InputObject {
	if t, ok := b.orderBys[entity]; ok {
		return t
	}
	fields := graphql.InputObjectConfigFieldMap{}
	if table, err := b.store.GetTableDefinition(entity); err == nil {
		for _, name := range table.ColumnNames() {
			fields[name] = &graphql.InputObjectFieldConfig{Type: sortDirection}
		}
	}
	t := graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   b.namer.TypeName(entity) + "OrderBy",
		Fields: fields,
	})
	b.orderBys[entity] = t
	return t
}

func (b *schemaBuilder) collectionArgs(entity string) graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"first":   &graphql.ArgumentConfig{Type: graphql.Int},
		"after":   &graphql.ArgumentConfig{Type: graphql.String},
		"orderBy": &graphql.ArgumentConfig{Type: b.orderByType(entity)},
	}
}

// keyArgs builds one required argument per primary key column.
func (b *schemaBuilder) keyArgs(table *metadata.TableDefinition) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{}
	for _, pk := range table.PrimaryKey {
		column, _ := table.Column(pk)
		args[pk] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(columnInputType(column))}
	}
	return args
}

func (b *schemaBuilder) lookupField(entity string, table *metadata.TableDefinition) *graphql.Field {
	return &graphql.Field{
		Type: b.objectType(entity),
		Args: b.keyArgs(table),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return b.engine.RunSelection(p.Context, querybuild.Request{
				Entity: entity,
				Field:  rootFieldAST(p),
				Args:   p.Args,
			})
		},
	}
}

func (b *schemaBuilder) collectionField(entity string, table *metadata.TableDefinition) *graphql.Field {
	return &graphql.Field{
		Type: b.connectionType(entity),
		Args: b.collectionArgs(entity),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return b.engine.RunSelection(p.Context, querybuild.Request{
				Entity:      entity,
				Field:       rootFieldAST(p),
				Args:        p.Args,
				IsList:      true,
				IsPaginated: true,
			})
		},
	}
}

// insertInputType builds the create-mutation input object. Columns without
// defaults are required unless nullable or generated by the database.
func (b *schemaBuilder) insertInputType(entity string, table *metadata.TableDefinition) *graphql.InputObject {
	fields := graphql.InputObjectConfigFieldMap{}
	for _, name := range table.ColumnNames() {
		column, _ := table.Column(name)
		var fieldType graphql.Input = columnInputType(column)
		if !column.IsNullable && !column.HasDefault && !column.IsAutoGenerated {
			fieldType = graphql.NewNonNull(fieldType)
		}
		fields[name] = &graphql.InputObjectFieldConfig{Type: fieldType}
	}
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   b.namer.TypeName(entity) + "CreateInput",
		Fields: fields,
	})
}

// updateInputType builds the update-mutation input object. Every non-key
// column is optional.
func (b *schemaBuilder) updateInputType(entity string, table *metadata.TableDefinition) *graphql.InputObject {
	pk := make(map[string]bool, len(table.PrimaryKey))
	for _, name := range table.PrimaryKey {
		pk[name] = true
	}
	fields := graphql.InputObjectConfigFieldMap{}
	for _, name := range table.ColumnNames() {
		if pk[name] {
			continue
		}
		column, _ := table.Column(name)
		fields[name] = &graphql.InputObjectFieldConfig{Type: columnInputType(column)}
	}
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   b.namer.TypeName(entity) + "UpdateInput",
		Fields: fields,
	})
}

func (b *schemaBuilder) createField(entity string, table *metadata.TableDefinition) *graphql.Field {
	return &graphql.Field{
		Type: b.objectType(entity),
		Args: graphql.FieldConfigArgument{
			"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.insertInputType(entity, table))},
		},
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			values, err := inputArgument(p)
			if err != nil {
				return nil, err
			}
			return b.engine.Insert(p.Context, entity, values)
		},
	}
}

func (b *schemaBuilder) updateField(entity string, table *metadata.TableDefinition) *graphql.Field {
	args := b.keyArgs(table)
	args["input"] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.updateInputType(entity, table))}
	return &graphql.Field{
		Type: b.objectType(entity),
		Args: args,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			values, err := inputArgument(p)
			if err != nil {
				return nil, err
			}
			return b.engine.Update(p.Context, entity, keyArguments(p, table), values)
		},
	}
}

func (b *schemaBuilder) deleteField(entity string, table *metadata.TableDefinition) *graphql.Field {
	return &graphql.Field{
		Type: b.objectType(entity),
		Args: b.keyArgs(table),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return b.engine.Delete(p.Context, entity, keyArguments(p, table))
		},
	}
}

func rootFieldAST(p graphql.ResolveParams) *ast.Field {
	if len(p.Info.FieldASTs) == 0 {
		return nil
	}
	return p.Info.FieldASTs[0]
}

func inputArgument(p graphql.ResolveParams) (map[string]interface{}, error) {
	values, ok := p.Args["input"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("input argument is required")
	}
	return values, nil
}

func keyArguments(p graphql.ResolveParams, table *metadata.TableDefinition) map[string]interface{} {
	keys := make(map[string]interface{}, len(table.PrimaryKey))
	for _, pk := range table.PrimaryKey {
		keys[pk] = p.Args[pk]
	}
	return keys
}

// columnType maps a column's SQL type to the GraphQL scalar used to expose it.
func columnType(column metadata.ColumnDefinition) graphql.Output {
	switch sqltype.MapKind(column.SystemType) {
	case sqltype.KindInt:
		return graphql.Int
	case sqltype.KindFloat:
		return graphql.Float
	case sqltype.KindBoolean:
		return graphql.Boolean
	default:
		return graphql.String
	}
}

func columnInputType(column metadata.ColumnDefinition) graphql.Input {
	switch sqltype.MapKind(column.SystemType) {
	case sqltype.KindInt:
		return graphql.Int
	case sqltype.KindFloat:
		return graphql.Float
	case sqltype.KindBoolean:
		return graphql.Boolean
	default:
		return graphql.String
	}
}
