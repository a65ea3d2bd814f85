package querybuild

import (
	"fmt"
	"sort"

	"github.com/graphql-go/graphql/language/ast"

	"dbgateway/internal/cursor"
	"dbgateway/internal/metadata"
	"dbgateway/internal/qerr"
	"dbgateway/internal/sqltype"
)

// Connection envelope field names.
const (
	connectionItemsField       = "items"
	connectionEndCursorField   = "endCursor"
	connectionHasNextPageField = "hasNextPage"
)

// Reserved argument names that never map to table columns.
const (
	argFirst   = "first"
	argAfter   = "after"
	argOrderBy = "orderBy"
)

// Request describes a root GraphQL field to build a query tree for.
// IsList and IsPaginated come from the field's GraphQL output type
// (list-ness after unwrapping non-null, connection-ness from the schema);
// Args are the resolver-coerced arguments and take precedence over
// literals parsed from the AST.
type Request struct {
	Entity      string
	Field       *ast.Field
	Args        map[string]interface{}
	IsList      bool
	IsPaginated bool
}

// BuildFromSelection recursively walks the request's selection set against
// relationship metadata and produces the QueryStructure tree.
func BuildFromSelection(ctx *BuildContext, req Request) (*QueryStructure, error) {
	if req.Field == nil {
		return nil, fmt.Errorf("request field is nil")
	}
	qs, err := build(ctx, req.Entity, req.Field, req.Args, req.IsList, req.IsPaginated, 1)
	if err != nil {
		return nil, err
	}
	// Top-level single-item lookups translate key arguments into equality
	// predicates. This applies only at the root; nested structures are
	// correlated through join predicates instead.
	if !req.IsList && !req.IsPaginated {
		if err := applyKeyArguments(ctx, qs, req); err != nil {
			return nil, err
		}
	}
	return qs, nil
}

func build(ctx *BuildContext, entity string, field *ast.Field, rootArgs map[string]interface{}, isList, isPaginated bool, depth int) (*QueryStructure, error) {
	table, err := ctx.Provider.GetTableDefinition(entity)
	if err != nil {
		return nil, err
	}
	qs := newQueryStructure(ctx, entity, table)
	qs.IsListQuery = isList || isPaginated

	args := mergeArguments(field, rootArgs)

	selection := field.SelectionSet
	meta := qs.Pagination
	if isPaginated {
		meta.IsPaginated = true
		itemsField, err := scanConnectionSelection(meta, selection, field)
		if err != nil {
			return nil, err
		}
		// Traversal continues inside the connection's items selection as if
		// the item type were selected directly. The synthetic items node
		// keeps metadata structurally aligned with the JSON result shape.
		meta.Subqueries = map[string]*PaginationMetadata{
			connectionItemsField: {Structure: qs},
		}
		if itemsField != nil {
			selection = itemsField.SelectionSet
		} else {
			selection = nil
		}
	}

	if selection != nil {
		for _, sel := range selection.Selections {
			sub, ok := sel.(*ast.Field)
			if !ok {
				continue
			}
			name := sub.Name.Value
			if name == "__typename" {
				continue
			}
			if _, isColumn := table.Column(name); isColumn {
				qs.addColumn(name, outputLabel(sub))
				continue
			}
			if err := buildRelationshipField(ctx, qs, entity, sub, depth); err != nil {
				return nil, err
			}
		}
	}

	if err := applyOrderBy(qs, table, args); err != nil {
		return nil, err
	}
	if err := applyFirst(qs, field, args); err != nil {
		return nil, err
	}
	if isPaginated {
		if err := applyPagination(ctx, qs, args); err != nil {
			return nil, err
		}
	}
	appendPrimaryKeyOrdering(qs)
	return qs, nil
}

func buildRelationshipField(ctx *BuildContext, parent *QueryStructure, entity string, field *ast.Field, depth int) error {
	name := field.Name.Value
	rel, err := ctx.Provider.GetRelationship(entity, name)
	if err != nil {
		return qerr.BadRequest("field %s is not defined for entity %s", name, entity)
	}
	if depth+1 > ctx.MaxDepth {
		return qerr.BadRequest("query exceeds maximum relationship depth of %d at field %s", ctx.MaxDepth, name)
	}

	childIsList := rel.Kind == metadata.KindOneToMany || rel.Kind == metadata.KindManyToMany
	childIsPaginated := childIsList && isConnectionSelection(field.SelectionSet)

	child, err := build(ctx, rel.TargetEntity, field, nil, childIsList, childIsPaginated, depth+1)
	if err != nil {
		return err
	}

	switch rel.Kind {
	case metadata.KindManyToOne:
		// Child primary key joins to the parent's foreign key columns.
		child.Predicates = append(child.Predicates,
			CreateJoinPredicates(child.TableAlias, rel.TargetColumns, parent.TableAlias, rel.SourceColumns)...)
	case metadata.KindOneToMany:
		// Parent primary key joins to the child's foreign key columns.
		child.Predicates = append(child.Predicates,
			CreateJoinPredicates(child.TableAlias, rel.TargetColumns, parent.TableAlias, rel.SourceColumns)...)
	case metadata.KindManyToMany:
		// The linking table bridges the two sides with a fresh alias; no
		// direct join exists between parent and child tables.
		linkAlias := ctx.nextAlias()
		child.Joins = append(child.Joins, Join{
			SchemaName: child.SchemaName,
			TableName:  rel.LinkingTable,
			TableAlias: linkAlias,
			Predicates: CreateJoinPredicates(linkAlias, rel.LinkingTargetColumns, child.TableAlias, rel.TargetColumns),
		})
		child.Predicates = append(child.Predicates,
			CreateJoinPredicates(linkAlias, rel.LinkingSourceColumns, parent.TableAlias, rel.SourceColumns)...)
	default:
		return fmt.Errorf("relationship %s on entity %s: %w", name, entity, qerr.ErrUnsupportedRelationship)
	}

	label := outputLabel(field)
	child.SubqueryAlias = ctx.nextAlias()
	parent.Subqueries[label] = child
	parent.SubqueryOrder = append(parent.SubqueryOrder, label)
	// The parent projects the subquery's aggregated JSON output column so
	// its own JSON aggregation can embed the nested result.
	parent.Columns = append(parent.Columns, LabelledColumn{
		Column: Column{TableAlias: child.SubqueryAlias, Name: "data"},
		Label:  label,
	})
	// Metadata mirrors the data tree for every relationship field, not just
	// paginated ones, so reshaping can reach envelopes at any depth.
	if parent.Pagination.Subqueries == nil {
		parent.Pagination.Subqueries = make(map[string]*PaginationMetadata)
	}
	parent.Pagination.Subqueries[label] = child.Pagination
	return nil
}

// scanConnectionSelection records which envelope fields were requested and
// returns the items field, if selected.
func scanConnectionSelection(meta *PaginationMetadata, selection *ast.SelectionSet, field *ast.Field) (*ast.Field, error) {
	if selection == nil {
		return nil, qerr.BadRequest("connection field %s requires a selection set", field.Name.Value)
	}
	var items *ast.Field
	for _, sel := range selection.Selections {
		sub, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		switch sub.Name.Value {
		case connectionItemsField:
			meta.RequestedItems = true
			items = sub
		case connectionEndCursorField:
			meta.RequestedEndCursor = true
		case connectionHasNextPageField:
			meta.RequestedHasNextPage = true
		}
	}
	return items, nil
}

// isConnectionSelection detects the connection envelope structurally: a
// selection consisting solely of items/endCursor/hasNextPage fields.
func isConnectionSelection(selection *ast.SelectionSet) bool {
	if selection == nil {
		return false
	}
	sawEnvelope := false
	for _, sel := range selection.Selections {
		sub, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		switch sub.Name.Value {
		case connectionItemsField, connectionEndCursorField, connectionHasNextPageField:
			sawEnvelope = true
		case "__typename":
		default:
			return false
		}
	}
	return sawEnvelope
}

func applyFirst(qs *QueryStructure, field *ast.Field, args map[string]interface{}) error {
	raw, ok := args[argFirst]
	if !ok || raw == nil {
		return nil
	}
	value, ok := asInt(raw)
	if !ok || value <= 0 {
		return qerr.BadRequest("invalid value for first on field %s: must be a positive integer", field.Name.Value)
	}
	qs.First = value
	return nil
}

func applyOrderBy(qs *QueryStructure, table *metadata.TableDefinition, args map[string]interface{}) error {
	raw, ok := args[argOrderBy]
	if !ok || raw == nil {
		return nil
	}
	var ordered []cursor.OrderColumn
	switch v := raw.(type) {
	case []cursor.OrderColumn:
		ordered = v
	case map[string]interface{}:
		// Resolver-coerced maps lose field order; sort for determinism.
		for _, name := range sortedKeys(v) {
			direction, _ := v[name].(string)
			ordered = append(ordered, cursor.OrderColumn{Column: name, Direction: cursor.Direction(direction)})
		}
	default:
		return qerr.BadRequest("orderBy must be an object of column to direction entries")
	}
	for _, ob := range ordered {
		if _, exists := table.Column(ob.Column); !exists {
			return qerr.BadRequest("orderBy column %s is not defined for entity %s", ob.Column, qs.EntityName)
		}
		if ob.Direction != cursor.Ascending && ob.Direction != cursor.Descending {
			return qerr.BadRequest("orderBy direction for column %s must be ASC or DESC", ob.Column)
		}
		qs.OrderBy = append(qs.OrderBy, ob)
	}
	return nil
}

// applyPagination decodes the after cursor into a keyset predicate and
// guarantees the projection carries everything the next cursor needs.
func applyPagination(ctx *BuildContext, qs *QueryStructure, args map[string]interface{}) error {
	// Primary key columns must be present in the projection even when not
	// requested: the next cursor is built from them.
	for _, pk := range qs.PrimaryKey {
		if !qs.hasColumn(pk) {
			qs.addColumn(pk, pk)
		}
	}
	if len(qs.Columns) == 0 {
		// Client asked only for hasNextPage; keep the query well-formed.
		qs.addColumn(qs.PrimaryKey[0], qs.PrimaryKey[0])
	}

	raw, ok := args[argAfter]
	if !ok || raw == nil {
		return nil // first page, no keyset predicate
	}
	token, ok := raw.(string)
	if !ok {
		return qerr.BadRequest("invalid pagination token")
	}

	expected := qs.CursorColumnNames()
	parsed, err := cursor.ParseCursor(token, expected)
	if err != nil {
		return err
	}
	byName := make(map[string]cursor.PaginationColumn, len(parsed))
	for _, col := range parsed {
		byName[col.ColumnName] = col
	}

	keyset := &KeysetPredicate{Columns: make([]KeysetColumn, 0, len(expected))}
	for _, name := range expected {
		col := byName[name]
		param := ctx.MakeParamWithValue(col.Value)
		keyset.Columns = append(keyset.Columns, KeysetColumn{
			Column:    Column{Schema: qs.SchemaName, TableAlias: qs.TableAlias, Name: name},
			Param:     param,
			Direction: orderDirection(qs, name),
		})
	}
	qs.Pagination.Keyset = keyset
	return nil
}

// orderDirection returns the direction the query's ordering gives a
// column. Columns outside the explicit order-by are the primary key
// padding, which always sorts ascending.
func orderDirection(qs *QueryStructure, name string) cursor.Direction {
	for _, ob := range qs.OrderBy {
		if ob.Column == name {
			return ob.Direction
		}
	}
	return cursor.Ascending
}

// appendPrimaryKeyOrdering pads the order-by with the remaining primary
// key columns ascending so pagination boundaries stay deterministic even
// without an explicit orderBy.
func appendPrimaryKeyOrdering(qs *QueryStructure) {
	covered := make(map[string]bool, len(qs.OrderBy))
	for _, ob := range qs.OrderBy {
		covered[ob.Column] = true
	}
	for _, pk := range qs.PrimaryKey {
		if !covered[pk] {
			qs.OrderBy = append(qs.OrderBy, cursor.OrderColumn{Column: pk, Direction: cursor.Ascending})
		}
	}
}

// applyKeyArguments converts root lookup arguments into equality
// predicates against the table's columns, validating each value against
// the column's declared system type.
func applyKeyArguments(ctx *BuildContext, qs *QueryStructure, req Request) error {
	table, err := ctx.Provider.GetTableDefinition(req.Entity)
	if err != nil {
		return err
	}
	args := mergeArguments(req.Field, req.Args)
	for name, raw := range args {
		switch name {
		case argFirst, argAfter, argOrderBy:
			continue
		}
		column, ok := table.Column(name)
		if !ok {
			return qerr.BadRequest("argument %s is not a column of entity %s", name, req.Entity)
		}
		value, err := sqltype.CoerceLiteral(raw, column.Name, column.SystemType)
		if err != nil {
			return err
		}
		param := ctx.MakeParamWithValue(value)
		qs.Predicates = append(qs.Predicates, Predicate{
			Left:  ColumnOperand(Column{Schema: qs.SchemaName, TableAlias: qs.TableAlias, Name: name}),
			Op:    OpEqual,
			Right: ParamOperand(param),
		})
	}
	return nil
}

// outputLabel returns the JSON key a field projects under: the alias when
// one was given, the field name otherwise.
func outputLabel(field *ast.Field) string {
	if field.Alias != nil && field.Alias.Value != "" {
		return field.Alias.Value
	}
	return field.Name.Value
}

// mergeArguments combines AST argument literals with resolver-coerced
// arguments; the latter win because they have variables substituted.
func mergeArguments(field *ast.Field, coerced map[string]interface{}) map[string]interface{} {
	args := make(map[string]interface{})
	for _, arg := range field.Arguments {
		if value, ok := literalValue(arg.Value); ok {
			args[arg.Name.Value] = value
		}
	}
	for name, value := range coerced {
		args[name] = value
	}
	return args
}

// literalValue converts an AST literal to a Go value. Variables are left
// to the resolver-coerced argument map.
func literalValue(value ast.Value) (interface{}, bool) {
	switch v := value.(type) {
	case *ast.IntValue:
		if parsed, ok := asInt(v.Value); ok {
			return parsed, true
		}
		return nil, false
	case *ast.FloatValue:
		return v.Value, true
	case *ast.StringValue:
		return v.Value, true
	case *ast.BooleanValue:
		return v.Value, true
	case *ast.EnumValue:
		return v.Value, true
	case *ast.ObjectValue:
		// Object literals keep field order, which matters for orderBy.
		ordered := make([]cursor.OrderColumn, 0, len(v.Fields))
		for _, f := range v.Fields {
			direction, _ := literalValue(f.Value)
			str, _ := direction.(string)
			ordered = append(ordered, cursor.OrderColumn{Column: f.Name.Value, Direction: cursor.Direction(str)})
		}
		return ordered, true
	default:
		return nil, false
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func asInt(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	case string:
		var parsed int
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
