package querybuild

import (
	"sort"

	"dbgateway/internal/metadata"
	"dbgateway/internal/qerr"
	"dbgateway/internal/sqltype"
)

// RestRequest describes a REST request context: an entity, an optional
// field projection, and up to two predicate sources. KeyValues carry raw
// path-parameter strings; BodyValues carry decoded JSON body fields used
// for update-by-key operations. Both convert to equality predicates with
// type coercion validated against column metadata.
type RestRequest struct {
	Entity     string
	Fields     []string
	KeyValues  map[string]string
	BodyValues map[string]interface{}
	First      int
	After      string
}

// BuildFromRest builds one flat QueryStructure from a REST request.
// The REST path performs no relationship traversal.
func BuildFromRest(ctx *BuildContext, req RestRequest) (*QueryStructure, error) {
	table, err := ctx.Provider.GetTableDefinition(req.Entity)
	if err != nil {
		return nil, err
	}
	qs := newQueryStructure(ctx, req.Entity, table)
	qs.IsListQuery = len(req.KeyValues) == 0

	fields := req.Fields
	if len(fields) == 0 {
		fields = table.ColumnNames()
	}
	for _, field := range fields {
		if _, ok := table.Column(field); !ok {
			return nil, qerr.BadRequest("field %s is not defined for entity %s", field, req.Entity)
		}
		qs.addColumn(field, field)
	}

	for _, name := range sortedStringKeys(req.KeyValues) {
		if err := addEqualityPredicate(ctx, qs, table, name, req.KeyValues[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(req.BodyValues) {
		if err := addEqualityPredicate(ctx, qs, table, name, req.BodyValues[name]); err != nil {
			return nil, err
		}
	}

	if req.First != 0 {
		if req.First < 0 {
			return nil, qerr.BadRequest("invalid value for first on entity %s: must be a positive integer", req.Entity)
		}
		qs.First = req.First
	}
	appendPrimaryKeyOrdering(qs)

	if qs.IsListQuery {
		qs.Pagination.IsPaginated = true
		qs.Pagination.RequestedItems = true
		qs.Pagination.RequestedEndCursor = true
		qs.Pagination.RequestedHasNextPage = true
		if err := applyPagination(ctx, qs, map[string]interface{}{argAfter: optionalToken(req.After)}); err != nil {
			return nil, err
		}
	}
	return qs, nil
}

func addEqualityPredicate(ctx *BuildContext, qs *QueryStructure, table *metadata.TableDefinition, name string, raw interface{}) error {
	column, ok := table.Column(name)
	if !ok {
		return qerr.BadRequest("field %s is not defined for entity %s", name, qs.EntityName)
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
	return nil
}

func optionalToken(token string) interface{} {
	if token == "" {
		return nil
	}
	return token
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
