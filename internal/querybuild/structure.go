package querybuild

import (
	"dbgateway/internal/cursor"
	"dbgateway/internal/metadata"
)

// DefaultPageSize is the row limit applied when a list query specifies no
// explicit page size.
const DefaultPageSize = 100

// Join is an explicit table join, used for many-to-many linking tables.
type Join struct {
	SchemaName string
	TableName  string
	TableAlias string
	Predicates []Predicate
}

// PaginationMetadata records which parts of the pagination envelope a
// request asked for and the keyset boundary computed from its cursor.
// It back-references its owning structure because the effective limit
// depends on whether hasNextPage was requested.
type PaginationMetadata struct {
	IsPaginated          bool
	RequestedItems       bool
	RequestedEndCursor   bool
	RequestedHasNextPage bool
	Keyset               *KeysetPredicate
	Structure            *QueryStructure
	// Subqueries mirrors the JSON result shape, including the synthetic
	// items-level node for connection fields, so result reshaping can walk
	// metadata and data in lockstep.
	Subqueries map[string]*PaginationMetadata
}

// QueryStructure is the dialect-agnostic representation of one SELECT:
// a table with projections, predicates, joins, correlated subqueries for
// relationship fields, ordering, and pagination. One structure exists per
// field requiring a result set; children are owned by their parent.
type QueryStructure struct {
	EntityName string
	SchemaName string
	TableName  string
	TableAlias string

	// SubqueryAlias names the correlated-join wrapper when this structure
	// is embedded as a subquery of its parent.
	SubqueryAlias string

	PrimaryKey []string
	Columns    []LabelledColumn
	Predicates []Predicate
	Joins      []Join

	Subqueries    map[string]*QueryStructure
	SubqueryOrder []string

	OrderBy     []cursor.OrderColumn
	IsListQuery bool
	First       int // requested page size; 0 means unset
	Pagination  *PaginationMetadata

	ctx *BuildContext
}

func newQueryStructure(ctx *BuildContext, entity string, table *metadata.TableDefinition) *QueryStructure {
	qs := &QueryStructure{
		EntityName: entity,
		SchemaName: table.SchemaName,
		TableName:  table.Name,
		TableAlias: ctx.nextAlias(),
		PrimaryKey: append([]string(nil), table.PrimaryKey...),
		Subqueries: make(map[string]*QueryStructure),
		ctx:        ctx,
	}
	qs.Pagination = &PaginationMetadata{Structure: qs}
	return qs
}

// Context returns the shared per-request build context.
func (q *QueryStructure) Context() *BuildContext {
	return q.ctx
}

// Parameters returns the tree-wide parameter map. Child parameters are
// visible here because the map is shared through the build context; the
// final statement binds every subquery's parameters from this one map.
func (q *QueryStructure) Parameters() map[string]interface{} {
	return q.ctx.Parameters()
}

// Limit returns the row count the rendered query must request.
// Non-list, non-paginated lookups always fetch at most one row. Paginated
// queries over-fetch by one when hasNextPage was requested so the renderer
// can detect that more rows exist.
func (q *QueryStructure) Limit() uint64 {
	if !q.IsListQuery {
		return 1
	}
	requested := q.First
	if requested <= 0 {
		requested = DefaultPageSize
	}
	if q.Pagination != nil && q.Pagination.IsPaginated && q.Pagination.RequestedHasNextPage {
		return uint64(requested) + 1
	}
	return uint64(requested)
}

// CursorColumnNames returns, in cursor order, the column set a cursor for
// this structure must encode: explicit order-by columns first, then any
// primary key columns not already covered.
func (q *QueryStructure) CursorColumnNames() []string {
	names := make([]string, 0, len(q.OrderBy)+len(q.PrimaryKey))
	seen := make(map[string]bool, len(q.OrderBy))
	for _, ob := range q.OrderBy {
		if !seen[ob.Column] {
			names = append(names, ob.Column)
			seen[ob.Column] = true
		}
	}
	for _, pk := range q.PrimaryKey {
		if !seen[pk] {
			names = append(names, pk)
			seen[pk] = true
		}
	}
	return names
}

// ExplicitOrderBy returns the explicit order-by columns without the
// primary key suffix the builder appends for deterministic pagination.
func (q *QueryStructure) ExplicitOrderBy() []cursor.OrderColumn {
	pk := make(map[string]bool, len(q.PrimaryKey))
	for _, name := range q.PrimaryKey {
		pk[name] = true
	}
	explicit := make([]cursor.OrderColumn, 0, len(q.OrderBy))
	for _, ob := range q.OrderBy {
		if pk[ob.Column] && ob.Direction == cursor.Ascending {
			continue
		}
		explicit = append(explicit, ob)
	}
	return explicit
}

// hasColumn reports whether a projection with the given source column
// already exists.
func (q *QueryStructure) hasColumn(name string) bool {
	for _, col := range q.Columns {
		if col.TableAlias == q.TableAlias && col.Name == name {
			return true
		}
	}
	return false
}

func (q *QueryStructure) addColumn(name, label string) {
	q.Columns = append(q.Columns, LabelledColumn{
		Column: Column{Schema: q.SchemaName, TableAlias: q.TableAlias, Name: name},
		Label:  label,
	})
}
