// Package querybuild constructs dialect-agnostic query structures from
// GraphQL selections and REST request contexts. A QueryStructure tree is
// built once per request, consulting entity metadata for relationships,
// and handed to a dialect renderer for SQL generation.
package querybuild

import (
	"strconv"

	"dbgateway/internal/metadata"
)

// DefaultMaxDepth bounds relationship recursion. Entity graphs may be
// cyclic (self-referential or mutually-referential relationships), so the
// walk is budgeted rather than memoized: the same entity appearing twice
// on different paths is a distinct subquery.
const DefaultMaxDepth = 8

// BuildContext carries the mutable state shared by every QueryStructure in
// one tree: the alias and parameter counters and the parameter value map.
// It is scoped to exactly one request build and must never be shared
// across concurrent requests.
type BuildContext struct {
	Provider metadata.Provider
	MaxDepth int

	paramCounter int
	aliasCounter int
	params       map[string]interface{}
}

// NewBuildContext creates a fresh per-request build context.
func NewBuildContext(provider metadata.Provider) *BuildContext {
	return &BuildContext{
		Provider: provider,
		MaxDepth: DefaultMaxDepth,
		params:   make(map[string]interface{}),
	}
}

// MakeParamWithValue assigns a fresh unique parameter name (param0,
// param1, ...) mapped to value. Names never collide across subqueries
// because the counter is shared by the whole tree.
func (c *BuildContext) MakeParamWithValue(value interface{}) string {
	name := "param" + strconv.Itoa(c.paramCounter)
	c.paramCounter++
	c.params[name] = value
	return name
}

// Parameters returns the accumulated name to value map for the tree.
// The rendered statement binds against this single map.
func (c *BuildContext) Parameters() map[string]interface{} {
	return c.params
}

// nextAlias returns a table alias unique within the whole tree.
func (c *BuildContext) nextAlias() string {
	alias := "table" + strconv.Itoa(c.aliasCounter)
	c.aliasCounter++
	return alias
}
