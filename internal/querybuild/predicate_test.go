package querybuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorSQL(t *testing.T) {
	assert.Equal(t, "=", OpEqual.SQL())
	assert.Equal(t, "<>", OpNotEqual.SQL())
	assert.Equal(t, ">", OpGreaterThan.SQL())
	assert.Equal(t, ">=", OpGreaterThanOrEqual.SQL())
	assert.Equal(t, "<", OpLessThan.SQL())
	assert.Equal(t, "<=", OpLessThanOrEqual.SQL())
}

func TestOperatorSQLUnknownPanics(t *testing.T) {
	assert.Panics(t, func() {
		_ = Operator(99).SQL()
	})
}

func TestCreateJoinPredicates(t *testing.T) {
	predicates := CreateJoinPredicates("table1", []string{"author_id", "tenant_id"}, "table0", []string{"id", "tenant_id"})
	require.Len(t, predicates, 2)

	first := predicates[0]
	require.NotNil(t, first.Left.Column)
	require.NotNil(t, first.Right.Column)
	assert.Equal(t, OpEqual, first.Op)
	assert.Equal(t, Column{TableAlias: "table1", Name: "author_id"}, *first.Left.Column)
	assert.Equal(t, Column{TableAlias: "table0", Name: "id"}, *first.Right.Column)

	second := predicates[1]
	assert.Equal(t, Column{TableAlias: "table1", Name: "tenant_id"}, *second.Left.Column)
	assert.Equal(t, Column{TableAlias: "table0", Name: "tenant_id"}, *second.Right.Column)
}

func TestCreateJoinPredicatesArityMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		CreateJoinPredicates("a", []string{"x", "y"}, "b", []string{"x"})
	})
}

func TestBuildContextCounters(t *testing.T) {
	ctx := NewBuildContext(nil)

	p0 := ctx.MakeParamWithValue("a")
	p1 := ctx.MakeParamWithValue(int64(2))
	assert.Equal(t, "param0", p0)
	assert.Equal(t, "param1", p1)
	assert.Equal(t, map[string]interface{}{"param0": "a", "param1": int64(2)}, ctx.Parameters())

	assert.Equal(t, "table0", ctx.nextAlias())
	assert.Equal(t, "table1", ctx.nextAlias())

	// Counters are per context, not global.
	other := NewBuildContext(nil)
	assert.Equal(t, "param0", other.MakeParamWithValue("fresh"))
	assert.Equal(t, "table0", other.nextAlias())
}
