// Package dialect renders completed query structures into SQL text for
// SQL Server, PostgreSQL, and MySQL. Each renderer is a pure function of
// the structure: the only per-dialect state is identifier quoting and
// placeholder syntax.
package dialect

import (
	"fmt"

	"dbgateway/internal/metadata"
	"dbgateway/internal/querybuild"
)

// Statement is a rendered SQL statement plus its parameter bindings. It is
// an immutable value handed to the execution layer.
type Statement struct {
	SQL    string
	Params map[string]interface{}
	// ParamOrder is set when the SQL uses positional placeholders; it
	// lists parameter names in placeholder order.
	ParamOrder []string
	// FollowUp is a second statement some dialects need to return mutated
	// row values (e.g. MySQL's read-back after INSERT). The row result is
	// taken from whichever statement yields rows.
	FollowUp *Statement
}

// Renderer turns query structures and mutation descriptors into
// dialect-correct SQL.
type Renderer interface {
	Name() string
	QuoteIdentifier(name string) string
	Render(q *querybuild.QueryStructure) (*Statement, error)
	RenderInsert(table *metadata.TableDefinition, values map[string]interface{}) (*Statement, error)
	RenderUpdate(table *metadata.TableDefinition, keys, values map[string]interface{}) (*Statement, error)
	RenderDelete(table *metadata.TableDefinition, keys map[string]interface{}) (*Statement, error)
}

// For returns the renderer for a dialect name as it appears in
// configuration.
func For(name string) (Renderer, error) {
	switch name {
	case "mysql":
		return MySQL{}, nil
	case "postgresql", "postgres":
		return Postgres{}, nil
	case "mssql", "sqlserver":
		return MSSQL{}, nil
	default:
		return nil, fmt.Errorf("unknown sql dialect %q", name)
	}
}
