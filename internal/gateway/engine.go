package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dbgateway/internal/dbexec"
	"dbgateway/internal/dialect"
	"dbgateway/internal/metadata"
	"dbgateway/internal/observability"
	"dbgateway/internal/qerr"
	"dbgateway/internal/querybuild"
	"dbgateway/internal/reshape"
	"dbgateway/internal/sqltype"
)

// Engine runs the request pipeline: build a query structure, render it for
// the configured dialect, execute it, and reshape the JSON result.
type Engine struct {
	store           *metadata.Store
	renderer        dialect.Renderer
	executor        dbexec.QueryExecutor
	metrics         *observability.QueryMetrics
	maxDepth        int
	defaultPageSize int
	maxPageSize     int
}

// EngineConfig holds the collaborators and limits for an Engine.
type EngineConfig struct {
	Store           *metadata.Store
	Renderer        dialect.Renderer
	Executor        dbexec.QueryExecutor
	Metrics         *observability.QueryMetrics
	MaxDepth        int
	DefaultPageSize int
	MaxPageSize     int
}

// NewEngine creates an Engine from its configuration.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		store:           cfg.Store,
		renderer:        cfg.Renderer,
		executor:        cfg.Executor,
		metrics:         cfg.Metrics,
		maxDepth:        cfg.MaxDepth,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
	}
}

func (e *Engine) newBuildContext() *querybuild.BuildContext {
	ctx := querybuild.NewBuildContext(e.store)
	if e.maxDepth > 0 {
		ctx.MaxDepth = e.maxDepth
	}
	return ctx
}

// RunSelection executes a GraphQL selection and returns the decoded result
// for the resolver to hand back to the schema layer.
func (e *Engine) RunSelection(ctx context.Context, req querybuild.Request) (interface{}, error) {
	raw, meta, err := e.runQuery(ctx, func(bctx *querybuild.BuildContext) (*querybuild.QueryStructure, error) {
		return querybuild.BuildFromSelection(bctx, req)
	}, req.Entity)
	if err != nil {
		return nil, err
	}

	reshaped, err := reshape.Reshape(raw, meta)
	if err != nil {
		return nil, err
	}

	var out interface{}
	if err := json.Unmarshal(reshaped, &out); err != nil {
		return nil, fmt.Errorf("decode reshaped result: %w", err)
	}
	if e.metrics != nil {
		if envelope, ok := out.(map[string]interface{}); ok {
			if items, ok := envelope["items"].([]interface{}); ok {
				e.metrics.RecordResultsCount(ctx, int64(len(items)), req.Entity)
			}
		}
	}
	return out, nil
}

// RunRest executes a REST query and returns the response body JSON.
func (e *Engine) RunRest(ctx context.Context, req querybuild.RestRequest) (json.RawMessage, error) {
	raw, meta, err := e.runQuery(ctx, func(bctx *querybuild.BuildContext) (*querybuild.QueryStructure, error) {
		return querybuild.BuildFromRest(bctx, req)
	}, req.Entity)
	if err != nil {
		return nil, err
	}
	return reshape.Reshape(raw, meta)
}

func (e *Engine) runQuery(ctx context.Context, build func(*querybuild.BuildContext) (*querybuild.QueryStructure, error), entity string) (json.RawMessage, *querybuild.PaginationMetadata, error) {
	bctx := e.newBuildContext()
	qs, err := build(bctx)
	if err != nil {
		e.recordBuildFailure(ctx, entity, err)
		return nil, nil, err
	}
	if err := e.applyPageLimits(qs); err != nil {
		return nil, nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordQueryBuild(ctx, entity, qs.Pagination.IsPaginated)
	}

	stmt, err := e.render(ctx, qs)
	if err != nil {
		return nil, nil, err
	}
	raw, err := dbexec.QueryJSON(ctx, e.executor, e.renderer.Name(), stmt)
	if err != nil {
		return nil, nil, err
	}
	return raw, qs.Pagination, nil
}

func (e *Engine) render(ctx context.Context, qs *querybuild.QueryStructure) (*dialect.Statement, error) {
	start := time.Now()
	stmt, err := e.renderer.Render(qs)
	if e.metrics != nil {
		e.metrics.RecordRenderDuration(ctx, time.Since(start), e.renderer.Name())
	}
	return stmt, err
}

// applyPageLimits fills in the configured default page size and enforces the
// maximum across the whole query tree.
func (e *Engine) applyPageLimits(qs *querybuild.QueryStructure) error {
	if qs.IsListQuery {
		if qs.First == 0 && e.defaultPageSize > 0 {
			qs.First = e.defaultPageSize
		}
		if e.maxPageSize > 0 && qs.First > e.maxPageSize {
			return qerr.BadRequest("page size %d exceeds maximum of %d for entity %s", qs.First, e.maxPageSize, qs.EntityName)
		}
	}
	for _, label := range qs.SubqueryOrder {
		if err := e.applyPageLimits(qs.Subqueries[label]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) recordBuildFailure(ctx context.Context, entity string, err error) {
	if e.metrics == nil {
		return
	}
	if qerr.IsBadRequest(err) && strings.Contains(err.Error(), "pagination token") {
		e.metrics.RecordCursorFailure(ctx, entity)
	}
}

// Insert creates a row for the entity and returns the stored row.
func (e *Engine) Insert(ctx context.Context, entity string, values map[string]interface{}) (map[string]interface{}, error) {
	table, err := e.store.GetTableDefinition(entity)
	if err != nil {
		return nil, err
	}
	coerced, err := e.coerceColumnValues(table, entity, values)
	if err != nil {
		return nil, err
	}
	stmt, err := e.renderer.RenderInsert(table, coerced)
	if err != nil {
		return nil, err
	}
	return dbexec.QueryRow(ctx, e.executor, e.renderer.Name(), stmt)
}

// Update modifies the row identified by keys and returns the updated row.
func (e *Engine) Update(ctx context.Context, entity string, keys, values map[string]interface{}) (map[string]interface{}, error) {
	table, err := e.store.GetTableDefinition(entity)
	if err != nil {
		return nil, err
	}
	coercedKeys, err := e.coerceColumnValues(table, entity, keys)
	if err != nil {
		return nil, err
	}
	coercedValues, err := e.coerceColumnValues(table, entity, values)
	if err != nil {
		return nil, err
	}
	stmt, err := e.renderer.RenderUpdate(table, coercedKeys, coercedValues)
	if err != nil {
		return nil, err
	}
	return dbexec.QueryRow(ctx, e.executor, e.renderer.Name(), stmt)
}

// Delete removes the row identified by keys and returns the deleted row.
func (e *Engine) Delete(ctx context.Context, entity string, keys map[string]interface{}) (map[string]interface{}, error) {
	table, err := e.store.GetTableDefinition(entity)
	if err != nil {
		return nil, err
	}
	coercedKeys, err := e.coerceColumnValues(table, entity, keys)
	if err != nil {
		return nil, err
	}
	stmt, err := e.renderer.RenderDelete(table, coercedKeys)
	if err != nil {
		return nil, err
	}
	return dbexec.QueryRow(ctx, e.executor, e.renderer.Name(), stmt)
}

// coerceColumnValues validates every name against the table's columns and
// coerces each value to the column's declared type.
func (e *Engine) coerceColumnValues(table *metadata.TableDefinition, entity string, raw map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(raw))
	for name, value := range raw {
		column, ok := table.Column(name)
		if !ok {
			return nil, qerr.BadRequest("field %s is not defined for entity %s", name, entity)
		}
		if value == nil {
			out[name] = nil
			continue
		}
		coerced, err := sqltype.CoerceLiteral(value, column.Name, column.SystemType)
		if err != nil {
			return nil, err
		}
		out[name] = coerced
	}
	return out, nil
}
