package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueryMetrics holds custom metrics for query construction and execution
type QueryMetrics struct {
	requestDuration metric.Float64Histogram
	requestCounter  metric.Int64Counter
	errorCounter    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	buildCounter    metric.Int64Counter
	renderDuration  metric.Float64Histogram
	cursorFailures  metric.Int64Counter
	resultsCount    metric.Int64Histogram
}

// InitQueryMetrics initializes gateway-specific metrics
func InitQueryMetrics() (*QueryMetrics, error) {
	meter := otel.Meter("dbgateway")

	requestDuration, err := meter.Float64Histogram(
		"gateway.request.duration",
		metric.WithDescription("Duration of gateway requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	requestCounter, err := meter.Int64Counter(
		"gateway.requests.total",
		metric.WithDescription("Total number of gateway requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"gateway.errors.total",
		metric.WithDescription("Total number of gateway request errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"gateway.requests.active",
		metric.WithDescription("Number of active gateway requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}

	buildCounter, err := meter.Int64Counter(
		"gateway.query.builds.total",
		metric.WithDescription("Total number of query structures built"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query build counter: %w", err)
	}

	renderDuration, err := meter.Float64Histogram(
		"gateway.query.render.duration",
		metric.WithDescription("Duration of SQL rendering in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create render duration histogram: %w", err)
	}

	cursorFailures, err := meter.Int64Counter(
		"gateway.cursor.decode_failures.total",
		metric.WithDescription("Total number of pagination tokens that failed to decode"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cursor failure counter: %w", err)
	}

	resultsCount, err := meter.Int64Histogram(
		"gateway.results.count",
		metric.WithDescription("Number of top-level results returned per request"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create results count histogram: %w", err)
	}

	return &QueryMetrics{
		requestDuration: requestDuration,
		requestCounter:  requestCounter,
		errorCounter:    errorCounter,
		activeRequests:  activeRequests,
		buildCounter:    buildCounter,
		renderDuration:  renderDuration,
		cursorFailures:  cursorFailures,
		resultsCount:    resultsCount,
	}, nil
}

// RecordRequest records a gateway request with its duration and outcome
func (m *QueryMetrics) RecordRequest(ctx context.Context, duration time.Duration, hasErrors bool, operationType string) {
	attrs := []attribute.KeyValue{
		attribute.String("operation_type", operationType),
		attribute.Bool("has_errors", hasErrors),
	}

	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if hasErrors {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation_type", operationType),
		))
	}
}

// RecordQueryBuild records a successfully built query structure
func (m *QueryMetrics) RecordQueryBuild(ctx context.Context, entity string, paginated bool) {
	m.buildCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.Bool("paginated", paginated),
	))
}

// RecordRenderDuration records how long rendering a statement took
func (m *QueryMetrics) RecordRenderDuration(ctx context.Context, duration time.Duration, dialect string) {
	m.renderDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("dialect", dialect),
	))
}

// RecordCursorFailure records a pagination token that failed to decode
func (m *QueryMetrics) RecordCursorFailure(ctx context.Context, entity string) {
	m.cursorFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
	))
}

// RecordResultsCount records the number of results returned
func (m *QueryMetrics) RecordResultsCount(ctx context.Context, count int64, entity string) {
	m.resultsCount.Record(ctx, count, metric.WithAttributes(
		attribute.String("entity", entity),
	))
}

// IncrementActiveRequests increments the active requests counter
func (m *QueryMetrics) IncrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, 1)
}

// DecrementActiveRequests decrements the active requests counter
func (m *QueryMetrics) DecrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, -1)
}
