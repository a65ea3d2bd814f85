// Package dbexec executes rendered statements against the configured
// database. It opens per-dialect connection pools instrumented with
// otelsql and binds the statement parameter map using each driver's
// placeholder convention.
package dbexec

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Rows abstracts sql.Rows to allow wrapped cleanup behavior.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// QueryExecutor abstracts SQL execution so tests can swap in fakes.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// StandardExecutor executes queries directly against a database handle.
type StandardExecutor struct {
	db *sql.DB
}

// NewStandardExecutor creates an executor that runs queries directly
// against the database.
func NewStandardExecutor(db *sql.DB) *StandardExecutor {
	return &StandardExecutor{db: db}
}

func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

func (e *StandardExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.ExecContext(ctx, query, args...)
}

// PoolConfig holds connection pool sizing.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens an instrumented connection pool for the named dialect.
func Open(dialectName, dsn string, pool PoolConfig) (*sql.DB, error) {
	driver, system, err := driverFor(dialectName)
	if err != nil {
		return nil, err
	}
	db, err := otelsql.Open(driver, dsn, otelsql.WithAttributes(system))
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", dialectName, err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if _, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(system)); err != nil {
		return nil, fmt.Errorf("register db stats metrics: %w", err)
	}
	return db, nil
}

func driverFor(dialectName string) (string, attribute.KeyValue, error) {
	switch dialectName {
	case "mysql":
		return "mysql", semconv.DBSystemMySQL, nil
	case "postgresql", "postgres":
		return "pgx", semconv.DBSystemPostgreSQL, nil
	case "mssql", "sqlserver":
		return "sqlserver", semconv.DBSystemMSSQL, nil
	default:
		return "", attribute.KeyValue{}, fmt.Errorf("unknown sql dialect %q", dialectName)
	}
}
