package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect:  "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "dbgateway",
			Database: "library",
			Pool:     PoolConfig{MaxOpen: 25, MaxIdle: 5},
		},
		Server: ServerConfig{
			Port:            8080,
			DefaultPageSize: 100,
			MaxQueryDepth:   8,
		},
		Entities: EntitiesConfig{Path: "entities.yaml"},
		Observability: ObservabilityConfig{
			ServiceName: "dbgateway",
			Logging:     LoggingConfig{Level: "info", Format: "json"},
		},
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	result := validConfig().Validate()
	assert.False(t, result.HasErrors(), result.Error())
}

func TestValidateAcceptsAllDialects(t *testing.T) {
	for _, dialect := range []string{"mysql", "postgresql", "postgres", "mssql", "sqlserver"} {
		cfg := validConfig()
		cfg.Database.Dialect = dialect
		result := cfg.Validate()
		assert.False(t, result.HasErrors(), "dialect %s: %s", dialect, result.Error())
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "unknown dialect",
			mutate:    func(c *Config) { c.Database.Dialect = "oracle" },
			wantField: "database.dialect",
		},
		{
			name:      "database port out of range",
			mutate:    func(c *Config) { c.Database.Port = 0 },
			wantField: "database.port",
		},
		{
			name:      "negative pool size",
			mutate:    func(c *Config) { c.Database.Pool.MaxOpen = -1 },
			wantField: "database.pool.max_open",
		},
		{
			name:      "server port out of range",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantField: "server.port",
		},
		{
			name:      "zero default page size",
			mutate:    func(c *Config) { c.Server.DefaultPageSize = 0 },
			wantField: "server.default_page_size",
		},
		{
			name: "max page size below default",
			mutate: func(c *Config) {
				c.Server.DefaultPageSize = 100
				c.Server.MaxPageSize = 10
			},
			wantField: "server.max_page_size",
		},
		{
			name:      "zero query depth",
			mutate:    func(c *Config) { c.Server.MaxQueryDepth = 0 },
			wantField: "server.max_query_depth",
		},
		{
			name:      "missing entities path",
			mutate:    func(c *Config) { c.Entities.Path = "  " },
			wantField: "entities.path",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Observability.Logging.Level = "verbose" },
			wantField: "observability.logging.level",
		},
		{
			name:      "bad log format",
			mutate:    func(c *Config) { c.Observability.Logging.Format = "xml" },
			wantField: "observability.logging.format",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			result := cfg.Validate()
			require.True(t, result.HasErrors())

			fields := make([]string, len(result.Errors))
			for i, e := range result.Errors {
				fields[i] = e.Field
			}
			assert.Contains(t, fields, tc.wantField)
		})
	}
}

func TestValidationErrorFormatting(t *testing.T) {
	withHint := ValidationError{Field: "database.dialect", Message: "bad", Hint: "use mysql"}
	assert.Equal(t, "database.dialect: bad (hint: use mysql)", withHint.Error())

	withoutHint := ValidationError{Field: "server.port", Message: "bad"}
	assert.Equal(t, "server.port: bad", withoutHint.Error())

	result := &ValidationResult{Errors: []ValidationError{withoutHint, withHint}}
	assert.Equal(t, "server.port: bad; database.dialect: bad (hint: use mysql)", result.Error())

	empty := &ValidationResult{}
	assert.Empty(t, empty.Error())
}
