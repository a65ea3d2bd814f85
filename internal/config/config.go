// Package config loads configuration from files, env vars, and flags, and validates it.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	Entities      EntitiesConfig      `mapstructure:"entities"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// DatabaseConfig holds database connection parameters.
type DatabaseConfig struct {
	Dialect        string     `mapstructure:"dialect"` // mysql, postgresql, mssql
	Host           string     `mapstructure:"host"`
	Port           int        `mapstructure:"port"`
	User           string     `mapstructure:"user"`
	Password       string     `mapstructure:"password"`
	PasswordFile   string     `mapstructure:"password_file"`
	PasswordPrompt bool       `mapstructure:"password_prompt"`
	Database       string     `mapstructure:"database"`
	Pool           PoolConfig `mapstructure:"pool"`
}

// PoolConfig holds connection pool sizing.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
	MaxQueryDepth   int           `mapstructure:"max_query_depth"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EntitiesConfig points at the entity definition file that drives the
// exposed API surface.
type EntitiesConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// ObservabilityConfig holds observability parameters.
type ObservabilityConfig struct {
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Environment    string        `mapstructure:"environment"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
	TracingEnabled bool          `mapstructure:"tracing_enabled"`
	Logging        LoggingConfig `mapstructure:"logging"`
}

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors []ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns validation results.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Database.validate(result)
	c.Server.validate(result)
	c.Entities.validate(result)
	c.Observability.validate(result)
	return result
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	validDialects := map[string]bool{
		"mysql": true, "postgresql": true, "postgres": true,
		"mssql": true, "sqlserver": true,
	}
	if !validDialects[d.Dialect] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.dialect",
			Message: fmt.Sprintf("invalid dialect %q", d.Dialect),
			Hint:    "valid values are: mysql, postgresql, mssql",
		})
	}

	if d.Port < 1 || d.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port),
		})
	}

	if d.Pool.MaxOpen < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.pool.max_open",
			Message: "max_open cannot be negative",
		})
	}
	if d.Pool.MaxIdle < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.pool.max_idle",
			Message: "max_idle cannot be negative",
		})
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if s.Port < 1 || s.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port),
		})
	}

	if s.DefaultPageSize < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.default_page_size",
			Message: "default_page_size must be greater than 0",
		})
	}
	if s.MaxPageSize > 0 && s.MaxPageSize < s.DefaultPageSize {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.max_page_size",
			Message: "max_page_size is smaller than default_page_size",
			Hint:    "raise max_page_size or lower default_page_size",
		})
	}
	if s.MaxQueryDepth < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.max_query_depth",
			Message: "max_query_depth must be greater than 0",
		})
	}
}

func (e *EntitiesConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(e.Path) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "entities.path",
			Message: "entity definition file path is required",
			Hint:    "set entities.path to the YAML file describing tables and relationships",
		})
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.level",
			Message: fmt.Sprintf("invalid log level %q", o.Logging.Level),
			Hint:    "valid values are: debug, info, warn, error",
		})
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.format",
			Message: fmt.Sprintf("invalid log format %q", o.Logging.Format),
			Hint:    "valid values are: json, text",
		})
	}
}
