package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// DSN builds the driver connection string for the configured dialect.
func (d *DatabaseConfig) DSN() (string, error) {
	switch d.Dialect {
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s)/%s?parseTime=true",
			d.User,
			d.Password,
			net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
			d.Database,
		), nil
	case "postgresql", "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
			Path:   "/" + d.Database,
		}
		return u.String(), nil
	case "mssql", "sqlserver":
		query := url.Values{}
		query.Set("database", d.Database)
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(d.User, d.Password),
			Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
			RawQuery: query.Encode(),
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("unknown sql dialect %q", d.Dialect)
	}
}
