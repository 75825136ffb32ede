package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/tordrt/schemareflect/internal/schema"
)

// ErrTableNotFound is returned by ReflectTable when the catalog has no columns for the table
var ErrTableNotFound = errors.New("table not found")

// Engine is one open database connection able to run DDL and read its own catalog.
// Implementations hold exactly one session so temporary tables stay visible between calls.
type Engine interface {
	// Dialect describes quoting and DDL conventions of the engine
	Dialect() Dialect

	// Ping verifies the connection is alive
	Ping(ctx context.Context) error

	// Exec runs a single DDL/DML statement
	Exec(ctx context.Context, stmt string) error

	// FetchAll runs a query and returns every row keyed by column name
	FetchAll(ctx context.Context, query string, args ...any) ([]map[string]any, error)

	// TableNames lists base tables of a schema
	TableNames(ctx context.Context, schemaName string) ([]string, error)

	// ReflectTable reads one table's structure from the catalog
	ReflectTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error)

	// Close releases the connection
	Close(ctx context.Context) error
}

// Open parses a database URL and connects with the matching engine
func Open(ctx context.Context, databaseURL string) (Engine, error) {
	dbType, connStr, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	switch dbType {
	case "postgres":
		client, err := NewPostgresClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return client, nil
	case "mysql":
		client, err := NewMySQLClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		return client, nil
	case "sqlite":
		client, err := NewSQLiteClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		return client, nil
	case "mssql":
		client, err := NewMSSQLClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQL Server: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// ParseDatabaseURL detects the database type and returns the driver connection string.
// SQLAlchemy-style "dialect+driver://" schemes are accepted; the driver part is ignored.
func ParseDatabaseURL(rawURL string) (dbType, connectionStr string, err error) {
	if rawURL == "" {
		return "", "", fmt.Errorf("database URL is required")
	}

	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return "", "", fmt.Errorf("invalid database URL (missing scheme)")
	}
	dialect, _, _ := strings.Cut(strings.ToLower(scheme), "+")

	switch dialect {
	case "postgres", "postgresql":
		return "postgres", dialect + "://" + rest, nil
	case "mysql":
		dsn, err := mysqlDSN(rest)
		if err != nil {
			return "", "", err
		}
		return "mysql", dsn, nil
	case "sqlite", "sqlite3":
		// sqlite:///abs/path keeps its leading slash, sqlite://rel/path stays relative
		return "sqlite", rest, nil
	case "sqlserver", "mssql":
		return "mssql", "sqlserver://" + rest, nil
	}

	return "", "", fmt.Errorf("invalid database URL scheme (must start with postgres://, mysql://, sqlite://, or sqlserver://)")
}

// mysqlDSN accepts either a Go driver DSN (user:pass@tcp(host:port)/db) or a URL
// authority form (user:pass@host:port/db) and returns a Go driver DSN.
func mysqlDSN(rest string) (string, error) {
	if strings.Contains(rest, "@tcp(") || strings.Contains(rest, "@unix(") {
		return rest, nil
	}

	u, err := url.Parse("mysql://" + rest)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL URL: %w", err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = u.Host + ":3306"
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	return cfg.FormatDSN(), nil
}
