package db

import (
	"context"
	"database/sql"
	"fmt"
)

// sqlClient carries the database/sql plumbing shared by the MySQL, SQLite and SQL Server engines.
// Every statement runs on one pinned connection so session state (temporary tables,
// sql_mode, in-memory databases) survives between calls.
type sqlClient struct {
	db   *sql.DB
	conn *sql.Conn
}

func newSQLClient(ctx context.Context, db *sql.DB) (sqlClient, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return sqlClient{}, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return sqlClient{db: db, conn: conn}, nil
}

// Ping checks the connection
func (c sqlClient) Ping(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

// Exec runs one statement
func (c sqlClient) Exec(ctx context.Context, stmt string) error {
	_, err := c.conn.ExecContext(ctx, stmt)
	return err
}

// FetchAll runs a query and collects rows as column-name maps.
// Text values that drivers hand back as []byte are converted to strings.
func (c sqlClient) FetchAll(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// Close releases the pinned connection and the pool behind it
func (c sqlClient) Close(context.Context) error {
	connErr := c.conn.Close()
	if err := c.db.Close(); err != nil {
		return err
	}
	return connErr
}

// Conn returns the pinned connection
func (c sqlClient) Conn() *sql.Conn {
	return c.conn
}

// stringValue reads a FetchAll cell as a string
func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

// intValue reads a FetchAll cell as an int
func intValue(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	case uint64:
		return int(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		var i int
		_, _ = fmt.Sscan(stringValue(v), &i)
		return i
	}
}
