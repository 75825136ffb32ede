// Package testhelpers starts throwaway database containers for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the server image used by the integration tests.
const PostgresImage = "postgres:16-alpine"

// MySQLImage is the server image used by the MySQL integration tests.
const MySQLImage = "mysql:8.4"

// TestDB holds a shared database container and the URL to reach it.
type TestDB struct {
	Container testcontainers.Container
	URL       string
}

var (
	sharedPostgres     *TestDB
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error

	sharedMySQL     *TestDB
	sharedMySQLOnce sync.Once
	sharedMySQLErr  error
)

// GetPostgres returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetPostgres(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPostgresOnce.Do(func() {
		sharedPostgres, sharedPostgresErr = startContainer(testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "reflect_test",
				"POSTGRES_USER":     "reflect",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		}, "5432", "postgres://reflect:test_password@%s:%s/reflect_test?sslmode=disable")
	})

	if sharedPostgresErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedPostgresErr)
	}
	return sharedPostgres
}

// GetMySQL returns a shared MySQL container for integration tests.
func GetMySQL(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMySQLOnce.Do(func() {
		sharedMySQL, sharedMySQLErr = startContainer(testcontainers.ContainerRequest{
			Image:        MySQLImage,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_DATABASE":      "reflect_test",
				"MYSQL_USER":          "reflect",
				"MYSQL_PASSWORD":      "test_password",
				"MYSQL_ROOT_PASSWORD": "root_password",
			},
			WaitingFor: wait.ForListeningPort("3306/tcp").
				WithStartupTimeout(120 * time.Second),
		}, "3306", "mysql://reflect:test_password@%s:%s/reflect_test")
	})

	if sharedMySQLErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedMySQLErr)
	}
	return sharedMySQL
}

func startContainer(req testcontainers.ContainerRequest, port, urlFormat string) (*TestDB, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &TestDB{
		Container: container,
		URL:       fmt.Sprintf(urlFormat, host, mapped.Port()),
	}, nil
}
