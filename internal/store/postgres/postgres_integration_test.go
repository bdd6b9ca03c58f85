package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sundaylabs/sunday-server/internal/store"
	"github.com/sundaylabs/sunday-server/internal/store/storetest"
)

// TestPostgresStore_Compliance runs the shared store suite against a real
// Postgres. Opt in with either:
//
//	SUNDAY_POSTGRES_TEST_DSN=postgres://...  (use an existing server)
//	SUNDAY_POSTGRES_TEST_CONTAINER=1         (start one via testcontainers)
func TestPostgresStore_Compliance(t *testing.T) {
	dsn := os.Getenv("SUNDAY_POSTGRES_TEST_DSN")
	if dsn == "" {
		if os.Getenv("SUNDAY_POSTGRES_TEST_CONTAINER") == "" {
			t.Skip("set SUNDAY_POSTGRES_TEST_DSN or SUNDAY_POSTGRES_TEST_CONTAINER=1 to run Postgres integration tests")
		}
		dsn = startPostgresContainer(t)
	}

	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	storetest.Run(t, func(t *testing.T) store.Store {
		if err := EnsureSchema(db); err != nil {
			t.Fatalf("ensure schema: %v", err)
		}
		truncateAll(t, db)
		return NewWithDB(db)
	})
}

func startPostgresContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "sunday",
			"POSTGRES_PASSWORD": "sunday",
			"POSTGRES_DB":       "sunday_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("postgres://sunday:sunday@%s:%s/sunday_test?sslmode=disable", host, port.Port())
}

func truncateAll(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range []string{"recordings", "pending_schedule", "approved_entries", "confirmed_schedules"} {
		if _, err := db.Exec("TRUNCATE TABLE " + table); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}
