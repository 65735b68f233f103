// Package testutil starts throwaway backing services for storage tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/dccqol/internal/config"
	"github.com/cory-johannsen/dccqol/internal/storage/postgres"
)

const (
	postgresImage = "postgres:16-alpine"
	postgresCreds = "journal"
)

// PostgresContainer is a disposable PostgreSQL server holding one database.
type PostgresContainer struct {
	Config config.DatabaseConfig
	Pool   *postgres.Pool
	// RawPool is Pool.DB(), exposed for repositories that take a pgxpool.
	RawPool *pgxpool.Pool
}

// NewPostgresContainer starts postgres:16-alpine and connects a Pool to it.
// The container and pool are released when t finishes.
//
// Precondition: a Docker daemon is reachable. Skipped under -short.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped with -short")
	}
	ctx := context.Background()
	began := time.Now()

	ready := wait.ForAll(
		wait.ForListeningPort("5432/tcp"),
		// postgres restarts once after initdb; the second line is the real one.
		wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	).WithDeadline(45 * time.Second)

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     postgresCreds,
				"POSTGRES_PASSWORD": postgresCreds,
				"POSTGRES_DB":       postgresCreds,
			},
			WaitingFor: ready,
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start %s: %v", postgresImage, err)
	}

	cfg := config.DatabaseConfig{
		User:     postgresCreds,
		Password: postgresCreds,
		Name:     postgresCreds,
		SSLMode:  "disable",
		MaxConns: 4,
	}
	if cfg.Host, err = ctr.Host(ctx); err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	cfg.Port = port.Int()

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connect %s: %v", cfg.Host, err)
	}
	t.Cleanup(pool.Close)
	t.Logf("%s ready on %s:%d after %s", postgresImage, cfg.Host, cfg.Port, time.Since(began).Round(time.Millisecond))

	return &PostgresContainer{Config: cfg, Pool: pool, RawPool: pool.DB()}
}

// DSN is the URL form of Config, as golang-migrate expects it.
func (pc *PostgresContainer) DSN() string { return pc.Config.DSN() }

// ApplyMigrations brings the schema to the latest embedded version.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	if err := postgres.MigrateUp(pc.DSN()); err != nil {
		t.Fatalf("migrate %s: %v", pc.Config.Name, err)
	}
}

// Truncate empties the attack journal so subtests sharing a container start
// clean.
func (pc *PostgresContainer) Truncate(t *testing.T) {
	t.Helper()
	if _, err := pc.RawPool.Exec(context.Background(), `TRUNCATE attack_journal`); err != nil {
		t.Fatalf("truncate attack_journal: %v", err)
	}
}

// NewPool is shorthand for a migrated container's raw pool.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc.RawPool
}
