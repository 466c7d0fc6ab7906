package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestPostgres(t *testing.T) (*database.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	db, err := database.NewConnection(&config.StorageConfig{
		Driver:          database.DriverPostgres,
		URL:             fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if _, err := database.Migrate(ctx, db, database.MigrateUp); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func TestStoreOverPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	db, cleanup := setupTestPostgres(t)
	defer cleanup()

	ctx := context.Background()

	store := NewStore(database.NewKV(db))
	require.NoError(t, store.SetCredentials(ctx, "token-pg", []string{"admin", "user"}))
	require.NoError(t, store.SetCredentials(ctx, "token-pg-2", []string{"user"}))

	reloaded := NewStore(database.NewKV(db))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, "token-pg-2", reloaded.Token())
	assert.Equal(t, []string{"user"}, reloaded.Snapshot().Roles)

	require.NoError(t, reloaded.Logout(ctx))

	again := NewStore(database.NewKV(db))
	require.NoError(t, again.Load(ctx))
	assert.False(t, again.Snapshot().Authenticated())
}
