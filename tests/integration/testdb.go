// Package integration runs the storefront stack against a real PostgreSQL
// started with testcontainers. All tests are skipped in -short mode.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/dronestore/storefront/internal/infrastructure/config"
	"github.com/dronestore/storefront/internal/infrastructure/migration"
	"github.com/dronestore/storefront/internal/infrastructure/persistence"
)

const (
	testDBName     = "storefront_test"
	testDBUser     = "postgres"
	testDBPassword = "storefront"
)

// TestDB is a migrated database in a dedicated container
type TestDB struct {
	*persistence.Database
	Config *config.DatabaseConfig
	t      *testing.T
}

// NewTestDB starts PostgreSQL, applies the embedded migrations and
// registers cleanup of the connection and the container.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(testDBName),
		tcpostgres.WithUsername(testDBUser),
		tcpostgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Driver:       "postgres",
		Host:         host,
		Port:         port.Int(),
		User:         testDBUser,
		Password:     testDBPassword,
		DBName:       testDBName,
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}
	db, err := persistence.NewDatabase(cfg)
	require.NoError(t, err, "Failed to connect to database")
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	migrator, err := migration.New(sqlDB, "", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up(), "Failed to run migrations")

	return &TestDB{Database: db, Config: cfg, t: t}
}

// CleanTables empties every storefront table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	require.NoError(tdb.t, tdb.DB.Exec("TRUNCATE TABLE cart_lines, products CASCADE").Error)
}
