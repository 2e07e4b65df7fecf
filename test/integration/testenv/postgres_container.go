package testenv

import (
	"context"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	dbpostgres "creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/pkg/config"
)

var (
	testContainer     *postgres.PostgresContainer
	testStore         *dbpostgres.Store
	testContainerOnce sync.Once
	testContainerErr  error
)

// PostgresContainerConfig holds configuration for the test container.
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string
}

func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "creditmeter",
		Username: "creditmeter",
		Password: "creditmeter_test_pass",
		Image:    "postgres:16-alpine",
	}
}

// SetupIntegrationTest starts the shared PostgreSQL testcontainer once,
// applies migrations, and hands back the store. The schema is truncated
// before each test rather than torn down, so the container only starts once
// per package run.
func SetupIntegrationTest(t *testing.T) *dbpostgres.Store {
	testContainerOnce.Do(func() {
		ctx := context.Background()
		cfg := DefaultPostgresConfig()

		container, err := postgres.Run(ctx,
			cfg.Image,
			postgres.WithDatabase(cfg.Database),
			postgres.WithUsername(cfg.Username),
			postgres.WithPassword(cfg.Password),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			testContainerErr = fmt.Errorf("failed to start PostgreSQL testcontainer: %w", err)
			return
		}
		testContainer = container

		host, err := container.Host(ctx)
		if err != nil {
			testContainerErr = fmt.Errorf("failed to get container host: %w", err)
			return
		}
		port, err := container.MappedPort(ctx, "5432")
		if err != nil {
			testContainerErr = fmt.Errorf("failed to get container port: %w", err)
			return
		}

		dbConfig := config.DatabaseConfig{
			Host:            host,
			Port:            port.Port(),
			Database:        cfg.Database,
			User:            cfg.Username,
			Password:        cfg.Password,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		}

		if err := dbpostgres.Migrate(dbConfig); err != nil {
			testContainerErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}

		store, err := dbpostgres.NewStore(ctx, dbConfig)
		if err != nil {
			testContainerErr = fmt.Errorf("failed to open store: %w", err)
			return
		}
		testStore = store

		connStr, _ := container.ConnectionString(ctx, "sslmode=disable")
		log.Printf("PostgreSQL testcontainer ready: %s", connStr)
	})

	require.NoError(t, testContainerErr, "failed to initialize test container")
	require.NoError(t, testStore.Reset(context.Background()))
	return testStore
}
