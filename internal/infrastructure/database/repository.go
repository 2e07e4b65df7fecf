// Package database wires the singleton ledger store the rest of the
// application depends on, the way the original repository singleton did —
// one sync.Once-guarded instance reachable via Repo.
package database

import (
	"context"
	"fmt"
	"sync"

	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/pkg/config"
	"creditmeter/internal/pkg/logging"
)

var (
	Repo     *postgres.Store
	initOnce sync.Once
	initErr  error
)

// Init opens the singleton store and runs pending migrations. Safe to call
// more than once; only the first call does any work.
func Init(ctx context.Context, cfg *config.Config) error {
	initOnce.Do(func() {
		logging.Info("Initializing Postgres store", nil)

		if err := postgres.Migrate(cfg.Database); err != nil {
			initErr = fmt.Errorf("run migrations: %w", err)
			return
		}

		store, err := postgres.NewStore(ctx, cfg.Database)
		if err != nil {
			initErr = fmt.Errorf("open store: %w", err)
			return
		}
		Repo = store
		logging.Info("Postgres store ready", nil)
	})
	return initErr
}

// InitWithConfig runs migrations and opens a store against a specific
// database config, bypassing the singleton.
func InitWithConfig(ctx context.Context, cfg config.DatabaseConfig) (*postgres.Store, error) {
	if err := postgres.Migrate(cfg); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	store, err := postgres.NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}
