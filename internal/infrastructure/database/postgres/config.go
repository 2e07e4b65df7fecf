package postgres

import (
	"fmt"

	"creditmeter/internal/pkg/config"
)

// ConnectionString builds a pgx connection string from the shared database
// config loaded once at startup by internal/pkg/config.
func ConnectionString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
}
