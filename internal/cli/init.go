// Package cli provides common initialization utilities shared by the
// binaries under cmd/.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"moobank/internal/config"
	"moobank/internal/log"
	"moobank/internal/storage"
)

// Setup loads the optional .env file, configures the default logger for the
// given component and returns it.
func Setup(component string) *log.Logger {
	// .env is a local development convenience; missing files are fine.
	_ = godotenv.Load()

	cfg := log.DefaultConfig()
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}
