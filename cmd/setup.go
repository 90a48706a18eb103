package main

import (
	"context"
	"fmt"
	"os"

	"github.com/myatdennis/coursesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the configuration file if absent and initializes the
// configured storage backend: the sqlite backend gets its schema migrated,
// the file backend gets its directory created.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	switch config.Storage.Backend {
	case "sqlite":
		r.logger.Info("initializing database", "path", config.Storage.Path)

		db, err := shared.NewDatabase(config.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer db.Close()

		shared.ConfigureDatabase(db, config.Storage.MaxOpenConns, config.Storage.MaxIdleConns)

		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.logger.Infof("setup complete for database: %v", config.Storage.Path)
	default:
		r.logger.Info("initializing storage directory", "dir", config.Storage.Dir)
		if err := os.MkdirAll(config.Storage.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
		r.logger.Infof("setup complete for storage directory: %v", config.Storage.Dir)
	}

	r.writePlain("✓ coursesync is ready\n")
	r.writePlainln("Next steps:")
	r.writePlain("1. Point remote.base_url in %s at your progress API\n", configPath)
	r.writePlain("2. Run 'coursesync progress update --user <id> --course <id> --lesson <id> --pct 10'\n")

	return nil
}
