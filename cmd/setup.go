package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lyrebird/internal/shared"
)

// Setup writes config.toml when missing, migrates the library database and creates the music directory.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	config := r.setupConfig(configPath)

	db, err := shared.OpenLibrary(config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize library database: %w", err)
	}
	defer db.Close()

	version, _, err := shared.MigrationVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	r.writePlain("✓ Config: %s\n", configPath)
	r.writePlain("✓ Database: %s (schema v%d)\n", config.Database.Path, version)

	if dir := config.Library.MusicDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			r.logger.Warn("failed to create music directory", "dir", dir, "error", err)
		} else {
			r.writePlain("✓ Music directory: %s\n", dir)
		}
	}
	return nil
}

// setupConfig loads path, creating it from the embedded template first when it does not exist.
// Any failure falls back to the defaults so setup can still prepare the database.
func (r *Runner) setupConfig(path string) *shared.Config {
	if _, err := os.Stat(path); err != nil {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			return shared.DefaultConfig()
		}
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return shared.DefaultConfig()
	}
	return config
}
