package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alx/internal/shared"
)

// Setup creates the config file when missing and initializes the run history database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("rollback") {
		return r.rollback()
	}

	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("using existing config file", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}

		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
		r.config = config
	}

	config := r.cfg()
	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := r.database()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	version, _, err := shared.SchemaVersion(db)
	if err != nil {
		return err
	}

	r.writePlainHeader("alx setup complete")
	r.writePlain("Config:   %s\n", configPath)
	r.writePlain("Database: %s (schema version %d)\n", shared.ExpandHome(config.Database.Path), version)
	r.writePlain("Token:    %s\n", shared.ExpandHome(config.Credentials.AniList.TokenPath))
	r.writePlain("\nNext: run 'alx auth login' to sign in to AniList.\n")
	return nil
}

// rollback reverts the latest schema migration of an existing database.
func (r *Runner) rollback() error {
	db, err := r.database()
	if err != nil {
		return err
	}
	if err := shared.RollbackMigration(db); err != nil {
		return err
	}

	version, ok, err := shared.SchemaVersion(db)
	if err != nil {
		return err
	}
	if !ok {
		r.writePlain("✓ Rolled back all migrations\n")
		return nil
	}
	r.writePlain("✓ Rolled back to schema version %d\n", version)
	return nil
}
