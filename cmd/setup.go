package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path, err := r.config.DatabasePath()
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	applied, err := shared.ApplyMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	keyed, err := r.migrateOrder(ctx, db)
	if err != nil {
		return err
	}
	if keyed > 0 {
		r.writePlain("%s assigned sort keys to %d legacy row(s)\n", r.styles.OK("✓"), keyed)
	}

	if len(applied) == 0 {
		r.writePlain("%s database already up to date: %s\n", r.styles.OK("✓"), path)
		return nil
	}
	r.logger.Infof("setup complete for database: %v", path)
	r.writePlain("%s applied %d migration(s) %v to %s\n", r.styles.OK("✓"), len(applied), applied, path)
	return nil
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	path, err := r.config.DatabasePath()
	if err != nil {
		return err
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	applied, err := shared.AppliedVersions(db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		r.writePlain("%s no migrations to roll back\n", r.styles.Warn("!"))
		return nil
	}

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}
	r.logger.Info("rolled back migration", "path", path)
	r.writePlain("%s rolled back 1 migration, %d remaining\n", r.styles.OK("✓"), len(applied)-1)
	return nil
}

// SetupCheck verifies the remote proxy is reachable with the configured credentials.
func (r *Runner) SetupCheck(ctx context.Context, cmd *cli.Command) error {
	checker, ok := r.remoteAPI().(healthChecker)
	if !ok {
		return fmt.Errorf("%w: remote does not expose a health check", shared.ErrNotImplemented)
	}

	if err := checker.Health(ctx); err != nil {
		r.writePlain("%s remote unavailable: %v\n", r.styles.Err("✗"), err)
		return err
	}
	r.writePlain("%s remote reachable at %s\n", r.styles.OK("✓"), r.config.Credentials.YouTube.ProxyURL)
	return nil
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// SetupConfig writes the default configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		var err error
		if path, err = xdg.ConfigFile(filepath.Join("ytmirror", "config.toml")); err != nil {
			return fmt.Errorf("failed to resolve config directory: %w", err)
		}
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("%s configuration written to %s\n", r.styles.OK("✓"), path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.youtube.proxy_url and headers_path\n")
	r.writePlain("2. Run 'ytmirror --config %s setup database'\n", path)
	return nil
}
