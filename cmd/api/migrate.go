package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yourusername/passgate/internal/config"
	"github.com/yourusername/passgate/internal/logutil"
	"github.com/yourusername/passgate/internal/users/postgres"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the users table migrations to DATABASE_URL",
		Action: func(ctx *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL (or DB_USER/DB_PASS) is required for migrate")
			}
			logger := logutil.New(cfg.LogLevel, cfg.GinMode != "release")
			if err := postgres.MigrateURL(ctx.Context, cfg.DatabaseURL); err != nil {
				return err
			}
			logger.Info().Msg("Migrations applied")
			return nil
		},
	}
}
