package main

import (
	"github.com/spf13/cobra"

	"tailoring-bot/internal/config"
	"tailoring-bot/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply, roll back or inspect database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	db, err := storage.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	switch args[0] {
	case "down":
		return storage.RollbackMigration(ctx, db.DB, log)
	case "status":
		return storage.Status(ctx, db.DB, log)
	default:
		return storage.RunMigrations(ctx, db.DB, log)
	}
}
