package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tailoring-bot/internal/config"
	"tailoring-bot/internal/storage"
)

var reportDir string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export all confirmed orders to a spreadsheet",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportDir, "dir", "d", "", "output directory (defaults to SERVER_REPORTS_DIR)")
}

func runReport(cmd *cobra.Command, args []string) error {
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
	store := storage.NewPostgresStorage(db, log)
	defer store.Close()

	orders, err := store.ConfirmedOrders(ctx)
	if err != nil {
		return err
	}

	dir := reportDir
	if dir == "" {
		dir = cfg.Server.ReportsDir
	}
	path, err := storage.NewReport(dir).Export(orders, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d orders to %s\n", len(orders), path)
	return nil
}
