package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tailoring-bot/internal/config"
	"tailoring-bot/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "tailoring",
	Short:         "Bespoke trousers order intake: Telegram bot, order service and tools",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reportCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return log, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
