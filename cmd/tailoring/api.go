package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tailoring-bot/internal/config"
	"tailoring-bot/internal/events"
	"tailoring-bot/internal/orderapi"
	"tailoring-bot/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the order and payment HTTP service",
	RunE:  runAPI,
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAPI()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	db, err := storage.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	store := storage.NewPostgresStorage(db, log)
	defer store.Close()

	if err := storage.RunMigrations(ctx, db.DB, log); err != nil {
		return err
	}

	var publisher events.Publisher = events.NewNopPublisher(log)
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), log)
	}
	defer publisher.Close()

	gateway := orderapi.NewGateway(cfg.Payments)
	if gateway.Mock() {
		log.Warn("Payment keys not configured, using mock gateway")
	}

	srv := orderapi.New(orderapi.Deps{
		Store:     store,
		Uploads:   storage.NewUploads(cfg.Server.UploadsDir, cfg.Server.MaxUploadSize),
		Gateway:   gateway,
		Report:    storage.NewReport(cfg.Server.ReportsDir),
		Publisher: publisher,
		Config:    cfg.Server,
		Currency:  cfg.Payments.Currency,
		Logger:    log,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Order service listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	log.Info("Order service stopped")
	return nil
}
