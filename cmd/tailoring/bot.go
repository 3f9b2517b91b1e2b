package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tailoring-bot/internal/bot"
	"tailoring-bot/internal/config"
	"tailoring-bot/internal/events"
	"tailoring-bot/internal/selection"
	"tailoring-bot/pkg/api"
	"tailoring-bot/pkg/redis"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram order bot",
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadBot()
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

	redisClient := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	apiClient := api.NewClient(cfg.API.BaseURL, cfg.API.RequestTimeout, log)

	tgBot, err := bot.New(cfg.Telegram.Token, bot.Deps{
		Sessions:   bot.NewSessionStore(redisClient, cfg.Redis.SessionTTL),
		Selections: selection.NewRedisStore(redisClient, cfg.Redis.SessionTTL),
		Orders:     apiClient,
		Config:     cfg,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	if cfg.Kafka.Enabled() {
		reader := events.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
		consumer := events.NewConsumer(reader, tgBot.HandleOrderConfirmed, log)
		defer consumer.Close()

		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error("Order event consumer stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("Kafka not configured, order notifications disabled")
	}

	updates, err := tgBot.Updates()
	if err != nil {
		return err
	}
	if err := tgBot.Start(ctx, updates); err != nil {
		return fmt.Errorf("bot stopped with error: %w", err)
	}

	log.Info("Bot shutdown gracefully")
	return nil
}
