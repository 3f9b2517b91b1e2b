package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := LoadBot()
	require.NoError(t, err)

	require.Equal(t, "123:abc", cfg.Telegram.Token)
	require.Equal(t, "checkout", cfg.Wizard.Flow)
	require.Equal(t, 24*time.Hour, cfg.Redis.SessionTTL)
	require.Equal(t, "INR", cfg.Payments.Currency)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	require.True(t, cfg.Kafka.Enabled())
}

func TestLoadBotRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")

	_, err := LoadBot()
	require.Error(t, err)
}

func TestLoadAPIRequiresDatabase(t *testing.T) {
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")

	_, err := LoadAPI()
	require.Error(t, err)

	t.Setenv("DB_USER", "tailor")
	t.Setenv("DB_NAME", "orders")
	cfg, err := LoadAPI()
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=tailor password= dbname=orders sslmode=disable", cfg.Database.DSN())
}
