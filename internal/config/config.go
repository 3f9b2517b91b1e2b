package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	Telegram TelegramConfig `envPrefix:"TELEGRAM_"`
	API      APIConfig      `envPrefix:"API_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Payments PaymentsConfig `envPrefix:"PAYMENTS_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	Wizard   WizardConfig   `envPrefix:"WIZARD_"`
	Log      LogConfig      `envPrefix:"LOG_"`
}

type TelegramConfig struct {
	Token                string  `env:"TOKEN"`
	Debug                bool    `env:"DEBUG" envDefault:"false"`
	AdminChannelID       int64   `env:"ADMIN_CHANNEL_ID"`
	AdminIDs             []int64 `env:"ADMIN_IDS" envSeparator:","`
	PaymentProviderToken string  `env:"PAYMENT_PROVIDER_TOKEN"`
}

type APIConfig struct {
	BaseURL        string        `env:"BASE_URL" envDefault:"http://localhost:8001"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

type RedisConfig struct {
	Addr       string        `env:"ADDR" envDefault:"localhost:6379"`
	Password   string        `env:"PASSWORD"`
	DB         int           `env:"DB" envDefault:"0"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

type DatabaseConfig struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	User            string        `env:"USER"`
	Password        string        `env:"PASSWORD"`
	Name            string        `env:"NAME"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"2m"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name,
	)
}

type ServerConfig struct {
	Addr          string        `env:"ADDR" envDefault:":8001"`
	PublicURL     string        `env:"PUBLIC_URL" envDefault:"http://localhost:8001"`
	UploadsDir    string        `env:"UPLOADS_DIR" envDefault:"uploads"`
	ReportsDir    string        `env:"REPORTS_DIR" envDefault:"reports"`
	MaxUploadSize int64         `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	TestMode      bool          `env:"TEST_MODE" envDefault:"false"`
	CORSOrigins   []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	ReadTimeout   time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout  time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
}

type PaymentsConfig struct {
	KeyID     string `env:"KEY_ID"`
	KeySecret string `env:"KEY_SECRET"`
	Currency  string `env:"CURRENCY" envDefault:"INR"`
}

type KafkaConfig struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"orders.confirmed"`
	GroupID string   `env:"GROUP_ID" envDefault:"tailoring-bot"`
}

// Enabled reports whether confirmed-order events should flow through Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type WizardConfig struct {
	Flow             string        `env:"FLOW" envDefault:"checkout"`
	ConfirmDelay     time.Duration `env:"CONFIRM_DELAY" envDefault:"2s"`
	SubmitRateLimit  int64         `env:"SUBMIT_RATE_LIMIT" envDefault:"5"`
	SubmitRateWindow time.Duration `env:"SUBMIT_RATE_WINDOW" envDefault:"1h"`
}

type LogConfig struct {
	Level       string `env:"LEVEL" envDefault:"info"`
	Development bool   `env:"DEVELOPMENT" envDefault:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// LoadBot loads the configuration and checks what the chat front end needs.
func LoadBot() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg.Telegram.Token == "" {
		return nil, errors.New("TELEGRAM_TOKEN is required")
	}
	if cfg.API.BaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	return cfg, nil
}

// LoadAPI loads the configuration and checks what the order service needs.
func LoadAPI() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.requireDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase is used by the migrate and report commands.
func LoadDatabase() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.requireDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) requireDatabase() error {
	if c.Database.User == "" || c.Database.Name == "" {
		return errors.New("DB_USER and DB_NAME are required")
	}
	return nil
}
