package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string   `env:"SERVICE_NAME" envDefault:"degusta"`
	PostgresDSN  string   `env:"POSTGRES_DSN"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`

	OutboxPollInterval              time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize                 int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	EnableSessionCompletionConsumer bool          `env:"ENABLE_SESSION_COMPLETION_CONSUMER" envDefault:"true"`
	IdempotencyTTL                  time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"168h"`
	OTelEndpoint                    string        `env:"OTEL_ENDPOINT"`
	AutoMigrate                     bool          `env:"AUTO_MIGRATE" envDefault:"false"`
}

// Load reads a .env file from the working directory when one exists and then
// parses the process environment. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.KafkaBrokers = normalizeBrokers(cfg.KafkaBrokers)
	if cfg.OutboxPollInterval <= 0 {
		return Config{}, errors.New("OUTBOX_POLL_INTERVAL must be positive")
	}
	if cfg.OutboxBatchSize <= 0 {
		return Config{}, errors.New("OUTBOX_BATCH_SIZE must be positive")
	}
	if cfg.IdempotencyTTL <= 0 {
		return Config{}, errors.New("IDEMPOTENCY_TTL must be positive")
	}
	return cfg, nil
}

func normalizeBrokers(values []string) []string {
	brokers := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		return []string{"localhost:9092"}
	}
	return brokers
}
