// Package config loads SKYCART_* settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/example/skycart/internal/metrics"
	"github.com/example/skycart/internal/persist"
	"github.com/example/skycart/internal/storage"
)

const Prefix = "SKYCART"

type Config struct {
	APIURL         string        `envconfig:"API_URL" default:"http://localhost:8000/api/v1"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	StripeURL      string        `envconfig:"STRIPE_URL" default:"https://api.stripe.com"`

	StateBackend   string `envconfig:"STATE_BACKEND" default:"file"`
	StateDir       string `envconfig:"STATE_DIR"`
	StateNamespace string `envconfig:"STATE_NAMESPACE" default:"default"`
	PostgresDSN    string `envconfig:"POSTGRES_DSN"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	DynamoTable    string `envconfig:"DYNAMO_TABLE" default:"skycart-state"`
	DynamoRegion   string `envconfig:"DYNAMO_REGION"`
	DynamoEndpoint string `envconfig:"DYNAMO_ENDPOINT"`
	// SealKey encrypts the persisted token when set.
	SealKey string `envconfig:"SEAL_KEY"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"skycart.activity"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	OTLPEndpoint   string            `envconfig:"OTLP_ENDPOINT"`
	OTLPHeaders    map[string]string `envconfig:"OTLP_HEADERS"`
	OTLPInsecure   bool              `envconfig:"OTLP_INSECURE" default:"true"`
	ServiceName    string            `envconfig:"SERVICE_NAME" default:"skycart"`
	ServiceVersion string            `envconfig:"SERVICE_VERSION" default:"dev"`
}

// Load reads envFiles (default ".env") when they exist, then the
// environment. Variables already set win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, err
	}
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.StateDir = filepath.Join(home, ".skycart")
	}
	return &cfg, nil
}

func (c *Config) Storage() storage.Options {
	return storage.Options{
		Backend:        c.StateBackend,
		Namespace:      c.StateNamespace,
		Dir:            c.StateDir,
		PostgresDSN:    c.PostgresDSN,
		RedisAddr:      c.RedisAddr,
		RedisPassword:  c.RedisPassword,
		RedisDB:        c.RedisDB,
		DynamoTable:    c.DynamoTable,
		DynamoRegion:   c.DynamoRegion,
		DynamoEndpoint: c.DynamoEndpoint,
		SealKey:        c.SealKey,
		SealedKeys:     []string{persist.TokenKey},
	}
}

func (c *Config) Metrics() metrics.Options {
	return metrics.Options{
		Endpoint:       c.OTLPEndpoint,
		Headers:        c.OTLPHeaders,
		Insecure:       c.OTLPInsecure,
		ServiceName:    c.ServiceName,
		ServiceVersion: c.ServiceVersion,
	}
}

// ActivityEnabled reports whether activity events go to Kafka.
func (c *Config) ActivityEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
