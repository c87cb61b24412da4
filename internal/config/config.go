package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"messenger"`
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisAddr   string `envconfig:"REDIS_ADDR" required:"true"`

	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer   string `envconfig:"JWT_ISSUER"`
	JWTAudience string `envconfig:"JWT_AUDIENCE"`

	Storage Storage
	Bus     Bus

	SendRatePerMinute int           `envconfig:"SEND_RATE_PER_MINUTE" default:"120"`
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"300"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	OTLPEndpoint      string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

type Storage struct {
	Driver    string `envconfig:"STORAGE_DRIVER" default:"minio"`
	Endpoint  string `envconfig:"S3_ENDPOINT"`
	Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	AccessKey string `envconfig:"S3_ACCESS_KEY"`
	SecretKey string `envconfig:"S3_SECRET_KEY"`
	Bucket    string `envconfig:"S3_BUCKET" default:"attachments"`
	UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`

	StoreTimeout time.Duration `envconfig:"STORAGE_TIMEOUT" default:"30s"`
	URLTimeout   time.Duration `envconfig:"URL_TIMEOUT" default:"5s"`

	BreakerMaxFailures uint32        `envconfig:"STORAGE_BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"STORAGE_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

type Bus struct {
	Broker       string   `envconfig:"BUS_BROKER" default:"memory"`
	QueueSize    int      `envconfig:"BUS_QUEUE_SIZE" default:"1024"`
	BufferSize   int      `envconfig:"BUS_SUBSCRIBER_BUFFER" default:"128"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"messenger.events"`
	KafkaGroupID string   `envconfig:"KAFKA_GROUP_ID"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "minio", "s3":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Bus.Broker {
	case "memory", "redis":
	case "kafka":
		if len(c.Bus.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when BUS_BROKER=kafka")
		}
	default:
		return fmt.Errorf("unsupported BUS_BROKER %q", c.Bus.Broker)
	}

	if c.Storage.Driver == "minio" && strings.TrimSpace(c.Storage.Endpoint) == "" {
		return fmt.Errorf("S3_ENDPOINT is required when STORAGE_DRIVER=minio")
	}
	return nil
}
