package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string    `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel  string    `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP      HTTP      `yaml:"http"`
	Postgres  Postgres  `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	Kafka     Kafka     `yaml:"kafka"`
	Auth      Auth      `yaml:"auth"`
	SMTP      SMTP      `yaml:"smtp"`
	Services  Services  `yaml:"services"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type HTTP struct {
	Port            string        `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type Postgres struct {
	URL            string `yaml:"url" env:"POSTGRES_URL"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"file://migrations"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	MenuTTL  time.Duration `yaml:"menu_ttl" env:"MENU_CACHE_TTL" env-default:"5m"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
}

type Kafka struct {
	Brokers string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string `yaml:"topic" env:"KAFKA_TOPIC" env-default:"order.checked_out"`
	GroupID string `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"order-confirmation"`
}

type Auth struct {
	SecretKey    string        `yaml:"secret_key" env:"SECRET_KEY"`
	SessionTTL   time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
	SecureCookie bool          `yaml:"secure_cookie" env:"SECURE_COOKIE" env-default:"true"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM" env-default:"orders@burgerverse.local"`
}

type Services struct {
	EmailURL string `yaml:"email_url" env:"EMAIL_SERVICE_URL"`
}

type Telemetry struct {
	OTLPEndpoint   string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceVersion string `yaml:"service_version" env:"SERVICE_VERSION" env-default:"0.1.0"`
}

// Load reads configuration from an optional .env file, an optional YAML file
// named by CONFIG_PATH, and the environment, in that order of precedence
// (environment wins).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	return &cfg, nil
}

// KafkaBrokers splits the comma separated broker list. It returns nil when
// Kafka is not configured.
func (c *Config) KafkaBrokers() []string {
	if strings.TrimSpace(c.Kafka.Brokers) == "" {
		return nil
	}

	var brokers []string
	for _, b := range strings.Split(c.Kafka.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
