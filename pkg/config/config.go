// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Elasticsearch, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Suggest       SuggestConfig       `yaml:"suggest"`
	Sync          SyncConfig          `yaml:"sync"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig holds the search index connection and naming.
type ElasticsearchConfig struct {
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

// RedisConfig holds Redis connection, leaderboard, and caching parameters.
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	PoolSize       int           `yaml:"poolSize"`
	CacheTTL       time.Duration `yaml:"cacheTTL"`
	LeaderboardKey string        `yaml:"leaderboardKey"`
}

// KafkaConfig holds the broker list and the operator-events topic. An empty
// broker list disables event publishing.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	EventsTopic string   `yaml:"eventsTopic"`
}

// SuggestConfig controls municipality autocomplete behaviour.
type SuggestConfig struct {
	MaxSuggestions  int `yaml:"maxSuggestions"`
	DefaultStatsTop int `yaml:"defaultStatsTop"`
}

// SyncConfig controls the index sync job.
type SyncConfig struct {
	BatchSize   int `yaml:"batchSize"`
	MaxAttempts int `yaml:"maxAttempts"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  25 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "zgjedhjet",
			User:            "zgjedhjet",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Elasticsearch: ElasticsearchConfig{
			Addresses: []string{"http://localhost:9200"},
			Index:     "zgjedhjet",
		},
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			Password:       "",
			DB:             0,
			PoolSize:       10,
			CacheTTL:       60 * time.Second,
			LeaderboardKey: "komuna:suggestions:leaderboard",
		},
		Kafka: KafkaConfig{
			Brokers:     nil,
			EventsTopic: "zgjedhjet-events",
		},
		Suggest: SuggestConfig{
			MaxSuggestions:  100,
			DefaultStatsTop: 10,
		},
		Sync: SyncConfig{
			BatchSize:   1000,
			MaxAttempts: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads ZGJ_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZGJ_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ZGJ_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("ZGJ_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("ZGJ_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("ZGJ_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("ZGJ_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("ZGJ_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("ZGJ_ELASTICSEARCH_ADDRESSES"); v != "" {
		cfg.Elasticsearch.Addresses = strings.Split(v, ",")
	}
	if v := os.Getenv("ZGJ_ELASTICSEARCH_USERNAME"); v != "" {
		cfg.Elasticsearch.Username = v
	}
	if v := os.Getenv("ZGJ_ELASTICSEARCH_PASSWORD"); v != "" {
		cfg.Elasticsearch.Password = v
	}
	if v := os.Getenv("ZGJ_ELASTICSEARCH_INDEX"); v != "" {
		cfg.Elasticsearch.Index = v
	}
	if v := os.Getenv("ZGJ_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("ZGJ_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ZGJ_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ZGJ_KAFKA_EVENTS_TOPIC"); v != "" {
		cfg.Kafka.EventsTopic = v
	}
	if v := os.Getenv("ZGJ_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ZGJ_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ZGJ_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
