package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Redis.LeaderboardKey != "komuna:suggestions:leaderboard" {
		t.Errorf("Redis.LeaderboardKey = %q", cfg.Redis.LeaderboardKey)
	}
	if cfg.Elasticsearch.Index != "zgjedhjet" {
		t.Errorf("Elasticsearch.Index = %q", cfg.Elasticsearch.Index)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("Kafka.Brokers = %v, want disabled by default", cfg.Kafka.Brokers)
	}
	if cfg.Sync.BatchSize != 1000 || cfg.Sync.MaxAttempts != 3 {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9999
  requestTimeout: 5s
postgres:
  host: db.internal
  database: elections
redis:
  cacheTTL: 2m
suggest:
  maxSuggestions: 20
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("Server.RequestTimeout = %v, want 5s", cfg.Server.RequestTimeout)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Database != "elections" {
		t.Errorf("Postgres = %+v", cfg.Postgres)
	}
	if cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("Redis.CacheTTL = %v, want 2m", cfg.Redis.CacheTTL)
	}
	if cfg.Suggest.MaxSuggestions != 20 {
		t.Errorf("Suggest.MaxSuggestions = %d, want 20", cfg.Suggest.MaxSuggestions)
	}
	// Untouched sections keep their defaults.
	if cfg.Postgres.Port != 5432 {
		t.Errorf("Postgres.Port = %d, want default 5432", cfg.Postgres.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ZGJ_POSTGRES_HOST", "pg.prod")
	t.Setenv("ZGJ_ELASTICSEARCH_ADDRESSES", "http://es1:9200,http://es2:9200")
	t.Setenv("ZGJ_KAFKA_BROKERS", "kafka1:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Postgres.Host != "pg.prod" {
		t.Errorf("Postgres.Host = %q, want pg.prod", cfg.Postgres.Host)
	}
	if len(cfg.Elasticsearch.Addresses) != 2 {
		t.Errorf("Elasticsearch.Addresses = %v", cfg.Elasticsearch.Addresses)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "kafka1:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p",
		Database: "zgjedhjet", SSLMode: "disable",
	}.DSN()
	want := "host=localhost port=5432 user=u password=p dbname=zgjedhjet sslmode=disable"
	if dsn != want {
		t.Errorf("DSN() = %q, want %q", dsn, want)
	}
}
