package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Client  ClientConfig
	Store   StoreConfig
	Tracing TracingConfig
	Logging LogConfig
}

// ServerConfig holds the user service listener settings.
type ServerConfig struct {
	Address        string        `envconfig:"GRPC_ADDR" default:"0.0.0.0:50051"`
	AdminAddress   string        `envconfig:"ADMIN_ADDR" default:"0.0.0.0:9090"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	RateLimitRPS   float64       `envconfig:"RATE_LIMIT_RPS" default:"0"`
	RateLimitBurst int           `envconfig:"RATE_LIMIT_BURST" default:"200"`
}

// ClientConfig holds settings for callers of the user service.
type ClientConfig struct {
	Target         string        `envconfig:"USER_SERVICE_ADDR" default:"localhost:50051"`
	CallTimeout    time.Duration `envconfig:"CALL_TIMEOUT" default:"3s"`
	BreakerMaxFail uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerTimeout time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
}

// StoreConfig selects and configures the user record backend.
type StoreConfig struct {
	Kind           string        `envconfig:"STORE_KIND" default:"memory"`
	DSN            string        `envconfig:"STORE_DSN" default:"file:users.db?_busy_timeout=5000"`
	Endpoints      []string      `envconfig:"STORE_ENDPOINTS" default:"localhost:2379"`
	Prefix         string        `envconfig:"STORE_PREFIX" default:"usertrace/users/"`
	DialTimeout    time.Duration `envconfig:"STORE_DIAL_TIMEOUT" default:"5s"`
	CacheSize      int64         `envconfig:"STORE_CACHE_SIZE" default:"10000"`
	BreakerMaxFail uint32        `envconfig:"STORE_BREAKER_MAX_FAILURES" default:"5"`
	BreakerTimeout time.Duration `envconfig:"STORE_BREAKER_TIMEOUT" default:"10s"`
	Seed           string        `envconfig:"STORE_SEED" default:"2=5551230000"`
}

// TracingConfig holds span export settings.
type TracingConfig struct {
	ServiceName   string        `envconfig:"SERVICE_NAME"`
	Exporter      string        `envconfig:"TRACE_EXPORTER" default:"log"`
	Endpoint      string        `envconfig:"OTLP_ENDPOINT" default:"localhost:4318"`
	Insecure      bool          `envconfig:"OTLP_INSECURE" default:"true"`
	QueueSize     int           `envconfig:"TRACE_QUEUE_SIZE" default:"2048"`
	BatchSize     int           `envconfig:"TRACE_BATCH_SIZE" default:"512"`
	FlushInterval time.Duration `envconfig:"TRACE_FLUSH_INTERVAL" default:"500ms"`
	ExportTimeout time.Duration `envconfig:"TRACE_EXPORT_TIMEOUT" default:"2s"`
	Sampled       bool          `envconfig:"TRACE_SAMPLED" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := ParseSeed(cfg.Store.Seed); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        "0.0.0.0:50051",
			AdminAddress:   "0.0.0.0:9090",
			RequestTimeout: 5 * time.Second,
			RateLimitBurst: 200,
		},
		Client: ClientConfig{
			Target:         "localhost:50051",
			CallTimeout:    3 * time.Second,
			BreakerMaxFail: 5,
			BreakerTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Kind:           "memory",
			DSN:            "file:users.db?_busy_timeout=5000",
			Endpoints:      []string{"localhost:2379"},
			Prefix:         "usertrace/users/",
			DialTimeout:    5 * time.Second,
			CacheSize:      10000,
			BreakerMaxFail: 5,
			BreakerTimeout: 10 * time.Second,
			Seed:           "2=5551230000",
		},
		Tracing: TracingConfig{
			Exporter:      "log",
			Endpoint:      "localhost:4318",
			Insecure:      true,
			QueueSize:     2048,
			BatchSize:     512,
			FlushInterval: 500 * time.Millisecond,
			ExportTimeout: 2 * time.Second,
			Sampled:       true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// SeedUser is one preloaded user record.
type SeedUser struct {
	UserID       int64
	MobileNumber string
}

// ParseSeed parses "id=number,id=number". An empty string yields no users.
func ParseSeed(s string) ([]SeedUser, error) {
	var users []SeedUser
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idStr, number, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid seed entry %q: want id=number", pair)
		}
		userID, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed user id %q: %w", idStr, err)
		}
		users = append(users, SeedUser{UserID: userID, MobileNumber: strings.TrimSpace(number)})
	}
	return users, nil
}
