package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverDuckDB   = "duckdb"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Bot           BotConfig
	LLM           LLMConfig
	Store         StoreConfig
	ObjectStore   ObjectStoreConfig
	Import        ImportConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type BotConfig struct {
	Token          string
	PollTimeout    int
	HandleTimeout  time.Duration
	MaxConcurrent  int
	RatePerMinute  int
	RateBurst      int
	ReferenceYear  int
	GreetingText   string
	DebugTransport bool
}

type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type StoreConfig struct {
	Driver          string
	User            string
	Password        string
	Host            string
	Port            int
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	ArchivePrefix   string
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ImportConfig struct {
	Source        string
	ArchivePrefix string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

// LoadFromEnv reads .env.local and .env from the working directory (without
// overriding variables already set) and then loads the process environment.
func LoadFromEnv(serviceName string) (Config, error) {
	loadEnvFiles(".env.local", ".env")
	return Load(serviceName, os.LookupEnv)
}

func loadEnvFiles(names ...string) {
	existing := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			existing = append(existing, name)
		}
	}
	if len(existing) == 0 {
		return
	}
	_ = godotenv.Load(existing...)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("VIDSTATS_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid VIDSTATS_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	steps := []func() error{
		func() error { return applyString(lookup, "VIDSTATS_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "VIDSTATS_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "VIDSTATS_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "VIDSTATS_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "VIDSTATS_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },

		func() error { return applyString(lookup, "BOT_TOKEN", &cfg.Bot.Token) },
		func() error { return applyInt(lookup, "VIDSTATS_BOT_POLL_TIMEOUT", &cfg.Bot.PollTimeout) },
		func() error { return applyDuration(lookup, "VIDSTATS_BOT_HANDLE_TIMEOUT", &cfg.Bot.HandleTimeout) },
		func() error { return applyInt(lookup, "VIDSTATS_BOT_MAX_CONCURRENT", &cfg.Bot.MaxConcurrent) },
		func() error { return applyInt(lookup, "VIDSTATS_BOT_RATE_PER_MINUTE", &cfg.Bot.RatePerMinute) },
		func() error { return applyInt(lookup, "VIDSTATS_BOT_RATE_BURST", &cfg.Bot.RateBurst) },
		func() error { return applyInt(lookup, "VIDSTATS_REFERENCE_YEAR", &cfg.Bot.ReferenceYear) },
		func() error { return applyString(lookup, "VIDSTATS_BOT_GREETING", &cfg.Bot.GreetingText) },
		func() error { return applyBool(lookup, "VIDSTATS_BOT_DEBUG", &cfg.Bot.DebugTransport) },

		func() error { return applyString(lookup, "LLM_BASE_URL", &cfg.LLM.BaseURL) },
		func() error { return applyString(lookup, "OPENAI_API_KEY", &cfg.LLM.APIKey) },
		func() error { return applyString(lookup, "LLM_MODEL", &cfg.LLM.Model) },
		func() error { return applyFloat(lookup, "VIDSTATS_LLM_TEMPERATURE", &cfg.LLM.Temperature) },
		func() error { return applyDuration(lookup, "VIDSTATS_LLM_TIMEOUT", &cfg.LLM.Timeout) },

		func() error { return applyString(lookup, "VIDSTATS_STORE_DRIVER", &cfg.Store.Driver) },
		func() error { return applyString(lookup, "POSTGRES_USER", &cfg.Store.User) },
		func() error { return applyString(lookup, "POSTGRES_PASSWORD", &cfg.Store.Password) },
		func() error { return applyString(lookup, "POSTGRES_HOST", &cfg.Store.Host) },
		func() error { return applyInt(lookup, "POSTGRES_PORT", &cfg.Store.Port) },
		func() error { return applyString(lookup, "POSTGRES_DB", &cfg.Store.Database) },
		func() error { return applyString(lookup, "VIDSTATS_STORE_SSLMODE", &cfg.Store.SSLMode) },
		func() error { return applyInt(lookup, "VIDSTATS_STORE_MAX_OPEN_CONNS", &cfg.Store.MaxOpenConns) },
		func() error { return applyInt(lookup, "VIDSTATS_STORE_MAX_IDLE_CONNS", &cfg.Store.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "VIDSTATS_STORE_CONN_MAX_IDLE_TIME", &cfg.Store.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "VIDSTATS_STORE_CONN_MAX_LIFETIME", &cfg.Store.ConnMaxLifetime)
		},
		func() error { return applyDuration(lookup, "VIDSTATS_STORE_QUERY_TIMEOUT", &cfg.Store.QueryTimeout) },
		func() error { return applyString(lookup, "VIDSTATS_STORE_ARCHIVE_PREFIX", &cfg.Store.ArchivePrefix) },

		func() error { return applyString(lookup, "VIDSTATS_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "VIDSTATS_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "VIDSTATS_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error {
			return applyString(lookup, "VIDSTATS_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID)
		},
		func() error {
			return applyString(lookup, "VIDSTATS_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "VIDSTATS_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "VIDSTATS_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "VIDSTATS_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},

		func() error { return applyString(lookup, "VIDSTATS_IMPORT_SOURCE", &cfg.Import.Source) },
		func() error { return applyString(lookup, "VIDSTATS_IMPORT_ARCHIVE_PREFIX", &cfg.Import.ArchivePrefix) },

		func() error { return applyBool(lookup, "VIDSTATS_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "VIDSTATS_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyBool(lookup, "VIDSTATS_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "VIDSTATS_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	switch cfg.Store.Driver {
	case StoreDriverPostgres, StoreDriverDuckDB:
	default:
		return Config{}, fmt.Errorf("invalid VIDSTATS_STORE_DRIVER: %q", cfg.Store.Driver)
	}
	if cfg.Store.Port <= 0 || cfg.Store.Port > 65535 {
		return Config{}, fmt.Errorf("invalid POSTGRES_PORT: %d", cfg.Store.Port)
	}
	if cfg.LLM.Temperature < 0 {
		return Config{}, fmt.Errorf("invalid VIDSTATS_LLM_TEMPERATURE: %v", cfg.LLM.Temperature)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "vidstats-bot"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Bot: BotConfig{
			PollTimeout:   30,
			HandleTimeout: 45 * time.Second,
			MaxConcurrent: 16,
			RatePerMinute: 20,
			RateBurst:     5,
			ReferenceYear: 2025,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-3.5-turbo",
			Temperature: 0,
			Timeout:     20 * time.Second,
		},
		Store: StoreConfig{
			Driver:          StoreDriverPostgres,
			User:            "postgres",
			Password:        "postgres",
			Host:            "localhost",
			Port:            5432,
			Database:        "postgres",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    10 * time.Second,
			ArchivePrefix:   "archive/latest",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "vidstats",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			AutoCreateBucket: true,
		},
		Import: ImportConfig{
			Source: "data/data.json",
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Bot.RatePerMinute = 0
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.Store.SSLMode = "require"
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
