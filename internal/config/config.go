package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configFileEnv = "CONFIG_FILE"

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	App struct {
		Port        string `yaml:"port"`
		Debug       bool   `yaml:"debug"`
		FrontendURL string `yaml:"frontend_url"`
		LogLevel    string `yaml:"log_level"`
	} `yaml:"app"`
	DB struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"db"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host"`
		Port     string        `yaml:"port"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"redis"`
	RateLimit struct {
		RequestsPerSecond int  `yaml:"requests_per_second"`
		Burst             int  `yaml:"burst"`
		PerIP             bool `yaml:"per_ip"`
	} `yaml:"rate_limit"`
	Export struct {
		OutputDir      string        `yaml:"output_dir"`
		Format         string        `yaml:"format"`
		WorkerEnabled  bool          `yaml:"worker_enabled"`
		WorkerInterval time.Duration `yaml:"worker_interval"`
	} `yaml:"export"`
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and finally the process environment.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(configFileEnv); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}

	cfg.App.Port = "8080"
	cfg.App.FrontendURL = "http://localhost:3000"
	cfg.App.LogLevel = "info"

	cfg.DB.Driver = StorageDriverPostgres

	cfg.Redis.Host = "localhost"
	cfg.Redis.Port = "6379"
	cfg.Redis.CacheTTL = 30 * time.Second

	cfg.RateLimit.RequestsPerSecond = 10
	cfg.RateLimit.Burst = 20

	cfg.Export.OutputDir = "./data/exports"
	cfg.Export.Format = "xlsx"
	cfg.Export.WorkerInterval = time.Hour

	return cfg
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	// App
	cfg.App.Port = getEnv("PORT", cfg.App.Port)
	cfg.App.Debug = getEnvAsBool("DEBUG", cfg.App.Debug)
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", cfg.App.FrontendURL)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)

	// DB
	cfg.DB.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", cfg.DB.Driver))
	cfg.DB.URL = getEnv("DATABASE_URL", cfg.DB.URL)

	// Redis
	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Host = getEnv("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = getEnv("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.CacheTTL = getEnvAsDuration("CACHE_TTL", cfg.Redis.CacheTTL)

	// Rate Limit
	cfg.RateLimit.RequestsPerSecond = getEnvAsInt("RATE_LIMIT_RPS", cfg.RateLimit.RequestsPerSecond)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst)
	cfg.RateLimit.PerIP = getEnvAsBool("RATE_LIMIT_PER_IP", cfg.RateLimit.PerIP)

	// Export
	cfg.Export.OutputDir = getEnv("EXPORT_OUTPUT_DIR", cfg.Export.OutputDir)
	cfg.Export.Format = strings.ToLower(getEnv("EXPORT_FORMAT", cfg.Export.Format))
	cfg.Export.WorkerEnabled = getEnvAsBool("EXPORT_WORKER_ENABLED", cfg.Export.WorkerEnabled)
	cfg.Export.WorkerInterval = getEnvAsDuration("EXPORT_WORKER_INTERVAL", cfg.Export.WorkerInterval)
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case StorageDriverPostgres:
		if strings.TrimSpace(c.DB.URL) == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.DB.Driver)
	}

	// Same alias the export endpoint accepts.
	if c.Export.Format == "excel" {
		c.Export.Format = "xlsx"
	}
	switch c.Export.Format {
	case "csv", "xlsx":
	default:
		return fmt.Errorf("config: unsupported export format %q", c.Export.Format)
	}

	if c.Export.WorkerEnabled && c.Export.WorkerInterval <= 0 {
		return errors.New("config: export worker interval must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if dur, err := time.ParseDuration(value); err == nil {
			return dur
		}
	}
	return defaultValue
}
