package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Block explorer (indexer) API configuration
	Etherscan EtherscanConfig

	// Raw response cache configuration
	Cache CacheConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Portfolio aggregation configuration
	Portfolio PortfolioConfig

	// Anomaly detection configuration
	Anomaly AnomalyConfig

	// Logging configuration
	Log LogConfig

	// File is the YAML file that was applied, empty when none was found
	File string `ignored:"true"`
}

// EtherscanConfig holds indexer API settings
type EtherscanConfig struct {
	BaseURL        string        `envconfig:"ETHERSCAN_BASE_URL" default:"https://api.etherscan.io/v2/api"`
	APIKey         string        `envconfig:"ETHERSCAN_API_KEY"`
	RequestTimeout time.Duration `envconfig:"ETHERSCAN_REQUEST_TIMEOUT" default:"30s"`
	RateLimitRPS   float64       `envconfig:"ETHERSCAN_RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int           `envconfig:"ETHERSCAN_RATE_LIMIT_BURST" default:"1"`
	MaxRetries     int           `envconfig:"ETHERSCAN_MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration `envconfig:"ETHERSCAN_RETRY_DELAY" default:"1s"`
	MaxRetryDelay  time.Duration `envconfig:"ETHERSCAN_MAX_RETRY_DELAY" default:"10s"`
	RetryJitter    time.Duration `envconfig:"ETHERSCAN_RETRY_JITTER" default:"250ms"`
}

// CacheConfig holds raw response cache settings
type CacheConfig struct {
	Enabled bool          `envconfig:"CACHE_ENABLED" default:"true"`
	TTL     time.Duration `envconfig:"CACHE_TTL" default:"1h"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
}

// PortfolioConfig holds portfolio aggregation settings
type PortfolioConfig struct {
	WorkerCount    int    `envconfig:"PORTFOLIO_WORKER_COUNT" default:"4"`
	DefaultNetwork string `envconfig:"PORTFOLIO_DEFAULT_NETWORK" default:"ethereum"`

	// Addresses tracked from startup, "network:address" or a bare address
	// on the default network (comma-separated)
	Addresses []string `envconfig:"PORTFOLIO_ADDRESSES"`
}

// AnomalyConfig holds isolation forest settings
type AnomalyConfig struct {
	Contamination float64 `envconfig:"ANOMALY_CONTAMINATION" default:"0.01"`
	Trees         int     `envconfig:"ANOMALY_TREES" default:"100"`
	SampleSize    int     `envconfig:"ANOMALY_SAMPLE_SIZE" default:"256"`
	Seed          int64   `envconfig:"ANOMALY_SEED" default:"42"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables, then overlays the
// YAML document at path for every key whose environment variable is unset.
// A missing file is not an error; Config.File stays empty in that case.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if path != "" {
		applied, err := applyFile(&cfg, path)
		if err != nil {
			return nil, err
		}
		if applied {
			cfg.File = path
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyFile reads the YAML document and copies the keys it knows about.
func applyFile(cfg *Config, path string) (bool, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if v.IsSet("api_settings.etherscan_api_key") && !envSet("ETHERSCAN_API_KEY") {
		cfg.Etherscan.APIKey = v.GetString("api_settings.etherscan_api_key")
	}
	if v.IsSet("api_settings.base_url") && !envSet("ETHERSCAN_BASE_URL") {
		cfg.Etherscan.BaseURL = v.GetString("api_settings.base_url")
	}
	if v.IsSet("api_settings.rate_limit") && !envSet("ETHERSCAN_RATE_LIMIT_RPS") {
		cfg.Etherscan.RateLimitRPS = v.GetFloat64("api_settings.rate_limit")
	}
	if v.IsSet("api_settings.timeout") && !envSet("ETHERSCAN_REQUEST_TIMEOUT") {
		cfg.Etherscan.RequestTimeout = time.Duration(v.GetInt("api_settings.timeout")) * time.Second
	}
	if v.IsSet("analysis.cache_ttl") && !envSet("CACHE_TTL") {
		cfg.Cache.TTL = time.Duration(v.GetInt("analysis.cache_ttl")) * time.Second
	}
	if v.IsSet("analysis.contamination") && !envSet("ANOMALY_CONTAMINATION") {
		cfg.Anomaly.Contamination = v.GetFloat64("analysis.contamination")
	}
	if v.IsSet("portfolio.worker_count") && !envSet("PORTFOLIO_WORKER_COUNT") {
		cfg.Portfolio.WorkerCount = v.GetInt("portfolio.worker_count")
	}
	if v.IsSet("portfolio.addresses") && !envSet("PORTFOLIO_ADDRESSES") {
		cfg.Portfolio.Addresses = v.GetStringSlice("portfolio.addresses")
	}

	return true, nil
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

// Validate checks the values the core cannot run without
func (c *Config) Validate() error {
	if c.Etherscan.APIKey == "" {
		return errors.New("etherscan API key is required (ETHERSCAN_API_KEY or api_settings.etherscan_api_key)")
	}
	if c.Etherscan.BaseURL == "" {
		return errors.New("etherscan base URL must not be empty")
	}
	if c.Etherscan.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be positive, got %v", c.Etherscan.RateLimitRPS)
	}
	if c.Etherscan.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1, got %d", c.Etherscan.RateLimitBurst)
	}
	if c.Etherscan.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.Etherscan.MaxRetries)
	}
	if c.Portfolio.WorkerCount < 1 {
		return fmt.Errorf("portfolio worker count must be at least 1, got %d", c.Portfolio.WorkerCount)
	}
	if !(c.Anomaly.Contamination > 0 && c.Anomaly.Contamination <= 0.5) {
		return fmt.Errorf("anomaly contamination must be in (0, 0.5], got %v", c.Anomaly.Contamination)
	}
	if c.Anomaly.Trees < 1 {
		return fmt.Errorf("anomaly trees must be at least 1, got %d", c.Anomaly.Trees)
	}
	return nil
}

// Addr returns the Redis address in host:port form
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
