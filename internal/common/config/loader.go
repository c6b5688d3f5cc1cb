// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_REDIS_ADDRESS
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay (config.development, config.production, ...)
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from several possible locations so the binary and
// tests can run from different working directories.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars expands ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills credentials from plain env vars if the config file
// left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Database.Elasticsearch.Password == "" {
		if val := os.Getenv("ELASTICSEARCH_PASSWORD"); val != "" {
			cfg.Database.Elasticsearch.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.HTTPPort == 0 {
		cfg.App.HTTPPort = 8080
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "listings"
	}

	// Search defaults
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 20
	}
	if cfg.Search.CandidateCap == 0 {
		cfg.Search.CandidateCap = 1000
	}
	if cfg.Search.FacetSampleCap == 0 {
		cfg.Search.FacetSampleCap = 300
	}
	if cfg.Search.ThicknessTolerance == 0 {
		cfg.Search.ThicknessTolerance = 0.05
	}
	if cfg.Search.QueryTimeout == 0 {
		cfg.Search.QueryTimeout = 2000
	}
	if cfg.Search.MirrorRefresh == 0 {
		cfg.Search.MirrorRefresh = 300
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 120
	}
	if cfg.Cache.LRUSize == 0 {
		cfg.Cache.LRUSize = 512
	}

	// Tuner defaults
	if cfg.Tuner.PeriodHours == 0 {
		cfg.Tuner.PeriodHours = 168 // weekly
	}
	if cfg.Tuner.SignalMaxCount == 0 {
		cfg.Tuner.SignalMaxCount = 5000
	}

	// Fuzzy defaults
	if cfg.Fuzzy.MinQueryLength == 0 {
		cfg.Fuzzy.MinQueryLength = 3
	}
	if cfg.Fuzzy.RebuildInterval == 0 {
		cfg.Fuzzy.RebuildInterval = 600
	}
	if cfg.Fuzzy.MinSimilarity == 0 {
		cfg.Fuzzy.MinSimilarity = 0.4
	}
	if cfg.Fuzzy.MaxResults == 0 {
		cfg.Fuzzy.MaxResults = 10
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Cache.Backend != "memory" && cfg.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be \"memory\" or \"redis\", got %q", cfg.Cache.Backend)
	}

	if cfg.Search.DefaultLimit > cfg.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
