// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Search   SearchConfig   `mapstructure:"search"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Tuner    TunerConfig    `mapstructure:"tuner"`
	Fuzzy    FuzzyConfig    `mapstructure:"fuzzy"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPPort    int    `mapstructure:"http_port"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	Index      string   `mapstructure:"index"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Subsystem Configuration Sections ---

// SearchConfig holds settings for the ranking aggregator and orchestrator.
type SearchConfig struct {
	MaxLimit           int     `mapstructure:"max_limit"`            // hard cap; requests above it are rejected
	DefaultLimit       int     `mapstructure:"default_limit"`
	CandidateCap       int     `mapstructure:"candidate_cap"`        // max candidates fetched for in-process scoring
	FacetSampleCap     int     `mapstructure:"facet_sample_cap"`     // facets are best-effort over this many candidates
	ThicknessTolerance float64 `mapstructure:"thickness_tolerance"`
	QueryTimeout       int     `mapstructure:"query_timeout"`        // milliseconds
	PrefixFallback     bool    `mapstructure:"prefix_fallback"`
	FuzzyFallback      bool    `mapstructure:"fuzzy_fallback"`
	MirrorRefresh      int     `mapstructure:"mirror_refresh"`       // seconds between mirror warm refreshes
}

// CacheConfig holds settings for the response cache layer.
type CacheConfig struct {
	Backend string `mapstructure:"backend"` // "memory" or "redis"
	TTL     int    `mapstructure:"ttl"`     // seconds
	LRUSize int    `mapstructure:"lru_size"`
}

// TunerConfig holds settings for the adaptive weight tuner and signal store.
type TunerConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PeriodHours    int  `mapstructure:"period_hours"`     // minimum hours between automatic recomputes
	SignalMaxCount int  `mapstructure:"signal_max_count"` // signal store retention cap
}

// FuzzyConfig holds settings for the approximate-match index.
type FuzzyConfig struct {
	MinQueryLength  int     `mapstructure:"min_query_length"`
	RebuildInterval int     `mapstructure:"rebuild_interval"` // seconds
	MinSimilarity   float64 `mapstructure:"min_similarity"`
	MaxResults      int     `mapstructure:"max_results"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
