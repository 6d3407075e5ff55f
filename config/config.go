package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backends  BackendsConfig  `mapstructure:"backends"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Router    RouterConfig    `mapstructure:"router"`
	Batch     BatchConfig     `mapstructure:"batch"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// ClientRPS and ClientBurst bound per-client inbound request rates.
	ClientRPS   float64 `mapstructure:"client_rps"`
	ClientBurst int     `mapstructure:"client_burst"`
}

// BackendsConfig holds the product database endpoints and timeouts
type BackendsConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	FulltextTimeout   time.Duration `mapstructure:"fulltext_timeout"`
	StructuredTimeout time.Duration `mapstructure:"structured_timeout"`
	LegacyTimeout     time.Duration `mapstructure:"legacy_timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// CacheConfig holds the query cache and durable product store settings
type CacheConfig struct {
	QueryTTL     time.Duration `mapstructure:"query_ttl"`
	MaxEntries   int           `mapstructure:"max_entries"`
	ProductPath  string        `mapstructure:"product_path"` // empty disables the sqlite store
	ProductFresh time.Duration `mapstructure:"product_fresh"`
}

// RateLimitConfig holds the outbound token bucket settings
type RateLimitConfig struct {
	Capacity int           `mapstructure:"capacity"`
	Interval time.Duration `mapstructure:"interval"`
}

// ResolverConfig holds per-item resolution knobs
type ResolverConfig struct {
	TimeBudget           time.Duration `mapstructure:"time_budget"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	AcceptThreshold      float64       `mapstructure:"accept_threshold"`
	BrandAcceptThreshold float64       `mapstructure:"brand_accept_threshold"`
	DebugScoring         bool          `mapstructure:"debug_scoring"`
}

// RouterConfig holds the search routing policy knobs
type RouterConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MinLocalHits   int           `mapstructure:"min_local_hits"`
	MaxGlobalPages int           `mapstructure:"max_global_pages"`
}

// BatchConfig bounds one batch request
type BatchConfig struct {
	MaxItems      int           `mapstructure:"max_items"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	Workers       int           `mapstructure:"workers"`
	BatchTimeout  time.Duration `mapstructure:"batch_timeout"`
	GroupTimeout  time.Duration `mapstructure:"group_timeout"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	cfg, _, err := load()
	return cfg, err
}

// LoadAndWatch loads the configuration and re-reads the config file on
// change, calling onChange with each valid new snapshot. Invalid snapshots
// are dropped; the previous configuration stays in effect.
func LoadAndWatch(onChange func(*Config)) (*Config, error) {
	cfg, v, err := load()
	if err != nil {
		return nil, err
	}
	v.OnConfigChange(func(fsnotify.Event) {
		next, err := unmarshal(v)
		if err != nil {
			return
		}
		onChange(next)
	})
	v.WatchConfig()
	return cfg, nil
}

func load() (*Config, *viper.Viper, error) {
	if err := loadEnvFile(); err != nil {
		return nil, nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/platewise/")

	v.SetEnvPrefix("PLATEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults carry a bare deploy.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.client_rps", 5.0)
	v.SetDefault("server.client_burst", 10)

	v.SetDefault("backends.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("backends.user_agent", "platewise-resolver/1.0")
	v.SetDefault("backends.fulltext_timeout", "2500ms")
	v.SetDefault("backends.structured_timeout", "3s")
	v.SetDefault("backends.legacy_timeout", "4s")
	v.SetDefault("backends.max_retries", 3)

	v.SetDefault("cache.query_ttl", "10m")
	v.SetDefault("cache.max_entries", 2000)
	v.SetDefault("cache.product_path", "platewise.db")
	v.SetDefault("cache.product_fresh", "720h") // 30 days

	v.SetDefault("ratelimit.capacity", 10)
	v.SetDefault("ratelimit.interval", "1m")

	v.SetDefault("resolver.time_budget", "6s")
	v.SetDefault("resolver.max_attempts", 6)
	v.SetDefault("resolver.accept_threshold", 30.0)
	v.SetDefault("resolver.brand_accept_threshold", 45.0)
	v.SetDefault("resolver.debug_scoring", false)

	v.SetDefault("router.timeout", "4s")
	v.SetDefault("router.min_local_hits", 2)
	v.SetDefault("router.max_global_pages", 2)

	v.SetDefault("batch.max_items", 10)
	v.SetDefault("batch.min_confidence", 0.2)
	v.SetDefault("batch.workers", 3)
	v.SetDefault("batch.batch_timeout", "20s")
	v.SetDefault("batch.group_timeout", "8s")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Backends.BaseURL == "" {
		return fmt.Errorf("backends base URL is required (set PLATEWISE_BACKENDS_BASE_URL)")
	}
	if config.RateLimit.Capacity <= 0 {
		return fmt.Errorf("rate limit capacity must be positive, got: %d", config.RateLimit.Capacity)
	}
	if config.RateLimit.Interval <= 0 {
		return fmt.Errorf("rate limit interval must be positive, got: %v", config.RateLimit.Interval)
	}
	if config.Batch.MaxItems <= 0 {
		return fmt.Errorf("batch max items must be positive, got: %d", config.Batch.MaxItems)
	}
	if config.Batch.MinConfidence < 0 || config.Batch.MinConfidence > 1 {
		return fmt.Errorf("batch min confidence must be in [0,1], got: %v", config.Batch.MinConfidence)
	}
	if config.Resolver.AcceptThreshold > config.Resolver.BrandAcceptThreshold {
		return fmt.Errorf("accept threshold (%v) must not exceed brand accept threshold (%v)",
			config.Resolver.AcceptThreshold, config.Resolver.BrandAcceptThreshold)
	}
	return nil
}
