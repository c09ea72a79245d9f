package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the discovery service
type Config struct {
	Weather       WeatherConfig       `mapstructure:"weather"`
	Places        PlacesConfig        `mapstructure:"places"`
	Location      LocationConfig      `mapstructure:"location"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	HTTP          HTTPConfig          `mapstructure:"http"`
}

// WeatherConfig holds weather provider configuration
type WeatherConfig struct {
	BaseURL        string          `mapstructure:"base_url"`
	APIKey         string          `mapstructure:"api_key"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	CacheTTL       time.Duration   `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
}

// PlacesConfig holds places provider configuration
type PlacesConfig struct {
	BaseURL           string          `mapstructure:"base_url"`
	APIKey            string          `mapstructure:"api_key"`
	RateLimit         RateLimitConfig `mapstructure:"rate_limit"`
	SearchCacheTTL    time.Duration   `mapstructure:"search_cache_ttl"`
	DetailsCacheTTL   time.Duration   `mapstructure:"details_cache_ttl"`
	MaxRadiusMiles    float64         `mapstructure:"max_radius_miles"`
	DefaultLimit      int             `mapstructure:"default_limit"`
	RequestTimeout    time.Duration   `mapstructure:"request_timeout"`
	EnrichmentWorkers int             `mapstructure:"enrichment_workers"`
}

// RateLimitConfig holds fixed-window rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           `mapstructure:"requests_per_window"`
	Window            time.Duration `mapstructure:"window"`
}

// LocationConfig holds the fallback location source and acquisition bounds
type LocationConfig struct {
	DefaultLat float64       `mapstructure:"default_lat"`
	DefaultLon float64       `mapstructure:"default_lon"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds caching configuration
type CacheConfig struct {
	MaxEntries      int              `mapstructure:"max_entries"`
	WarmupEnabled   bool             `mapstructure:"warmup_enabled"`
	WarmupLocations []WarmupLocation `mapstructure:"warmup_locations"`
}

// WarmupLocation is a point pre-fetched into the cache at startup
type WarmupLocation struct {
	Lat float64 `mapstructure:"lat"`
	Lon float64 `mapstructure:"lon"`
}

// RedisConfig holds the optional shared L2 cache configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TracingConfig holds tracing settings
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port        int     `mapstructure:"port"`
	ClientRPS   float64 `mapstructure:"client_rps"`
	ClientBurst int     `mapstructure:"client_burst"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not fatal if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Weather defaults
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.rate_limit.requests_per_window", 5)
	v.SetDefault("weather.rate_limit.window", "1m")
	v.SetDefault("weather.cache_ttl", "5m")
	v.SetDefault("weather.request_timeout", "10s")

	// Places defaults
	v.SetDefault("places.base_url", "https://api.geoapify.com/v2")
	v.SetDefault("places.rate_limit.requests_per_window", 3)
	v.SetDefault("places.rate_limit.window", "1m")
	v.SetDefault("places.search_cache_ttl", "10m")
	v.SetDefault("places.details_cache_ttl", "30m")
	v.SetDefault("places.max_radius_miles", 50.0)
	v.SetDefault("places.default_limit", 20)
	v.SetDefault("places.request_timeout", "12s")
	v.SetDefault("places.enrichment_workers", 8)

	// Location defaults
	v.SetDefault("location.timeout", "10s")

	// Cache defaults
	v.SetDefault("cache.max_entries", 100)
	v.SetDefault("cache.warmup_enabled", false)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")

	// HTTP defaults
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.client_rps", 5.0)
	v.SetDefault("http.client_burst", 10)
}

// Validate validates the configuration. API keys are deliberately not
// required here: a missing key surfaces as a configuration error on the
// first lookup so the rest of the service still starts.
func (c *Config) Validate() error {
	if c.Places.MaxRadiusMiles <= 0 {
		return fmt.Errorf("places max radius must be > 0")
	}
	if c.Places.DefaultLimit <= 0 {
		return fmt.Errorf("places default limit must be > 0")
	}
	if c.Weather.RateLimit.RequestsPerWindow <= 0 || c.Places.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("rate limit requests per window must be > 0")
	}
	if c.Weather.RateLimit.Window <= 0 || c.Places.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be > 0")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be > 0")
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Observability.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Observability.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Observability.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Observability.Logging.Format)
	}

	return nil
}
