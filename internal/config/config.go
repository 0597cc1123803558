package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultFeedURL             = "https://gbfs.urbansharing.com/bikemi.com/station_information.json"
	DefaultStationsPageURL     = "https://bikemi.com/stazioni"
	DefaultMapboxBaseURL       = "https://api.mapbox.com"
	defaultNormalizerCacheSize = 2048
)

type Config struct {
	Environment         string
	LogLevel            zerolog.Level
	HTTPTimeout         time.Duration
	FeedURL             string
	StationsPageURL     string
	MergeStrict         bool
	NormalizerCacheSize int
	MapboxToken         string
	MapboxBaseURL       string
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithHTTPTimeout allows setting the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

// WithFeedURL points the open-data client at another station_information document
func WithFeedURL(url string) Option {
	return func(c *Config) {
		c.FeedURL = url
	}
}

// WithStationsPageURL points the scraper at another station-listing page
func WithStationsPageURL(url string) Option {
	return func(c *Config) {
		c.StationsPageURL = url
	}
}

func WithMergeStrict(strict bool) Option {
	return func(c *Config) {
		c.MergeStrict = strict
	}
}

func WithNormalizerCacheSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.NormalizerCacheSize = size
		}
	}
}

func WithMapbox(token, baseURL string) Option {
	return func(c *Config) {
		c.MapboxToken = token
		if baseURL != "" {
			c.MapboxBaseURL = baseURL
		}
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:         "production",
		LogLevel:            zerolog.InfoLevel,
		HTTPTimeout:         10 * time.Second,
		FeedURL:             DefaultFeedURL,
		StationsPageURL:     DefaultStationsPageURL,
		MergeStrict:         true,
		NormalizerCacheSize: defaultNormalizerCacheSize,
		MapboxBaseURL:       DefaultMapboxBaseURL,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// InitializeLogging sets up the process-wide logger. It is called once by the
// entry point; no library package configures logging on its own.
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
		return
	}

	log.Logger = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return New(
		WithEnvironment(getEnvOrDefault("ENV", "production")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", 10*time.Second)),
		WithFeedURL(getEnvOrDefault("FEED_URL", DefaultFeedURL)),
		WithStationsPageURL(getEnvOrDefault("STATIONS_PAGE_URL", DefaultStationsPageURL)),
		WithMergeStrict(getEnvBool("MERGE_STRICT", true)),
		WithNormalizerCacheSize(getEnvInt("NORMALIZER_CACHE_SIZE", defaultNormalizerCacheSize)),
		WithMapbox(os.Getenv("MAPBOX_TOKEN"), getEnvOrDefault("MAPBOX_BASE_URL", DefaultMapboxBaseURL)),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, exists := os.LookupEnv(key); exists {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
