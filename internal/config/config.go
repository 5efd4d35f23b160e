package config

import (
	"os"
	"strings"
	"time"

	"github.com/onnwee/paperscape-layout/internal/utils"
)

// Config holds application configuration derived from environment
// variables, loaded once and cached for the life of the process.
type Config struct {
	DatabaseURL string

	LayoutMaxNodes   int
	LayoutIterations int
	LayoutBatchSize  int
	LayoutEpsilon    float64
	LayoutTheta      float64

	LinkStrength        float64
	AntiGravityStrength float64
	UseRefFreq          bool
	AgeWeaken           bool
	ComputeTred         bool

	CacheTTL time.Duration

	RateLimitPerSecond float64
	RateLimitBurst     int

	HTTPAddr    string
	HTTPTimeout time.Duration

	LogLevel string

	SentryDSN         string
	SentryRelease     string
	SentryEnvironment string

	OTELEnabled    bool
	OTELEndpoint   string
	OTELSampleRate float64
}

var cached *Config

// Load reads env vars once and caches the result.
func Load() *Config {
	if cached != nil {
		return cached
	}

	cached = &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		LayoutMaxNodes:   utils.GetEnvAsInt("LAYOUT_MAX_NODES", 200000),
		LayoutIterations: utils.GetEnvAsInt("LAYOUT_ITERATIONS", 5000),
		LayoutBatchSize:  utils.GetEnvAsInt("LAYOUT_BATCH_SIZE", 1000),
		LayoutEpsilon:    utils.GetEnvAsFloat("LAYOUT_EPSILON", 0.1),
		LayoutTheta:      utils.GetEnvAsFloat("LAYOUT_BARNES_HUT_THETA", 1.0),

		LinkStrength:        utils.GetEnvAsFloat("LAYOUT_LINK_STRENGTH", 4.0),
		AntiGravityStrength: utils.GetEnvAsFloat("LAYOUT_ANTI_GRAVITY_STRENGTH", 1.0),
		UseRefFreq:          utils.GetEnvAsBool("LAYOUT_USE_REF_FREQ", true),
		AgeWeaken:           utils.GetEnvAsBool("LAYOUT_AGE_WEAKEN", false),
		ComputeTred:         utils.GetEnvAsBool("LAYOUT_COMPUTE_TRED", true),

		CacheTTL: time.Duration(utils.GetEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		RateLimitPerSecond: utils.GetEnvAsFloat("RATE_LIMIT_PER_SECOND", 2.0),
		RateLimitBurst:     utils.GetEnvAsInt("RATE_LIMIT_BURST", 5),

		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		HTTPTimeout: time.Duration(utils.GetEnvAsInt("HTTP_TIMEOUT_MS", 15000)) * time.Millisecond,

		LogLevel: strings.ToLower(envOr("LOG_LEVEL", "info")),

		SentryDSN:         os.Getenv("SENTRY_DSN"),
		SentryRelease:     envOr("SENTRY_RELEASE", "dev"),
		SentryEnvironment: envOr("SENTRY_ENVIRONMENT", "development"),

		OTELEnabled:    utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELSampleRate: utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
	}
	return cached
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
