// Package config loads pipeline configuration from the environment or a
// YAML file and assembles the default policy chain from it.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/logging"
	"github.com/GriffinCanCode/conduit/metrics"
	"github.com/GriffinCanCode/conduit/pipeline"
	"github.com/GriffinCanCode/conduit/pipeline/policies"
	"github.com/GriffinCanCode/conduit/resilience"
	"github.com/GriffinCanCode/conduit/tracing"
)

// Config holds all pipeline configuration.
type Config struct {
	Logging    LogConfig       `yaml:"logging"`
	Tracing    TracingConfig   `yaml:"tracing"`
	Retry      RetryConfig     `yaml:"retry"`
	Redirect   RedirectConfig  `yaml:"redirect"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
	Breaker    BreakerConfig   `yaml:"breaker"`
	Decompress bool            `envconfig:"DECOMPRESS" default:"true" yaml:"decompress"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	Enabled bool   `envconfig:"TRACING_ENABLED" default:"true" yaml:"enabled"`
	Service string `envconfig:"TRACING_SERVICE" default:"conduit" yaml:"service"`
}

// RetryConfig holds retry policy configuration. Waits are in seconds.
type RetryConfig struct {
	Enabled        bool    `envconfig:"RETRY_ENABLED" default:"true" yaml:"enabled"`
	MaxAttempts    int     `envconfig:"RETRY_MAX_ATTEMPTS" default:"3" yaml:"max_attempts"`
	MinWaitSeconds float64 `envconfig:"RETRY_MIN_WAIT_SECONDS" default:"1" yaml:"min_wait_seconds"`
	MaxWaitSeconds float64 `envconfig:"RETRY_MAX_WAIT_SECONDS" default:"30" yaml:"max_wait_seconds"`
}

// RedirectConfig holds redirect policy configuration.
type RedirectConfig struct {
	Enabled      bool `envconfig:"REDIRECT_ENABLED" default:"true" yaml:"enabled"`
	MaxRedirects int  `envconfig:"REDIRECT_MAX" default:"10" yaml:"max_redirects"`
}

// RateLimitConfig holds throttle policy configuration.
type RateLimitConfig struct {
	Enabled           bool    `envconfig:"RATE_LIMIT_ENABLED" default:"false" yaml:"enabled"`
	RequestsPerSecond float64 `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int     `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
}

// BreakerConfig holds circuit breaker policy configuration.
type BreakerConfig struct {
	Enabled             bool    `envconfig:"BREAKER_ENABLED" default:"false" yaml:"enabled"`
	ConsecutiveFailures uint32  `envconfig:"BREAKER_CONSECUTIVE_FAILURES" default:"10" yaml:"consecutive_failures"`
	OpenSeconds         float64 `envconfig:"BREAKER_OPEN_SECONDS" default:"30" yaml:"open_seconds"`
}

// Load loads configuration from PIPELINE_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("PIPELINE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from a YAML file. Fields absent from the
// file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads from the environment or falls back to defaults.
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
		Logging: LogConfig{Level: "info"},
		Tracing: TracingConfig{Enabled: true, Service: "conduit"},
		Retry: RetryConfig{
			Enabled:        true,
			MaxAttempts:    3,
			MinWaitSeconds: 1,
			MaxWaitSeconds: 30,
		},
		Redirect: RedirectConfig{Enabled: true, MaxRedirects: 10},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
		},
		Breaker: BreakerConfig{
			ConsecutiveFailures: 10,
			OpenSeconds:         30,
		},
		Decompress: true,
	}
}

// PipelineOptions carries the collaborators the config cannot construct
// itself.
type PipelineOptions struct {
	// Logger overrides the logger built from LogConfig.
	Logger *zap.Logger
	// Credential enables the bearer-auth policy.
	Credential policies.Credential
	Scopes     []string
	// Registry enables the metrics policy. Typically
	// prometheus.DefaultRegisterer; nil disables metrics.
	Registry prometheus.Registerer
}

// NewPipeline assembles the default policy chain over the given transport:
// request-id, tracing, logging, metrics, throttle, breaker, retry, auth,
// redirect, decompress, and sensitive-header cleanup nearest the wire,
// each subject to its enabled flag.
func (c *Config) NewPipeline(t pipeline.Transport, opts PipelineOptions) *pipeline.Pipeline {
	logger := opts.Logger
	if logger == nil {
		built, err := logging.New(logging.Config{
			Level:       c.Logging.Level,
			Development: c.Logging.Development,
		})
		if err != nil {
			built = zap.NewNop()
		}
		logger = built
	}

	var chain []pipeline.ChainingPolicy
	chain = append(chain, pipeline.Wrap(policies.NewRequestID()))

	if c.Tracing.Enabled {
		tracer := tracing.New(c.Tracing.Service, logger)
		chain = append(chain, pipeline.Wrap(policies.NewTracing(tracer)))
	}
	chain = append(chain, pipeline.Wrap(policies.NewLogging(logger)))

	var collectors *metrics.Metrics
	if opts.Registry != nil {
		collectors = metrics.New(opts.Registry)
		chain = append(chain, pipeline.Wrap(policies.NewMetrics(collectors)))
	}

	if c.RateLimit.Enabled {
		chain = append(chain, pipeline.Wrap(policies.NewThrottle(c.RateLimit.RequestsPerSecond, c.RateLimit.Burst)))
	}

	if c.Breaker.Enabled {
		threshold := c.Breaker.ConsecutiveFailures
		breaker := resilience.New("pipeline", resilience.Settings{
			Timeout: secondsToDuration(c.Breaker.OpenSeconds),
			ReadyToTrip: func(counts resilience.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
		chain = append(chain, policies.NewBreaker(breaker))
	}

	if c.Retry.Enabled {
		retryOpts := policies.RetryOptions{
			MaxAttempts: c.Retry.MaxAttempts,
			BaseDelay:   secondsToDuration(c.Retry.MinWaitSeconds),
			MaxDelay:    secondsToDuration(c.Retry.MaxWaitSeconds),
		}
		if collectors != nil {
			retryOpts.OnRetry = func(int) { collectors.RetriesTotal.Inc() }
		}
		chain = append(chain, policies.NewRetry(retryOpts))
	}

	if opts.Credential != nil {
		chain = append(chain, policies.NewBearerAuth(opts.Credential, opts.Scopes...))
	}

	if c.Redirect.Enabled {
		chain = append(chain, policies.NewRedirect(c.Redirect.MaxRedirects))
	}

	if c.Decompress {
		chain = append(chain, pipeline.Wrap(policies.NewDecompress()))
	}
	chain = append(chain, pipeline.Wrap(policies.NewSensitiveHeaderCleanup(nil)))

	return pipeline.New(t, chain...)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
