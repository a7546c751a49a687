package config

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/pipeline"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Retry.Enabled)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.Redirect.Enabled)
	assert.Equal(t, 10, cfg.Redirect.MaxRedirects)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Breaker.Enabled)
	assert.True(t, cfg.Decompress)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PIPELINE_LOG_LEVEL", "debug")
	t.Setenv("PIPELINE_RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("PIPELINE_RATE_LIMIT_ENABLED", "true")
	t.Setenv("PIPELINE_RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)

	// Untouched fields keep their tag defaults.
	assert.Equal(t, 10, cfg.Redirect.MaxRedirects)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: warn
retry:
  enabled: true
  max_attempts: 5
  min_wait_seconds: 0.5
breaker:
  enabled: true
  consecutive_failures: 4
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 0.5, cfg.Retry.MinWaitSeconds)
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(4), cfg.Breaker.ConsecutiveFailures)

	// File silence falls back to defaults, not zero values.
	assert.Equal(t, 10, cfg.Redirect.MaxRedirects)
	assert.True(t, cfg.Decompress)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry: [not a map"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

// countingTransport replies 200 and counts sends.
type countingTransport struct {
	sends int
}

func (t *countingTransport) Send(ctx context.Context, req *pipeline.HTTPRequest, options map[string]any) (*pipeline.HTTPResponse, error) {
	t.sends++
	return &pipeline.HTTPResponse{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("ok")),
	}, nil
}

func (t *countingTransport) Open() error  { return nil }
func (t *countingTransport) Close() error { return nil }

func TestNewPipelineEndToEnd(t *testing.T) {
	cfg := Default()
	transport := &countingTransport{}

	pipe := cfg.NewPipeline(transport, PipelineOptions{
		Logger:   zap.NewNop(),
		Registry: prometheus.NewRegistry(),
	})

	req := pipeline.NewHTTPRequest(http.MethodGet, "https://example.com/items")
	resp, err := pipe.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.HTTPResponse.StatusCode)
	assert.Equal(t, 1, transport.sends)
	assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
	assert.Equal(t, "gzip, zstd", req.Header.Get("Accept-Encoding"))
}

func TestNewPipelineAllOptional(t *testing.T) {
	cfg := Default()
	cfg.Tracing.Enabled = false
	cfg.Retry.Enabled = false
	cfg.Redirect.Enabled = false
	cfg.Decompress = false

	transport := &countingTransport{}
	pipe := cfg.NewPipeline(transport, PipelineOptions{Logger: zap.NewNop()})

	_, err := pipe.Run(context.Background(), pipeline.NewHTTPRequest(http.MethodGet, "https://example.com/"))
	require.NoError(t, err)
	assert.Equal(t, 1, transport.sends)
}
