package policies

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/conduit/pipeline"
)

func TestCleanupStripsOnDomainChange(t *testing.T) {
	p := NewSensitiveHeaderCleanup(nil)
	req := newEnvelope(http.MethodGet, "https://other.example.org/")
	req.HTTPRequest.Header.Set("Authorization", "Bearer token")
	req.HTTPRequest.Header.Set("Cookie", "session=abc")
	req.HTTPRequest.Header.Set("X-Custom", "kept")
	req.Context.Options[pipeline.OptionInsecureDomainChange] = true

	require.NoError(t, p.OnRequest(req))

	assert.Empty(t, req.HTTPRequest.Header.Get("Authorization"))
	assert.Empty(t, req.HTTPRequest.Header.Get("Cookie"))
	assert.Equal(t, "kept", req.HTTPRequest.Header.Get("X-Custom"))

	// The flag is consumed so a later same-domain hop keeps its headers.
	assert.NotContains(t, req.Context.Options, pipeline.OptionInsecureDomainChange)
}

func TestCleanupNoFlagKeepsHeaders(t *testing.T) {
	p := NewSensitiveHeaderCleanup(nil)
	req := newEnvelope(http.MethodGet, "https://example.com/")
	req.HTTPRequest.Header.Set("Authorization", "Bearer token")

	require.NoError(t, p.OnRequest(req))
	assert.Equal(t, "Bearer token", req.HTTPRequest.Header.Get("Authorization"))
}

func TestCleanupCustomHeaderList(t *testing.T) {
	p := NewSensitiveHeaderCleanup([]string{"X-Api-Key"})
	req := newEnvelope(http.MethodGet, "https://example.com/")
	req.HTTPRequest.Header.Set("X-Api-Key", "secret")
	req.HTTPRequest.Header.Set("Authorization", "Bearer token")
	req.Context.Options[pipeline.OptionInsecureDomainChange] = true

	require.NoError(t, p.OnRequest(req))
	assert.Empty(t, req.HTTPRequest.Header.Get("X-Api-Key"))
	assert.Equal(t, "Bearer token", req.HTTPRequest.Header.Get("Authorization"))
}
