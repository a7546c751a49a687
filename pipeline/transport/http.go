// Package transport provides the default net/http implementation of
// pipeline.Transport.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/GriffinCanCode/conduit/pipeline"
)

// ErrClosed is returned by Send after the transport has been closed.
var ErrClosed = errors.New("transport: closed")

// Options configures the HTTP transport. Zero values get production
// defaults.
type Options struct {
	// TLSMinVersion defaults to TLS 1.2.
	TLSMinVersion uint16
	// InsecureSkipVerify disables certificate verification. Testing only.
	InsecureSkipVerify bool
	// EnableHTTP2 negotiates HTTP/2 over TLS.
	EnableHTTP2 bool
	// ProxyURL routes requests through a fixed http/https proxy. Empty uses
	// the environment proxy settings.
	ProxyURL string
	// MaxIdleConns defaults to 100.
	MaxIdleConns int
	// IdleConnTimeout defaults to 90s.
	IdleConnTimeout time.Duration
}

// HTTP sends requests with a pooled net/http client. Automatic redirect
// following is disabled: redirects are a pipeline policy concern, and the
// transport must report 3xx responses as-is.
type HTTP struct {
	client *http.Client

	mu     sync.Mutex
	closed bool
}

// New builds a transport from options.
func New(opts Options) (*HTTP, error) {
	tlsCfg := &tls.Config{
		MinVersion:         opts.TLSMinVersion,
		InsecureSkipVerify: opts.InsecureSkipVerify,
	}
	if tlsCfg.MinVersion == 0 {
		tlsCfg.MinVersion = tls.VersionTLS12
	}

	tr := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: tlsCfg,
		MaxIdleConns:    opts.MaxIdleConns,
		IdleConnTimeout: opts.IdleConnTimeout,
	}
	if tr.MaxIdleConns == 0 {
		tr.MaxIdleConns = 100
	}
	if tr.IdleConnTimeout == 0 {
		tr.IdleConnTimeout = 90 * time.Second
	}
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		if proxy.Scheme != "http" && proxy.Scheme != "https" {
			return nil, fmt.Errorf("proxy URL must use http or https scheme, got %q", proxy.Scheme)
		}
		tr.Proxy = http.ProxyURL(proxy)
	}
	if opts.EnableHTTP2 {
		if err := http2.ConfigureTransport(tr); err != nil {
			return nil, fmt.Errorf("configure http2: %w", err)
		}
	}

	return &HTTP{
		client: &http.Client{
			Transport: tr,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// NewDefault builds a transport with default options.
func NewDefault() *HTTP {
	t, _ := New(Options{})
	return t
}

// Open acquires connection resources. The pool is created eagerly in New,
// so Open only re-arms a previously closed transport.
func (t *HTTP) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = false
	return nil
}

// Close releases idle connections and rejects further sends.
func (t *HTTP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.client.CloseIdleConnections()
	return nil
}

// Send performs one HTTP exchange. A "timeout" option bounds the attempt,
// including the body read. Errors are returned only when no response was
// obtained; status codes are never mapped to errors here.
func (t *HTTP) Send(ctx context.Context, req *pipeline.HTTPRequest, options map[string]any) (*pipeline.HTTPResponse, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	timeout, _ := options[pipeline.OptionTimeout].(time.Duration)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	out := &pipeline.HTTPResponse{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Header:        resp.Header,
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
	}

	// With a per-call deadline the context dies when Send returns, which
	// would kill a streaming body read. Buffer the body while the deadline
	// is still alive.
	if timeout > 0 {
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read response body: %w", readErr)
		}
		out.Body = io.NopCloser(bytes.NewReader(data))
		out.ContentLength = int64(len(data))
	}

	return out, nil
}
