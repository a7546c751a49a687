package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records what reached the wire layer and replies with a
// canned response.
type fakeTransport struct {
	opens  int
	closes int

	status  int
	sendErr error

	sends       int
	lastCtx     context.Context
	lastReq     *HTTPRequest
	lastOptions map[string]any
}

func (t *fakeTransport) Send(ctx context.Context, req *HTTPRequest, options map[string]any) (*HTTPResponse, error) {
	t.sends++
	t.lastCtx = ctx
	t.lastReq = req
	t.lastOptions = options
	if t.sendErr != nil {
		return nil, t.sendErr
	}
	status := t.status
	if status == 0 {
		status = http.StatusOK
	}
	return &HTTPResponse{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("ok")),
	}, nil
}

func (t *fakeTransport) Open() error  { t.opens++; return nil }
func (t *fakeTransport) Close() error { t.closes++; return nil }

// recordingPolicy appends hook invocations to a shared journal.
type recordingPolicy struct {
	BasePolicy
	name    string
	journal *[]string

	requestErr  error
	responseErr error
}

func (p *recordingPolicy) OnRequest(req *Request) error {
	*p.journal = append(*p.journal, p.name+":request")
	return p.requestErr
}

func (p *recordingPolicy) OnResponse(req *Request, resp *Response) error {
	*p.journal = append(*p.journal, p.name+":response")
	return p.responseErr
}

func (p *recordingPolicy) OnError(req *Request, err error) {
	*p.journal = append(*p.journal, p.name+":error")
}

func TestIdentityPipeline(t *testing.T) {
	transport := &fakeTransport{}
	pipe := New(transport)

	resp, err := pipe.Run(context.Background(), NewHTTPRequest(http.MethodGet, "https://example.com/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.HTTPResponse.StatusCode)
	assert.Equal(t, 1, transport.sends)
}

func TestPolicyOrdering(t *testing.T) {
	var journal []string
	transport := &fakeTransport{}
	pipe := New(transport,
		Wrap(&recordingPolicy{name: "a", journal: &journal}),
		Wrap(&recordingPolicy{name: "b", journal: &journal}),
		Wrap(&recordingPolicy{name: "c", journal: &journal}),
	)

	_, err := pipe.Run(context.Background(), NewHTTPRequest(http.MethodGet, "https://example.com/"))
	require.NoError(t, err)

	// Requests run head to tail, responses unwind tail to head.
	assert.Equal(t, []string{
		"a:request", "b:request", "c:request",
		"c:response", "b:response", "a:response",
	}, journal)
}

func TestOnRequestAborts(t *testing.T) {
	var journal []string
	wantErr := errors.New("rejected")
	transport := &fakeTransport{}
	pipe := New(transport,
		Wrap(&recordingPolicy{name: "a", journal: &journal}),
		Wrap(&recordingPolicy{name: "b", journal: &journal, requestErr: wantErr}),
		Wrap(&recordingPolicy{name: "c", journal: &journal}),
	)

	resp, err := pipe.Run(context.Background(), NewHTTPRequest(http.MethodGet, "https://example.com/"))
	assert.ErrorIs(t, err, wantErr)
	assert.Nil(t, resp)
	assert.Equal(t, 0, transport.sends)

	// The aborting policy sees no completion hook; policies above it see the
	// failure, policies below it never run.
	assert.Equal(t, []string{"a:request", "b:request", "a:error"}, journal)
}

func TestTransportErrorPropagates(t *testing.T) {
	var journal []string
	wantErr := errors.New("connection refused")
	transport := &fakeTransport{sendErr: wantErr}
	pipe := New(transport,
		Wrap(&recordingPolicy{name: "a", journal: &journal}),
		Wrap(&recordingPolicy{name: "b", journal: &journal}),
	)

	resp, err := pipe.Run(context.Background(), NewHTTPRequest(http.MethodGet, "https://example.com/"))
	assert.ErrorIs(t, err, wantErr)
	assert.Nil(t, resp)

	assert.Equal(t, []string{
		"a:request", "b:request",
		"b:error", "a:error",
	}, journal)
}

func TestOnResponseFailureBecomesError(t *testing.T) {
	var journal []string
	wantErr := errors.New("bad response")
	transport := &fakeTransport{}
	pipe := New(transport,
		Wrap(&recordingPolicy{name: "a", journal: &journal}),
		Wrap(&recordingPolicy{name: "b", journal: &journal, responseErr: wantErr}),
	)

	resp, err := pipe.Run(context.Background(), NewHTTPRequest(http.MethodGet, "https://example.com/"))
	assert.ErrorIs(t, err, wantErr)
	assert.Nil(t, resp)

	// b's OnResponse failure surfaces to a as an error, not a response.
	assert.Equal(t, []string{
		"a:request", "b:request",
		"b:response", "a:error",
	}, journal)
}

func TestReservedOptionsStripped(t *testing.T) {
	transport := &fakeTransport{}
	pipe := New(transport)

	_, err := pipe.Run(context.Background(), NewHTTPRequest(http.MethodGet, "https://example.com/"),
		WithOption(OptionInsecureDomainChange, true),
		WithCAE(),
		WithTracingOptions(map[string]any{"operation": "list"}),
		WithTimeout(5*time.Second),
		WithOption("custom", "kept"),
	)
	require.NoError(t, err)

	assert.NotContains(t, transport.lastOptions, OptionInsecureDomainChange)
	assert.NotContains(t, transport.lastOptions, OptionEnableCAE)
	assert.NotContains(t, transport.lastOptions, OptionTracingOptions)
	assert.Equal(t, 5*time.Second, transport.lastOptions[OptionTimeout])
	assert.Equal(t, "kept", transport.lastOptions["custom"])
}

func TestOpenCloseDelegate(t *testing.T) {
	transport := &fakeTransport{}
	pipe := New(transport)

	require.NoError(t, pipe.Open())
	require.NoError(t, pipe.Close())
	assert.Equal(t, 1, transport.opens)
	assert.Equal(t, 1, transport.closes)
}

func TestOpenCloseOncePerScopeDespiteRunFailure(t *testing.T) {
	transport := &fakeTransport{sendErr: errors.New("boom")}
	pipe := New(transport)

	require.NoError(t, pipe.Open())
	_, err := pipe.Run(context.Background(), NewHTTPRequest(http.MethodGet, "https://example.com/"))
	require.Error(t, err)
	require.NoError(t, pipe.Close())

	assert.Equal(t, 1, transport.opens)
	assert.Equal(t, 1, transport.closes)
}

func TestRunNilRequest(t *testing.T) {
	pipe := New(&fakeTransport{})

	_, err := pipe.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilRequest)
}

func TestResponseEnvelope(t *testing.T) {
	transport := &fakeTransport{status: http.StatusTeapot}
	pipe := New(transport)

	req := NewHTTPRequest(http.MethodPost, "https://example.com/brew")
	resp, err := pipe.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Same(t, req, resp.HTTPRequest)
	assert.Equal(t, http.StatusTeapot, resp.HTTPResponse.StatusCode)
	require.NotNil(t, resp.Context)
	assert.Same(t, Transport(transport), resp.Context.Transport)
}

func TestRunContextReachesTransport(t *testing.T) {
	type ctxKey struct{}
	transport := &fakeTransport{}
	pipe := New(transport)

	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	_, err := pipe.Run(ctx, NewHTTPRequest(http.MethodGet, "https://example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "v", transport.lastCtx.Value(ctxKey{}))
}

func TestContextBool(t *testing.T) {
	c := NewContext(context.Background(), nil,
		WithOption("yes", true),
		WithOption("no", false),
		WithOption("notbool", "true"),
	)

	assert.True(t, c.Bool("yes"))
	assert.False(t, c.Bool("no"))
	assert.False(t, c.Bool("notbool"))
	assert.False(t, c.Bool("absent"))
}

func TestSetContext(t *testing.T) {
	type ctxKey struct{}
	c := NewContext(context.Background(), nil)

	c.SetContext(context.WithValue(context.Background(), ctxKey{}, "derived"))
	assert.Equal(t, "derived", c.Context().Value(ctxKey{}))

	// A nil context is ignored rather than clearing the call context.
	c.SetContext(nil)
	assert.NotNil(t, c.Context())
}

func TestNewContextNilParent(t *testing.T) {
	c := NewContext(nil, nil)
	require.NotNil(t, c.Context())
	assert.NoError(t, c.Context().Err())
}

func TestResponseDrain(t *testing.T) {
	resp := &HTTPResponse{Body: io.NopCloser(strings.NewReader("payload"))}
	data, err := resp.Drain()
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	empty := &HTTPResponse{}
	data, err = empty.Drain()
	require.NoError(t, err)
	assert.Nil(t, data)
}
