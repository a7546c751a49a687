package policies

import (
	"math/rand"
	"time"

	"github.com/GriffinCanCode/conduit/pipeline"
)

// RetryOptions configures the retry policy.
type RetryOptions struct {
	// MaxAttempts is the total number of sends, first try included.
	// Defaults to 3.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff. Defaults to 1s.
	BaseDelay time.Duration
	// MaxDelay caps the backoff. Defaults to 30s.
	MaxDelay time.Duration
	// RetryStatuses are response codes that trigger a retry. Defaults to
	// 408, 429, 500, 502, 503, 504.
	RetryStatuses []int
	// ShouldRetry overrides the default decision. Exactly one of resp/err
	// is set. Attempt accounting and backoff are unaffected.
	ShouldRetry func(resp *pipeline.Response, err error) bool
	// OnRetry is invoked before each retried attempt with the attempt
	// number about to run (2..MaxAttempts).
	OnRetry func(attempt int)
}

func (o *RetryOptions) setDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.RetryStatuses == nil {
		o.RetryStatuses = []int{408, 429, 500, 502, 503, 504}
	}
}

// Retry re-sends failed attempts with exponential backoff and jitter.
// Transport errors always qualify; response statuses qualify per
// RetryStatuses. Each retried attempt runs against a clone of the request
// so downstream mutations never accumulate across attempts. When attempts
// are exhausted the last failure surfaces as-is: the final error, or the
// final non-2xx response (statuses are not errors at this layer).
type Retry struct {
	pipeline.ChainedPolicy
	opts RetryOptions
}

// NewRetry creates the policy, filling defaults for zero options.
func NewRetry(opts RetryOptions) *Retry {
	opts.setDefaults()
	return &Retry{opts: opts}
}

func (p *Retry) Send(req *pipeline.Request) (*pipeline.Response, error) {
	var (
		lastResp *pipeline.Response
		lastErr  error
	)

	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		attemptReq := req
		if attempt > 1 {
			if p.opts.OnRetry != nil {
				p.opts.OnRetry(attempt)
			}
			attemptReq = &pipeline.Request{
				HTTPRequest: req.HTTPRequest.Clone(),
				Context:     req.Context,
			}
		}

		resp, err := p.Next().Send(attemptReq)
		if !p.shouldRetry(resp, err) {
			return resp, err
		}
		lastResp, lastErr = resp, err

		if attempt == p.opts.MaxAttempts {
			break
		}
		// A superseded response is never surfaced; drain it so the
		// underlying connection can be reused.
		if resp != nil {
			_, _ = resp.HTTPResponse.Drain()
		}
		select {
		case <-time.After(p.backoff(attempt)):
		case <-req.Context.Context().Done():
			return nil, req.Context.Context().Err()
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}

func (p *Retry) shouldRetry(resp *pipeline.Response, err error) bool {
	if p.opts.ShouldRetry != nil {
		return p.opts.ShouldRetry(resp, err)
	}
	if err != nil {
		return true
	}
	for _, status := range p.opts.RetryStatuses {
		if resp.HTTPResponse.StatusCode == status {
			return true
		}
	}
	return false
}

// backoff doubles the delay per attempt, caps it at MaxDelay, and adds up
// to 20% jitter to avoid synchronized retry storms.
func (p *Retry) backoff(attempt int) time.Duration {
	delay := p.opts.BaseDelay << (attempt - 1)
	if delay > p.opts.MaxDelay || delay <= 0 {
		delay = p.opts.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/5 + 1))
	return delay + jitter
}
