package policies

import (
	"github.com/GriffinCanCode/conduit/pipeline"
	"github.com/GriffinCanCode/conduit/resilience"
)

// Breaker short-circuits sends when the wrapped circuit breaker is open,
// failing fast with resilience.ErrCircuitOpen instead of hitting a known-bad
// endpoint. Only transport errors count as failures; HTTP error statuses do
// not trip the breaker unless CountServerErrors is set.
type Breaker struct {
	pipeline.ChainedPolicy
	breaker *resilience.Breaker

	// CountServerErrors treats 5xx responses as breaker failures.
	CountServerErrors bool
}

// NewBreaker creates the policy. A nil breaker gets defaults suited to
// external endpoints.
func NewBreaker(breaker *resilience.Breaker) *Breaker {
	if breaker == nil {
		breaker = resilience.New("pipeline", resilience.Settings{})
	}
	return &Breaker{breaker: breaker}
}

// State exposes the underlying breaker state.
func (p *Breaker) State() resilience.State {
	return p.breaker.State()
}

func (p *Breaker) Send(req *pipeline.Request) (*pipeline.Response, error) {
	token, err := p.breaker.Allow()
	if err != nil {
		return nil, err
	}

	resp, err := p.Next().Send(req)

	success := err == nil
	if success && p.CountServerErrors && resp.HTTPResponse.StatusCode >= 500 {
		success = false
	}
	p.breaker.Record(token, success)

	return resp, err
}
