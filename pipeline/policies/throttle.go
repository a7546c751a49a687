package policies

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/conduit/pipeline"
)

// Throttle bounds the request rate with a token bucket. The wait in
// OnRequest honors the call's context, so a canceled or expired call never
// queues behind the limiter.
type Throttle struct {
	pipeline.BasePolicy
	limiter *rate.Limiter
}

// NewThrottle creates the policy. rps <= 0 means unlimited.
func NewThrottle(rps float64, burst int) *Throttle {
	if rps <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (p *Throttle) OnRequest(req *pipeline.Request) error {
	if err := p.limiter.Wait(req.Context.Context()); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
