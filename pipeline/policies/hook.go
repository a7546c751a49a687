package policies

import (
	"github.com/GriffinCanCode/conduit/pipeline"
)

// Hook runs caller-supplied callbacks around the send without the caller
// writing a full policy. Either callback may be nil.
type Hook struct {
	pipeline.BasePolicy
	onSend    func(*pipeline.Request) error
	onReceive func(*pipeline.Request, *pipeline.Response) error
}

// NewHook creates the policy.
func NewHook(onSend func(*pipeline.Request) error, onReceive func(*pipeline.Request, *pipeline.Response) error) *Hook {
	return &Hook{onSend: onSend, onReceive: onReceive}
}

func (p *Hook) OnRequest(req *pipeline.Request) error {
	if p.onSend == nil {
		return nil
	}
	return p.onSend(req)
}

func (p *Hook) OnResponse(req *pipeline.Request, resp *pipeline.Response) error {
	if p.onReceive == nil {
		return nil
	}
	return p.onReceive(req, resp)
}
