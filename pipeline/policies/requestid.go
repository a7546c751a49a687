package policies

import (
	"github.com/GriffinCanCode/conduit/internal/id"
	"github.com/GriffinCanCode/conduit/pipeline"
)

// DefaultRequestIDHeader is the header the RequestID policy populates.
const DefaultRequestIDHeader = "X-Request-ID"

// RequestID stamps every outgoing request with a unique, sortable ID so
// client and server logs can be correlated. A caller-supplied header wins.
type RequestID struct {
	pipeline.BasePolicy
	header string
}

// NewRequestID creates the policy with the default header name.
func NewRequestID() *RequestID {
	return &RequestID{header: DefaultRequestIDHeader}
}

// NewRequestIDWithHeader creates the policy with a custom header name.
func NewRequestIDWithHeader(header string) *RequestID {
	return &RequestID{header: header}
}

func (p *RequestID) OnRequest(req *pipeline.Request) error {
	if req.HTTPRequest.Header.Get(p.header) == "" {
		req.HTTPRequest.Header.Set(p.header, id.NewRequestID().String())
	}
	return nil
}
