package pipeline

import "context"

// Transport performs the actual network I/O for one request. A Pipeline
// holds a single instance for its lifetime and drives Open/Close around it.
//
// Send receives the sanitized per-call option bag; the reserved pipeline
// keys are removed before this point. Implementations must return an error
// only when no response was obtained; HTTP error statuses are responses.
type Transport interface {
	Send(ctx context.Context, req *HTTPRequest, options map[string]any) (*HTTPResponse, error)
	Open() error
	Close() error
}

// transportOptionDenylist names the per-call options that must never reach
// the wire transport. They are pipeline-internal signaling flags.
var transportOptionDenylist = []string{
	OptionInsecureDomainChange,
	OptionEnableCAE,
	OptionTracingOptions,
}

// cleanupTransportOptions removes pipeline-internal keys from the bag in
// place. It also covers the case where the policy that normally consumes a
// flag was never added to the chain.
func cleanupTransportOptions(options map[string]any) {
	if len(options) == 0 {
		return
	}
	for _, key := range transportOptionDenylist {
		delete(options, key)
	}
}

// transportRunner is the terminal chain link. It has no next: it sanitizes
// the option bag, delegates to the transport, and wraps the raw result into
// a response envelope. Transport errors propagate unwrapped.
type transportRunner struct {
	transport Transport
}

func (t *transportRunner) Send(req *Request) (*Response, error) {
	cleanupTransportOptions(req.Context.Options)
	resp, err := t.transport.Send(req.Context.Context(), req.HTTPRequest, req.Context.Options)
	if err != nil {
		return nil, err
	}
	return &Response{
		HTTPRequest:  req.HTTPRequest,
		HTTPResponse: resp,
		Context:      req.Context,
	}, nil
}
