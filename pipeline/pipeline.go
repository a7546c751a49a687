package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrNilRequest is returned by Run when no request was supplied.
var ErrNilRequest = errors.New("pipeline: nil request")

// Pipeline owns the transport and the assembled policy chain. Construct it
// once per client and reuse it; the chain is immutable after New, so
// concurrent Run calls are safe as long as individual policies keep their
// cross-call state synchronized (the shipped ones do).
type Pipeline struct {
	transport Transport
	head      Sender
}

// New links the given policies into a chain terminated by the transport
// runner. Simple policies are adapted with Wrap by the caller; passing no
// policies is legal and yields an identity pipeline that sends straight to
// the transport.
func New(transport Transport, policies ...ChainingPolicy) *Pipeline {
	terminal := &transportRunner{transport: transport}

	p := &Pipeline{transport: transport, head: terminal}
	if len(policies) == 0 {
		return p
	}
	for i := 0; i < len(policies)-1; i++ {
		policies[i].SetNext(policies[i+1])
	}
	policies[len(policies)-1].SetNext(terminal)
	p.head = policies[0]
	return p
}

// Open acquires the transport's connection resources. Pair with Close:
//
//	if err := pipe.Open(); err != nil { ... }
//	defer pipe.Close()
func (p *Pipeline) Open() error {
	return p.transport.Open()
}

// Close releases the transport's connection resources.
func (p *Pipeline) Close() error {
	return p.transport.Close()
}

// Run sends one request through the chain and returns the response
// envelope. Multipart bundles are prepared and serialized first; then a
// fresh Context wraps the call options and the request enters the chain at
// its head. Errors from any link propagate verbatim.
func (p *Pipeline) Run(ctx context.Context, req *HTTPRequest, opts ...CallOption) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if err := prepareMultipart(ctx, req); err != nil {
		return nil, fmt.Errorf("prepare multipart request: %w", err)
	}

	callCtx := NewContext(ctx, p.transport, opts...)
	return p.head.Send(&Request{HTTPRequest: req, Context: callCtx})
}
