package pipeline

// Policy is the simple, sans-IO contract: it observes or mutates the
// request before send and the response (or error) after, but never performs
// network I/O and never decides whether the chain proceeds.
type Policy interface {
	// OnRequest runs before the request is sent. Returning an error aborts
	// the call before any network I/O.
	OnRequest(req *Request) error
	// OnResponse runs after a successful send. Returning an error fails the
	// call even though a response was received.
	OnResponse(req *Request, resp *Response) error
	// OnError runs when the downstream send failed. It cannot suppress the
	// error; the failure keeps propagating after this hook returns.
	OnError(req *Request, err error)
}

// BasePolicy is a no-op Policy for embedding. Implementations override only
// the hooks they need.
type BasePolicy struct{}

func (BasePolicy) OnRequest(*Request) error             { return nil }
func (BasePolicy) OnResponse(*Request, *Response) error { return nil }
func (BasePolicy) OnError(*Request, error)              {}

// Sender is one link in the chain: anything that can take a request
// envelope and produce a response envelope or an error.
type Sender interface {
	Send(req *Request) (*Response, error)
}

// ChainingPolicy is a policy with explicit control over calling onward. A
// chaining policy may call its next link zero, one, or many times, which is
// how retry, redirect, and short-circuit behaviors are built.
type ChainingPolicy interface {
	Sender
	SetNext(next Sender)
}

// ChainedPolicy holds the next link for embedding in chaining policies.
type ChainedPolicy struct {
	next Sender
}

// SetNext wires the following link. Called once during Pipeline assembly.
func (c *ChainedPolicy) SetNext(next Sender) {
	c.next = next
}

// Next returns the downstream link.
func (c *ChainedPolicy) Next() Sender {
	return c.next
}

// Wrap adapts a simple Policy to the chaining contract so it can be linked
// into the chain alongside genuine chaining policies. Per send, OnRequest
// fires exactly once before exactly one of OnResponse or OnError.
func Wrap(p Policy) ChainingPolicy {
	return &policyRunner{policy: p}
}

type policyRunner struct {
	ChainedPolicy
	policy Policy
}

func (r *policyRunner) Send(req *Request) (*Response, error) {
	if err := r.policy.OnRequest(req); err != nil {
		return nil, err
	}
	resp, err := r.Next().Send(req)
	if err != nil {
		r.policy.OnError(req, err)
		return nil, err
	}
	if err := r.policy.OnResponse(req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
