package pipeline

import (
	"context"
	"time"
)

// Reserved option keys. These are pipeline-internal signals consumed by
// policies; the transport runner removes them from the bag before the
// transport sees it.
const (
	// OptionInsecureDomainChange marks that a redirect crossed to a different
	// domain. The sensitive-header cleanup policy reacts to it.
	OptionInsecureDomainChange = "insecure_domain_change"
	// OptionEnableCAE asks the bearer-auth policy to request tokens with
	// continuous access evaluation enabled.
	OptionEnableCAE = "enable_cae"
	// OptionTracingOptions carries per-call attributes for the tracing policy.
	OptionTracingOptions = "tracing_options"

	// OptionTimeout is understood by the transport and applied as a per-call
	// deadline. Unlike the keys above it is not stripped.
	OptionTimeout = "timeout"
)

// Context is the per-call option bag plus a back-reference to the transport
// in use. A fresh Context is created for every Run invocation and is never
// shared across concurrent calls, so policies may read and write Options
// without synchronization.
type Context struct {
	Transport Transport
	Options   map[string]any

	std context.Context
}

// NewContext builds a per-call context from call options.
func NewContext(ctx context.Context, transport Transport, opts ...CallOption) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Context{
		Transport: transport,
		Options:   make(map[string]any),
		std:       ctx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Context returns the standard library context carrying cancellation and
// deadline for this call.
func (c *Context) Context() context.Context {
	return c.std
}

// SetContext replaces the call's standard library context for the links
// downstream. Policies use it to thread derived contexts, such as span
// identities, toward the transport. A nil ctx is ignored.
func (c *Context) SetContext(ctx context.Context) {
	if ctx != nil {
		c.std = ctx
	}
}

// Bool reports whether the option is present and true.
func (c *Context) Bool(key string) bool {
	v, ok := c.Options[key].(bool)
	return ok && v
}

// CallOption customizes a single Run invocation.
type CallOption func(*Context)

// WithOption sets an arbitrary per-call option.
func WithOption(key string, value any) CallOption {
	return func(c *Context) {
		c.Options[key] = value
	}
}

// WithTimeout bounds the transport send for this call.
func WithTimeout(d time.Duration) CallOption {
	return WithOption(OptionTimeout, d)
}

// WithCAE enables continuous-access-evaluation token requests for this call.
func WithCAE() CallOption {
	return WithOption(OptionEnableCAE, true)
}

// WithTracingOptions attaches attributes for the tracing policy.
func WithTracingOptions(attrs map[string]any) CallOption {
	return WithOption(OptionTracingOptions, attrs)
}
