package policies

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/pipeline"
	"github.com/GriffinCanCode/conduit/tracing"
)

const tracingSpanKey = "tracing_span"

// Tracing opens one client span per pipeline call and finishes it on the
// way back up, from either the response or the error path. The span's
// identity is threaded into the call context so downstream spans become
// its children. Per-call attributes supplied through WithTracingOptions
// are merged into the span.
type Tracing struct {
	pipeline.BasePolicy
	tracer *tracing.Tracer
}

// NewTracing creates the policy.
func NewTracing(tracer *tracing.Tracer) *Tracing {
	return &Tracing{tracer: tracer}
}

func (p *Tracing) OnRequest(req *pipeline.Request) error {
	span, ctx := p.tracer.StartSpan(req.Context.Context(), "http "+req.HTTPRequest.Method)
	req.Context.SetContext(ctx)
	span.SetAttribute(
		zap.String("method", req.HTTPRequest.Method),
		zap.String("url", req.HTTPRequest.URL),
	)
	if attrs, ok := req.Context.Options[pipeline.OptionTracingOptions].(map[string]any); ok {
		for k, v := range attrs {
			span.SetAttribute(zap.Any(k, v))
		}
	}
	req.Context.Options[tracingSpanKey] = span
	return nil
}

func (p *Tracing) OnResponse(req *pipeline.Request, resp *pipeline.Response) error {
	if span, ok := req.Context.Options[tracingSpanKey].(*tracing.Span); ok {
		span.End(resp.HTTPResponse.StatusCode, nil)
	}
	return nil
}

func (p *Tracing) OnError(req *pipeline.Request, err error) {
	if span, ok := req.Context.Options[tracingSpanKey].(*tracing.Span); ok {
		span.End(0, err)
	}
}
