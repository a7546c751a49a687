// Package tracing implements lightweight client-side spans emitted through
// zap. It is not a wire-format tracer; it gives every pipeline call a
// trace/span identity that shows up in structured logs and can be
// correlated across retried attempts.
package tracing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/id"
)

type contextKey int

const (
	traceIDKey contextKey = iota
	spanIDKey
)

// Span represents a single operation in a trace.
type Span struct {
	TraceID  id.TraceID
	SpanID   id.SpanID
	ParentID id.SpanID
	Name     string
	Service  string

	start  time.Time
	tracer *Tracer

	mu    sync.Mutex
	attrs []zap.Field
	ended bool
}

// Tracer creates spans for one logical service (typically the client name).
type Tracer struct {
	service string
	logger  *zap.Logger
}

// New creates a tracer. A nil logger disables emission but spans still
// carry identities.
func New(service string, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{service: service, logger: logger}
}

// StartSpan creates a span, inheriting the trace from ctx when present,
// and returns a derived context carrying the new span identity.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID, _ := ctx.Value(traceIDKey).(id.TraceID)
	if traceID == "" {
		traceID = id.NewTraceID()
	}
	parentID, _ := ctx.Value(spanIDKey).(id.SpanID)

	span := &Span{
		TraceID:  traceID,
		SpanID:   id.NewSpanID(),
		ParentID: parentID,
		Name:     name,
		Service:  t.service,
		start:    time.Now(),
		tracer:   t,
	}

	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// SetAttribute attaches a field to the span.
func (s *Span) SetAttribute(fields ...zap.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, fields...)
}

// End finishes the span and emits it. Subsequent calls are no-ops, so a
// span may be ended from either the response or the error path.
func (s *Span) End(statusCode int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	fields := []zap.Field{
		zap.String("service", s.Service),
		zap.String("trace_id", s.TraceID.String()),
		zap.String("span_id", s.SpanID.String()),
		zap.Duration("duration", time.Since(s.start)),
	}
	if s.ParentID != "" {
		fields = append(fields, zap.String("parent_id", s.ParentID.String()))
	}
	if statusCode != 0 {
		fields = append(fields, zap.Int("status", statusCode))
	}
	fields = append(fields, s.attrs...)

	if err != nil {
		s.tracer.logger.Warn(s.Name, append(fields, zap.Error(err))...)
		return
	}
	s.tracer.logger.Info(s.Name, fields...)
}
