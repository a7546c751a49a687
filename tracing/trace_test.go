package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStartSpanNewTrace(t *testing.T) {
	tracer := New("svc", zap.NewNop())

	span, ctx := tracer.StartSpan(context.Background(), "op")
	require.NotNil(t, ctx)
	assert.Regexp(t, `^trace_`, span.TraceID.String())
	assert.Regexp(t, `^span_`, span.SpanID.String())
	assert.Empty(t, span.ParentID)
	assert.Equal(t, "svc", span.Service)
}

func TestStartSpanInheritsTrace(t *testing.T) {
	tracer := New("svc", zap.NewNop())

	parent, ctx := tracer.StartSpan(context.Background(), "parent")
	child, _ := tracer.StartSpan(ctx, "child")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
}

func TestEndEmitsOnce(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracer := New("svc", zap.New(core))

	span, _ := tracer.StartSpan(context.Background(), "op")
	span.SetAttribute(zap.String("k", "v"))
	span.End(200, nil)
	span.End(0, errors.New("late"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "op", entries[0].Message)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, "v", fields["k"])
}

func TestEndWithErrorWarns(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracer := New("svc", zap.New(core))

	span, _ := tracer.StartSpan(context.Background(), "op")
	span.End(0, errors.New("timed out"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "timed out", entries[0].ContextMap()["error"])
}

func TestNilLoggerSafe(t *testing.T) {
	tracer := New("svc", nil)
	span, _ := tracer.StartSpan(context.Background(), "op")
	span.End(200, nil)
}
