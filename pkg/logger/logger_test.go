package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestContextHandler_AddsRequestID(t *testing.T) {
	// given
	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil))).With("component", "test")
	ctx := web.WithRequestID(context.Background(), "req-42")

	// when
	log.InfoContext(ctx, "hello")

	// then
	line := decodeLine(t, &buf)
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "test", line["component"])
	assert.NotContains(t, line, "trace_id")
}

func TestContextHandler_AddsTraceID(t *testing.T) {
	// given
	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))
	traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	// when
	log.InfoContext(ctx, "traced")

	// then
	line := decodeLine(t, &buf)
	assert.Equal(t, traceID.String(), line["trace_id"])
	assert.NotContains(t, line, "request_id")
}
