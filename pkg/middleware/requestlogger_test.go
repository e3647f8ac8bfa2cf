package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/logger"
)

func newTestLogger(w *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("test-svc", "info", w)
}

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func loggingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handler log")
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestLogger_StoresLoggerInContext(t *testing.T) {
	var buf bytes.Buffer
	RequestLogger(newTestLogger(&buf))(loggingHandler()).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/search", nil))

	out := logLine(t, &buf)
	assert.Equal(t, "handler log", out["msg"])
	assert.Equal(t, "test-svc", out["service"])
}

func TestRequestLogger_IncludesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithCorrelationID(context.Background(), "corr-test-123")
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil).WithContext(ctx)

	RequestLogger(newTestLogger(&buf))(loggingHandler()).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "corr-test-123", logLine(t, &buf)["correlation_id"])
}

func TestRequestLogger_IncludesSearchSessionFromHeader(t *testing.T) {
	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	req.Header.Set(SessionHeader, "tab-42")

	var fromCtx string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = logger.SessionIDFromContext(r.Context())
		logger.FromContext(r.Context()).Info("test")
	})
	RequestLogger(newTestLogger(&buf))(handler).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "tab-42", fromCtx)
	assert.Equal(t, "tab-42", logLine(t, &buf)["search_session"])
}

func TestRequestLogger_NoSession_OmitsField(t *testing.T) {
	var buf bytes.Buffer
	RequestLogger(newTestLogger(&buf))(loggingHandler()).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/search", nil))

	_, ok := logLine(t, &buf)["search_session"]
	assert.False(t, ok)
}

func TestRequestLogger_IncludesTraceFields(t *testing.T) {
	var buf bytes.Buffer

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil).WithContext(ctx)

	RequestLogger(newTestLogger(&buf))(loggingHandler()).ServeHTTP(httptest.NewRecorder(), req)

	out := logLine(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", out["span_id"])
}
