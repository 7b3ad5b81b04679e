package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestProblemDetail_FlattensExtensions(t *testing.T) {
	problem := ErrInvalidTransition.
		WithDetail("cannot move").
		WithExtension("currentStatus", "pending").
		WithExtension("targetStatus", "delivered")

	raw, err := json.Marshal(problem)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, "pending", body["currentStatus"])
	require.Equal(t, "delivered", body["targetStatus"])
	require.Equal(t, float64(http.StatusBadRequest), body["status"])
	require.NotContains(t, body, "extensions")
	require.Nil(t, ErrInvalidTransition.Extensions)
}

func TestResponder_UsesMapperThenFallsBack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sentinel := errors.New("gone")
	responder := NewResponder(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithMappers(func(err error) (ProblemDetail, bool) {
		if errors.Is(err, sentinel) {
			return NewNotFoundProblem("order", "42"), true
		}
		return ProblemDetail{}, false
	}))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil)
	responder.RespondError(c, sentinel)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "/api/v1/orders/42", body["instance"])
	require.Equal(t, "order", body["resourceType"])

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	responder.RespondError(c, errors.New("db password leaked"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "password")
}

func TestResponder_ServerErrorsCarryTraceAndLogCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	responder := NewResponder(WithBaseURI("https://errors.example.com/"), WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/orders/7/invoice/generate", nil).WithContext(ctx)
	responder.RespondError(c, errors.New("bucket quota exceeded"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, traceID.String(), body["traceId"])
	require.Equal(t, "https://errors.example.com"+ErrInternal.Type, body["type"])
	require.NotContains(t, rec.Body.String(), "quota")
	require.Contains(t, logs.String(), "bucket quota exceeded")

	logs.Reset()
	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/orders/7", nil).WithContext(ctx)
	responder.RespondError(c, NewNotFoundProblem("order", "7"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotContains(t, rec.Body.String(), "traceId")
	require.Empty(t, logs.String())
}
