package errors

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// ContentTypeProblemJSON is the media type for Problem Details responses.
const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper turns a service error into a problem. Returning false hands the
// error to the next mapper.
type ErrorMapper func(err error) (ProblemDetail, bool)

// Responder writes Problem Details. Server-side problems carry the active
// trace id and their cause is logged, never written to the client.
type Responder struct {
	baseURI string
	logger  *slog.Logger
	mappers []ErrorMapper
}

// ResponderOption configures a Responder.
type ResponderOption func(*Responder)

// WithBaseURI prefixes relative problem types.
func WithBaseURI(uri string) ResponderOption {
	return func(r *Responder) { r.baseURI = strings.TrimSuffix(uri, "/") }
}

// WithLogger sets the logger for 5xx causes. The default is slog.Default at write time.
func WithLogger(logger *slog.Logger) ResponderOption {
	return func(r *Responder) { r.logger = logger }
}

// WithMappers appends error mappers, tried in order.
func WithMappers(mappers ...ErrorMapper) ResponderOption {
	return func(r *Responder) { r.mappers = append(r.mappers, mappers...) }
}

// NewResponder builds a responder.
func NewResponder(opts ...ResponderOption) *Responder {
	r := &Responder{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultResponder = NewResponder()

// Respond writes the problem with the default responder.
func Respond(c *gin.Context, problem ProblemDetail) {
	defaultResponder.Respond(c, problem)
}

// Respond writes the problem as is.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	r.write(c, problem, nil)
}

// RespondError maps err through the configured mappers. A ProblemDetail
// error is written directly; anything else becomes a bare 500.
func (r *Responder) RespondError(c *gin.Context, err error) {
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			r.write(c, problem, err)
			return
		}
	}
	var problem ProblemDetail
	if errors.As(err, &problem) {
		r.write(c, problem, err)
		return
	}
	r.write(c, ErrInternal.WithDetail("unexpected error"), err)
}

func (r *Responder) write(c *gin.Context, problem ProblemDetail, cause error) {
	if r.baseURI != "" && strings.HasPrefix(problem.Type, "/") {
		problem.Type = r.baseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	if problem.Status >= http.StatusInternalServerError {
		ctx := c.Request.Context()
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			problem = problem.WithExtension("traceId", sc.TraceID().String())
		}
		if cause != nil {
			r.log().ErrorContext(ctx, "request failed",
				slog.String("method", c.Request.Method),
				slog.String("path", problem.Instance),
				slog.Int("status", problem.Status),
				slog.Any("error", cause))
		}
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}

func (r *Responder) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}
