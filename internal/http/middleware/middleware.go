package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/fabricator/internal/observability"
	"github.com/yungbote/fabricator/internal/platform/ctxutil"
	"github.com/yungbote/fabricator/internal/platform/logger"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// AttachTraceContext puts request and trace ids on the request context and
// echoes them back. The trace id prefers the caller's header, then the span
// otelgin started, then a fresh uuid.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		td := &ctxutil.TraceData{
			RequestID: firstNonEmpty(c.GetHeader(HeaderRequestID), uuid.NewString()),
			Source:    "http",
		}
		var spanTrace string
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			spanTrace = sc.TraceID().String()
		}
		td.TraceID = firstNonEmpty(c.GetHeader(HeaderTraceID), spanTrace, uuid.NewString())

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Header(HeaderTraceID, td.TraceID)
		c.Header(HeaderRequestID, td.RequestID)
		c.Next()
	}
}

// RequestLogger logs one line per request. Successful requests log at debug
// since probes and status polls dominate traffic.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		l := log.Ctx(c.Request.Context())
		kv := []interface{}{
			"method", c.Request.Method,
			"route", routeOf(c),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case status >= 500:
			l.Error("HTTP request", kv...)
		case status >= 400:
			l.Warn("HTTP request", kv...)
		default:
			l.Debug("HTTP request", kv...)
		}
	}
}

// Metrics records request counts and latency per route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m != nil {
			m.ObserveAPI(c.Request.Method, routeOf(c), strconv.Itoa(c.Writer.Status()), time.Since(start))
		}
	}
}

// routeOf keeps label cardinality bounded: unmatched paths collapse to one value.
func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
