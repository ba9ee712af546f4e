package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/enrichment-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext stamps every request with a request id and trace id.
// Job routes also carry their stage and enrichment id onto the span and
// the request log.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		td := &ctxutil.TraceData{
			RequestID:    headerOr(c, headerRequestID),
			TraceID:      strings.TrimSpace(c.GetHeader(headerTraceID)),
			Stage:        strings.ToLower(strings.TrimSpace(c.Param("stage"))),
			EnrichmentID: strings.TrimSpace(c.Param("enrichmentId")),
		}
		if td.TraceID == "" && span.SpanContext().HasTraceID() {
			td.TraceID = span.SpanContext().TraceID().String()
		}
		if td.TraceID == "" {
			td.TraceID = uuid.New().String()
		}
		if td.Stage != "" {
			span.SetAttributes(attribute.String("enrichment.stage", td.Stage))
		}
		if td.EnrichmentID != "" {
			span.SetAttributes(attribute.String("enrichment.id", td.EnrichmentID))
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, td))
		c.Set("trace_id", td.TraceID)
		c.Set("request_id", td.RequestID)
		c.Writer.Header().Set(headerTraceID, td.TraceID)
		c.Writer.Header().Set(headerRequestID, td.RequestID)
		c.Next()
	}
}

func headerOr(c *gin.Context, name string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return uuid.New().String()
}
