package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys set from request headers
const (
	AttrRequestID      = "request_id"
	AttrWebhookTopic   = "webhook.topic"
	AttrWebhookEventID = "webhook.event_id"
	AttrJobID          = "sync.job_id"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing returns the otelgin server middleware.
// Span names follow "METHOD /route/:pattern".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// Annotate enriches the server span. otelgin ends its span when the chain
// returns, so this must run inside the chain after Tracing and RequestID.
func Annotate() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpan(c, span)
		}
		c.Next()
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if id := GetRequestID(c); id != "" {
		span.SetAttributes(attribute.String(AttrRequestID, id))
	}
	if topic := truncate(c.GetHeader("X-Shopify-Topic")); topic != "" {
		span.SetAttributes(attribute.String(AttrWebhookTopic, topic))
	}
	if id := truncate(c.GetHeader("X-Shopify-Webhook-Id")); id != "" {
		span.SetAttributes(attribute.String(AttrWebhookEventID, id))
	}
	if id := c.Param("id"); id != "" && strings.Contains(c.FullPath(), "/jobs/") {
		span.SetAttributes(attribute.String(AttrJobID, truncate(id)))
	}
}

func truncate(s string) string {
	if len(s) > MaxRequestIDLength {
		return s[:MaxRequestIDLength]
	}
	return s
}
