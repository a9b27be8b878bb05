package middleware

import (
	"strings"

	"leetbot/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader = "X-Trace-Id"

	traceIDContextKey = "trace_id"
)

// TraceContextMiddleware ensures every request carries a trace id in its
// context and response headers, generating one when the caller sent none.
func TraceContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(traceIDHeader))
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceIDContextKey, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))
		c.Writer.Header().Set(traceIDHeader, traceID)

		c.Next()
	}
}
