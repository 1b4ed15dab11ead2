package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/fatoora/pkg/log/ctxlogger"
)

// ErrorClassifier maps a handler error to a short reason string for
// the access log. Returning "" leaves the entry unclassified.
type ErrorClassifier func(err error) string

// GinMiddleware writes one structured access-log entry per request.
func GinMiddleware(classify ErrorClassifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		ctx := ctxlogger.ContextWithCorrelationID(c.Request.Context(), c.GetHeader("X-Correlation-ID"))
		ctx, cid := ctxlogger.EnsureCorrelationID(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Correlation-ID", cid)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}

		l := ctxlogger.FromContext(c.Request.Context())
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.Error(lastErr.Err))
			if classify != nil {
				if reason := classify(lastErr.Err); reason != "" {
					fields = append(fields, zap.String("reason", reason))
				}
			}
			if c.Writer.Status() >= 500 {
				l.Error("http request", fields...)
				return
			}
			l.Warn("http request", fields...)
			return
		}
		l.Info("http request", fields...)
	}
}
