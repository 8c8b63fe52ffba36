package logger

import (
	"log/slog"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

// Webhook query and form keys that carry a caller's number.
var phoneParams = []string{"userPhone", "From", "To", "Caller", "Called"}

// Middleware returns a Gin middleware that injects request_id and logs request
// summaries. Webhook state travels in the query string, so it is logged too,
// with caller numbers masked unless showPhones is set.
func Middleware(l *slog.Logger, showPhones bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)

		// attach request_id logger
		reqLogger := l.With("request_id", rid)
		c.Set("logger", reqLogger)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLogger))

		c.Next()

		dur := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", float64(dur.Milliseconds()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			attrs = append(attrs, "query", maskQuery(q, showPhones))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
			reqLogger.Error("request", attrs...)
			return
		}
		reqLogger.Info("request", attrs...)
	}
}

func maskQuery(raw string, showPhones bool) string {
	v, err := url.ParseQuery(raw)
	if err != nil {
		return "unparseable"
	}
	for _, k := range phoneParams {
		if vals, ok := v[k]; ok {
			for i := range vals {
				vals[i] = Phone(vals[i], showPhones)
			}
		}
	}
	return v.Encode()
}

// FromGin pulls the request-scoped logger from Gin context.
func FromGin(c *gin.Context) *slog.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return From(c.Request.Context())
}
