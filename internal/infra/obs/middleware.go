package obs

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// Middleware carries the logger used by the HTTP access log and panic recovery.
type Middleware struct {
	Logger *slog.Logger
	// Quiet lists routes that are never access-logged, such as probes.
	Quiet []string
}

// RequestID reuses the caller's X-Request-ID or mints one, and exposes it on
// the request context for handlers and logs.
func (m Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, id))
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

func (m Middleware) LoggerMiddleware() gin.HandlerFunc {
	quiet := make(map[string]bool, len(m.Quiet))
	for _, route := range m.Quiet {
		quiet[route] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m.Logger == nil || quiet[c.FullPath()] {
			return
		}
		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", RequestIDFromContext(c.Request.Context()))
	}
}

// Recover turns a handler panic into a 500 and logs it with the request id.
func (m Middleware) Recover() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		if m.Logger != nil {
			m.Logger.ErrorContext(c.Request.Context(), "handler panicked",
				"route", c.FullPath(),
				"panic", recovered,
				"request_id", RequestIDFromContext(c.Request.Context()))
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"ok":      false,
			"status":  "error",
			"message": "something went wrong, please try again later",
		})
	})
}

func RequestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDKey{}).(string); ok {
		return s
	}
	return ""
}
