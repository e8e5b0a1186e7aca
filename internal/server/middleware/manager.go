package middleware

import (
	"net/http"
	"time"

	"github.com/alm9/grades-escolares-api/internal/server/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// Manager wires all HTTP middlewares with shared dependencies.
type Manager struct {
	rateLimiter *ratelimit.Limiter
	logger      *zap.Logger
}

// NewManager builds a middleware manager for the HTTP server.
func NewManager(limiter *ratelimit.Limiter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		rateLimiter: limiter,
		logger:      logger,
	}
}

// RequestLog tags each request with an id and logs it once it completes.
func (m *Manager) RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			m.logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			m.logger.Warn("request", fields...)
		default:
			m.logger.Info("request", fields...)
		}
	}
}

// Recovery turns a handler panic into a 500 response.
func (m *Manager) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		m.logger.Error("panic serving request",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// CORS allows browser clients from any origin.
func (m *Manager) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, "+requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RateLimit enforces per-client request limits.
func (m *Manager) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.rateLimiter == nil || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		if !m.rateLimiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}
