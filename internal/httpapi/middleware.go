package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	HeaderRequestID = "X-Request-ID"

	contextKeyRequestID = "request_id"
	logEventHTTPRequest = "http"
	requestIDMaxLength  = 64
)

// RequestLogger tags every request with an id (the caller's X-Request-ID when it is short enough)
// and logs one line per request, at warn level for server errors.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(context *gin.Context) {
		start := time.Now()
		requestID := context.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > requestIDMaxLength {
			requestID = uuid.NewString()
		}
		context.Set(contextKeyRequestID, requestID)
		context.Header(HeaderRequestID, requestID)

		context.Next()

		level := zapcore.InfoLevel
		if context.Writer.Status() >= http.StatusInternalServerError {
			level = zapcore.WarnLevel
		}
		logger.Log(level, logEventHTTPRequest,
			zap.String("request_id", requestID),
			zap.String("method", context.Request.Method),
			zap.String("route", context.FullPath()),
			zap.String("path", context.Request.URL.Path),
			zap.Int("status", context.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", context.ClientIP()),
		)
	}
}

// RateLimit rejects callers whose client IP exceeded the limiter's window budget.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(context *gin.Context) {
		if !limiter.Allow(context.ClientIP()) {
			context.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{jsonKeyError: errorValueRateLimited})
			return
		}
		context.Next()
	}
}
