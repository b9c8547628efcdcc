package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext retrieves the logger from context
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithTraceContext adds a trace ID to the context and returns a logger with it
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l := Default().WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// DomainContext creates a logger context for settings domain operations
func DomainContext(domain, action string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"domain": domain,
		"action": action,
	}).WithComponent("defaults")
}

// DiffContext creates a logger context for settings comparisons
func DiffContext(domain string, totalChanges int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"domain":        domain,
		"total_changes": totalChanges,
	}).WithComponent("diff")
}

// AuthContext creates a logger context for authentication operations
func AuthContext(userID, action string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"user_id": userID,
		"action":  action,
	}).WithComponent("auth")
}

// CacheContext creates a logger context for cache operations
func CacheContext(operation, key string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"key":       key,
	}).WithComponent("cache")
}

// APIContext creates a logger context for API operations
func APIContext(method, path string, statusCode int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
	}).WithComponent("api")
}

// WebSocketContext creates a logger context for WebSocket operations
func WebSocketContext(clientID, channel string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"client_id": clientID,
		"channel":   channel,
	}).WithComponent("websocket")
}

// HTTPMiddleware is a middleware that adds logging to HTTP requests
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = GenerateTraceID()
		}

		// Create logger with request context
		l := Default().WithTraceID(traceID).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		}).WithComponent("http")

		// Add logger to context
		ctx := NewContext(r.Context(), l)
		r = r.WithContext(ctx)

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call next handler
		next.ServeHTTP(wrapped, r)

		// Log request completion
		duration := time.Since(start)
		l.WithDuration(duration).WithField("status_code", wrapped.statusCode).Info("Request completed")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// VaultContext creates a logger context for Vault secret operations
func VaultContext(path string, params map[string]interface{}) *Logger {
	l := Default().WithFields(map[string]interface{}{
		"secret_path": path,
	}).WithComponent("vault")

	// Add safe params (exclude sensitive data)
	for k, v := range params {
		if k != "token" && k != "password" {
			l = l.WithField(k, v)
		}
	}

	return l
}

// DatabaseContext creates a logger context for database operations
func DatabaseContext(operation, table string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"table":     table,
	}).WithComponent("database")
}

// EmailContext creates a logger context for outbound mail
func EmailContext(recipient, template string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"recipient": recipient,
		"template":  template,
	}).WithComponent("email")
}
