// File: internal/common/context_keys.go
package common

const (
	// UserIDKey is the context key for the signed-in user's provider UID
	UserIDKey = "userID"
	// UserEmailKey is the context key for the signed-in user's email
	UserEmailKey = "userEmail"
	// RequestIDKey is the context key for the request correlation ID
	RequestIDKey = "requestID"
	// LoggerKey is the context key for the request-scoped logger
	LoggerKey = "logger"
	// RequestIDHeader is the header carrying the request correlation ID
	RequestIDHeader = "X-Request-ID"
)
