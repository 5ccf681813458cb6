// File: internal/common/errors.go
package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError represents a standard structure for API errors.
// It is the envelope for framework-level failures (bad JSON, unknown routes, panics).
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("APIError: StatusCode=%d, Code=%s, Message=%s", e.StatusCode, e.Code, e.Message)
}

func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// WithDetails returns a copy of the error carrying details, so the shared sentinels stay untouched.
func (e *APIError) WithDetails(details interface{}) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

var (
	ErrBadRequest         = NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "The request is invalid.")
	ErrUnauthorized       = NewAPIError(http.StatusUnauthorized, "UNAUTHORIZED", "You need to sign in first.")
	ErrForbidden          = NewAPIError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource.")
	ErrNotFound           = NewAPIError(http.StatusNotFound, "NOT_FOUND", "The requested resource could not be found.")
	ErrInternalServer     = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred.")
	ErrServiceUnavailable = NewAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The agent is currently unable to handle the request.")
)

func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func NewValidationAPIError(details interface{}) *APIError {
	return &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "VALIDATION_ERROR",
		Message:    "Input validation failed.",
		Details:    details,
	}
}

// ErrorKind is the closed set of failure classes every collaborator adapter reports.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindTransient        ErrorKind = "transient"
	KindPermanent        ErrorKind = "permanent"
	KindNotAuthenticated ErrorKind = "not_authenticated"
	KindNotFound         ErrorKind = "not_found"
)

// Provider-neutral error codes.
const (
	CodeEmailAlreadyInUse          = "email-already-in-use"
	CodeInvalidEmail               = "invalid-email"
	CodeWrongPassword              = "wrong-password"
	CodeUserNotFound               = "user-not-found"
	CodeWeakPassword               = "weak-password"
	CodeUserDisabled               = "user-disabled"
	CodeTooManyRequests            = "too-many-requests"
	CodeRequiresRecentLogin        = "requires-recent-login"
	CodeInvalidCredential          = "invalid-credential"
	CodeCredentialAlreadyInUse     = "credential-already-in-use"
	CodeAccountExistsDifferentCred = "account-exists-with-different-credential"
	CodeNetworkRequestFailed       = "network-request-failed"
	CodeUnavailable                = "unavailable"
	CodePermissionDenied           = "permission-denied"
	CodeNotFound                   = "not-found"
	CodeNotAuthenticated           = "not-authenticated"
	CodeValidation                 = "validation-failed"
	CodeInternal                   = "internal"
)

// ServiceError is the error value crossing component boundaries inside the agent.
type ServiceError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Code != "" {
		b.WriteString("/")
		b.WriteString(e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error { return e.Err }

func NewServiceError(kind ErrorKind, code, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Code: code, Message: message, Err: err}
}

// NewValidationError carries a field-level message that is shown to the user as is.
func NewValidationError(message string) *ServiceError {
	return &ServiceError{Kind: KindValidation, Code: CodeValidation, Message: message}
}

func NewTransientError(code string, err error) *ServiceError {
	if code == "" {
		code = CodeUnavailable
	}
	return &ServiceError{Kind: KindTransient, Code: code, Err: err}
}

func NewPermanentError(code string, err error) *ServiceError {
	if code == "" {
		code = CodeInternal
	}
	return &ServiceError{Kind: KindPermanent, Code: code, Err: err}
}

func NewNotFoundError(err error) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Code: CodeNotFound, Err: err}
}

var ErrNotAuthenticated = &ServiceError{
	Kind:    KindNotAuthenticated,
	Code:    CodeNotAuthenticated,
	Message: "no active session",
}

func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// KindOf reports the kind of err. Untagged errors are permanent: only adapters decide what is retryable.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if svcErr, ok := AsServiceError(err); ok {
		return svcErr.Kind
	}
	return KindPermanent
}

func CodeOf(err error) string {
	if svcErr, ok := AsServiceError(err); ok {
		return svcErr.Code
	}
	return ""
}

func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// FormatValidationErrors converts validator.ValidationErrors into a map.
func FormatValidationErrors(errs validator.ValidationErrors) map[string]string {
	errorMap := make(map[string]string)
	for _, e := range errs {
		field := e.Field()
		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("The %s field is required.", strings.ToLower(field))
		case "email":
			message = fmt.Sprintf("The %s field must be a valid email address.", strings.ToLower(field))
		case "min":
			message = fmt.Sprintf("The %s field must be at least %s characters long.", strings.ToLower(field), e.Param())
		case "max":
			message = fmt.Sprintf("The %s field may not be greater than %s characters.", strings.ToLower(field), e.Param())
		case "strongpassword":
			message = fmt.Sprintf("The %s field must be 8-128 characters with an uppercase letter, a lowercase letter and a number.", strings.ToLower(field))
		case "phone":
			message = fmt.Sprintf("The %s field must be a valid phone number.", strings.ToLower(field))
		case "birthdate":
			message = fmt.Sprintf("The %s field must be a past date in YYYY-MM-DD format.", strings.ToLower(field))
		case "personname":
			message = fmt.Sprintf("The %s field may only contain letters, spaces, hyphens and apostrophes.", strings.ToLower(field))
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag.", field, e.Tag())
		}
		errorMap[field] = message
	}
	return errorMap
}
