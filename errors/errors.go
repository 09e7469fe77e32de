package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	// ValidationError covers malformed or missing input (empty user ID,
	// token failing the shape heuristic). Never retryable.
	ValidationError ErrorType = "VALIDATION_ERROR"
	// TransientError covers timeouts, connection failures and 5xx backend
	// responses. Retryable under the delivery policy.
	TransientError ErrorType = "TRANSIENT_ERROR"
	// ClientRejectedError covers 4xx backend responses other than the known
	// duplicate-registration conflict. Never retryable.
	ClientRejectedError ErrorType = "CLIENT_REJECTED"
	// ConflictError marks the backend's "already registered" response. The
	// delivery path converts it to success.
	ConflictError ErrorType = "CONFLICT"
	// PersistenceError covers secure-store read/write failures. Swallowed at
	// operation boundaries; state degrades to memory-only.
	PersistenceError ErrorType = "PERSISTENCE_ERROR"
	// ParseError covers malformed bridge messages. The message is dropped.
	ParseError  ErrorType = "PARSE_ERROR"
	AuthError   ErrorType = "AUTHENTICATION_ERROR"
	ServerError ErrorType = "SERVER_ERROR"
)

// AppError represents a structured application error.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the HTTP status associated with the error, falling
// back to one derived from the error type when none was set.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates a new AppError.
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// Helper constructors for common errors

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Transient(err error, message string) *AppError {
	return &AppError{
		Type:       TransientError,
		Message:    message,
		Detail:     detailOf(err),
		HTTPStatus: http.StatusBadGateway,
		Raw:        err,
	}
}

func ClientRejected(statusCode int, body string) *AppError {
	return &AppError{
		Type:       ClientRejectedError,
		Message:    fmt.Sprintf("backend rejected request with status %d", statusCode),
		Detail:     body,
		HTTPStatus: statusCode,
	}
}

func Conflict(message string, detail string) *AppError {
	return &AppError{
		Type:       ConflictError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusConflict,
	}
}

func PersistenceFailed(err error, message string) *AppError {
	return &AppError{
		Type:       PersistenceError,
		Message:    message,
		Detail:     detailOf(err),
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

func ParseFailed(err error, message string) *AppError {
	return &AppError{
		Type:       ParseError,
		Message:    message,
		Detail:     detailOf(err),
		HTTPStatus: http.StatusBadRequest,
		Raw:        err,
	}
}

func AuthenticationFailed(message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsRetryable reports whether err represents a transient condition that the
// delivery retry policy may attempt again.
func IsRetryable(err error) bool {
	return IsType(err, TransientError)
}

func detailOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError, ParseError:
		return http.StatusBadRequest
	case AuthError:
		return http.StatusUnauthorized
	case ConflictError:
		return http.StatusConflict
	case TransientError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
