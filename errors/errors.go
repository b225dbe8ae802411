// Package errors defines the single structured error type every birdkit
// failure is reported with. Callers branch on Code (and Reason for handshake
// failures) through the Is* helpers.
package errors

import (
	"fmt"
	"maps"
)

// AppError is the unified client error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Domain groups codes by origin, e.g. "http" for status failures.
	Domain string `json:"domain"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// StatusCode is the HTTP status for ErrCodeHTTPStatus.
	StatusCode int `json:"status,omitempty"`
	// APICode is the first error code of an API errors payload, 0 when absent.
	APICode int `json:"api_code,omitempty"`
	// Reason refines ErrCodeHandshake.
	Reason HandshakeReason `json:"reason,omitempty"`
	// Timeout marks a transport failure caused by the idle timeout.
	Timeout bool `json:"timeout,omitempty"`
	// Body is the raw response body or offending bytes.
	Body []byte `json:"-"`
	// Headers are the response headers, if a response was received.
	Headers map[string]string `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithHeaders attaches response headers and returns the receiver.
func (e *AppError) WithHeaders(headers map[string]string) *AppError {
	e.Headers = maps.Clone(headers)
	return e
}

// New creates a new AppError.
func New(code ErrorCode, domain, message string) *AppError {
	return &AppError{Code: code, Domain: domain, Message: message}
}

// Transport creates an error for a failed exchange.
func Transport(cause error) *AppError {
	return &AppError{
		Code: ErrCodeTransport, Domain: DomainTransport,
		Message: "The request could not be completed.", Cause: cause,
	}
}

// Timeout creates a transport error for an exchange that went idle for too long.
func Timeout(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTransport, Domain: DomainTransport, Timeout: true,
		Message: "The request timed out.", Cause: cause,
		Details: map[string]any{"operation": operation},
	}
}

// HTTPStatus creates an error for a completed exchange with status >= 400.
func HTTPStatus(status int, message string, body []byte) *AppError {
	return &AppError{
		Code: ErrCodeHTTPStatus, Domain: DomainHTTP, StatusCode: status,
		Message: message, Body: body,
	}
}

// Decode creates an error for data that failed to parse as JSON.
func Decode(data []byte, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDecode, Domain: DomainDecode,
		Message: "The response could not be decoded.", Body: data, Cause: cause,
	}
}

// Handshake creates an OAuth handshake error.
func Handshake(reason HandshakeReason, message string) *AppError {
	return &AppError{
		Code: ErrCodeHandshake, Domain: DomainOAuth, Reason: reason, Message: message,
	}
}

// BadServerResponse is the handshake failure for unusable token responses and
// callbacks.
func BadServerResponse() *AppError {
	return Handshake(ReasonBadServerResponse, "Bad OAuth response received from server")
}

// InvalidRequest creates an error for a request that could not be built.
func InvalidRequest(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInvalidRequest, Domain: DomainClient,
		Message: fmt.Sprintf("Invalid request: %s", reason), Cause: cause,
	}
}

// InvalidConfig creates an error for a configuration that failed validation.
func InvalidConfig(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidConfig, Domain: DomainClient, Message: message}
}

// --- Predicates ---

func hasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return hasCode(err, ErrCodeTransport) }

// IsTimeout reports whether err is a transport failure caused by the idle timeout.
func IsTimeout(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == ErrCodeTransport && appErr.Timeout
}

// IsHTTPStatus reports whether err is an HTTP status failure.
func IsHTTPStatus(err error) bool { return hasCode(err, ErrCodeHTTPStatus) }

// IsDecode reports whether err is a JSON decode failure.
func IsDecode(err error) bool { return hasCode(err, ErrCodeDecode) }

// IsHandshake reports whether err is a handshake failure with any of the
// given reasons, or any reason when none are given.
func IsHandshake(err error, reasons ...HandshakeReason) bool {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Code != ErrCodeHandshake {
		return false
	}
	if len(reasons) == 0 {
		return true
	}
	for _, r := range reasons {
		if appErr.Reason == r {
			return true
		}
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.StatusCode
	}
	return 0
}

// APICode returns the API error code carried by err, or 0.
func APICode(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.APICode
	}
	return 0
}
