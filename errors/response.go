package errors

import (
	stderrors "errors"
)

// ErrorResponse is the JSON shape used when an error is reported to a
// machine-readable output.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the reported error details.
type ErrorBody struct {
	Code       ErrorCode       `json:"code"`
	Domain     string          `json:"domain,omitempty"`
	Message    string          `json:"message"`
	StatusCode int             `json:"status,omitempty"`
	APICode    int             `json:"api_code,omitempty"`
	Reason     HandshakeReason `json:"reason,omitempty"`
	Details    map[string]any  `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:       e.Code,
			Domain:     e.Domain,
			Message:    e.Message,
			StatusCode: e.StatusCode,
			APICode:    e.APICode,
			Reason:     e.Reason,
			Details:    e.Details,
		},
	}
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ResponseFor wraps any error for output. Plain errors are reported as
// ErrCodeInvalidRequest in the client domain.
func ResponseFor(err error) ErrorResponse {
	if appErr, ok := AsAppError(err); ok {
		return appErr.ToResponse()
	}
	return ErrorResponse{Error: ErrorBody{Code: ErrCodeInvalidRequest, Domain: DomainClient, Message: err.Error()}}
}
