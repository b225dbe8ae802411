package httpclient

import (
	"net/http"
	"strings"
	"time"
)

// UnknownLength is the ContentLength of a response that did not declare one.
const UnknownLength int64 = -1

const formContentType = "application/x-www-form-urlencoded; charset=utf-8"

// Encoding selects how parameters are placed on the wire.
type Encoding int

const (
	// EncodingAuto picks an encoding from the method, uploads and EncodeParameters.
	EncodingAuto Encoding = iota
	// EncodingQuery appends the escaped query string to the URL.
	EncodingQuery
	// EncodingURLEncoded sends the escaped query string as a form body.
	EncodingURLEncoded
	// EncodingRaw sends the unescaped k=v&k=v text as the body.
	EncodingRaw
	// EncodingMultipart sends uploads and parameters as multipart/form-data.
	EncodingMultipart
)

func (e Encoding) String() string {
	switch e {
	case EncodingQuery:
		return "query"
	case EncodingURLEncoded:
		return "urlencoded"
	case EncodingRaw:
		return "raw"
	case EncodingMultipart:
		return "multipart"
	default:
		return "auto"
	}
}

// RequestSpec describes one exchange.
type RequestSpec struct {
	// Method is the HTTP method.
	Method string
	// URL is the absolute request URL. It may already carry a query.
	URL string
	// Params are the request parameters. oauth_ keys are only seen by the Signer.
	Params Params
	// Headers are request-specific headers (merged over client defaults).
	Headers map[string]string
	// EncodeParameters sends body parameters urlencoded instead of raw.
	EncodeParameters bool
	// Encoding overrides the automatic choice.
	Encoding Encoding
	// Uploads force a multipart body.
	Uploads []UploadPart
	// Timeout is the idle timeout. Zero uses the client default.
	Timeout time.Duration
	// HandleCookies stores and sends cookies through the client's jar.
	HandleCookies bool
	// Signer overrides the client signer for this request.
	Signer Signer
}

// AddUpload appends an upload part.
func (s *RequestSpec) AddUpload(part UploadPart) {
	s.Uploads = append(s.Uploads, part)
}

// ResolveEncoding returns the encoding used on the wire.
func (s *RequestSpec) ResolveEncoding() Encoding {
	if s.Encoding != EncodingAuto {
		return s.Encoding
	}
	if len(s.Uploads) > 0 {
		return EncodingMultipart
	}
	switch strings.ToUpper(s.Method) {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return EncodingQuery
	}
	if s.EncodeParameters {
		return EncodingURLEncoded
	}
	return EncodingRaw
}

// ResponseEnvelope is the accumulated result of an exchange.
type ResponseEnvelope struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the full response body received so far.
	Body []byte
	// ContentLength is the declared length, or UnknownLength.
	ContentLength int64
}

// IsSuccess returns true if the status code is below 400.
func (r *ResponseEnvelope) IsSuccess() bool {
	return r.StatusCode < 400
}

// ExecutionState is the lifecycle of an Executor.
type ExecutionState int32

const (
	StateIdle ExecutionState = iota
	StateSending
	StateAwaitingResponse
	StateReceivingBody
	StateCompleted
	StateFailed
	StateCancelled
)

func (s ExecutionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateReceivingBody:
		return "receiving_body"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s ExecutionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
