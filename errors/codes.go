package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	// ErrCodeTransport covers connect, TLS, read and idle-timeout failures.
	ErrCodeTransport ErrorCode = "TRANSPORT"
	// ErrCodeHTTPStatus is a completed exchange whose status was >= 400.
	ErrCodeHTTPStatus ErrorCode = "HTTP_STATUS"
	// ErrCodeDecode means a body that should have been JSON did not parse.
	ErrCodeDecode ErrorCode = "DECODE"
	// ErrCodeHandshake is any OAuth handshake failure.
	ErrCodeHandshake ErrorCode = "HANDSHAKE"
	// ErrCodeInvalidRequest is a request that could not be built.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeInvalidConfig is a configuration that failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Error domains.
const (
	DomainHTTP      = "http"
	DomainTransport = "transport"
	DomainDecode    = "decode"
	DomainOAuth     = "oauth"
	DomainClient    = "client"
)

// HandshakeReason refines ErrCodeHandshake.
type HandshakeReason string

const (
	ReasonBadServerResponse   HandshakeReason = "bad_server_response"
	ReasonUnexpectedTokenType HandshakeReason = "unexpected_token_type"
	ReasonAPIError            HandshakeReason = "api_error"
	ReasonUnparseableBody     HandshakeReason = "unparseable_body"
	ReasonInProgress          HandshakeReason = "in_progress"
	ReasonNoPendingSession    HandshakeReason = "no_pending_session"
	ReasonCancelled           HandshakeReason = "cancelled"
	ReasonMissingCredentials  HandshakeReason = "missing_credentials"
)
