package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	err := HTTPStatus(404, "HTTP Status 404: Not Found, Response: nope", []byte("nope"))
	assert.Equal(t, ErrCodeHTTPStatus, err.Code)
	assert.Equal(t, DomainHTTP, err.Domain)
	assert.Equal(t, 404, err.StatusCode)
	assert.True(t, IsHTTPStatus(err))
	assert.False(t, IsTransport(err))
	assert.Equal(t, 404, StatusCode(err))
	assert.Equal(t, "HTTP_STATUS: HTTP Status 404: Not Found, Response: nope", err.Error())
}

func TestTransportAndTimeout(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Transport(cause)
	assert.True(t, IsTransport(err))
	assert.False(t, IsTimeout(err))
	assert.ErrorIs(t, err, cause)

	te := Timeout("GET https://x", nil)
	assert.True(t, IsTransport(te))
	assert.True(t, IsTimeout(te))
	assert.Equal(t, "GET https://x", te.Details["operation"])
}

func TestHandshakeReasons(t *testing.T) {
	err := BadServerResponse()
	assert.True(t, IsHandshake(err))
	assert.True(t, IsHandshake(err, ReasonBadServerResponse))
	assert.True(t, IsHandshake(err, ReasonCancelled, ReasonBadServerResponse))
	assert.False(t, IsHandshake(err, ReasonUnexpectedTokenType))
	assert.False(t, IsHandshake(Decode(nil, nil)))
}

func TestWrappedPredicates(t *testing.T) {
	inner := HTTPStatus(401, "HTTP Status 401: Unauthorized", nil)
	inner.APICode = 89
	wrapped := fmt.Errorf("timeline: %w", inner)

	assert.True(t, IsHTTPStatus(wrapped))
	assert.Equal(t, 89, APICode(wrapped))
	assert.Equal(t, 0, APICode(stderrors.New("plain")))

	got, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
}

func TestBuilders(t *testing.T) {
	err := InvalidRequest("bad url", nil).
		WithDetail("url", "::").
		WithHeaders(map[string]string{"X": "1"})
	assert.Equal(t, "::", err.Details["url"])
	assert.Equal(t, "1", err.Headers["X"])
	assert.Equal(t, "INVALID_REQUEST: Invalid request: bad url", err.Error())
}

func TestToResponse(t *testing.T) {
	err := Handshake(ReasonAPIError, "Invalid or expired token")
	err.APICode = 89

	data, mErr := json.Marshal(err.ToResponse())
	require.NoError(t, mErr)
	assert.JSONEq(t, `{"error":{"code":"HANDSHAKE","domain":"oauth","message":"Invalid or expired token","api_code":89,"reason":"api_error"}}`, string(data))

	plain := ResponseFor(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInvalidRequest, plain.Error.Code)
	assert.Equal(t, "boom", plain.Error.Message)
}
