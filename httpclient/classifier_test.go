package httpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/birdkit/errors"
)

func TestStatusDescription(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   string
	}{
		{404, "nope", "HTTP Status 404: Not Found, Response: nope"},
		{425, "", "HTTP Status 425: Unassigned, Response: "},
		{503, "{}", "HTTP Status 503: Service Unavailable, Response: {}"},
		{418, "teapot", "HTTP Status 418"},
		{999, "x", "HTTP Status 999"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusDescription(tt.status, tt.body))
	}
}

func TestClassify_Success(t *testing.T) {
	assert.NoError(t, Classify(&ResponseEnvelope{StatusCode: 200}))
	assert.NoError(t, Classify(&ResponseEnvelope{StatusCode: 304}))
}

func TestClassify_Failure(t *testing.T) {
	body := []byte(`{"errors":[{"code":88,"message":"Rate limit exceeded"}]}`)
	err := Classify(&ResponseEnvelope{
		StatusCode: 429,
		Body:       body,
		Headers:    map[string]string{"X-Rate-Limit-Remaining": "0"},
	})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeHTTPStatus, appErr.Code)
	assert.Equal(t, 429, appErr.StatusCode)
	assert.Equal(t, 88, appErr.APICode)
	assert.Equal(t, body, appErr.Body)
	assert.Equal(t, "0", appErr.Headers["X-Rate-Limit-Remaining"])
	assert.Equal(t, "HTTP Status 429: Too Many Requests, Response: "+string(body), appErr.Message)
}

func TestAPIErrorCode(t *testing.T) {
	code, ok := APIErrorCode([]byte(`{"errors":[{"code":32}]}`))
	assert.True(t, ok)
	assert.Equal(t, 32, code)

	_, ok = APIErrorCode([]byte(`not json`))
	assert.False(t, ok)
	_, ok = APIErrorCode([]byte(`{"errors":[]}`))
	assert.False(t, ok)
}
