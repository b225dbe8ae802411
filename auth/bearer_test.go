package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/httpclient"
)

func TestParseBearerResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		reason  errors.HandshakeReason
		apiCode int
	}{
		{name: "bearer", body: `{"token_type":"bearer","access_token":"AAAA"}`, want: "AAAA"},
		{name: "other type", body: `{"token_type":"mac","access_token":"x"}`, reason: errors.ReasonUnexpectedTokenType},
		{name: "no token", body: `{"token_type":"bearer"}`, reason: errors.ReasonUnexpectedTokenType},
		{name: "errors array", body: `{"errors":[{"code":99,"message":"Unable to verify your credentials"}]}`, reason: errors.ReasonAPIError, apiCode: 99},
		{name: "errors object", body: `{"errors":{"code":89,"message":"Invalid token"}}`, reason: errors.ReasonAPIError, apiCode: 89},
		{name: "array body", body: `[1,2]`, reason: errors.ReasonUnparseableBody},
		{name: "not json", body: `<html>`, reason: errors.ReasonUnparseableBody},
		{name: "empty object", body: `{}`, reason: errors.ReasonUnparseableBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearerResponse([]byte(tt.body))
			if tt.reason == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			assert.True(t, errors.IsHandshake(err, tt.reason), "got %v", err)
			assert.Equal(t, tt.apiCode, errors.APICode(err))
		})
	}
}

func TestAuthorizeAppOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case BearerTokenPath:
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "ck", user)
			assert.Equal(t, "cs", pass)
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "grant_type=client_credentials", string(body))
			assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
			_, _ = io.WriteString(w, `{"token_type":"bearer","access_token":"AAAA"}`)
		default:
			assert.Equal(t, "Bearer AAAA", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{}`)
		}
	}))
	defer srv.Close()
	a, store := newTestAuthenticator(t, srv.URL)

	tok, err := a.AuthorizeAppOnly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AAAA", tok.Key)
	assert.Empty(t, tok.Secret)
	assert.Equal(t, "AAAA", store.Current().Bearer)

	_, err = a.client.Do(context.Background(), httpclient.RequestSpec{
		Method: http.MethodGet,
		URL:    a.client.ResolveURL(httpclient.BaseAPI, "statuses/user_timeline.json"),
		Signer: store.Signer(),
	})
	require.NoError(t, err)
}

func TestAuthorizeAppOnly_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"code":99,"message":"Unable to verify your credentials"}]}`)
	}))
	defer srv.Close()
	a, store := newTestAuthenticator(t, srv.URL)

	_, err := a.AuthorizeAppOnly(context.Background())
	assert.True(t, errors.IsHandshake(err, errors.ReasonAPIError))
	appErr, _ := errors.AsAppError(err)
	assert.Equal(t, "Unable to verify your credentials", appErr.Message)
	assert.True(t, store.Current().IsZero())
}

func TestInvalidateBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, InvalidateTokenPath, r.URL.Path)
		assert.NoError(t, r.ParseForm())
		_, _ = io.WriteString(w, `{"access_token":"`+r.PostForm.Get("access_token")+`"}`)
	}))
	defer srv.Close()
	a, store := newTestAuthenticator(t, srv.URL)
	store.InstallBearer("AAAA")

	tok, err := a.InvalidateBearer(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "AAAA", tok.Key)
	assert.True(t, store.Current().IsZero())
}

func TestInvalidateBearer_NoTokenInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()
	a, store := newTestAuthenticator(t, srv.URL)
	store.InstallBearer("AAAA")

	tok, err := a.InvalidateBearer(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, tok)
	assert.Equal(t, "AAAA", store.Current().Bearer)
}

func TestInvalidateBearer_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	a, _ := newTestAuthenticator(t, srv.URL)

	_, err := a.InvalidateBearer(context.Background())
	assert.True(t, errors.IsHTTPStatus(err))
	assert.Equal(t, 403, errors.StatusCode(err))
}
