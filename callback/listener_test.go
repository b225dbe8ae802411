package callback

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/birdkit/logger"
)

func TestListener_Delivers(t *testing.T) {
	var got *url.URL
	l := New(Config{Path: "/cb"}, func(u *url.URL) bool {
		got = u
		return true
	}, logger.Nop())

	req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8910/cb?oauth_token=abc&oauth_verifier=V", nil)
	rec := httptest.NewRecorder()
	l.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization received")
	require.NotNil(t, got)
	assert.Equal(t, "V", got.Query().Get("oauth_verifier"))
	assert.Equal(t, "127.0.0.1:8910", got.Host)
	assert.Equal(t, "http", got.Scheme)
}

func TestListener_ConflictWhenNothingPending(t *testing.T) {
	l := New(Config{}, func(*url.URL) bool { return false }, logger.Nop())

	rec := httptest.NewRecorder()
	l.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?oauth_verifier=V", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	l.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListener_StartStop(t *testing.T) {
	delivered := make(chan string, 1)
	l := New(Config{Host: "127.0.0.1", Port: 0}, func(u *url.URL) bool {
		delivered <- u.Query().Get("oauth_verifier")
		return true
	}, logger.Nop())

	require.NoError(t, l.Start(context.Background()))
	defer func() { _ = l.Stop(context.Background()) }()
	assert.Error(t, l.Start(context.Background()))

	cb := l.CallbackURL()
	assert.True(t, strings.HasPrefix(cb, "http://127.0.0.1:"))
	assert.True(t, strings.HasSuffix(cb, "/callback"))

	resp, err := http.Get(cb + "?oauth_verifier=xyz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "close this window")
	assert.Equal(t, "xyz", <-delivered)

	require.NoError(t, l.Stop(context.Background()))
	assert.NoError(t, l.Stop(context.Background()))
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Path: "callback"}
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate())

	cfg = Config{Port: 70000}
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate())

	cfg = Config{}
	cfg.ApplyDefaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, "/callback", cfg.Path)
}
