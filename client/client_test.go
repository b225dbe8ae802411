package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/birdkit/auth"
	"github.com/kbukum/birdkit/config"
	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/httpclient"
	"github.com/kbukum/birdkit/jsonvalue"
	"github.com/kbukum/birdkit/logger"
)

func newTestClient(t *testing.T, srvURL string, mutate ...func(*config.Config)) *Client {
	t.Helper()
	cfg := &config.Config{Name: "birdkit-test"}
	cfg.HTTP.APIURL = srvURL + "/1.1/"
	cfg.HTTP.UploadURL = srvURL + "/upload/1.1/"
	cfg.HTTP.StreamURL = srvURL + "/stream/1.1/"
	cfg.Credentials = config.Credentials{ConsumerKey: "ck", ConsumerSecret: "cs"}
	for _, m := range mutate {
		m(cfg)
	}

	c, err := New(context.Background(), cfg, WithLogger(logger.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func withAccessToken(cfg *config.Config) {
	cfg.Credentials.AccessToken = "1-token"
	cfg.Credentials.AccessTokenSecret = "token-secret"
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := &config.Config{Name: "birdkit-test"}
	cfg.Credentials.ConsumerKey = "ck"
	_, err := New(context.Background(), cfg, WithLogger(logger.Nop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials.consumer_secret")
}

func TestNew_InstallsConfiguredCredentials(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", withAccessToken)
	cred := c.Credential()
	require.NotNil(t, cred.AccessToken)
	assert.Equal(t, "1-token", cred.AccessToken.Key)
	assert.Equal(t, "oauth1", credentialKind(cred))

	c = newTestClient(t, "http://127.0.0.1:1", withAccessToken, func(cfg *config.Config) {
		cfg.Credentials.BearerToken = "AAAA"
	})
	assert.Equal(t, "AAAA", c.Credential().Bearer)
	assert.Nil(t, c.Credential().AccessToken)
	assert.Equal(t, "bearer", credentialKind(c.Credential()))
	assert.Equal(t, "none", credentialKind(auth.Credential{}))
}

func TestGet_AfterClose(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", withAccessToken)
	require.NoError(t, c.Close(context.Background()))

	_, _, err := c.Get(context.Background(), httpclient.BaseAPI, "statuses/show.json", nil)
	assert.ErrorIs(t, err, httpclient.ErrClientClosed)
}

func TestGet_SignedOAuth1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/1.1/statuses/show.json", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("id"))
		auth := r.Header.Get("Authorization")
		assert.Contains(t, auth, "OAuth ")
		assert.Contains(t, auth, `oauth_token="1-token"`)
		assert.Contains(t, auth, `oauth_consumer_key="ck"`)
		_, _ = io.WriteString(w, `{"id":20,"text":"hi"}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, withAccessToken)

	doc, env, err := c.Get(context.Background(), httpclient.BaseAPI, "statuses/show.json",
		httpclient.Params{{Key: "id", Value: 20}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	text, ok := doc.Get("text").Str()
	assert.True(t, ok)
	assert.Equal(t, "hi", text)
}

func TestGet_Bearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer AAAA", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, func(cfg *config.Config) { cfg.Credentials.BearerToken = "AAAA" })

	doc, _, err := c.Get(context.Background(), httpclient.BaseAPI, "search/tweets.json", nil)
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.Array, doc.Kind())
}

func TestGet_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"code":34,"message":"Sorry, that page does not exist."}]}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, _, err := c.Get(context.Background(), httpclient.BaseAPI, "statuses/show.json", nil)
	require.Error(t, err)
	assert.True(t, errors.IsHTTPStatus(err))
	assert.Equal(t, http.StatusNotFound, errors.StatusCode(err))
	assert.Equal(t, 34, errors.APICode(err))
}

func TestPost_Urlencoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "status=hello%20world", string(body))
		_, _ = io.WriteString(w, `{"id_str":"1"}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, withAccessToken)

	doc, _, err := c.Post(context.Background(), httpclient.BaseAPI, "statuses/update.json",
		httpclient.Params{{Key: "status", Value: "hello world"}})
	require.NoError(t, err)
	id, _ := doc.Get("id_str").Str()
	assert.Equal(t, "1", id)
}

func TestUpload_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/1.1/media/upload.json", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "photo", r.FormValue("media_category"))
		f, hdr, err := r.FormFile("media")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "PNGDATA", string(data))
		assert.Equal(t, "a.png", hdr.Filename)
		_, _ = io.WriteString(w, `{"media_id":7}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, withAccessToken)

	doc, _, err := c.Upload(context.Background(), httpclient.BaseUpload, "media/upload.json",
		httpclient.Params{{Key: "media_category", Value: "photo"}},
		httpclient.UploadPart{Data: []byte("PNGDATA"), FieldName: "media", FileName: "a.png", MIMEType: "image/png"})
	require.NoError(t, err)
	id, _ := doc.Get("media_id").Int()
	assert.Equal(t, int64(7), id)
}

func TestStream_Documents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stream/1.1/statuses/sample.json", r.URL.Path)
		_, _ = io.WriteString(w, "{\"a\":1}\r\n\r\n{\"a\":2}\r\n")
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, withAccessToken)

	var got []int64
	err := c.Stream(context.Background(), httpclient.BaseStream, "statuses/sample.json", nil,
		func(doc jsonvalue.Value) {
			n, _ := doc.Get("a").Int()
			got = append(got, n)
		})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got)
}

func TestStream_ContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{\"a\":1}\r\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, withAccessToken)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var docs int
	err := c.Stream(ctx, httpclient.BaseStream, "statuses/sample.json", nil, func(jsonvalue.Value) {
		docs++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, docs)
}

func TestStream_RequiresHandler(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	assert.Error(t, c.Stream(context.Background(), httpclient.BaseStream, "x.json", nil, nil))
}

func TestAuthorize_LoopbackCallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+auth.RequestTokenPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_callback="http%3A%2F%2F127.0.0.1%3A`)
		_, _ = io.WriteString(w, "oauth_token=abc&oauth_token_secret=xyz&oauth_callback_confirmed=true")
	})
	mux.HandleFunc("POST "+auth.AccessTokenPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_verifier="V"`)
		_, _ = io.WriteString(w, "oauth_token=1-access&oauth_token_secret=s&screen_name=bird")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	var (
		wg     sync.WaitGroup
		status int
	)
	tok, err := c.Authorize(context.Background(), func(_ context.Context, authorizeURL string) error {
		assert.Equal(t, srv.URL+"/oauth/authorize?oauth_token=abc", authorizeURL)
		cb := c.CallbackURL()
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(cb + "?oauth_token=abc&oauth_verifier=V")
			if !assert.NoError(t, err) {
				return
			}
			status = resp.StatusCode
			_ = resp.Body.Close()
		}()
		return nil
	})
	require.NoError(t, err)
	wg.Wait()

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1-access", tok.Key)
	assert.Equal(t, "bird", c.Credential().AccessToken.ScreenName())
	assert.Empty(t, c.CallbackURL())
}

func TestAuthorize_Cancel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+auth.RequestTokenPath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "oauth_token=abc&oauth_token_secret=xyz")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.Authorize(context.Background(), func(context.Context, string) error {
		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = c.CancelAuthorization()
		}()
		return nil
	})
	assert.True(t, errors.IsHandshake(err, errors.ReasonCancelled))
	assert.True(t, c.Credential().IsZero())
}

func TestAppOnlyAndInvalidate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+auth.BearerTokenPath, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ck", user)
		assert.Equal(t, "cs", pass)
		_, _ = io.WriteString(w, `{"token_type":"bearer","access_token":"BBB"}`)
	})
	mux.HandleFunc("POST "+auth.InvalidateTokenPath, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "BBB", r.PostForm.Get("access_token"))
		_, _ = io.WriteString(w, `{"access_token":"BBB"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	tok, err := c.AuthorizeAppOnly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BBB", tok.Key)
	assert.Equal(t, "BBB", c.Credential().Bearer)

	tok, err = c.InvalidateBearer(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.True(t, c.Credential().IsZero())
}
