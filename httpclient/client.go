// Package httpclient executes API requests asynchronously. It owns parameter
// encoding, the request lifecycle with progress reporting, status
// classification and incremental decoding of CRLF-delimited JSON streams.
//
// # Basic Usage
//
//	c, err := httpclient.New(httpclient.Config{}, httpclient.WithSigner(signer))
//	ex, err := c.Execute(ctx, httpclient.RequestSpec{
//	    Method: http.MethodGet,
//	    URL:    c.ResolveURL(httpclient.BaseAPI, "statuses/home_timeline.json"),
//	    Params: httpclient.Params{{Key: "count", Value: 20}},
//	}, httpclient.Handlers{
//	    OnSuccess: func(env *httpclient.ResponseEnvelope) { ... },
//	    OnFailure: func(err error) { ... },
//	})
//
// Callbacks run on the client's Dispatcher, never on the goroutine that
// called Execute or Start.
package httpclient

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/logger"
	"github.com/kbukum/birdkit/observability"
)

// Base selects one of the configured base URLs.
type Base int

const (
	BaseAPI Base = iota
	BaseUpload
	BaseStream
)

// ParseBase maps "api", "upload" and "stream" to a Base.
func ParseBase(s string) (Base, bool) {
	switch strings.ToLower(s) {
	case "", "api":
		return BaseAPI, true
	case "upload":
		return BaseUpload, true
	case "stream":
		return BaseStream, true
	}
	return BaseAPI, false
}

// Option configures a Client.
type Option func(*Client)

// WithSigner sets the default request signer.
func WithSigner(s Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithDispatcher sets the callback delivery context. It should run callbacks
// serially and in order.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Client) { c.dispatcher = d }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l.WithComponent("httpclient") }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTransport replaces the HTTP transport, e.g. for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// Client creates and runs executors against the configured API bases.
type Client struct {
	config       Config
	bases        [3]*url.URL
	transport    http.RoundTripper
	httpClient   *http.Client
	cookieClient *http.Client
	signer       Signer
	dispatcher   Dispatcher
	queue        *SerialQueue
	limiter      *rate.Limiter
	log          *logger.Logger
	metrics      *observability.Metrics
	closed       atomic.Bool
}

// New creates a new client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: cfg}
	for i, raw := range []string{cfg.APIURL, cfg.UploadURL, cfg.StreamURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.InvalidConfig("invalid base URL " + raw).WithCause(err)
		}
		c.bases[i] = u
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		transport, err := newTransport(cfg)
		if err != nil {
			return nil, err
		}
		c.transport = transport
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c.httpClient = &http.Client{Transport: c.transport}
	c.cookieClient = &http.Client{Transport: c.transport, Jar: jar}

	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	if c.dispatcher == nil {
		c.queue = NewSerialQueue()
		c.dispatcher = c.queue
	}
	if c.log == nil {
		c.log = logger.WithComponent("httpclient")
	}
	if c.metrics == nil {
		if m, err := observability.NewMetrics(observability.Meter()); err == nil {
			c.metrics = m
		}
	}
	return c, nil
}

// newTransport builds a transport with HTTP/2 health checks so long-lived
// streaming connections notice dead peers.
func newTransport(cfg Config) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	if cfg.ForceHTTP2 {
		h2, err := http2.ConfigureTransports(transport)
		if err != nil {
			return nil, errors.InvalidConfig("http2 setup failed").WithCause(err)
		}
		h2.ReadIdleTimeout = 30 * time.Second
		h2.PingTimeout = 15 * time.Second
	}
	return transport, nil
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.config
}

// Signer returns the default signer.
func (c *Client) Signer() Signer {
	return c.signer
}

// ResolveURL resolves path against the chosen base. Relative paths keep the
// base path ("statuses/show.json"); absolute paths replace it ("/oauth/authorize").
func (c *Client) ResolveURL(base Base, path string) string {
	b := c.bases[BaseAPI]
	if int(base) >= 0 && int(base) < len(c.bases) {
		b = c.bases[base]
	}
	ref, err := url.Parse(path)
	if err != nil {
		return strings.TrimRight(b.String(), "/") + "/" + strings.TrimLeft(path, "/")
	}
	return b.ResolveReference(ref).String()
}

// Execute creates an executor and starts it.
func (c *Client) Execute(ctx context.Context, spec RequestSpec, h Handlers) (*Executor, error) {
	ex := c.NewExecutor(spec, h)
	if err := ex.Start(ctx); err != nil {
		return nil, err
	}
	return ex, nil
}

// Do runs spec to completion and returns the classified result. It must not
// be called from a dispatched callback: it waits on the dispatcher.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (*ResponseEnvelope, error) {
	type result struct {
		env *ResponseEnvelope
		err error
	}
	ch := make(chan result, 1)
	ex, err := c.Execute(ctx, spec, Handlers{
		OnSuccess: func(env *ResponseEnvelope) { ch <- result{env: env} },
		OnFailure: func(err error) { ch <- result{err: err} },
	})
	if err != nil {
		return nil, err
	}

	select {
	case r := <-ch:
		return r.env, r.err
	case <-ex.Done():
		select {
		case r := <-ch:
			return r.env, r.err
		default:
		}
		return nil, c.Interrupted(ctx)
	}
}

// Interrupted returns why an execution started with ctx ended without a
// terminal callback: the context cause, ErrClientClosed or ErrCancelled.
func (c *Client) Interrupted(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	if c.Closed() {
		return ErrClientClosed
	}
	return ErrCancelled
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

// Close stops the default dispatcher and releases idle connections.
// Executions still in flight end without a callback and their Done channel
// is closed.
func (c *Client) Close(_ context.Context) error {
	c.closed.Store(true)
	if c.queue != nil {
		c.queue.Close()
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

// dispatch hands fn to the dispatcher and reports whether it was accepted.
func (c *Client) dispatch(fn func()) bool {
	if d, ok := c.dispatcher.(tryDispatcher); ok {
		return d.TryDispatch(fn)
	}
	c.dispatcher.Dispatch(fn)
	return true
}

func (c *Client) clientFor(spec *RequestSpec) *http.Client {
	if spec.HandleCookies {
		return c.cookieClient
	}
	return c.httpClient
}

// buildRequest encodes spec onto an *http.Request. The body is returned
// separately so the executor can meter it.
func (c *Client) buildRequest(ctx context.Context, spec *RequestSpec) (*http.Request, []byte, error) {
	target := spec.URL
	encoding := spec.ResolveEncoding()
	wire := spec.Params.WireParams()

	var (
		body        []byte
		contentType string
	)
	switch encoding {
	case EncodingQuery:
		if len(wire) > 0 {
			target = appendQuery(target, EncodeQueryString(wire))
		}
	case EncodingURLEncoded:
		if len(wire) > 0 {
			body = []byte(EncodeQueryString(wire))
			contentType = formContentType
		}
	case EncodingRaw:
		if len(wire) > 0 {
			body = []byte(QueryString(wire))
		}
	case EncodingMultipart:
		boundary := NewBoundary()
		encoded, err := EncodeMultipart(boundary, spec.Uploads, wire)
		if err != nil {
			return nil, nil, errors.InvalidRequest("multipart encoding", err)
		}
		body = encoded
		contentType = MultipartContentType(boundary)
	}

	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, nil, errors.InvalidRequest("URL must be absolute: "+target, err)
	}

	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, nil, errors.InvalidRequest("create request", err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	signer := spec.Signer
	if signer == nil {
		signer = c.signer
	}
	if signer != nil {
		signed, err := signer.Sign(spec)
		if err != nil {
			return nil, nil, errors.InvalidRequest("sign request", err)
		}
		for k, v := range signed {
			req.Header.Set(k, v)
		}
	}

	if body != nil {
		req.ContentLength = int64(len(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	return req, body, nil
}

func appendQuery(target, qs string) string {
	if qs == "" {
		return target
	}
	if strings.Contains(target, "?") {
		return target + "&" + qs
	}
	return target + "?" + qs
}
