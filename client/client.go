// Package client bundles the request engine, the credential store, the OAuth
// flows and the callback listener behind one type built from config.Config.
//
// Its methods block until the execution reaches a terminal state. Use HTTP()
// for the asynchronous engine with progress callbacks.
package client

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"

	"github.com/kbukum/birdkit/auth"
	"github.com/kbukum/birdkit/callback"
	"github.com/kbukum/birdkit/config"
	"github.com/kbukum/birdkit/httpclient"
	"github.com/kbukum/birdkit/jsonvalue"
	"github.com/kbukum/birdkit/logger"
	"github.com/kbukum/birdkit/observability"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	log        *logger.Logger
	transport  http.RoundTripper
	dispatcher httpclient.Dispatcher
}

// WithLogger sets the logger handed to every component.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithDispatcher sets the callback delivery context of the engine.
func WithDispatcher(d httpclient.Dispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

// Client is the assembled API client.
type Client struct {
	config   config.Config
	http     *httpclient.Client
	store    *auth.Store
	auth     *auth.Authenticator
	log      *logger.Logger
	shutdown observability.ShutdownFunc

	mu       sync.Mutex
	listener *callback.Listener
}

// New assembles a client. Pre-authorized credentials from cfg are installed
// in the store, a bearer token taking precedence over an access token.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	c := &Client{config: *cfg}
	c.config.ApplyDefaults()
	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	c.log = o.log.WithComponent("client")

	shutdown, err := observability.Init(ctx, c.config.Name, c.config.Telemetry)
	if err != nil {
		return nil, err
	}
	c.shutdown = shutdown

	metrics, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	creds := c.config.Credentials
	c.store = auth.NewStore(auth.Consumer{Key: creds.ConsumerKey, Secret: creds.ConsumerSecret})
	switch {
	case creds.BearerToken != "":
		c.store.InstallBearer(creds.BearerToken)
	case creds.AccessToken != "":
		c.store.InstallAccessToken(&auth.AccessToken{Key: creds.AccessToken, Secret: creds.AccessTokenSecret})
	}

	httpOpts := []httpclient.Option{
		httpclient.WithSigner(c.store.Signer()),
		httpclient.WithLogger(o.log),
		httpclient.WithMetrics(metrics),
	}
	if o.transport != nil {
		httpOpts = append(httpOpts, httpclient.WithTransport(o.transport))
	}
	if o.dispatcher != nil {
		httpOpts = append(httpOpts, httpclient.WithDispatcher(o.dispatcher))
	}
	c.http, err = httpclient.New(c.config.HTTP, httpOpts...)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	c.auth = auth.NewAuthenticator(c.http, c.store, auth.WithLogger(o.log), auth.WithMetrics(metrics))
	c.log.Debug("client ready", logger.Fields(
		"api_url", c.config.HTTP.APIURL,
		"credential", credentialKind(c.store.Current()),
	))
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() config.Config { return c.config }

// HTTP returns the asynchronous request engine.
func (c *Client) HTTP() *httpclient.Client { return c.http }

// Store returns the credential store.
func (c *Client) Store() *auth.Store { return c.store }

// Authenticator returns the OAuth flow runner.
func (c *Client) Authenticator() *auth.Authenticator { return c.auth }

// Get is the GET-with-params call shape.
func (c *Client) Get(ctx context.Context, base httpclient.Base, path string, params httpclient.Params) (jsonvalue.Value, *httpclient.ResponseEnvelope, error) {
	return c.Call(ctx, httpclient.RequestSpec{
		Method: http.MethodGet,
		URL:    c.http.ResolveURL(base, path),
		Params: params,
	}, nil)
}

// Post is the POST-with-params call shape with a urlencoded body.
func (c *Client) Post(ctx context.Context, base httpclient.Base, path string, params httpclient.Params) (jsonvalue.Value, *httpclient.ResponseEnvelope, error) {
	return c.Call(ctx, httpclient.RequestSpec{
		Method:           http.MethodPost,
		URL:              c.http.ResolveURL(base, path),
		Params:           params,
		EncodeParameters: true,
	}, nil)
}

// Upload posts params and parts as a multipart body.
func (c *Client) Upload(ctx context.Context, base httpclient.Base, path string, params httpclient.Params, parts ...httpclient.UploadPart) (jsonvalue.Value, *httpclient.ResponseEnvelope, error) {
	return c.Call(ctx, httpclient.RequestSpec{
		Method:  http.MethodPost,
		URL:     c.http.ResolveURL(base, path),
		Params:  params,
		Uploads: parts,
	}, nil)
}

// Stream opens a streaming GET and calls onDocument for every document until
// the server ends the body or ctx is done.
func (c *Client) Stream(ctx context.Context, base httpclient.Base, path string, params httpclient.Params, onDocument func(jsonvalue.Value)) error {
	if onDocument == nil {
		return stderrors.New("client: stream needs a document handler")
	}
	_, _, err := c.Call(ctx, httpclient.RequestSpec{
		Method: http.MethodGet,
		URL:    c.http.ResolveURL(base, path),
		Params: params,
	}, onDocument)
	return err
}

// Call runs spec to a terminal state. A non-nil onDocument selects streaming
// mode. It must not be called from a dispatched callback.
func (c *Client) Call(ctx context.Context, spec httpclient.RequestSpec, onDocument func(jsonvalue.Value)) (jsonvalue.Value, *httpclient.ResponseEnvelope, error) {
	type result struct {
		doc jsonvalue.Value
		env *httpclient.ResponseEnvelope
		err error
	}
	ch := make(chan result, 1)
	ex, err := c.http.JSONRequest(ctx, spec, httpclient.JSONHandlers{
		OnDocument: onDocument,
		OnSuccess: func(doc jsonvalue.Value, env *httpclient.ResponseEnvelope) {
			ch <- result{doc: doc, env: env}
		},
		OnFailure: func(err error) { ch <- result{err: err} },
	})
	if err != nil {
		return jsonvalue.Value{}, nil, err
	}

	select {
	case r := <-ch:
		return r.doc, r.env, r.err
	case <-ex.Done():
		select {
		case r := <-ch:
			return r.doc, r.env, r.err
		default:
		}
		return jsonvalue.Value{}, nil, c.http.Interrupted(ctx)
	}
}

// Close stops a running callback listener, the engine and telemetry export.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	l := c.listener
	c.listener = nil
	c.mu.Unlock()

	var errs []error
	if l != nil {
		errs = append(errs, l.Stop(ctx))
	}
	errs = append(errs, c.http.Close(ctx), c.shutdown(ctx))
	return stderrors.Join(errs...)
}

func credentialKind(cred auth.Credential) string {
	switch {
	case cred.Bearer != "":
		return "bearer"
	case cred.AccessToken != nil:
		return "oauth1"
	default:
		return "none"
	}
}
