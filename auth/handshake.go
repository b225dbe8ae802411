package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/httpclient"
	"github.com/kbukum/birdkit/logger"
	"github.com/kbukum/birdkit/observability"
)

// OAuth endpoints, resolved against the API base.
const (
	RequestTokenPath    = "/oauth/request_token"
	AuthorizePath       = "/oauth/authorize"
	AccessTokenPath     = "/oauth/access_token"
	BearerTokenPath     = "/oauth2/token"
	InvalidateTokenPath = "/oauth2/invalidate_token"
)

// Flow names used in spans and metrics.
const (
	FlowOAuth1     = "oauth1"
	FlowAppOnly    = "app_only"
	FlowInvalidate = "invalidate"
)

var errSessionCancelled = stderrors.New("auth: authorization cancelled")

// HandshakeState is the OAuth1 three-legged progress of an Authenticator.
type HandshakeState int

const (
	StateNoToken HandshakeState = iota
	StateRequestTokenPending
	StateAwaitingUserAuthorization
	StateAccessTokenPending
	StateAuthorized
	StateFailed
)

func (s HandshakeState) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StateRequestTokenPending:
		return "request_token_pending"
	case StateAwaitingUserAuthorization:
		return "awaiting_user_authorization"
	case StateAccessTokenPending:
		return "access_token_pending"
	case StateAuthorized:
		return "authorized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Opener presents the authorize URL to the user, e.g. by printing it or
// launching a browser. It must not block until the user finishes.
type Opener func(ctx context.Context, authorizeURL string) error

// session is one in-flight three-legged authorization. The callback slot is
// filled at most once.
type session struct {
	id       string
	token    *AccessToken
	cancel   context.CancelCauseFunc
	callback chan *url.URL
	once     sync.Once
}

func (s *session) deliver(u *url.URL) bool {
	delivered := false
	s.once.Do(func() {
		s.callback <- u
		delivered = true
	})
	return delivered
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Authenticator) { a.log = l.WithComponent("auth") }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Authenticator) { a.metrics = m }
}

// Authenticator runs OAuth flows over an httpclient.Client and installs the
// results in a Store. At most one three-legged session is outstanding.
type Authenticator struct {
	client  *httpclient.Client
	store   *Store
	log     *logger.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	state   HandshakeState
	session *session
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(client *httpclient.Client, store *Store, opts ...Option) *Authenticator {
	a := &Authenticator{client: client, store: store}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.WithComponent("auth")
	}
	return a
}

// State returns the three-legged flow state.
func (a *Authenticator) State() HandshakeState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Pending reports whether a three-legged session is outstanding.
func (a *Authenticator) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil
}

// AuthorizeURL is the page the user visits to approve requestToken.
func (a *Authenticator) AuthorizeURL(requestToken *AccessToken) string {
	return a.client.ResolveURL(httpclient.BaseAPI, AuthorizePath) +
		"?oauth_token=" + httpclient.Escape(requestToken.Key)
}

// Authorize runs the three-legged flow: it obtains a request token for
// callbackURL, hands the authorize URL to open and waits for HandleCallback,
// Cancel or ctx. On success the access token becomes the active credential.
func (a *Authenticator) Authorize(ctx context.Context, callbackURL string, open Opener) (tok *AccessToken, err error) {
	if open == nil {
		return nil, errors.InvalidRequest("an opener is required", nil)
	}
	consumer := a.store.Consumer()
	if !consumer.Valid() {
		return nil, errors.Handshake(errors.ReasonMissingCredentials, "consumer key and secret are required")
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	s, err := a.begin(cancel)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanHandshake,
		trace.WithAttributes(observability.AttrFlow.String(FlowOAuth1)))
	log := a.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldSessionID, s.id))
	defer func() {
		a.end(s, err)
		outcome := observability.OutcomeSuccess
		switch {
		case errors.IsHandshake(err, errors.ReasonCancelled):
			outcome = observability.OutcomeCancelled
		case err != nil:
			outcome = observability.OutcomeFailure
		}
		a.metrics.Handshake(ctx, FlowOAuth1, outcome)
		span.SetAttributes(observability.AttrOutcome.String(outcome))
		observability.EndSpan(span, err)
		if err != nil {
			log.WithError(err).Warn("authorization failed")
		}
	}()

	requestToken, err := a.requestToken(ctx, consumer, callbackURL)
	if err != nil {
		return nil, a.interrupted(ctx, err)
	}

	a.mu.Lock()
	s.token = requestToken
	a.setStateLocked(StateAwaitingUserAuthorization)
	a.mu.Unlock()

	authorizeURL := a.AuthorizeURL(requestToken)
	log.Info("waiting for user authorization", logger.Fields(logger.FieldURL, authorizeURL))
	if err := open(ctx, authorizeURL); err != nil {
		return nil, fmt.Errorf("auth: open authorize URL: %w", err)
	}

	var callback *url.URL
	select {
	case callback = <-s.callback:
	case <-ctx.Done():
		return nil, a.interrupted(ctx, ctx.Err())
	}

	query := httpclient.DecodeQueryString(callback.RawQuery)
	verifier, ok := query.Get("oauth_verifier")
	if !ok {
		return nil, errors.BadServerResponse()
	}
	if token, ok := query.Get("oauth_token"); ok && token != requestToken.Key {
		return nil, errors.BadServerResponse().WithDetail("reason", "oauth_token does not match the pending request token")
	}
	requestToken.Verifier = verifier

	a.setState(StateAccessTokenPending)
	access, err := a.accessToken(ctx, consumer, requestToken)
	if err != nil {
		return nil, a.interrupted(ctx, err)
	}

	a.store.InstallAccessToken(access)
	a.setState(StateAuthorized)
	log.Info("authorized", logger.Fields("screen_name", access.ScreenName()))
	return access, nil
}

// HandleCallback delivers the authorization callback URL to the pending
// session. It returns false when no session is waiting for it or the
// session already received one.
func (a *Authenticator) HandleCallback(u *url.URL) bool {
	if u == nil {
		return false
	}
	a.mu.Lock()
	s := a.session
	waiting := s != nil && a.state == StateAwaitingUserAuthorization
	a.mu.Unlock()
	if !waiting {
		return false
	}
	return s.deliver(u)
}

// Cancel aborts the pending session. Authorize returns a cancelled
// handshake error.
func (a *Authenticator) Cancel() error {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return errors.Handshake(errors.ReasonNoPendingSession, "no authorization in progress")
	}
	s.cancel(errSessionCancelled)
	return nil
}

func (a *Authenticator) begin(cancel context.CancelCauseFunc) (*session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		return nil, errors.Handshake(errors.ReasonInProgress, "an authorization is already in progress")
	}
	a.session = &session{
		id:       uuid.NewString(),
		cancel:   cancel,
		callback: make(chan *url.URL, 1),
	}
	a.setStateLocked(StateRequestTokenPending)
	return a.session, nil
}

// end tears down s. It is safe to call more than once.
func (a *Authenticator) end(s *session, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != s {
		return
	}
	if err != nil {
		a.setStateLocked(StateFailed)
	}
	a.session = nil
	// Later deliveries find the slot used.
	s.once.Do(func() {})
}

func (a *Authenticator) setState(st HandshakeState) {
	a.mu.Lock()
	a.setStateLocked(st)
	a.mu.Unlock()
}

// setStateLocked requires a.mu.
func (a *Authenticator) setStateLocked(st HandshakeState) {
	a.state = st
	fields := logger.Fields(logger.FieldState, st.String())
	if a.session != nil {
		fields[logger.FieldSessionID] = a.session.id
	}
	a.log.Debug("handshake state changed", fields)
}

// interrupted maps an error seen while ctx was cancelled to a cancelled
// handshake error and passes other errors through.
func (a *Authenticator) interrupted(ctx context.Context, err error) error {
	cause := context.Cause(ctx)
	if cause == nil {
		return err
	}
	e := errors.Handshake(errors.ReasonCancelled, "authorization cancelled")
	if !stderrors.Is(cause, errSessionCancelled) {
		e = e.WithCause(cause)
	}
	return e
}

func (a *Authenticator) requestToken(ctx context.Context, consumer Consumer, callbackURL string) (*AccessToken, error) {
	env, err := a.client.Do(ctx, httpclient.RequestSpec{
		Method: http.MethodPost,
		URL:    a.client.ResolveURL(httpclient.BaseAPI, RequestTokenPath),
		Params: httpclient.Params{{Key: "oauth_callback", Value: callbackURL}},
		Signer: NewOAuth1Signer(consumer, nil),
	})
	if err != nil {
		return nil, err
	}
	return ParseAccessToken(string(env.Body))
}

func (a *Authenticator) accessToken(ctx context.Context, consumer Consumer, requestToken *AccessToken) (*AccessToken, error) {
	env, err := a.client.Do(ctx, httpclient.RequestSpec{
		Method: http.MethodPost,
		URL:    a.client.ResolveURL(httpclient.BaseAPI, AccessTokenPath),
		Params: httpclient.Params{
			{Key: "oauth_token", Value: requestToken.Key},
			{Key: "oauth_verifier", Value: requestToken.Verifier},
		},
		Signer: NewOAuth1Signer(consumer, requestToken),
	})
	if err != nil {
		return nil, err
	}
	return ParseAccessToken(string(env.Body))
}
