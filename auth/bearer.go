package auth

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/httpclient"
	"github.com/kbukum/birdkit/jsonvalue"
	"github.com/kbukum/birdkit/logger"
	"github.com/kbukum/birdkit/observability"
)

// AuthorizeAppOnly obtains an application-only bearer token with the consumer
// credentials and installs it as the active credential.
func (a *Authenticator) AuthorizeAppOnly(ctx context.Context) (tok *AccessToken, err error) {
	ctx, finish := a.startFlow(ctx, FlowAppOnly)
	defer func() { finish(err) }()

	consumer := a.store.Consumer()
	if !consumer.Valid() {
		return nil, errors.Handshake(errors.ReasonMissingCredentials, "consumer key and secret are required")
	}

	env, err := a.client.Do(ctx, httpclient.RequestSpec{
		Method:           http.MethodPost,
		URL:              a.client.ResolveURL(httpclient.BaseAPI, BearerTokenPath),
		Params:           httpclient.Params{{Key: "grant_type", Value: "client_credentials"}},
		EncodeParameters: true,
		Signer:           basicSigner(consumer),
	})
	if err != nil {
		return nil, err
	}

	bearer, err := ParseBearerResponse(env.Body)
	if err != nil {
		return nil, err
	}
	a.store.InstallBearer(bearer)
	a.log.Info("app-only bearer installed")
	return &AccessToken{Key: bearer}, nil
}

// ParseBearerResponse extracts the bearer token from a token endpoint body.
// It tells apart an unexpected token type, an API errors payload (array or
// object form) and a body that is not a JSON object.
func ParseBearerResponse(body []byte) (string, error) {
	doc, err := jsonvalue.Parse(body)
	if err != nil {
		return "", errors.Handshake(errors.ReasonUnparseableBody, "Cannot find JSON dictionary in response").
			WithCause(err)
	}
	if doc.Kind() != jsonvalue.Object {
		return "", errors.Handshake(errors.ReasonUnparseableBody, "Cannot find JSON dictionary in response")
	}

	if tokenType, ok := doc.Get("token_type").Str(); ok {
		token, hasToken := doc.Get("access_token").Str()
		if tokenType != "bearer" || !hasToken || token == "" {
			return "", errors.Handshake(errors.ReasonUnexpectedTokenType, "Cannot find bearer token in server response").
				WithDetail("token_type", tokenType)
		}
		return token, nil
	}

	if apiErr := doc.Get("errors"); apiErr.Exists() {
		if apiErr.Kind() == jsonvalue.Array {
			apiErr = apiErr.Index(0)
		}
		message, _ := apiErr.Get("message").Str()
		if message == "" {
			message = "The server returned an error"
		}
		e := errors.Handshake(errors.ReasonAPIError, message)
		if code, ok := apiErr.Get("code").Int(); ok {
			e.APICode = int(code)
		}
		return "", e
	}

	return "", errors.Handshake(errors.ReasonUnparseableBody, "Cannot find JSON dictionary in response")
}

// InvalidateBearer revokes the active bearer token. When the server echoes an
// access_token the credential is cleared and the revoked token returned; a
// response without one is a successful no-op returning nil.
func (a *Authenticator) InvalidateBearer(ctx context.Context) (tok *AccessToken, err error) {
	ctx, finish := a.startFlow(ctx, FlowInvalidate)
	defer func() { finish(err) }()

	consumer := a.store.Consumer()
	if !consumer.Valid() {
		return nil, errors.Handshake(errors.ReasonMissingCredentials, "consumer key and secret are required")
	}

	var params httpclient.Params
	if bearer := a.store.Current().Bearer; bearer != "" {
		params = httpclient.Params{{Key: "access_token", Value: bearer}}
	}
	env, err := a.client.Do(ctx, httpclient.RequestSpec{
		Method:           http.MethodPost,
		URL:              a.client.ResolveURL(httpclient.BaseAPI, InvalidateTokenPath),
		Params:           params,
		EncodeParameters: true,
		Signer:           basicSigner(consumer),
	})
	if err != nil {
		return nil, err
	}

	if len(env.Body) == 0 {
		return nil, nil
	}
	doc, err := jsonvalue.Parse(env.Body)
	if err != nil {
		return nil, errors.Decode(env.Body, err)
	}
	token, ok := doc.Get("access_token").Str()
	if !ok {
		return nil, nil
	}
	a.store.Clear()
	a.log.Info("bearer invalidated")
	return &AccessToken{Key: token}, nil
}

// startFlow opens a span for a two-legged flow. The returned func records
// the outcome and ends the span.
func (a *Authenticator) startFlow(ctx context.Context, flow string) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, observability.SpanHandshake,
		trace.WithAttributes(observability.AttrFlow.String(flow)))
	return ctx, func(err error) {
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeFailure
			a.log.WithContext(ctx).WithError(err).Warn("flow failed", logger.Fields("flow", flow))
		}
		a.metrics.Handshake(ctx, flow, outcome)
		span.SetAttributes(observability.AttrOutcome.String(outcome))
		observability.EndSpan(span, err)
	}
}
