package client

import (
	"context"

	"github.com/kbukum/birdkit/auth"
	"github.com/kbukum/birdkit/callback"
)

// Authorize runs the three-legged flow with a loopback callback listener.
// The listener serves only for the duration of the call.
func (c *Client) Authorize(ctx context.Context, open auth.Opener) (*auth.AccessToken, error) {
	l := callback.New(c.config.Callback, c.auth.HandleCallback, c.log)
	if err := l.Start(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.listener == l {
			c.listener = nil
		}
		c.mu.Unlock()
		_ = l.Stop(context.WithoutCancel(ctx))
	}()

	return c.auth.Authorize(ctx, l.CallbackURL(), open)
}

// CallbackURL is the URL of the listener started by a running Authorize, or
// "" when none is running.
func (c *Client) CallbackURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return ""
	}
	return c.listener.CallbackURL()
}

// CancelAuthorization abandons a running Authorize.
func (c *Client) CancelAuthorization() error {
	return c.auth.Cancel()
}

// AuthorizeAppOnly obtains an application-only bearer token.
func (c *Client) AuthorizeAppOnly(ctx context.Context) (*auth.AccessToken, error) {
	return c.auth.AuthorizeAppOnly(ctx)
}

// InvalidateBearer revokes the active bearer token.
func (c *Client) InvalidateBearer(ctx context.Context) (*auth.AccessToken, error) {
	return c.auth.InvalidateBearer(ctx)
}

// Credential returns a copy of the active credential.
func (c *Client) Credential() auth.Credential {
	return c.store.Current()
}
