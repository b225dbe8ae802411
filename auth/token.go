package auth

import (
	"maps"

	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/httpclient"
)

// AccessToken is an OAuth1 token pair. During the three-legged flow the same
// type carries the request token and, once the user has authorized it, the
// verifier. Bearer tokens use Key only.
type AccessToken struct {
	Key      string
	Secret   string
	Verifier string
	// Extra holds the remaining response attributes, e.g. user_id and
	// screen_name.
	Extra map[string]string
}

// ParseAccessToken reads a urlencoded token response
// ("oauth_token=...&oauth_token_secret=...&user_id=..."). A response without
// a key or secret is a bad server response.
func ParseAccessToken(body string) (*AccessToken, error) {
	values := httpclient.DecodeQueryString(body).Map()
	tok := &AccessToken{
		Key:    values["oauth_token"],
		Secret: values["oauth_token_secret"],
	}
	if tok.Key == "" || tok.Secret == "" {
		return nil, errors.BadServerResponse()
	}
	delete(values, "oauth_token")
	delete(values, "oauth_token_secret")
	if len(values) > 0 {
		tok.Extra = values
	}
	return tok, nil
}

// Clone returns a deep copy.
func (t *AccessToken) Clone() *AccessToken {
	if t == nil {
		return nil
	}
	c := *t
	c.Extra = maps.Clone(t.Extra)
	return &c
}

// UserID returns the user_id attribute, if the server sent one.
func (t *AccessToken) UserID() string { return t.Extra["user_id"] }

// ScreenName returns the screen_name attribute, if the server sent one.
func (t *AccessToken) ScreenName() string { return t.Extra["screen_name"] }
