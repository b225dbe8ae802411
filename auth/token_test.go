package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/birdkit/errors"
)

func TestParseAccessToken(t *testing.T) {
	tok, err := ParseAccessToken("oauth_token=abc&oauth_token_secret=xyz")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.Key)
	assert.Equal(t, "xyz", tok.Secret)
	assert.Empty(t, tok.Verifier)
	assert.Nil(t, tok.Extra)
}

func TestParseAccessToken_Extra(t *testing.T) {
	tok, err := ParseAccessToken("oauth_token=1-abc&oauth_token_secret=s&user_id=1&screen_name=bird")
	require.NoError(t, err)
	assert.Equal(t, "1", tok.UserID())
	assert.Equal(t, "bird", tok.ScreenName())
	assert.NotContains(t, tok.Extra, "oauth_token")
}

func TestParseAccessToken_Missing(t *testing.T) {
	for _, body := range []string{"", "oauth_token=abc", "oauth_token_secret=xyz", "<html>"} {
		_, err := ParseAccessToken(body)
		assert.True(t, errors.IsHandshake(err, errors.ReasonBadServerResponse), body)
	}
}

func TestAccessToken_Clone(t *testing.T) {
	var nilTok *AccessToken
	assert.Nil(t, nilTok.Clone())

	tok := &AccessToken{Key: "k", Extra: map[string]string{"a": "1"}}
	c := tok.Clone()
	c.Extra["a"] = "2"
	assert.Equal(t, "1", tok.Extra["a"])
}
