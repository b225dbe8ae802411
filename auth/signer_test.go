package auth

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/birdkit/httpclient"
)

func fixedSigner(consumer Consumer, token *AccessToken) *OAuth1Signer {
	s := NewOAuth1Signer(consumer, token)
	s.now = func() time.Time { return time.Unix(1318622958, 0) }
	s.nonce = func() (string, error) { return "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg", nil }
	return s
}

var (
	docConsumer = Consumer{Key: "xvz1evFS4wEEPTGEFPHBog", Secret: "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw"}
	docToken    = &AccessToken{
		Key:    "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		Secret: "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE",
	}
)

func TestOAuth1Signer_KnownVector(t *testing.T) {
	spec := &httpclient.RequestSpec{
		Method:           "POST",
		URL:              "https://api.twitter.com/1.1/statuses/update.json?include_entities=true",
		Params:           httpclient.Params{{Key: "status", Value: "Hello Ladies + Gentlemen, a signed OAuth request!"}},
		EncodeParameters: true,
	}
	headers, err := fixedSigner(docConsumer, docToken).Sign(spec)
	require.NoError(t, err)

	want := `OAuth oauth_consumer_key="xvz1evFS4wEEPTGEFPHBog", ` +
		`oauth_nonce="kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg", ` +
		`oauth_signature="hCtSmYh%2BiHYCEqBWrE7C7hYmtUk%3D", ` +
		`oauth_signature_method="HMAC-SHA1", ` +
		`oauth_timestamp="1318622958", ` +
		`oauth_token="370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb", ` +
		`oauth_version="1.0"`
	assert.Equal(t, want, headers["Authorization"])
}

func TestSignatureBase(t *testing.T) {
	u, err := url.Parse("https://api.twitter.com/1.1/statuses/update.json")
	require.NoError(t, err)
	base := SignatureBase("post", u, [][2]string{
		{"status", "Hello Ladies + Gentlemen, a signed OAuth request!"},
		{"include_entities", "true"},
	})
	assert.Equal(t,
		"POST&https%3A%2F%2Fapi.twitter.com%2F1.1%2Fstatuses%2Fupdate.json&"+
			"include_entities%3Dtrue%26status%3DHello%2520Ladies%2520%252B%2520Gentlemen%252C%2520a%2520signed%2520OAuth%2520request%2521",
		base)
}

func TestSignatureBase_SortsByNameThenValue(t *testing.T) {
	u, _ := url.Parse("https://example.com/")
	base := SignatureBase("GET", u, [][2]string{{"a_b", "1"}, {"a", "2"}, {"a", "1"}})
	assert.True(t, strings.HasSuffix(base, "&a%3D1%26a%3D2%26a_b%3D1"), base)
}

func TestOAuth1Signer_MultipartBodyNotSigned(t *testing.T) {
	plain := &httpclient.RequestSpec{Method: "POST", URL: "https://upload.twitter.com/1.1/media/upload.json"}
	multipart := &httpclient.RequestSpec{
		Method: "POST",
		URL:    plain.URL,
		Params: httpclient.Params{{Key: "status", Value: "with media"}},
	}
	multipart.AddUpload(httpclient.UploadPart{FieldName: "media", Data: []byte("x")})

	s := fixedSigner(docConsumer, docToken)
	a, err := s.Sign(plain)
	require.NoError(t, err)
	b, err := s.Sign(multipart)
	require.NoError(t, err)
	assert.Equal(t, a["Authorization"], b["Authorization"])
}

func TestOAuth1Signer_OAuthParamsInHeader(t *testing.T) {
	spec := &httpclient.RequestSpec{
		Method: "POST",
		URL:    "https://api.twitter.com/oauth/request_token",
		Params: httpclient.Params{{Key: "oauth_callback", Value: "http://127.0.0.1:8910/callback"}},
	}
	headers, err := fixedSigner(docConsumer, nil).Sign(spec)
	require.NoError(t, err)

	auth := headers["Authorization"]
	assert.Contains(t, auth, `oauth_callback="http%3A%2F%2F127.0.0.1%3A8910%2Fcallback"`)
	assert.NotContains(t, auth, "oauth_token=")
	assert.True(t, strings.HasPrefix(auth, "OAuth "))
}

func TestPercentEncode(t *testing.T) {
	assert.Equal(t, "Ladies%20%2B%20Gentlemen", PercentEncode("Ladies + Gentlemen"))
	assert.Equal(t, "a-b.c_d~e", PercentEncode("a-b.c_d~e"))
	assert.Equal(t, "%5B%5D", PercentEncode("[]"))
	assert.Equal(t, "%E2%98%83", PercentEncode("☃"))
}

func TestBaseURL(t *testing.T) {
	u, _ := url.Parse("HTTP://Example.COM:80/r%20v/X?id=123")
	assert.Equal(t, "http://example.com/r%20v/X", baseURL(u))
	u, _ = url.Parse("https://api.example.com:8443")
	assert.Equal(t, "https://api.example.com:8443/", baseURL(u))
}

func TestGenerateNonce(t *testing.T) {
	a, err := generateNonce()
	require.NoError(t, err)
	b, _ := generateNonce()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
