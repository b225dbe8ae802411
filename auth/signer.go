package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // HMAC-SHA1 is the OAuth1 signature method
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/httpclient"
)

const (
	signatureMethod = "HMAC-SHA1"
	oauthVersion    = "1.0"
)

// OAuth1Signer signs requests with HMAC-SHA1 as described in RFC 5849. The
// oauth_ parameters of a request end up in the Authorization header; the
// remaining parameters are part of the signature base string unless the body
// is multipart.
type OAuth1Signer struct {
	consumer Consumer
	token    *AccessToken

	now   func() time.Time
	nonce func() (string, error)
}

// NewOAuth1Signer returns a signer for consumer and, when non-nil, token.
func NewOAuth1Signer(consumer Consumer, token *AccessToken) *OAuth1Signer {
	return &OAuth1Signer{
		consumer: consumer,
		token:    token,
		now:      time.Now,
		nonce:    generateNonce,
	}
}

// Sign implements httpclient.Signer.
func (s *OAuth1Signer) Sign(spec *httpclient.RequestSpec) (map[string]string, error) {
	nonce, err := s.nonce()
	if err != nil {
		return nil, err
	}
	oauth := map[string]string{
		"oauth_consumer_key":     s.consumer.Key,
		"oauth_nonce":            nonce,
		"oauth_signature_method": signatureMethod,
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_version":          oauthVersion,
	}
	if s.token != nil && s.token.Key != "" {
		oauth["oauth_token"] = s.token.Key
	}
	for _, p := range spec.Params {
		if strings.HasPrefix(p.Key, httpclient.OAuthPrefix) {
			oauth[p.Key] = httpclient.FormatValue(p.Value)
		}
	}

	u, err := url.Parse(spec.URL)
	if err != nil {
		return nil, errors.InvalidRequest("parse URL for signing", err)
	}

	pairs := make([][2]string, 0, len(oauth)+len(spec.Params))
	for k, v := range oauth {
		pairs = append(pairs, [2]string{k, v})
	}
	for k, vs := range u.Query() {
		for _, v := range vs {
			pairs = append(pairs, [2]string{k, v})
		}
	}
	if spec.ResolveEncoding() != httpclient.EncodingMultipart {
		for _, p := range spec.Params.WireParams() {
			pairs = append(pairs, [2]string{p.Key, httpclient.FormatValue(p.Value)})
		}
	}

	tokenSecret := ""
	if s.token != nil {
		tokenSecret = s.token.Secret
	}
	oauth["oauth_signature"] = signature(
		SignatureBase(spec.Method, u, pairs),
		s.consumer.Secret,
		tokenSecret,
	)

	return map[string]string{"Authorization": authorizationHeader(oauth)}, nil
}

// SignatureBase builds METHOD&url&params with every part percent-encoded.
func SignatureBase(method string, u *url.URL, pairs [][2]string) string {
	encoded := make([][2]string, len(pairs))
	for i, p := range pairs {
		encoded[i] = [2]string{PercentEncode(p[0]), PercentEncode(p[1])}
	}
	sort.Slice(encoded, func(i, j int) bool {
		if encoded[i][0] != encoded[j][0] {
			return encoded[i][0] < encoded[j][0]
		}
		return encoded[i][1] < encoded[j][1]
	})

	joined := make([]string, len(encoded))
	for i, p := range encoded {
		joined[i] = p[0] + "=" + p[1]
	}
	return strings.ToUpper(method) + "&" +
		PercentEncode(baseURL(u)) + "&" +
		PercentEncode(strings.Join(joined, "&"))
}

func signature(base, consumerSecret, tokenSecret string) string {
	key := PercentEncode(consumerSecret) + "&" + PercentEncode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// baseURL is scheme://host/path with default ports dropped.
func baseURL(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

func authorizationHeader(oauth map[string]string) string {
	keys := make([]string, 0, len(oauth))
	for k := range oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = PercentEncode(k) + `="` + PercentEncode(oauth[k]) + `"`
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// PercentEncode escapes everything outside the RFC 3986 unreserved set.
func PercentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

// generateNonce returns 16 random bytes, hex encoded.
func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// basicSigner signs bearer issuance and invalidation with the consumer
// credentials, each half form-encoded first.
func basicSigner(c Consumer) httpclient.Signer {
	return httpclient.BasicSigner(url.QueryEscape(c.Key), url.QueryEscape(c.Secret))
}
