package httpclient

import "encoding/base64"

// Signer produces the authorization headers for a request. The returned
// headers are applied verbatim; the executor never re-encodes or reorders
// them. Sign sees the full parameter set including oauth_ keys.
type Signer interface {
	Sign(spec *RequestSpec) (map[string]string, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(spec *RequestSpec) (map[string]string, error)

// Sign calls f(spec).
func (f SignerFunc) Sign(spec *RequestSpec) (map[string]string, error) { return f(spec) }

// BearerSigner signs every request with a static bearer token.
func BearerSigner(token string) Signer {
	return SignerFunc(func(*RequestSpec) (map[string]string, error) {
		return map[string]string{"Authorization": "Bearer " + token}, nil
	})
}

// BasicSigner signs every request with HTTP Basic credentials.
func BasicSigner(username, password string) Signer {
	cred := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return SignerFunc(func(*RequestSpec) (map[string]string, error) {
		return map[string]string{"Authorization": "Basic " + cred}, nil
	})
}
