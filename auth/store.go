// Package auth holds the client's credentials and runs the OAuth flows:
// the three-legged OAuth1 handshake, app-only bearer issuance and bearer
// invalidation. The Store is the single active credential of a client; the
// Authenticator is the only writer during a flow.
package auth

import (
	"sync"

	"github.com/kbukum/birdkit/httpclient"
)

// Consumer identifies the application.
type Consumer struct {
	Key    string
	Secret string
}

// Valid reports whether both halves are set.
func (c Consumer) Valid() bool { return c.Key != "" && c.Secret != "" }

// Credential is the active user or app credential. At most one of
// AccessToken and Bearer is set.
type Credential struct {
	AccessToken *AccessToken
	Bearer      string
}

// IsZero reports whether no credential is installed.
func (c Credential) IsZero() bool { return c.AccessToken == nil && c.Bearer == "" }

// Store is the client's credential context. Reads are concurrent; installs
// and clears are serialized.
type Store struct {
	mu       sync.RWMutex
	consumer Consumer
	current  Credential
}

// NewStore creates a store for the given application credentials.
func NewStore(consumer Consumer) *Store {
	return &Store{consumer: consumer}
}

// Consumer returns the application credentials.
func (s *Store) Consumer() Consumer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consumer
}

// Current returns a copy of the active credential.
func (s *Store) Current() Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Credential{AccessToken: s.current.AccessToken.Clone(), Bearer: s.current.Bearer}
}

// Install replaces the active credential.
func (s *Store) Install(c Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Credential{AccessToken: c.AccessToken.Clone(), Bearer: c.Bearer}
}

// InstallAccessToken makes tok the active user credential.
func (s *Store) InstallAccessToken(tok *AccessToken) {
	s.Install(Credential{AccessToken: tok})
}

// InstallBearer makes token the active app-only credential.
func (s *Store) InstallBearer(token string) {
	s.Install(Credential{Bearer: token})
}

// Clear removes the active credential.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Credential{}
}

// Signer signs each request with whatever credential is active at send time:
// a bearer header for app-only, OAuth1 otherwise. Without consumer
// credentials requests go out unsigned.
func (s *Store) Signer() httpclient.Signer {
	return httpclient.SignerFunc(func(spec *httpclient.RequestSpec) (map[string]string, error) {
		s.mu.RLock()
		consumer, cur := s.consumer, s.current
		s.mu.RUnlock()

		switch {
		case cur.Bearer != "":
			return httpclient.BearerSigner(cur.Bearer).Sign(spec)
		case consumer.Valid():
			return NewOAuth1Signer(consumer, cur.AccessToken).Sign(spec)
		default:
			return nil, nil
		}
	})
}
