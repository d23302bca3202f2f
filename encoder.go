package openwire

import (
	"github.com/pthm/openwire/lib/encoding"
)

// Sealer turns dehydrated state into an opaque state token and back. It is
// an alias for encoding.Encoder.
//
// A runner configured with a sealer returns meta.state_token on every
// success and accepts it back as meta.state_token, so stateless deployments
// can round-trip state through the client. A token is verified only when it
// is the hydration source. Explicit request state outranks it, so a sealer
// does not stop a client from sending state of its own.
type Sealer = encoding.Encoder

// NewSealer creates a sealer with the given key. Call Sensitive on the result
// to encrypt tokens instead of signing them.
func NewSealer(key []byte) (*Sealer, error) {
	return encoding.NewEncoder(key)
}

// openStateToken verifies and decodes a state token. Every failure is an
// InvalidInput error; the cause is not exposed to clients.
func openStateToken(s *Sealer, token string) (map[string]any, error) {
	state, err := s.Open(token)
	if err != nil {
		return nil, invalidInput("Invalid state token")
	}
	return state, nil
}

// sealStateToken seals state for meta.state_token.
func sealStateToken(s *Sealer, state map[string]any) (string, error) {
	token, err := s.Seal(state)
	if err != nil {
		return "", newError(ErrInternal, "Failed to seal state: %v", err)
	}
	return token, nil
}
