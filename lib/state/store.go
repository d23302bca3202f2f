package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pthm/openwire/lib/encoding"
	"github.com/vmihailenco/msgpack/v5"
)

// KeyPrefix prefixes every component state key.
const KeyPrefix = "openwire_state_"

// Store keeps component state in a Backend, keyed by component id.
type Store struct {
	backend   Backend
	namespace string
	ttl       time.Duration
}

// NewStore creates a Store. Keys are prefixed with namespace when it is
// non-empty, which lets several sessions share one backend.
func NewStore(backend Backend, namespace string, ttl time.Duration) *Store {
	return &Store{backend: backend, namespace: namespace, ttl: ttl}
}

// Load returns the saved state for id, or an empty map when nothing is saved.
func (s *Store) Load(ctx context.Context, id string) (map[string]any, error) {
	raw, err := s.backend.Get(ctx, s.key(id))
	if errors.Is(err, ErrNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load %s: %w", id, err)
	}
	state, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("state: load %s: %w", id, err)
	}
	return state, nil
}

// Save replaces the state for id.
func (s *Store) Save(ctx context.Context, id string, state map[string]any) error {
	raw, err := encode(state)
	if err != nil {
		return fmt.Errorf("state: save %s: %w", id, err)
	}
	if err := s.backend.Set(ctx, s.key(id), raw, s.ttl); err != nil {
		return fmt.Errorf("state: save %s: %w", id, err)
	}
	return nil
}

// Forget removes the state for id.
func (s *Store) Forget(ctx context.Context, id string) error {
	if err := s.backend.Del(ctx, s.key(id)); err != nil {
		return fmt.Errorf("state: forget %s: %w", id, err)
	}
	return nil
}

func (s *Store) key(id string) string {
	if s.namespace == "" {
		return KeyPrefix + id
	}
	return s.namespace + ":" + KeyPrefix + id
}

func encode(state map[string]any) ([]byte, error) {
	if state == nil {
		state = map[string]any{}
	}
	return msgpack.Marshal(state)
}

func decode(raw []byte) (map[string]any, error) {
	return encoding.Unpack(raw)
}
