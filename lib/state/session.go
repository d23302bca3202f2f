package state

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "openwire_session"

// Session is a Store scoped to one browser session, plus the session's form key.
type Session struct {
	*Store
	id      string
	formKey string
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// FormKey returns the token non-admin updates must echo back.
func (s *Session) FormKey() string {
	return s.formKey
}

// CheckFormKey compares key against the session's form key in constant time.
func (s *Session) CheckFormKey(key string) bool {
	if key == "" || s.formKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.formKey)) == 1
}

// Manager resolves the Session for an HTTP request from a cookie, creating
// one when the cookie is missing or invalid.
type Manager struct {
	backend    Backend
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCookieName overrides DefaultCookieName.
func WithCookieName(name string) ManagerOption {
	return func(m *Manager) {
		m.cookieName = name
	}
}

// WithTTL sets how long session state lives after its last write.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) ManagerOption {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over backend.
func NewManager(backend Backend, opts ...ManagerOption) *Manager {
	m := &Manager{
		backend:    backend,
		cookieName: DefaultCookieName,
		ttl:        24 * time.Hour,
		logger:     slog.Default().With("component", "state"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns the request's session, setting the cookie on w when a new
// session is started.
func (m *Manager) Session(w http.ResponseWriter, r *http.Request) (*Session, error) {
	id := ""
	if c, err := r.Cookie(m.cookieName); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id = parsed.String()
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
		m.logger.Debug("session started", "session", id)
	}
	return m.Open(r.Context(), id)
}

// Open returns the session with the given id, generating its form key on
// first use.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	key := "openwire_session_" + id + "_form_key"
	formKey, err := m.backend.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		formKey = []byte(uuid.NewString())
		if err := m.backend.Set(ctx, key, formKey, m.ttl); err != nil {
			return nil, fmt.Errorf("state: session %s: %w", id, err)
		}
	case err != nil:
		return nil, fmt.Errorf("state: session %s: %w", id, err)
	}

	return &Session{
		Store:   NewStore(m.backend, id, m.ttl),
		id:      id,
		formKey: string(formKey),
	}, nil
}
