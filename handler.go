package openwire

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pthm/openwire/lib/state"
)

// Endpoint paths served by Handler.Routes.
const (
	BridgePath      = "/openwire/bridge"
	UpdatePath      = "/openwire/update/index"
	AdminUpdatePath = "/admin/openwire/update"
)

// HeaderRequest is sent by the client runtime on every request.
const HeaderRequest = "X-OpenWire-Request"

// Handler exposes the runner and the update controllers over HTTP.
//
// The bridge endpoint answers with the response envelope (HTTP 200 even when
// ok is false). The update endpoints answer with the raw payload, or HTTP 400
// and {"error": message}. Clients in the wild depend on both shapes.
type Handler struct {
	runner        *Runner
	sessions      SessionProvider
	policy        ActionPolicy
	logger        *slog.Logger
	bodyLimit     int64
	requireHeader bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSessions sets where per-request sessions come from. Without one, no
// state is persisted and every frontend update fails the form key check.
func WithSessions(p SessionProvider) HandlerOption {
	return func(h *Handler) {
		h.sessions = p
	}
}

// WithBodyLimit caps request bodies. Defaults to DefaultBodyLimit.
func WithBodyLimit(n int64) HandlerOption {
	return func(h *Handler) {
		h.bodyLimit = n
	}
}

// WithRequiredHeader rejects POSTs that lack HeaderRequest, which browsers
// refuse to add cross-origin without a preflight.
func WithRequiredHeader() HandlerOption {
	return func(h *Handler) {
		h.requireHeader = true
	}
}

// WithHandlerLogger sets the handler's logger.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler creates a handler around runner.
func NewHandler(runner *Runner, opts ...HandlerOption) *Handler {
	h := &Handler{
		runner:    runner,
		logger:    slog.Default().With("component", "openwire.handler"),
		bodyLimit: DefaultBodyLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Sessions adapts a state.Manager to SessionProvider.
func Sessions(m *state.Manager) SessionProvider {
	return SessionProviderFunc(func(w http.ResponseWriter, r *http.Request) (Session, error) {
		s, err := m.Session(w, r)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Routes returns a mux serving the three endpoints.
//
//	http.Handle("/", openwire.NewHandler(runner, openwire.WithSessions(sessions)).Routes())
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+BridgePath, h.ServeBridge)
	mux.HandleFunc("POST "+UpdatePath, h.ServeUpdate)
	mux.HandleFunc("POST "+AdminUpdatePath, h.ServeAdminUpdate)
	return h.Guard(mux)
}

// Guard applies the handler's request checks to next. Routes already uses
// it; call it directly when mounting the Serve methods on another router.
func (h *Handler) Guard(next http.Handler) http.Handler {
	if !h.requireHeader {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead && !IsBridgeRequest(r) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeBridge runs one request through the runner.
func (h *Handler) ServeBridge(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, h.bodyLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := ParseRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := h.session(w, r)
	if err != nil {
		h.logger.Error("session unavailable", "error", err)
		writeError(w, http.StatusInternalServerError, "Session unavailable")
		return
	}
	var store StateStore
	if sess != nil {
		store = sess
	}
	WriteJSON(w, http.StatusOK, h.runner.Run(r.Context(), req, store))
}

// ServeUpdate is the frontend update controller. It requires the session's
// form key and runs every queued call in order.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	h.serveUpdate(w, r, false)
}

// ServeAdminUpdate is the admin update controller. It skips the form key,
// accepts only components, and consults Authorizer.
func (h *Handler) ServeAdminUpdate(w http.ResponseWriter, r *http.Request) {
	h.serveUpdate(w, r, true)
}

func (h *Handler) serveUpdate(w http.ResponseWriter, r *http.Request, admin bool) {
	p, err := h.update(w, r, admin)
	if err != nil {
		h.logger.Warn("update failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, admin bool) (*Payload, error) {
	body, err := readBody(r, h.bodyLimit)
	if err != nil {
		return nil, err
	}
	data, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	sess, err := h.session(w, r)
	if err != nil {
		return nil, newError(ErrInternal, "Session unavailable")
	}
	var (
		store   StateStore
		formKey string
	)
	if sess != nil {
		store = sess
		formKey = sess.FormKey()
	}

	if err := NewRequestValidator(admin).Validate(data, formKey); err != nil {
		return nil, err
	}
	req, err := NewRequest(data)
	if err != nil {
		return nil, err
	}
	return h.execute(r.Context(), req, store, admin)
}

// execute runs the controller lifecycle: create, authorize (admin), mount,
// hydrate, every call, render, persist.
func (h *Handler) execute(ctx context.Context, req *Request, store StateStore, admin bool) (*Payload, error) {
	w, err := h.runner.resolveString(ctx, req.Component())
	if err != nil {
		return nil, err
	}
	legacy := isLegacy(w)
	c := w.Base()

	if admin {
		if legacy {
			return nil, invalidInput("Component '%s' is not a valid OpenWire component", req.Component())
		}
		if a, ok := w.(Authorizer); ok {
			if err := a.Authorize(ctx); err != nil {
				return nil, forbidden("Unauthorized")
			}
		}
	}

	c.SetID(req.ComponentID())
	if err := mountComponent(ctx, w, req.Props()); err != nil {
		return nil, err
	}

	if !legacy {
		switch {
		case len(req.State()) > 0:
			c.hydrate(req.State())
		case c.IsStateful() && store != nil:
			saved, err := store.Load(ctx, c.ID())
			if err != nil {
				return nil, newError(ErrInternal, "Failed to load state: %v", err)
			}
			if len(saved) > 0 {
				c.hydrate(saved)
			}
		}
	}

	for _, call := range req.Calls() {
		if err := h.policy.Check(call.Method, c.AllowedActions()); err != nil {
			return nil, err
		}
		if err := c.validateParams(call.Method, Params(call.Params)); err != nil {
			return nil, err
		}
		if err := c.call(ctx, call.Method, Params(call.Params)); err != nil {
			return nil, err
		}
	}

	p, err := renderPayload(ctx, w)
	if err != nil {
		return nil, err
	}

	if !legacy && c.IsStateful() && store != nil {
		if err := store.Save(ctx, c.ID(), c.dehydrate()); err != nil {
			return nil, newError(ErrInternal, "Failed to save state: %v", err)
		}
	}
	return p, nil
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (Session, error) {
	if h.sessions == nil {
		return nil, nil
	}
	return h.sessions.Session(w, r)
}
