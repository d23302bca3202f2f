package openwire

import (
	"context"
	"net/http"
)

// Wireable is satisfied by every type that embeds *Component. The runner and
// handlers work with the embedding type so they can discover the optional
// capability interfaces below.
type Wireable interface {
	Base() *Component
}

// Mounter is implemented by components that initialise themselves from props.
// Called on a fresh mount, after the props have been stored on the base.
//
//	func (c *Counter) Mount(ctx context.Context, props map[string]any) error {
//	    c.Set("count", openwire.Int(props["count"]))
//	    return nil
//	}
type Mounter interface {
	Mount(ctx context.Context, props map[string]any) error
}

// Renderer is implemented by components that produce their HTML directly.
// Components without a Renderer render their template (see Component.Template).
type Renderer interface {
	Render(ctx context.Context) (string, error)
}

// PayloadRenderer is implemented by components that build the full update
// payload themselves. An empty HTML field falls back to the component's
// direct rendering.
type PayloadRenderer interface {
	RenderPayload(ctx context.Context) (*Payload, error)
}

// DataProvider is implemented by components that can answer in data mode,
// where the client renders from structured data instead of HTML.
type DataProvider interface {
	DataPayload(ctx context.Context) (map[string]any, error)
}

// Authorizer is implemented by components that restrict access on the admin
// endpoint. A non-nil error denies the request.
type Authorizer interface {
	Authorize(ctx context.Context) error
}

// Block is a non-reactive unit of markup: the legacy counterpart of a
// component. Blocks are wrapped in a LegacyWrapper before they reach the
// component lifecycle.
type Block interface {
	Render(ctx context.Context) (string, error)
}

// DataSetter is implemented by blocks that accept values forwarded from the
// wrapper's mount and load actions.
type DataSetter interface {
	SetData(key string, value any)
}

// Layout creates components and blocks by alias. It returns a Wireable or a
// Block, or an error wrapping ErrNotFound when the alias is unknown.
type Layout interface {
	Create(ctx context.Context, alias string) (any, error)
}

// StateStore persists dehydrated component state by component id.
// Load returns an empty map when nothing is stored.
type StateStore interface {
	Load(ctx context.Context, id string) (map[string]any, error)
	Save(ctx context.Context, id string, state map[string]any) error
	Forget(ctx context.Context, id string) error
}

// TemplateSource supplies declarative template source by name.
// *template.Loader implements it.
type TemplateSource interface {
	Get(name string) (string, bool)
}

// Session is a StateStore scoped to one client session, plus the form key
// non-admin updates must echo back.
type Session interface {
	StateStore
	FormKey() string
}

// SessionProvider resolves the session of an HTTP request.
type SessionProvider interface {
	Session(w http.ResponseWriter, r *http.Request) (Session, error)
}

// SessionProviderFunc adapts a function to SessionProvider.
type SessionProviderFunc func(w http.ResponseWriter, r *http.Request) (Session, error)

// Session calls f(w, r).
func (f SessionProviderFunc) Session(w http.ResponseWriter, r *http.Request) (Session, error) {
	return f(w, r)
}
