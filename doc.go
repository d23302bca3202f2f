// Package openwire bridges server-rendered components to a reactive browser
// runtime.
//
// A component is a Go type that embeds *Component. It owns a data store, an
// action table and a template. The browser sends a JSON bridge request naming
// the component, an action and its params; the server runs the component
// lifecycle and answers with fresh HTML (or structured data) plus the
// dehydrated state, and the client patches the DOM in place.
//
// # Components
//
//	type Counter struct {
//	    *openwire.Component
//	}
//
//	func NewCounter() *Counter {
//	    c := &Counter{Component: openwire.New("openwire_component/counter").Stateful()}
//	    c.Template(`<div openwire="counter">
//	        <span>{{ count }}</span>
//	        <button @click="increment">+</button>
//	    </div>`)
//	    c.Action("increment", c.increment)
//	    return c
//	}
//
//	func (c *Counter) Mount(ctx context.Context, props map[string]any) error {
//	    c.Set("count", openwire.Int(props["count"]))
//	    return nil
//	}
//
//	func (c *Counter) increment(ctx context.Context) error {
//	    c.Set("count", c.Int("count")+1)
//	    return nil
//	}
//
// Optional behaviour is discovered through interfaces on the embedding type:
// Mounter, Renderer, PayloadRenderer, DataProvider and Authorizer.
//
// # Templates
//
// Templates are plain HTML with three directives, compiled by lib/template:
//   - openwire="alias" marks the component root and expands to the
//     data-ow-component, data-ow-id, data-ow-config and x-data attributes
//   - @click="action" becomes data-ow:click="action"
//   - {{ key }} interpolates an escaped value from the data store
//
// templ users get the same attributes from RootAttrs and On.
//
// # Lifecycle
//
// The Runner executes one bridge request:
//
//	RESOLVE → AUTHORIZE → MOUNT → HYDRATE → VALIDATE_PAYLOAD → EXECUTE_ACTION →
//	DEHYDRATE → PERSIST → RESOLVE_MODE → RENDER → BUILD_RESPONSE
//
// Every request gets a fresh component instance from the Layout (usually a
// Registry). State survives between requests only through the StateStore, the
// explicit state the client echoes back, or a sealed state token.
//
// # Security Model
//
// Only registered actions can be called, and names that collide with the
// lifecycle or start with an underscore cannot be registered at all. Legacy
// blocks accept no actions through the runner. Frontend update requests must
// echo the session's form key. Payload and state are capped in size and
// nesting depth before any component code runs.
//
// # Legacy Blocks
//
// A Block is markup without reactive behaviour. Blocks registered with a
// Registry are wrapped in a LegacyWrapper so they can be refreshed through
// the same endpoints.
package openwire
