package openwire

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pthm/openwire/lib/template"
)

// Component is the base type embedded by user components.
//
// Components embed *Component to gain an id, props, a data store, an action
// table and capability flags. The embedding pattern promotes these methods
// onto the user's type, and the runner discovers optional behaviour
// (Mounter, Renderer, DataProvider, ...) on the embedding type.
//
// Example:
//
//	type Counter struct {
//	    *openwire.Component
//	}
//
//	func NewCounter() *Counter {
//	    c := &Counter{Component: openwire.New("openwire_component/counter").Stateful()}
//	    c.Template(`<div openwire="counter"><span>{{ count }}</span>
//	        <button @click="increment">+</button></div>`)
//	    c.Action("increment", c.increment)
//	    return c
//	}
//
// A new instance is created for every request. Only the id and the
// dehydrated data store survive between requests.
type Component struct {
	alias        string
	id           string
	props        map[string]any
	data         map[string]any
	actions      map[string]*actionDef
	order        []string
	pollInterval time.Duration
	stateful     bool
	defaultMode  Mode
	template     string
	source       TemplateSource
	sourceName   string
	effects      []Effect
}

// New creates a component with the given alias and a fresh server-side id.
func New(alias string) *Component {
	return &Component{
		alias:   alias,
		id:      NewID(),
		props:   map[string]any{},
		data:    map[string]any{},
		actions: make(map[string]*actionDef),
	}
}

// NewID generates a component instance id.
func NewID() string {
	return "ow_" + uuid.NewString()
}

// Base returns the component itself. Promoted to embedding types, it
// satisfies Wireable.
func (c *Component) Base() *Component {
	return c
}

// Alias returns the name the component is registered and rendered under.
func (c *Component) Alias() string {
	return c.alias
}

// ID returns the instance id.
func (c *Component) ID() string {
	return c.id
}

// SetID replaces the instance id with a client-assigned one.
func (c *Component) SetID(id string) {
	if id != "" {
		c.id = id
	}
}

// Stateful marks the component as stateful: its data store is persisted to
// the StateStore after every request and embedded in the root config.
func (c *Component) Stateful() *Component {
	c.stateful = true
	return c
}

// IsStateful returns whether the component persists its state.
func (c *Component) IsStateful() bool {
	return c.stateful
}

// Poll makes the client re-render the component every d.
//
//	c.Poll(5 * time.Second)
func (c *Component) Poll(d time.Duration) *Component {
	c.pollInterval = d
	return c
}

// PollInterval returns the poll interval, or 0 when the component does not poll.
func (c *Component) PollInterval() time.Duration {
	return c.pollInterval
}

// PollIntervalMs returns the poll interval in milliseconds, or nil.
func (c *Component) PollIntervalMs() *int {
	if c.pollInterval <= 0 {
		return nil
	}
	ms := int(c.pollInterval / time.Millisecond)
	return &ms
}

// PreferMode sets the component's default render mode.
func (c *Component) PreferMode(m Mode) *Component {
	c.defaultMode = m
	return c
}

// DefaultMode returns the preferred render mode, or "" for no preference.
func (c *Component) DefaultMode() Mode {
	return c.defaultMode
}

// Template sets the declarative template rendered when the embedding type
// does not implement Renderer.
func (c *Component) Template(src string) *Component {
	c.template = src
	return c
}

// TemplateFrom renders the named template of src instead of an inline one.
// The source is read on every render, so a watching loader hot reloads.
func (c *Component) TemplateFrom(src TemplateSource, name string) *Component {
	c.source = src
	c.sourceName = name
	return c
}

// Props returns the props the component was mounted with.
func (c *Component) Props() map[string]any {
	return c.props
}

// Prop returns a single prop, or nil.
func (c *Component) Prop(key string) any {
	return c.props[key]
}

// Get returns a value from the data store, or nil.
func (c *Component) Get(key string) any {
	return c.data[key]
}

// Value returns a value from the data store and whether it is set.
func (c *Component) Value(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// Int returns a data value converted to int, or 0.
func (c *Component) Int(key string) int {
	return Int(c.data[key])
}

// Text returns a data value rendered as template text.
func (c *Component) Text(key string) string {
	return template.Stringify(c.data[key])
}

// Set stores a value in the data store.
func (c *Component) Set(key string, value any) {
	c.data[key] = value
}

// Unset removes a value from the data store.
func (c *Component) Unset(key string) {
	delete(c.data, key)
}

// Data returns a copy of the data store.
func (c *Component) Data() map[string]any {
	return maps.Clone(c.data)
}

// Config returns the snapshot embedded in the component root.
func (c *Component) Config() template.Config {
	cfg := template.Config{
		Component:      c.alias,
		ID:             c.id,
		Stateful:       c.stateful,
		PollIntervalMs: c.PollIntervalMs(),
	}
	if c.stateful {
		cfg.InitialState = c.dehydrate()
	}
	return cfg
}

// Effects returns the client effects queued during this request.
func (c *Component) Effects() []Effect {
	return c.effects
}

// mount stores props. Custom initialisation runs through Mounter.
func (c *Component) mount(props map[string]any) {
	if props == nil {
		props = map[string]any{}
	}
	c.props = props
}

// hydrate replaces the data store.
func (c *Component) hydrate(state map[string]any) {
	c.data = maps.Clone(state)
	if c.data == nil {
		c.data = map[string]any{}
	}
}

// dehydrate returns the portable state.
func (c *Component) dehydrate() map[string]any {
	return maps.Clone(c.data)
}

// renderTemplate compiles the component's template against its data.
func (c *Component) renderTemplate() (string, error) {
	src := c.template
	if c.source != nil {
		s, ok := c.source.Get(c.sourceName)
		if !ok {
			return "", fmt.Errorf("%w: template %q not found", ErrInternal, c.sourceName)
		}
		src = s
	}
	return template.Compile(src, c), nil
}

// mountComponent runs the MOUNT stage on w.
func mountComponent(ctx context.Context, w Wireable, props map[string]any) error {
	w.Base().mount(props)
	if m, ok := w.(Mounter); ok {
		return m.Mount(ctx, w.Base().props)
	}
	return nil
}

// renderHTML renders w directly, through Renderer or its template.
func renderHTML(ctx context.Context, w Wireable) (string, error) {
	if r, ok := w.(Renderer); ok {
		return r.Render(ctx)
	}
	return w.Base().renderTemplate()
}

// Payload is the body of a frontend update: the component's html, its
// dehydrated state, poll metadata and queued effects.
type Payload struct {
	HTML    string         `json:"html"`
	State   map[string]any `json:"state"`
	Meta    map[string]any `json:"meta"`
	Effects []Effect       `json:"effects,omitempty"`
}

// renderPayload builds the update payload for w.
func renderPayload(ctx context.Context, w Wireable) (*Payload, error) {
	c := w.Base()
	if pr, ok := w.(PayloadRenderer); ok {
		p, err := pr.RenderPayload(ctx)
		if err != nil {
			return nil, err
		}
		if p.HTML == "" {
			if p.HTML, err = renderHTML(ctx, w); err != nil {
				return nil, err
			}
		}
		if p.State == nil {
			p.State = c.dehydrate()
		}
		if p.Meta == nil {
			p.Meta = map[string]any{"pollIntervalMs": c.PollIntervalMs()}
		}
		if p.Effects == nil {
			p.Effects = c.effects
		}
		return p, nil
	}

	html, err := renderHTML(ctx, w)
	if err != nil {
		return nil, err
	}
	return &Payload{
		HTML:    html,
		State:   c.dehydrate(),
		Meta:    map[string]any{"pollIntervalMs": c.PollIntervalMs()},
		Effects: c.effects,
	}, nil
}

// Int converts a decoded JSON value to int. Unconvertible values give 0.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}
