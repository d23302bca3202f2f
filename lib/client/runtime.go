// Package client is a headless OpenWire client runtime. It works on a parsed
// HTML document the way the browser runtime works on the DOM: it bootstraps
// component roots, turns delegated events into update requests, and patches
// the responses back into the document.
//
// All document access goes through the runtime's lock, which stands in for
// the browser's single event loop. Requests themselves run outside the lock,
// so two requests can be in flight at once and their responses are applied
// in arrival order.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pthm/openwire"
	"github.com/pthm/openwire/lib/template"
	"golang.org/x/net/html"
)

// Event types handled by Dispatch.
const (
	EventClick  = "click"
	EventChange = "change"
	EventInput  = "input"
	EventSubmit = "submit"
)

// Event is a DOM event delivered to the runtime.
type Event struct {
	Type   string
	Target *html.Node
}

// Runtime owns a document and the timers acting on it.
type Runtime struct {
	mu        sync.Mutex
	doc       *html.Node
	transport Transport
	debouncer *Debouncer
	poller    *Poller
	patcher   Patcher
	effects   *Effects
	wait      time.Duration
	booted    map[*html.Node]bool
	stateSent map[*html.Node]bool
	newID     func() string
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithDebounceWait overrides DebounceWait.
func WithDebounceWait(d time.Duration) Option {
	return func(rt *Runtime) {
		rt.wait = d
	}
}

// WithEffects sets the effect registry.
func WithEffects(e *Effects) Option {
	return func(rt *Runtime) {
		rt.effects = e
	}
}

// WithLogger sets the logger used for failures in debounced and polled
// requests, which have no caller to return to.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithIDGenerator sets how ids are generated for roots without one.
func WithIDGenerator(fn func() string) Option {
	return func(rt *Runtime) {
		rt.newID = fn
	}
}

// New creates a runtime for doc.
func New(doc *html.Node, transport Transport, opts ...Option) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		doc:       doc,
		transport: transport,
		debouncer: NewDebouncer(),
		poller:    NewPoller(),
		effects:   NewEffects(),
		wait:      DebounceWait,
		booted:    make(map[*html.Node]bool),
		stateSent: make(map[*html.Node]bool),
		newID:     generateID,
		logger:    slog.Default().With("component", "openwire.client"),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Parse parses a page and creates a runtime for it.
func Parse(page string, transport Transport, opts ...Option) (*Runtime, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("client: parse page: %w", err)
	}
	return New(doc, transport, opts...), nil
}

func generateID() string {
	return fmt.Sprintf("ow_%d_%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}

// Effects returns the effect registry.
func (rt *Runtime) Effects() *Effects { return rt.effects }

// Poller returns the poller.
func (rt *Runtime) Poller() *Poller { return rt.poller }

// Debouncer returns the debouncer.
func (rt *Runtime) Debouncer() *Debouncer { return rt.debouncer }

// Bootstrap marks up every component root once and starts polls for roots
// whose config asks for one.
func (rt *Runtime) Bootstrap() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	roots := FindAll(rt.doc, func(n *html.Node) bool {
		return HasAttr(n, "data-ow-component") || HasAttr(n, "data-openwire")
	})
	for _, el := range roots {
		if rt.booted[el] {
			continue
		}
		rt.booted[el] = true
		if !HasAttr(el, "data-ow-component") {
			if name := firstAttr(el, []string{"data-openwire"}); name != "" {
				SetAttr(el, "data-ow-component", name)
			}
		}
		if !HasAttr(el, "data-ow-id") {
			SetAttr(el, "data-ow-id", rt.newID())
		}
		if !HasAttr(el, "x-data") {
			SetAttr(el, "x-data", "{}")
		}
	}

	for _, el := range FindAll(rt.doc, ByAttr("data-ow-component")) {
		raw, ok := Attr(el, "data-ow-config")
		if !ok || raw == "" {
			continue
		}
		cfg, err := parseConfig(raw)
		if err != nil {
			rt.logger.Error("invalid data-ow-config", "config", raw, "error", err)
			continue
		}
		if cfg.PollIntervalMs != nil && *cfg.PollIntervalMs > 0 {
			rt.startPoll(el, time.Duration(*cfg.PollIntervalMs)*time.Millisecond)
		}
	}
}

func parseConfig(raw string) (template.Config, error) {
	var cfg template.Config
	err := json.Unmarshal([]byte(raw), &cfg)
	return cfg, err
}

// startPoll requires the document lock.
func (rt *Runtime) startPoll(el *html.Node, interval time.Duration) {
	id, _ := Attr(el, "data-ow-id")
	component, _ := Attr(el, "data-ow-component")
	if id == "" || component == "" {
		return
	}
	rt.poller.Start(id, interval, func() {
		if err := rt.send(rt.ctx, el, &UpdatePayload{ID: id, Component: component}); err != nil {
			rt.logger.Warn("poll failed", "id", id, "component", component, "error", err)
		}
	})
}

// Dispatch handles a delegated event. Click and submit requests are sent
// before Dispatch returns; change and input requests are debounced and sent
// later. Events without a matching binding, or outside a component root,
// are ignored.
func (rt *Runtime) Dispatch(ctx context.Context, ev Event) error {
	rt.mu.Lock()
	p, el, ok := rt.buildPayload(ev)
	rt.mu.Unlock()
	if !ok {
		return nil
	}

	switch ev.Type {
	case EventChange, EventInput:
		rt.debouncer.Debounce(p.ID+p.Calls[0].Method, rt.wait, func() {
			if err := rt.send(rt.ctx, el, p); err != nil {
				rt.logger.Warn("update failed", "id", p.ID, "method", p.Calls[0].Method, "error", err)
			}
		})
		return nil
	default:
		return rt.send(ctx, el, p)
	}
}

// buildPayload requires the document lock.
func (rt *Runtime) buildPayload(ev Event) (*UpdatePayload, *html.Node, bool) {
	if ev.Target == nil {
		return nil, nil, false
	}
	method := firstAttr(ev.Target, []string{"data-ow:" + ev.Type, "data-openwire:" + ev.Type})
	if method == "" {
		return nil, nil, false
	}
	el := Closest(ev.Target, func(n *html.Node) bool { return hasAny(n, rootAttrs) })
	if el == nil {
		return nil, nil, false
	}
	id := firstAttr(el, idAttrs)
	component := firstAttr(el, componentAttrs)
	if id == "" || component == "" {
		return nil, nil, false
	}

	var params []any
	switch ev.Type {
	case EventClick:
		params = []any{}
	case EventChange, EventInput:
		params = []any{Value(ev.Target)}
	case EventSubmit:
		params = []any{FormFields(ev.Target)}
	default:
		return nil, nil, false
	}

	p := &UpdatePayload{
		ID:        id,
		Component: component,
		Calls:     []openwire.Call{{Method: method, Params: params}},
	}
	if !rt.stateSent[el] {
		if raw := firstAttr(el, configAttrs); raw != "" {
			if cfg, err := parseConfig(raw); err == nil && cfg.InitialState != nil {
				p.InitialState = cfg.InitialState
			}
		}
	}
	return p, el, true
}

// send performs the request outside the lock, then applies the response
// under it. A root counts as having sent its initial state once a request
// carrying it goes out; debounced payloads dropped before then do not count.
func (rt *Runtime) send(ctx context.Context, el *html.Node, p *UpdatePayload) error {
	if p.InitialState != nil {
		rt.mu.Lock()
		rt.stateSent[el] = true
		rt.mu.Unlock()
	}
	payload, err := rt.transport.SendUpdate(ctx, p)
	if err != nil {
		return err
	}
	return rt.Handle(el, payload)
}

// Handle patches the payload's HTML into el, then runs its effects.
func (rt *Runtime) Handle(el *html.Node, p *openwire.Payload) error {
	if p == nil {
		return errors.New("client: empty response")
	}

	rt.mu.Lock()
	var err error
	if p.HTML != "" {
		_, err = rt.patcher.Patch(el, p.HTML)
	}
	rt.mu.Unlock()
	if err != nil {
		return fmt.Errorf("client: patch: %w", err)
	}

	for _, e := range p.Effects {
		rt.effects.Execute(e)
	}
	return nil
}

// Root returns the component root with the given id.
func (rt *Runtime) Root(id string) *html.Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return Find(rt.doc, func(n *html.Node) bool { return firstAttr(n, idAttrs) == id })
}

// Query returns the first element matching match.
func (rt *Runtime) Query(match func(*html.Node) bool) *html.Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return Find(rt.doc, match)
}

// Update runs fn with the document locked, for changes such as typing into
// an input before dispatching its change event.
func (rt *Runtime) Update(fn func(doc *html.Node)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	fn(rt.doc)
}

// HTML renders the document.
func (rt *Runtime) HTML() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return OuterHTML(rt.doc)
}

// Close stops every poll and pending debounce and cancels their requests.
func (rt *Runtime) Close() {
	rt.poller.StopAll()
	rt.debouncer.Stop()
	rt.cancel()
}
