package openwire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/pthm/openwire"

// Runner executes the per-request component lifecycle:
//
//	RESOLVE → AUTHORIZE → MOUNT → HYDRATE → VALIDATE_PAYLOAD → EXECUTE_ACTION →
//	DEHYDRATE → PERSIST → RESOLVE_MODE → RENDER → BUILD_RESPONSE
//
// The pipeline is linear. Any error or panic ends it and becomes a failure
// envelope; nothing after the failing stage runs.
//
// A Runner holds no per-request state and is safe for concurrent use.
type Runner struct {
	layout Layout
	policy ActionPolicy
	modes  ModeResolver
	sealer *Sealer
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSealer makes the runner return sealed state tokens in meta.state_token
// and accept them back as a hydration source.
func WithSealer(s *Sealer) RunnerOption {
	return func(rn *Runner) {
		rn.sealer = s
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(rn *Runner) {
		rn.logger = l
	}
}

// WithTracer sets the tracer lifecycle stages are recorded with. The default
// is the global otel tracer provider.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(rn *Runner) {
		rn.tracer = t
	}
}

// NewRunner creates a runner that resolves components through layout.
func NewRunner(layout Layout, opts ...RunnerOption) *Runner {
	rn := &Runner{
		layout: layout,
		logger: slog.Default().With("component", "openwire.runner"),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(rn)
	}
	return rn
}

// Run executes req and always returns an envelope. store scopes persistence
// to the caller's session; nil disables it.
func (rn *Runner) Run(ctx context.Context, req *Request, store StateStore) (resp *Response) {
	traceID := req.TraceID()
	if traceID == "" {
		traceID = "trace_" + uuid.NewString()
	}

	ctx, span := rn.tracer.Start(ctx, "openwire.run", trace.WithAttributes(
		attribute.String("openwire.component", req.Component()),
		attribute.String("openwire.action", req.Action()),
		attribute.String("openwire.trace_id", traceID),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			resp = rn.fail(ctx, span, req, traceID, newError(ErrInternal, "%v", r))
		}
	}()

	resp, err := rn.run(ctx, req, store, traceID)
	if err != nil {
		return rn.fail(ctx, span, req, traceID, err)
	}
	span.SetAttributes(attribute.String("openwire.mode", string(resp.Mode)))
	return resp
}

func (rn *Runner) run(ctx context.Context, req *Request, store StateStore, traceID string) (*Response, error) {
	var w Wireable
	err := rn.stage(ctx, "resolve", func(ctx context.Context) error {
		var err error
		w, err = rn.resolve(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	c := w.Base()
	legacy := isLegacy(w)
	if !legacy {
		c.SetID(req.ComponentID())
	}

	err = rn.stage(ctx, "authorize", func(ctx context.Context) error {
		if !req.HasAction() {
			return nil
		}
		if legacy {
			return forbidden("Actions not allowed for legacy blocks")
		}
		return rn.policy.Check(req.Action(), c.AllowedActions())
	})
	if err != nil {
		return nil, err
	}

	var source map[string]any
	if !legacy {
		if source, err = rn.hydrationSource(ctx, req, c, store); err != nil {
			return nil, err
		}
	}

	err = rn.stage(ctx, "mount", func(ctx context.Context) error {
		switch {
		case legacy:
			return nil
		case req.HasAction() && len(source) > 0:
			c.mount(req.Props())
			return nil
		}
		return mountComponent(ctx, w, req.Props())
	})
	if err != nil {
		return nil, err
	}

	if len(source) > 0 {
		c.hydrate(source)
	}

	if req.HasAction() {
		err = rn.stage(ctx, "validate_payload", func(ctx context.Context) error {
			return c.validateParams(req.Action(), req.Params())
		})
		if err != nil {
			return nil, err
		}
		err = rn.stage(ctx, "execute_action", func(ctx context.Context) error {
			return c.call(ctx, req.Action(), req.Params())
		})
		if err != nil {
			return nil, err
		}
	}

	state := map[string]any{}
	if !legacy {
		state = c.dehydrate()
	}

	if !legacy && c.IsStateful() && store != nil {
		err = rn.stage(ctx, "persist", func(ctx context.Context) error {
			if err := store.Save(ctx, c.ID(), state); err != nil {
				return newError(ErrInternal, "Failed to save state: %v", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	mode := rn.modes.Resolve(req, c)

	var (
		html string
		data map[string]any
	)
	err = rn.stage(ctx, "render", func(ctx context.Context) error {
		var err error
		html, data, err = rn.render(ctx, w, mode, legacy)
		return err
	})
	if err != nil {
		return nil, err
	}

	componentID := req.Component()
	if ref := req.Ref(); ref != nil {
		componentID = ref.ID()
	}
	meta := map[string]any{
		"component_id": componentID,
		"id":           c.ID(),
		"trace_id":     traceID,
		"timestamp":    rn.now().Unix(),
	}
	if ms := c.PollIntervalMs(); ms != nil {
		meta["pollIntervalMs"] = *ms
	}
	if rn.sealer != nil && !legacy {
		token, err := sealStateToken(rn.sealer, state)
		if err != nil {
			return nil, err
		}
		meta["state_token"] = token
	}
	if effects := c.Effects(); len(effects) > 0 {
		meta["effects"] = effects
	}
	return Success(mode, html, data, state, meta), nil
}

// hydrationSource picks the state to hydrate from: explicit request state,
// then a sealed state token, then one load from the store for stateful
// components. Nil means nothing to hydrate.
func (rn *Runner) hydrationSource(ctx context.Context, req *Request, c *Component, store StateStore) (map[string]any, error) {
	if len(req.State()) > 0 {
		return req.State(), nil
	}
	if rn.sealer != nil && req.StateToken() != "" {
		return openStateToken(rn.sealer, req.StateToken())
	}
	if !c.IsStateful() || store == nil {
		return nil, nil
	}
	var state map[string]any
	err := rn.stage(ctx, "load_state", func(ctx context.Context) error {
		var err error
		if state, err = store.Load(ctx, c.ID()); err != nil {
			return newError(ErrInternal, "Failed to load state: %v", err)
		}
		return nil
	})
	return state, err
}

// render produces html or data for the resolved mode.
func (rn *Runner) render(ctx context.Context, w Wireable, mode Mode, legacy bool) (string, map[string]any, error) {
	if mode == ModeData {
		dp, ok := w.(DataProvider)
		if legacy || !ok {
			return "", nil, unsupported("Component does not support data mode")
		}
		data, err := dp.DataPayload(ctx)
		return "", data, err
	}
	if legacy {
		html, err := renderHTML(ctx, w)
		return html, nil, err
	}
	p, err := renderPayload(ctx, w)
	if err != nil {
		return "", nil, err
	}
	return p.HTML, nil, nil
}

// resolve turns the request's ref or bare alias into a Wireable.
func (rn *Runner) resolve(ctx context.Context, req *Request) (Wireable, error) {
	if ref := req.Ref(); ref != nil {
		return rn.resolveRef(ctx, *ref)
	}
	return rn.resolveAlias(ctx, req.Component())
}

// resolveAlias resolves a bare alias. Blocks are wrapped under a legacy ref.
func (rn *Runner) resolveAlias(ctx context.Context, alias string) (Wireable, error) {
	created, err := rn.create(ctx, alias, "Component '%s' not found")
	if err != nil {
		return nil, err
	}
	w, ok := wrap(created, NewRef(RefLegacy, alias))
	if !ok {
		return nil, newError(ErrInternal, "Component '%s' is not a valid OpenWire component", alias)
	}
	return w, nil
}

// resolveRef resolves an explicit ref. A legacy ref always produces a legacy
// wrapper, even when the alias names a component.
func (rn *Runner) resolveRef(ctx context.Context, ref ComponentRef) (Wireable, error) {
	switch ref.Type() {
	case RefComponent:
		created, err := rn.create(ctx, ref.Alias(), "Component '%s' not found")
		if err != nil {
			return nil, err
		}
		w, ok := wrap(created, ref)
		if !ok {
			return nil, newError(ErrInternal, "Component '%s' is not a valid OpenWire component", ref.Alias())
		}
		return w, nil
	case RefLegacy:
		created, err := rn.create(ctx, ref.Alias(), "Legacy block '%s' not found")
		if err != nil {
			return nil, err
		}
		switch v := created.(type) {
		case Wireable:
			return NewLegacyWrapper(componentBlock{v}, ref), nil
		case Block:
			return NewLegacyWrapper(v, ref), nil
		}
		return nil, newError(ErrInternal, "Block '%s' is not renderable", ref.Alias())
	}
	return nil, invalidInput("Unknown component type '%s'", ref.Type())
}

// create asks the layout for alias, mapping a miss to a NotFound error with
// the given message.
func (rn *Runner) create(ctx context.Context, alias, missing string) (any, error) {
	if rn.layout == nil {
		return nil, notFound(missing, alias)
	}
	created, err := rn.layout.Create(ctx, alias)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound(missing, alias)
		}
		return nil, newError(ErrInternal, "Failed to create '%s': %v", alias, err)
	}
	if created == nil {
		return nil, notFound(missing, alias)
	}
	return created, nil
}

// stage runs fn in its own span.
func (rn *Runner) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := rn.tracer.Start(ctx, "openwire."+name)
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// fail logs err and converts it into the failure envelope.
func (rn *Runner) fail(ctx context.Context, span trace.Span, req *Request, traceID string, err error) *Response {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	level := slog.LevelWarn
	if IsInternal(err) {
		level = slog.LevelError
	}
	rn.logger.Log(ctx, level, "component request failed",
		"openwire.component", req.Component(),
		"action", req.Action(),
		"trace_id", traceID,
		"error", err,
	)

	return Failure(
		[]ResponseError{{Code: ErrCodeComponent, Message: err.Error()}},
		map[string]any{"trace_id": traceID, "timestamp": rn.now().Unix()},
	)
}

// Mount renders a component for the initial page load: create, mount with
// props, persist when stateful, render. ref may be a bare alias or a ref
// string.
//
//	html, err := runner.Mount(ctx, "counter", map[string]any{"count": 5}, session)
func (rn *Runner) Mount(ctx context.Context, ref string, props map[string]any, store StateStore) (string, error) {
	ctx, span := rn.tracer.Start(ctx, "openwire.mount", trace.WithAttributes(
		attribute.String("openwire.component", ref),
	))
	defer span.End()

	w, err := rn.resolveString(ctx, ref)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if err := mountComponent(ctx, w, props); err != nil {
		return "", fmt.Errorf("mount %s: %w", ref, err)
	}
	c := w.Base()
	if !isLegacy(w) && c.IsStateful() && store != nil {
		if err := store.Save(ctx, c.ID(), c.dehydrate()); err != nil {
			return "", newError(ErrInternal, "Failed to save state: %v", err)
		}
	}
	return renderHTML(ctx, w)
}

func (rn *Runner) resolveString(ctx context.Context, s string) (Wireable, error) {
	if s == "" {
		return nil, invalidInput("Missing component")
	}
	if strings.Contains(s, ":") {
		ref, err := ParseRef(s)
		if err != nil {
			return nil, err
		}
		return rn.resolveRef(ctx, ref)
	}
	return rn.resolveAlias(ctx, s)
}

// componentBlock renders a component where a legacy block is expected.
type componentBlock struct {
	w Wireable
}

func (b componentBlock) Render(ctx context.Context) (string, error) {
	return renderHTML(ctx, b.w)
}

func (b componentBlock) SetData(key string, value any) {
	b.w.Base().Set(key, value)
}
