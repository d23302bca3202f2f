package openwire

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/a-h/templ"

	"github.com/pthm/openwire/lib/template"
)

// Legacy wrapper actions.
const (
	ActionRefresh = "refresh"
	ActionLoad    = "load"
)

// LegacyWrapper adapts a non-reactive Block to the component lifecycle with a
// fixed, reduced surface: the only actions are refresh and load, it is never
// stateful, and hydrate and dehydrate carry nothing.
//
// The runner denies actions on legacy blocks outright. The update endpoints
// do call refresh and load.
type LegacyWrapper struct {
	*Component
	ref   ComponentRef
	block Block
}

// NewLegacyWrapper wraps block under ref. The wrapper's id is the ref id.
func NewLegacyWrapper(block Block, ref ComponentRef) *LegacyWrapper {
	lw := &LegacyWrapper{
		Component: New(ref.Alias()),
		ref:       ref,
		block:     block,
	}
	lw.id = ref.ID()
	lw.Action(ActionRefresh, lw.refresh)
	lw.Action(ActionLoad, lw.load)
	return lw
}

// Ref returns the wrapped block's ref.
func (lw *LegacyWrapper) Ref() ComponentRef {
	return lw.ref
}

// Block returns the wrapped block.
func (lw *LegacyWrapper) Block() Block {
	return lw.block
}

// Mount forwards props to the block when it accepts data.
func (lw *LegacyWrapper) Mount(ctx context.Context, props map[string]any) error {
	if ds, ok := lw.block.(DataSetter); ok {
		for k, v := range props {
			ds.SetData(k, v)
		}
	}
	return nil
}

// Render renders the block. Markup carrying @click or a root directive gets
// the event and root transforms. Mustache is never expanded: the wrapper has
// no data, and blocks may embed {{ }} for client-side templates.
func (lw *LegacyWrapper) Render(ctx context.Context) (string, error) {
	if lw.block == nil {
		return "", nil
	}
	html, err := lw.block.Render(ctx)
	if err != nil {
		return "", err
	}
	if strings.Contains(html, "@click") || strings.Contains(html, "openwire=") {
		return template.CompileDirectives(html, lw), nil
	}
	return html, nil
}

// refresh re-renders without changes.
func (lw *LegacyWrapper) refresh(ctx context.Context) error {
	return nil
}

// load forwards params[0].product_id to the block.
func (lw *LegacyWrapper) load(ctx context.Context, p Params) error {
	id, ok := p.Map(0)["product_id"]
	if !ok {
		return nil
	}
	if ds, ok := lw.block.(DataSetter); ok {
		ds.SetData("product_id", id)
	}
	return nil
}

// isLegacy reports whether w is a wrapped block.
func isLegacy(w Wireable) bool {
	_, ok := w.(*LegacyWrapper)
	return ok
}

// wrap turns whatever a Layout created into a Wireable: components pass
// through, blocks are wrapped under ref.
func wrap(created any, ref ComponentRef) (Wireable, bool) {
	switch v := created.(type) {
	case Wireable:
		return v, true
	case Block:
		return NewLegacyWrapper(v, ref), true
	}
	return nil, false
}

// BlockFunc adapts a function to Block.
type BlockFunc func(ctx context.Context) (string, error)

// Render calls f(ctx).
func (f BlockFunc) Render(ctx context.Context) (string, error) {
	return f(ctx)
}

// TemplBlock is a Block backed by a templ component. Data forwarded by the
// wrapper is passed to the render function.
type TemplBlock struct {
	mu     sync.Mutex
	data   map[string]any
	render func(data map[string]any) templ.Component
}

// NewTemplBlock creates a TemplBlock.
//
//	openwire.NewTemplBlock(func(data map[string]any) templ.Component {
//	    return views.Price(openwire.Int(data["product_id"]))
//	})
func NewTemplBlock(render func(data map[string]any) templ.Component) *TemplBlock {
	return &TemplBlock{data: map[string]any{}, render: render}
}

// SetData implements DataSetter.
func (b *TemplBlock) SetData(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
}

// Render implements Block.
func (b *TemplBlock) Render(ctx context.Context) (string, error) {
	b.mu.Lock()
	data := make(map[string]any, len(b.data))
	for k, v := range b.data {
		data[k] = v
	}
	b.mu.Unlock()
	return RenderTempl(ctx, b.render(data))
}

// RenderTempl renders a templ component to a string.
func RenderTempl(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
