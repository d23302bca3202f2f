package openwire

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ComponentFactory builds a fresh component instance for one request.
type ComponentFactory func() Wireable

// BlockFactory builds a fresh legacy block for one request.
type BlockFactory func() Block

// Registry maps aliases to component and block factories. It is the Layout
// the runner resolves refs against.
//
// Registration happens at startup and panics on collisions, so a
// misconfigured application fails before serving its first request.
//
//	reg := openwire.NewRegistry()
//	reg.Component("openwire_component/counter", func() openwire.Wireable { return NewCounter() })
//	reg.Alias("counter", "openwire_component/counter")
//	reg.Block("product.price", func() openwire.Block { return NewPriceBlock() })
type Registry struct {
	mu         sync.RWMutex
	components map[string]ComponentFactory
	blocks     map[string]BlockFactory
	aliases    map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]ComponentFactory),
		blocks:     make(map[string]BlockFactory),
		aliases:    make(map[string]string),
	}
}

// Component registers a component factory under alias.
// Panics if the alias is already taken.
func (reg *Registry) Component(alias string, fn ComponentFactory) *Registry {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.claim(alias)
	reg.components[alias] = fn
	return reg
}

// Block registers a legacy block factory under alias.
// Panics if the alias is already taken.
func (reg *Registry) Block(alias string, fn BlockFactory) *Registry {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.claim(alias)
	reg.blocks[alias] = fn
	return reg
}

// Alias makes alias resolve to target. The target does not have to be
// registered yet. Panics if the alias is already taken.
func (reg *Registry) Alias(alias, target string) *Registry {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.claim(alias)
	reg.aliases[alias] = target
	return reg
}

func (reg *Registry) claim(alias string) {
	if alias == "" {
		panic("openwire: empty alias")
	}
	_, c := reg.components[alias]
	_, b := reg.blocks[alias]
	_, a := reg.aliases[alias]
	if c || b || a {
		panic(fmt.Sprintf("openwire: alias collision for %q", alias))
	}
}

// Create implements Layout. It returns a new Wireable or Block, or an error
// wrapping ErrNotFound.
func (reg *Registry) Create(ctx context.Context, alias string) (any, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	name := alias
	// Aliases may chain; a cycle ends as not found.
	for i := 0; i <= len(reg.aliases); i++ {
		target, ok := reg.aliases[name]
		if !ok {
			break
		}
		name = target
	}
	if fn, ok := reg.components[name]; ok {
		return fn(), nil
	}
	if fn, ok := reg.blocks[name]; ok {
		return fn(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, alias)
}

// Names returns every registered alias, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.components)+len(reg.blocks)+len(reg.aliases))
	for n := range reg.components {
		names = append(names, n)
	}
	for n := range reg.blocks {
		names = append(names, n)
	}
	for n := range reg.aliases {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
