package client

import (
	"sync"

	"github.com/pthm/openwire"
)

// EffectHandler runs one effect. Its outcome is not reported back.
type EffectHandler func(data any)

// Effects maps effect types to handlers.
type Effects struct {
	mu       sync.RWMutex
	handlers map[string]EffectHandler
}

// NewEffects creates an empty effect registry.
func NewEffects() *Effects {
	return &Effects{handlers: make(map[string]EffectHandler)}
}

// Register sets the handler for typ, replacing any existing one.
func (e *Effects) Register(typ string, h EffectHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = h
}

// Execute runs the handler registered for the effect's type. Unknown types
// are ignored.
func (e *Effects) Execute(effect openwire.Effect) bool {
	e.mu.RLock()
	h, ok := e.handlers[effect.Type]
	e.mu.RUnlock()
	if !ok {
		return false
	}
	h(effect.Data)
	return true
}
