package demo

import (
	"context"

	"github.com/pthm/openwire"
)

// CounterAlias is the layout alias of the counter.
const CounterAlias = "openwire_component/counter"

const counterTemplate = `<div openwire="counter" class="counter">
  <button @click="decrement">-</button>
  <span class="count">{{ count }}</span>
  <button @click="increment">+</button>
  <button @click="reset">Reset</button>
</div>`

// Counter is a stateful counter. Its count survives between requests in the
// session store.
type Counter struct {
	*openwire.Component
}

// NewCounter creates a Counter.
func NewCounter(src openwire.TemplateSource) *Counter {
	c := &Counter{Component: openwire.New(CounterAlias).Stateful()}
	useTemplate(c.Component, src, "counter", counterTemplate)
	c.Action("increment", c.increment)
	c.Action("decrement", c.decrement)
	c.Action("reset", c.reset)
	return c
}

// Mount starts the count at props.count.
func (c *Counter) Mount(ctx context.Context, props map[string]any) error {
	c.Set("count", openwire.Int(props["count"]))
	return nil
}

// DataPayload answers data mode requests.
func (c *Counter) DataPayload(ctx context.Context) (map[string]any, error) {
	return map[string]any{
		"count": c.Int("count"),
		"actions": map[string]bool{
			"increment": true,
			"decrement": true,
			"reset":     true,
		},
	}, nil
}

func (c *Counter) increment(ctx context.Context) error {
	c.Set("count", c.Int("count")+1)
	return nil
}

func (c *Counter) decrement(ctx context.Context) error {
	c.Set("count", c.Int("count")-1)
	return nil
}

func (c *Counter) reset(ctx context.Context) error {
	c.Set("count", 0)
	c.Flash(openwire.FlashSuccess, "Counter reset!")
	return nil
}
