package demo

import (
	"context"
	"time"

	"github.com/pthm/openwire"
)

// ClockAlias is the layout alias of the clock.
const ClockAlias = "openwire_component/clock"

// ClockInterval is how often the client polls the clock.
const ClockInterval = time.Second

const clockTemplate = `<div openwire="clock" class="clock">
  <time>{{ time }}</time>
  <small>{{ zone }}</small>
</div>`

// Clock shows the server time. It is stateless and re-mounts on every poll.
type Clock struct {
	*openwire.Component
	now func() time.Time
}

// NewClock creates a Clock.
func NewClock(src openwire.TemplateSource) *Clock {
	c := &Clock{Component: openwire.New(ClockAlias).Poll(ClockInterval), now: time.Now}
	useTemplate(c.Component, src, "clock", clockTemplate)
	return c
}

// Mount reads the time. props.zone selects a location; unknown zones fall
// back to UTC.
func (c *Clock) Mount(ctx context.Context, props map[string]any) error {
	loc := time.UTC
	if name, ok := props["zone"].(string); ok && name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		}
	}
	now := c.now().In(loc)
	c.Set("time", now.Format("15:04:05"))
	c.Set("zone", loc.String())
	c.Set("unix", now.Unix())
	return nil
}

// DataPayload answers data mode requests.
func (c *Clock) DataPayload(ctx context.Context) (map[string]any, error) {
	return map[string]any{
		"time": c.Text("time"),
		"zone": c.Text("zone"),
		"unix": c.Get("unix"),
	}, nil
}
