package openwire

// Flash levels for toast notifications.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Effect types understood by the bundled client runtime.
const (
	EffectFlash    = "flash"
	EffectDispatch = "dispatch"
	EffectRedirect = "redirect"
)

// Effect is a one-shot instruction for the client, executed after the DOM
// has been patched. The client looks the handler up by Type; unknown types
// are ignored.
type Effect struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Effect queues a client effect for this request.
//
//	c.Effect("dispatch", map[string]any{"event": "cart:updated"})
//
// Effects are not part of the component state and are dropped after the
// response is built.
func (c *Component) Effect(typ string, data any) {
	c.effects = append(c.effects, Effect{Type: typ, Data: data})
}

// Flash queues a toast notification.
//
//	c.Flash(openwire.FlashSuccess, "Item saved!")
//
// Multiple flashes can be queued from a single action; each appears as a
// separate toast.
func (c *Component) Flash(level, message string) {
	c.Effect(EffectFlash, map[string]any{"level": level, "message": message})
}

// Dispatch queues a browser event named event with the given detail.
func (c *Component) Dispatch(event string, detail any) {
	c.Effect(EffectDispatch, map[string]any{"event": event, "detail": detail})
}

// Redirect asks the client to navigate to url.
func (c *Component) Redirect(url string) {
	c.Effect(EffectRedirect, map[string]any{"url": url})
}
