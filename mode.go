package openwire

// Mode selects what a render returns.
type Mode string

const (
	// ModeHTML returns rendered markup. It is the global default.
	ModeHTML Mode = "html"

	// ModeData returns a structured payload for client-side rendering.
	// Requires the component to implement DataProvider.
	ModeData Mode = "data"
)

// IsValidMode reports whether m is one of the known modes.
func IsValidMode(m string) bool {
	return m == string(ModeHTML) || m == string(ModeData)
}

// ModeDefaulter exposes a component's preferred mode. *Component implements
// it; an empty mode means no preference.
type ModeDefaulter interface {
	DefaultMode() Mode
}

// ModeResolver decides the render mode for a request.
//
// The first match wins:
//  1. the request's mode_preference, if it is a valid mode
//  2. the component's default mode, if it is a valid mode
//  3. the global default, ModeHTML
//
// Unrecognised values fall through to the next tier instead of failing.
type ModeResolver struct{}

// Resolve returns the render mode. c may be nil.
func (ModeResolver) Resolve(req *Request, c ModeDefaulter) Mode {
	if req != nil {
		if pref := req.ModePreference(); IsValidMode(pref) {
			return Mode(pref)
		}
	}
	if c != nil {
		if def := c.DefaultMode(); IsValidMode(string(def)) {
			return def
		}
	}
	return ModeResolver{}.GlobalDefault()
}

// GlobalDefault returns the mode used when nothing else decides.
func (ModeResolver) GlobalDefault() Mode {
	return ModeHTML
}
