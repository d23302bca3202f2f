package openwire

import "strings"

// forbiddenMethods can never be exposed as actions, even if allowlisted.
// They cover object lifecycle hooks, host data and templating entry points,
// and the component lifecycle stages the runner drives itself.
var forbiddenMethods = map[string]struct{}{
	"__construct": {},
	"__destruct":  {},
	"toHtml":      {},
	"setTemplate": {},
	"getTemplate": {},
	"setData":     {},
	"getData":     {},
	"mount":       {},
	"hydrate":     {},
	"dehydrate":   {},
	"render":      {},
}

// ActionPolicy gates which actions a client call may invoke.
//
// The allowlist is the primary gate. IsValidMethod is a second guard against
// allowlisting a dangerous name by accident.
type ActionPolicy struct{}

// IsAllowed reports whether method is in allowed. Matching is exact: no
// wildcards and no case folding.
func (ActionPolicy) IsAllowed(method string, allowed []string) bool {
	for _, a := range allowed {
		if a == method {
			return true
		}
	}
	return false
}

// IsValidMethod rejects empty names, names starting with an underscore and
// the forbidden set.
func (ActionPolicy) IsValidMethod(method string) bool {
	if method == "" || strings.HasPrefix(method, "_") {
		return false
	}
	_, forbidden := forbiddenMethods[method]
	return !forbidden
}

// Check returns a Forbidden error unless method is valid and allowed.
func (p ActionPolicy) Check(method string, allowed []string) error {
	if !p.IsValidMethod(method) || !p.IsAllowed(method, allowed) {
		return forbidden("Action '%s' not allowed", method)
	}
	return nil
}
