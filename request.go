package openwire

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Request limits. Payload and state larger or deeper than this are rejected
// outright, never truncated.
const (
	MaxFieldSize  = 1 << 20
	MaxFieldDepth = 10
)

// Call is one queued action invocation.
type Call struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// Request is the normalized, validated form of an untrusted bridge payload.
// It is built once per incoming request and never modified.
type Request struct {
	component   string
	ref         *ComponentRef
	componentID string
	action      string
	calls       []Call
	payload     any
	state       map[string]any
	props       map[string]any
	meta        map[string]any
	security    map[string]any
	context     map[string]any
	formKey     string
}

// ParseRequest decodes a JSON body and normalizes it.
func ParseRequest(body []byte) (*Request, error) {
	data, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	return NewRequest(data)
}

// decodeObject decodes body into a JSON object.
func decodeObject(body []byte) (map[string]any, error) {
	var data map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&data); err != nil || data == nil {
		return nil, invalidInput("Invalid JSON")
	}
	return data, nil
}

// NewRequest normalizes decoded JSON. Every failure is an InvalidInput error.
//
// Normalization order:
//  1. component is required and must be a non-empty string
//  2. a component containing ':' is parsed as a ComponentRef
//  3. component_id (or id) and action are optional strings
//  4. calls is an optional list of {method, params}; without an action the
//     first call supplies action and payload
//  5. payload, state, props, meta, security and context default to empty
//  6. payload and state are checked for size and depth
func NewRequest(data map[string]any) (*Request, error) {
	r := &Request{}

	component, ok := data["component"].(string)
	if !ok || component == "" {
		return nil, invalidInput("Missing or invalid component")
	}
	r.component = component

	if strings.Contains(component, ":") {
		ref, err := ParseRef(component)
		if err != nil {
			return nil, err
		}
		r.ref = &ref
	}

	id, err := optionalString(data, "component_id")
	if err != nil {
		return nil, err
	}
	if id == "" {
		// The client runtime sends the instance id as "id".
		if id, err = optionalString(data, "id"); err != nil {
			return nil, err
		}
	}
	r.componentID = id

	if r.action, err = optionalString(data, "action"); err != nil {
		return nil, err
	}

	if r.calls, err = parseCalls(data["calls"]); err != nil {
		return nil, err
	}

	var callPayload any
	if r.action == "" && len(r.calls) > 0 {
		r.action = r.calls[0].Method
		callPayload = r.calls[0].Params
	}

	switch p := data["payload"].(type) {
	case nil:
		if callPayload != nil {
			r.payload = callPayload
		} else {
			r.payload = map[string]any{}
		}
	case map[string]any, []any:
		r.payload = p
	default:
		return nil, invalidInput("Invalid payload")
	}

	stateKey := "state"
	if _, ok := data["state"]; !ok {
		if _, ok := data["initial_state"]; ok {
			stateKey = "initial_state"
		}
	}
	fields := []struct {
		key  string
		name string
		dst  *map[string]any
	}{
		{stateKey, "state", &r.state},
		{"props", "props", &r.props},
		{"meta", "meta", &r.meta},
		{"security", "security", &r.security},
		{"context", "context", &r.context},
	}
	for _, f := range fields {
		m, err := optionalMap(data, f.key, f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = m
	}

	if r.formKey, err = optionalString(r.security, "form_key"); err != nil || r.formKey == "" {
		r.formKey, _ = data["form_key"].(string)
	}

	if err := checkLimits("Payload", r.payload); err != nil {
		return nil, err
	}
	if err := checkLimits("State", r.state); err != nil {
		return nil, err
	}

	return r, nil
}

func optionalString(data map[string]any, key string) (string, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidInput("Invalid %s", key)
	}
	return s, nil
}

func optionalMap(data map[string]any, key, name string) (map[string]any, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case []any:
		// An empty JSON array is how some clients encode an empty mapping.
		if len(m) == 0 {
			return map[string]any{}, nil
		}
	}
	return nil, invalidInput("Invalid %s", name)
}

func parseCalls(v any) ([]Call, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, invalidInput("Invalid calls")
	}
	calls := make([]Call, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, invalidInput("Invalid calls")
		}
		method, ok := obj["method"].(string)
		if !ok || method == "" {
			return nil, invalidInput("Invalid calls")
		}
		call := Call{Method: method, Params: []any{}}
		switch p := obj["params"].(type) {
		case nil:
		case []any:
			call.Params = p
		default:
			return nil, invalidInput("Invalid calls")
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// checkLimits enforces MaxFieldSize and MaxFieldDepth on a field. name is
// capitalised for the message ("Payload too large").
func checkLimits(name string, v any) error {
	size, err := encodedSize(v)
	if err != nil {
		return invalidInput("Invalid %s", strings.ToLower(name))
	}
	if size > MaxFieldSize {
		return invalidInput("%s too large", name)
	}
	if Depth(v) > MaxFieldDepth {
		return invalidInput("%s too deep", name)
	}
	return nil
}

// encodedSize is the length of v as compact JSON with HTML characters left
// unescaped, matching what a client sends on the wire.
func encodedSize(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return len(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// Depth counts nested containers below v. A flat object has depth 0 and
// {"a":{"b":1}} has depth 1.
func Depth(v any) int {
	deepest := 0
	visit := func(child any) {
		switch child.(type) {
		case map[string]any, []any:
			if d := 1 + Depth(child); d > deepest {
				deepest = d
			}
		}
	}
	switch x := v.(type) {
	case map[string]any:
		for _, child := range x {
			visit(child)
		}
	case []any:
		for _, child := range x {
			visit(child)
		}
	}
	return deepest
}

// Component returns the raw component string.
func (r *Request) Component() string { return r.component }

// Ref returns the parsed ComponentRef, or nil for a bare alias.
func (r *Request) Ref() *ComponentRef { return r.ref }

// ComponentID returns the client-assigned instance id, or "".
func (r *Request) ComponentID() string { return r.componentID }

// Action returns the requested action, or "" for a plain render or poll.
func (r *Request) Action() string { return r.action }

// HasAction reports whether an action was requested.
func (r *Request) HasAction() bool { return r.action != "" }

// Calls returns every queued call, including the first one.
func (r *Request) Calls() []Call { return r.calls }

// Payload returns the action payload: a JSON object or array.
func (r *Request) Payload() any { return r.payload }

// Params returns the payload as positional action arguments. An array is
// used as-is; a non-empty object becomes the single argument.
func (r *Request) Params() Params {
	switch p := r.payload.(type) {
	case []any:
		return Params(p)
	case map[string]any:
		if len(p) > 0 {
			return Params{p}
		}
	}
	return Params{}
}

func (r *Request) State() map[string]any    { return r.state }
func (r *Request) Props() map[string]any    { return r.props }
func (r *Request) Meta() map[string]any     { return r.meta }
func (r *Request) Security() map[string]any { return r.security }
func (r *Request) Context() map[string]any  { return r.context }

// FormKey returns security.form_key, falling back to the top-level form_key.
func (r *Request) FormKey() string { return r.formKey }

// ModePreference returns meta.mode_preference, or "".
func (r *Request) ModePreference() string {
	s, _ := r.meta["mode_preference"].(string)
	return s
}

// TraceID returns meta.trace_id, or "".
func (r *Request) TraceID() string {
	s, _ := r.meta["trace_id"].(string)
	return s
}

// StateToken returns meta.state_token, or "".
func (r *Request) StateToken() string {
	s, _ := r.meta["state_token"].(string)
	return s
}
