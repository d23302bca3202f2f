package openwire

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/pthm/openwire/lib/state"
)

// TestResult holds the outcome of running a component for testing.
//
// Provides convenience methods for asserting on HTML content, state,
// effects and errors.
type TestResult struct {
	HTML       string
	State      map[string]any
	Meta       map[string]any
	Effects    []Effect
	Errors     []ResponseError
	Response   *Response
	StatusCode int
}

// NewTestStore returns an in-memory StateStore.
func NewTestStore() StateStore {
	return state.NewStore(state.NewMemoryBackend(), "test", 0)
}

// TestRender mounts a component with props and renders it, the way a page
// load does. Use this for pure unit tests of rendering logic:
//
//	result, err := openwire.TestRender(NewCounter(), map[string]any{"count": 5})
//	if !result.HTMLContains("<span>5</span>") {
//	    t.Fatal("missing count")
//	}
func TestRender(w Wireable, props map[string]any) (*TestResult, error) {
	return TestRenderWithContext(context.Background(), w, props)
}

// TestRenderWithContext is TestRender with a caller-supplied context, for
// components that read request-scoped values.
func TestRenderWithContext(ctx context.Context, w Wireable, props map[string]any) (*TestResult, error) {
	if err := mountComponent(ctx, w, props); err != nil {
		return nil, err
	}
	p, err := renderPayload(ctx, w)
	if err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       p.HTML,
		State:      p.State,
		Meta:       p.Meta,
		Effects:    p.Effects,
		StatusCode: http.StatusOK,
	}, nil
}

// TestAction runs one action through the full runner lifecycle.
//
//	result := openwire.TestAction(NewCounter(), "increment")
//	if result.StateInt("count") != 1 { ... }
func TestAction(w Wireable, action string, params ...any) *TestResult {
	return NewTestRequest(w.Base().Alias()).WithAction(action, params...).Execute(w)
}

// TestRequestBuilder provides a fluent interface for building runner
// requests in tests:
//
//	result := openwire.NewTestRequest("counter").
//	    WithProps(map[string]any{"count": 5}).
//	    WithAction("increment").
//	    Execute(NewCounter())
type TestRequestBuilder struct {
	data  map[string]any
	store StateStore
	ctx   context.Context
}

// NewTestRequest creates a builder for a request against component.
func NewTestRequest(component string) *TestRequestBuilder {
	return &TestRequestBuilder{
		data: map[string]any{"component": component},
		ctx:  context.Background(),
	}
}

// WithAction sets the action and its positional params.
func (b *TestRequestBuilder) WithAction(action string, params ...any) *TestRequestBuilder {
	b.data["action"] = action
	if params == nil {
		params = []any{}
	}
	b.data["payload"] = params
	return b
}

// WithProps sets the mount props.
func (b *TestRequestBuilder) WithProps(props map[string]any) *TestRequestBuilder {
	b.data["props"] = props
	return b
}

// WithState sets explicit state to hydrate from.
func (b *TestRequestBuilder) WithState(s map[string]any) *TestRequestBuilder {
	b.data["state"] = s
	return b
}

// WithID sets the client-assigned component id.
func (b *TestRequestBuilder) WithID(id string) *TestRequestBuilder {
	b.data["component_id"] = id
	return b
}

// WithMode sets meta.mode_preference.
func (b *TestRequestBuilder) WithMode(m Mode) *TestRequestBuilder {
	b.meta()["mode_preference"] = string(m)
	return b
}

// WithStore sets the state store the runner persists to.
func (b *TestRequestBuilder) WithStore(s StateStore) *TestRequestBuilder {
	b.store = s
	return b
}

// WithContext sets the context the runner is called with.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

func (b *TestRequestBuilder) meta() map[string]any {
	m, ok := b.data["meta"].(map[string]any)
	if !ok {
		m = map[string]any{}
		b.data["meta"] = m
	}
	return m
}

// Execute runs the request against w. The request goes through JSON, so
// numbers arrive as float64 the way they do from a browser.
func (b *TestRequestBuilder) Execute(w Wireable) *TestResult {
	body, err := json.Marshal(b.data)
	if err != nil {
		return failedResult(err)
	}
	req, err := ParseRequest(body)
	if err != nil {
		return failedResult(err)
	}
	resp := NewRunner(fixedLayout{w}).Run(b.ctx, req, b.store)
	return resultOf(resp, http.StatusOK)
}

// TestServe posts body as JSON to path on h and decodes the envelope.
// Controller error bodies ({"error": msg}) are reported in Errors.
func TestServe(h http.Handler, path string, body map[string]any) *TestResult {
	raw, err := json.Marshal(body)
	if err != nil {
		return failedResult(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRequest, "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &e)
		return &TestResult{
			StatusCode: rec.Code,
			Errors:     []ResponseError{{Code: ErrCodeComponent, Message: e.Error}},
		}
	}
	if path != BridgePath {
		var p Payload
		if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
			return failedResult(err)
		}
		return &TestResult{HTML: p.HTML, State: p.State, Meta: p.Meta, Effects: p.Effects, StatusCode: rec.Code}
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		return failedResult(err)
	}
	return resultOf(&resp, rec.Code)
}

func resultOf(resp *Response, status int) *TestResult {
	r := &TestResult{
		HTML:       resp.HTMLString(),
		State:      resp.State,
		Meta:       resp.Meta,
		Errors:     resp.Errors,
		Response:   resp,
		StatusCode: status,
	}
	switch effects := resp.Meta["effects"].(type) {
	case []Effect:
		r.Effects = effects
	case []any:
		raw, _ := json.Marshal(effects)
		_ = json.Unmarshal(raw, &r.Effects)
	}
	return r
}

func failedResult(err error) *TestResult {
	return &TestResult{
		StatusCode: http.StatusBadRequest,
		Errors:     []ResponseError{{Code: ErrCodeComponent, Message: err.Error()}},
	}
}

// fixedLayout creates the same instance for every alias.
type fixedLayout struct {
	w Wireable
}

func (l fixedLayout) Create(ctx context.Context, alias string) (any, error) {
	return l.w, nil
}

// IsOK reports whether the run succeeded.
func (r *TestResult) IsOK() bool {
	return len(r.Errors) == 0 && r.StatusCode == http.StatusOK
}

// ErrorMessage returns the first error message, or "".
func (r *TestResult) ErrorMessage() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// StateInt returns a state value converted to int.
func (r *TestResult) StateInt(key string) int {
	return Int(r.State[key])
}

// HasEffect checks if an effect of the given type was queued.
func (r *TestResult) HasEffect(typ string) bool {
	for _, e := range r.Effects {
		if e.Type == typ {
			return true
		}
	}
	return false
}

// HasFlash checks if a flash with the given level and message was queued.
func (r *TestResult) HasFlash(level, message string) bool {
	for _, e := range r.Effects {
		if e.Type != EffectFlash {
			continue
		}
		data, _ := e.Data.(map[string]any)
		if data["level"] == level && data["message"] == message {
			return true
		}
	}
	return false
}
