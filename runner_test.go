package openwire

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"
)

func testRegistry() *Registry {
	reg := NewRegistry()
	reg.Component("openwire_component/counter", func() Wireable { return newTestCounter() })
	reg.Alias("counter", "openwire_component/counter")
	reg.Component("label", func() Wireable { return newTestLabel() })
	reg.Block("product.price", func() Block {
		return BlockFunc(func(ctx context.Context) (string, error) {
			return `<div class="price">$10.00</div>`, nil
		})
	})
	return reg
}

func mustRequest(t *testing.T, body string) *Request {
	t.Helper()
	req, err := ParseRequest([]byte(body))
	if err != nil {
		t.Fatalf("ParseRequest(%s): %v", body, err)
	}
	return req
}

func fixedClock(rn *Runner) *Runner {
	rn.now = func() time.Time { return time.Unix(1700000000, 0) }
	return rn
}

func TestRunIncrement(t *testing.T) {
	rn := fixedClock(NewRunner(testRegistry()))
	req := mustRequest(t, `{"component":"counter","action":"increment","props":{"count":5}}`)

	resp := rn.Run(context.Background(), req, nil)

	if !resp.OK {
		t.Fatalf("Run failed: %+v", resp.Errors)
	}
	if resp.Mode != ModeHTML {
		t.Errorf("Mode = %q, want %q", resp.Mode, ModeHTML)
	}
	if Int(resp.State["count"]) != 6 {
		t.Errorf("state.count = %v, want 6", resp.State["count"])
	}
	if !strings.Contains(resp.HTMLString(), "<span>6</span>") {
		t.Errorf("html = %q", resp.HTMLString())
	}
	if resp.Data != nil {
		t.Errorf("Data = %v, want nil in html mode", resp.Data)
	}
	if len(resp.Errors) != 0 {
		t.Errorf("Errors = %v, want empty", resp.Errors)
	}
	if resp.Meta["component_id"] != "counter" {
		t.Errorf("meta.component_id = %v, want counter", resp.Meta["component_id"])
	}
	if resp.Meta["timestamp"] != int64(1700000000) {
		t.Errorf("meta.timestamp = %v", resp.Meta["timestamp"])
	}
	if id, _ := resp.Meta["trace_id"].(string); !strings.HasPrefix(id, "trace_") {
		t.Errorf("meta.trace_id = %q, want trace_ prefix", id)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"action not allowed", `{"component":"counter","action":"delete"}`, "Action 'delete' not allowed"},
		{"forbidden method", `{"component":"counter","action":"mount"}`, "Action 'mount' not allowed"},
		{"underscore method", `{"component":"counter","action":"_increment"}`, "Action '_increment' not allowed"},
		{"unknown component", `{"component":"nope"}`, "Component 'nope' not found"},
		{"unknown ref alias", `{"component":"component:nope"}`, "Component 'nope' not found"},
		{"unknown legacy alias", `{"component":"legacy:nope"}`, "Legacy block 'nope' not found"},
		{"unknown ref type", `{"component":"widget:counter"}`, "Unknown component type 'widget'"},
		{"legacy action", `{"component":"legacy:product.price","action":"refresh"}`, "Actions not allowed for legacy blocks"},
		{"bare block action", `{"component":"product.price","action":"load"}`, "Actions not allowed for legacy blocks"},
		{"legacy data mode", `{"component":"legacy:product.price","meta":{"mode_preference":"data"}}`, "Component does not support data mode"},
		{"no data provider", `{"component":"label","meta":{"mode_preference":"data"}}`, "Component does not support data mode"},
		{"handler error", `{"component":"counter","action":"fail"}`, "counter exploded"},
		{"handler panic", `{"component":"counter","action":"boom"}`, "kaboom"},
		{"schema violation", `{"component":"counter","action":"add","payload":["x"]}`, "Invalid payload for action 'add'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rn := fixedClock(NewRunner(testRegistry()))
			resp := rn.Run(context.Background(), mustRequest(t, tt.body), nil)

			if resp.OK {
				t.Fatal("Run succeeded, want failure")
			}
			if len(resp.Errors) != 1 {
				t.Fatalf("Errors = %v, want one entry", resp.Errors)
			}
			if resp.Errors[0].Code != ErrCodeComponent {
				t.Errorf("code = %q, want %q", resp.Errors[0].Code, ErrCodeComponent)
			}
			if !strings.HasPrefix(resp.Errors[0].Message, tt.message) {
				t.Errorf("message = %q, want prefix %q", resp.Errors[0].Message, tt.message)
			}
			if resp.HTML != nil || resp.Data != nil {
				t.Error("html and data should be null on failure")
			}
			if len(resp.State) != 0 {
				t.Errorf("State = %v, want empty", resp.State)
			}
			if resp.Meta["trace_id"] == nil || resp.Meta["timestamp"] != int64(1700000000) {
				t.Errorf("Meta = %v", resp.Meta)
			}
		})
	}
}

func TestRunFailureLogFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil)).With("component", "openwire.runner")
	rn := NewRunner(testRegistry(), WithLogger(logger))

	resp := rn.Run(context.Background(), mustRequest(t, `{"component":"nope","action":"go"}`), nil)
	if resp.OK {
		t.Fatal("Run succeeded for an unknown component")
	}

	line := bytes.TrimSpace(buf.Bytes())
	if n := bytes.Count(line, []byte(`"component":`)); n != 1 {
		t.Errorf("log line has %d component keys, want 1: %s", n, line)
	}
	var record map[string]any
	if err := json.Unmarshal(line, &record); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if record["component"] != "openwire.runner" {
		t.Errorf("component = %v, want openwire.runner", record["component"])
	}
	if record["openwire.component"] != "nope" {
		t.Errorf("openwire.component = %v, want nope", record["openwire.component"])
	}
}

func TestRunEchoesTraceID(t *testing.T) {
	rn := NewRunner(testRegistry())
	for _, body := range []string{
		`{"component":"counter","meta":{"trace_id":"abc"}}`,
		`{"component":"counter","action":"delete","meta":{"trace_id":"abc"}}`,
	} {
		resp := rn.Run(context.Background(), mustRequest(t, body), nil)
		if resp.Meta["trace_id"] != "abc" {
			t.Errorf("%s: trace_id = %v, want abc", body, resp.Meta["trace_id"])
		}
	}
}

func TestRunSkipsMountForMountedInstance(t *testing.T) {
	c := newTestCounter()
	rn := NewRunner(fixedLayout{c})
	req := mustRequest(t, `{"component":"counter","action":"increment","props":{"count":1},"state":{"count":10}}`)

	resp := rn.Run(context.Background(), req, nil)

	if !resp.OK {
		t.Fatalf("Run failed: %+v", resp.Errors)
	}
	if c.mounted != 0 {
		t.Errorf("Mount called %d times, want 0", c.mounted)
	}
	if Int(resp.State["count"]) != 11 {
		t.Errorf("state.count = %v, want 11", resp.State["count"])
	}
	if Int(c.Prop("count")) != 1 {
		t.Error("props should still be stored when mount is skipped")
	}
}

func TestRunMountsWithoutState(t *testing.T) {
	c := newTestCounter()
	rn := NewRunner(fixedLayout{c})

	resp := rn.Run(context.Background(), mustRequest(t, `{"component":"counter","props":{"count":3}}`), nil)

	if !resp.OK {
		t.Fatalf("Run failed: %+v", resp.Errors)
	}
	if c.mounted != 1 {
		t.Errorf("Mount called %d times, want 1", c.mounted)
	}
	if Int(resp.State["count"]) != 3 {
		t.Errorf("state.count = %v, want 3", resp.State["count"])
	}
}

func TestRunExplicitStateWithoutAction(t *testing.T) {
	c := newTestCounter()
	rn := NewRunner(fixedLayout{c})

	resp := rn.Run(context.Background(), mustRequest(t, `{"component":"counter","props":{"count":3},"state":{"count":8}}`), nil)

	if c.mounted != 1 {
		t.Errorf("Mount called %d times, want 1 for a plain render", c.mounted)
	}
	if Int(resp.State["count"]) != 8 {
		t.Errorf("state.count = %v, want hydrated 8", resp.State["count"])
	}
}

func TestRunPersistsStatefulComponents(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()
	rn := NewRunner(testRegistry())

	first := rn.Run(ctx, mustRequest(t, `{"component":"counter","component_id":"ow_1","props":{"count":2}}`), store)
	if !first.OK {
		t.Fatalf("first run failed: %+v", first.Errors)
	}
	if first.Meta["id"] != "ow_1" {
		t.Errorf("meta.id = %v, want ow_1", first.Meta["id"])
	}

	second := rn.Run(ctx, mustRequest(t, `{"component":"counter","component_id":"ow_1","action":"increment"}`), store)
	if !second.OK {
		t.Fatalf("second run failed: %+v", second.Errors)
	}
	if Int(second.State["count"]) != 3 {
		t.Errorf("state.count = %v, want 3 loaded from the store", second.State["count"])
	}

	saved, err := store.Load(ctx, "ow_1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if Int(saved["count"]) != 3 {
		t.Errorf("saved count = %v, want 3", saved["count"])
	}
}

func TestRunDoesNotPersistOnFailure(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()
	if err := store.Save(ctx, "ow_1", map[string]any{"count": 4}); err != nil {
		t.Fatal(err)
	}
	rn := NewRunner(testRegistry())

	resp := rn.Run(ctx, mustRequest(t, `{"component":"counter","component_id":"ow_1","action":"fail"}`), store)
	if resp.OK {
		t.Fatal("Run succeeded, want failure")
	}

	saved, _ := store.Load(ctx, "ow_1")
	if Int(saved["count"]) != 4 {
		t.Errorf("saved count = %v, want untouched 4", saved["count"])
	}
}

func TestRunDataMode(t *testing.T) {
	rn := NewRunner(testRegistry())
	req := mustRequest(t, `{"component":"counter","action":"increment","state":{"count":1},"meta":{"mode_preference":"data"}}`)

	resp := rn.Run(context.Background(), req, nil)

	if !resp.OK {
		t.Fatalf("Run failed: %+v", resp.Errors)
	}
	if resp.Mode != ModeData {
		t.Errorf("Mode = %q, want data", resp.Mode)
	}
	if resp.HTML != nil {
		t.Errorf("HTML = %q, want null", *resp.HTML)
	}
	if resp.Data["count"] != 2 {
		t.Errorf("data.count = %v, want 2", resp.Data["count"])
	}
}

func TestRunInvalidModeFallsBack(t *testing.T) {
	rn := NewRunner(testRegistry())
	resp := rn.Run(context.Background(), mustRequest(t, `{"component":"label","meta":{"mode_preference":"xml"}}`), nil)

	if !resp.OK || resp.Mode != ModeHTML {
		t.Errorf("resp = %+v, want html success", resp)
	}
}

func TestRunLegacyBlock(t *testing.T) {
	rn := NewRunner(testRegistry())

	for _, component := range []string{"legacy:product.price", "product.price", "component:product.price"} {
		resp := rn.Run(context.Background(), mustRequest(t, `{"component":"`+component+`","state":{"x":1}}`), nil)

		if !resp.OK {
			t.Fatalf("%s: Run failed: %+v", component, resp.Errors)
		}
		if resp.HTMLString() != `<div class="price">$10.00</div>` {
			t.Errorf("%s: html = %q", component, resp.HTMLString())
		}
		if len(resp.State) != 0 {
			t.Errorf("%s: state = %v, want empty for legacy", component, resp.State)
		}
	}
}

func TestRunLegacyRefToComponent(t *testing.T) {
	rn := NewRunner(testRegistry())
	resp := rn.Run(context.Background(), mustRequest(t, `{"component":"legacy:label:sidebar:1"}`), nil)

	if !resp.OK {
		t.Fatalf("Run failed: %+v", resp.Errors)
	}
	if resp.Meta["component_id"] != "legacy:label:sidebar:1" {
		t.Errorf("component_id = %v", resp.Meta["component_id"])
	}
	if resp.Meta["id"] != "legacy:label:sidebar:1" {
		t.Errorf("id = %v, want the ref id", resp.Meta["id"])
	}
}

func TestRunPollAndEffectsMeta(t *testing.T) {
	c := newTestCounter()
	c.Poll(2 * time.Second)
	rn := NewRunner(fixedLayout{c})

	resp := rn.Run(context.Background(), mustRequest(t, `{"component":"counter","action":"notify"}`), nil)

	if resp.Meta["pollIntervalMs"] != 2000 {
		t.Errorf("pollIntervalMs = %v, want 2000", resp.Meta["pollIntervalMs"])
	}
	effects, ok := resp.Meta["effects"].([]Effect)
	if !ok || len(effects) != 1 || effects[0].Type != EffectFlash {
		t.Errorf("effects = %v", resp.Meta["effects"])
	}

	plain := NewRunner(testRegistry()).Run(context.Background(), mustRequest(t, `{"component":"label"}`), nil)
	if _, ok := plain.Meta["pollIntervalMs"]; ok {
		t.Error("pollIntervalMs should be absent when not polling")
	}
	if _, ok := plain.Meta["effects"]; ok {
		t.Error("effects should be absent when none are queued")
	}
}

func TestRunStateToken(t *testing.T) {
	sealer, err := NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	rn := NewRunner(testRegistry(), WithSealer(sealer), WithTracer(noop.NewTracerProvider().Tracer("test")))

	first := rn.Run(context.Background(), mustRequest(t, `{"component":"counter","props":{"count":41}}`), nil)
	token, _ := first.Meta["state_token"].(string)
	if token == "" {
		t.Fatalf("meta.state_token missing: %v", first.Meta)
	}

	body, _ := json.Marshal(map[string]any{
		"component": "counter",
		"action":    "increment",
		"meta":      map[string]any{"state_token": token},
	})
	second := rn.Run(context.Background(), mustRequest(t, string(body)), nil)
	if !second.OK {
		t.Fatalf("second run failed: %+v", second.Errors)
	}
	if Int(second.State["count"]) != 42 {
		t.Errorf("state.count = %v, want 42", second.State["count"])
	}

	tampered := rn.Run(context.Background(), mustRequest(t, `{"component":"counter","action":"increment","meta":{"state_token":"AAAA.bogus"}}`), nil)
	if tampered.OK || tampered.Errors[0].Message != "Invalid state token" {
		t.Errorf("tampered token = %+v", tampered.Errors)
	}
}

func TestRunExplicitStateOutranksToken(t *testing.T) {
	sealer, err := NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	rn := NewRunner(testRegistry(), WithSealer(sealer))

	resp := rn.Run(context.Background(), mustRequest(t, `{"component":"counter","action":"increment","state":{"count":99},"meta":{"state_token":"AAAA.bogus"}}`), nil)

	if !resp.OK {
		t.Fatalf("Run failed: %+v", resp.Errors)
	}
	if Int(resp.State["count"]) != 100 {
		t.Errorf("state.count = %v, want 100 from the explicit state", resp.State["count"])
	}
}

func TestRunnerMount(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()
	rn := NewRunner(testRegistry())

	html, err := rn.Mount(ctx, "counter", map[string]any{"count": 9}, store)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if !strings.Contains(html, "<span>9</span>") {
		t.Errorf("html = %q", html)
	}

	if _, err := rn.Mount(ctx, "nope", nil, store); !IsNotFound(err) {
		t.Errorf("Mount(nope) = %v, want not found", err)
	}
	if _, err := rn.Mount(ctx, ":", nil, store); !IsInvalidInput(err) {
		t.Errorf("Mount(:) = %v, want invalid input", err)
	}
}

func TestResponseJSONShape(t *testing.T) {
	rn := NewRunner(testRegistry())
	for _, body := range []string{
		`{"component":"counter"}`,
		`{"component":"counter","action":"delete"}`,
		`{"component":"counter","meta":{"mode_preference":"data"}}`,
	} {
		raw, err := json.Marshal(rn.Run(context.Background(), mustRequest(t, body), nil))
		if err != nil {
			t.Fatal(err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatal(err)
		}
		for _, key := range []string{"ok", "mode", "html", "data", "state", "meta", "errors"} {
			if _, ok := decoded[key]; !ok {
				t.Errorf("%s: key %q missing from %s", body, key, raw)
			}
		}
		if decoded["state"] == nil || decoded["errors"] == nil {
			t.Errorf("%s: state and errors must not be null: %s", body, raw)
		}
	}
}
