package template

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

type fakeComponent struct {
	values map[string]any
	config Config
}

func (f *fakeComponent) Value(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeComponent) Config() Config {
	return f.config
}

func counter(count any) *fakeComponent {
	return &fakeComponent{
		values: map[string]any{"count": count},
		config: Config{
			Component: "openwire_component/counter",
			ID:        "ow_1",
			Stateful:  true,
			InitialState: map[string]any{
				"count": count,
			},
		},
	}
}

func TestCompileEvents(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "double quoted",
			src:  `<button @click="inc">+</button>`,
			want: `<button data-ow:click="inc">+</button>`,
		},
		{
			name: "single quoted re-emitted double quoted",
			src:  `<input @change='setName'>`,
			want: `<input data-ow:change="setName">`,
		},
		{
			name: "whitespace around equals",
			src:  `<form @submit = "save">`,
			want: `<form data-ow:submit="save">`,
		},
		{
			name: "other quote style inside action",
			src:  `<a @click='say("hi")'>`,
			want: `<a data-ow:click="say("hi")">`,
		},
		{
			name: "several events",
			src:  `<b @click="a"></b><i @input="b"></i>`,
			want: `<b data-ow:click="a"></b><i data-ow:input="b"></i>`,
		},
		{
			name: "unterminated left untouched",
			src:  `<button @click="inc>+</button>`,
			want: `<button @click="inc>+</button>`,
		},
		{
			name: "mismatched quotes left untouched",
			src:  `<button @click="inc'>+</button>`,
			want: `<button @click="inc'>+</button>`,
		},
		{
			name: "no directives",
			src:  `<p>plain</p>`,
			want: `<p>plain</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compile(tt.src, nil)
			if got != tt.want {
				t.Errorf("Compile(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestCompileButtonRoundTrip(t *testing.T) {
	got := Compile(`<button @click="inc">+</button>`, nil)

	if !strings.Contains(got, `data-ow:click="inc"`) {
		t.Errorf("output %q missing data-ow:click", got)
	}
	if strings.Contains(got, `@click="inc"`) {
		t.Errorf("output %q still contains @click", got)
	}
}

func TestCompileWithoutComponentSkipsDataTransforms(t *testing.T) {
	src := `<div openwire="counter">{{ count }}</div>`
	got := Compile(src, nil)
	if got != src {
		t.Errorf("Compile(nil component) = %q, want unchanged %q", got, src)
	}
}

func TestCompileDirectivesKeepsMustache(t *testing.T) {
	src := `<div openwire="counter"><button @click="increment">+</button><script type="text/x-template">{{ count }}</script></div>`
	got := CompileDirectives(src, counter(3))

	for _, want := range []string{`data-ow-id="ow_1"`, `data-ow:click="increment"`, `{{ count }}`} {
		if !strings.Contains(got, want) {
			t.Errorf("CompileDirectives() missing %q:\n%s", want, got)
		}
	}
}

func TestCompileMustache(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		value any
		want  string
	}{
		{"integer", `<span>{{ count }}</span>`, 6, `<span>6</span>`},
		{"whole float", `<span>{{count}}</span>`, 6.0, `<span>6</span>`},
		{"fraction", `<span>{{   count   }}</span>`, 2.5, `<span>2.5</span>`},
		{"bool", `<span>{{ count }}</span>`, true, `<span>true</span>`},
		{"nil", `<span>{{ count }}</span>`, nil, `<span></span>`},
		{"quotes", `<span>{{ count }}</span>`, `"it's"`, `<span>&#34;it&#39;s&#34;</span>`},
		{"array as json", `<span>{{ count }}</span>`, []any{1, 2}, `<span>[1,2]</span>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compile(tt.src, counter(tt.value))
			if got != tt.want {
				t.Errorf("Compile(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestCompileMustacheMissingKey(t *testing.T) {
	got := Compile(`<span>{{ missing }}</span>`, counter(1))
	if got != `<span></span>` {
		t.Errorf("missing key = %q, want empty interpolation", got)
	}
}

func TestCompileMustacheEscapesScript(t *testing.T) {
	c := &fakeComponent{values: map[string]any{"x": "<script>alert(1)</script>"}}
	got := Compile(`<p>{{ x }}</p>`, c)

	if strings.Contains(got, "<script>") {
		t.Errorf("output %q contains a literal script tag", got)
	}
	if !strings.Contains(got, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Errorf("output %q missing escaped script", got)
	}
}

func TestCompileRoot(t *testing.T) {
	got := Compile(`<div openwire="counter"><span>{{ count }}</span></div>`, counter(5))

	for _, want := range []string{
		`data-ow-component="openwire_component/counter"`,
		`data-ow-id="ow_1"`,
		`x-data="{}"`,
		`<span>5</span>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
	if strings.Contains(got, `openwire="counter"`) {
		t.Errorf("output %q still contains the root directive", got)
	}
}

func TestCompileRootAttributeOrder(t *testing.T) {
	got := Compile(`<div openwire='counter'>x</div>`, counter(1))

	order := []string{"data-ow-component=", "data-ow-id=", "data-ow-config=", "x-data="}
	last := -1
	for _, attr := range order {
		idx := strings.Index(got, attr)
		if idx <= last {
			t.Fatalf("attribute %q out of order in %q", attr, got)
		}
		last = idx
	}
	if !strings.HasPrefix(got, `<div data-ow-component=`) {
		t.Errorf("output %q should keep a single separating space", got)
	}
}

func TestCompileRootConfig(t *testing.T) {
	c := counter(5)
	c.config.InitialState = map[string]any{"count": 5, "label": "it's"}
	got := Compile(`<div openwire="counter"></div>`, c)

	start := strings.Index(got, `data-ow-config='`)
	if start < 0 {
		t.Fatalf("output %q missing data-ow-config", got)
	}
	rest := got[start+len(`data-ow-config='`):]
	raw := rest[:strings.Index(rest, `'`)]

	var cfg map[string]any
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("config %q is not JSON: %v", raw, err)
	}
	if cfg["component"] != "openwire_component/counter" {
		t.Errorf("component = %v", cfg["component"])
	}
	if cfg["id"] != "ow_1" {
		t.Errorf("id = %v", cfg["id"])
	}
	if cfg["stateful"] != true {
		t.Errorf("stateful = %v, want true", cfg["stateful"])
	}
	if v, ok := cfg["pollIntervalMs"]; !ok || v != nil {
		t.Errorf("pollIntervalMs = %v (present %v), want null", v, ok)
	}
	state, ok := cfg["initialState"].(map[string]any)
	if !ok || state["label"] != "it's" {
		t.Errorf("initialState = %v, want label preserved", cfg["initialState"])
	}
}

func TestCompileRootStatelessOmitsInitialState(t *testing.T) {
	interval := 5000
	c := &fakeComponent{config: Config{Component: "clock", ID: "ow_2", PollIntervalMs: &interval}}
	got := Compile(`<div openwire="clock"></div>`, c)

	if strings.Contains(got, "initialState") {
		t.Errorf("stateless output %q should not carry initialState", got)
	}
	if !strings.Contains(got, `"pollIntervalMs":5000`) {
		t.Errorf("output %q missing poll interval", got)
	}
}

func TestCompileRootIgnoresPrefixedAttributes(t *testing.T) {
	src := `<div data-openwire="counter" x-openwire:click="a"></div>`
	got := Compile(src, counter(1))
	if got != src {
		t.Errorf("Compile(%q) = %q, want unchanged", src, got)
	}
}

func TestCompiledTempl(t *testing.T) {
	var buf bytes.Buffer
	err := Compiled(`<div openwire="counter"><button @click="increment">{{ count }}</button></div>`, counter(3)).
		Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, `data-ow:click="increment"`) || !strings.Contains(got, ">3</button>") {
		t.Errorf("rendered %q", got)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"false", false, "false"},
		{"int64", int64(-4), "-4"},
		{"uint8", uint8(7), "7"},
		{"float", 0.1, "0.1"},
		{"large float", 1e6, "1000000"},
		{"json number", json.Number("12"), "12"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stringify(tt.in); got != tt.want {
				t.Errorf("Stringify(%#v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
