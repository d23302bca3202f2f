// Package template compiles OpenWire template directives into the markup the
// client runtime consumes.
//
// Three directives are recognised, applied in this order:
//
//	@click="increment"     -> data-ow:click="increment"
//	{{ count }}            -> HTML-escaped component value
//	openwire="counter"     -> data-ow-component, data-ow-id, data-ow-config, x-data
//
// Compilation never fails. Malformed directives are left as they are and
// unknown identifiers render as the empty string.
package template

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/dlclark/regexp2"
)

// Component is the compiler's view of a component: its current data values
// and its configuration snapshot.
type Component interface {
	Value(key string) (any, bool)
	Config() Config
}

// Config is the snapshot embedded in data-ow-config on a component root.
type Config struct {
	Component      string `json:"component"`
	ID             string `json:"id"`
	Stateful       bool   `json:"stateful"`
	PollIntervalMs *int   `json:"pollIntervalMs"`
	// InitialState is only set for stateful components.
	InitialState any `json:"initialState,omitempty"`
}

// JSON encodes the config compactly for a single-quoted attribute.
func (c Config) JSON() string {
	data, err := json.Marshal(c)
	if err != nil {
		// Unencodable state still yields a usable root.
		c.InitialState = nil
		data, _ = json.Marshal(c)
	}
	return strings.ReplaceAll(string(data), "'", `\u0027`)
}

// Backreferences and lookarounds need regexp2; RE2 supports neither.
var (
	eventPattern    = mustCompile(`@([A-Za-z0-9_]+)\s*=\s*(["'])((?:(?!\2)[\s\S])*)\2`)
	mustachePattern = mustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)
	rootPattern     = mustCompile(`\s*(?<![\w:-])openwire\s*=\s*(["'])((?:(?!\1)[\s\S])+)\1`)
)

func mustCompile(expr string) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, regexp2.None)
	re.MatchTimeout = time.Second
	return re
}

// Compile runs the directive transforms over src.
// With a nil component only the event transform runs.
func Compile(src string, c Component) string {
	out := compileEvents(src)
	if c == nil {
		return out
	}
	out = compileMustache(out, c)
	return compileRoot(out, c)
}

// CompileDirectives runs the event and root transforms but leaves {{ }}
// untouched, for markup that is not rendered from component data.
func CompileDirectives(src string, c Component) string {
	out := compileEvents(src)
	if c == nil {
		return out
	}
	return compileRoot(out, c)
}

// Compiled wraps Compile as a templ component.
//
//	@template.Compiled(src, counter)
func Compiled(src string, c Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, Compile(src, c))
		return err
	})
}

func compileEvents(src string) string {
	return replace(eventPattern, src, func(m regexp2.Match) string {
		event := m.GroupByNumber(1).String()
		action := m.GroupByNumber(3).String()
		return fmt.Sprintf(`data-ow:%s="%s"`, event, action)
	})
}

func compileMustache(src string, c Component) string {
	return replace(mustachePattern, src, func(m regexp2.Match) string {
		v, ok := c.Value(m.GroupByNumber(1).String())
		if !ok {
			return ""
		}
		return html.EscapeString(Stringify(v))
	})
}

func compileRoot(src string, c Component) string {
	return replace(rootPattern, src, func(m regexp2.Match) string {
		cfg := c.Config()
		return fmt.Sprintf(` data-ow-component="%s" data-ow-id="%s" data-ow-config='%s' x-data="{}"`,
			html.EscapeString(cfg.Component), html.EscapeString(cfg.ID), cfg.JSON())
	})
}

// replace applies fn to every match. A timed out match leaves src unchanged.
func replace(re *regexp2.Regexp, src string, fn regexp2.MatchEvaluator) string {
	out, err := re.ReplaceFunc(src, fn, -1, -1)
	if err != nil {
		return src
	}
	return out
}

// Stringify renders a data value as template text.
// Numbers use their shortest form, so 6.0 renders as "6".
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
