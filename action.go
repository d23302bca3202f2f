package openwire

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/templ"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Params are the positional arguments of an action call, decoded from JSON.
type Params []any

// Len returns the number of arguments.
func (p Params) Len() int {
	return len(p)
}

// At returns argument i, or nil when out of range.
func (p Params) At(i int) any {
	if i < 0 || i >= len(p) {
		return nil
	}
	return p[i]
}

// String returns argument i as a string, or "".
func (p Params) String(i int) string {
	s, _ := p.At(i).(string)
	return s
}

// Int returns argument i converted to int, or 0.
func (p Params) Int(i int) int {
	return Int(p.At(i))
}

// Map returns argument i as an object, or nil.
func (p Params) Map(i int) map[string]any {
	m, _ := p.At(i).(map[string]any)
	return m
}

// actionHandler is the normalized form of every supported handler signature.
type actionHandler func(ctx context.Context, p Params) error

// actionDef holds metadata about a registered action.
type actionDef struct {
	name    string
	handler actionHandler
	schema  *jsonschema.Schema
}

// Action registers a named action handler. Only registered actions can be
// called by clients; the table is the component's allowlist.
//
// Handler signatures are auto-detected and can be:
//   - func(ctx context.Context) error
//   - func(ctx context.Context, p openwire.Params) error
//
// Registration panics on a name rejected by ActionPolicy.IsValidMethod, on a
// duplicate name, or on an unsupported handler type.
//
//	c.Action("increment", c.increment)
//	c.Action("rename", c.rename).Schema(`{"type":"array","prefixItems":[{"type":"string"}]}`)
func (c *Component) Action(name string, handler any) *ActionBuilder {
	if !(ActionPolicy{}).IsValidMethod(name) {
		panic(fmt.Sprintf("openwire: %s: %q cannot be registered as an action", c.alias, name))
	}
	if _, exists := c.actions[name]; exists {
		panic(fmt.Sprintf("openwire: %s: action %q registered twice", c.alias, name))
	}

	var h actionHandler
	switch fn := handler.(type) {
	case func(context.Context) error:
		h = func(ctx context.Context, _ Params) error { return fn(ctx) }
	case func(context.Context, Params) error:
		h = fn
	default:
		panic(fmt.Sprintf("openwire: %s: action %q has unsupported handler type %T", c.alias, name, handler))
	}

	def := &actionDef{name: name, handler: h}
	c.actions[name] = def
	c.order = append(c.order, name)
	return &ActionBuilder{component: c, action: def}
}

// AllowedActions returns the registered action names in registration order.
func (c *Component) AllowedActions() []string {
	return append([]string(nil), c.order...)
}

// ActionSchema attaches a JSON schema to a registered action. The call's
// params array is validated against it before the handler runs. Panics if the
// action is unknown or the schema does not compile.
func (c *Component) ActionSchema(name, schema string) {
	def, ok := c.actions[name]
	if !ok {
		panic(fmt.Sprintf("openwire: %s: schema for unknown action %q", c.alias, name))
	}
	compiled, err := compileSchema(c.alias, name, schema)
	if err != nil {
		panic(fmt.Sprintf("openwire: %s: %v", c.alias, err))
	}
	def.schema = compiled
}

func compileSchema(alias, action, schema string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://openwire.schemas.local/%s/%s.schema.json",
		strings.NewReplacer("/", "_", ":", "_").Replace(alias), action)
	if err := compiler.AddResource(url, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("schema for %q failed to load: %w", action, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema for %q failed to compile: %w", action, err)
	}
	return compiled, nil
}

// validateParams checks the positional params against the action's schema,
// if any. The schema sees them as a JSON array.
func (c *Component) validateParams(name string, p Params) error {
	def, ok := c.actions[name]
	if !ok || def.schema == nil {
		return nil
	}
	if p == nil {
		p = Params{}
	}
	if err := def.schema.Validate([]any(p)); err != nil {
		return invalidInput("Invalid payload for action '%s': %v", name, err)
	}
	return nil
}

// call runs a registered action.
func (c *Component) call(ctx context.Context, name string, params Params) error {
	def, ok := c.actions[name]
	if !ok {
		return forbidden("Action '%s' not allowed", name)
	}
	if params == nil {
		params = Params{}
	}
	return def.handler(ctx, params)
}

// ActionBuilder configures a registered action.
type ActionBuilder struct {
	component *Component
	action    *actionDef
}

// Schema attaches a JSON schema for the action's payload.
// See Component.ActionSchema.
func (ab *ActionBuilder) Schema(schema string) *ActionBuilder {
	ab.component.ActionSchema(ab.action.name, schema)
	return ab
}

// On builds the event binding attribute for templ templates.
//
//	<button { openwire.On("click", "increment")... }>+</button>
func On(event, action string) templ.Attributes {
	return templ.Attributes{"data-ow:" + event: action}
}

// RootAttrs builds the component root attributes for templ templates: the
// same four attributes the root directive compiles to.
//
//	<div { openwire.RootAttrs(c)... }>
func RootAttrs(w Wireable) templ.Attributes {
	cfg := w.Base().Config()
	return templ.Attributes{
		"data-ow-component": cfg.Component,
		"data-ow-id":        cfg.ID,
		"data-ow-config":    cfg.JSON(),
		"x-data":            "{}",
	}
}

// BodyAttrs marks the element whose content replaces on update, leaving the
// rest of the root untouched.
func BodyAttrs() templ.Attributes {
	return templ.Attributes{"data-ow-body": true}
}
