package demo

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/pthm/openwire"
)

// TodoAlias is the layout alias of the todo list.
const TodoAlias = "openwire_component/todo"

// Todo filters.
const (
	FilterAll  = "all"
	FilterOpen = "open"
	FilterDone = "done"
)

// Todo is one item of the list.
type Todo struct {
	Title string
	Done  bool
}

// TodoList is a stateful list exercising submit, change and input events.
// Items live in the component state as a list of {title, done} maps.
type TodoList struct {
	*openwire.Component
}

// NewTodoList creates a TodoList.
func NewTodoList() *TodoList {
	c := &TodoList{Component: openwire.New(TodoAlias).Stateful()}
	c.Action("add", c.add).Schema(`{
		"type": "array",
		"minItems": 1,
		"prefixItems": [{
			"type": "object",
			"required": ["title"],
			"properties": {"title": {"type": "string", "minLength": 1, "maxLength": 200}}
		}]
	}`)
	c.Action("toggle", c.toggle).Schema(`{"type":"array","minItems":1,"prefixItems":[{"type":"string","pattern":"^[0-9]+$"}]}`)
	c.Action("filter", c.filter).Schema(`{"type":"array","minItems":1,"prefixItems":[{"enum":["all","open","done"]}]}`)
	c.Action("search", c.search).Schema(`{"type":"array","prefixItems":[{"type":"string","maxLength":100}]}`)
	c.Action("clear", c.clear)
	return c
}

// Mount seeds the list from props.items, a list of titles.
func (c *TodoList) Mount(ctx context.Context, props map[string]any) error {
	var todos []Todo
	if titles, ok := props["items"].([]any); ok {
		for _, t := range titles {
			if s, ok := t.(string); ok && s != "" {
				todos = append(todos, Todo{Title: s})
			}
		}
	}
	c.save(todos)
	c.Set("filter", FilterAll)
	c.Set("query", "")
	return nil
}

// Todos returns the items in the component state.
func (c *TodoList) Todos() []Todo {
	raw, _ := c.Get("items").([]any)
	todos := make([]Todo, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title, _ := m["title"].(string)
		done, _ := m["done"].(bool)
		todos = append(todos, Todo{Title: title, Done: done})
	}
	return todos
}

func (c *TodoList) save(todos []Todo) {
	items := make([]any, 0, len(todos))
	for _, t := range todos {
		items = append(items, map[string]any{"title": t.Title, "done": t.Done})
	}
	c.Set("items", items)
}

func (c *TodoList) add(ctx context.Context, p openwire.Params) error {
	title, _ := p.Map(0)["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return openwire.Errorf(openwire.ErrInvalidInput, "Title is required")
	}
	c.save(append(c.Todos(), Todo{Title: title}))
	c.Flash(openwire.FlashSuccess, "Added "+title)
	return nil
}

func (c *TodoList) toggle(ctx context.Context, p openwire.Params) error {
	todos := c.Todos()
	i := p.Int(0)
	if i < 0 || i >= len(todos) {
		return openwire.Errorf(openwire.ErrNotFound, "No item %d", i)
	}
	todos[i].Done = !todos[i].Done
	c.save(todos)
	return nil
}

func (c *TodoList) filter(ctx context.Context, p openwire.Params) error {
	c.Set("filter", p.String(0))
	return nil
}

func (c *TodoList) search(ctx context.Context, p openwire.Params) error {
	c.Set("query", p.String(0))
	return nil
}

func (c *TodoList) clear(ctx context.Context) error {
	var open []Todo
	for _, t := range c.Todos() {
		if !t.Done {
			open = append(open, t)
		}
	}
	c.save(open)
	return nil
}

// visible reports whether t passes the current filter and search query.
func (c *TodoList) visible(t Todo) bool {
	switch c.Text("filter") {
	case FilterOpen:
		if t.Done {
			return false
		}
	case FilterDone:
		if !t.Done {
			return false
		}
	}
	q := strings.ToLower(c.Text("query"))
	return q == "" || strings.Contains(strings.ToLower(t.Title), q)
}

// DataPayload answers data mode requests.
func (c *TodoList) DataPayload(ctx context.Context) (map[string]any, error) {
	var items []map[string]any
	for i, t := range c.Todos() {
		if c.visible(t) {
			items = append(items, map[string]any{"index": i, "title": t.Title, "done": t.Done})
		}
	}
	return map[string]any{"items": items, "filter": c.Text("filter"), "query": c.Text("query")}, nil
}

// Render renders the list. Item titles are user input, so the markup is
// written directly instead of going through the directive compiler.
func (c *TodoList) Render(ctx context.Context) (string, error) {
	return openwire.RenderTempl(ctx, c.view())
}

func (c *TodoList) view() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		cfg := c.Config()
		var b strings.Builder
		fmt.Fprintf(&b, `<div class="todo" data-ow-component="%s" data-ow-id="%s" data-ow-config='%s' x-data="{}">`,
			templ.EscapeString(cfg.Component), templ.EscapeString(cfg.ID), cfg.JSON())
		b.WriteString(`<form data-ow:submit="add"><input name="title" placeholder="What needs doing?"><button>Add</button></form>`)
		fmt.Fprintf(&b, `<input type="search" name="q" value="%s" data-ow:input="search">`, templ.EscapeString(c.Text("query")))
		b.WriteString(`<select name="filter" data-ow:change="filter">`)
		for _, f := range []string{FilterAll, FilterOpen, FilterDone} {
			selected := ""
			if f == c.Text("filter") {
				selected = " selected"
			}
			fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`, f, selected, f)
		}
		b.WriteString(`</select><ul data-ow-body>`)
		open := 0
		for i, t := range c.Todos() {
			if !t.Done {
				open++
			}
			if !c.visible(t) {
				continue
			}
			checked := ""
			if t.Done {
				checked = " checked"
			}
			fmt.Fprintf(&b, `<li><input type="checkbox" value="%d" data-ow:change="toggle"%s> %s</li>`, i, checked, templ.EscapeString(t.Title))
		}
		fmt.Fprintf(&b, `</ul><p><span class="open">%d</span> open <button data-ow:click="clear">Clear done</button></p></div>`, open)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
