package client

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markup contract. Each list is checked in order; the first attribute
// present wins.
var (
	rootAttrs      = []string{"data-ow-id", "data-openwire"}
	idAttrs        = []string{"data-ow-id", "data-openwire-id"}
	componentAttrs = []string{"data-ow-component", "data-openwire-component", "data-openwire"}
	configAttrs    = []string{"data-ow-config", "data-openwire-config"}
	bodyAttrs      = []string{"data-openwire-body", "data-ow-body"}
)

// Attr returns the value of the attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil || n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether n carries the attribute key.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets or replaces the attribute key on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes the attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// firstAttr returns the value of the first present attribute in keys.
func firstAttr(n *html.Node, keys []string) string {
	for _, k := range keys {
		if v, ok := Attr(n, k); ok && v != "" {
			return v
		}
	}
	return ""
}

func hasAny(n *html.Node, keys []string) bool {
	for _, k := range keys {
		if HasAttr(n, k) {
			return true
		}
	}
	return false
}

// Closest returns n or its nearest element ancestor for which match is true.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && match(n) {
			return n
		}
	}
	return nil
}

// FindAll returns every element below n (n excluded) for which match is
// true, in document order.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// Find returns the first element below n for which match is true.
func Find(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := Find(c, match); found != nil {
			return found
		}
	}
	return nil
}

// ByAttr matches elements carrying key.
func ByAttr(key string) func(*html.Node) bool {
	return func(n *html.Node) bool { return HasAttr(n, key) }
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML renders n itself.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// SetInnerHTML replaces the children of n with the parsed fragment.
func SetInnerHTML(n *html.Node, src string) error {
	nodes, err := parseFragment(n, src)
	if err != nil {
		return err
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

func parseFragment(context *html.Node, src string) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	}
	return html.ParseFragment(strings.NewReader(src), context)
}

// elementChildren drops whitespace text and comments.
func elementChildren(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		switch {
		case n.Type == html.ElementNode:
			out = append(out, n)
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) == "":
		case n.Type == html.CommentNode:
		default:
			return nil
		}
	}
	return out
}

// Value returns the current value of a form control. Inputs report their
// value attribute, textareas their text, selects the selected option (or the
// first one).
func Value(n *html.Node) string {
	switch n.DataAtom {
	case atom.Textarea:
		return textContent(n)
	case atom.Select:
		options := FindAll(n, func(o *html.Node) bool { return o.DataAtom == atom.Option })
		for _, o := range options {
			if HasAttr(o, "selected") {
				return optionValue(o)
			}
		}
		if len(options) > 0 {
			return optionValue(options[0])
		}
		return ""
	}
	v, _ := Attr(n, "value")
	return v
}

// SetValue sets the value a later Value call reports, the way a user typing
// into the control would.
func SetValue(n *html.Node, v string) {
	switch n.DataAtom {
	case atom.Textarea:
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: v})
	case atom.Select:
		for _, o := range FindAll(n, func(o *html.Node) bool { return o.DataAtom == atom.Option }) {
			RemoveAttr(o, "selected")
			if optionValue(o) == v {
				SetAttr(o, "selected", "")
			}
		}
	default:
		SetAttr(n, "value", v)
	}
}

func optionValue(o *html.Node) string {
	if v, ok := Attr(o, "value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(o))
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// FormFields collects the named, enabled controls of form the way FormData
// does: unchecked checkboxes and radios are skipped, and a later field with
// the same name wins.
func FormFields(form *html.Node) map[string]any {
	fields := map[string]any{}
	controls := FindAll(form, func(n *html.Node) bool {
		switch n.DataAtom {
		case atom.Input, atom.Select, atom.Textarea:
			return true
		}
		return false
	})
	for _, n := range controls {
		name, ok := Attr(n, "name")
		if !ok || name == "" || HasAttr(n, "disabled") {
			continue
		}
		if n.DataAtom == atom.Input {
			typ, _ := Attr(n, "type")
			switch strings.ToLower(typ) {
			case "checkbox", "radio":
				if !HasAttr(n, "checked") {
					continue
				}
				if _, ok := Attr(n, "value"); !ok {
					fields[name] = "on"
					continue
				}
			case "submit", "button", "reset", "file", "image":
				continue
			}
		}
		fields[name] = Value(n)
	}
	return fields
}
