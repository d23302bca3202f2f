package client

import (
	"golang.org/x/net/html"
)

// PatchMode names the strategy Patch used to apply response HTML.
type PatchMode string

const (
	// PatchBody replaces the contents of the root's body element
	// (data-openwire-body or data-ow-body).
	PatchBody PatchMode = "body"

	// PatchRoot swaps the root in place: the response is a single new
	// component root, so its attributes and contents replace the old ones.
	// The node itself is kept, along with its place in the document.
	PatchRoot PatchMode = "root"

	// PatchInner replaces the root's contents with the response.
	// This is the fallback.
	PatchInner PatchMode = "inner"
)

// Patcher applies response HTML to a component root.
type Patcher struct{}

// Patch writes src into root and reports the strategy used.
func (Patcher) Patch(root *html.Node, src string) (PatchMode, error) {
	if body := Find(root, func(n *html.Node) bool { return hasAny(n, bodyAttrs) }); body != nil {
		return PatchBody, SetInnerHTML(body, src)
	}

	nodes, err := parseFragment(root, src)
	if err != nil {
		return "", err
	}
	if els := elementChildren(nodes); len(els) == 1 && (HasAttr(els[0], "data-openwire") || HasAttr(els[0], "data-ow-component")) {
		swapRoot(root, els[0])
		return PatchRoot, nil
	}

	return PatchInner, SetInnerHTML(root, src)
}

// swapRoot copies next's attributes and children onto root.
func swapRoot(root, next *html.Node) {
	root.Attr = append(root.Attr[:0], next.Attr...)
	for c := root.FirstChild; c != nil; {
		n := c.NextSibling
		root.RemoveChild(c)
		c = n
	}
	for c := next.FirstChild; c != nil; {
		n := c.NextSibling
		next.RemoveChild(c)
		root.AppendChild(c)
		c = n
	}
}
