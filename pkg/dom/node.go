package dom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/minimact-dev/minimact/pkg/vdom"
)

// Children returns the addressable child nodes: elements and text,
// skipping comments and doctypes. Patch paths index into this list.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode || c.Type == html.TextNode {
			out = append(out, c)
		}
	}
	return out
}

// ChildAt returns the addressable child at index i, or nil.
func ChildAt(n *html.Node, i int) *html.Node {
	if i < 0 {
		return nil
	}
	idx := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode && c.Type != html.TextNode {
			continue
		}
		if idx == i {
			return c
		}
		idx++
	}
	return nil
}

// ElementChildren returns only the element children.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// FirstElementChild returns the first element child, or nil.
func FirstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// WalkPath descends from root by child indices. Returns nil if any
// index cannot be resolved. The empty path returns root.
func WalkPath(root *html.Node, path vdom.Path) *html.Node {
	n := root
	for _, idx := range path {
		if n == nil {
			return nil
		}
		n = ChildAt(n, idx)
	}
	return n
}

// GetAttr returns the value of the named attribute and whether it is
// present.
func GetAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func HasAttr(n *html.Node, name string) bool {
	_, ok := GetAttr(n, name)
	return ok
}

// SetAttr sets or replaces the named attribute.
func SetAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr removes the named attribute if present.
func RemoveAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// InsertChildAt inserts child among the addressable children of
// parent at index i, appending when i is past the end.
func InsertChildAt(parent, child *html.Node, i int) {
	Detach(child)
	ref := ChildAt(parent, i)
	if ref == nil {
		parent.AppendChild(child)
		return
	}
	parent.InsertBefore(child, ref)
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// ReplaceNode swaps old for new within old's parent.
func ReplaceNode(old, repl *html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	Detach(repl)
	parent.InsertBefore(repl, old)
	parent.RemoveChild(old)
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// SetText applies textContent semantics: a text target's data is
// replaced; an element target's children are replaced with a single
// text node.
func SetText(n *html.Node, content string) {
	if n.Type == html.TextNode {
		n.Data = content
		return
	}
	RemoveChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: content})
}

// TextContent returns the concatenated text of n and its descendants.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return b.String()
}

// NodeKey returns the reconciliation key of an element: data-key,
// falling back to the legacy key attribute.
func NodeKey(n *html.Node) string {
	if v, ok := GetAttr(n, "data-key"); ok {
		return v
	}
	v, _ := GetAttr(n, "key")
	return v
}

// Closest walks n and its ancestors for the first element carrying
// the named attribute, returning the element and the value.
func Closest(n *html.Node, attr string) (*html.Node, string) {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if v, ok := GetAttr(cur, attr); ok {
			return cur, v
		}
	}
	return nil, ""
}
