package dom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/minimact-dev/minimact/pkg/vdom"
)

// SetProp sets a single virtual prop on an element using the markup
// conventions: className/class map to the class attribute, on<Event>
// props mirror to data-on<event> so the delegation layer can dispatch,
// and key mirrors to data-key.
func SetProp(n *html.Node, name, value string) {
	switch {
	case name == "className" || name == "class":
		SetAttr(n, "class", value)
	case name == "key":
		SetAttr(n, "data-key", value)
	case isEventProp(name):
		SetAttr(n, "data-on"+strings.ToLower(name[2:]), value)
	default:
		SetAttr(n, name, value)
	}
}

// isEventProp reports whether a prop names an event handler
// (onClick, oninput, ...).
func isEventProp(name string) bool {
	return len(name) > 2 && strings.HasPrefix(name, "on")
}

// Materialize converts a virtual node into live nodes. Elements and
// text yield one node; fragments yield their children in order; raw
// HTML yields a wrapper element holding the parsed payload.
func Materialize(v *vdom.VNode) []*html.Node {
	if v == nil {
		return nil
	}

	switch v.Kind {
	case vdom.KindElement:
		n := NewElement(v.Tag)
		for name, value := range v.Props {
			SetProp(n, name, value)
		}
		if v.Key != "" && !HasAttr(n, "data-key") {
			SetAttr(n, "data-key", v.Key)
		}
		for _, child := range v.Children {
			for _, cn := range Materialize(child) {
				n.AppendChild(cn)
			}
		}
		return []*html.Node{n}

	case vdom.KindText:
		return []*html.Node{NewTextNode(v.Text)}

	case vdom.KindFragment:
		var out []*html.Node
		for _, child := range v.Children {
			out = append(out, Materialize(child)...)
		}
		return out

	case vdom.KindRaw:
		wrapper := NewElement("div")
		if err := SetInnerHTML(wrapper, v.Text); err != nil {
			return nil
		}
		return []*html.Node{wrapper}
	}
	return nil
}

// MaterializeOne materializes a node expected to yield exactly one
// live node, returning nil otherwise.
func MaterializeOne(v *vdom.VNode) *html.Node {
	nodes := Materialize(v)
	if len(nodes) != 1 {
		return nil
	}
	return nodes[0]
}
