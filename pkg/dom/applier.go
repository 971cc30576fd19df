package dom

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/minimact-dev/minimact/pkg/vdom"
)

// preservedAttrPrefix marks runtime-owned attributes that UpdateProps
// must never strip.
const preservedAttrPrefix = "data-minimact-"

// Applier applies patch batches to a live tree.
type Applier struct {
	logger *slog.Logger
}

// NewApplier creates an applier. A nil logger falls back to
// slog.Default().
func NewApplier(logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{logger: logger}
}

// Apply applies patches in order against root. A patch that cannot be
// applied is logged and skipped; the rest of the batch continues.
// Returns the number of patches applied.
func (a *Applier) Apply(root *html.Node, patches []vdom.Patch) int {
	applied := 0
	for i := range patches {
		if a.applyOne(root, &patches[i]) {
			applied++
		}
	}
	return applied
}

// applyOne applies a single patch, recovering from any panic so one
// bad patch cannot abort the batch.
func (a *Applier) applyOne(root *html.Node, p *vdom.Patch) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("patch apply panic", "op", string(p.Op), "path", p.Path.String(), "panic", r)
			ok = false
		}
	}()

	if p.IsTemplate() {
		a.logger.Warn("unmaterialized template patch skipped", "op", string(p.Op), "path", p.Path.String())
		return false
	}

	switch p.Op {
	case vdom.OpCreate:
		return a.applyCreate(root, p)

	case vdom.OpRemove:
		target := WalkPath(root, p.Path)
		if target == nil {
			return a.unresolved(p)
		}
		Detach(target)
		return true

	case vdom.OpReplace:
		target := WalkPath(root, p.Path)
		if target == nil {
			return a.unresolved(p)
		}
		nodes := Materialize(p.Node)
		if len(nodes) == 0 {
			a.logger.Warn("replace with empty node", "path", p.Path.String())
			return false
		}
		parent := target.Parent
		if parent == nil {
			return a.unresolved(p)
		}
		for _, n := range nodes {
			parent.InsertBefore(n, target)
		}
		parent.RemoveChild(target)
		return true

	case vdom.OpUpdateText:
		target := WalkPath(root, p.Path)
		if target == nil {
			return a.unresolved(p)
		}
		SetText(target, p.Content)
		return true

	case vdom.OpUpdateProps:
		target := WalkPath(root, p.Path)
		if target == nil || target.Type != html.ElementNode {
			return a.unresolved(p)
		}
		a.updateProps(target, p.Props)
		return true

	case vdom.OpReorderChildren:
		target := WalkPath(root, p.Path)
		if target == nil {
			return a.unresolved(p)
		}
		a.reorderChildren(target, p.KeyOrder)
		return true

	default:
		a.logger.Warn("unknown patch op", "op", string(p.Op))
		return false
	}
}

// applyCreate inserts a materialized node. The final path index is the
// insertion position within the parent addressed by the prefix. The
// empty path replaces the root's content.
func (a *Applier) applyCreate(root *html.Node, p *vdom.Patch) bool {
	nodes := Materialize(p.Node)
	if len(nodes) == 0 {
		a.logger.Warn("create with empty node", "path", p.Path.String())
		return false
	}

	if len(p.Path) == 0 {
		RemoveChildren(root)
		for _, n := range nodes {
			root.AppendChild(n)
		}
		return true
	}

	parent := WalkPath(root, p.Path.Parent())
	if parent == nil {
		return a.unresolved(p)
	}
	idx := p.Path.Last()
	for i, n := range nodes {
		InsertChildAt(parent, n, idx+i)
	}
	return true
}

// updateProps replaces the attribute set, preserving runtime-owned
// data-minimact-* attributes and anything named in the new props.
func (a *Applier) updateProps(target *html.Node, props map[string]string) {
	keep := make(map[string]bool, len(props))
	for name := range props {
		keep[effectiveAttrName(name)] = true
	}

	var stale []string
	for _, attr := range target.Attr {
		if strings.HasPrefix(attr.Key, preservedAttrPrefix) {
			continue
		}
		if !keep[attr.Key] {
			stale = append(stale, attr.Key)
		}
	}
	for _, name := range stale {
		RemoveAttr(target, name)
	}

	for name, value := range props {
		SetProp(target, name, value)
	}
}

// effectiveAttrName maps a virtual prop name to the attribute it
// lands on, mirroring SetProp.
func effectiveAttrName(name string) string {
	switch {
	case name == "className" || name == "class":
		return "class"
	case name == "key":
		return "data-key"
	case isEventProp(name):
		return "data-on" + strings.ToLower(name[2:])
	}
	return name
}

// reorderChildren moves keyed element children into the requested
// order. Keys missing from the DOM leave their position untouched.
func (a *Applier) reorderChildren(target *html.Node, keyOrder []string) {
	byKey := make(map[string]*html.Node)
	for _, child := range ElementChildren(target) {
		if k := NodeKey(child); k != "" {
			byKey[k] = child
		}
	}

	for i, key := range keyOrder {
		want, ok := byKey[key]
		if !ok {
			continue
		}
		children := ElementChildren(target)
		if i < len(children) && children[i] == want {
			continue
		}
		Detach(want)
		children = ElementChildren(target)
		if i >= len(children) {
			target.AppendChild(want)
			continue
		}
		target.InsertBefore(want, children[i])
	}
}

// unresolved logs a skipped patch whose target path cannot be walked.
func (a *Applier) unresolved(p *vdom.Patch) bool {
	a.logger.Warn("patch target not resolved", "op", string(p.Op), "path", p.Path.String())
	return false
}

// ReplaceHTML replaces the entire content of root with the given
// markup. Used when the server serves a whole-component replacement.
func (a *Applier) ReplaceHTML(root *html.Node, markup string) error {
	return SetInnerHTML(root, markup)
}
