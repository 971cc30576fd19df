package component

import (
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/minimact-dev/minimact/pkg/dom"
)

// Registry tracks mounted components by id, in hydration order.
type Registry struct {
	byID  map[string]*Context
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Context)}
}

// Add registers a context, replacing any previous mount with the same
// id.
func (r *Registry) Add(ctx *Context) {
	if _, exists := r.byID[ctx.ID]; !exists {
		r.order = append(r.order, ctx.ID)
	}
	r.byID[ctx.ID] = ctx
}

// Get returns the context for an id, or nil.
func (r *Registry) Get(id string) *Context {
	return r.byID[id]
}

// All returns the mounted contexts in hydration order.
func (r *Registry) All() []*Context {
	out := make([]*Context, 0, len(r.order))
	for _, id := range r.order {
		if ctx, ok := r.byID[id]; ok {
			out = append(out, ctx)
		}
	}
	return out
}

// Remove detaches and forgets a component.
func (r *Registry) Remove(id string) {
	ctx, ok := r.byID[id]
	if !ok {
		return
	}
	ctx.Detach()
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of mounted components.
func (r *Registry) Len() int { return len(r.byID) }

// Hydrate binds every data-minimact-component container under root to
// a fresh Context and registers it. The container's first element
// child becomes the component root; containers without one fall back
// to the container itself. Containers with an empty component
// attribute get a generated id.
func Hydrate(root *html.Node, registry *Registry, deps Deps) []*Context {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var mounted []*Context
	walkContainers(root, func(container *html.Node) {
		id, _ := dom.GetAttr(container, AttrComponent)
		if id == "" {
			id = "c-" + uuid.NewString()
		}
		dom.SetAttr(container, AttrComponentID, id)

		compRoot := dom.FirstElementChild(container)
		if compRoot == nil {
			logger.Warn("component container has no element child", "component_id", id)
			compRoot = container
		}

		ctx := NewContext(id, container, compRoot, deps)
		ctx.ServerScope = inServerScope(container)
		registry.Add(ctx)
		mounted = append(mounted, ctx)
	})
	return mounted
}

// walkContainers visits every component container in document order.
// Nested containers hydrate as separate components.
func walkContainers(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode && dom.HasAttr(n, AttrComponent) {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkContainers(c, visit)
	}
}

// inServerScope reports whether a node sits inside a
// data-minimact-server-scope subtree without an inner client-scope
// override.
func inServerScope(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if dom.HasAttr(cur, AttrClientScope) {
			return false
		}
		if dom.HasAttr(cur, AttrServerScope) {
			return true
		}
	}
	return false
}
