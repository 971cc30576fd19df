package component

import (
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/minimact-dev/minimact/pkg/dom"
	"github.com/minimact-dev/minimact/pkg/hints"
	"github.com/minimact-dev/minimact/pkg/template"
	"github.com/minimact-dev/minimact/pkg/vdom"
)

// Markup attributes the hydration and delegation layers contract on.
const (
	AttrComponent   = "data-minimact-component"
	AttrComponentID = "data-minimact-component-id"
	AttrServerScope = "data-minimact-server-scope"
	AttrClientScope = "data-minimact-client-scope"
)

// ServerSync sends state mutations and method invocations upstream.
// The runtime implements it over the transport; tests substitute
// recorders.
type ServerSync interface {
	// UpdateComponentState reports a single state slot change,
	// fire-and-forget.
	UpdateComponentState(componentID, stateKey string, value any) error

	// UpdateComponentStateWithOperation reports an array change with
	// its semantic operation preserved.
	UpdateComponentStateWithOperation(componentID, stateKey string, newValue any, op ArrayOperation) error

	// InvokeComponentMethod invokes a server-side component method.
	InvokeComponentMethod(componentID, method string, args []any) error
}

// hookKind discriminates hook slots.
type hookKind uint8

const (
	hookState hookKind = iota
	hookEffect
	hookRef
)

// hookSlot is one entry in a component's ordered hook list.
type hookSlot struct {
	kind   hookKind
	key    string // "state_<i>" for state slots
	value  any
	setter *Setter
	effect *effectSlot
	ref    *Ref
}

// boundTemplate is a text or attribute template registered for the
// local fast path: when a state key it binds changes, it re-renders
// in place without consulting the hint queue.
type boundTemplate struct {
	path     vdom.Path
	propName string // empty for text templates
	tp       *vdom.TemplatePatch
}

// Context is the client half of a mounted component.
type Context struct {
	// ID is the component id, unique per mounted component and
	// registered with the server.
	ID string

	// Container is the element carrying data-minimact-component.
	Container *html.Node

	// Root is the component root (first element child of the
	// container). All patch paths resolve against it.
	Root *html.Node

	// ServerScope marks components that opted out of local state.
	ServerScope bool

	state       template.State
	slots       []*hookSlot
	cursor      int
	stateCursor int
	bound       []boundTemplate
	effects  []*effectSlot
	detached bool

	hints    *hints.Queue
	applier  *dom.Applier
	renderer *template.Renderer
	sync     ServerSync
	schedule func(func())
	logger   *slog.Logger
}

// Deps bundles the shared collaborators a Context needs.
type Deps struct {
	Hints    *hints.Queue
	Applier  *dom.Applier
	Renderer *template.Renderer
	Sync     ServerSync

	// Schedule defers work to the runtime loop's microtask boundary.
	// Effects scheduled by a setter run through it after the setter's
	// synchronous work completes. Nil runs work inline.
	Schedule func(func())

	Logger *slog.Logger
}

// NewContext creates a context for a hydrated component.
func NewContext(id string, container, root *html.Node, deps Deps) *Context {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = template.NewRenderer(logger)
	}
	applier := deps.Applier
	if applier == nil {
		applier = dom.NewApplier(logger)
	}
	schedule := deps.Schedule
	if schedule == nil {
		schedule = func(fn func()) { fn() }
	}
	return &Context{
		ID:        id,
		Container: container,
		Root:      root,
		state:     make(template.State),
		hints:     deps.Hints,
		applier:   applier,
		renderer:  renderer,
		sync:      deps.Sync,
		schedule:  schedule,
		logger:    logger.With("component_id", id),
	}
}

// BeginRender resets the hook cursors. Hook call order is slot
// identity, so every render pass must call the same hooks in the
// same order.
func (c *Context) BeginRender() {
	c.cursor = 0
	c.stateCursor = 0
}

// State returns the current value of a state key.
func (c *Context) State(key string) (any, bool) {
	v, ok := c.state[key]
	return v, ok
}

// StateSnapshot returns a shallow copy of the state map.
func (c *Context) StateSnapshot() template.State {
	out := make(template.State, len(c.state))
	for k, v := range c.state {
		out[k] = v
	}
	return out
}

// SetStateValue writes a state slot directly, without the setter
// pipeline. Used when the server pushes canonical state.
func (c *Context) SetStateValue(key string, value any) {
	c.state[key] = value
	for _, slot := range c.slots {
		if slot.kind == hookState && slot.key == key {
			slot.value = value
		}
	}
}

// BindTemplate registers a text template for the local fast path.
func (c *Context) BindTemplate(path vdom.Path, tp *vdom.TemplatePatch) {
	c.bound = append(c.bound, boundTemplate{path: path, tp: tp})
}

// BindPropTemplate registers an attribute template for the local fast
// path.
func (c *Context) BindPropTemplate(path vdom.Path, propName string, tp *vdom.TemplatePatch) {
	c.bound = append(c.bound, boundTemplate{path: path, propName: propName, tp: tp})
}

// renderBoundTemplates re-renders every registered template bound to
// the changed key, writing results into the tree in place.
func (c *Context) renderBoundTemplates(changedKey string) {
	for _, bt := range c.bound {
		if !bt.tp.BindsKey(changedKey) {
			continue
		}
		rendered := c.renderer.RenderPatch(bt.tp, c.state)
		target := dom.WalkPath(c.Root, bt.path)
		if target == nil {
			c.logger.Warn("bound template target not resolved", "path", bt.path.String())
			continue
		}
		if bt.propName == "" {
			dom.SetText(target, rendered)
		} else {
			dom.SetAttr(target, bt.propName, rendered)
		}
	}
}

// ApplyPatches materializes any template patches against current
// state and applies the batch to the component root. Returns the
// number applied.
func (c *Context) ApplyPatches(patches []vdom.Patch) int {
	concrete := c.renderer.MaterializePatches(patches, c.state)
	return c.applier.Apply(c.Root, concrete)
}

// Detach unmounts the component: drops its hints, runs effect
// cleanups, and marks the context dead.
func (c *Context) Detach() {
	if c.detached {
		return
	}
	c.detached = true
	if c.hints != nil {
		c.hints.ClearComponent(c.ID)
	}
	for _, e := range c.effects {
		e.cleanupNow()
	}
}

// Detached reports whether the context was unmounted.
func (c *Context) Detached() bool { return c.detached }

// stateKey returns the stable slot key for hook index i.
func stateKey(i int) string { return fmt.Sprintf("state_%d", i) }
