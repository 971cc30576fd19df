package template

import (
	"github.com/minimact-dev/minimact/pkg/vdom"
)

// MaterializePatch converts a template patch into concrete patches
// against the given state. Non-template patches pass through
// unchanged. A list template expands into one Create per array
// element, so the result is a slice.
func (r *Renderer) MaterializePatch(p vdom.Patch, state State) []vdom.Patch {
	switch p.Op {
	case vdom.OpUpdateTextTemplate:
		if p.Template == nil {
			r.logger.Warn("text template patch without template", "path", p.Path.String())
			return nil
		}
		return []vdom.Patch{vdom.NewUpdateTextPatch(p.Path, r.RenderPatch(p.Template, state))}

	case vdom.OpUpdatePropsTemplate:
		if p.Template == nil {
			r.logger.Warn("props template patch without template", "path", p.Path.String())
			return nil
		}
		props := map[string]string{p.PropName: r.RenderPatch(p.Template, state)}
		return []vdom.Patch{vdom.NewUpdatePropsPatch(p.Path, props)}

	case vdom.OpUpdateListTemplate:
		if p.Loop == nil {
			r.logger.Warn("list template patch without loop", "path", p.Path.String())
			return nil
		}
		return r.ExpandLoop(p.Path, p.Loop, state)

	default:
		return []vdom.Patch{p}
	}
}

// MaterializePatches materializes a batch in order, expanding list
// templates in place.
func (r *Renderer) MaterializePatches(patches []vdom.Patch, state State) []vdom.Patch {
	out := make([]vdom.Patch, 0, len(patches))
	for _, p := range patches {
		out = append(out, r.MaterializePatch(p, state)...)
	}
	return out
}

// ExpandLoop renders the loop's item template once per array element,
// emitting Create patches at successive child indices of parentPath.
// A full re-expansion per change is the deliberate strategy here;
// incremental list diffing stays on the server.
func (r *Renderer) ExpandLoop(parentPath vdom.Path, loop *vdom.LoopTemplate, state State) []vdom.Patch {
	raw, ok := state[loop.ArrayBinding]
	if !ok {
		r.logger.Warn("loop array binding missing from state", "binding", loop.ArrayBinding)
		return nil
	}
	arr, ok := raw.([]any)
	if !ok {
		r.logger.Warn("loop binding is not an array", "binding", loop.ArrayBinding)
		return nil
	}
	if loop.ItemTemplate == nil {
		r.logger.Warn("loop without item template", "binding", loop.ArrayBinding)
		return nil
	}

	patches := make([]vdom.Patch, 0, len(arr))
	for i, item := range arr {
		scope := loopScope(state, loop, item, i)
		node := r.renderItem(loop.ItemTemplate, scope)
		if node == nil {
			continue
		}
		childPath := append(append(vdom.Path{}, parentPath...), i)
		patches = append(patches, vdom.NewCreatePatch(childPath, node))
	}
	return patches
}

// loopScope builds the per-iteration state: the outer state plus
// item, index, the optional index alias, and a flattened item.<prop>
// keyspace for object items.
func loopScope(state State, loop *vdom.LoopTemplate, item any, index int) State {
	scope := make(State, len(state)+4)
	for k, v := range state {
		scope[k] = v
	}
	scope["item"] = item
	scope["index"] = index
	if loop.IndexVar != "" {
		scope[loop.IndexVar] = index
	}
	if m, ok := item.(map[string]any); ok {
		for k, v := range m {
			scope["item."+k] = v
		}
	}
	return scope
}

// renderItem renders one iteration of an item template to a virtual
// node.
func (r *Renderer) renderItem(it *vdom.ItemTemplate, scope State) *vdom.VNode {
	switch it.Kind {
	case vdom.ItemText:
		if it.TemplatePatch == nil {
			r.logger.Warn("text item template without template patch")
			return nil
		}
		return vdom.NewText(r.RenderPatch(it.TemplatePatch, scope))

	case vdom.ItemElement:
		var props map[string]string
		if len(it.PropsTemplates) > 0 {
			props = make(map[string]string, len(it.PropsTemplates))
			for name, tp := range it.PropsTemplates {
				props[name] = r.RenderPatch(tp, scope)
			}
		}
		var children []*vdom.VNode
		for _, child := range it.ChildrenTemplates {
			if n := r.renderItem(child, scope); n != nil {
				children = append(children, n)
			}
		}
		node := vdom.NewElement(it.Tag, props, children...)
		if it.KeyBinding != "" {
			node.Key = Format(scope[it.KeyBinding])
		}
		return node
	}
	return nil
}
