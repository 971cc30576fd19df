package vdom

import (
	"fmt"
	"strings"
)

// Path addresses a DOM node as child indices from the component root.
// The empty path addresses the root itself.
type Path []int

// String returns the path as "[0,1,2]".
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, idx := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", idx)
	}
	b.WriteByte(']')
	return b.String()
}

// Parent returns the path without its final index. Parent of the
// empty path is the empty path.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

// Last returns the final index, or -1 for the empty path.
func (p Path) Last() int {
	if len(p) == 0 {
		return -1
	}
	return p[len(p)-1]
}

// PatchOp is the patch operation discriminator, matching the wire
// "type" field.
type PatchOp string

const (
	OpCreate              PatchOp = "create"
	OpRemove              PatchOp = "remove"
	OpReplace             PatchOp = "replace"
	OpUpdateText          PatchOp = "updateText"
	OpUpdateProps         PatchOp = "updateProps"
	OpReorderChildren     PatchOp = "reorderChildren"
	OpUpdateTextTemplate  PatchOp = "updateTextTemplate"
	OpUpdatePropsTemplate PatchOp = "updatePropsTemplate"
	OpUpdateListTemplate  PatchOp = "updateListTemplate"
)

// IsTemplate reports whether the operation carries a parameterized
// template rather than concrete content.
func (op PatchOp) IsTemplate() bool {
	switch op {
	case OpUpdateTextTemplate, OpUpdatePropsTemplate, OpUpdateListTemplate:
		return true
	}
	return false
}

// Patch is a single DOM edit. Patches apply as an ordered batch; the
// server orders them so earlier edits do not invalidate later paths.
type Patch struct {
	Op       PatchOp           `json:"type"`
	Path     Path              `json:"path"`
	Node     *VNode            `json:"node,omitempty"`          // Create, Replace
	Content  string            `json:"content,omitempty"`       // UpdateText
	Props    map[string]string `json:"props,omitempty"`         // UpdateProps
	KeyOrder []string          `json:"keyOrder,omitempty"`      // ReorderChildren
	PropName string            `json:"propName,omitempty"`      // UpdatePropsTemplate
	Template *TemplatePatch    `json:"templatePatch,omitempty"` // UpdateTextTemplate, UpdatePropsTemplate
	Loop     *LoopTemplate     `json:"loopTemplate,omitempty"`  // UpdateListTemplate
}

// IsTemplate reports whether this patch needs materialization before
// it can be applied.
func (p *Patch) IsTemplate() bool { return p.Op.IsTemplate() }

// NewCreatePatch inserts node at the final index of path within the
// parent addressed by the preceding indices.
func NewCreatePatch(path Path, node *VNode) Patch {
	return Patch{Op: OpCreate, Path: path, Node: node}
}

// NewRemovePatch detaches the node at path.
func NewRemovePatch(path Path) Patch {
	return Patch{Op: OpRemove, Path: path}
}

// NewReplacePatch swaps the node at path for node.
func NewReplacePatch(path Path, node *VNode) Patch {
	return Patch{Op: OpReplace, Path: path, Node: node}
}

// NewUpdateTextPatch sets the text content of the node at path.
func NewUpdateTextPatch(path Path, content string) Patch {
	return Patch{Op: OpUpdateText, Path: path, Content: content}
}

// NewUpdatePropsPatch replaces the attribute set of the node at path.
func NewUpdatePropsPatch(path Path, props map[string]string) Patch {
	return Patch{Op: OpUpdateProps, Path: path, Props: props}
}

// NewReorderChildrenPatch reorders keyed children of the node at path.
func NewReorderChildrenPatch(path Path, keyOrder []string) Patch {
	return Patch{Op: OpReorderChildren, Path: path, KeyOrder: keyOrder}
}

// NewUpdateTextTemplatePatch binds a text template at path.
func NewUpdateTextTemplatePatch(path Path, tp *TemplatePatch) Patch {
	return Patch{Op: OpUpdateTextTemplate, Path: path, Template: tp}
}

// NewUpdatePropsTemplatePatch binds an attribute template at path.
func NewUpdatePropsTemplatePatch(path Path, propName string, tp *TemplatePatch) Patch {
	return Patch{Op: OpUpdatePropsTemplate, Path: path, PropName: propName, Template: tp}
}

// NewUpdateListTemplatePatch binds a loop template at path.
func NewUpdateListTemplatePatch(path Path, loop *LoopTemplate) Patch {
	return Patch{Op: OpUpdateListTemplate, Path: path, Loop: loop}
}

// AnyTemplate reports whether any patch in the batch is a template
// variant.
func AnyTemplate(patches []Patch) bool {
	for i := range patches {
		if patches[i].IsTemplate() {
			return true
		}
	}
	return false
}
