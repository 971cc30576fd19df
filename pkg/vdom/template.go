package vdom

import (
	"encoding/json"
	"fmt"
)

// Binding references a named state slot from a template, optionally
// through a transform. On the wire a binding is either a bare string
// (the state key) or an object {"stateKey": ..., "transform": ...}.
type Binding struct {
	StateKey  string
	Transform string
}

// bindingWire is the object form of a binding.
type bindingWire struct {
	StateKey  string `json:"stateKey"`
	Transform string `json:"transform,omitempty"`
}

// MarshalJSON implements json.Marshaler. Bindings without a transform
// marshal to the compact string form.
func (b Binding) MarshalJSON() ([]byte, error) {
	if b.Transform == "" {
		return json.Marshal(b.StateKey)
	}
	return json.Marshal(bindingWire{StateKey: b.StateKey, Transform: b.Transform})
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Binding) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &b.StateKey)
	}
	var w bindingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("vdom: invalid binding: %w", err)
	}
	b.StateKey = w.StateKey
	b.Transform = w.Transform
	return nil
}

// TemplatePatch is a parameterized patch body. Template contains {i}
// placeholders substituted by the bindings in order. Slots records the
// character offsets of the placeholders prior to substitution
// (advisory; the renderer does not depend on it). When
// ConditionalTemplates is present, the string form of the binding at
// ConditionalBindingIndex selects the sub-template to render.
type TemplatePatch struct {
	Template                string            `json:"template"`
	Bindings                []Binding         `json:"bindings"`
	Slots                   []int             `json:"slots,omitempty"`
	ConditionalTemplates    map[string]string `json:"conditionalTemplates,omitempty"`
	ConditionalBindingIndex int               `json:"conditionalBindingIndex,omitempty"`
}

// StateKeys returns the state keys this template reads.
func (tp *TemplatePatch) StateKeys() []string {
	keys := make([]string, 0, len(tp.Bindings))
	for _, b := range tp.Bindings {
		keys = append(keys, b.StateKey)
	}
	return keys
}

// BindsKey reports whether any binding reads the given state key.
func (tp *TemplatePatch) BindsKey(key string) bool {
	for _, b := range tp.Bindings {
		if b.StateKey == key {
			return true
		}
	}
	return false
}

// ItemKind discriminates loop item templates.
type ItemKind uint8

const (
	ItemText    ItemKind = iota // Renders a text node per iteration
	ItemElement                 // Renders an element per iteration
)

// ItemTemplate is the recursive per-iteration template of a loop.
type ItemTemplate struct {
	Kind              ItemKind
	TemplatePatch     *TemplatePatch            // ItemText
	Tag               string                    // ItemElement
	PropsTemplates    map[string]*TemplatePatch // ItemElement
	ChildrenTemplates []*ItemTemplate           // ItemElement
	KeyBinding        string                    // ItemElement, optional
}

// itemWire is the JSON shape of an ItemTemplate.
type itemWire struct {
	Type              string                    `json:"type"`
	TemplatePatch     *TemplatePatch            `json:"template_patch,omitempty"`
	Tag               string                    `json:"tag,omitempty"`
	PropsTemplates    map[string]*TemplatePatch `json:"props_templates,omitempty"`
	ChildrenTemplates []*ItemTemplate           `json:"children_templates,omitempty"`
	KeyBinding        string                    `json:"key_binding,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (it *ItemTemplate) MarshalJSON() ([]byte, error) {
	w := itemWire{}
	switch it.Kind {
	case ItemText:
		w.Type = tagText
		w.TemplatePatch = it.TemplatePatch
	case ItemElement:
		w.Type = tagElement
		w.Tag = it.Tag
		w.PropsTemplates = it.PropsTemplates
		w.ChildrenTemplates = it.ChildrenTemplates
		w.KeyBinding = it.KeyBinding
	default:
		return nil, fmt.Errorf("vdom: cannot marshal item template kind %d", it.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. Objects without a type
// tag are classified by shape: a "tag" makes an element, otherwise
// the item is text.
func (it *ItemTemplate) UnmarshalJSON(data []byte) error {
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("vdom: invalid item template: %w", err)
	}

	kind := w.Type
	if kind == "" {
		if w.Tag != "" {
			kind = tagElement
		} else {
			kind = tagText
		}
	}

	switch kind {
	case tagText:
		it.Kind = ItemText
		it.TemplatePatch = w.TemplatePatch
	case tagElement:
		it.Kind = ItemElement
		it.Tag = w.Tag
		it.PropsTemplates = w.PropsTemplates
		it.ChildrenTemplates = w.ChildrenTemplates
		it.KeyBinding = w.KeyBinding
	default:
		return fmt.Errorf("vdom: unknown item template type %q", w.Type)
	}
	return nil
}

// LoopTemplate expands an array-valued state slot into repeated
// renderings of ItemTemplate. Each iteration exposes "item", "index",
// the optional IndexVar alias, and a flattened "item.<prop>" keyspace.
type LoopTemplate struct {
	ArrayBinding string        `json:"array_binding"`
	ItemTemplate *ItemTemplate `json:"item_template"`
	IndexVar     string        `json:"index_var,omitempty"`
	Separator    string        `json:"separator,omitempty"`
}
