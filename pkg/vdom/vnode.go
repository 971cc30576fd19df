package vdom

import (
	"encoding/json"
	"fmt"
)

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement  VKind = iota // <div>, <button>, etc.
	KindText                  // Plain text node
	KindFragment              // Grouping without wrapper
	KindRaw                   // Raw HTML (dangerous)
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindRaw:
		return "RawHtml"
	default:
		return "Unknown"
	}
}

// wire tags for the JSON codec.
const (
	tagElement  = "element"
	tagText     = "text"
	tagFragment = "fragment"
	tagRaw      = "rawHtml"
)

// VNode is a virtual DOM node.
type VNode struct {
	Kind     VKind             // Node type
	Tag      string            // Element tag name (KindElement)
	Props    map[string]string // Attributes (KindElement)
	Children []*VNode          // Child nodes (KindElement, KindFragment)
	Key      string            // Reconciliation key
	Text     string            // Text content (KindText) or raw markup (KindRaw)
}

// NewElement creates an element node.
func NewElement(tag string, props map[string]string, children ...*VNode) *VNode {
	key := ""
	if props != nil {
		key = props["key"]
	}
	return &VNode{
		Kind:     KindElement,
		Tag:      tag,
		Props:    props,
		Children: children,
		Key:      key,
	}
}

// NewText creates a text node.
func NewText(content string) *VNode {
	return &VNode{Kind: KindText, Text: content}
}

// NewFragment creates a fragment node.
func NewFragment(children ...*VNode) *VNode {
	return &VNode{Kind: KindFragment, Children: children}
}

// NewRaw creates a raw-HTML node.
func NewRaw(html string) *VNode {
	return &VNode{Kind: KindRaw, Text: html}
}

// IsElement returns true if this is an element node.
func (v *VNode) IsElement() bool { return v != nil && v.Kind == KindElement }

// IsText returns true if this is a text node.
func (v *VNode) IsText() bool { return v != nil && v.Kind == KindText }

// vnodeWire is the JSON shape of a VNode.
type vnodeWire struct {
	Type     string            `json:"type"`
	Tag      string            `json:"tag,omitempty"`
	Props    map[string]string `json:"props,omitempty"`
	Children []*VNode          `json:"children,omitempty"`
	Key      string            `json:"key,omitempty"`
	Content  string            `json:"content,omitempty"`
	HTML     string            `json:"html,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v *VNode) MarshalJSON() ([]byte, error) {
	w := vnodeWire{Key: v.Key}
	switch v.Kind {
	case KindElement:
		w.Type = tagElement
		w.Tag = v.Tag
		w.Props = v.Props
		w.Children = v.Children
	case KindText:
		w.Type = tagText
		w.Content = v.Text
	case KindFragment:
		w.Type = tagFragment
		w.Children = v.Children
	case KindRaw:
		w.Type = tagRaw
		w.HTML = v.Text
	default:
		return nil, fmt.Errorf("vdom: cannot marshal node kind %d", v.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. The decoder is tolerant
// of servers that omit the type tag where the shape is unambiguous: an
// object with a "tag" is an element, with "content" a text node, with
// "html" a raw node.
func (v *VNode) UnmarshalJSON(data []byte) error {
	var w vnodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("vdom: invalid node: %w", err)
	}

	kind := w.Type
	if kind == "" {
		switch {
		case w.Tag != "":
			kind = tagElement
		case w.HTML != "":
			kind = tagRaw
		case w.Children != nil:
			kind = tagFragment
		default:
			kind = tagText
		}
	}

	switch kind {
	case tagElement:
		v.Kind = KindElement
		v.Tag = w.Tag
		v.Props = w.Props
		v.Children = w.Children
		v.Key = w.Key
		if v.Key == "" && w.Props != nil {
			v.Key = w.Props["key"]
		}
	case tagText:
		v.Kind = KindText
		v.Text = w.Content
	case tagFragment:
		v.Kind = KindFragment
		v.Children = w.Children
	case tagRaw:
		v.Kind = KindRaw
		v.Text = w.HTML
	default:
		return fmt.Errorf("vdom: unknown node type %q", w.Type)
	}
	return nil
}
