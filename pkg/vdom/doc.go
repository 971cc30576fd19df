// Package vdom defines the virtual node and patch model shared by the
// transport, the template renderer, and the DOM patcher.
//
// Nodes and patches are tagged variants. They arrive pre-computed from
// the server as JSON; this package owns their wire codec and nothing
// else. Patches address their targets with paths: ordered sequences of
// child indices descending from a component root. The empty path
// addresses the root itself.
//
// Three patch variants are parameterized templates rather than
// concrete edits (UpdateTextTemplate, UpdatePropsTemplate,
// UpdateListTemplate). The template package materializes them against
// component state before they reach the patcher.
package vdom
