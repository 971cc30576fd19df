// Package dom maintains the live document tree the runtime patches.
//
// The tree is golang.org/x/net/html nodes. The browser counterpart
// mutates a real DOM; this headless rendition keeps the same contract
// against an in-memory tree: paths are child-index walks from a
// component root, structural edits are insert/remove/replace, and
// textContent semantics apply to both text and element targets.
//
// Node materialization follows the minimact markup conventions:
// className maps to class, on<Event> props are mirrored to
// data-on<event> attributes for the event-delegation layer (never
// installed as live listeners), and key mirrors to data-key.
package dom
