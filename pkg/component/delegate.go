package component

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/minimact-dev/minimact/pkg/dom"
)

// DelegatedEvents is the fixed event set the delegate listens for.
var DelegatedEvents = []string{
	"click", "input", "change", "submit",
	"keydown", "keyup", "keypress",
	"mousedown", "mouseup", "mouseover", "mouseout",
	"focus", "blur",
}

// HintProbe is consulted before a delegated event fires its
// invocation. The current probe is a pass-through that never matches;
// the authoritative hint path is the state setter. It is kept so the
// two paths can be unified later without changing the dispatch flow.
type HintProbe func(componentID, eventType string) bool

// Delegate resolves delegated events against the tree and forwards
// them to the server.
type Delegate struct {
	registry *Registry
	sync     ServerSync
	probe    HintProbe
	logger   *slog.Logger
}

// NewDelegate creates the event delegate.
func NewDelegate(registry *Registry, sync ServerSync, logger *slog.Logger) *Delegate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Delegate{
		registry: registry,
		sync:     sync,
		probe:    func(string, string) bool { return false },
		logger:   logger,
	}
}

// Handles reports whether the event type is in the delegated set.
func (d *Delegate) Handles(eventType string) bool {
	for _, e := range DelegatedEvents {
		if e == eventType {
			return true
		}
	}
	return false
}

// Dispatch handles one event fired at target. It walks ancestors for
// the nearest data-on<type> (or legacy on<type>) carrier, parses its
// "Method[:arg:...]" descriptor, resolves the owning component, and
// invokes the method on the server. For input and change events the
// target's value is prepended to the arguments. Returns true when an
// invocation was sent.
func (d *Delegate) Dispatch(eventType string, target *html.Node, value string) bool {
	if !d.Handles(eventType) {
		d.logger.Warn("event type not delegated", "event", eventType)
		return false
	}

	carrier, descriptor := findCarrier(target, eventType)
	if carrier == nil {
		return false
	}

	method, args := parseDescriptor(descriptor)
	if method == "" {
		d.logger.Warn("empty event descriptor", "event", eventType)
		return false
	}

	if eventType == "input" || eventType == "change" {
		args = append([]any{value}, args...)
	}

	_, componentID := dom.Closest(carrier, AttrComponentID)
	if componentID == "" {
		d.logger.Warn("event outside any component", "event", eventType, "method", method)
		return false
	}

	// Probe first so a matched interaction hint lands in the same
	// tick; the server invocation still fires for verification.
	d.probe(componentID, eventType)

	if err := d.sync.InvokeComponentMethod(componentID, method, args); err != nil {
		d.logger.Warn("method invocation failed",
			"component_id", componentID, "method", method, "error", err)
		return false
	}
	return true
}

// findCarrier walks target and its ancestors for the nearest element
// carrying the event's data-on attribute (or the legacy on form).
func findCarrier(n *html.Node, eventType string) (*html.Node, string) {
	dataAttr := "data-on" + eventType
	legacyAttr := "on" + eventType
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if v, ok := dom.GetAttr(cur, dataAttr); ok {
			return cur, v
		}
		if v, ok := dom.GetAttr(cur, legacyAttr); ok {
			return cur, v
		}
	}
	return nil, ""
}

// parseDescriptor splits "Method:arg1:arg2" into the method name and
// its colon-separated arguments.
func parseDescriptor(descriptor string) (string, []any) {
	parts := strings.Split(descriptor, ":")
	method := strings.TrimSpace(parts[0])
	args := make([]any, 0, len(parts)-1)
	for _, p := range parts[1:] {
		args = append(args, p)
	}
	return method, args
}
