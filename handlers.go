package minimact

import (
	"encoding/json"

	"github.com/minimact-dev/minimact/pkg/component"
	"github.com/minimact-dev/minimact/pkg/dom"
	"github.com/minimact-dev/minimact/pkg/hints"
	"github.com/minimact-dev/minimact/pkg/metrics"
	"github.com/minimact-dev/minimact/pkg/vdom"
)

// Server-to-client invocation targets. Case-sensitive.
const (
	targetUpdateComponent = "UpdateComponent"
	targetApplyPatches    = "ApplyPatches"
	targetApplyPrediction = "ApplyPrediction"
	targetApplyCorrection = "ApplyCorrection"
	targetQueueHint       = "QueueHint"
	targetError           = "Error"
)

// predictionPayload is the body of ApplyPrediction and
// ApplyCorrection pushes.
type predictionPayload struct {
	ComponentID string       `json:"componentId"`
	Patches     []vdom.Patch `json:"patches"`
	Confidence  float64      `json:"confidence,omitempty"`
}

// installHandlers registers the server dispatch targets on the
// transport. Handlers decode on the socket goroutine and enqueue the
// mutation onto the runtime loop, preserving frame order.
func (rt *Runtime) installHandlers() {
	rt.conn.On(targetUpdateComponent, func(args []json.RawMessage) {
		var componentID, markup string
		if !rt.decodeArgs(targetUpdateComponent, args, &componentID, &markup) {
			return
		}
		rt.Dispatch(func() { rt.replaceComponentHTML(componentID, markup) })
	})

	rt.conn.On(targetApplyPatches, func(args []json.RawMessage) {
		var componentID string
		var patches []vdom.Patch
		if !rt.decodeArgs(targetApplyPatches, args, &componentID, &patches) {
			return
		}
		rt.Dispatch(func() { rt.applyServerPatches(componentID, patches) })
	})

	rt.conn.On(targetApplyPrediction, func(args []json.RawMessage) {
		var p predictionPayload
		if !rt.decodeArgs(targetApplyPrediction, args, &p) {
			return
		}
		rt.Dispatch(func() { rt.applyServerPatches(p.ComponentID, p.Patches) })
	})

	rt.conn.On(targetApplyCorrection, func(args []json.RawMessage) {
		var p predictionPayload
		if !rt.decodeArgs(targetApplyCorrection, args, &p) {
			return
		}
		rt.Dispatch(func() {
			rt.logger.Debug("applying prediction correction", "component_id", p.ComponentID)
			rt.applyServerPatches(p.ComponentID, p.Patches)
		})
	})

	rt.conn.On(targetQueueHint, func(args []json.RawMessage) {
		var h hints.Hint
		if !rt.decodeArgs(targetQueueHint, args, &h) {
			return
		}
		rt.Dispatch(func() { rt.hintQueue.Queue(&h) })
	})

	rt.conn.On(targetError, func(args []json.RawMessage) {
		var message string
		if !rt.decodeArgs(targetError, args, &message) {
			return
		}
		rt.logger.Error("server error", "message", message)
	})
}

// decodeArgs unmarshals positional invocation arguments into the
// given destinations. Short argument lists and decode failures log
// and drop the invocation.
func (rt *Runtime) decodeArgs(target string, args []json.RawMessage, dests ...any) bool {
	if len(args) < len(dests) {
		rt.logger.Error("server invocation with missing arguments",
			"target", target, "got", len(args), "want", len(dests))
		return false
	}
	for i, dest := range dests {
		if err := json.Unmarshal(args[i], dest); err != nil {
			rt.logger.Error("server invocation argument decode error",
				"target", target, "index", i, "error", err)
			return false
		}
	}
	return true
}

// applyServerPatches applies a server patch batch to a component,
// binding any template patches for the local fast path first.
func (rt *Runtime) applyServerPatches(componentID string, patches []vdom.Patch) {
	ctx := rt.registry.Get(componentID)
	if ctx == nil {
		rt.logger.Warn("patches for unknown component", "component_id", componentID)
		return
	}

	for i := range patches {
		p := &patches[i]
		switch p.Op {
		case vdom.OpUpdateTextTemplate:
			if p.Template != nil {
				ctx.BindTemplate(p.Path, p.Template)
			}
		case vdom.OpUpdatePropsTemplate:
			if p.Template != nil {
				ctx.BindPropTemplate(p.Path, p.PropName, p.Template)
			}
		}
	}

	applied := ctx.ApplyPatches(patches)
	metrics.RecordPatchesApplied(applied)
	if applied < len(patches) {
		metrics.RecordPatchErrors(len(patches) - applied)
	}
}

// replaceComponentHTML swaps a component's entire markup and rebinds
// its root.
func (rt *Runtime) replaceComponentHTML(componentID, markup string) {
	ctx := rt.registry.Get(componentID)
	if ctx == nil {
		rt.logger.Warn("html update for unknown component", "component_id", componentID)
		return
	}
	if err := rt.applier.ReplaceHTML(ctx.Container, markup); err != nil {
		rt.logger.Error("component html replace failed", "component_id", componentID, "error", err)
		return
	}
	if root := dom.FirstElementChild(ctx.Container); root != nil {
		ctx.Root = root
	} else {
		ctx.Root = ctx.Container
	}
}

// registerAll registers every mounted component with the server.
// Runs on startup and again after every reconnect.
func (rt *Runtime) registerAll() {
	for _, ctx := range rt.registry.All() {
		if err := rt.conn.Send(targetRegisterComponent, ctx.ID); err != nil {
			rt.logger.Warn("component registration failed", "component_id", ctx.ID, "error", err)
		}
	}
}

// statically assert the runtime satisfies the component sync surface.
var _ component.ServerSync = (*Runtime)(nil)
