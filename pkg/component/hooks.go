package component

import (
	"github.com/minimact-dev/minimact/pkg/hints"
)

// UseState allocates (or revisits) the next state slot and returns
// its current value with a setter. The i-th UseState call in a render
// pass always binds slot "state_<i>" — other hook kinds do not shift
// the numbering. The initial value seeds the slot on first use only.
func (c *Context) UseState(initial any) (any, *Setter) {
	slot := c.nextSlot(hookState)
	idx := c.stateCursor
	c.stateCursor++

	if slot.setter == nil {
		slot.key = stateKey(idx)
		slot.value = initial
		slot.setter = &Setter{ctx: c, key: slot.key}
		if _, exists := c.state[slot.key]; !exists {
			c.state[slot.key] = initial
		} else {
			slot.value = c.state[slot.key]
		}
	}
	return slot.value, slot.setter
}

// effectSlot tracks one UseEffect registration.
type effectSlot struct {
	fn      func() func()
	deps    []any
	cleanup func()
	ran     bool
}

// cleanupNow runs and clears the pending cleanup, if any.
func (e *effectSlot) cleanupNow() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// UseEffect registers an effect for the next slot. The effect runs on
// the runtime loop after the current synchronous work completes, and
// re-runs only when deps change (structural equality). The returned
// cleanup, if any, runs before the next invocation and on detach.
// Nil deps re-run on every render pass; empty deps run once.
func (c *Context) UseEffect(fn func() func(), deps []any) {
	slot := c.nextSlot(hookEffect)
	if slot.effect == nil {
		slot.effect = &effectSlot{fn: fn, deps: deps}
		c.effects = append(c.effects, slot.effect)
		c.scheduleEffect(slot.effect)
		return
	}

	e := slot.effect
	e.fn = fn
	if e.ran && deps != nil && depsEqual(e.deps, deps) {
		return
	}
	e.deps = deps
	c.scheduleEffect(e)
}

// scheduleEffect defers an effect run to the microtask boundary.
func (c *Context) scheduleEffect(e *effectSlot) {
	c.schedule(func() {
		if c.detached {
			return
		}
		e.cleanupNow()
		e.cleanup = e.fn()
		e.ran = true
	})
}

// depsEqual compares dependency lists structurally.
func depsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !hints.JSONEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Ref is a stable mutable cell surviving render passes.
type Ref struct {
	Current any
}

// UseRef allocates (or revisits) the next ref slot.
func (c *Context) UseRef(initial any) *Ref {
	slot := c.nextSlot(hookRef)
	if slot.ref == nil {
		slot.ref = &Ref{Current: initial}
	}
	return slot.ref
}

// nextSlot returns the hook slot at the cursor, allocating it on
// first visit, and advances the cursor. A kind mismatch means hook
// call order changed between renders, which breaks slot identity.
func (c *Context) nextSlot(kind hookKind) *hookSlot {
	if c.cursor < len(c.slots) {
		slot := c.slots[c.cursor]
		if slot.kind != kind {
			c.logger.Error("hook call order changed between renders",
				"slot", c.cursor, "was", int(slot.kind), "now", int(kind))
		}
		c.cursor++
		return slot
	}

	slot := &hookSlot{kind: kind}
	c.slots = append(c.slots, slot)
	c.cursor++
	return slot
}
