package component

import (
	"github.com/minimact-dev/minimact/pkg/metrics"
	"github.com/minimact-dev/minimact/pkg/template"
)

// Setter mutates one state slot through the predictive pipeline.
type Setter struct {
	ctx *Context
	key string
}

// Key returns the state slot key this setter writes.
func (s *Setter) Key() string { return s.key }

// Set runs the full state-change pipeline, in order:
//
//  1. probe the hint queue with the predicted change and apply a
//     matching pre-computed patch batch in the same tick;
//  2. update the in-memory state slot;
//  3. re-render bound text templates reading this key (the local
//     fast path, independent of the hint queue);
//  4. sync the canonical value to the server fire-and-forget.
//
// A failed server sync is logged and never rolls back local state;
// the server is authoritative on conflict.
func (s *Setter) Set(value any) {
	s.apply(value, func(c *Context, v any) error {
		return c.sync.UpdateComponentState(c.ID, s.key, v)
	})
}

// Update applies an updater to the previous value, then runs Set's
// pipeline with the result.
func (s *Setter) Update(fn func(prev any) any) {
	prev, _ := s.ctx.State(s.key)
	s.Set(fn(prev))
}

// Value returns the slot's current value.
func (s *Setter) Value() any {
	v, _ := s.ctx.State(s.key)
	return v
}

// apply is the shared pipeline body; send performs the server sync
// for the concrete mutation flavor.
func (s *Setter) apply(value any, send func(*Context, any) error) {
	c := s.ctx
	if c.detached {
		return
	}
	if c.ServerScope {
		// Server-scoped components carry no local state; forward the
		// mutation and let authoritative patches flow back.
		if err := send(c, value); err != nil {
			c.logger.Warn("state sync failed", "stateKey", s.key, "error", err)
		}
		return
	}

	stateChanges := template.State{s.key: value}

	if c.hints != nil {
		if match := c.hints.Match(c.ID, stateChanges); match != nil {
			applied := c.applier.Apply(c.Root, match.Patches)
			metrics.RecordHintHit()
			metrics.RecordPatchesApplied(applied)
			metrics.RecordPatchErrors(len(match.Patches) - applied)
			c.logger.Debug("hint matched",
				"stateKey", s.key, "hintId", match.HintID, "confidence", match.Confidence)
		} else {
			metrics.RecordHintMiss()
		}
	}

	c.SetStateValue(s.key, value)
	c.renderBoundTemplates(s.key)

	if err := send(c, value); err != nil {
		c.logger.Warn("state sync failed", "stateKey", s.key, "error", err)
	}
}

// currentArray reads the slot as a mutable copy of its array value.
func (s *Setter) currentArray() []any {
	v, _ := s.ctx.State(s.key)
	arr, ok := v.([]any)
	if !ok {
		if v != nil {
			s.ctx.logger.Warn("array operation on non-array state", "stateKey", s.key)
		}
		return nil
	}
	return append([]any(nil), arr...)
}

// sendOp runs the pipeline with the semantic operation preserved on
// the wire, so the server can index into loop templates precisely
// instead of diffing raw arrays.
func (s *Setter) sendOp(next []any, op ArrayOperation) {
	s.apply(next, func(c *Context, v any) error {
		return c.sync.UpdateComponentStateWithOperation(c.ID, s.key, v, op)
	})
}

// Append adds an item at the end.
func (s *Setter) Append(item any) {
	next := append(s.currentArray(), item)
	s.sendOp(next, ArrayOperation{Type: OpAppend, Item: item})
}

// Prepend adds an item at the front.
func (s *Setter) Prepend(item any) {
	next := append([]any{item}, s.currentArray()...)
	s.sendOp(next, ArrayOperation{Type: OpPrepend, Item: item})
}

// InsertAt inserts an item at an index, clamping to the bounds.
func (s *Setter) InsertAt(index int, item any) {
	arr := s.currentArray()
	if index < 0 {
		index = 0
	}
	if index > len(arr) {
		index = len(arr)
	}
	next := make([]any, 0, len(arr)+1)
	next = append(next, arr[:index]...)
	next = append(next, item)
	next = append(next, arr[index:]...)
	s.sendOp(next, ArrayOperation{Type: OpInsertAt, Index: &index, Item: item})
}

// RemoveAt removes the item at an index; out-of-range is a no-op.
func (s *Setter) RemoveAt(index int) {
	arr := s.currentArray()
	if index < 0 || index >= len(arr) {
		return
	}
	next := append(append([]any(nil), arr[:index]...), arr[index+1:]...)
	s.sendOp(next, ArrayOperation{Type: OpRemoveAt, Index: &index})
}

// UpdateAt replaces the item at an index; out-of-range is a no-op.
func (s *Setter) UpdateAt(index int, item any) {
	arr := s.currentArray()
	if index < 0 || index >= len(arr) {
		return
	}
	next := append([]any(nil), arr...)
	next[index] = item
	s.sendOp(next, ArrayOperation{Type: OpUpdateAt, Index: &index, Item: item})
}

// Clear empties the array.
func (s *Setter) Clear() {
	s.sendOp([]any{}, ArrayOperation{Type: OpClear})
}

// RemoveWhere removes every item the predicate selects.
func (s *Setter) RemoveWhere(pred func(item any) bool) {
	arr := s.currentArray()
	next := make([]any, 0, len(arr))
	for _, item := range arr {
		if !pred(item) {
			next = append(next, item)
		}
	}
	s.sendOp(next, ArrayOperation{Type: OpRemoveWhere})
}

// UpdateWhere maps every item the predicate selects.
func (s *Setter) UpdateWhere(pred func(item any) bool, update func(item any) any) {
	arr := s.currentArray()
	next := make([]any, len(arr))
	for i, item := range arr {
		if pred(item) {
			next[i] = update(item)
		} else {
			next[i] = item
		}
	}
	s.sendOp(next, ArrayOperation{Type: OpUpdateWhere})
}

// AppendMany adds items at the end.
func (s *Setter) AppendMany(items []any) {
	next := append(s.currentArray(), items...)
	s.sendOp(next, ArrayOperation{Type: OpAppendMany, Item: items})
}

// RemoveMany removes the items at the given indices.
func (s *Setter) RemoveMany(indices []int) {
	arr := s.currentArray()
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	next := make([]any, 0, len(arr))
	for i, item := range arr {
		if !drop[i] {
			next = append(next, item)
		}
	}
	s.sendOp(next, ArrayOperation{Type: OpRemoveMany, Item: indices})
}
