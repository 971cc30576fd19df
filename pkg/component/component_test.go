package component

import (
	"fmt"
	"testing"

	"golang.org/x/net/html"

	"github.com/minimact-dev/minimact/pkg/dom"
	"github.com/minimact-dev/minimact/pkg/hints"
	"github.com/minimact-dev/minimact/pkg/template"
	"github.com/minimact-dev/minimact/pkg/vdom"
)

// recorder is a ServerSync that records every upstream call.
type recorder struct {
	states  []stateCall
	ops     []opCall
	methods []methodCall
	fail    error
}

type stateCall struct {
	componentID, stateKey string
	value                 any
}

type opCall struct {
	componentID, stateKey string
	value                 any
	op                    ArrayOperation
}

type methodCall struct {
	componentID, method string
	args                []any
}

func (r *recorder) UpdateComponentState(componentID, stateKey string, value any) error {
	r.states = append(r.states, stateCall{componentID, stateKey, value})
	return r.fail
}

func (r *recorder) UpdateComponentStateWithOperation(componentID, stateKey string, newValue any, op ArrayOperation) error {
	r.ops = append(r.ops, opCall{componentID, stateKey, newValue, op})
	return r.fail
}

func (r *recorder) InvokeComponentMethod(componentID, method string, args []any) error {
	r.methods = append(r.methods, methodCall{componentID, method, args})
	return r.fail
}

func parseOne(t *testing.T, markup string) *html.Node {
	t.Helper()
	nodes, err := dom.ParseFragment(markup)
	if err != nil || len(nodes) != 1 {
		t.Fatalf("ParseFragment(%q): %v (%d nodes)", markup, err, len(nodes))
	}
	return nodes[0]
}

// newTestContext builds a context over the counter markup from the
// hydration contract: container > root > span.
func newTestContext(t *testing.T, rec *recorder, q *hints.Queue) *Context {
	t.Helper()
	container := parseOne(t, `<div data-minimact-component="c1"><div id="r"><span>0</span></div></div>`)
	dom.SetAttr(container, AttrComponentID, "c1")
	root := dom.FirstElementChild(container)
	return NewContext("c1", container, root, Deps{
		Hints: q,
		Sync:  rec,
	})
}

func TestUseStateSlotIdentity(t *testing.T) {
	rec := &recorder{}
	ctx := newTestContext(t, rec, nil)

	ctx.BeginRender()
	v0, s0 := ctx.UseState(float64(0))
	v1, s1 := ctx.UseState("hello")

	if v0 != float64(0) || v1 != "hello" {
		t.Errorf("initial values = %v, %v", v0, v1)
	}
	if s0.Key() != "state_0" || s1.Key() != "state_1" {
		t.Errorf("slot keys = %q, %q", s0.Key(), s1.Key())
	}

	// Second render pass: same slots, same setters, updated values.
	s0.Set(float64(5))
	ctx.BeginRender()
	v0b, s0b := ctx.UseState(float64(0))
	_, s1b := ctx.UseState("hello")

	if v0b != float64(5) {
		t.Errorf("second render value = %v, want 5", v0b)
	}
	if s0b != s0 || s1b != s1 {
		t.Error("setters not stable across renders")
	}
}

func TestStateSlotNumberingIgnoresOtherHooks(t *testing.T) {
	rec := &recorder{}
	ctx := newTestContext(t, rec, nil)

	ctx.BeginRender()
	ctx.UseRef(nil)
	ctx.UseEffect(func() func() { return nil }, []any{})
	_, setter := ctx.UseState("x")

	if setter.Key() != "state_0" {
		t.Errorf("slot key = %q, want state_0", setter.Key())
	}
}

// Counter local echo, the core scenario: a queued hint for
// state_0 → 1 updates the span synchronously and the canonical state
// syncs to the server.
func TestSetterHintHitAppliesSynchronously(t *testing.T) {
	rec := &recorder{}
	q := hints.NewQueue(nil)
	ctx := newTestContext(t, rec, q)

	ctx.BeginRender()
	_, setter := ctx.UseState(float64(0))

	q.Queue(&hints.Hint{
		ComponentID:    "c1",
		HintID:         "h1",
		Confidence:     0.95,
		PredictedState: template.State{"state_0": float64(1)},
		Patches: []vdom.Patch{
			vdom.NewUpdateTextTemplatePatch(vdom.Path{0, 0}, &vdom.TemplatePatch{
				Template: "{0}",
				Bindings: []vdom.Binding{{StateKey: "state_0"}},
				Slots:    []int{0},
			}),
		},
	})

	setter.Set(float64(1))

	span := dom.WalkPath(ctx.Root, vdom.Path{0})
	if got := dom.TextContent(span); got != "1" {
		t.Errorf("span text = %q, want %q", got, "1")
	}

	if len(rec.states) != 1 {
		t.Fatalf("state syncs = %d", len(rec.states))
	}
	call := rec.states[0]
	if call.componentID != "c1" || call.stateKey != "state_0" || call.value != float64(1) {
		t.Errorf("sync = %+v", call)
	}

	// The hint is consumed.
	if q.Len() != 0 {
		t.Errorf("hint queue len = %d after match", q.Len())
	}
}

func TestSetterMissStillSyncs(t *testing.T) {
	rec := &recorder{}
	q := hints.NewQueue(nil)
	ctx := newTestContext(t, rec, q)

	ctx.BeginRender()
	_, setter := ctx.UseState(float64(0))
	setter.Set(float64(7))

	// No hint: DOM untouched, state updated, sync sent.
	span := dom.WalkPath(ctx.Root, vdom.Path{0})
	if got := dom.TextContent(span); got != "0" {
		t.Errorf("span text = %q, want unchanged", got)
	}
	if v, _ := ctx.State("state_0"); v != float64(7) {
		t.Errorf("state = %v", v)
	}
	if len(rec.states) != 1 {
		t.Errorf("syncs = %d", len(rec.states))
	}
}

func TestSetterUpdaterFunction(t *testing.T) {
	rec := &recorder{}
	ctx := newTestContext(t, rec, nil)

	ctx.BeginRender()
	_, setter := ctx.UseState(float64(10))
	setter.Update(func(prev any) any {
		return prev.(float64) + 1
	})

	if v, _ := ctx.State("state_0"); v != float64(11) {
		t.Errorf("state = %v", v)
	}
}

func TestSetterSyncFailureKeepsLocalState(t *testing.T) {
	rec := &recorder{fail: fmt.Errorf("socket gone")}
	ctx := newTestContext(t, rec, nil)

	ctx.BeginRender()
	_, setter := ctx.UseState("a")
	setter.Set("b")

	if v, _ := ctx.State("state_0"); v != "b" {
		t.Errorf("state rolled back to %v", v)
	}
}

// Bound text templates re-render locally on every change of a key
// they read, independent of the hint queue.
func TestBoundTemplateFastPath(t *testing.T) {
	rec := &recorder{}
	ctx := newTestContext(t, rec, nil)

	ctx.BeginRender()
	_, setter := ctx.UseState(float64(0))

	ctx.BindTemplate(vdom.Path{0, 0}, &vdom.TemplatePatch{
		Template: "{0}",
		Bindings: []vdom.Binding{{StateKey: "state_0"}},
	})

	setter.Set(float64(2))
	span := dom.WalkPath(ctx.Root, vdom.Path{0})
	if got := dom.TextContent(span); got != "2" {
		t.Errorf("span = %q after first set", got)
	}

	setter.Set(float64(3))
	if got := dom.TextContent(span); got != "3" {
		t.Errorf("span = %q after second set", got)
	}
}

func TestBoundPropTemplate(t *testing.T) {
	rec := &recorder{}
	ctx := newTestContext(t, rec, nil)

	ctx.BeginRender()
	_, setter := ctx.UseState("red")
	ctx.BindPropTemplate(vdom.Path{0}, "class", &vdom.TemplatePatch{
		Template: "badge-{0}",
		Bindings: []vdom.Binding{{StateKey: "state_0"}},
	})

	setter.Set("blue")
	span := dom.WalkPath(ctx.Root, vdom.Path{0})
	if v, _ := dom.GetAttr(span, "class"); v != "badge-blue" {
		t.Errorf("class = %q", v)
	}
}

func TestUseEffectRunsAndCleansUp(t *testing.T) {
	rec := &recorder{}
	ctx := newTestContext(t, rec, nil)

	var runs, cleanups int

	ctx.BeginRender()
	ctx.UseEffect(func() func() {
		runs++
		return func() { cleanups++ }
	}, []any{float64(1)})

	if runs != 1 || cleanups != 0 {
		t.Fatalf("after mount: runs=%d cleanups=%d", runs, cleanups)
	}

	// Same deps: no re-run.
	ctx.BeginRender()
	ctx.UseEffect(func() func() {
		runs++
		return func() { cleanups++ }
	}, []any{float64(1)})
	if runs != 1 {
		t.Errorf("effect re-ran with unchanged deps (runs=%d)", runs)
	}

	// Changed deps: cleanup then re-run.
	ctx.BeginRender()
	ctx.UseEffect(func() func() {
		runs++
		return func() { cleanups++ }
	}, []any{float64(2)})
	if runs != 2 || cleanups != 1 {
		t.Errorf("after dep change: runs=%d cleanups=%d", runs, cleanups)
	}

	// Detach runs final cleanup.
	ctx.Detach()
	if cleanups != 2 {
		t.Errorf("after detach: cleanups=%d", cleanups)
	}
}

func TestUseRefStable(t *testing.T) {
	rec := &recorder{}
	ctx := newTestContext(t, rec, nil)

	ctx.BeginRender()
	ref := ctx.UseRef("init")
	ref.Current = "mutated"

	ctx.BeginRender()
	again := ctx.UseRef("init")
	if again != ref || again.Current != "mutated" {
		t.Error("ref not stable across renders")
	}
}

func TestDetachClearsHints(t *testing.T) {
	rec := &recorder{}
	q := hints.NewQueue(nil)
	ctx := newTestContext(t, rec, q)

	q.Queue(&hints.Hint{
		ComponentID:    "c1",
		HintID:         "h1",
		PredictedState: template.State{"state_0": float64(1)},
	})
	ctx.Detach()

	if q.Match("c1", template.State{"state_0": float64(1)}) != nil {
		t.Error("detached component's hints still match")
	}

	// Setters on a detached context are inert.
	ctx.BeginRender()
	_, setter := ctx.UseState(float64(0))
	setter.Set(float64(1))
	if len(rec.states) != 0 {
		t.Error("detached setter synced to server")
	}
}
