package component

import (
	"testing"
)

// arraySetter builds a context whose slot 0 holds the given array.
func arraySetter(t *testing.T, initial []any) (*Setter, *Context, *recorder) {
	t.Helper()
	rec := &recorder{}
	ctx := newTestContext(t, rec, nil)
	ctx.BeginRender()
	_, setter := ctx.UseState(initial)
	return setter, ctx, rec
}

func lastOp(t *testing.T, rec *recorder) opCall {
	t.Helper()
	if len(rec.ops) == 0 {
		t.Fatal("no operation sync recorded")
	}
	return rec.ops[len(rec.ops)-1]
}

func stateArray(t *testing.T, ctx *Context) []any {
	t.Helper()
	v, _ := ctx.State("state_0")
	arr, ok := v.([]any)
	if !ok {
		t.Fatalf("state_0 = %T, want []any", v)
	}
	return arr
}

func TestArrayAppendPrepend(t *testing.T) {
	setter, ctx, rec := arraySetter(t, []any{"b"})

	setter.Append("c")
	setter.Prepend("a")

	arr := stateArray(t, ctx)
	if len(arr) != 3 || arr[0] != "a" || arr[1] != "b" || arr[2] != "c" {
		t.Fatalf("array = %v", arr)
	}

	if len(rec.ops) != 2 {
		t.Fatalf("ops = %d", len(rec.ops))
	}
	if rec.ops[0].op.Type != OpAppend || rec.ops[0].op.Item != "c" {
		t.Errorf("append op = %+v", rec.ops[0].op)
	}
	if rec.ops[1].op.Type != OpPrepend || rec.ops[1].op.Item != "a" {
		t.Errorf("prepend op = %+v", rec.ops[1].op)
	}
}

func TestArrayInsertRemoveUpdateAt(t *testing.T) {
	setter, ctx, rec := arraySetter(t, []any{"a", "c"})

	setter.InsertAt(1, "b")
	arr := stateArray(t, ctx)
	if len(arr) != 3 || arr[1] != "b" {
		t.Fatalf("after insert: %v", arr)
	}
	op := lastOp(t, rec)
	if op.op.Type != OpInsertAt || op.op.Index == nil || *op.op.Index != 1 {
		t.Errorf("insert op = %+v", op.op)
	}

	setter.UpdateAt(2, "C")
	arr = stateArray(t, ctx)
	if arr[2] != "C" {
		t.Fatalf("after update: %v", arr)
	}
	op = lastOp(t, rec)
	if op.op.Type != OpUpdateAt || *op.op.Index != 2 || op.op.Item != "C" {
		t.Errorf("update op = %+v", op.op)
	}

	setter.RemoveAt(0)
	arr = stateArray(t, ctx)
	if len(arr) != 2 || arr[0] != "b" {
		t.Fatalf("after remove: %v", arr)
	}
	op = lastOp(t, rec)
	if op.op.Type != OpRemoveAt || *op.op.Index != 0 {
		t.Errorf("remove op = %+v", op.op)
	}
}

func TestArrayOutOfRangeNoops(t *testing.T) {
	setter, ctx, rec := arraySetter(t, []any{"a"})

	setter.RemoveAt(5)
	setter.UpdateAt(-1, "x")

	if len(stateArray(t, ctx)) != 1 {
		t.Error("out-of-range op mutated the array")
	}
	if len(rec.ops) != 0 {
		t.Error("out-of-range op synced to server")
	}
}

func TestArrayClear(t *testing.T) {
	setter, ctx, rec := arraySetter(t, []any{"a", "b"})

	setter.Clear()
	if len(stateArray(t, ctx)) != 0 {
		t.Error("Clear() left items")
	}
	if lastOp(t, rec).op.Type != OpClear {
		t.Errorf("op = %+v", lastOp(t, rec).op)
	}
}

func TestArrayWhereOperations(t *testing.T) {
	setter, ctx, rec := arraySetter(t, []any{float64(1), float64(2), float64(3), float64(4)})

	setter.RemoveWhere(func(item any) bool { return item.(float64) > 2 })
	arr := stateArray(t, ctx)
	if len(arr) != 2 {
		t.Fatalf("after RemoveWhere: %v", arr)
	}
	if lastOp(t, rec).op.Type != OpRemoveWhere {
		t.Errorf("op = %+v", lastOp(t, rec).op)
	}

	setter.UpdateWhere(
		func(item any) bool { return item.(float64) == 1 },
		func(item any) any { return float64(10) },
	)
	arr = stateArray(t, ctx)
	if arr[0] != float64(10) || arr[1] != float64(2) {
		t.Fatalf("after UpdateWhere: %v", arr)
	}
	if lastOp(t, rec).op.Type != OpUpdateWhere {
		t.Errorf("op = %+v", lastOp(t, rec).op)
	}
}

func TestArrayManyOperations(t *testing.T) {
	setter, ctx, rec := arraySetter(t, []any{"a", "b", "c"})

	setter.AppendMany([]any{"d", "e"})
	arr := stateArray(t, ctx)
	if len(arr) != 5 {
		t.Fatalf("after AppendMany: %v", arr)
	}
	if lastOp(t, rec).op.Type != OpAppendMany {
		t.Errorf("op = %+v", lastOp(t, rec).op)
	}

	setter.RemoveMany([]int{0, 2})
	arr = stateArray(t, ctx)
	if len(arr) != 3 || arr[0] != "b" {
		t.Fatalf("after RemoveMany: %v", arr)
	}
	if lastOp(t, rec).op.Type != OpRemoveMany {
		t.Errorf("op = %+v", lastOp(t, rec).op)
	}
}

// The operation sync carries the new array alongside the op.
func TestArrayOpCarriesNewValue(t *testing.T) {
	setter, _, rec := arraySetter(t, []any{})

	setter.Append("only")
	op := lastOp(t, rec)
	arr, ok := op.value.([]any)
	if !ok || len(arr) != 1 || arr[0] != "only" {
		t.Errorf("op value = %v", op.value)
	}
	if op.componentID != "c1" || op.stateKey != "state_0" {
		t.Errorf("op addressing = %+v", op)
	}
}
