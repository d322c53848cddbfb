package heap

import (
	"testing"

	"github.com/kestrel-run/kestrel/values"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(4096, 1<<16)
}

func TestStringRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ptr, err := m.NewString("hello, sandbox")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	if got := m.ReadString(ptr); got != "hello, sandbox" {
		t.Fatalf("ReadString = %q, want %q", got, "hello, sandbox")
	}
}

func TestStoreStringGrowsBeyondCapacity(t *testing.T) {
	m := newTestManager(t)
	ptr, err := m.NewString("short")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	newPtr, err := m.StoreString(ptr, "a much longer replacement string")
	if err != nil {
		t.Fatalf("StoreString: %v", err)
	}
	if got := m.ReadString(newPtr); got != "a much longer replacement string" {
		t.Fatalf("ReadString = %q", got)
	}
}

func TestArraySetGetAndBounds(t *testing.T) {
	m := newTestManager(t)
	ptr, err := m.NewArray(values.Long, 3)
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	for i, v := range []int64{10, 20, 30} {
		if err := m.ArraySet(ptr, i, values.LongValue(v)); err != nil {
			t.Fatalf("ArraySet: %v", err)
		}
	}
	for i, want := range []int64{10, 20, 30} {
		v, err := m.ArrayGet(ptr, i)
		if err != nil {
			t.Fatalf("ArrayGet: %v", err)
		}
		if v.AsInt64() != want {
			t.Fatalf("element %d = %d, want %d", i, v.AsInt64(), want)
		}
	}
	if _, err := m.ArrayGet(ptr, 3); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestArrayAddAtAndRemoveAt(t *testing.T) {
	m := newTestManager(t)
	ptr, err := m.NewArray(values.Long, 0)
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	for _, v := range []int64{1, 2, 3} {
		ptr, err = m.Add(ptr, values.LongValue(v))
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	ptr, err = m.AddAt(ptr, 1, values.LongValue(99))
	if err != nil {
		t.Fatalf("AddAt: %v", err)
	}
	want := []int64{1, 99, 2, 3}
	if n := m.ArrayLen(ptr); n != len(want) {
		t.Fatalf("length = %d, want %d", n, len(want))
	}
	for i, w := range want {
		v, _ := m.ArrayGet(ptr, i)
		if v.AsInt64() != w {
			t.Fatalf("element %d = %d, want %d", i, v.AsInt64(), w)
		}
	}

	ptr, err = m.RemoveAt(ptr, 0)
	if err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	want = []int64{99, 2, 3}
	for i, w := range want {
		v, _ := m.ArrayGet(ptr, i)
		if v.AsInt64() != w {
			t.Fatalf("after remove, element %d = %d, want %d", i, v.AsInt64(), w)
		}
	}
}

func TestArraySumAndAverage(t *testing.T) {
	m := newTestManager(t)
	ptr, err := m.NewArray(values.Long, 4)
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	for i, v := range []int64{1, 2, 3, 4} {
		m.ArraySet(ptr, i, values.LongValue(v))
	}
	sum, err := m.Sum(ptr)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if sum.AsInt64() != 10 {
		t.Fatalf("sum = %d, want 10", sum.AsInt64())
	}
	avg, err := m.Average(ptr)
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if avg != 2.5 {
		t.Fatalf("average = %v, want 2.5", avg)
	}
}

func TestNullablePackAndRead(t *testing.T) {
	m := newTestManager(t)
	ptr, err := m.PackNullable(values.LongValue(7))
	if err != nil {
		t.Fatalf("PackNullable: %v", err)
	}
	v, ok := m.ReadNullable(ptr)
	if !ok {
		t.Fatal("expected ReadNullable to report a present value")
	}
	if v.AsInt64() != 7 {
		t.Fatalf("got %d, want 7", v.AsInt64())
	}

	nullVal, ok := m.ReadNullable(0)
	if ok {
		t.Fatal("expected ReadNullable(0) to report absent")
	}
	_ = nullVal
}

func TestCastToNullableOfReferenceNull(t *testing.T) {
	m := newTestManager(t)
	nullStr := values.RefValue(values.String, values.NullPtr)
	out, err := m.CastToNullable(nullStr)
	if err != nil {
		t.Fatalf("CastToNullable: %v", err)
	}
	if out.Kind != values.Nullable || !out.IsNull() {
		t.Fatalf("expected a null Nullable, got %+v", out)
	}
}

func TestDictSetGetAndRemove(t *testing.T) {
	m := newTestManager(t)
	ptr, err := m.AllocateDict(values.String, values.Long, nil)
	if err != nil {
		t.Fatalf("AllocateDict: %v", err)
	}
	keyPtr, err := m.NewString("answer")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	key := values.RefValue(values.String, values.Ptr(keyPtr))
	ptr, err = m.DictSet(ptr, key, values.LongValue(42))
	if err != nil {
		t.Fatalf("DictSet: %v", err)
	}
	v, ok := m.DictGet(ptr, key)
	if !ok || v.AsInt64() != 42 {
		t.Fatalf("DictGet = %v, %v; want 42, true", v, ok)
	}

	newPtr, removed, err := m.DictRemove(ptr, key)
	if err != nil {
		t.Fatalf("DictRemove: %v", err)
	}
	if !removed {
		t.Fatal("expected key to be removed")
	}
	if m.DictCount(newPtr) != 0 {
		t.Fatalf("expected empty dict after remove, got count %d", m.DictCount(newPtr))
	}
}

func TestEachDictEntryVisitsAll(t *testing.T) {
	m := newTestManager(t)
	k1, _ := m.NewString("a")
	k2, _ := m.NewString("b")
	entries := []DictEntry{
		{Key: values.RefValue(values.String, values.Ptr(k1)), Value: values.LongValue(1)},
		{Key: values.RefValue(values.String, values.Ptr(k2)), Value: values.LongValue(2)},
	}
	ptr, err := m.AllocateDict(values.String, values.Long, entries)
	if err != nil {
		t.Fatalf("AllocateDict: %v", err)
	}
	var sum int64
	count := 0
	m.EachDictEntry(ptr, func(k, v values.Value) bool {
		sum += v.AsInt64()
		count++
		return true
	})
	if count != 2 || sum != 3 {
		t.Fatalf("count=%d sum=%d, want 2 and 3", count, sum)
	}
}

func TestStructSignatureAndFieldAccess(t *testing.T) {
	m := newTestManager(t)
	def := values.LongValue(0)
	sigPtr, err := m.AllocateSignature([]FieldDecl{
		{Name: "x", Kind: values.Long, HasDefault: true, Default: &def},
		{Name: "y", Kind: values.Long},
	})
	if err != nil {
		t.Fatalf("AllocateSignature: %v", err)
	}
	instPtr, err := m.NewStruct(sigPtr)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	names := m.FieldNames(instPtr)
	if len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Fatalf("FieldNames = %v", names)
	}
	if err := m.WriteField(instPtr, "y", values.LongValue(99)); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	v, err := m.ReadField(instPtr, "y")
	if err != nil {
		t.Fatalf("ReadField: %v", err)
	}
	if v.AsInt64() != 99 {
		t.Fatalf("y = %d, want 99", v.AsInt64())
	}

	xv, err := m.ReadField(instPtr, "x")
	if err != nil {
		t.Fatalf("ReadField(x): %v", err)
	}
	if xv.AsInt64() != 0 {
		t.Fatalf("x default = %d, want 0", xv.AsInt64())
	}
}

// TestStructFieldPointerRewrittenOnRealloc checks spec §4.2's realloc
// contract: when a string reachable only through a struct field grows
// past its capacity and relocates, the struct's field must be updated
// to the new pointer rather than left dangling at the freed block.
func TestStructFieldPointerRewrittenOnRealloc(t *testing.T) {
	m := newTestManager(t)
	sigPtr, err := m.AllocateSignature([]FieldDecl{
		{Name: "label", Kind: values.String},
	})
	if err != nil {
		t.Fatalf("AllocateSignature: %v", err)
	}
	instPtr, err := m.NewStruct(sigPtr)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}

	strPtr, err := m.NewString("short")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	if err := m.WriteField(instPtr, "label", values.RefValue(values.String, values.Ptr(strPtr))); err != nil {
		t.Fatalf("WriteField: %v", err)
	}

	newPtr, err := m.StoreString(strPtr, "a much longer replacement that forces a relocation")
	if err != nil {
		t.Fatalf("StoreString: %v", err)
	}
	if newPtr == strPtr {
		t.Fatal("expected StoreString to relocate to a new block")
	}

	v, err := m.ReadField(instPtr, "label")
	if err != nil {
		t.Fatalf("ReadField: %v", err)
	}
	if uint32(v.Ptr) != newPtr {
		t.Fatalf("label field ptr = %d, want relocated ptr %d", uint32(v.Ptr), newPtr)
	}
	if got := m.ReadString(uint32(v.Ptr)); got != "a much longer replacement that forces a relocation" {
		t.Fatalf("ReadString via rewritten field = %q", got)
	}
}

func TestTupleAllocateAndRead(t *testing.T) {
	m := newTestManager(t)
	ptr, err := m.AllocateTuple([]TupleItem{
		{Name: "", Value: values.LongValue(1)},
		{Name: "label", Value: values.LongValue(2)},
	})
	if err != nil {
		t.Fatalf("AllocateTuple: %v", err)
	}
	items := m.ReadTuple(ptr)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Name != "" || items[0].Value.AsInt64() != 1 {
		t.Fatalf("item 0 = %+v", items[0])
	}
	if items[1].Name != "label" || items[1].Value.AsInt64() != 2 {
		t.Fatalf("item 1 = %+v", items[1])
	}
}

func TestPinKeepsValueAliveAcrossCollect(t *testing.T) {
	m := newTestManager(t)
	ptr, err := m.NewString("pinned")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	key := m.Pin(ptr)
	m.CollectScope()
	if got := m.ReadString(ptr); got != "pinned" {
		t.Fatalf("pinned string did not survive collection: got %q", got)
	}
	m.Unpin(key)
}
