package heap

import (
	"sort"

	"github.com/kestrel-run/kestrel/arena"
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/values"
)

// elemSize returns the in-line slot width for an array of elemKind:
// reference-kinded elements are stored as 4-byte pointers (spec §3
// "Arrays").
func elemSize(elemKind values.Kind) uint32 {
	if values.IsReferenceKind(elemKind) {
		return 4
	}
	return values.Size(elemKind)
}

// NewArray allocates an array block of elemKind with length elements,
// all slots zeroed (value-kinds) or set to the null sentinel
// (reference-kinds).
func (m *Manager) NewArray(elemKind values.Kind, length int) (uint32, error) {
	width := elemSize(elemKind)
	payloadLen := width * uint32(length)
	ptr, err := m.Alloc.Malloc(payloadLen, uint8(elemKind), true)
	if err != nil {
		return 0, err
	}
	if values.IsReferenceKind(elemKind) {
		buf := m.Arena.Bytes()
		for i := 0; i < length; i++ {
			writePtr32(buf, int(ptr)+i*4, 0xFFFFFFFF) // -1 sentinel
		}
	}
	return ptr, nil
}

// ArrayLen returns the element count of the array at ptr.
func (m *Manager) ArrayLen(ptr uint32) int {
	headerAddr := arena.HeaderAddr(ptr)
	buf := m.Arena.Bytes()
	total := arena.ReadLength(buf, headerAddr)
	kind := values.Kind(arena.ReadKind(buf, headerAddr))
	width := elemSize(kind)
	if width == 0 {
		return 0
	}
	return int((total - arena.HeaderSize) / width)
}

// ArrayElemKind returns the element kind encoded in the array's header.
func (m *Manager) ArrayElemKind(ptr uint32) values.Kind {
	headerAddr := arena.HeaderAddr(ptr)
	return values.Kind(arena.ReadKind(m.Arena.Bytes(), headerAddr))
}

// ArrayGet reads the element at index i from the array at ptr.
func (m *Manager) ArrayGet(ptr uint32, i int) (values.Value, error) {
	kind := m.ArrayElemKind(ptr)
	n := m.ArrayLen(ptr)
	if i < 0 || i >= n {
		return values.Value{}, sberrors.OutOfBounds(sberrors.PhaseHeap, nil, i, n)
	}
	width := elemSize(kind)
	off := int(ptr) + i*int(width)
	return m.readInline(kind, off), nil
}

// ArraySet writes v into the array at ptr, index i. If kind is a
// reference-kind, ownership of the old slot value is the caller's
// responsibility (freeing is driven by the evaluator when the old
// value is provably unreachable elsewhere).
func (m *Manager) ArraySet(ptr uint32, i int, v values.Value) error {
	kind := m.ArrayElemKind(ptr)
	n := m.ArrayLen(ptr)
	if i < 0 || i >= n {
		return sberrors.OutOfBounds(sberrors.PhaseHeap, nil, i, n)
	}
	if v.Kind != kind && kind != values.Object {
		return sberrors.TypeMismatch(sberrors.PhaseHeap, nil, "array element kind %s does not accept %s", kind, v.Kind)
	}
	width := elemSize(kind)
	off := int(ptr) + i*int(width)
	m.writeInline(kind, off, v)
	return nil
}

// Resize grows or shrinks the array at ptr to newLength elements,
// returning the (possibly relocated) pointer.
func (m *Manager) Resize(ptr uint32, newLength int) (uint32, error) {
	kind := m.ArrayElemKind(ptr)
	width := elemSize(kind)
	newPtr, err := m.Alloc.Realloc(ptr, width*uint32(newLength), uint8(kind), true)
	if err != nil {
		return 0, err
	}
	return newPtr, nil
}

// Add appends v to the end of the array at ptr.
func (m *Manager) Add(ptr uint32, v values.Value) (uint32, error) {
	n := m.ArrayLen(ptr)
	newPtr, err := m.Resize(ptr, n+1)
	if err != nil {
		return 0, err
	}
	if err := m.ArraySet(newPtr, n, v); err != nil {
		return 0, err
	}
	return newPtr, nil
}

// AddAt inserts v at index i, shifting later elements up.
func (m *Manager) AddAt(ptr uint32, i int, v values.Value) (uint32, error) {
	n := m.ArrayLen(ptr)
	if i < 0 || i > n {
		return 0, sberrors.OutOfBounds(sberrors.PhaseHeap, nil, i, n)
	}
	newPtr, err := m.Resize(ptr, n+1)
	if err != nil {
		return 0, err
	}
	for j := n; j > i; j-- {
		v2, _ := m.ArrayGet(newPtr, j-1)
		m.ArraySet(newPtr, j, v2)
	}
	m.ArraySet(newPtr, i, v)
	return newPtr, nil
}

// RemoveAt deletes the element at index i, shifting later elements down.
func (m *Manager) RemoveAt(ptr uint32, i int) (uint32, error) {
	n := m.ArrayLen(ptr)
	if i < 0 || i >= n {
		return 0, sberrors.OutOfBounds(sberrors.PhaseHeap, nil, i, n)
	}
	for j := i; j < n-1; j++ {
		v, _ := m.ArrayGet(ptr, j+1)
		m.ArraySet(ptr, j, v)
	}
	return m.Resize(ptr, n-1)
}

// IndexOf returns the first index of target, or -1.
func (m *Manager) IndexOf(ptr uint32, target values.Value) int {
	n := m.ArrayLen(ptr)
	for i := 0; i < n; i++ {
		v, _ := m.ArrayGet(ptr, i)
		if m.valueEqual(v, target) {
			return i
		}
	}
	return -1
}

// Concat returns a new array containing ptr's elements followed by
// other's elements; both must share an element kind.
func (m *Manager) Concat(ptr, other uint32) (uint32, error) {
	k1, k2 := m.ArrayElemKind(ptr), m.ArrayElemKind(other)
	if k1 != k2 {
		return 0, sberrors.TypeMismatch(sberrors.PhaseHeap, nil, "concat element kind mismatch: %s vs %s", k1, k2)
	}
	n1, n2 := m.ArrayLen(ptr), m.ArrayLen(other)
	out, err := m.NewArray(k1, n1+n2)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n1; i++ {
		v, _ := m.ArrayGet(ptr, i)
		m.ArraySet(out, i, v)
	}
	for i := 0; i < n2; i++ {
		v, _ := m.ArrayGet(other, i)
		m.ArraySet(out, n1+i, v)
	}
	return out, nil
}

// Reverse returns a new array with ptr's elements in reverse order.
func (m *Manager) Reverse(ptr uint32) (uint32, error) {
	n := m.ArrayLen(ptr)
	kind := m.ArrayElemKind(ptr)
	out, err := m.NewArray(kind, n)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		v, _ := m.ArrayGet(ptr, n-1-i)
		m.ArraySet(out, i, v)
	}
	return out, nil
}

// Distinct returns a new array containing ptr's elements with
// duplicates removed, preserving first-occurrence order.
func (m *Manager) Distinct(ptr uint32) (uint32, error) {
	n := m.ArrayLen(ptr)
	kind := m.ArrayElemKind(ptr)
	var kept []values.Value
	for i := 0; i < n; i++ {
		v, _ := m.ArrayGet(ptr, i)
		dup := false
		for _, k := range kept {
			if m.valueEqual(k, v) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, v)
		}
	}
	out, err := m.NewArray(kind, len(kept))
	if err != nil {
		return 0, err
	}
	for i, v := range kept {
		m.ArraySet(out, i, v)
	}
	return out, nil
}

// Slice returns a new array over [start, end).
func (m *Manager) Slice(ptr uint32, start, end int) (uint32, error) {
	n := m.ArrayLen(ptr)
	if start < 0 || end > n || start > end {
		return 0, sberrors.OutOfBounds(sberrors.PhaseHeap, nil, start, n)
	}
	kind := m.ArrayElemKind(ptr)
	out, err := m.NewArray(kind, end-start)
	if err != nil {
		return 0, err
	}
	for i := start; i < end; i++ {
		v, _ := m.ArrayGet(ptr, i)
		m.ArraySet(out, i-start, v)
	}
	return out, nil
}

// Range builds an Int array [start, end) stepping by +1 or -1 (spec
// §4.7 "range(start, end)").
func (m *Manager) Range(start, end int) (uint32, error) {
	step := 1
	if end < start {
		step = -1
	}
	n := (end - start) * step
	if n < 0 {
		n = 0
	}
	out, err := m.NewArray(values.Int, n)
	if err != nil {
		return 0, err
	}
	v := start
	for i := 0; i < n; i++ {
		m.ArraySet(out, i, values.IntValue(int32(v)))
		v += step
	}
	return out, nil
}

// Sort returns a new array sorted ascending by natural numeric/string
// order.
func (m *Manager) Sort(ptr uint32) (uint32, error) {
	return m.sortBy(ptr, func(a, b values.Value) bool { return m.valueLess(a, b) })
}

// SortBy sorts using an externally supplied less function (e.g. driven
// by a user lambda key selector evaluated by the dispatcher/evaluator).
func (m *Manager) SortBy(ptr uint32, less func(a, b values.Value) bool) (uint32, error) {
	return m.sortBy(ptr, less)
}

func (m *Manager) sortBy(ptr uint32, less func(a, b values.Value) bool) (uint32, error) {
	n := m.ArrayLen(ptr)
	kind := m.ArrayElemKind(ptr)
	items := make([]values.Value, n)
	for i := 0; i < n; i++ {
		items[i], _ = m.ArrayGet(ptr, i)
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	out, err := m.NewArray(kind, n)
	if err != nil {
		return 0, err
	}
	for i, v := range items {
		m.ArraySet(out, i, v)
	}
	return out, nil
}

// Select maps every element through fn into a new array of resultKind.
func (m *Manager) Select(ptr uint32, resultKind values.Kind, fn func(values.Value) (values.Value, error)) (uint32, error) {
	n := m.ArrayLen(ptr)
	out, err := m.NewArray(resultKind, n)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		v, _ := m.ArrayGet(ptr, i)
		r, err := fn(v)
		if err != nil {
			return 0, err
		}
		m.ArraySet(out, i, r)
	}
	return out, nil
}

// Where filters elements for which pred returns true.
func (m *Manager) Where(ptr uint32, pred func(values.Value) (bool, error)) (uint32, error) {
	n := m.ArrayLen(ptr)
	kind := m.ArrayElemKind(ptr)
	var kept []values.Value
	for i := 0; i < n; i++ {
		v, _ := m.ArrayGet(ptr, i)
		ok, err := pred(v)
		if err != nil {
			return 0, err
		}
		if ok {
			kept = append(kept, v)
		}
	}
	out, err := m.NewArray(kind, len(kept))
	if err != nil {
		return 0, err
	}
	for i, v := range kept {
		m.ArraySet(out, i, v)
	}
	return out, nil
}

// Any reports whether pred holds for at least one element.
func (m *Manager) Any(ptr uint32, pred func(values.Value) (bool, error)) (bool, error) {
	n := m.ArrayLen(ptr)
	for i := 0; i < n; i++ {
		v, _ := m.ArrayGet(ptr, i)
		ok, err := pred(v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// All reports whether pred holds for every element.
func (m *Manager) All(ptr uint32, pred func(values.Value) (bool, error)) (bool, error) {
	n := m.ArrayLen(ptr)
	for i := 0; i < n; i++ {
		v, _ := m.ArrayGet(ptr, i)
		ok, err := pred(v)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Extremum returns the min (or max) element by a numeric key function.
func (m *Manager) Extremum(ptr uint32, key func(values.Value) (float64, error), min bool) (values.Value, error) {
	n := m.ArrayLen(ptr)
	if n == 0 {
		return values.Value{}, sberrors.DomainError(sberrors.PhaseHeap, "extremum of empty sequence")
	}
	best, _ := m.ArrayGet(ptr, 0)
	bestKey, err := key(best)
	if err != nil {
		return values.Value{}, err
	}
	for i := 1; i < n; i++ {
		v, _ := m.ArrayGet(ptr, i)
		k, err := key(v)
		if err != nil {
			return values.Value{}, err
		}
		if (min && k < bestKey) || (!min && k > bestKey) {
			best, bestKey = v, k
		}
	}
	return best, nil
}

// Find locates the first (or last, if fromEnd) element matching pred.
// orDefault suppresses DomainError on zero matches in favor of a
// zero Value; single requires exactly one match.
func (m *Manager) Find(ptr uint32, pred func(values.Value) (bool, error), fromEnd, orDefault, single bool) (values.Value, error) {
	n := m.ArrayLen(ptr)
	var matches []values.Value
	for i := 0; i < n; i++ {
		idx := i
		if fromEnd {
			idx = n - 1 - i
		}
		v, _ := m.ArrayGet(ptr, idx)
		ok, err := pred(v)
		if err != nil {
			return values.Value{}, err
		}
		if ok {
			matches = append(matches, v)
			if !single && !fromEnd {
				break
			}
		}
	}
	if single {
		if len(matches) > 1 {
			return values.Value{}, sberrors.DomainError(sberrors.PhaseHeap, "single: sequence contains more than one matching element")
		}
		if len(matches) == 0 {
			if orDefault {
				return values.Value{}, nil
			}
			return values.Value{}, sberrors.DomainError(sberrors.PhaseHeap, "single: sequence contains no matching element")
		}
		return matches[0], nil
	}
	if len(matches) == 0 {
		if orDefault {
			return values.Value{}, nil
		}
		return values.Value{}, sberrors.DomainError(sberrors.PhaseHeap, "find: no matching element")
	}
	return matches[0], nil
}

// Count returns the number of elements for which pred holds.
func (m *Manager) Count(ptr uint32, pred func(values.Value) (bool, error)) (int, error) {
	n := m.ArrayLen(ptr)
	count := 0
	for i := 0; i < n; i++ {
		v, _ := m.ArrayGet(ptr, i)
		ok, err := pred(v)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// Sum adds every element; non-numeric element kinds raise TypeMismatch.
func (m *Manager) Sum(ptr uint32) (values.Value, error) {
	kind := m.ArrayElemKind(ptr)
	if !values.IsNumericKind(kind) {
		return values.Value{}, sberrors.TypeMismatch(sberrors.PhaseHeap, nil, "sum requires a numeric array, got %s", kind)
	}
	n := m.ArrayLen(ptr)
	var sum float64
	for i := 0; i < n; i++ {
		v, _ := m.ArrayGet(ptr, i)
		sum += v.AsFloat64()
	}
	result, err := values.Cast(values.DoubleValue(sum), kind)
	if err != nil {
		return values.DoubleValue(sum), nil
	}
	return result, nil
}

// Average divides Sum by the element count; non-numeric raises
// TypeMismatch, empty raises DomainError.
func (m *Manager) Average(ptr uint32) (float64, error) {
	kind := m.ArrayElemKind(ptr)
	if !values.IsNumericKind(kind) {
		return 0, sberrors.TypeMismatch(sberrors.PhaseHeap, nil, "average requires a numeric array, got %s", kind)
	}
	n := m.ArrayLen(ptr)
	if n == 0 {
		return 0, sberrors.DomainError(sberrors.PhaseHeap, "average of empty sequence")
	}
	var sum float64
	for i := 0; i < n; i++ {
		v, _ := m.ArrayGet(ptr, i)
		sum += v.AsFloat64()
	}
	return sum / float64(n), nil
}
