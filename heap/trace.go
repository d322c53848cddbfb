package heap

import "github.com/kestrel-run/kestrel/values"

// TraceRefs implements gc.Tracer: given a block's kind tag and raw
// payload, report every outgoing reference-kind pointer reachable from
// it, per the layout of spec §3.
func (m *Manager) TraceRefs(kindTag uint8, isArray bool, payload []byte, emit func(ptr uint32)) {
	kind := values.Kind(kindTag)

	if isArray {
		if !values.IsReferenceKind(kind) {
			return
		}
		for off := 0; off+4 <= len(payload); off += 4 {
			p := readPtr32(payload, off)
			if int32(p) > 0 {
				emit(p)
			}
		}
		return
	}

	switch kind {
	case values.Tuple:
		traceTuple(payload, emit)
	case values.Nullable:
		traceNullable(payload, emit)
	case values.Struct:
		m.traceStruct(payload, emit)
	case values.Dictionary:
		traceDict(payload, emit)
	case values.Array:
		// non-is-array-tagged Array kind block shouldn't occur; arrays
		// always set is-array. Nothing to trace.
	}
}

func traceTuple(payload []byte, emit func(ptr uint32)) {
	off := 0
	for off < len(payload) {
		kind := values.Kind(payload[off])
		off++
		namePtr := readPtr32(payload, off)
		if int32(namePtr) > 0 {
			emit(namePtr)
		}
		off += 4
		if values.IsReferenceKind(kind) {
			p := readPtr32(payload, off)
			if int32(p) > 0 {
				emit(p)
			}
		}
		off += int(values.Size(kind))
	}
}

func traceNullable(payload []byte, emit func(ptr uint32)) {
	if len(payload) < 1 {
		return
	}
	kind := values.Kind(payload[0])
	if values.IsReferenceKind(kind) && len(payload) >= 5 {
		p := readPtr32(payload, 1)
		if int32(p) > 0 {
			emit(p)
		}
	}
}

func (m *Manager) traceStruct(payload []byte, emit func(ptr uint32)) {
	if len(payload) < 4 {
		return
	}
	sigPtr := readPtr32(payload, 0)
	if int32(sigPtr) > 0 {
		emit(sigPtr)
	}
	fields := m.readSignature(sigPtr)

	off := 4
	for range fields {
		if off >= len(payload) {
			break
		}
		actualKind := values.Kind(payload[off])
		off++
		if values.IsReferenceKind(actualKind) && off+4 <= len(payload) {
			p := readPtr32(payload, off)
			if int32(p) > 0 {
				emit(p)
			}
		}
		off += int(values.Size(actualKind))
	}
}

func traceDict(payload []byte, emit func(ptr uint32)) {
	if len(payload) < 2 {
		return
	}
	kt := values.Kind(payload[0])
	vt := values.Kind(payload[1])
	width := int(dictEntryWidth(kt, vt))
	if width == 0 {
		return
	}
	off := 2
	for off+width <= len(payload) {
		if values.IsReferenceKind(kt) {
			p := readPtr32(payload, off)
			if int32(p) > 0 {
				emit(p)
			}
		}
		if values.IsReferenceKind(vt) {
			p := readPtr32(payload, off+int(values.Size(kt)))
			if int32(p) > 0 {
				emit(p)
			}
		}
		off += width
	}
}

// rewriteRefs rewrites any occurrence of oldPtr to newPtr within a
// block's reference fields, mirroring TraceRefs but as an in-place
// update (used when realloc relocates a block).
func (m *Manager) rewriteRefs(kind values.Kind, isArray bool, payload []byte, oldPtr, newPtr uint32) {
	if isArray {
		if !values.IsReferenceKind(kind) {
			return
		}
		for off := 0; off+4 <= len(payload); off += 4 {
			if readPtr32(payload, off) == oldPtr {
				writePtr32(payload, off, newPtr)
			}
		}
		return
	}

	switch kind {
	case values.Tuple:
		off := 0
		for off < len(payload) {
			ik := values.Kind(payload[off])
			off++
			if readPtr32(payload, off) == oldPtr {
				writePtr32(payload, off, newPtr)
			}
			off += 4
			if values.IsReferenceKind(ik) {
				if readPtr32(payload, off) == oldPtr {
					writePtr32(payload, off, newPtr)
				}
			}
			off += int(values.Size(ik))
		}
	case values.Nullable:
		if len(payload) < 5 {
			return
		}
		ik := values.Kind(payload[0])
		if values.IsReferenceKind(ik) && readPtr32(payload, 1) == oldPtr {
			writePtr32(payload, 1, newPtr)
		}
	case values.Struct:
		if len(payload) < 4 {
			return
		}
		sigPtr := readPtr32(payload, 0)
		if sigPtr == oldPtr {
			writePtr32(payload, 0, newPtr)
			sigPtr = newPtr
		}
		fields := m.readSignature(sigPtr)

		off := 4
		for range fields {
			if off >= len(payload) {
				break
			}
			actualKind := values.Kind(payload[off])
			off++
			if values.IsReferenceKind(actualKind) && off+4 <= len(payload) {
				if readPtr32(payload, off) == oldPtr {
					writePtr32(payload, off, newPtr)
				}
			}
			off += int(values.Size(actualKind))
		}
	case values.Dictionary:
		if len(payload) < 2 {
			return
		}
		kt := values.Kind(payload[0])
		vt := values.Kind(payload[1])
		width := int(dictEntryWidth(kt, vt))
		if width == 0 {
			return
		}
		off := 2
		for off+width <= len(payload) {
			if values.IsReferenceKind(kt) && readPtr32(payload, off) == oldPtr {
				writePtr32(payload, off, newPtr)
			}
			if values.IsReferenceKind(vt) {
				voff := off + int(values.Size(kt))
				if readPtr32(payload, voff) == oldPtr {
					writePtr32(payload, voff, newPtr)
				}
			}
			off += width
		}
	}
}
