// Package values implements the runtime's tagged value model: the closed
// Kind enumeration, the Value variant, and kind inference/coercion rules
// (spec §3 "Value kinds", §4.4 "Value Coercion and Type Service").
package values

import "fmt"

// Kind is the runtime type tag carried by every value and every heap
// block header. The enumeration is closed: evaluator, GC, and
// serializer dispatch exhaustively over it.
type Kind uint8

const (
	Int Kind = iota
	Uint
	Long
	Ulong
	Short
	UShort
	Byte
	Sbyte
	Float
	Double
	Decimal
	Bool
	Char
	String
	IntPtr
	Reference
	Array
	Tuple
	Object
	Enum
	Nullable
	Dictionary
	Struct
	Class
	DateTime
	TimeSpan

	numKinds
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "Int"
	case Uint:
		return "Uint"
	case Long:
		return "Long"
	case Ulong:
		return "Ulong"
	case Short:
		return "Short"
	case UShort:
		return "UShort"
	case Byte:
		return "Byte"
	case Sbyte:
		return "Sbyte"
	case Float:
		return "Float"
	case Double:
		return "Double"
	case Decimal:
		return "Decimal"
	case Bool:
		return "Bool"
	case Char:
		return "Char"
	case String:
		return "String"
	case IntPtr:
		return "IntPtr"
	case Reference:
		return "Reference"
	case Array:
		return "Array"
	case Tuple:
		return "Tuple"
	case Object:
		return "Object"
	case Enum:
		return "Enum"
	case Nullable:
		return "Nullable"
	case Dictionary:
		return "Dictionary"
	case Struct:
		return "Struct"
	case Class:
		return "Class"
	case DateTime:
		return "DateTime"
	case TimeSpan:
		return "TimeSpan"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Valid reports whether k is a member of the closed enumeration.
func (k Kind) Valid() bool {
	return k < numKinds
}

// IsReferenceKind classifies k per spec §3: reference-kinds are stored
// as a 4-byte heap offset to a block; everything else is a value-kind
// stored in-line.
func IsReferenceKind(k Kind) bool {
	switch k {
	case String, Array, Tuple, Object, Enum, Nullable, Dictionary, Struct, Class:
		return true
	default:
		return false
	}
}

// IsNumericKind reports whether k participates in arithmetic promotion.
func IsNumericKind(k Kind) bool {
	switch k {
	case Int, Uint, Long, Ulong, Short, UShort, Byte, Sbyte, Float, Double, Decimal:
		return true
	default:
		return false
	}
}

// IsIntegerKind reports whether k is an integral numeric kind.
func IsIntegerKind(k Kind) bool {
	switch k {
	case Int, Uint, Long, Ulong, Short, UShort, Byte, Sbyte:
		return true
	default:
		return false
	}
}

// IsUnsignedKind reports whether k is an unsigned integral kind.
func IsUnsignedKind(k Kind) bool {
	switch k {
	case Uint, Ulong, UShort, Byte:
		return true
	default:
		return false
	}
}

// Size returns the in-line storage size in bytes for value-kinds, and 4
// (a heap pointer/handle) for reference-kinds. Char is fixed at 2 bytes
// per the open question in the specification's design notes, resolved
// here for portability across encoders/decoders/GC/serialization.
func Size(k Kind) uint32 {
	switch k {
	case Byte, Sbyte, Bool:
		return 1
	case Short, UShort, Char:
		return 2
	case Int, Uint, Float, IntPtr:
		return 4
	case Long, Ulong, Double, DateTime, TimeSpan:
		return 8
	case Decimal:
		return 16
	default:
		if IsReferenceKind(k) {
			return 4 // heap pointer or -1 sentinel
		}
		return 4
	}
}
