package values

import "testing"

func TestAsInt64WidensUnsigned(t *testing.T) {
	v := ByteValue(200)
	if got := v.AsInt64(); got != 200 {
		t.Fatalf("AsInt64() = %d, want 200", got)
	}
}

func TestIsNullOnlyForReferenceKinds(t *testing.T) {
	nullRef := RefValue(String, NullPtr)
	if !nullRef.IsNull() {
		t.Fatal("expected null reference-kind value to report IsNull")
	}
	nonNullRef := RefValue(String, Ptr(4))
	if nonNullRef.IsNull() {
		t.Fatal("expected non-null pointer to report not-null")
	}
	num := LongValue(0)
	if num.IsNull() {
		t.Fatal("value-kind Long should never report IsNull")
	}
}

func TestCastNumericNarrowingOverflow(t *testing.T) {
	v := LongValue(1000)
	if _, err := Cast(v, Sbyte); err == nil {
		t.Fatal("expected overflow casting 1000 to Sbyte")
	}
	ok := LongValue(100)
	out, err := Cast(ok, Sbyte)
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if out.Kind != Sbyte || out.AsInt64() != 100 {
		t.Fatalf("unexpected cast result: %+v", out)
	}
}

func TestCastFloatToIntRejectsFraction(t *testing.T) {
	v := DoubleValue(3.5)
	if _, err := Cast(v, Int); err == nil {
		t.Fatal("expected error casting a fractional Double to Int")
	}
	whole := DoubleValue(4.0)
	out, err := Cast(whole, Int)
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if out.AsInt64() != 4 {
		t.Fatalf("got %d, want 4", out.AsInt64())
	}
}

func TestCastFromStringParsesNumeric(t *testing.T) {
	v := Value{Kind: String, Str: " 42 "}
	out, err := Cast(v, Long)
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if out.AsInt64() != 42 {
		t.Fatalf("got %d, want 42", out.AsInt64())
	}
}

func TestCastToStringStringifies(t *testing.T) {
	v := LongValue(7)
	out, err := Cast(v, String)
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if out.Str != "7" {
		t.Fatalf("got %q, want %q", out.Str, "7")
	}
}

func TestInferKindMatchesHostLiteralTypes(t *testing.T) {
	cases := []struct {
		v    any
		want Kind
	}{
		{int32(1), Int},
		{int64(1), Long},
		{"s", String},
		{true, Bool},
		{3.14, Double},
	}
	for _, c := range cases {
		if got := InferKind(c.v); got != c.want {
			t.Errorf("InferKind(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestIsNumericAndUnsignedKind(t *testing.T) {
	if !IsNumericKind(Long) || !IsNumericKind(Double) {
		t.Fatal("expected Long and Double to be numeric kinds")
	}
	if IsNumericKind(String) || IsNumericKind(Bool) {
		t.Fatal("String and Bool must not be numeric kinds")
	}
	if !IsUnsignedKind(Ulong) || IsUnsignedKind(Long) {
		t.Fatal("unsigned-kind classification is wrong")
	}
}
