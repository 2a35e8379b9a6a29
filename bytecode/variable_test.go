package bytecode

import "testing"

func TestVariableScalarGetSet(t *testing.T) {
	v := newVariable(&Type{Code: TCU32}, Variant{Kind: VariantGlobal, Slot: 0}, "n")
	if got, _ := v.Get(0); got != int64(0) {
		t.Fatalf("default = %v, want 0", got)
	}
	if err := v.Set(0, int64(42)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := v.Get(0)
	if err != nil || got != int64(42) {
		t.Fatalf("Get = %v, %v, want 42", got, err)
	}
}

func TestVariableUnsignedWrap(t *testing.T) {
	v := newVariable(&Type{Code: TCU08}, Variant{}, "")
	if err := v.Set(0, int64(256)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := v.Get(0)
	if got != int64(0) {
		t.Fatalf("U08 wrap of 256 = %v, want 0", got)
	}
}

func TestVariableSignedWrap(t *testing.T) {
	v := newVariable(&Type{Code: TCS08}, Variant{}, "")
	if err := v.Set(0, int64(127+1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := v.Get(0)
	if got != int64(-128) {
		t.Fatalf("S08 wrap of 128 = %v, want -128", got)
	}
}

func TestVariableArrayDenseGetAll(t *testing.T) {
	arr := &Type{Code: TCArray, Element: &Type{Code: TCU32}}
	v := newVariable(arr, Variant{}, "")
	if err := v.Set(0, int64(10)); err != nil {
		t.Fatal(err)
	}
	if err := v.Set(2, int64(30)); err != nil {
		t.Fatal(err)
	}
	all, err := v.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	seq, ok := all.([]any)
	if !ok {
		t.Fatalf("GetAll returned %T, want []any", all)
	}
	// Inclusive range 0..max_key: index 1 (never written) still appears,
	// defaulted, because it is <= the highest key present.
	if len(seq) != 3 {
		t.Fatalf("len(GetAll()) = %d, want 3", len(seq))
	}
	if seq[0] != int64(10) || seq[1] != int64(0) || seq[2] != int64(30) {
		t.Fatalf("GetAll() = %v", seq)
	}
}

func TestVariableStaticArrayGetAllCoversFullSize(t *testing.T) {
	arr := &Type{Code: TCStaticArray, Element: &Type{Code: TCU32}, ArraySize: 4}
	v := newVariable(arr, Variant{}, "")
	all, err := v.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	seq, ok := all.([]any)
	if !ok || len(seq) != 4 {
		t.Fatalf("GetAll() = %v, want 4 defaulted elements", all)
	}
}

func TestVariableSetOutOfRange(t *testing.T) {
	arr := &Type{Code: TCStaticArray, Element: &Type{Code: TCU32}, ArraySize: 2}
	v := newVariable(arr, Variant{}, "")
	if err := v.Set(5, int64(1)); err == nil {
		t.Fatal("expected an index-out-of-range error")
	}
}

func TestVariableSetClass(t *testing.T) {
	v := newVariable(&Type{Code: TCString}, Variant{}, "")
	if err := v.Set(0, int64(5)); err == nil {
		t.Fatal("expected a type-mismatch error assigning an integer to a String")
	}
}

func TestVariableCharIntegerCoercion(t *testing.T) {
	v := newVariable(&Type{Code: TCU08}, Variant{}, "")
	if err := v.Set(0, "A"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := v.Get(0)
	if got != int64('A') {
		t.Fatalf("Get = %v, want %d", got, 'A')
	}
}

func TestVariableSetBitNoopOnAlreadyClear(t *testing.T) {
	v := newVariable(&Type{Code: TCSet, SetBits: 8}, Variant{}, "")
	if err := v.SetBit(3, false); err != nil {
		t.Fatalf("SetBit: %v", err)
	}
	mask, _ := v.Get(0)
	if mask != uint64(0) {
		t.Fatalf("bitmask = %v, want 0", mask)
	}
}
