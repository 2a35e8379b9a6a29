package bytecode

import "testing"

func TestParseFDllForm(t *testing.T) {
	body := []byte("dll:files:")
	body = append(body, "KERNEL32.DLL\x00"...)
	body = append(body, "Beep\x00"...)
	body = append(body, 3)    // calling convention: stdcall
	body = append(body, 0, 0) // delay_load, load_with_altered_search_path
	body = append(body, 1)    // void byte: 1 -> Void = false
	body = append(body, 0, 1) // two params: input, output

	u := &Unit{Version: 23}
	d, err := u.ParseF(body)
	if err != nil {
		t.Fatalf("ParseF: %v", err)
	}
	if d.Module != "KERNEL32" {
		t.Errorf("Module = %q, want KERNEL32 (suffix trimmed)", d.Module)
	}
	if d.Name != "Beep" {
		t.Errorf("Name = %q, want Beep", d.Name)
	}
	if d.CallingConvention != "stdcall" {
		t.Errorf("CallingConvention = %q, want stdcall", d.CallingConvention)
	}
	if d.Void {
		t.Error("Void = true, want false")
	}
	if len(d.Params) != 2 || !d.Params[0].Input || d.Params[1].Input {
		t.Fatalf("Params = %+v", d.Params)
	}
}

func TestParseFClassSingleByte(t *testing.T) {
	u := &Unit{Version: 23}
	d, err := u.ParseF([]byte("class:+"))
	if err != nil {
		t.Fatalf("ParseF: %v", err)
	}
	if d.ClassName != "Class" {
		t.Errorf("ClassName = %q, want Class", d.ClassName)
	}
	if d.Name != "CastToType" {
		t.Errorf("Name = %q, want CastToType", d.Name)
	}
	if d.CallingConvention != "pascal" {
		t.Errorf("CallingConvention = %q, want pascal", d.CallingConvention)
	}
}

func TestParseFClassUnrecognizedTagIsSilent(t *testing.T) {
	u := &Unit{Version: 23}
	d, err := u.ParseF([]byte("class:?"))
	if err != nil {
		t.Fatalf("ParseF: %v, want no error for an unrecognized single-byte tag", err)
	}
	if d.Name != "" {
		t.Errorf("Name = %q, want empty", d.Name)
	}
}

func TestParseFClassGeneralForm(t *testing.T) {
	body := []byte("class:MyClass|MyMethod@|")
	body = append(body, 1) // calling convention: pascal
	body = append(body, 0) // void byte: 0 -> Void = true
	body = append(body, 0) // one input param

	u := &Unit{Version: 23}
	d, err := u.ParseF(body)
	if err != nil {
		t.Fatalf("ParseF: %v", err)
	}
	if d.ClassName != "MyClass" {
		t.Errorf("ClassName = %q, want MyClass", d.ClassName)
	}
	if d.Name != "MyMethod" {
		t.Errorf("Name = %q, want MyMethod", d.Name)
	}
	if !d.IsProperty {
		t.Error("IsProperty = false, want true (trailing @)")
	}
	if !d.Void {
		t.Error("Void = false, want true")
	}
}

func TestParseEOutputPrefix(t *testing.T) {
	u := &Unit{Types: []*Type{
		{Code: TCU32, Symbol: "U32"},
		{Code: TCSingle, Symbol: "Single"},
		{Code: TCString, Symbol: "String"},
	}}
	d, err := u.ParseE("2 @1 x0")
	if err != nil {
		t.Fatalf("ParseE: %v", err)
	}
	if d.Void {
		t.Error("Void = true, want false")
	}
	if d.ReturnType != u.Types[2] {
		t.Errorf("ReturnType = %v, want Types[2]", d.ReturnType)
	}
	if len(d.Params) != 2 {
		t.Fatalf("Params = %+v", d.Params)
	}
	// A leading '@' marks an output parameter (spec's stated direction).
	if d.Params[0].Input {
		t.Error("Params[0].Input = true, want false (leading @ means output)")
	}
	if d.Params[0].Type != u.Types[1] {
		t.Errorf("Params[0].Type = %v, want Types[1]", d.Params[0].Type)
	}
	if !d.Params[1].Input {
		t.Error("Params[1].Input = false, want true")
	}
	if d.Params[1].Type != u.Types[0] {
		t.Errorf("Params[1].Type = %v, want Types[0]", d.Params[1].Type)
	}
}

func TestParseEVoid(t *testing.T) {
	u := &Unit{Types: []*Type{{Code: TCU32, Symbol: "U32"}}}
	d, err := u.ParseE("-1 x0")
	if err != nil {
		t.Fatalf("ParseE: %v", err)
	}
	if !d.Void {
		t.Error("Void = false, want true for a negative return token")
	}
	if d.ReturnType != nil {
		t.Errorf("ReturnType = %v, want nil", d.ReturnType)
	}
}
