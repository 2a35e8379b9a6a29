package bytecode

import (
	"strings"
	"testing"

	"github.com/ifps-tools/ifpsdump/bytecode/internal/reader"
)

func buildSimpleFunction(t *testing.T, u *Unit, name string) *Function {
	t.Helper()
	var b []byte
	b = append(b, byte(OpJump))
	b = append(b, 1, 0, 0, 0) // jump to offset 6 (the Ret)
	b = append(b, byte(OpNop))
	b = append(b, byte(OpRet))

	body, err := u.parseBody(reader.New(b), name)
	if err != nil {
		t.Fatalf("parseBody: %v", err)
	}
	return &Function{Name: name, Body: body}
}

func TestDisassembleFunctionIsDeterministic(t *testing.T) {
	u := &Unit{}
	fn := buildSimpleFunction(t, u, "F0")
	u.Functions = []*Function{fn}

	first, err := u.Disassemble()
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	u2 := &Unit{}
	fn2 := buildSimpleFunction(t, u2, "F0")
	u2.Functions = []*Function{fn2}
	second, err := u2.Disassemble()
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	if first != second {
		t.Fatalf("disassembly is not deterministic:\n%s\n---\n%s", first, second)
	}
}

func TestDisassembleFunctionSynthesizesJumpLabel(t *testing.T) {
	u := &Unit{}
	fn := buildSimpleFunction(t, u, "F0")
	u.Functions = []*Function{fn}

	out, err := u.Disassemble()
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.Contains(out, "JumpDestination") {
		t.Fatalf("expected a synthesized jump label, got:\n%s", out)
	}
	if !strings.Contains(out, "Begin") || !strings.Contains(out, "End") {
		t.Fatalf("expected Begin/End markers, got:\n%s", out)
	}
}

func TestDisassembleSkipsExternalFunctions(t *testing.T) {
	u := &Unit{Functions: []*Function{
		{Name: "F0", External: true, Decl: &DeclSpec{Name: "Beep", Module: "KERNEL32"}},
	}}
	out, err := u.Disassemble()
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.Contains(out, "external") {
		t.Fatalf("expected the external function to be listed, got:\n%s", out)
	}
	if strings.Contains(out, "Begin") {
		t.Fatalf("external functions should not get a Begin/End body, got:\n%s", out)
	}
}
