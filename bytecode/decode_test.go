package bytecode

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// containerBuilder assembles a minimal IFPS container byte-by-byte, the way
// a hand-crafted fixture for a binary format has to be built field-by-field
// rather than through any higher-level encoder (the encoder side of this
// format is out of scope).
type containerBuilder struct {
	bytes.Buffer
}

func (b *containerBuilder) u8(v uint8)  { b.WriteByte(v) }
func (b *containerBuilder) u32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}
func (b *containerBuilder) lengthPrefixed(s string) {
	b.u32(uint32(len(s)))
	b.WriteString(s)
}

func newHeader(version, countTypes, countFunctions, countVariables uint32) *containerBuilder {
	b := &containerBuilder{}
	b.WriteString("IFPS")
	b.u32(version)
	b.u32(countTypes)
	b.u32(countFunctions)
	b.u32(countVariables)
	b.u32(0) // Entry
	b.u32(0) // ImportSize
	return b
}

func TestParseUnitEmpty(t *testing.T) {
	b := newHeader(23, 0, 0, 0)
	u, err := ParseUnit(b.Bytes())
	if err != nil {
		t.Fatalf("ParseUnit: %v", err)
	}
	if len(u.Types) != 0 || len(u.Functions) != 0 || len(u.Variables) != 0 {
		t.Fatalf("expected an empty unit, got %+v", u)
	}
	if u.Version != 23 {
		t.Fatalf("Version = %d, want 23", u.Version)
	}
}

func TestParseUnitTruncatedHeader(t *testing.T) {
	_, err := ParseUnit([]byte{'I', 'F', 'P', 'S'})
	if err == nil {
		t.Fatal("expected an error for a truncated header")
	}
}

func TestParseUnitBadMagic(t *testing.T) {
	b := newHeader(23, 0, 0, 0)
	data := b.Bytes()
	data[0] = 'X'
	if _, err := ParseUnit(data); err == nil {
		t.Fatal("expected an error for a bad magic")
	}
}

func TestParseUnitUnsupportedVersion(t *testing.T) {
	for _, v := range []uint32{11, 24} {
		b := newHeader(v, 0, 0, 0)
		if _, err := ParseUnit(b.Bytes()); err == nil {
			t.Fatalf("version %d: expected an unsupported-version error", v)
		}
	}
}

func TestParseUnitExportedType(t *testing.T) {
	b := newHeader(23, 1, 0, 0)
	b.u8(byte(TCU32) | 0x80) // exported U32
	b.lengthPrefixed("MyInt")
	b.u32(0) // attribute count
	u, err := ParseUnit(b.Bytes())
	if err != nil {
		t.Fatalf("ParseUnit: %v", err)
	}
	if len(u.Types) != 1 {
		t.Fatalf("expected 1 type, got %d", len(u.Types))
	}
	if u.Types[0].Code != TCU32 {
		t.Fatalf("Code = %v, want TCU32", u.Types[0].Code)
	}
	if u.Types[0].Symbol != "MyInt" {
		t.Fatalf("Symbol = %q, want MyInt", u.Types[0].Symbol)
	}
}

func TestParseUnitForwardReference(t *testing.T) {
	b := newHeader(23, 1, 0, 0)
	b.u8(byte(TCArray)) // not exported
	b.u32(5)            // element type index 5: doesn't exist yet
	if _, err := ParseUnit(b.Bytes()); err == nil {
		t.Fatal("expected a forward-reference error")
	}
}

func TestParseUnitGlobalVariable(t *testing.T) {
	b := newHeader(23, 1, 0, 1)
	b.u8(byte(TCU32))
	b.u32(0) // attribute count
	b.u32(0) // variable's type index
	b.u8(1)  // name-present flag
	b.lengthPrefixed("Counter")
	u, err := ParseUnit(b.Bytes())
	if err != nil {
		t.Fatalf("ParseUnit: %v", err)
	}
	if len(u.Variables) != 1 {
		t.Fatalf("expected 1 variable, got %d", len(u.Variables))
	}
	if u.Variables[0].Name != "Counter" {
		t.Fatalf("Name = %q, want Counter", u.Variables[0].Name)
	}
	if u.Variables[0].Type.Code != TCU32 {
		t.Fatalf("Type.Code = %v, want TCU32", u.Variables[0].Type.Code)
	}
}
