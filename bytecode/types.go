package bytecode

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ifps-tools/ifpsdump/bytecode/internal/reader"
	"github.com/ifps-tools/ifpsdump/errs"
)

// Type is a tagged-variant type-table entry: one payload field set per Code,
// selected the way a kind byte selects a populated pointer field in a
// Component Model type definition, plus the two metadata fields every
// variant carries.
type Type struct {
	Code TypeCode

	// Symbol holds the exported name for exported types; otherwise Records
	// get a synthetic RECORD{index} name and the plain scalar kinds get
	// their code name. Attributes are read for every type from format
	// version 21 on.
	Symbol     string
	Attributes []Attribute

	ClassName string // Class, ExtClass

	InterfaceGUID uuid.UUID // Interface

	SetBits uint32 // Set: bit count

	Element *Type // Array, StaticArray

	ArraySize     uint32  // StaticArray
	ArrayOffset   *uint32 // StaticArray, present only for format version >= 23

	Members []*Type // Record, in declaration order

	ProcVoid   bool             // ProcPtr
	ProcParams []DeclSpecParam // ProcPtr
}

// Width returns the byte width the value decoder and stack model use for
// this type; 0 for kinds with no entry in the width table (Set, Array,
// StaticArray, Record, and the other kinds it does not list).
func (t *Type) Width() int {
	return t.Code.Width()
}

// Primitive reports whether t is a plain scalar (no class/interface/set/
// array/record structure). ExtClass counts as primitive here, matching the
// original tool; only the unextended Class kind does not.
func (t *Type) Primitive() bool {
	switch t.Code {
	case TCClass, TCProcPtr, TCInterface, TCSet, TCStaticArray, TCArray, TCRecord:
		return false
	default:
		return true
	}
}

// Container reports whether t holds multiple keyed elements.
func (t *Type) Container() bool {
	switch t.Code {
	case TCStaticArray, TCArray, TCRecord:
		return true
	default:
		return false
	}
}

// Default returns the zero value this type's cells are initialized to. key
// selects the member type for Record; it is ignored otherwise.
func (t *Type) Default(key int) any {
	switch t.Code {
	case TCU08, TCS08, TCU16, TCS16, TCU32, TCS32, TCS64, TCReturnAddress, TCEnum:
		return int64(0)
	case TCSingle, TCDouble, TCExtended, TCCurrency:
		return 0.0
	case TCString, TCPChar, TCChar, TCWideString, TCUnicodeString, TCWideChar:
		return ""
	case TCSet:
		return uint64(0)
	case TCInterface:
		return uuid.UUID{}
	case TCArray, TCStaticArray:
		return t.Element.Default(0)
	case TCRecord:
		if key < 0 || key >= len(t.Members) {
			return nil
		}
		return t.Members[key].Default(0)
	default:
		return nil
	}
}

// Simple reports whether a Record type renders compactly on one line: all
// members are primitive, at most 10 of them, and the record is not itself
// nested inside another record's compact rendering.
func (t *Type) Simple(nested bool) bool {
	switch t.Code {
	case TCRecord:
		if nested {
			return false
		}
		if len(t.Members) > 10 {
			return false
		}
		for _, m := range t.Members {
			if !m.Primitive() {
				return false
			}
		}
		return true
	case TCArray, TCStaticArray:
		return t.Element.Simple(nested)
	default:
		return true
	}
}

// String renders t's symbol if it has one, else its display form.
func (t *Type) String() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Display(0)
}

const displayIndent = "  "

// Display renders t's structural form (independent of its symbol), indented
// by indent levels — used both for `typedef` bodies and nested record/array
// member rendering.
func (t *Type) Display(indent int) string {
	switch t.Code {
	case TCInterface:
		return fmt.Sprintf("%s%s(%s)", strings.Repeat(displayIndent, indent), t.Code, t.InterfaceGUID)
	case TCSet:
		return fmt.Sprintf("%s%s(%d)", strings.Repeat(displayIndent, indent), t.Code, t.SetBits)
	case TCArray:
		return fmt.Sprintf("%s%s[]", strings.Repeat(displayIndent, indent), elementName(t.Element))
	case TCStaticArray:
		return fmt.Sprintf("%s%s[%d]", strings.Repeat(displayIndent, indent), elementName(t.Element), t.ArraySize)
	case TCRecord:
		return t.displayRecord(indent)
	case TCProcPtr:
		return t.displayProcPtr(indent)
	default:
		return strings.Repeat(displayIndent, indent) + t.Code.String()
	}
}

func elementName(elem *Type) string {
	if elem == nil {
		return "?"
	}
	return elem.String()
}

func (t *Type) displayRecord(indent int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(displayIndent, indent))
	b.WriteString("struct {")
	if t.Simple(false) {
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}
		b.WriteString(strings.Join(parts, ", "))
	} else {
		for i, m := range t.Members {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
			b.WriteString(m.Display(indent + 1))
		}
		if len(t.Members) > 0 {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat(displayIndent, indent))
		}
	}
	b.WriteByte('}')
	return b.String()
}

func (t *Type) displayProcPtr(indent int) string {
	name := strings.Repeat(displayIndent, indent) + t.Code.String()
	args := make([]string, len(t.ProcParams))
	for i, p := range t.ProcParams {
		arg := fmt.Sprintf("Arg%d", i+1)
		if !p.Input {
			arg = "*" + arg
		}
		if p.Type != nil {
			arg = fmt.Sprintf("%s %s", p.Type, arg)
		}
		args[i] = arg
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}

// parseTypeTable decodes u.CountTypes sequential type-table entries.
func (u *Unit) parseTypeTable(r *reader.Reader) ([]*Type, error) {
	types := make([]*Type, 0, u.CountTypes)

	for k := uint32(0); k < u.CountTypes; k++ {
		raw, err := r.U8()
		if err != nil {
			return nil, err
		}
		exported := raw&0x80 != 0
		code := TypeCode(raw & 0x7F)
		if _, known := typeCodeNames[code]; !known {
			return nil, errs.UnknownTypeCode(raw)
		}

		t, err := parseTypeBody(r, types, code, k, u.Version)
		if err != nil {
			return nil, err
		}

		if exported {
			sym, err := r.ReadLengthPrefixed("latin1")
			if err != nil {
				return nil, err
			}
			t.Symbol = sym
			if u.Version <= 21 {
				if _, err := r.ReadLengthPrefixed("latin1"); err != nil {
					return nil, err
				}
			}
		}
		types = append(types, t)
		if u.Version >= 21 {
			attrs, err := u.readAttributesAgainst(r, types)
			if err != nil {
				return nil, err
			}
			t.Attributes = attrs
		}
	}
	return types, nil
}

func parseTypeBody(r *reader.Reader, types []*Type, code TypeCode, index uint32, version uint32) (*Type, error) {
	switch code {
	case TCClass, TCExtClass:
		name, err := r.ReadLengthPrefixed("latin1")
		if err != nil {
			return nil, err
		}
		return &Type{Code: code, ClassName: name}, nil

	case TCProcPtr:
		body, err := r.ReadLengthPrefixedBytes()
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return nil, errs.MalformedValue("ProcPtr type body is empty")
		}
		void := body[0] != 0
		params := make([]DeclSpecParam, len(body)-1)
		for i, b := range body[1:] {
			params[i] = DeclSpecParam{Input: b == 0}
		}
		return &Type{Code: code, ProcVoid: void, ProcParams: params}, nil

	case TCInterface:
		raw, err := r.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		guid, err := uuid.FromBytes(raw)
		if err != nil {
			return nil, errs.MalformedValue("invalid interface GUID: " + err.Error())
		}
		return &Type{Code: code, InterfaceGUID: guid}, nil

	case TCSet:
		bits, err := r.U32()
		if err != nil {
			return nil, err
		}
		return &Type{Code: code, SetBits: bits}, nil

	case TCStaticArray:
		elemIdx, err := r.U32()
		if err != nil {
			return nil, err
		}
		elem, err := resolveTypeRef(types, elemIdx)
		if err != nil {
			return nil, err
		}
		size, err := r.U32()
		if err != nil {
			return nil, err
		}
		var offset *uint32
		if version >= 23 {
			v, err := r.U32()
			if err != nil {
				return nil, err
			}
			offset = &v
		}
		return &Type{Code: code, Element: elem, ArraySize: size, ArrayOffset: offset}, nil

	case TCArray:
		elemIdx, err := r.U32()
		if err != nil {
			return nil, err
		}
		elem, err := resolveTypeRef(types, elemIdx)
		if err != nil {
			return nil, err
		}
		return &Type{Code: code, Element: elem}, nil

	case TCRecord:
		length, err := r.U32()
		if err != nil {
			return nil, err
		}
		members := make([]*Type, length)
		for i := range members {
			idx, err := r.U32()
			if err != nil {
				return nil, err
			}
			m, err := resolveTypeRef(types, idx)
			if err != nil {
				return nil, err
			}
			members[i] = m
		}
		return &Type{Code: code, Members: members, Symbol: fmt.Sprintf("RECORD%d", index)}, nil

	default:
		return &Type{Code: code, Symbol: code.String()}, nil
	}
}

func resolveTypeRef(types []*Type, index uint32) (*Type, error) {
	if int(index) >= len(types) {
		return nil, errs.ForwardReference(int(index), len(types))
	}
	return types[index], nil
}

// readAttributesAgainst decodes an attribute block, resolving type
// references against the given (possibly still-growing) type table.
// ProcPtr fields keep a function-index placeholder until
// resolveAttributeRefs runs after the function table is decoded. Newly-seen text literals are registered in the unit's shared
// string pool, the same as any other value read.
func (u *Unit) readAttributesAgainst(r *reader.Reader, types []*Type) ([]Attribute, error) {
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	attrs := make([]Attribute, count)
	for i := range attrs {
		name, err := r.ReadLengthPrefixed("latin1")
		if err != nil {
			return nil, err
		}
		fieldCount, err := r.U32()
		if err != nil {
			return nil, err
		}
		fields := make([]Value, fieldCount)
		for j := range fields {
			v, err := u.readValueAgainst(r, types)
			if err != nil {
				return nil, err
			}
			fields[j] = v
		}
		attrs[i] = Attribute{Name: name, Fields: fields}
	}
	return attrs, nil
}
