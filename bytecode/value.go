package bytecode

import (
	"fmt"
	"math"

	"github.com/ifps-tools/ifpsdump/bytecode/internal/reader"
	"github.com/ifps-tools/ifpsdump/errs"
)

// Value is a decoded literal: a type reference paired with its payload. The
// payload is one of int64, float64, string, []byte, uint64 (a Set bitmask),
// or *Function (for a ProcPtr literal).
type Value struct {
	Type    *Type
	Payload any
}

// String renders the value the way an operand does: a function reference is
// prefixed with '&', strings are quoted, raw bytes are printed in hex, and
// everything else is Go's %v form.
func (v Value) String() string {
	if fn, ok := v.Payload.(*Function); ok {
		return "&" + fn.Reference()
	}
	if s, ok := v.Payload.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	if b, ok := v.Payload.([]byte); ok {
		return fmt.Sprintf("%x", b)
	}
	return fmt.Sprintf("%v", v.Payload)
}

// Attribute is a name plus an ordered tuple of literal field values.
type Attribute struct {
	Name   string
	Fields []Value
}

// readValue reads a 4-byte LE type index against the unit's fully-populated
// type table, then dispatches on that type's code.
func (u *Unit) readValue(r *reader.Reader) (Value, error) {
	return u.readValueAgainst(r, u.Types)
}

// readValueAgainst is the same decode, but resolves the type index against
// an explicit (possibly partially built) type table — used while the type
// table itself is still being decoded, since a ProcPtr attribute value can
// in principle be read before the table that contains it is complete.
func (u *Unit) readValueAgainst(r *reader.Reader, types []*Type) (Value, error) {
	idx, err := r.U32()
	if err != nil {
		return Value{}, err
	}
	typ, err := resolveTypeRef(types, idx)
	if err != nil {
		return Value{}, err
	}

	var payload any
	switch typ.Code {
	case TCU08:
		v, err := r.U8()
		if err != nil {
			return Value{}, err
		}
		payload = int64(v)
	case TCS08:
		v, err := r.I8()
		if err != nil {
			return Value{}, err
		}
		payload = int64(v)
	case TCU16:
		v, err := r.U16()
		if err != nil {
			return Value{}, err
		}
		payload = int64(v)
	case TCS16:
		v, err := r.I16()
		if err != nil {
			return Value{}, err
		}
		payload = int64(v)
	case TCU32:
		v, err := r.U32()
		if err != nil {
			return Value{}, err
		}
		payload = int64(v)
	case TCS32:
		v, err := r.I32()
		if err != nil {
			return Value{}, err
		}
		payload = int64(v)
	case TCS64:
		v, err := r.I64()
		if err != nil {
			return Value{}, err
		}
		payload = v
	case TCSingle:
		v, err := r.F32()
		if err != nil {
			return Value{}, err
		}
		payload = float64(v)
	case TCDouble:
		v, err := r.F64()
		if err != nil {
			return Value{}, err
		}
		payload = v
	case TCExtended:
		raw, err := r.ReadBytes(10)
		if err != nil {
			return Value{}, err
		}
		v, err := decodeExtended(raw)
		if err != nil {
			return Value{}, err
		}
		payload = v
	case TCString, TCPChar:
		s, err := r.ReadLengthPrefixed(u.codec)
		if err != nil {
			return Value{}, err
		}
		u.addString(s)
		payload = s
	case TCWideString, TCUnicodeString:
		s, err := r.ReadLengthPrefixedUTF16()
		if err != nil {
			return Value{}, err
		}
		u.addString(s)
		payload = s
	case TCChar:
		b, err := r.U8()
		if err != nil {
			return Value{}, err
		}
		payload = string(rune(b))
	case TCWideChar:
		v, err := r.U16()
		if err != nil {
			return Value{}, err
		}
		payload = string(rune(v))
	case TCProcPtr:
		k, err := r.U32()
		if err != nil {
			return Value{}, err
		}
		payload = &functionRef{index: int(k) - 1}
	case TCSet:
		n := (typ.SetBits + 7) / 8
		raw, err := r.ReadBytes(int(n))
		if err != nil {
			return Value{}, err
		}
		var mask uint64
		for i := len(raw) - 1; i >= 0; i-- {
			mask = mask<<8 | uint64(raw[i])
		}
		payload = mask
	case TCCurrency:
		v, err := r.U64()
		if err != nil {
			return Value{}, err
		}
		payload = float64(v) / 10000
	default:
		width := typ.Width()
		if width > 0 {
			raw, err := r.ReadBytes(width)
			if err != nil {
				return Value{}, err
			}
			payload = raw
		} else {
			return Value{}, errs.MalformedValue(fmt.Sprintf("unable to read a value of type %s", typ))
		}
	}

	return Value{Type: typ, Payload: payload}, nil
}

// functionRef is a placeholder for a ProcPtr literal's function index,
// resolved to the real *Function once the function table has been fully
// decoded (the same two-pass approach the Call operand uses).
type functionRef struct {
	index int
}

// decodeExtended decodes a 10-byte 80-bit extended-precision float.
func decodeExtended(data []byte) (float64, error) {
	if len(data) != 10 {
		return 0, errs.MalformedValue(fmt.Sprintf("extended float needs 10 bytes, got %d", len(data)))
	}
	var raw uint64
	for i := 7; i >= 0; i-- {
		raw = raw<<8 | uint64(data[i])
	}
	hi := uint16(data[8]) | uint16(data[9])<<8

	sign := hi>>15 != 0
	exponent := int(hi & 0x7FFF)
	mantissa := raw

	signMul := 1.0
	if sign {
		signMul = -1.0
	}

	switch {
	case exponent == 0 && mantissa == 0:
		return signMul * 0, nil
	case exponent == 0:
		return signMul * (float64(mantissa) / math.Exp2(64)) * math.Exp2(-16382), nil
	case exponent == 0x7FFF && mantissa == 0:
		return signMul * math.Inf(1), nil
	case exponent == 0x7FFF:
		return math.NaN(), nil
	default:
		return signMul * (float64(mantissa) / math.Exp2(64)) * math.Exp2(float64(exponent-16383)), nil
	}
}
