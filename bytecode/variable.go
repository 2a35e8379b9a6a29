package bytecode

import (
	"github.com/ifps-tools/ifpsdump/errs"
)

// integerWidths gives the nominal bit count and signedness used for the
// wrap-on-assignment rule, for every fixed-width integer primitive.
var integerWidths = map[TypeCode]struct {
	bits   uint
	signed bool
}{
	TCU08: {8, false}, TCS08: {8, true},
	TCU16: {16, false}, TCS16: {16, true},
	TCU32: {32, false}, TCS32: {32, true},
	TCS64: {64, true},
}

// Variable is one variable cell: a type descriptor, the variant spec used
// to display it, and a payload whose shape depends on the type.
//
//   - Non-container primitives: a single scalar under key 0.
//   - Array: a sparse map from non-negative index to element.
//   - StaticArray / Record: a sparse map, bounded by size / member count.
//   - Set: a single integer bitmask, with keyed writes by bit position
//     (SetBit); reads return the whole bitmask.
type Variable struct {
	Type    *Type
	Variant Variant
	Name    string

	scalar  any
	cells   map[int]any
	bitmask uint64
}

func newVariable(t *Type, v Variant, name string) *Variable {
	cell := &Variable{Type: t, Variant: v, Name: name}
	if t.Code == TCSet {
		cell.bitmask = 0
	} else if t.Container() {
		cell.cells = map[int]any{}
	} else {
		cell.scalar = t.Default(0)
	}
	return cell
}

func (v *Variable) keyLimit() int {
	switch v.Type.Code {
	case TCArray:
		return 1 << 32
	case TCStaticArray:
		return int(v.Type.ArraySize)
	case TCRecord:
		return len(v.Type.Members)
	default:
		return 1
	}
}

func (v *Variable) memberType(key int) *Type {
	switch v.Type.Code {
	case TCArray, TCStaticArray:
		return v.Type.Element
	case TCRecord:
		if key >= 0 && key < len(v.Type.Members) {
			return v.Type.Members[key]
		}
		return nil
	default:
		return v.Type
	}
}

// Get reads the value at key (ignored for non-container types). For a Set,
// key is ignored too and the raw bitmask is returned; single bits are not
// read by position. For an unkeyed container read, use GetAll.
func (v *Variable) Get(key int) (any, error) {
	if v.Type.Code == TCSet {
		return v.bitmask, nil
	}
	if !v.Type.Container() {
		return v.scalar, nil
	}
	if key < 0 || key >= v.keyLimit() {
		return nil, errs.IndexOutOfRange(key, v.keyLimit())
	}
	if cell, ok := v.cells[key]; ok {
		return cell, nil
	}
	return v.memberType(key).Default(key), nil
}

// GetAll returns the dense sequence [get(k) for k in 0..max_key] for an
// unkeyed container read, or the raw bitmask for a Set. max_key is the
// highest written key; for StaticArray and Record it is at least size-1 /
// member count-1, so those always come back at full length.
func (v *Variable) GetAll() (any, error) {
	if v.Type.Code == TCSet {
		return v.bitmask, nil
	}
	if !v.Type.Container() {
		return v.scalar, nil
	}
	maxKey := -1
	for k := range v.cells {
		if k > maxKey {
			maxKey = k
		}
	}
	if v.Type.Code != TCArray {
		if limit := v.keyLimit(); limit-1 > maxKey {
			maxKey = limit - 1
		}
	}
	out := make([]any, maxKey+1)
	for k := 0; k <= maxKey; k++ {
		val, err := v.Get(k)
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}

// SetBit flips bit index of a Set variable to value.
func (v *Variable) SetBit(index int, value bool) error {
	if v.Type.Code != TCSet {
		return errs.TypeMismatch(v.Type.String(), value)
	}
	if index < 0 || uint32(index) >= v.Type.SetBits {
		return errs.IndexOutOfRange(index, int(v.Type.SetBits))
	}
	mask := uint64(1) << uint(index)
	if value {
		v.bitmask |= mask
	} else {
		// Clearing an already-clear bit is a no-op, same as clearing a set
		// one: both just apply the mask directly.
		v.bitmask &^= mask
	}
	return nil
}

// SetMask replaces the whole bitmask of a Set variable.
func (v *Variable) SetMask(mask uint64) error {
	if v.Type.Code != TCSet {
		return errs.TypeMismatch(v.Type.String(), mask)
	}
	v.bitmask = mask
	return nil
}

// Set assigns value at key, applying the coercion and integer-wrap rules.
// key is ignored for non-container scalars.
func (v *Variable) Set(key int, value any) error {
	if v.Type.Code == TCSet {
		return errs.TypeMismatch(v.Type.String(), value)
	}
	target := v.Type
	if v.Type.Container() {
		if key < 0 || key >= v.keyLimit() {
			return errs.IndexOutOfRange(key, v.keyLimit())
		}
		target = v.memberType(key)
	}

	coerced, err := coerce(target, value)
	if err != nil {
		return err
	}
	if wrapped, ok := wrapInteger(target.Code, coerced); ok {
		coerced = wrapped
	}

	if v.Type.Container() {
		v.cells[key] = coerced
	} else {
		v.scalar = coerced
	}
	return nil
}

// SetAll assigns the whole container from an ordered sequence (an unkeyed
// container assignment).
func (v *Variable) SetAll(values []any) error {
	if !v.Type.Container() {
		return errs.TypeMismatch(v.Type.String(), values)
	}
	for i, val := range values {
		if err := v.Set(i, val); err != nil {
			return err
		}
	}
	return nil
}

// coerce applies the two permitted cross-class coercions (single-character
// text into an integer slot, integer into a Char/WideChar slot). Only int64
// and string values are class-checked: an int64 is rejected for the other
// text types, a string for non-text types; values of any other Go type are
// returned as given, without a check against target's class.
func coerce(target *Type, value any) (any, error) {
	switch v := value.(type) {
	case int64:
		if target.Code == TCChar || target.Code == TCWideChar {
			return string(rune(v)), nil
		}
		if isTextType(target.Code) {
			return nil, errs.TypeMismatch(target.String(), value)
		}
		return v, nil
	case string:
		if isTextType(target.Code) {
			return v, nil
		}
		if isIntegerType(target.Code) && len([]rune(v)) == 1 {
			return int64([]rune(v)[0]), nil
		}
		return nil, errs.TypeMismatch(target.String(), value)
	default:
		return value, nil
	}
}

func isTextType(c TypeCode) bool {
	switch c {
	case TCString, TCPChar, TCChar, TCWideString, TCUnicodeString, TCWideChar:
		return true
	default:
		return false
	}
}

func isIntegerType(c TypeCode) bool {
	_, ok := integerWidths[c]
	return ok
}

// wrapInteger applies the fixed-width integer wrap rule: unsigned values
// wrap modulo 2^B, signed values wrap modulo 2^B then re-center into
// [-2^(B-1), 2^(B-1)) by subtracting 2^B when the high bit is set. The
// truncation masks the value's two's-complement bit pattern; the sign
// re-centering is explicit.
func wrapInteger(code TypeCode, value any) (any, bool) {
	spec, ok := integerWidths[code]
	if !ok {
		return value, false
	}
	n, ok := value.(int64)
	if !ok {
		return value, false
	}

	mod := uint64(1) << spec.bits
	wrapped := uint64(n) & (mod - 1)
	if spec.bits == 64 {
		wrapped = uint64(n)
	}

	if !spec.signed {
		return int64(wrapped), true
	}
	highBit := uint64(1) << (spec.bits - 1)
	if spec.bits == 64 {
		return int64(wrapped), true
	}
	if wrapped&highBit != 0 {
		return int64(wrapped) - int64(mod), true
	}
	return int64(wrapped), true
}
