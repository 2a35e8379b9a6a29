package bytecode

// Magic is the 4-byte container signature.
var Magic = [4]byte{'I', 'F', 'P', 'S'}

// Supported container format version range, inclusive.
const (
	MinVersion uint32 = 12
	MaxVersion uint32 = 23
)

// HeaderSize is the fixed size of the container header in bytes.
const HeaderSize = 28

// TypeCode identifies the kind of a type-table entry. The low 7 bits of the
// on-disk type byte; the high bit is the exported flag, stripped before
// dispatch.
type TypeCode byte

const (
	TCReturnAddress       TypeCode = 0x00
	TCU08                 TypeCode = 0x01
	TCS08                 TypeCode = 0x02
	TCU16                 TypeCode = 0x03
	TCS16                 TypeCode = 0x04
	TCU32                 TypeCode = 0x05
	TCS32                 TypeCode = 0x06
	TCSingle              TypeCode = 0x07
	TCDouble              TypeCode = 0x08
	TCExtended            TypeCode = 0x09
	TCString              TypeCode = 0x0A
	TCRecord              TypeCode = 0x0B
	TCArray               TypeCode = 0x0C
	TCPointer             TypeCode = 0x0D
	TCPChar               TypeCode = 0x0E
	TCResourcePointer     TypeCode = 0x0F
	TCVariant             TypeCode = 0x10
	TCS64                 TypeCode = 0x11
	TCChar                TypeCode = 0x12
	TCWideString          TypeCode = 0x13
	TCWideChar            TypeCode = 0x14
	TCProcPtr             TypeCode = 0x15
	TCStaticArray         TypeCode = 0x16
	TCSet                 TypeCode = 0x17
	TCCurrency            TypeCode = 0x18
	TCClass               TypeCode = 0x19
	TCInterface           TypeCode = 0x1A
	TCNotificationVariant TypeCode = 0x1B
	TCUnicodeString       TypeCode = 0x1C
	TCEnum                TypeCode = 0x81
	TCType                TypeCode = 0x82
	TCExtClass            TypeCode = 0x83
)

var typeCodeNames = map[TypeCode]string{
	TCReturnAddress:       "ReturnAddress",
	TCU08:                 "U08",
	TCS08:                 "S08",
	TCU16:                 "U16",
	TCS16:                 "S16",
	TCU32:                 "U32",
	TCS32:                 "S32",
	TCSingle:              "Single",
	TCDouble:              "Double",
	TCExtended:            "Extended",
	TCString:              "String",
	TCRecord:              "Record",
	TCArray:                "Array",
	TCPointer:             "Pointer",
	TCPChar:               "PChar",
	TCResourcePointer:     "ResourcePointer",
	TCVariant:             "Variant",
	TCS64:                 "S64",
	TCChar:                "Char",
	TCWideString:          "WideString",
	TCWideChar:            "WideChar",
	TCProcPtr:             "ProcPtr",
	TCStaticArray:         "StaticArray",
	TCSet:                 "Set",
	TCCurrency:            "Currency",
	TCClass:               "Class",
	TCInterface:           "Interface",
	TCNotificationVariant: "NotificationVariant",
	TCUnicodeString:       "UnicodeString",
	TCEnum:                "Enum",
	TCType:                "Type",
	TCExtClass:            "ExtClass",
}

// String returns the type code's symbolic name, or "TC?" for an
// unrecognized code.
func (c TypeCode) String() string {
	if s, ok := typeCodeNames[c]; ok {
		return s
	}
	return "TC?"
}

// widthTable gives the byte width the value decoder and stack model use for
// each primitive type code; zero means "no fixed width" (containers, or
// types with no direct value representation).
var widthTable = map[TypeCode]int{
	TCVariant:         16,
	TCChar:            1,
	TCS08:             1,
	TCU08:             1,
	TCWideChar:        2,
	TCS16:             2,
	TCU16:             2,
	TCWideString:      4,
	TCUnicodeString:   4,
	TCInterface:       4,
	TCClass:           4,
	TCPChar:           4,
	TCString:          4,
	TCSingle:          4,
	TCS32:             4,
	TCU32:             4,
	TCProcPtr:         12,
	TCCurrency:        8,
	TCPointer:         12,
	TCDouble:          8,
	TCS64:             8,
	TCExtended:        10,
	TCReturnAddress:   28,
}

// Width returns the byte width used by the value decoder for c, or 0 if c
// has no entry in widthTable (Set, Array, StaticArray, Record, and the other
// kinds not listed there).
func (c TypeCode) Width() int {
	return widthTable[c]
}

// Opcode is the single-byte instruction tag.
type Opcode byte

const (
	OpAssign     Opcode = 0x00
	OpCalculate  Opcode = 0x01
	OpPush       Opcode = 0x02
	OpPushVar    Opcode = 0x03
	OpPop        Opcode = 0x04
	OpCall       Opcode = 0x05
	OpJump       Opcode = 0x06
	OpJumpTrue   Opcode = 0x07
	OpJumpFalse  Opcode = 0x08
	OpRet        Opcode = 0x09
	OpStackType  Opcode = 0x0A
	OpPushType   Opcode = 0x0B
	OpCompare    Opcode = 0x0C
	OpCallVar    Opcode = 0x0D
	OpSetPtr     Opcode = 0x0E
	OpBooleanNot Opcode = 0x0F
	OpNeg        Opcode = 0x10
	OpSetFlag    Opcode = 0x11
	OpJumpFlag   Opcode = 0x12
	OpPushEH     Opcode = 0x13
	OpPopEH      Opcode = 0x14
	OpIntegerNot Opcode = 0x15
	OpSetCopyPtr Opcode = 0x16
	OpInc        Opcode = 0x17
	OpDec        Opcode = 0x18
	OpJumpPop1   Opcode = 0x19
	OpJumpPop2   Opcode = 0x1A
	OpNop        Opcode = 0xFF
	// opInvalid is the synthetic code assigned to any byte with no mapping
	// above; it never appears in a successfully decoded instruction stream
	// (decode fails immediately with errs.KindUnknownOpcode instead).
	opInvalid Opcode = 0xDD
)

var opcodeNames = map[Opcode]string{
	OpAssign: "Assign", OpCalculate: "Calculate", OpPush: "Push", OpPushVar: "PushVar",
	OpPop: "Pop", OpCall: "Call", OpJump: "Jump", OpJumpTrue: "JumpTrue",
	OpJumpFalse: "JumpFalse", OpRet: "Ret", OpStackType: "StackType", OpPushType: "PushType",
	OpCompare: "Compare", OpCallVar: "CallVar", OpSetPtr: "SetPtr", OpBooleanNot: "BooleanNot",
	OpNeg: "Neg", OpSetFlag: "SetFlag", OpJumpFlag: "JumpFlag", OpPushEH: "PushEH",
	OpPopEH: "PopEH", OpIntegerNot: "IntegerNot", OpSetCopyPtr: "SetCopyPtr", OpInc: "Inc",
	OpDec: "Dec", OpJumpPop1: "JumpPop1", OpJumpPop2: "JumpPop2", OpNop: "Nop",
	opInvalid: "_INVALID",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return "_INVALID"
}

// opcodeFromByte maps a raw byte to its Opcode, or opInvalid if unmapped.
func opcodeFromByte(b byte) Opcode {
	o := Opcode(b)
	if _, ok := opcodeNames[o]; ok {
		return o
	}
	return opInvalid
}

// maxOpcodeNameLen is used by the disassembly formatter to left-pad opcode
// mnemonics to a common column width.
var maxOpcodeNameLen = func() int {
	max := 0
	for _, name := range opcodeNames {
		if len(name) > max {
			max = len(name)
		}
	}
	return max
}()

// ArithOp is the arithmetic operator carried by a Calculate instruction.
type ArithOp byte

const (
	ArithAdd ArithOp = 0
	ArithSub ArithOp = 1
	ArithMul ArithOp = 2
	ArithDiv ArithOp = 3
	ArithMod ArithOp = 4
	ArithShl ArithOp = 5
	ArithShr ArithOp = 6
	ArithAnd ArithOp = 7
	ArithOr  ArithOp = 8
	ArithXor ArithOp = 9
)

var arithGlyphs = [...]string{"+", "-", "*", "/", "%", "<<", ">>", "&", "|", "^"}

func (a ArithOp) String() string {
	if int(a) < len(arithGlyphs) {
		return arithGlyphs[a] + "="
	}
	return "?="
}

// CompareOp is the comparison operator carried by a Compare instruction.
type CompareOp byte

const (
	CompareGE CompareOp = 0
	CompareLE CompareOp = 1
	CompareGT CompareOp = 2
	CompareLT CompareOp = 3
	CompareNE CompareOp = 4
	CompareEQ CompareOp = 5
	CompareIn CompareOp = 6
	CompareIs CompareOp = 7
)

var compareGlyphs = [...]string{">=", "<=", ">", "<", "!=", "==", "in", "is"}

func (c CompareOp) String() string {
	if int(c) < len(compareGlyphs) {
		return compareGlyphs[c]
	}
	return "?"
}

// OperandKind is the tag byte preceding each operand in the instruction
// stream.
type OperandKind byte

const (
	OperandVariant      OperandKind = 0
	OperandValue        OperandKind = 1
	OperandIndexedByInt OperandKind = 2
	OperandIndexedByVar OperandKind = 3
)

// VariantKind classifies a decoded variable reference.
type VariantKind int

const (
	VariantGlobal VariantKind = iota
	VariantLocal
	VariantArgument
)

func (k VariantKind) String() string {
	switch k {
	case VariantGlobal:
		return "GlobalVar"
	case VariantLocal:
		return "LocalVar"
	case VariantArgument:
		return "Argument"
	default:
		return "?"
	}
}

// EHSlot is the exception-handler slot a PopEH instruction targets.
type EHSlot byte

const (
	EHTry EHSlot = iota
	EHFinally
	EHCatch
	EHSecondFinally
)

func (s EHSlot) String() string {
	switch s {
	case EHTry:
		return "Try"
	case EHFinally:
		return "Finally"
	case EHCatch:
		return "Catch"
	case EHSecondFinally:
		return "SecondFinally"
	default:
		return "?"
	}
}

// pushEHSlotOrder is the PushEH operand order, distinct from EHSlot (PopEH's
// slot numbering): Finally, CatchAt, SecondFinally, End.
var pushEHSlotOrder = [...]string{"Finally", "CatchAt", "SecondFinally", "End"}

// variantGlobalBoundary and variantLocalBase implement the variant
// addressing scheme: v < boundary -> Global; v >= localBase -> decode
// (v - localBase) as Local (if >= 0) or Argument (if negative).
const (
	variantGlobalBoundary uint32 = 0x40000000
	variantLocalBase      uint32 = 0x60000000
)

// callingConventionNames maps the F-form declaration's cc byte to its name.
var callingConventionNames = map[byte]string{
	0: "register",
	1: "pascal",
	2: "cdecl",
	3: "stdcall",
}
