package bytecode

import (
	"fmt"

	"github.com/ifps-tools/ifpsdump/bytecode/internal/reader"
	"github.com/ifps-tools/ifpsdump/errs"
)

// Variant is a decoded variable reference: a root storage class and slot.
type Variant struct {
	Kind VariantKind
	Slot uint32

	// Accessors is not filled in by the instruction decoder: IndexedByInt
	// and IndexedByVar operands carry their index on the Operand itself
	// (IntIndex, VarIndex).
	Accessors []Operand
}

func (v Variant) String() string {
	return fmt.Sprintf("%s(%d)", v.Kind, v.Slot)
}

// decodeVariant splits a raw variant word into its root storage class.
// Words below variantGlobalBoundary are globals. Otherwise subtract
// variantLocalBase: a non-negative result is a Local slot; a negative
// result falls in the Argument range, whose magnitude is computed
// differently depending on whether the enclosing function is void (no
// return value occupies argument slot 0) — mirroring the encoder's use of
// two's-complement negation versus bitwise complement for that split.
func (u *Unit) decodeVariant(raw uint32) Variant {
	if raw < variantGlobalBoundary {
		return Variant{Kind: VariantGlobal, Slot: raw}
	}
	index := int64(raw) - int64(variantLocalBase)
	if index >= 0 {
		return Variant{Kind: VariantLocal, Slot: uint32(index)}
	}
	if u.void {
		index = -index
	} else {
		index = ^index
	}
	return Variant{Kind: VariantArgument, Slot: uint32(index)}
}

// Operand is one decoded instruction operand.
type Operand struct {
	Kind OperandKind

	Variant Variant // OperandVariant, OperandIndexedByInt, OperandIndexedByVar
	Value   Value   // OperandValue

	IntIndex int32    // OperandIndexedByInt
	VarIndex *Variant // OperandIndexedByVar
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandValue:
		return o.Value.String()
	case OperandIndexedByInt:
		return fmt.Sprintf("%s[%d]", o.Variant, o.IntIndex)
	case OperandIndexedByVar:
		return fmt.Sprintf("%s[%s]", o.Variant, o.VarIndex)
	default:
		return o.Variant.String()
	}
}

// readOperand decodes one operand per the operand-kind tag byte.
func (u *Unit) readOperand(r *reader.Reader) (Operand, error) {
	kindByte, err := r.U8()
	if err != nil {
		return Operand{}, err
	}
	kind := OperandKind(kindByte)

	switch kind {
	case OperandVariant:
		raw, err := r.U32()
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: kind, Variant: u.decodeVariant(raw)}, nil

	case OperandValue:
		v, err := u.readValue(r)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: kind, Value: v}, nil

	case OperandIndexedByInt:
		raw, err := r.U32()
		if err != nil {
			return Operand{}, err
		}
		idx, err := r.I32()
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: kind, Variant: u.decodeVariant(raw), IntIndex: idx}, nil

	case OperandIndexedByVar:
		raw, err := r.U32()
		if err != nil {
			return Operand{}, err
		}
		idxRaw, err := r.U32()
		if err != nil {
			return Operand{}, err
		}
		idx := u.decodeVariant(idxRaw)
		return Operand{Kind: kind, Variant: u.decodeVariant(raw), VarIndex: &idx}, nil

	default:
		return Operand{}, errs.MalformedValue(fmt.Sprintf("unknown operand kind %d", kindByte))
	}
}

// Instruction is one decoded bytecode instruction: its start offset, opcode,
// and opcode-specific payload.
type Instruction struct {
	Offset int
	Size   int
	Op     Opcode

	Operands []Operand

	Arith   ArithOp
	Compare CompareOp

	// Jump/JumpTrue/JumpFalse/JumpFlag/JumpPop1/JumpPop2: absolute target
	// offset, computed from the relative field at decode time.
	Target int

	// Call: resolved after the full function table is known.
	CallTarget *Function

	// SetFlag: the trailing boolean.
	FlagValue bool

	// PushEH: four absolute targets in Finally/CatchAt/SecondFinally/End
	// order, nil where the raw relative value was negative.
	EHTargets [4]*int

	// PopEH: which handler slot this instruction closes.
	EHSlot EHSlot

	// JumpTarget is set true during the second pass for every offset that
	// some Jump* instruction in the function targets. PushEH's handler
	// offsets are not branches and do not set this.
	JumpTarget bool

	// stackDelta is this instruction's net effect on stack depth, used by
	// the CFG's data-flow pass.
	stackDelta int

	// entryDepth is the stack depth at the start of this instruction (the
	// block's entry depth plus the deltas of the instructions before it in
	// the block), or nil if unknown (set by the CFG pass).
	entryDepth *int
}

func stackDelta(op Opcode) int {
	switch op {
	case OpPush, OpPushVar, OpPushType:
		return 1
	case OpPop, OpJumpPop1:
		return -1
	case OpJumpPop2:
		return -2
	default:
		return 0
	}
}

// parseBody decodes the complete instruction stream for one function body,
// then runs the second pass that marks jump targets. Call operands keep
// their raw function index here; parseFunctionTable swaps them for function
// references (via resolveCalls) once every function has been decoded.
func (u *Unit) parseBody(r *reader.Reader, functionName string) ([]Instruction, error) {
	var insns []Instruction
	starts := make(map[int]int) // offset -> index into insns

	for !r.EOF() {
		offset := r.Position()
		opByte, err := r.U8()
		if err != nil {
			return nil, err
		}
		op := opcodeFromByte(opByte)
		if op == opInvalid {
			return nil, errs.UnknownOpcode(opByte, offset)
		}

		insn := Instruction{Offset: offset, Op: op, stackDelta: stackDelta(op)}

		switch op {
		case OpAssign, OpSetPtr, OpSetCopyPtr:
			a, err := u.readOperand(r)
			if err != nil {
				return nil, err
			}
			b, err := u.readOperand(r)
			if err != nil {
				return nil, err
			}
			insn.Operands = []Operand{a, b}

		case OpCalculate:
			opByte, err := r.U8()
			if err != nil {
				return nil, err
			}
			insn.Arith = ArithOp(opByte)
			a, err := u.readOperand(r)
			if err != nil {
				return nil, err
			}
			b, err := u.readOperand(r)
			if err != nil {
				return nil, err
			}
			insn.Operands = []Operand{a, b}

		case OpPush, OpPushVar, OpCallVar, OpBooleanNot, OpNeg, OpIntegerNot, OpInc, OpDec:
			a, err := u.readOperand(r)
			if err != nil {
				return nil, err
			}
			insn.Operands = []Operand{a}

		case OpPop, OpRet, OpNop:
			// no operands

		case OpCall:
			idx, err := r.U32()
			if err != nil {
				return nil, err
			}
			insn.Operands = []Operand{{Kind: OperandValue, Value: Value{Payload: &functionRef{index: int(idx)}}}}

		case OpJump:
			rel, err := r.I32()
			if err != nil {
				return nil, err
			}
			insn.Target = r.Position() + int(rel)

		case OpJumpTrue, OpJumpFalse:
			rel, err := r.I32()
			if err != nil {
				return nil, err
			}
			a, err := u.readOperand(r)
			if err != nil {
				return nil, err
			}
			insn.Target = r.Position() + int(rel)
			insn.Operands = []Operand{a}

		case OpJumpFlag, OpJumpPop1, OpJumpPop2:
			rel, err := r.I32()
			if err != nil {
				return nil, err
			}
			insn.Target = r.Position() + int(rel)

		case OpStackType:
			raw, err := r.U32()
			if err != nil {
				return nil, err
			}
			typeIdx, err := r.U32()
			if err != nil {
				return nil, err
			}
			// The type index here is kept raw, not resolved against the type
			// table: unlike PushType, the original never looks it up.
			insn.Operands = []Operand{{Kind: OperandVariant, Variant: u.decodeVariant(raw)}}
			insn.Operands = append(insn.Operands, Operand{Kind: OperandValue, Value: Value{Payload: int64(typeIdx)}})

		case OpPushType:
			typeIdx, err := r.U32()
			if err != nil {
				return nil, err
			}
			typ, err := resolveTypeRef(u.Types, typeIdx)
			if err != nil {
				return nil, err
			}
			insn.Operands = []Operand{{Kind: OperandValue, Value: Value{Type: typ}}}

		case OpCompare:
			opByte, err := r.U8()
			if err != nil {
				return nil, err
			}
			insn.Compare = CompareOp(opByte)
			dst, err := u.readOperand(r)
			if err != nil {
				return nil, err
			}
			a, err := u.readOperand(r)
			if err != nil {
				return nil, err
			}
			b, err := u.readOperand(r)
			if err != nil {
				return nil, err
			}
			insn.Operands = []Operand{dst, a, b}

		case OpSetFlag:
			a, err := u.readOperand(r)
			if err != nil {
				return nil, err
			}
			flag, err := r.U8()
			if err != nil {
				return nil, err
			}
			insn.Operands = []Operand{a}
			insn.FlagValue = flag != 0

		case OpPushEH:
			var rels [4]int32
			for i := range rels {
				v, err := r.I32()
				if err != nil {
					return nil, err
				}
				rels[i] = v
			}
			base := r.Position()
			for i, rel := range rels {
				if rel < 0 {
					continue
				}
				target := base + int(rel)
				insn.EHTargets[i] = &target
			}

		case OpPopEH:
			slot, err := r.U8()
			if err != nil {
				return nil, err
			}
			insn.EHSlot = EHSlot(slot)

		default:
			return nil, errs.UnknownOpcode(opByte, offset)
		}

		insn.Size = r.Position() - offset
		starts[offset] = len(insns)
		insns = append(insns, insn)
	}

	for i := range insns {
		switch insns[i].Op {
		case OpJump, OpJumpTrue, OpJumpFalse, OpJumpFlag, OpJumpPop1, OpJumpPop2:
			idx, ok := starts[insns[i].Target]
			if !ok {
				return nil, errs.BadJumpTarget(functionName, insns[i].Offset, insns[i].Target)
			}
			insns[idx].JumpTarget = true
		}
	}

	return insns, nil
}
