package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders the complete deterministic textual form of u: class
// declarations, typedefs, globals, external functions, then each internal
// function's labeled instruction listing.
func (u *Unit) Disassemble() (string, error) {
	var b strings.Builder

	for _, t := range u.Types {
		if t.Code == TCClass || t.Code == TCExtClass {
			fmt.Fprintf(&b, "external Class %s\n", t.ClassName)
		}
	}
	b.WriteByte('\n')

	for _, t := range u.Types {
		if t.Code == TCClass || t.Code == TCExtClass {
			continue
		}
		if t.Code != TCRecord && (t.Symbol == "" || t.Symbol == t.Code.String()) {
			continue
		}
		fmt.Fprintf(&b, "typedef %s = %s\n", t.Symbol, t.Display(0))
	}

	for _, v := range u.Variables {
		fmt.Fprintf(&b, "global %s: %s\n", v.Variant, v.Type)
	}

	for _, fn := range u.Functions {
		if !fn.External {
			continue
		}
		fmt.Fprintf(&b, "external %s\n\n", declRepr(fn, true))
	}

	for _, fn := range u.Functions {
		if fn.External || len(fn.Body) == 0 {
			continue
		}
		if _, err := u.Blocks(fn); err != nil {
			return "", err
		}
	}
	offsetWidth, stackWidth := u.columnWidths()

	for _, fn := range u.Functions {
		if fn.External {
			continue
		}
		rendered := u.disassembleFunction(fn, offsetWidth, stackWidth)
		b.WriteString(rendered)
		b.WriteByte('\n')
	}

	return b.String(), nil
}

func declRepr(fn *Function, ref bool) string {
	name := fn.Reference()
	if fn.Decl == nil {
		return name
	}
	d := fn.Decl

	kind := "Function"
	if d.Void {
		kind = "Sub"
	}

	spec := name
	if d.VTableIndex != nil {
		spec = fmt.Sprintf("%s[%d]", name, *d.VTableIndex)
	}
	if d.ClassName != "" {
		spec = fmt.Sprintf("%s.%s", d.ClassName, spec)
	}
	if d.Module != "" {
		spec = fmt.Sprintf("%s::%s", d.Module, spec)
	}

	if !ref {
		if d.DelayLoad {
			spec = "__delay_load " + spec
		}
		if d.CallingConvention != "" {
			spec = fmt.Sprintf("__%s %s", d.CallingConvention, spec)
		}
		spec = fmt.Sprintf("%s %s", kind, spec)

		args := make([]string, len(d.Params))
		for i, p := range d.Params {
			arg := fmt.Sprintf("Argument%d", i+1)
			if p.Type != nil {
				arg = fmt.Sprintf("%s: %s", arg, p.Type)
			}
			if !p.Input {
				arg = "*" + arg
			}
			args[i] = arg
		}
		spec = fmt.Sprintf("%s(%s)", spec, strings.Join(args, ", "))
		if d.ReturnType != nil {
			spec = fmt.Sprintf("%s -> %s", spec, d.ReturnType.Code)
		}
	}
	return spec
}

// disassembleFunction renders one internal function: its Begin header,
// labeled instruction body, and End footer. offsetWidth/stackWidth are the
// shared column widths computed once across the whole unit by columnWidths.
func (u *Unit) disassembleFunction(fn *Function, offsetWidth, stackWidth int) string {
	var b strings.Builder

	kind := "Function"
	if fn.Decl != nil && fn.Decl.Void {
		kind = "Sub"
	}

	fmt.Fprintf(&b, "Begin %s\n", declRepr(fn, false))

	if len(fn.Body) == 0 {
		fmt.Fprintf(&b, "End %s\n", kind)
		return b.String()
	}

	labels := assignJumpLabels(fn)
	mnemonicWidth := maxOpcodeNameLen

	for i := range fn.Body {
		insn := &fn.Body[i]
		stackCol := "?"
		if insn.entryDepth != nil {
			stackCol = fmt.Sprintf("%d", *insn.entryDepth)
		}
		fmt.Fprintf(&b, "%0*X %*s %-*s %s\n",
			offsetWidth, insn.Offset,
			stackWidth, stackCol,
			mnemonicWidth, insn.Op,
			renderOperands(insn, labels))
	}

	fmt.Fprintf(&b, "End %s\n", kind)
	return b.String()
}

// assignJumpLabels synthesizes "JumpDestinationNN" labels for every offset
// marked JumpTarget, in first-encounter order, zero-padded to the width of
// the final label count.
func assignJumpLabels(fn *Function) map[int]string {
	var order []int
	for _, insn := range fn.Body {
		if insn.JumpTarget {
			order = append(order, insn.Offset)
		}
	}
	width := len(fmt.Sprintf("%d", len(order)))
	labels := make(map[int]string, len(order))
	for i, offset := range order {
		labels[offset] = fmt.Sprintf("JumpDestination%0*d", width, i)
	}
	return labels
}

// columnWidths computes the offset and stack-depth column widths shared by
// every function's listing: the widest offset across all function bodies
// (also bounded below by the type and variable counts, since the original
// tool reuses the same column for those table indices elsewhere) and the
// widest known stack depth.
func (u *Unit) columnWidths() (offsetWidth, stackWidth int) {
	maxOffset := 0
	maxStack := 0
	for _, fn := range u.Functions {
		if fn.External {
			continue
		}
		for _, insn := range fn.Body {
			if insn.Offset > maxOffset {
				maxOffset = insn.Offset
			}
			if insn.entryDepth != nil && *insn.entryDepth > maxStack {
				maxStack = *insn.entryDepth
			}
		}
	}

	bound := maxOffset
	if len(u.Types) > bound {
		bound = len(u.Types)
	}
	if len(u.Variables) > bound {
		bound = len(u.Variables)
	}

	offsetWidth = len(fmt.Sprintf("%X", bound))
	if offsetWidth == 0 {
		offsetWidth = 1
	}
	stackWidth = len(fmt.Sprintf("%d", maxStack))
	if stackWidth == 0 {
		stackWidth = 1
	}
	return offsetWidth, stackWidth
}

func targetRepr(labels map[int]string, target int) string {
	if label, ok := labels[target]; ok {
		return label
	}
	return fmt.Sprintf("0x%X", target)
}

func renderOperands(insn *Instruction, labels map[int]string) string {
	switch insn.Op {
	case OpJump, OpJumpFlag, OpJumpPop1, OpJumpPop2:
		return targetRepr(labels, insn.Target)

	case OpJumpTrue, OpJumpFalse:
		return fmt.Sprintf("%s %s", targetRepr(labels, insn.Target), insn.Operands[0])

	case OpCompare:
		return fmt.Sprintf("%s := %s %s %s", insn.Operands[0], insn.Operands[1], insn.Compare, insn.Operands[2])

	case OpCalculate:
		return fmt.Sprintf("%s %s %s", insn.Operands[0], insn.Arith, insn.Operands[1])

	case OpAssign, OpSetPtr, OpSetCopyPtr:
		return fmt.Sprintf("%s := %s", insn.Operands[0], insn.Operands[1])

	case OpSetFlag:
		prefix := ""
		if !insn.FlagValue {
			prefix = "!"
		}
		return prefix + insn.Operands[0].String()

	case OpPushEH:
		var parts []string
		for i := len(pushEHSlotOrder) - 1; i >= 0; i-- {
			t := insn.EHTargets[i]
			if t == nil {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s:0x%X", pushEHSlotOrder[i], *t))
		}
		return strings.Join(parts, " ")

	case OpPopEH:
		return "End" + insn.EHSlot.String()

	case OpCall:
		if fn, ok := insn.Operands[0].Value.Payload.(*Function); ok {
			return fn.Reference()
		}
		return insn.Operands[0].String()

	default:
		parts := make([]string, len(insn.Operands))
		for i, op := range insn.Operands {
			parts[i] = op.String()
		}
		return strings.Join(parts, ", ")
	}
}
