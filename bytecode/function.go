package bytecode

import (
	"fmt"

	"github.com/ifps-tools/ifpsdump/bytecode/internal/reader"
	"github.com/ifps-tools/ifpsdump/errs"
)

const (
	functionFlagExternal = 1 << 0
	functionFlagExported = 1 << 1
	functionFlagHasAttrs = 1 << 2
)

// Function is one function-table entry: either an external (imported)
// declaration or an internal one with a decoded bytecode body.
type Function struct {
	// Name is the external function's own name, the exported internal
	// function's name, or else the synthetic "F{index:0{width}X}" name.
	Name string

	External bool
	Exported bool

	Decl *DeclSpec // nil unless the function is exported (F-form if external, E-form if internal)

	Body []Instruction // nil for external functions

	Attributes []Attribute

	blocks map[int]*BasicBlock
}

// Reference returns the name used to render a reference to this function: a
// declared name if the function has one, else its synthetic index name.
func (f *Function) Reference() string {
	if f.Decl != nil && f.Decl.Name != "" {
		return f.Decl.Name
	}
	return f.Name
}

func syntheticName(index, count uint32) string {
	width := len(fmt.Sprintf("%X", count))
	return fmt.Sprintf("F%0*X", width, index)
}

// parseFunctionTable decodes u.CountFunctions function-table records,
// reading each record's HasAttrs block inline right after that record, then
// runs one post-processing sweep that resolves every Call operand's raw
// index (and every ProcPtr literal in operands and attributes) to the
// function it names.
func (u *Unit) parseFunctionTable(r *reader.Reader) error {
	u.Functions = make([]*Function, u.CountFunctions)

	for k := uint32(0); k < u.CountFunctions; k++ {
		fn := &Function{Name: syntheticName(k, u.CountFunctions)}

		flags, err := r.U8()
		if err != nil {
			return err
		}
		fn.External = flags&functionFlagExternal != 0
		fn.Exported = flags&functionFlagExported != 0
		hasAttrs := flags&functionFlagHasAttrs != 0

		if fn.External {
			if err := u.loadExternalFunction(r, fn); err != nil {
				return err
			}
		} else {
			if err := u.loadInternalFunction(r, fn); err != nil {
				return err
			}
		}

		if hasAttrs {
			attrs, err := u.readAttributesAgainst(r, u.Types)
			if err != nil {
				return err
			}
			fn.Attributes = attrs
		}

		u.Functions[k] = fn
	}

	for _, fn := range u.Functions {
		if err := u.resolveCalls(fn); err != nil {
			return err
		}
		if err := u.resolveAttributeRefs(fn.Attributes); err != nil {
			return err
		}
	}
	for _, t := range u.Types {
		if err := u.resolveAttributeRefs(t.Attributes); err != nil {
			return err
		}
	}
	return nil
}

func (u *Unit) loadExternalFunction(r *reader.Reader, fn *Function) error {
	name, err := r.ReadLengthPrefixed("latin1")
	if err != nil {
		return err
	}
	if len(name) > 8 {
		return errs.MalformedValue(fmt.Sprintf("external function name %q exceeds 8 characters", name))
	}
	fn.Name = name

	if !fn.Exported {
		return nil
	}
	body, err := r.ReadLengthPrefixedBytes()
	if err != nil {
		return err
	}
	decl, err := u.ParseF(body)
	if err != nil {
		return err
	}
	fn.Decl = decl
	return nil
}

func (u *Unit) loadInternalFunction(r *reader.Reader, fn *Function) error {
	offset, err := r.U32()
	if err != nil {
		return err
	}
	length, err := r.U32()
	if err != nil {
		return err
	}

	if fn.Exported {
		name, err := r.ReadLengthPrefixed("latin1")
		if err != nil {
			return err
		}
		declText, err := r.ReadLengthPrefixed("latin1")
		if err != nil {
			return err
		}
		decl, err := u.ParseE(declText)
		if err != nil {
			return err
		}
		fn.Name = name
		fn.Decl = decl
		// The unit-wide void flag is set from this declaration and
		// consumed immediately while decoding this function's own body.
		u.void = decl.Void
	} else {
		u.void = false
	}

	var body []Instruction
	err = r.Detour(int(offset), func() error {
		bodyBytes, err := r.ReadBytes(int(length))
		if err != nil {
			return err
		}
		br := reader.New(bodyBytes)
		body, err = u.parseBody(br, fn.Name)
		return err
	})
	if err != nil {
		return err
	}
	fn.Body = body
	return nil
}

// resolveCalls walks fn's body (Call operands and any OperandValue ProcPtr
// literal) rewriting raw function indices into *Function references, now
// that the complete function table is known.
func (u *Unit) resolveCalls(fn *Function) error {
	for i := range fn.Body {
		insn := &fn.Body[i]
		for j := range insn.Operands {
			ref, ok := insn.Operands[j].Value.Payload.(*functionRef)
			if !ok {
				continue
			}
			target, err := u.resolveFunctionRef(ref.index)
			if err != nil {
				return errs.New(errs.PhaseAnalyze, errs.KindBadJumpTarget).
					In(fn.Name).At(insn.Offset).
					Detail("function reference index %d is out of range", ref.index).Build()
			}
			insn.Operands[j].Value.Payload = target
			if insn.Op == OpCall {
				insn.CallTarget = target
			}
		}
	}
	return nil
}

// resolveAttributeRefs rewrites any ProcPtr-valued attribute field's raw
// function index into a *Function reference, the same way resolveCalls does
// for instruction operands.
func (u *Unit) resolveAttributeRefs(attrs []Attribute) error {
	for i := range attrs {
		for j := range attrs[i].Fields {
			ref, ok := attrs[i].Fields[j].Payload.(*functionRef)
			if !ok {
				continue
			}
			target, err := u.resolveFunctionRef(ref.index)
			if err != nil {
				return err
			}
			attrs[i].Fields[j].Payload = target
		}
	}
	return nil
}

func (u *Unit) resolveFunctionRef(index int) (*Function, error) {
	if index < 0 || index >= len(u.Functions) {
		return nil, errs.IndexOutOfRange(index, len(u.Functions))
	}
	return u.Functions[index], nil
}

// parseVariableTable decodes u.CountVariables global-variable declarations:
// a type index followed by an optional name.
func (u *Unit) parseVariableTable(r *reader.Reader) error {
	u.Variables = make([]*Variable, u.CountVariables)
	for k := uint32(0); k < u.CountVariables; k++ {
		typeIdx, err := r.U32()
		if err != nil {
			return err
		}
		typ, err := resolveTypeRef(u.Types, typeIdx)
		if err != nil {
			return err
		}

		flag, err := r.U8()
		if err != nil {
			return err
		}
		var name string
		if flag&1 != 0 {
			name, err = r.ReadLengthPrefixed("latin1")
			if err != nil {
				return err
			}
		}

		u.Variables[k] = newVariable(typ, Variant{Kind: VariantGlobal, Slot: k}, name)
	}
	return nil
}
