package bytecode

import (
	"strconv"
	"strings"

	"github.com/ifps-tools/ifpsdump/bytecode/internal/reader"
	"github.com/ifps-tools/ifpsdump/errs"
)

// DeclSpecParam is one parameter of a function declaration: whether it is
// an input or output argument, and (for the E-form only) its resolved type.
type DeclSpecParam struct {
	Input bool
	Type  *Type // nil for F-form parameters, which carry no type information
}

// DeclSpec is a fully decoded function declaration, covering both the
// F-form (external) and E-form (exported internal) encodings.
type DeclSpec struct {
	Void   bool
	Params []DeclSpecParam

	Name string

	CallingConvention string // "" if unspecified
	Module            string // F-form dll: only
	ClassName         string // F-form class: only
	VTableIndex       *uint32
	IsProperty        bool

	ReturnType *Type // E-form only

	DelayLoad                 bool
	LoadWithAlteredSearchPath bool
}

// ParseF decodes an F-form (external) declaration from body, the raw bytes
// attached to a function-table entry flagged external.
func (u *Unit) ParseF(body []byte) (*DeclSpec, error) {
	r := reader.New(body)
	d := &DeclSpec{}

	switch {
	case r.ReadIf([]byte("dll:")):
		r.ReadIf([]byte("files:"))
		module, err := r.ReadCString("latin1")
		if err != nil {
			return nil, err
		}
		d.Module = trimDLLSuffix(module)
		name, err := r.ReadCString("latin1")
		if err != nil {
			return nil, err
		}
		d.Name = name
		if err := d.readCallingConvention(r); err != nil {
			return nil, err
		}
		if u.loadFlags() {
			delay, err := r.U8()
			if err != nil {
				return nil, err
			}
			altered, err := r.U8()
			if err != nil {
				return nil, err
			}
			d.DelayLoad = delay != 0
			d.LoadWithAlteredSearchPath = altered != 0
		}
		if err := d.readParamFlags(r); err != nil {
			return nil, err
		}

	case r.ReadIf([]byte("class:")):
		if r.RemainingBytes() == 1 {
			tag, err := r.U8()
			if err != nil {
				return nil, err
			}
			switch tag {
			case '+':
				d.Name = "CastToType"
			case '-':
				d.Name = "SetNil"
			}
			d.ClassName = "Class"
			d.CallingConvention = callingConventionNames[1]
			d.Params = []DeclSpecParam{{Input: false}}
			return d, nil
		}
		class, err := r.ReadTerminatedArray('|')
		if err != nil {
			return nil, err
		}
		method, err := r.ReadTerminatedArray('|')
		if err != nil {
			return nil, err
		}
		name := string(method)
		if strings.HasSuffix(name, "@") {
			d.IsProperty = true
			name = strings.TrimSuffix(name, "@")
		}
		d.ClassName = string(class)
		d.Name = name
		if err := d.readCallingConvention(r); err != nil {
			return nil, err
		}
		if err := d.readParamFlags(r); err != nil {
			return nil, err
		}

	case r.ReadIf([]byte("intf:.")):
		d.Name = "CoInterface"
		idx, err := r.U32()
		if err != nil {
			return nil, err
		}
		d.VTableIndex = &idx
		if err := d.readCallingConvention(r); err != nil {
			return nil, err
		}
		if err := d.readParamFlags(r); err != nil {
			return nil, err
		}

	default:
		if err := d.readParamFlags(r); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (d *DeclSpec) readCallingConvention(r *reader.Reader) error {
	cc, err := r.U8()
	if err != nil {
		return err
	}
	d.CallingConvention = callingConventionNames[cc]
	return nil
}

// readParamFlags reads the inverted-void byte followed by one inverted-input
// byte per parameter, consuming the rest of the body.
func (d *DeclSpec) readParamFlags(r *reader.Reader) error {
	voidByte, err := r.U8()
	if err != nil {
		return err
	}
	d.Void = voidByte == 0

	params := make([]DeclSpecParam, 0, r.RemainingBytes())
	for r.RemainingBytes() > 0 {
		b, err := r.U8()
		if err != nil {
			return err
		}
		params = append(params, DeclSpecParam{Input: b == 0})
	}
	d.Params = params
	return nil
}

func trimDLLSuffix(module string) string {
	if len(module) >= 4 && strings.EqualFold(module[len(module)-4:], ".dll") {
		return module[:len(module)-4]
	}
	return module
}

// ParseE decodes an E-form (exported internal) declaration: a
// space-separated ASCII token string, using u.Types to resolve parameter and
// return type indices.
func (u *Unit) ParseE(text string) (*DeclSpec, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, errs.MalformedValue("empty declaration string")
	}

	d := &DeclSpec{}

	retIdx, err := strconv.Atoi(tokens[0])
	if err != nil {
		return nil, errs.MalformedValue("declaration return token is not an integer: " + tokens[0])
	}
	if retIdx < 0 {
		d.Void = true
	} else {
		t, err := resolveTypeRef(u.Types, uint32(retIdx))
		if err != nil {
			return nil, err
		}
		d.ReturnType = t
	}

	params := make([]DeclSpecParam, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		if tok == "" {
			continue
		}
		// First character '@' means output; any other character means
		// input. The remainder is the parameter's decimal type index.
		input := tok[0] != '@'
		idx, err := strconv.Atoi(tok[1:])
		if err != nil {
			return nil, errs.MalformedValue("declaration parameter token has non-integer type index: " + tok)
		}
		t, err := resolveTypeRef(u.Types, uint32(idx))
		if err != nil {
			return nil, err
		}
		params = append(params, DeclSpecParam{Input: input, Type: t})
	}
	d.Params = params

	return d, nil
}
