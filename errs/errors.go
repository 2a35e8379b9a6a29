package errs

import (
	"fmt"
	"strings"
)

// Phase indicates which stage of the pipeline produced the error.
type Phase string

const (
	PhaseDecode   Phase = "decode"   // container/body binary decoding
	PhaseAnalyze  Phase = "analyze"  // basic-block construction and stack data flow
	PhaseFormat   Phase = "format"   // disassembly rendering
	PhaseVariable Phase = "variable" // variable-cell read/write
)

// Kind categorizes the error, matching the trigger table in the error
// handling design.
type Kind string

const (
	KindTruncatedHeader   Kind = "truncated_header"
	KindBadMagic          Kind = "bad_magic"
	KindUnsupportedVer    Kind = "unsupported_version"
	KindUnknownTypeCode   Kind = "unknown_type_code"
	KindForwardReference  Kind = "forward_reference"
	KindMalformedValue    Kind = "malformed_value"
	KindUnknownOpcode     Kind = "unknown_opcode"
	KindBadJumpTarget     Kind = "bad_jump_target"
	KindStackUnderflow    Kind = "stack_underflow"
	KindIndexOutOfRange   Kind = "index_out_of_range"
	KindTypeMismatch      Kind = "type_mismatch"
)

// Error is the structured error type returned by every fallible operation in
// the core.
type Error struct {
	Phase  Phase
	Kind   Kind
	Detail string
	Cause  error

	// Context identifies where in the unit the error occurred; populated
	// selectively (function name, instruction offset, operand slot) by the
	// callers that have that information available.
	Function string
	Offset   int
	Slot     int
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Function != "" {
		fmt.Fprintf(&b, " in %s", e.Function)
	}
	if e.Offset != 0 {
		fmt.Fprintf(&b, " at offset 0x%X", e.Offset)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Phase and Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides fluent structured-error construction.
type Builder struct {
	err Error
}

// New starts building an error of the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(format string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(format, args...)
	} else {
		b.err.Detail = format
	}
	return b
}

// Cause sets the wrapped underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// In sets the owning function's name.
func (b *Builder) In(function string) *Builder {
	b.err.Function = function
	return b
}

// At sets the instruction offset.
func (b *Builder) At(offset int) *Builder {
	b.err.Offset = offset
	return b
}

// Slot sets the operand slot index.
func (b *Builder) Slot(slot int) *Builder {
	b.err.Slot = slot
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors, one per Kind.

// TruncatedHeader reports a container shorter than the 28-byte header.
func TruncatedHeader(have int) *Error {
	return New(PhaseDecode, KindTruncatedHeader).
		Detail("have %d bytes, need at least 28", have).Build()
}

// BadMagic reports a magic-number mismatch.
func BadMagic(got []byte) *Error {
	return New(PhaseDecode, KindBadMagic).
		Detail("got %x, want IFPS", got).Build()
}

// UnsupportedVersion reports a format version outside the supported range.
func UnsupportedVersion(version, min, max uint32) *Error {
	return New(PhaseDecode, KindUnsupportedVer).
		Detail("version %d not in supported range [%d, %d]", version, min, max).Build()
}

// UnknownTypeCode reports a type byte whose low 7 bits have no mapping.
func UnknownTypeCode(code byte) *Error {
	return New(PhaseDecode, KindUnknownTypeCode).
		Detail("unknown type code 0x%02X", code).Build()
}

// ForwardReference reports a type index that has not been decoded yet.
func ForwardReference(index, length int) *Error {
	return New(PhaseDecode, KindForwardReference).
		Detail("type index %d >= current table length %d", index, length).Build()
}

// MalformedValue reports an undecodable literal (bad extended-float length,
// or a zero-width type with no dedicated decoder).
func MalformedValue(detail string) *Error {
	return New(PhaseDecode, KindMalformedValue).Detail(detail).Build()
}

// UnknownOpcode reports a bytecode byte with no opcode mapping.
func UnknownOpcode(b byte, offset int) *Error {
	return New(PhaseDecode, KindUnknownOpcode).
		At(offset).Detail("unknown opcode 0x%02X", b).Build()
}

// BadJumpTarget reports a branch target that is not an instruction start.
func BadJumpTarget(function string, from, target int) *Error {
	return New(PhaseAnalyze, KindBadJumpTarget).
		In(function).At(from).Detail("target 0x%X is not a known instruction start", target).Build()
}

// StackUnderflow reports a Local-variant operand whose index is not below
// the instruction's inferred stack depth.
func StackUnderflow(function string, offset, slot, index, depth int) *Error {
	return New(PhaseAnalyze, KindStackUnderflow).
		In(function).At(offset).Slot(slot).
		Detail("local variant index %d is not below the inferred stack depth %d", index, depth).Build()
}

// IndexOutOfRange reports a variable-cell key outside the type's range.
func IndexOutOfRange(key, length int) *Error {
	return New(PhaseVariable, KindIndexOutOfRange).
		Detail("key %d outside allowed range [0, %d)", key, length).Build()
}

// TypeMismatch reports a variable-cell assignment whose value class is
// incompatible with the target's type.
func TypeMismatch(wantType string, gotValue any) *Error {
	return New(PhaseVariable, KindTypeMismatch).
		Detail("cannot assign %v (%T) to %s", gotValue, gotValue, wantType).Build()
}
