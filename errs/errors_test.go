package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: New(PhaseAnalyze, KindStackUnderflow).
				In("F01").At(0x10).Slot(1).Detail("index 3 >= depth 2").Build(),
			contains: []string{"[analyze]", "stack_underflow", "F01", "0x10", "index 3"},
		},
		{
			name:     "minimal error",
			err:      New(PhaseDecode, KindBadMagic).Build(),
			contains: []string{"[decode]", "bad_magic"},
		},
		{
			name: "error with cause",
			err: New(PhaseDecode, KindMalformedValue).
				Detail("extended float").Cause(errors.New("short read")).Build(),
			contains: []string{"[decode]", "malformed_value", "extended float", "caused by", "short read"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(PhaseVariable, KindTypeMismatch).Cause(cause).Build()

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("Unwrap did not return cause")
	}
}

func TestErrorIs(t *testing.T) {
	a := New(PhaseDecode, KindUnknownOpcode).At(4).Build()
	b := New(PhaseDecode, KindUnknownOpcode).At(99).Build()
	c := New(PhaseDecode, KindBadMagic).Build()

	if !errors.Is(a, b) {
		t.Error("errors with same phase/kind should match regardless of offset")
	}
	if errors.Is(a, c) {
		t.Error("errors with different kind should not match")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cases := []*Error{
		TruncatedHeader(10),
		BadMagic([]byte("ABCD")),
		UnsupportedVersion(5, 12, 23),
		UnknownTypeCode(0x7F),
		ForwardReference(3, 2),
		MalformedValue("bad length"),
		UnknownOpcode(0x9F, 0x40),
		BadJumpTarget("F00", 0x10, 0x13),
		StackUnderflow("F00", 0x10, 0, 3, 2),
		IndexOutOfRange(9, 9),
		TypeMismatch("U08", "x"),
	}
	for _, err := range cases {
		if err.Kind == "" || err.Phase == "" {
			t.Fatalf("constructor produced an error without Phase/Kind: %+v", err)
		}
		if err.Error() == "" {
			t.Fatalf("Error() returned empty string for %+v", err)
		}
	}
}
