package bytecode

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/ifps-tools/ifpsdump/bytecode/internal/reader"
	"github.com/ifps-tools/ifpsdump/errs"
	"github.com/ifps-tools/ifpsdump/internal/ifpslog"
)

// Unit is the decoded form of one IFPS container: its type table, function
// table, global-variable table, and the string literals collected while
// decoding values.
type Unit struct {
	Version        uint32
	CountTypes     uint32
	CountFunctions uint32
	CountVariables uint32
	Entry          uint32
	ImportSize     uint32

	Types     []*Type
	Functions []*Function
	Variables []*Variable
	Strings   []string

	codec string

	// void is mutated while the function table is decoded: each internal
	// function's own declaration (or its absence) sets this before that
	// function's body is parsed, and the bytecode decoder for that body
	// consults it immediately while it is still current.
	void bool
}

// Option configures ParseUnit.
type Option func(*options)

type options struct {
	codec string
}

// WithCodec selects the text codec used to decode String/PChar payloads.
// UTF-16 strings always use UTF-16LE regardless of this setting. The
// default is "utf-8".
func WithCodec(name string) Option {
	return func(o *options) { o.codec = name }
}

// ParseUnit decodes a complete IFPS container from data.
func ParseUnit(data []byte, opts ...Option) (*Unit, error) {
	o := options{codec: "utf-8"}
	for _, opt := range opts {
		opt(&o)
	}

	if len(data) < HeaderSize {
		return nil, errs.TruncatedHeader(len(data))
	}
	r := reader.New(data)

	magic, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, Magic[:]) {
		return nil, errs.BadMagic(magic)
	}

	u := &Unit{codec: o.codec}

	u.Version, err = r.U32()
	if err != nil {
		return nil, err
	}
	if u.Version < MinVersion || u.Version > MaxVersion {
		return nil, errs.UnsupportedVersion(u.Version, MinVersion, MaxVersion)
	}
	if u.CountTypes, err = r.U32(); err != nil {
		return nil, err
	}
	if u.CountFunctions, err = r.U32(); err != nil {
		return nil, err
	}
	if u.CountVariables, err = r.U32(); err != nil {
		return nil, err
	}
	if u.Entry, err = r.U32(); err != nil {
		return nil, err
	}
	if u.ImportSize, err = r.U32(); err != nil {
		return nil, err
	}

	u.Types, err = u.parseTypeTable(r)
	if err != nil {
		return nil, err
	}
	if err := u.parseFunctionTable(r); err != nil {
		return nil, err
	}
	if err := u.parseVariableTable(r); err != nil {
		return nil, err
	}

	ifpslog.L().Debug("parsed ifps unit",
		zap.Int("types", len(u.Types)),
		zap.Int("functions", len(u.Functions)),
		zap.Int("variables", len(u.Variables)),
	)
	return u, nil
}

// loadFlags reports whether the F-form declaration parser should expect the
// two trailing load-flag bytes (delay_load, load_with_altered_search_path),
// present starting at format version 23.
func (u *Unit) loadFlags() bool {
	return u.Version >= 23
}

// addString registers a newly-seen text literal in the unit's string pool,
// used by every caller that decodes a text value, including attribute
// fields.
func (u *Unit) addString(s string) {
	for _, have := range u.Strings {
		if have == s {
			return
		}
	}
	u.Strings = append(u.Strings, s)
}
