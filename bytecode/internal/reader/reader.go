// Package reader is the byte-oriented primitive the decoder builds on: typed
// little-endian reads, peek/seek/detour, and the handful of length-prefixed
// string forms the container format uses.
package reader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf16"
)

// ErrShortRead is the sentinel wrapped into every read failure caused by
// running past the end of the buffer.
var ErrShortRead = errors.New("reader: short read")

// Reader wraps a byte slice with position tracking and the fixed-width LE
// reads the container format needs.
type Reader struct {
	data []byte
	pos  int
}

// New creates a Reader over data, starting at position 0.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte offset.
func (r *Reader) Position() int {
	return r.pos
}

// Len returns the total length of the underlying buffer.
func (r *Reader) Len() int {
	return len(r.data)
}

// RemainingBytes returns how many bytes are left to read.
func (r *Reader) RemainingBytes() int {
	return len(r.data) - r.pos
}

// EOF reports whether the cursor has reached the end of the buffer.
func (r *Reader) EOF() bool {
	return r.pos >= len(r.data)
}

func (r *Reader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", r.pos, err)
}

// ReadBytes reads exactly n raw bytes and advances the cursor.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.wrapError(ErrShortRead)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadByte reads a single byte and advances the cursor.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Peek returns the next n bytes without advancing the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.wrapError(ErrShortRead)
	}
	return r.data[r.pos : r.pos+n], nil
}

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return r.wrapError(fmt.Errorf("seek to %d out of bounds", pos))
	}
	r.pos = pos
	return nil
}

// Detour runs fn with the cursor temporarily moved to pos, restoring the
// original position (even on error or panic) before returning.
func (r *Reader) Detour(pos int, fn func() error) error {
	saved := r.pos
	defer func() { r.pos = saved }()
	if err := r.Seek(pos); err != nil {
		return err
	}
	return fn()
}

// U8 reads an unsigned 8-bit integer.
func (r *Reader) U8() (uint8, error) {
	b, err := r.ReadByte()
	return b, err
}

// I8 reads a signed 8-bit integer.
func (r *Reader) I8() (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err
}

// U16 reads an unsigned 16-bit little-endian integer.
func (r *Reader) U16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// I16 reads a signed 16-bit little-endian integer.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// U32 reads an unsigned 32-bit little-endian integer.
func (r *Reader) U32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// I32 reads a signed 32-bit little-endian integer.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads an unsigned 64-bit little-endian integer.
func (r *Reader) U64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I64 reads a signed 64-bit little-endian integer.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// F32 reads an IEEE-754 32-bit float.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// F64 reads an IEEE-754 64-bit float.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadLengthPrefixed reads a 4-byte LE length followed by that many bytes,
// decoded as text under the given codec ("utf-8" or "latin1"/"ascii"). An
// empty codec name is treated as "utf-8".
func (r *Reader) ReadLengthPrefixed(codec string) (string, error) {
	b, err := r.readLengthPrefixedBytes()
	if err != nil {
		return "", err
	}
	return decodeText(b, codec), nil
}

// ReadLengthPrefixedBytes reads a 4-byte LE length followed by that many raw
// bytes, with no text decoding applied.
func (r *Reader) ReadLengthPrefixedBytes() ([]byte, error) {
	return r.readLengthPrefixedBytes()
}

func (r *Reader) readLengthPrefixedBytes() ([]byte, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(n))
}

// ReadLengthPrefixedUTF16 reads a 4-byte LE length (in UTF-16 code units)
// followed by that many UTF-16LE code units.
func (r *Reader) ReadLengthPrefixedUTF16() (string, error) {
	n, err := r.U32()
	if err != nil {
		return "", err
	}
	raw, err := r.ReadBytes(int(n) * 2)
	if err != nil {
		return "", err
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return string(utf16.Decode(units)), nil
}

// ReadCString reads bytes up to (and consuming) a terminating NUL, decoded
// under codec.
func (r *Reader) ReadCString(codec string) (string, error) {
	start := r.pos
	for {
		if r.pos >= len(r.data) {
			return "", r.wrapError(ErrShortRead)
		}
		if r.data[r.pos] == 0 {
			s := decodeText(r.data[start:r.pos], codec)
			r.pos++
			return s, nil
		}
		r.pos++
	}
}

// ReadTerminatedArray reads bytes up to (and consuming) the first occurrence
// of sep, returning the bytes before it.
func (r *Reader) ReadTerminatedArray(sep byte) ([]byte, error) {
	idx := bytes.IndexByte(r.data[r.pos:], sep)
	if idx < 0 {
		return nil, r.wrapError(fmt.Errorf("separator 0x%02X not found", sep))
	}
	b := r.data[r.pos : r.pos+idx]
	r.pos += idx + 1
	return b, nil
}

// ReadIf advances past prefix if the next bytes match it, reporting whether
// it matched.
func (r *Reader) ReadIf(prefix []byte) bool {
	if r.pos+len(prefix) > len(r.data) {
		return false
	}
	if !bytes.Equal(r.data[r.pos:r.pos+len(prefix)], prefix) {
		return false
	}
	r.pos += len(prefix)
	return true
}

func decodeText(b []byte, codec string) string {
	switch codec {
	case "latin1", "ascii", "latin-1":
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}
		return string(runes)
	default:
		return string(b)
	}
}

// WrapError attaches the current position to err for diagnostics.
func (r *Reader) WrapError(err error) error {
	return r.wrapError(err)
}
