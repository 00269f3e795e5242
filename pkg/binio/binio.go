// Package binio provides a byte cursor for reading and writing fixed-width
// binary values in either byte order.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortBuffer is returned when a read runs past the end of the input.
var ErrShortBuffer = errors.New("short buffer")

// ByteOrder can both decode and append values.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Byte orders used by the terrain format. Section lengths and a few opaque
// parameters are stored in the tool's native order, everything else is
// big-endian.
var (
	BigEndian ByteOrder = binary.BigEndian
	Native    ByteOrder = binary.LittleEndian
)

// Tag is a four character section identifier in logical (human) order.
type Tag [4]byte

// MakeTag converts a four character string into a Tag.
// It panics if s is not exactly four bytes long.
func MakeTag(s string) Tag {
	if len(s) != 4 {
		panic(fmt.Sprintf("binio: tag %q is not 4 bytes", s))
	}
	var t Tag
	copy(t[:], s)
	return t
}

// String returns the tag as text.
func (t Tag) String() string {
	return string(t[:])
}

// Reader reads binary values from a byte slice.
type Reader struct {
	data []byte
	pos  int
	base int // absolute offset of data[0], for error messages
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the absolute offset of the cursor.
func (r *Reader) Pos() int {
	return r.base + r.pos
}

// Len returns the total number of bytes covered by the reader.
func (r *Reader) Len() int {
	return len(r.data)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset 0x%x, have %d", ErrShortBuffer, n, r.Pos(), r.Remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.next(n)
	return err
}

// Sub consumes the next n bytes and returns a reader over them.
// Offsets reported by the sub-reader stay absolute.
func (r *Reader) Sub(n int) (*Reader, error) {
	start := r.Pos()
	b, err := r.next(n)
	if err != nil {
		return nil, err
	}
	return &Reader{data: b, base: start}, nil
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads an unsigned 16-bit integer.
func (r *Reader) U16(order ByteOrder) (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

// I16 reads a signed 16-bit integer.
func (r *Reader) I16(order ByteOrder) (int16, error) {
	v, err := r.U16(order)
	return int16(v), err
}

// U32 reads an unsigned 32-bit integer.
func (r *Reader) U32(order ByteOrder) (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

// F32 reads an IEEE-754 single precision float.
func (r *Reader) F32(order ByteOrder) (float32, error) {
	v, err := r.U32(order)
	return math.Float32frombits(v), err
}

// Bytes reads n raw bytes. The result is a copy.
func (r *Reader) Bytes(n int) ([]byte, error) {
	b, err := r.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Tag reads a section tag. Tags are stored byte-reversed on disk.
func (r *Reader) Tag() (Tag, error) {
	b, err := r.next(4)
	if err != nil {
		return Tag{}, err
	}
	return Tag{b[3], b[2], b[1], b[0]}, nil
}

// Writer accumulates binary values into a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the written data.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// PutU8 writes one byte.
func (w *Writer) PutU8(v uint8) {
	w.buf = append(w.buf, v)
}

// PutU16 writes an unsigned 16-bit integer.
func (w *Writer) PutU16(order ByteOrder, v uint16) {
	w.buf = order.AppendUint16(w.buf, v)
}

// PutI16 writes a signed 16-bit integer.
func (w *Writer) PutI16(order ByteOrder, v int16) {
	w.buf = order.AppendUint16(w.buf, uint16(v))
}

// PutU32 writes an unsigned 32-bit integer.
func (w *Writer) PutU32(order ByteOrder, v uint32) {
	w.buf = order.AppendUint32(w.buf, v)
}

// PutF32 writes an IEEE-754 single precision float.
func (w *Writer) PutF32(order ByteOrder, v float32) {
	w.buf = order.AppendUint32(w.buf, math.Float32bits(v))
}

// PutBytes writes raw bytes.
func (w *Writer) PutBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// PutTag writes a section tag in its on-disk (reversed) form.
func (w *Writer) PutTag(t Tag) {
	w.buf = append(w.buf, t[3], t[2], t[1], t[0])
}
