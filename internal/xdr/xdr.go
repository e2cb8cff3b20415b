// Package xdr implements the little-endian primitive encoding used by the
// Iris File Extension container. Unlike OpenEXR's null-terminated attribute
// names, IFE strings are length-prefixed (uint32 byte count followed by raw
// UTF-8), so both styles are exposed here and callers pick the one the
// section they're decoding actually uses.
package xdr

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ByteOrder is the wire byte order for every IFE integer field.
var ByteOrder = binary.LittleEndian

// ErrShortRead is returned when a read would run past the end of the buffer.
var ErrShortRead = errors.New("xdr: short read")

// Reader decodes primitives from an in-memory byte slice. IFE sections are
// fully buffered before decoding (directories and metadata are small
// relative to tile payloads), so a slice-backed cursor is sufficient and
// avoids an io.Reader indirection on every field.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential decoding starting at offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// Pos returns the current read offset.
func (r *Reader) Pos() int {
	return r.pos
}

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return ErrShortRead
	}
	return nil
}

// Skip advances the cursor by n bytes without interpreting them.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint8 reads an unsigned byte.
func (r *Reader) ReadUint8() (uint8, error) {
	return r.ReadByte()
}

// ReadUint16 reads a little-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := ByteOrder.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := ByteOrder.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadInt32 reads a little-endian int32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := ByteOrder.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadFloat32 reads an IEEE-754 little-endian float32.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadBytes reads n raw bytes. The returned slice aliases the reader's
// backing array; callers that need to retain it past further reads should copy.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadString reads a length-prefixed UTF-8 string: a uint32 byte count
// followed by the raw bytes. This is the IFE wire format for every string
// field (metadata keys/values, associated-image labels, annotation-group labels).
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadCString reads a null-terminated string, the style some legacy
// tiled-image attribute encoders use instead of a length prefix.
func (r *Reader) ReadCString() (string, error) {
	start := r.pos
	for r.pos < len(r.data) {
		if r.data[r.pos] == 0 {
			s := string(r.data[start:r.pos])
			r.pos++
			return s, nil
		}
		r.pos++
	}
	return "", ErrShortRead
}

// BufferWriter accumulates encoded primitives into a growable byte buffer.
type BufferWriter struct {
	buf []byte
}

// NewBufferWriter allocates a writer with the given initial capacity hint.
func NewBufferWriter(capHint int) *BufferWriter {
	return &BufferWriter{buf: make([]byte, 0, capHint)}
}

// Bytes returns the accumulated buffer.
func (w *BufferWriter) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *BufferWriter) Len() int {
	return len(w.buf)
}

// WriteByte appends a single byte.
func (w *BufferWriter) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// WriteUint8 appends an unsigned byte.
func (w *BufferWriter) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteUint16 appends a little-endian uint16.
func (w *BufferWriter) WriteUint16(v uint16) {
	var tmp [2]byte
	ByteOrder.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteUint32 appends a little-endian uint32.
func (w *BufferWriter) WriteUint32(v uint32) {
	var tmp [4]byte
	ByteOrder.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteInt32 appends a little-endian int32.
func (w *BufferWriter) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteUint64 appends a little-endian uint64.
func (w *BufferWriter) WriteUint64(v uint64) {
	var tmp [8]byte
	ByteOrder.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteFloat32 appends an IEEE-754 little-endian float32.
func (w *BufferWriter) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

// WriteBytes appends raw bytes verbatim.
func (w *BufferWriter) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteString appends a length-prefixed UTF-8 string.
func (w *BufferWriter) WriteString(s string) {
	w.WriteUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteCString appends a null-terminated string (no embedded NUL allowed).
func (w *BufferWriter) WriteCString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// Pad appends zero bytes until Len() is a multiple of align.
func (w *BufferWriter) Pad(align int) {
	for w.Len()%align != 0 {
		w.buf = append(w.buf, 0)
	}
}

// WriteTo implements io.WriterTo so a BufferWriter can be streamed directly
// to a file without an intermediate copy.
func (w *BufferWriter) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.buf)
	return int64(n), err
}
