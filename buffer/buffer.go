// Package buffer implements the dual-strength reference-counted byte buffer
// used throughout this module for tile pixel data. A Buffer is either
// STRONG (owns and can grow its backing array) or WEAK (borrows someone
// else's array and may never reallocate it), e.g. memory owned by a
// memory-mapped file or a decoder library that must not be copied again.
package buffer

import (
	"errors"
	"sync/atomic"
)

// Strength distinguishes an owned, growable buffer from a borrowed,
// fixed-capacity view over someone else's memory.
type Strength int

const (
	// Weak buffers wrap external memory. They can be written into up to
	// their original capacity but never reallocated.
	Weak Strength = iota
	// Strong buffers own their memory and may grow via reallocation.
	Strong
)

// ErrWeakOverflow is returned when a write would exceed a weak buffer's
// fixed capacity.
var ErrWeakOverflow = errors.New("buffer: write exceeds weak buffer capacity")

// ErrWeakResize is returned when ChangeCapacity is called on a weak buffer.
var ErrWeakResize = errors.New("buffer: cannot resize a weak buffer")

// Buffer is a reference-counted byte buffer with copy-on-write-free growth
// semantics: data holds the full capacity, size tracks how much of it is
// populated, and Data() exposes only the populated prefix.
type Buffer struct {
	refCount atomic.Int32
	strength Strength
	data     []byte
	size     int
}

// NewStrongBuffer returns an empty, owned buffer with zero capacity.
func NewStrongBuffer() *Buffer {
	b := &Buffer{strength: Strong}
	b.refCount.Store(1)
	return b
}

// NewStrongBufferSize returns an owned buffer pre-allocated to bytes capacity.
func NewStrongBufferSize(bytes int) *Buffer {
	b := &Buffer{strength: Strong, data: make([]byte, bytes)}
	b.refCount.Store(1)
	return b
}

// NewStrongBufferCopy returns an owned buffer containing a copy of data.
func NewStrongBufferCopy(data []byte) *Buffer {
	b := NewStrongBufferSize(len(data))
	copy(b.data, data)
	b.size = len(data)
	return b
}

// NewWeakBuffer wraps data without copying it. Size() starts at len(data)
// and the fixed capacity is cap(data): the returned Buffer can be appended
// into up to cap(data) bytes but never grown past it.
func NewWeakBuffer(data []byte) *Buffer {
	b := &Buffer{strength: Weak, data: data[:cap(data)], size: len(data)}
	b.refCount.Store(1)
	return b
}

// Retain increments the reference count and returns the buffer for chaining.
func (b *Buffer) Retain() *Buffer {
	b.refCount.Add(1)
	return b
}

// Release decrements the reference count. When it reaches zero the buffer's
// backing array is dropped so the garbage collector can reclaim it; the
// Buffer value itself must not be used again afterward.
func (b *Buffer) Release() {
	if b.refCount.Add(-1) == 0 {
		b.data = nil
		b.size = 0
	}
}

// RefCount returns the current reference count.
func (b *Buffer) RefCount() int32 {
	return b.refCount.Load()
}

// Strength reports whether the buffer is Weak or Strong.
func (b *Buffer) Strength() Strength {
	return b.strength
}

// Capacity returns the total backing array length.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Size returns the populated prefix length.
func (b *Buffer) Size() int {
	return b.size
}

// AvailableBytes returns how many unused bytes remain in the capacity.
func (b *Buffer) AvailableBytes() int {
	if b.Capacity() > b.size {
		return b.Capacity() - b.size
	}
	return 0
}

// Data returns the populated prefix of the buffer. The slice aliases the
// buffer's backing array and is invalidated by any call that grows it.
func (b *Buffer) Data() []byte {
	return b.data[:b.size]
}

// End returns the unpopulated tail of the buffer, or nil if the buffer is
// already full.
func (b *Buffer) End() []byte {
	if b.size >= b.Capacity() {
		return nil
	}
	return b.data[b.size:]
}

// ChangeCapacity resizes the backing array to exactly capacity bytes. It
// fails on a weak buffer, which may never be reallocated. Shrinking below
// the current size truncates Size() to match.
func (b *Buffer) ChangeCapacity(capacity int) error {
	if b.strength == Weak {
		return ErrWeakResize
	}
	grown := make([]byte, capacity)
	copy(grown, b.data)
	b.data = grown
	if b.size > capacity {
		b.size = capacity
	}
	return nil
}

// ShrinkToFit reallocates the backing array down to exactly Size() bytes.
func (b *Buffer) ShrinkToFit() error {
	return b.ChangeCapacity(b.size)
}

// Prepare ensures at least extraBytes of spare capacity are available,
// growing a strong buffer if needed.
func (b *Buffer) Prepare(extraBytes int) error {
	if extraBytes <= b.AvailableBytes() {
		return nil
	}
	return b.ChangeCapacity(b.Capacity() + extraBytes - b.AvailableBytes())
}

// Append reserves n bytes at the end of the populated region, growing the
// buffer if necessary, and returns the slice of those n bytes for the
// caller to fill in directly (avoiding a second copy).
func (b *Buffer) Append(n int) ([]byte, error) {
	if n > b.AvailableBytes() {
		if b.strength == Weak {
			return nil, ErrWeakOverflow
		}
		if err := b.Prepare(n); err != nil {
			return nil, err
		}
	}
	start := b.size
	b.size += n
	return b.data[start:b.size], nil
}

// AppendData grows the buffer as needed and copies data onto the end of the
// populated region.
func (b *Buffer) AppendData(data []byte) error {
	dst, err := b.Append(len(data))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// SetSize sets the populated length directly, without touching capacity or
// contents. It is used after writing into the slice returned by End() or
// Append() out of band.
func (b *Buffer) SetSize(n int) {
	if n > b.Capacity() {
		n = b.Capacity()
	}
	b.size = n
}

// ChangeStrength converts the buffer in place. Converting Weak to Strong
// copies the wrapped memory so future growth never mutates the original
// caller-owned array; converting Strong to Weak simply freezes the current
// capacity as a ceiling.
func (b *Buffer) ChangeStrength(s Strength) {
	if s == b.strength {
		return
	}
	if s == Strong && b.strength == Weak {
		copied := make([]byte, len(b.data))
		copy(copied, b.data)
		b.data = copied
	}
	b.strength = s
}

// ReleaseStrong detaches the buffer's backing array and hands it to the
// caller as an owned slice, leaving the Buffer empty. It is meant for
// transferring ownership across an API boundary (e.g. into an image.RGBA)
// without a copy. Calling it on a weak buffer returns a copy, since weak
// buffers never own their memory to begin with.
func (b *Buffer) ReleaseStrong() (data []byte, size int, capacity int) {
	if b.strength == Weak {
		out := make([]byte, b.size)
		copy(out, b.data[:b.size])
		return out, b.size, b.size
	}
	data, size, capacity = b.data, b.size, b.Capacity()
	b.data = nil
	b.size = 0
	return data, size, capacity
}
