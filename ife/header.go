// Package ife implements the Iris File Extension container: the binary
// layout's fixed header, root directory, and the region layout (tile data,
// associated images, annotations) that offsets in the directory point
// into. The read path validates a magic number and offset table before
// trusting anything else in the file; the write path finalizes the root
// directory offset last so a crash mid-write never produces a file that
// looks valid but points at garbage.
package ife

import (
	"errors"

	"github.com/IrisDigitalPathology/iris-codec/internal/xdr"
	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// MagicNumber is the fixed 8-byte signature every IFE file begins with.
var MagicNumber = []byte("IRISCDC\x00")

// HeaderSize is the fixed byte length of the header region: 8-byte magic,
// 12-byte Version triple, 8-byte root directory offset, 4-byte reserved
// flags word.
const HeaderSize = 8 + 12 + 8 + 4

// RootDirectoryOffsetPos is the byte offset of the root directory pointer
// within the header, called out explicitly because it is the one field a
// reader needs before it can find anything else in the file.
const RootDirectoryOffsetPos = 20

var (
	ErrBadMagic       = errors.New("ife: bad magic number, not an Iris File Extension container")
	ErrHeaderTooShort = errors.New("ife: file too short to contain a valid header")
	ErrFormatVersion  = errors.New("ife: container format version is newer than this codec supports")
)

// Header is the fixed-size region at the start of every IFE file.
type Header struct {
	Version             iris.Version
	RootDirectoryOffset uint64
	Flags               uint32
}

// EncodeHeader writes h into a fixed HeaderSize-byte buffer.
func EncodeHeader(h Header) []byte {
	w := xdr.NewBufferWriter(HeaderSize)
	w.WriteBytes(MagicNumber)
	w.WriteUint32(h.Version.Major)
	w.WriteUint32(h.Version.Minor)
	w.WriteUint32(h.Version.Build)
	w.WriteUint64(h.RootDirectoryOffset)
	w.WriteUint32(h.Flags)
	return w.Bytes()
}

// DecodeHeader parses and validates the header at the start of data.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrHeaderTooShort
	}
	for i, b := range MagicNumber {
		if data[i] != b {
			return Header{}, ErrBadMagic
		}
	}
	r := xdr.NewReader(data[len(MagicNumber):])
	major, _ := r.ReadUint32()
	minor, _ := r.ReadUint32()
	build, _ := r.ReadUint32()
	offset, err := r.ReadUint64()
	if err != nil {
		return Header{}, ErrHeaderTooShort
	}
	flags, err := r.ReadUint32()
	if err != nil {
		return Header{}, ErrHeaderTooShort
	}
	h := Header{
		Version:             iris.Version{Major: major, Minor: minor, Build: build},
		RootDirectoryOffset: offset,
		Flags:               flags,
	}
	if h.Version.Compare(iris.MaxSupportedFormatVersion) > 0 {
		return h, ErrFormatVersion
	}
	return h, nil
}
