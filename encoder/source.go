package encoder

import (
	"errors"

	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// Source is the pixel-data provider an Encoder reads from. It abstracts
// over both a vendor whole-slide reader and a cache.Cache: the encoder
// only needs "give me the pixels in this rectangle", never a specific
// reader's tiling scheme. A real vendor-reader-backed Source only needs to
// consume that reader's tile interface, never wrap its internals;
// MemorySource below and the slide.Slide adapter in this package cover
// what this module needs to exercise the pipeline end to end.
type Source interface {
	// Dimensions returns the source's full-resolution pixel size.
	Dimensions() (width, height uint32)
	// Format returns the pixel format ReadRegion's bytes are in.
	Format() iris.Format
	// ReadRegion returns width*height*channels bytes for the rectangle
	// [x, x+width) x [y, y+height), clipped to the source's bounds; pixels
	// outside the source's actual extent (at a right/bottom edge tile) are
	// zero-filled rather than erroring.
	ReadRegion(x, y, width, height uint32) ([]byte, error)
}

var ErrRegionOutOfBounds = errors.New("encoder: requested region starts outside the source")

// MemorySource is a Source backed by a single in-memory pixel buffer,
// useful for encoding a fully-decoded image and for tests that don't need
// a real slide file on disk.
type MemorySource struct {
	Width, Height uint32
	PixelFormat   iris.Format
	Pixels        []byte // row-major, Width*Height*channels bytes
}

func (m *MemorySource) Dimensions() (uint32, uint32) { return m.Width, m.Height }
func (m *MemorySource) Format() iris.Format          { return m.PixelFormat }

func (m *MemorySource) ReadRegion(x, y, width, height uint32) ([]byte, error) {
	if x >= m.Width || y >= m.Height {
		return nil, ErrRegionOutOfBounds
	}
	channels := m.PixelFormat.Channels()
	out := make([]byte, int(width)*int(height)*channels)
	copyWidth := min(width, m.Width-x)
	copyHeight := min(height, m.Height-y)
	for row := uint32(0); row < copyHeight; row++ {
		srcOff := (int(y+row)*int(m.Width) + int(x)) * channels
		dstOff := int(row) * int(width) * channels
		copy(out[dstOff:dstOff+int(copyWidth)*channels], m.Pixels[srcOff:srcOff+int(copyWidth)*channels])
	}
	return out, nil
}
