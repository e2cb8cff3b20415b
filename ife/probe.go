package ife

import (
	"io"

	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// Probe reports whether r begins with a valid IFE header: correct magic
// number and a format version this codec supports. It reads only the
// fixed-size header, never the root directory, so it is cheap enough to
// run before deciding whether a full ValidateSlide is worthwhile.
func Probe(r io.ReaderAt) bool {
	buf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return false
	}
	_, err := DecodeHeader(buf)
	return err == nil
}

// ValidateSlide opens and fully parses the container at r/size, returning a
// Result describing what, if anything, is wrong with it. Unlike OpenReader
// (which a caller uses when it intends to actually read tiles), ValidateSlide
// is meant for a one-shot health check and always closes its own handle.
func ValidateSlide(r io.ReaderAt, size int64) iris.Result {
	f, err := OpenReader(r, size)
	if err != nil {
		switch err {
		case ErrBadMagic:
			return iris.NewResult(iris.ValidationFailure, "not an Iris File Extension container: %v", err)
		case ErrFormatVersion:
			return iris.NewResult(iris.ValidationFailure, "unsupported container format version: %v", err)
		default:
			return iris.NewResult(iris.ValidationFailure, "failed to open container: %v", err)
		}
	}
	defer f.Close()

	if f.Directory.Extent.Width == 0 || f.Directory.Extent.Height == 0 {
		return iris.NewResult(iris.ValidationFailure, "slide extent has zero width or height")
	}
	if len(f.Directory.Extent.Layers) == 0 {
		return iris.NewResult(iris.ValidationFailure, "slide has no pyramid layers")
	}
	if len(f.Directory.TileDirectory) != len(f.Directory.Extent.Layers) {
		return iris.NewResult(iris.ValidationFailure, "tile directory layer count does not match extent layer count")
	}
	for i, layer := range f.Directory.Extent.Layers {
		want := int(layer.XTiles * layer.YTiles)
		if len(f.Directory.TileDirectory[i]) != want {
			return iris.NewResult(iris.ValidationFailure, "layer %d: tile directory has %d entries, extent declares %d", i, len(f.Directory.TileDirectory[i]), want)
		}
	}
	for i := 1; i < len(f.Directory.Extent.Layers); i++ {
		prev := f.Directory.Extent.Layers[i-1]
		cur := f.Directory.Extent.Layers[i]
		if cur.Scale < prev.Scale {
			return iris.NewResult(iris.ValidationFailure, "layer %d scale %v is coarser than layer %d scale %v: layers must be ordered lowest- to highest-resolution", i, cur.Scale, i-1, prev.Scale)
		}
	}
	for i, layer := range f.Directory.TileDirectory {
		for j, entry := range layer {
			if entry.IsEmpty() {
				continue
			}
			if int64(entry.Offset) < HeaderSize || int64(entry.Offset)+int64(entry.Size) > size {
				return iris.NewResult(iris.ValidationFailure, "layer %d tile %d: offset/size out of file bounds", i, j)
			}
		}
	}
	return iris.OK
}
