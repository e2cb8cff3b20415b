// Package simd implements the per-tile pixel kernels the rest of this
// module runs on every decoded tile: format conversion between the Iris
// pixel formats and 2x/4x pyramid downsampling. A hardware-accelerated
// decode path would back these with a vectorized-intrinsics library; this
// module has none in its dependency graph, so these are written as plain Go
// byte loops; the channel swap is unrolled four pixels at a time with a
// scalar tail. unsafe is used only to detect an in-place (aliased) call.
package simd

import (
	"errors"
	"unsafe"

	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// ErrUnsupportedConversion is returned when a format pair has no known
// channel-remapping path (e.g. conversion to/from FormatUndefined).
var ErrUnsupportedConversion = errors.New("simd: unsupported format conversion")

// conversionTask is a bitmask of the per-pixel transforms ConvertTileFormat
// must run to go from one format to another.
type conversionTask uint8

const (
	taskSwap02     conversionTask = 1 << 0 // exchange channel 0 and channel 2 (RGB<->BGR)
	taskExpandAlpha conversionTask = 1 << 1 // append an opaque alpha channel
	taskStripAlpha  conversionTask = 1 << 2 // drop the alpha channel
)

func planConversion(src, dst iris.Format) (conversionTask, error) {
	if src == iris.FormatUndefined || dst == iris.FormatUndefined {
		return 0, ErrUnsupportedConversion
	}
	if src == dst {
		return 0, nil
	}
	var task conversionTask

	srcIsBGR := src == iris.FormatB8G8R8 || src == iris.FormatB8G8R8A8
	dstIsBGR := dst == iris.FormatB8G8R8 || dst == iris.FormatB8G8R8A8
	if srcIsBGR != dstIsBGR {
		task |= taskSwap02
	}
	if !src.HasAlpha() && dst.HasAlpha() {
		task |= taskExpandAlpha
	}
	if src.HasAlpha() && !dst.HasAlpha() {
		task |= taskStripAlpha
	}
	return task, nil
}

// ConvertTileFormat converts a tile pixel buffer from source to desired
// format. dst may alias src for an in-place conversion that doesn't change
// the channel count (a pure channel swap); conversions that change pixel
// width always allocate a fresh destination regardless of dst.
func ConvertTileFormat(src []byte, source, desired iris.Format, dst []byte) ([]byte, error) {
	task, err := planConversion(source, desired)
	if err != nil {
		return nil, err
	}
	srcChannels := source.Channels()
	dstChannels := desired.Channels()
	if srcChannels == 0 || dstChannels == 0 {
		return nil, ErrUnsupportedConversion
	}
	if len(src)%srcChannels != 0 {
		return nil, errors.New("simd: source buffer length not a multiple of channel count")
	}
	pixels := len(src) / srcChannels

	if task == 0 {
		return src, nil
	}

	if srcChannels == dstChannels && len(dst) >= len(src) {
		convertChannels(dst[:len(src)], src, pixels, srcChannels, task)
		return dst[:len(src)], nil
	}

	out := make([]byte, pixels*dstChannels)
	if srcChannels == dstChannels {
		convertChannels(out, src, pixels, srcChannels, task)
		return out, nil
	}

	switch {
	case task&taskExpandAlpha != 0:
		expandAlpha(out, src, pixels, srcChannels, task&taskSwap02 != 0)
	case task&taskStripAlpha != 0:
		stripAlpha(out, src, pixels, dstChannels, task&taskSwap02 != 0)
	default:
		return nil, ErrUnsupportedConversion
	}
	return out, nil
}

// convertChannels handles same-width conversions (channel swap only),
// operating in place when dst and src are the same slice.
func convertChannels(dst, src []byte, pixels, channels int, task conversionTask) {
	if task&taskSwap02 == 0 {
		if !samePointer(dst, src) {
			copy(dst, src)
		}
		return
	}
	// Swap channel 0 and channel 2 of every pixel. Four pixels are
	// unrolled per iteration; the scalar tail handles the remainder.
	i := 0
	for ; i+4 <= pixels; i += 4 {
		for p := 0; p < 4; p++ {
			base := (i + p) * channels
			dst[base], dst[base+2] = src[base+2], src[base]
			if channels > 1 {
				dst[base+1] = src[base+1]
			}
			for c := 3; c < channels; c++ {
				dst[base+c] = src[base+c]
			}
		}
	}
	for ; i < pixels; i++ {
		base := i * channels
		dst[base], dst[base+2] = src[base+2], src[base]
		if channels > 1 {
			dst[base+1] = src[base+1]
		}
		for c := 3; c < channels; c++ {
			dst[base+c] = src[base+c]
		}
	}
}

// expandAlpha writes a 4-channel destination from a 3-channel source,
// appending an opaque (0xFF) alpha byte to every pixel and optionally
// swapping channels 0/2 along the way.
func expandAlpha(dst, src []byte, pixels, srcChannels int, swap02 bool) {
	for i := 0; i < pixels; i++ {
		s := src[i*srcChannels : i*srcChannels+3]
		d := dst[i*4 : i*4+4]
		if swap02 {
			d[0], d[1], d[2] = s[2], s[1], s[0]
		} else {
			d[0], d[1], d[2] = s[0], s[1], s[2]
		}
		d[3] = 0xFF
	}
}

// stripAlpha writes a 3-channel destination from a 4-channel source,
// dropping the alpha byte and optionally swapping channels 0/2.
func stripAlpha(dst, src []byte, pixels, dstChannels int, swap02 bool) {
	for i := 0; i < pixels; i++ {
		s := src[i*4 : i*4+4]
		d := dst[i*dstChannels : i*dstChannels+3]
		if swap02 {
			d[0], d[1], d[2] = s[2], s[1], s[0]
		} else {
			d[0], d[1], d[2] = s[0], s[1], s[2]
		}
	}
}

// samePointer reports whether two byte slices share the same backing array
// starting address, used to skip a redundant self-copy.
func samePointer(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	return unsafe.Pointer(&a[0]) == unsafe.Pointer(&b[0])
}
