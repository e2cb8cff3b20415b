package simd

import "errors"

// ErrSubRegionOutOfRange is returned when sub_y/sub_x fall outside the
// range the requested factor allows.
var ErrSubRegionOutOfRange = errors.New("simd: sub-tile coordinate out of range")

// Downsampling method. "Average" is a box filter; "sharpen" has no single
// canonical kernel, so the unsharp-mask construction below (point sample
// blended against the box-filtered average) is this package's own kernel,
// producing the same output shape and saturation behavior as average.
const (
	tileLength = 256
)

// downsampleRegion returns the side length of the destination sub-region
// for a given pyramid factor (2 or 4), and rejects sub_y/sub_x values the
// factor does not allow.
func downsampleRegion(factor int, subY, subX uint16) (regionSize int, err error) {
	regionSize = tileLength / factor
	maxSub := uint16(factor - 1)
	if subY > maxSub || subX > maxSub {
		return 0, ErrSubRegionOutOfRange
	}
	return regionSize, nil
}

// DownsampleIntoTile2xAvg reads the full 256x256 src tile, averages every
// 2x2 block of pixels, and writes the resulting 128x128 block into the
// [sub_y,sub_x] quadrant of dst (also a 256x256 tile). sub_y and sub_x
// range over [0,1].
func DownsampleIntoTile2xAvg(src, dst []byte, subY, subX uint16, channels int) error {
	return downsampleAvg(src, dst, subY, subX, channels, 2)
}

// DownsampleIntoTile4xAvg is the 4x variant: every 4x4 source block is
// averaged into one destination pixel, written into one of the sixteen
// 64x64 sub-regions of dst. sub_y and sub_x range over [0,3].
func DownsampleIntoTile4xAvg(src, dst []byte, subY, subX uint16, channels int) error {
	return downsampleAvg(src, dst, subY, subX, channels, 4)
}

// DownsampleIntoTile2xSharp is DownsampleIntoTile2xAvg with an unsharp mask
// applied: each output pixel is the nearest-neighbor sample pushed away
// from the block average, which preserves edge contrast that a pure box
// filter would blur out.
func DownsampleIntoTile2xSharp(src, dst []byte, subY, subX uint16, channels int) error {
	return downsampleSharp(src, dst, subY, subX, channels, 2)
}

// DownsampleIntoTile4xSharp is the 4x variant of DownsampleIntoTile2xSharp.
func DownsampleIntoTile4xSharp(src, dst []byte, subY, subX uint16, channels int) error {
	return downsampleSharp(src, dst, subY, subX, channels, 4)
}

func downsampleAvg(src, dst []byte, subY, subX uint16, channels, factor int) error {
	regionSize, err := downsampleRegion(factor, subY, subX)
	if err != nil {
		return err
	}
	if len(src) < tileLength*tileLength*channels || len(dst) < tileLength*tileLength*channels {
		return errors.New("simd: tile buffer too small")
	}
	srcStride := tileLength * channels
	dstStride := tileLength * channels
	dstOriginY := int(subY) * regionSize
	dstOriginX := int(subX) * regionSize

	var sum [4]int
	for y := 0; y < regionSize; y++ {
		srcY0 := y * factor
		dstRow := dst[(dstOriginY+y)*dstStride:]
		for x := 0; x < regionSize; x++ {
			srcX0 := x * factor
			for c := 0; c < channels; c++ {
				sum[c] = 0
			}
			for fy := 0; fy < factor; fy++ {
				srcRow := src[(srcY0+fy)*srcStride:]
				for fx := 0; fx < factor; fx++ {
					base := (srcX0 + fx) * channels
					for c := 0; c < channels; c++ {
						sum[c] += int(srcRow[base+c])
					}
				}
			}
			divisor := factor * factor
			dstBase := (dstOriginX + x) * channels
			for c := 0; c < channels; c++ {
				dstRow[dstBase+c] = byte((sum[c] + divisor/2) / divisor)
			}
		}
	}
	return nil
}

func downsampleSharp(src, dst []byte, subY, subX uint16, channels, factor int) error {
	regionSize, err := downsampleRegion(factor, subY, subX)
	if err != nil {
		return err
	}
	if len(src) < tileLength*tileLength*channels || len(dst) < tileLength*tileLength*channels {
		return errors.New("simd: tile buffer too small")
	}
	srcStride := tileLength * channels
	dstStride := tileLength * channels
	dstOriginY := int(subY) * regionSize
	dstOriginX := int(subX) * regionSize

	// Unsharp amount: how far the point sample is pushed away from the
	// block average. 1.0 means the output is twice as far from the
	// average as the point sample itself.
	const amount = 0.6

	var sum [4]int
	for y := 0; y < regionSize; y++ {
		srcY0 := y * factor
		dstRow := dst[(dstOriginY+y)*dstStride:]
		for x := 0; x < regionSize; x++ {
			srcX0 := x * factor
			for c := 0; c < channels; c++ {
				sum[c] = 0
			}
			for fy := 0; fy < factor; fy++ {
				srcRow := src[(srcY0+fy)*srcStride:]
				for fx := 0; fx < factor; fx++ {
					base := (srcX0 + fx) * channels
					for c := 0; c < channels; c++ {
						sum[c] += int(srcRow[base+c])
					}
				}
			}
			divisor := factor * factor
			// Point sample: the top-left pixel of the source block.
			pointBase := srcX0 * channels
			pointRow := src[srcY0*srcStride:]

			dstBase := (dstOriginX + x) * channels
			for c := 0; c < channels; c++ {
				avg := float64(sum[c]) / float64(divisor)
				point := float64(pointRow[pointBase+c])
				v := point + amount*(point-avg)
				dstRow[dstBase+c] = clampByte(v)
			}
		}
	}
	return nil
}

func clampByte(v float64) byte {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}
