package encoder

import "github.com/IrisDigitalPathology/iris-codec/iris"

// DerivationFactor selects how many sibling tiles combine into one tile of
// the next coarser pyramid layer.
type DerivationFactor int

const (
	// Derive2xLayers produces roughly eight layers for a typical whole-slide
	// image, halving tile counts on each axis per layer down to a 1x1 tip.
	Derive2xLayers DerivationFactor = 2
	// Derive4xLayers produces roughly four layers, quartering tile counts
	// on each axis per layer.
	Derive4xLayers DerivationFactor = 4
)

// DerivationMethod selects the downsampling kernel used when deriving a
// coarser layer's tiles from its finer neighbor.
type DerivationMethod int

const (
	DownsampleAverage DerivationMethod = iota
	DownsampleSharpen
)

func ceilDivU32(a, b uint32) uint32 {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// planPyramid computes the full layer sequence for a width x height source
// image, from the coarsest layer whose both axes cover a single tile (layer
// 0) up to full resolution (the last element). x_tiles and y_tiles roughly
// double (or quadruple, for Derive4xLayers) from one layer to the next.
func planPyramid(width, height uint32, factor DerivationFactor) []iris.LayerExtent {
	xTiles := ceilDivU32(width, iris.TilePixLength)
	yTiles := ceilDivU32(height, iris.TilePixLength)
	if xTiles == 0 {
		xTiles = 1
	}
	if yTiles == 0 {
		yTiles = 1
	}

	var layers []iris.LayerExtent
	scale := float32(1)
	downsample := float32(1)
	for {
		layers = append(layers, iris.LayerExtent{
			XTiles: xTiles, YTiles: yTiles, Scale: scale, Downsample: downsample,
		})
		if xTiles <= 1 && yTiles <= 1 {
			break
		}
		xTiles = ceilDivU32(xTiles, uint32(factor))
		yTiles = ceilDivU32(yTiles, uint32(factor))
		if xTiles < 1 {
			xTiles = 1
		}
		if yTiles < 1 {
			yTiles = 1
		}
		scale /= float32(factor)
		downsample *= float32(factor)
	}

	for i, j := 0, len(layers)-1; i < j; i, j = i+1, j-1 {
		layers[i], layers[j] = layers[j], layers[i]
	}
	return layers
}
