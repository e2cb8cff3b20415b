package iris

// Tile pixel geometry constants. Every tile in every layer of an IFE slide
// is exactly TilePixLength square; only the tile count per layer varies.
const (
	TilePixLength  = 256
	TilePixArea    = TilePixLength * TilePixLength
	TilePixBytesRGB  = TilePixArea * 3
	TilePixBytesRGBA = TilePixArea * 4
)

// LayerExtent describes one level of the image pyramid: how many tiles wide
// and tall it is, and the scale/downsample factor relative to the
// full-resolution layer (the last element of Extent.Layers).
type LayerExtent struct {
	XTiles     uint32
	YTiles     uint32
	Scale      float32
	Downsample float32
}

// DefaultLayerExtent is a single 1x1 tile layer at native scale, the
// smallest valid pyramid level.
func DefaultLayerExtent() LayerExtent {
	return LayerExtent{XTiles: 1, YTiles: 1, Scale: 1, Downsample: 1}
}

// Extent describes the full pyramid: the full-resolution pixel dimensions
// plus one LayerExtent per pyramid level, ordered from layer 0 (the
// coarsest, single-tile layer) up to the last element (full resolution).
type Extent struct {
	Width  uint32
	Height uint32
	Layers []LayerExtent
}

// NumTiles returns the total tile count in layer index, or 0 if out of range.
func (e Extent) NumTiles(layer int) uint32 {
	if layer < 0 || layer >= len(e.Layers) {
		return 0
	}
	l := e.Layers[layer]
	return l.XTiles * l.YTiles
}

// IsSingleTilePyramidBase reports whether layer is the coarsest layer an
// encoder should stop deriving further downsamples from: both axes already
// cover a single tile, so another 2x/4x reduction would have no pixels left
// to average.
func (e Extent) IsSingleTilePyramidBase(layer int) bool {
	if layer < 0 || layer >= len(e.Layers) {
		return true
	}
	l := e.Layers[layer]
	return l.XTiles <= 1 && l.YTiles <= 1
}
