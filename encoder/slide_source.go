package encoder

import (
	"github.com/IrisDigitalPathology/iris-codec/iris"
	"github.com/IrisDigitalPathology/iris-codec/slide"
)

// slideSource adapts an already-open *slide.Slide into a Source reading its
// base layer, for re-encoding (e.g. re-deriving a pyramid with a different
// codec or derivation factor) straight from another IFE file rather than a
// vendor reader. Its ReadRegion, like cacheSource's, only needs to resolve
// tile-aligned rectangles: Dispatch's pipeline never requests anything else.
type slideSource struct {
	path  string
	slide *slide.Slide
	info  slide.Info
}

// SetSourceSlide installs an open slide as the encoder's source. Only
// permitted while INACTIVE. path is retained purely for Source() callers
// that want a human-readable description (see the root package's
// GetEncoderSrc); it has no effect on reading.
func (e *Encoder) SetSourceSlide(path string, s *slide.Slide) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Inactive {
		return ErrEncoderActive
	}
	e.src = &slideSource{path: path, slide: s, info: s.GetInfo()}
	return nil
}

func (sl *slideSource) Dimensions() (uint32, uint32) { return sl.info.Extent.Width, sl.info.Extent.Height }
func (sl *slideSource) Format() iris.Format          { return sl.info.Format }

func (sl *slideSource) ReadRegion(x, y, width, height uint32) ([]byte, error) {
	baseIdx := len(sl.info.Extent.Layers) - 1
	base := sl.info.Extent.Layers[baseIdx]
	tileX := x / iris.TilePixLength
	tileY := y / iris.TilePixLength
	idx := int(tileY*base.XTiles + tileX)

	buf, err := sl.slide.ReadTile(slide.ReadTileInfo{Layer: baseIdx, Index: idx, DesiredFormat: sl.info.Format})
	if err != nil {
		return nil, err
	}
	return buf.Data(), nil
}

// Describe returns the source's backing file path, used by the root
// package's GetEncoderSrc.
func (sl *slideSource) Describe() string { return sl.path }
