package iriscodec

import (
	"os"

	"github.com/IrisDigitalPathology/iris-codec/ife"
	"github.com/IrisDigitalPathology/iris-codec/iris"
	"github.com/IrisDigitalPathology/iris-codec/slide"
)

// IsIrisCodecFile reports whether the file at path begins with a valid IFE
// header. It opens the file only long enough to read the fixed-size header,
// never parses the root directory, and swallows every error (missing file,
// permission denied, too short to hold a header) as simply "not a file this
// codec can open".
func IsIrisCodecFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return ife.Probe(f)
}

// ValidateSlide fully parses the container at path and reports what, if
// anything, is structurally wrong with it. Unlike OpenSlide, it always
// closes its own handle; it is meant for a one-shot health check rather
// than for a caller that intends to actually read tiles afterward.
func ValidateSlide(path string) iris.Result {
	f, err := os.Open(path)
	if err != nil {
		return iris.NewResult(iris.Uninitialized, "failed to open %q: %v", path, err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return iris.NewResult(iris.Uninitialized, "failed to stat %q: %v", path, err)
	}
	return ife.ValidateSlide(f, stat.Size())
}

// OpenSlide opens the IFE container at path for tile reads. ctx is accepted
// for symmetry with the rest of this package's API and to leave room for a
// future GPU decode path; today every Slide opened through this function
// decodes on the CPU regardless of ctx.HasGPU().
func OpenSlide(ctx *Context, path string, info slide.OpenInfo) (*slide.Slide, iris.Result) {
	s, err := slide.Open(path, info)
	if err != nil {
		return nil, iris.NewResult(iris.ValidationFailure, "failed to open slide %q: %v", path, err)
	}
	return s, iris.OK
}

// GetSlideInfo returns s's geometry, native encoding, and metadata.
func GetSlideInfo(s *slide.Slide) (slide.Info, iris.Result) {
	return s.GetInfo(), iris.OK
}

// ReadSlideTile decodes one tile and converts it to the format req.DesiredFormat
// names, wrapped as a Result so a caller distinguishes a missing tile
// (which slide.ReadTile already handles by synthesizing a blank tile, not
// an error here) from an actual decode failure.
func ReadSlideTile(s *slide.Slide, req slide.ReadTileInfo) (data []byte, result iris.Result) {
	buf, err := s.ReadTile(req)
	if err != nil {
		return nil, iris.NewResult(iris.Failure, "failed to read tile (layer=%d index=%d): %v", req.Layer, req.Index, err)
	}
	return buf.Data(), iris.OK
}

// AnnotateSlide appends a new annotation to s and persists it immediately.
func AnnotateSlide(s *slide.Slide, id iris.AnnotationIdentifier, a iris.Annotation) iris.Result {
	if err := s.AnnotateSlide(id, a); err != nil {
		return iris.NewResult(iris.Failure, "failed to annotate slide: %v", err)
	}
	return iris.OK
}

// GetSlideAnnotations returns every annotation stored in s.
func GetSlideAnnotations(s *slide.Slide) (map[iris.AnnotationIdentifier]iris.Annotation, iris.Result) {
	annotations, err := s.GetAnnotations()
	if err != nil {
		return nil, iris.NewResult(iris.Failure, "failed to read annotations: %v", err)
	}
	return annotations, iris.OK
}
