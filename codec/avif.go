package codec

import (
	"errors"

	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// ErrAVIFUnavailable is returned by the AVIF backend's CPU path. AVIF
// decode is GPU-accelerated; GPU integration is an explicit non-goal here,
// so this slot exists in the registry (a tile directory can legally name
// AVIF, and Probe/ValidateSlide must recognize it) but any attempt to
// actually encode or decode through it fails cleanly rather than silently
// falling back to a slow software decoder nobody asked for.
var ErrAVIFUnavailable = errors.New("codec: AVIF requires GPU acceleration, unavailable on this build")

func init() {
	Register(AVIF, Codec{
		Compress: func(_ []byte, _, _ int, _ iris.Format, _ Options) ([]byte, error) {
			return nil, ErrAVIFUnavailable
		},
		Decompress: func(_ []byte, _, _ int, _ iris.Format) ([]byte, error) {
			return nil, ErrAVIFUnavailable
		},
		MIME: "image/avif",
	})
}
