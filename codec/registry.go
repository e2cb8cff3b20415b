// Package codec implements the pluggable tile codec registry: one
// compress/decompress/mime triple per Encoding tag, dispatched through a
// single table lookup rather than a type switch over backends. ife, slide,
// cache, and encoder all resolve their codec through this registry rather
// than calling a specific backend directly, so adding a new Encoding never
// touches those packages.
package codec

import (
	"errors"
	"sync"

	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// Encoding identifies which codec backend produced (or must decode) a tile,
// associated image, or cache entry's compressed bytes.
type Encoding uint8

const (
	Undefined Encoding = 0
	IRIS      Encoding = 1
	JPEG      Encoding = 2
	AVIF      Encoding = 3
	// LZ and NoCompression are cache-only encodings: a Cache may store a
	// tile either as the generic zstd-compressed bytes (LZ) or verbatim
	// (NoCompression), independent of what Encoding the source slide uses.
	LZ           Encoding = 4
	NoCompression Encoding = 5

	Default = JPEG
)

// String names the encoding for log lines and error messages.
func (e Encoding) String() string {
	switch e {
	case IRIS:
		return "IRIS"
	case JPEG:
		return "JPEG"
	case AVIF:
		return "AVIF"
	case LZ:
		return "LZ"
	case NoCompression:
		return "NO_COMPRESSION"
	default:
		return "UNDEFINED"
	}
}

// Quality is a JPEG/AVIF-style 0-100 lossy quality knob.
type Quality uint16

// QualityDefault is the codec's default encode quality.
const QualityDefault Quality = 90

// Subsampling selects chroma subsampling for lossy codecs that support it.
type Subsampling uint8

const (
	Subsampling444 Subsampling = iota
	Subsampling422
	Subsampling420
)

// SubsamplingDefault is the codec's default chroma subsampling.
const SubsamplingDefault = Subsampling422

// Options carries the encode-time knobs a backend may use. Decode never
// needs them; Format on the directory entry already says what's in the bytes.
type Options struct {
	Quality     Quality
	Subsampling Subsampling
}

// DefaultOptions returns the codec's default quality/subsampling pair.
func DefaultOptions() Options {
	return Options{Quality: QualityDefault, Subsampling: SubsamplingDefault}
}

// CompressFunc compresses one tile's raw pixel buffer (width*height pixels
// in the given Format) into the backend's wire representation.
type CompressFunc func(pixels []byte, width, height int, format iris.Format, opts Options) ([]byte, error)

// DecompressFunc decompresses wire bytes back into a raw pixel buffer in
// the given Format.
type DecompressFunc func(data []byte, width, height int, format iris.Format) ([]byte, error)

// Codec bundles one backend's compress/decompress pair with its MIME type,
// used when serving associated images or cache entries over an external
// interface that wants a content type.
type Codec struct {
	Compress   CompressFunc
	Decompress DecompressFunc
	MIME       string
}

var (
	registryMu sync.RWMutex
	registry   = map[Encoding]Codec{}
)

// Register installs or replaces the codec for an encoding tag. Called from
// each backend file's package-level init, and available to callers that
// want to substitute a backend (e.g. a GPU-accelerated AVIF implementation)
// without forking this package.
func Register(e Encoding, c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[e] = c
}

// ErrUnknownEncoding is returned by Get for an unregistered Encoding.
var ErrUnknownEncoding = errors.New("codec: unknown or unsupported encoding")

// Get resolves the codec registered for e.
func Get(e Encoding) (Codec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[e]
	if !ok {
		return Codec{}, ErrUnknownEncoding
	}
	return c, nil
}

// Compress is a convenience wrapper around Get(e).Compress.
func Compress(e Encoding, pixels []byte, width, height int, format iris.Format, opts Options) ([]byte, error) {
	c, err := Get(e)
	if err != nil {
		return nil, err
	}
	return c.Compress(pixels, width, height, format, opts)
}

// Decompress is a convenience wrapper around Get(e).Decompress.
func Decompress(e Encoding, data []byte, width, height int, format iris.Format) ([]byte, error) {
	c, err := Get(e)
	if err != nil {
		return nil, err
	}
	return c.Decompress(data, width, height, format)
}
