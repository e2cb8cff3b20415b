package codec

import (
	"sync"

	"github.com/IrisDigitalPathology/iris-codec/iris"
	"github.com/klauspost/compress/zstd"
)

// The LZ encoding is cache-only: a Cache trades the slide's native codec
// (IRIS/JPEG/AVIF) for generic zstd compression on tiles it re-derives
// locally, since those tiles never need to round-trip through another
// codec's decoder. Pooled encoder/decoder instances avoid paying zstd's
// setup cost on every tile.
var zstdEncPool = sync.Pool{New: func() any { return mustNewZstdEncoder() }}
var zstdDecPool = sync.Pool{New: func() any { return mustNewZstdDecoder() }}

func mustNewZstdEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		panic(err)
	}
	return enc
}

func mustNewZstdDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(
		nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		panic(err)
	}
	return dec
}

func init() {
	Register(LZ, Codec{
		Compress: func(pixels []byte, _, _ int, _ iris.Format, _ Options) ([]byte, error) {
			enc := zstdEncPool.Get().(*zstd.Encoder)
			out := enc.EncodeAll(pixels, nil)
			zstdEncPool.Put(enc)
			return out, nil
		},
		Decompress: func(data []byte, _, _ int, _ iris.Format) ([]byte, error) {
			dec := zstdDecPool.Get().(*zstd.Decoder)
			out, err := dec.DecodeAll(data, nil)
			zstdDecPool.Put(dec)
			return out, err
		},
		MIME: "application/zstd",
	})

	Register(NoCompression, Codec{
		Compress: func(pixels []byte, _, _ int, _ iris.Format, _ Options) ([]byte, error) {
			out := make([]byte, len(pixels))
			copy(out, pixels)
			return out, nil
		},
		Decompress: func(data []byte, _, _ int, _ iris.Format) ([]byte, error) {
			out := make([]byte, len(data))
			copy(out, data)
			return out, nil
		},
		MIME: "application/octet-stream",
	})
}
