package codec

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"

	"github.com/IrisDigitalPathology/iris-codec/iris"
	"github.com/IrisDigitalPathology/iris-codec/simd"
)

func init() {
	Register(JPEG, Codec{
		Compress:   compressJPEG,
		Decompress: decompressJPEG,
		MIME:       "image/jpeg",
	})
}

func compressJPEG(pixels []byte, width, height int, format iris.Format, opts Options) ([]byte, error) {
	rgba, err := simd.ConvertTileFormat(pixels, format, iris.FormatR8G8B8A8, nil)
	if err != nil {
		return nil, err
	}
	img := &image.NRGBA{
		Pix:    rgba,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	var buf bytes.Buffer
	q := int(opts.Quality)
	if q <= 0 {
		q = int(QualityDefault)
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressJPEG(data []byte, width, height int, format iris.Format) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return nil, errors.New("codec: decoded JPEG dimensions do not match tile geometry")
	}
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return simd.ConvertTileFormat(rgba.Pix, iris.FormatR8G8B8A8, format, nil)
}
