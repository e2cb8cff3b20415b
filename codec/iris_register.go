package codec

import "github.com/IrisDigitalPathology/iris-codec/iris"

func init() {
	Register(IRIS, Codec{
		Compress: func(pixels []byte, width, height int, format iris.Format, _ Options) ([]byte, error) {
			return compressIRIS(pixels, width, height, format.Channels())
		},
		Decompress: func(data []byte, width, height int, format iris.Format) ([]byte, error) {
			return decompressIRIS(data, width, height, format.Channels())
		},
		MIME: "application/x-iris-tile",
	})
}
