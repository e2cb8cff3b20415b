package iriscodec

import (
	"github.com/IrisDigitalPathology/iris-codec/cache"
	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// CreateCache returns a new scratch cache holding tiles in the given pixel
// format. The cache is an unlinked temp file; it never touches the
// filesystem path space a caller can see.
func CreateCache(format iris.Format) (*cache.Cache, iris.Result) {
	c, err := cache.New(format)
	if err != nil {
		return nil, iris.NewResult(iris.Failure, "failed to create cache: %v", err)
	}
	return c, iris.OK
}

// CacheStoreEntry writes one tile's bytes into c under encoding, either
// running pixels through the codec (access == cache.CompressTile) or
// writing already-compressed bytes through verbatim
// (access == cache.StoreDirectNoCodec).
func CacheStoreEntry(c *cache.Cache, layer, index int, pixels []byte, width, height int, encoding codec.Encoding, access cache.StoreAccess) iris.Result {
	if err := c.StoreEntry(layer, index, pixels, width, height, encoding, access); err != nil {
		return iris.NewResult(iris.Failure, "failed to store cache entry (layer=%d index=%d): %v", layer, index, err)
	}
	return iris.OK
}

// ReadCacheEntry returns one tile's bytes from c in desiredFormat, either
// decompressing the stored bytes (access == cache.DecompressTile) or
// returning them verbatim (access == cache.ReadDirectNoCodec).
func ReadCacheEntry(c *cache.Cache, layer, index int, desiredFormat iris.Format, access cache.ReadAccess) (data []byte, result iris.Result) {
	out, err := c.ReadEntry(layer, index, desiredFormat, access)
	if err != nil {
		return nil, iris.NewResult(iris.Failure, "failed to read cache entry (layer=%d index=%d): %v", layer, index, err)
	}
	return out, iris.OK
}
