// Package cache implements a scratch, IFE-shaped temporary file used by the
// encoder (and by callers wanting a decode-ahead buffer) to stage tile
// bytes outside of a published slide. Tiles are tracked with a
// mutex-guarded append cursor plus an in-memory offset table, simplified
// since a cache never needs a finalized root directory: it lives only as
// long as the process holds it open.
package cache

import (
	"errors"
	"os"
	"sync"

	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/iris"
	"github.com/IrisDigitalPathology/iris-codec/simd"
)

// StoreAccess selects how StoreEntry treats the bytes it's given. Store and
// read access are deliberately separate enum types, each with its own two
// unambiguous members, rather than a single access kind shared (and
// aliased to the same integer value) between store and read — the two
// directions mean different things for the member they'd otherwise share.
type StoreAccess int

const (
	// CompressTile runs the tile's data through the registered codec for
	// encoding before writing it.
	CompressTile StoreAccess = iota
	// StoreDirectNoCodec writes the given bytes verbatim; the caller attests
	// they already match the cache's advertised per-tile encoding.
	StoreDirectNoCodec
)

// ReadAccess selects how ReadEntry treats the stored bytes.
type ReadAccess int

const (
	// DecompressTile runs the stored bytes through the registered codec's
	// decoder and converts the result to the caller's desired Format.
	DecompressTile ReadAccess = iota
	// ReadDirectNoCodec returns the stored bytes verbatim.
	ReadDirectNoCodec
)

var (
	ErrEntryNotFound = errors.New("cache: no entry for (layer, index)")
	ErrClosed        = errors.New("cache: use of closed cache")
)

type entryKey struct {
	layer, index int
}

// entry records where one cached tile's bytes live and, since a Cache
// permits a different codec per tile (unlike a published slide's single
// directory-wide Encoding), what encoding they're stored in.
type entry struct {
	offset   int64
	size     int64
	encoding codec.Encoding
}

// Cache is a scratch file holding tile bytes under mixed encodings, keyed
// by (layer, index). It is unlinked from the filesystem immediately after
// creation, so the backing inode is reclaimed by the OS the moment every
// open file descriptor referencing it closes — including on a crash, with
// no explicit cleanup required.
type Cache struct {
	mu      sync.Mutex
	file    *os.File
	cursor  int64
	format  iris.Format
	entries map[entryKey]entry
	closed  bool
}

// New creates a new scratch cache. format is the native pixel format tiles
// are decompressed into (and must already be in, for CompressTile stores).
func New(format iris.Format) (*Cache, error) {
	f, err := os.CreateTemp("", "iris-cache-*.ife")
	if err != nil {
		return nil, err
	}
	// unlink=true: remove the directory entry now so the space is reclaimed
	// automatically when every descriptor on f closes, even on a crash.
	if err := os.Remove(f.Name()); err != nil {
		f.Close()
		return nil, err
	}
	return &Cache{file: f, format: format, entries: make(map[entryKey]entry)}, nil
}

// Close releases the underlying (already unlinked) file handle.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.file.Close()
}

// StoreEntry writes one tile's bytes into the cache under the given
// encoding, recording its location for a later ReadEntry. Concurrent
// stores to different (layer, index) slots are safe; there is no
// guarantee about two concurrent stores to the *same* slot, so callers
// must serialize those themselves.
func (c *Cache) StoreEntry(layer, index int, pixels []byte, width, height int, enc codec.Encoding, access StoreAccess) error {
	var data []byte
	var err error
	switch access {
	case CompressTile:
		data, err = codec.Compress(enc, pixels, width, height, c.format, codec.DefaultOptions())
	case StoreDirectNoCodec:
		data = pixels
	default:
		return errors.New("cache: unknown StoreAccess")
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	offset := c.cursor
	c.cursor += int64(len(data))
	c.mu.Unlock()

	// The write itself happens outside the lock: only the append-cursor
	// bump is a critical section, kept as short as possible so concurrent
	// writers never block each other on file I/O.
	n, err := c.file.WriteAt(data, offset)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[entryKey{layer, index}] = entry{offset: offset, size: int64(n), encoding: enc}
	c.mu.Unlock()
	return nil
}

// ReadEntry returns a tile's pixel bytes in desiredFormat, decompressing or
// passing the stored bytes through verbatim depending on access.
func (c *Cache) ReadEntry(layer, index int, desiredFormat iris.Format, access ReadAccess) ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e, ok := c.entries[entryKey{layer, index}]
	c.mu.Unlock()
	if !ok {
		return nil, ErrEntryNotFound
	}

	data := make([]byte, e.size)
	if _, err := c.file.ReadAt(data, e.offset); err != nil {
		return nil, err
	}

	switch access {
	case ReadDirectNoCodec:
		return data, nil
	case DecompressTile:
		raw, err := codec.Decompress(e.encoding, data, iris.TilePixLength, iris.TilePixLength, c.format)
		if err != nil {
			return nil, err
		}
		return simd.ConvertTileFormat(raw, c.format, desiredFormat, nil)
	default:
		return nil, errors.New("cache: unknown ReadAccess")
	}
}

// Contains reports whether a (layer, index) slot has been stored.
func (c *Cache) Contains(layer, index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[entryKey{layer, index}]
	return ok
}
