// Package slide implements the read path over an IFE container: opening a
// file, resolving (layer, tile index) to decoded pixels, and reading back
// associated images and annotations. A thin wrapper resolves a (layer,
// tile index) pair to an offset, decompresses, and hands back decoded
// pixels.
package slide

import (
	"errors"
	"io"
	"os"

	"github.com/IrisDigitalPathology/iris-codec/buffer"
	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/ife"
	"github.com/IrisDigitalPathology/iris-codec/iris"
	"github.com/IrisDigitalPathology/iris-codec/simd"
)

// DefaultCacheCapacity is a reasonable default decode-cache size for an
// interactive viewer opening a slide. It is not applied automatically:
// OpenInfo's zero value leaves the decode cache disabled, since a
// silently-enabled cache would change ReadTile's observable allocation
// behavior.
const DefaultCacheCapacity = 1000

// OpenInfo carries the options for Open. The zero value opens a slide with
// no decode cache.
type OpenInfo struct {
	// CacheCapacity, if non-zero, bounds an LRU of decoded tile pixel
	// buffers kept by the Slide to avoid re-decoding recently read tiles.
	CacheCapacity int
}

var (
	ErrTileSynthesizeFormat = errors.New("slide: desired format required to synthesize an empty tile")
)

// Info summarizes a slide's geometry and metadata.
type Info struct {
	Format   iris.Format
	Encoding codec.Encoding
	Extent   iris.Extent
	Metadata ife.Metadata
}

// Slide is an open IFE container providing random-access tile reads. It is
// backed by a plain *os.File via io.ReaderAt rather than an explicit memory
// map, relying on the OS page cache for repeated reads the way a memory map
// would. *os.File does not implement ife.SliceReader, so every tile read
// copies its bytes through ReadAt.
type Slide struct {
	file  *ife.File
	osf   *os.File
	cache *decodeCache
}

// Open opens the IFE container at path for reading.
func Open(path string, info OpenInfo) (*Slide, error) {
	// Opened read-write (rather than os.Open's read-only) so AnnotateSlide
	// can append to the same handle without a separate reopen; ordinary
	// reads never write, so this costs nothing for the read-only path.
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	ff, err := ife.OpenReader(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	ff.SetCloser(f)
	return &Slide{file: ff, osf: f, cache: newDecodeCache(info.CacheCapacity)}, nil
}

// Close releases the underlying file handle.
func (s *Slide) Close() error {
	return s.file.Close()
}

// GetInfo returns the slide's geometry, native encoding, and metadata.
func (s *Slide) GetInfo() Info {
	return Info{
		Format:   s.file.Directory.Format,
		Encoding: s.file.Directory.Encoding,
		Extent:   s.file.Directory.Extent,
		Metadata: s.file.Directory.Metadata,
	}
}

// ReadTileInfo describes one tile read request.
type ReadTileInfo struct {
	Layer, Index  int
	Dst           []byte
	DesiredFormat iris.Format
}

// ReadTile resolves (layer, index) to decoded, format-converted pixels. An
// unwritten ("empty") tile synthesizes a zero-filled 256x256 background
// tile in the desired format rather than erroring, per the tile directory
// convention that (offset=0, size=0) means "no data, consumer synthesizes".
func (s *Slide) ReadTile(info ReadTileInfo) (*buffer.Buffer, error) {
	desired := info.DesiredFormat
	if desired == iris.FormatUndefined {
		desired = s.file.Directory.Format
	}

	if cached, ok := s.cache.get(tileKey{info.Layer, info.Index}); ok {
		converted, err := simd.ConvertTileFormat(cached, s.file.Directory.Format, desired, info.Dst)
		if err != nil {
			return nil, err
		}
		return buffer.NewStrongBufferCopy(converted), nil
	}

	compressed, err := s.file.ReadTile(info.Layer, info.Index)
	if err != nil {
		if errors.Is(err, ife.ErrEmptyTile) {
			return synthesizeBackgroundTile(desired)
		}
		return nil, err
	}

	raw, err := codec.Decompress(s.file.Directory.Encoding, compressed, iris.TilePixLength, iris.TilePixLength, s.file.Directory.Format)
	if err != nil {
		return nil, err
	}
	s.cache.put(tileKey{info.Layer, info.Index}, raw)

	converted, err := simd.ConvertTileFormat(raw, s.file.Directory.Format, desired, info.Dst)
	if err != nil {
		return nil, err
	}
	return buffer.NewStrongBufferCopy(converted), nil
}

// backgroundFillValue is the byte every channel of a synthesized empty tile
// is filled with. 0x00 (black) rather than 0xFF (white) is chosen because
// most whole-slide viewers composite empty regions over a dark canvas;
// callers that want a white background should overwrite the synthesized
// tile themselves.
const backgroundFillValue byte = 0x00

func synthesizeBackgroundTile(format iris.Format) (*buffer.Buffer, error) {
	channels := format.Channels()
	if channels == 0 {
		return nil, ErrTileSynthesizeFormat
	}
	total := iris.TilePixLength * iris.TilePixLength * channels
	b := buffer.NewStrongBufferSize(total)
	b.SetSize(total)
	if backgroundFillValue != 0 {
		data := b.Data()
		for i := range data {
			data[i] = backgroundFillValue
		}
	}
	return b, nil
}

// GetAnnotations returns every annotation stored in the slide, lazily
// reading each one's payload from the annotation region.
func (s *Slide) GetAnnotations() (map[iris.AnnotationIdentifier]iris.Annotation, error) {
	out := make(map[iris.AnnotationIdentifier]iris.Annotation, len(s.file.Directory.Annotations))
	for id, entry := range s.file.Directory.Annotations {
		data, _, err := s.file.ReadAnnotationData(id)
		if err != nil {
			return nil, err
		}
		out[id] = iris.Annotation{
			Type: entry.Type, Data: data,
			XLocation: entry.XLocation, YLocation: entry.YLocation,
			XSize: entry.XSize, YSize: entry.YSize,
			Width: entry.Width, Height: entry.Height,
		}
	}
	return out, nil
}

// GetAnnotationGroups returns the slide's named annotation groups.
func (s *Slide) GetAnnotationGroups() map[string]*iris.AnnotationGroup {
	return s.file.Directory.AnnotationGroups
}

// AnnotateSlide appends a new annotation's payload past the current end of
// file and rewrites the root directory with the new entry, patching the
// header's root-directory offset last so a crash mid-append leaves the
// previous, still-valid directory in place. It writes through the
// read-write file handle Open keeps.
func (s *Slide) AnnotateSlide(id iris.AnnotationIdentifier, a iris.Annotation) error {
	if s.osf == nil {
		return errors.New("slide: annotate requires a writable file handle")
	}
	offset, err := s.osf.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := s.osf.Write(a.Data); err != nil {
		return err
	}

	dir := s.file.Directory
	if dir.Annotations == nil {
		dir.Annotations = map[iris.AnnotationIdentifier]ife.AnnotationEntry{}
	}
	dir.Annotations[id] = ife.AnnotationEntry{
		Offset: uint64(offset), Size: uint32(len(a.Data)), Type: a.Type,
		XLocation: a.XLocation, YLocation: a.YLocation,
		XSize: a.XSize, YSize: a.YSize,
		Width: a.Width, Height: a.Height,
	}

	newDirOffset, err := s.osf.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := s.osf.Write(ife.EncodeRootDirectory(dir)); err != nil {
		return err
	}

	if _, err := s.osf.Seek(0, io.SeekStart); err != nil {
		return err
	}
	header := ife.Header{Version: s.file.Header.Version, RootDirectoryOffset: uint64(newDirOffset)}
	if _, err := s.osf.Write(ife.EncodeHeader(header)); err != nil {
		return err
	}
	if err := s.osf.Sync(); err != nil {
		return err
	}

	s.file.Directory = dir
	return nil
}

// ViewportAnnotation places an annotation using fractional coordinates
// relative to the slide's top-level Extent — e.g. from an interactive
// viewer reporting where the user clicked as a [0,1] fraction of the
// visible slide — rather than the absolute full-resolution pixel
// coordinates AnnotateSlide's persisted Annotation form requires.
type ViewportAnnotation struct {
	Type               string
	Data               []byte
	XOffset, YOffset   float32 // fraction of slide width/height, [0,1]
	XSizeFrac, YSizeFrac float32
}

// AnnotateAtViewport resolves v's viewport-fractional placement against the
// slide's Extent and delegates to AnnotateSlide.
func (s *Slide) AnnotateAtViewport(id iris.AnnotationIdentifier, v ViewportAnnotation) error {
	extent := s.file.Directory.Extent
	a := iris.Annotation{
		Type:      v.Type,
		Data:      v.Data,
		XLocation: v.XOffset * float32(extent.Width),
		YLocation: v.YOffset * float32(extent.Height),
		XSize:     v.XSizeFrac * float32(extent.Width),
		YSize:     v.YSizeFrac * float32(extent.Height),
	}
	return s.AnnotateSlide(id, a)
}

// ReadAssociatedImage returns the stored bytes and directory entry for a
// labeled associated image. The bytes are not decoded or converted: they
// are still compressed with the codec the entry's Encoding names.
func (s *Slide) ReadAssociatedImage(label string) ([]byte, ife.AssociatedImageEntry, error) {
	return s.file.ReadAssociatedImage(label)
}

// ReadICCProfile returns the slide's embedded ICC color profile, if any.
func (s *Slide) ReadICCProfile() ([]byte, error) {
	return s.file.ReadICCProfile()
}
