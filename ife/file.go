package ife

import (
	"errors"
	"io"

	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// SliceReader is an optional interface for zero-copy file access. A reader
// backed by a memory-mapped file can implement this to hand back direct
// views into the mapping instead of making File copy bytes through ReadAt;
// a plain *os.File works through ReadAt alone and still functions
// correctly, just with one extra copy per tile read.
type SliceReader interface {
	io.ReaderAt
	// Slice returns a direct view into the underlying data at [off, off+length).
	// The returned slice is only valid while the reader is open.
	Slice(off, length int64) []byte
}

var (
	ErrEmptyTile          = errors.New("ife: tile has no data")
	ErrLayerOutOfRange    = errors.New("ife: layer index out of range")
	ErrTileIndexOutOfRange = errors.New("ife: tile index out of range")
	ErrAssociatedImageNotFound = errors.New("ife: associated image not found")
	ErrAnnotationNotFound = errors.New("ife: annotation not found")
	ErrNoICCProfile       = errors.New("ife: file carries no ICC profile")
)

// File represents an open IFE container. It validates the header and reads
// the root directory eagerly on open — the directory is small compared to
// the tile data it describes, so holding it resident is cheap and every
// other read path needs it to resolve offsets.
type File struct {
	reader      io.ReaderAt
	sliceReader SliceReader
	size        int64
	closer      io.Closer

	Header    Header
	Directory RootDirectory
}

// OpenReader opens an IFE container from r, whose total length is size.
func OpenReader(r io.ReaderAt, size int64) (*File, error) {
	f := &File{reader: r, size: size}
	if sr, ok := r.(SliceReader); ok {
		f.sliceReader = sr
	}

	headerBuf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(headerBuf, 0); err != nil {
		return nil, err
	}
	header, err := DecodeHeader(headerBuf)
	if err != nil {
		return nil, err
	}
	f.Header = header

	if int64(header.RootDirectoryOffset) >= size || header.RootDirectoryOffset < HeaderSize {
		return nil, ErrDirectoryCorrupted
	}
	dirLen := size - int64(header.RootDirectoryOffset)
	dirBuf := make([]byte, dirLen)
	if _, err := r.ReadAt(dirBuf, int64(header.RootDirectoryOffset)); err != nil {
		return nil, err
	}
	dir, err := DecodeRootDirectory(dirBuf)
	if err != nil {
		return nil, err
	}
	f.Directory = dir

	return f, nil
}

// SetCloser attaches a Closer (typically the underlying *os.File) that
// Close will delegate to. Callers that open the file themselves and pass
// in an io.ReaderAt view should call this so File.Close releases it.
func (f *File) SetCloser(c io.Closer) {
	f.closer = c
}

// Close releases the underlying file handle, if one was attached.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

func (f *File) readRegion(offset uint64, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if f.sliceReader != nil {
		return f.sliceReader.Slice(int64(offset), int64(size)), nil
	}
	buf := make([]byte, size)
	if _, err := f.reader.ReadAt(buf, int64(offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadTile returns the compressed bytes for one tile, or ErrEmptyTile if
// the pyramid cell was never written.
func (f *File) ReadTile(layer, index int) ([]byte, error) {
	if layer < 0 || layer >= len(f.Directory.TileDirectory) {
		return nil, ErrLayerOutOfRange
	}
	entries := f.Directory.TileDirectory[layer]
	if index < 0 || index >= len(entries) {
		return nil, ErrTileIndexOutOfRange
	}
	entry := entries[index]
	if entry.IsEmpty() {
		return nil, ErrEmptyTile
	}
	return f.readRegion(entry.Offset, entry.Size)
}

// ReadAssociatedImage returns the compressed bytes and directory entry for
// a labeled associated image.
func (f *File) ReadAssociatedImage(label string) ([]byte, AssociatedImageEntry, error) {
	entry, ok := f.Directory.AssociatedImages[label]
	if !ok {
		return nil, AssociatedImageEntry{}, ErrAssociatedImageNotFound
	}
	data, err := f.readRegion(entry.Offset, entry.Size)
	return data, entry, err
}

// ReadAnnotationData returns the raw stored bytes for an annotation's
// type-specific payload.
func (f *File) ReadAnnotationData(id iris.AnnotationIdentifier) ([]byte, AnnotationEntry, error) {
	entry, ok := f.Directory.Annotations[id]
	if !ok {
		return nil, AnnotationEntry{}, ErrAnnotationNotFound
	}
	data, err := f.readRegion(entry.Offset, entry.Size)
	return data, entry, err
}

// ReadICCProfile returns the embedded ICC color profile, if any.
func (f *File) ReadICCProfile() ([]byte, error) {
	if f.Directory.ICCProfileSize == 0 {
		return nil, ErrNoICCProfile
	}
	return f.readRegion(f.Directory.ICCProfileOffset, f.Directory.ICCProfileSize)
}
