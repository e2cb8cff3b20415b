package ife

import (
	"errors"
	"io"

	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// Writer builds an IFE container one section at a time: tile data,
// associated images, and annotations are streamed out as they're produced,
// and the root directory — which only becomes fully known once every
// section has been written — is serialized and its offset patched into the
// header last, on Close. A file that never reaches Close still has an
// all-zero placeholder header with no magic number, which DecodeHeader
// rejects, so a crash mid-write
// can never be mistaken for a valid (if truncated) container.
type Writer struct {
	writer    io.WriteSeeker
	dir       RootDirectory
	dataStart int64
	finalized bool
}

var ErrAlreadyFinalized = errors.New("ife: writer already closed")

// NewWriter begins a new container. extent must already describe every
// pyramid layer's tile counts; the tile directory is pre-sized from it so
// WriteTile can index straight into the right slot.
func NewWriter(w io.WriteSeeker, extent iris.Extent, format iris.Format, encoding codec.Encoding) (*Writer, error) {
	placeholder := make([]byte, HeaderSize)
	if _, err := w.Write(placeholder); err != nil {
		return nil, err
	}
	dataStart, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	tileDir := make([][]TileEntry, len(extent.Layers))
	for i, l := range extent.Layers {
		tileDir[i] = make([]TileEntry, l.XTiles*l.YTiles)
	}

	return &Writer{
		writer:    w,
		dataStart: dataStart,
		dir: RootDirectory{
			CodecVersion:     iris.CodecVersion,
			Extent:           extent,
			Format:           format,
			Encoding:         encoding,
			Metadata:         Metadata{Codec: iris.CodecVersion, Attributes: map[string]string{}},
			TileDirectory:    tileDir,
			AssociatedImages: map[string]AssociatedImageEntry{},
			Annotations:      map[iris.AnnotationIdentifier]AnnotationEntry{},
			AnnotationGroups: map[string]*iris.AnnotationGroup{},
		},
	}, nil
}

// SetMetadata replaces the metadata block that will be written into the
// root directory on Close.
func (w *Writer) SetMetadata(m Metadata) {
	w.dir.Metadata = m
}

// WriteTile writes one tile's already-compressed bytes and records its
// location in the tile directory.
func (w *Writer) WriteTile(layer, index int, data []byte) error {
	if w.finalized {
		return ErrAlreadyFinalized
	}
	if layer < 0 || layer >= len(w.dir.TileDirectory) {
		return ErrLayerOutOfRange
	}
	if index < 0 || index >= len(w.dir.TileDirectory[layer]) {
		return ErrTileIndexOutOfRange
	}
	offset, err := w.writer.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	w.dir.TileDirectory[layer][index] = TileEntry{Offset: uint64(offset), Size: uint32(len(data))}
	return nil
}

// WriteAssociatedImage writes a labeled associated image's compressed
// bytes and records it in the associated-image directory.
func (w *Writer) WriteAssociatedImage(label string, width, height uint32, enc codec.Encoding, source iris.Format, orientation iris.ImageOrientation, data []byte) error {
	if w.finalized {
		return ErrAlreadyFinalized
	}
	offset, err := w.writer.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	w.dir.AssociatedImages[label] = AssociatedImageEntry{
		Offset: uint64(offset), Size: uint32(len(data)),
		Width: width, Height: height, Encoding: enc,
		SourceFormat: source, Orientation: orientation,
	}
	return nil
}

// WriteAnnotation writes one annotation's payload and records it in the
// annotation directory under id.
func (w *Writer) WriteAnnotation(id iris.AnnotationIdentifier, a iris.Annotation) error {
	if w.finalized {
		return ErrAlreadyFinalized
	}
	offset, err := w.writer.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(a.Data); err != nil {
		return err
	}
	w.dir.Annotations[id] = AnnotationEntry{
		Offset: uint64(offset), Size: uint32(len(a.Data)), Type: a.Type,
		XLocation: a.XLocation, YLocation: a.YLocation,
		XSize: a.XSize, YSize: a.YSize,
		Width: a.Width, Height: a.Height,
	}
	return nil
}

// WriteAnnotationGroup records a group of annotation identifiers under label.
func (w *Writer) WriteAnnotationGroup(g *iris.AnnotationGroup) {
	w.dir.AnnotationGroups[g.Label] = g
}

// WriteICCProfile writes an embedded ICC color profile.
func (w *Writer) WriteICCProfile(data []byte) error {
	if w.finalized {
		return ErrAlreadyFinalized
	}
	offset, err := w.writer.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	w.dir.ICCProfileOffset = uint64(offset)
	w.dir.ICCProfileSize = uint32(len(data))
	return nil
}

// Close writes the root directory and patches the header's root directory
// offset to point at it. After Close, the Writer must not be used again.
func (w *Writer) Close() error {
	if w.finalized {
		return nil
	}
	rootDirOffset, err := w.writer.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	dirBytes := EncodeRootDirectory(w.dir)
	if _, err := w.writer.Write(dirBytes); err != nil {
		return err
	}

	if _, err := w.writer.Seek(0, io.SeekStart); err != nil {
		return err
	}
	header := Header{Version: iris.CodecVersion, RootDirectoryOffset: uint64(rootDirOffset)}
	if _, err := w.writer.Write(EncodeHeader(header)); err != nil {
		return err
	}

	w.finalized = true
	if syncer, ok := w.writer.(interface{ Sync() error }); ok {
		_ = syncer.Sync()
	}
	return nil
}
