package ife

import (
	"errors"

	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/internal/xdr"
	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// TileEntry locates one compressed tile's bytes within the tile data
// region. An Offset/Size of (0,0) marks an empty tile — a pyramid cell the
// encoder never wrote because the source had no pixels there — and slide
// readers must treat it as "no data" rather than try to read zero bytes at
// offset zero.
type TileEntry struct {
	Offset uint64
	Size   uint32
}

// IsEmpty reports whether the entry marks an unwritten tile.
func (t TileEntry) IsEmpty() bool {
	return t.Offset == 0 && t.Size == 0
}

// AssociatedImageEntry locates and describes one associated image (a label,
// thumbnail, or slide-scanner macro photo stored alongside the pyramid).
type AssociatedImageEntry struct {
	Offset       uint64
	Size         uint32
	Width        uint32
	Height       uint32
	Encoding     codec.Encoding
	SourceFormat iris.Format
	Orientation  iris.ImageOrientation
}

// AnnotationEntry locates and describes one stored annotation.
type AnnotationEntry struct {
	Offset    uint64
	Size      uint32
	Type      string
	XLocation float32
	YLocation float32
	XSize     float32
	YSize     float32
	Width     uint32
	Height    uint32
}

// Metadata carries the free-form, non-geometric information about a slide:
// the codec build that wrote it, scanner attributes, and calibration
// values used to convert pixel distances into physical units.
type Metadata struct {
	Codec           iris.Version
	Attributes      map[string]string
	MicronsPerPixel float32
	Magnification   float32
}

// RootDirectory is everything an open file needs beyond the fixed header:
// the pyramid geometry, codec selection, and every offset table into the
// data regions that follow it.
type RootDirectory struct {
	CodecVersion     iris.Version
	Extent           iris.Extent
	Format           iris.Format
	Encoding         codec.Encoding
	Metadata         Metadata
	TileDirectory    [][]TileEntry // [layer][tile index]
	AssociatedImages map[string]AssociatedImageEntry
	Annotations      map[iris.AnnotationIdentifier]AnnotationEntry
	AnnotationGroups map[string]*iris.AnnotationGroup
	ICCProfileOffset uint64
	ICCProfileSize   uint32
}

var ErrDirectoryCorrupted = errors.New("ife: corrupted root directory")

// EncodeRootDirectory serializes d to its on-disk byte representation.
func EncodeRootDirectory(d RootDirectory) []byte {
	w := xdr.NewBufferWriter(4096)

	w.WriteUint32(d.CodecVersion.Major)
	w.WriteUint32(d.CodecVersion.Minor)
	w.WriteUint32(d.CodecVersion.Build)

	w.WriteUint32(d.Extent.Width)
	w.WriteUint32(d.Extent.Height)
	w.WriteUint32(uint32(len(d.Extent.Layers)))
	for _, l := range d.Extent.Layers {
		w.WriteUint32(l.XTiles)
		w.WriteUint32(l.YTiles)
		w.WriteFloat32(l.Scale)
		w.WriteFloat32(l.Downsample)
	}

	w.WriteUint8(uint8(d.Format))
	w.WriteUint8(uint8(d.Encoding))

	writeMetadata(w, d.Metadata)

	w.WriteUint64(d.ICCProfileOffset)
	w.WriteUint32(d.ICCProfileSize)

	w.WriteUint32(uint32(len(d.TileDirectory)))
	for _, layer := range d.TileDirectory {
		w.WriteUint32(uint32(len(layer)))
		for _, t := range layer {
			w.WriteUint64(t.Offset)
			w.WriteUint32(t.Size)
		}
	}

	writeAssociatedImages(w, d.AssociatedImages)
	writeAnnotations(w, d.Annotations)
	writeAnnotationGroups(w, d.AnnotationGroups)

	return w.Bytes()
}

func writeMetadata(w *xdr.BufferWriter, m Metadata) {
	w.WriteUint32(m.Codec.Major)
	w.WriteUint32(m.Codec.Minor)
	w.WriteUint32(m.Codec.Build)
	w.WriteFloat32(m.MicronsPerPixel)
	w.WriteFloat32(m.Magnification)
	w.WriteUint32(uint32(len(m.Attributes)))
	for _, k := range sortedKeys(m.Attributes) {
		w.WriteString(k)
		w.WriteString(m.Attributes[k])
	}
}

func writeAssociatedImages(w *xdr.BufferWriter, images map[string]AssociatedImageEntry) {
	w.WriteUint32(uint32(len(images)))
	for _, label := range sortedImageKeys(images) {
		e := images[label]
		w.WriteString(label)
		w.WriteUint64(e.Offset)
		w.WriteUint32(e.Size)
		w.WriteUint32(e.Width)
		w.WriteUint32(e.Height)
		w.WriteUint8(uint8(e.Encoding))
		w.WriteUint8(uint8(e.SourceFormat))
		w.WriteUint16(uint16(e.Orientation))
	}
}

func writeAnnotations(w *xdr.BufferWriter, annotations map[iris.AnnotationIdentifier]AnnotationEntry) {
	w.WriteUint32(uint32(len(annotations)))
	for _, id := range sortedAnnotationKeys(annotations) {
		e := annotations[id]
		w.WriteUint32(uint32(id))
		w.WriteUint64(e.Offset)
		w.WriteUint32(e.Size)
		w.WriteString(e.Type)
		w.WriteFloat32(e.XLocation)
		w.WriteFloat32(e.YLocation)
		w.WriteFloat32(e.XSize)
		w.WriteFloat32(e.YSize)
		w.WriteUint32(e.Width)
		w.WriteUint32(e.Height)
	}
}

func writeAnnotationGroups(w *xdr.BufferWriter, groups map[string]*iris.AnnotationGroup) {
	w.WriteUint32(uint32(len(groups)))
	labels := make([]string, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sortStrings(labels)
	for _, label := range labels {
		g := groups[label]
		w.WriteString(label)
		w.WriteUint32(uint32(len(g.IDs)))
		ids := make([]iris.AnnotationIdentifier, 0, len(g.IDs))
		for id := range g.IDs {
			ids = append(ids, id)
		}
		sortAnnotationIDs(ids)
		for _, id := range ids {
			w.WriteUint32(uint32(id))
		}
	}
}

// DecodeRootDirectory parses a RootDirectory from its on-disk byte representation.
func DecodeRootDirectory(data []byte) (RootDirectory, error) {
	r := xdr.NewReader(data)
	var d RootDirectory

	major, err1 := r.ReadUint32()
	minor, err2 := r.ReadUint32()
	build, err3 := r.ReadUint32()
	if err1 != nil || err2 != nil || err3 != nil {
		return d, ErrDirectoryCorrupted
	}
	d.CodecVersion = iris.Version{Major: major, Minor: minor, Build: build}

	width, err1 := r.ReadUint32()
	height, err2 := r.ReadUint32()
	numLayers, err3 := r.ReadUint32()
	if err1 != nil || err2 != nil || err3 != nil {
		return d, ErrDirectoryCorrupted
	}
	d.Extent.Width = width
	d.Extent.Height = height
	d.Extent.Layers = make([]iris.LayerExtent, numLayers)
	for i := range d.Extent.Layers {
		xt, _ := r.ReadUint32()
		yt, _ := r.ReadUint32()
		scale, _ := r.ReadFloat32()
		downsample, err := r.ReadFloat32()
		if err != nil {
			return d, ErrDirectoryCorrupted
		}
		d.Extent.Layers[i] = iris.LayerExtent{XTiles: xt, YTiles: yt, Scale: scale, Downsample: downsample}
	}

	format, err1 := r.ReadUint8()
	encoding, err2 := r.ReadUint8()
	if err1 != nil || err2 != nil {
		return d, ErrDirectoryCorrupted
	}
	d.Format = iris.Format(format)
	d.Encoding = codec.Encoding(encoding)

	meta, err := readMetadata(r)
	if err != nil {
		return d, err
	}
	d.Metadata = meta

	iccOffset, err1 := r.ReadUint64()
	iccSize, err2 := r.ReadUint32()
	if err1 != nil || err2 != nil {
		return d, ErrDirectoryCorrupted
	}
	d.ICCProfileOffset = iccOffset
	d.ICCProfileSize = iccSize

	numTileLayers, err := r.ReadUint32()
	if err != nil {
		return d, ErrDirectoryCorrupted
	}
	d.TileDirectory = make([][]TileEntry, numTileLayers)
	for i := range d.TileDirectory {
		count, err := r.ReadUint32()
		if err != nil {
			return d, ErrDirectoryCorrupted
		}
		layer := make([]TileEntry, count)
		for j := range layer {
			off, err1 := r.ReadUint64()
			size, err2 := r.ReadUint32()
			if err1 != nil || err2 != nil {
				return d, ErrDirectoryCorrupted
			}
			layer[j] = TileEntry{Offset: off, Size: size}
		}
		d.TileDirectory[i] = layer
	}

	images, err := readAssociatedImages(r)
	if err != nil {
		return d, err
	}
	d.AssociatedImages = images

	annotations, err := readAnnotations(r)
	if err != nil {
		return d, err
	}
	d.Annotations = annotations

	groups, err := readAnnotationGroups(r)
	if err != nil {
		return d, err
	}
	d.AnnotationGroups = groups

	return d, nil
}

func readMetadata(r *xdr.Reader) (Metadata, error) {
	var m Metadata
	major, err1 := r.ReadUint32()
	minor, err2 := r.ReadUint32()
	build, err3 := r.ReadUint32()
	microns, err4 := r.ReadFloat32()
	mag, err5 := r.ReadFloat32()
	count, err6 := r.ReadUint32()
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil {
		return m, ErrDirectoryCorrupted
	}
	m.Codec = iris.Version{Major: major, Minor: minor, Build: build}
	m.MicronsPerPixel = microns
	m.Magnification = mag
	m.Attributes = make(map[string]string, count)
	for i := uint32(0); i < count; i++ {
		k, err1 := r.ReadString()
		v, err2 := r.ReadString()
		if err1 != nil || err2 != nil {
			return m, ErrDirectoryCorrupted
		}
		m.Attributes[k] = v
	}
	return m, nil
}

func readAssociatedImages(r *xdr.Reader) (map[string]AssociatedImageEntry, error) {
	count, err := r.ReadUint32()
	if err != nil {
		return nil, ErrDirectoryCorrupted
	}
	images := make(map[string]AssociatedImageEntry, count)
	for i := uint32(0); i < count; i++ {
		label, err := r.ReadString()
		if err != nil {
			return nil, ErrDirectoryCorrupted
		}
		off, e1 := r.ReadUint64()
		size, e2 := r.ReadUint32()
		width, e3 := r.ReadUint32()
		height, e4 := r.ReadUint32()
		enc, e5 := r.ReadUint8()
		fmtv, e6 := r.ReadUint8()
		orient, e7 := r.ReadUint16()
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil || e6 != nil || e7 != nil {
			return nil, ErrDirectoryCorrupted
		}
		images[label] = AssociatedImageEntry{
			Offset: off, Size: size, Width: width, Height: height,
			Encoding: codec.Encoding(enc), SourceFormat: iris.Format(fmtv),
			Orientation: iris.ImageOrientation(orient),
		}
	}
	return images, nil
}

func readAnnotations(r *xdr.Reader) (map[iris.AnnotationIdentifier]AnnotationEntry, error) {
	count, err := r.ReadUint32()
	if err != nil {
		return nil, ErrDirectoryCorrupted
	}
	annotations := make(map[iris.AnnotationIdentifier]AnnotationEntry, count)
	for i := uint32(0); i < count; i++ {
		id, e1 := r.ReadUint32()
		off, e2 := r.ReadUint64()
		size, e3 := r.ReadUint32()
		typ, e4 := r.ReadString()
		xl, e5 := r.ReadFloat32()
		yl, e6 := r.ReadFloat32()
		xs, e7 := r.ReadFloat32()
		ys, e8 := r.ReadFloat32()
		width, e9 := r.ReadUint32()
		height, e10 := r.ReadUint32()
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil || e6 != nil || e7 != nil || e8 != nil || e9 != nil || e10 != nil {
			return nil, ErrDirectoryCorrupted
		}
		annotations[iris.AnnotationIdentifier(id)] = AnnotationEntry{
			Offset: off, Size: size, Type: typ,
			XLocation: xl, YLocation: yl, XSize: xs, YSize: ys,
			Width: width, Height: height,
		}
	}
	return annotations, nil
}

func readAnnotationGroups(r *xdr.Reader) (map[string]*iris.AnnotationGroup, error) {
	count, err := r.ReadUint32()
	if err != nil {
		return nil, ErrDirectoryCorrupted
	}
	groups := make(map[string]*iris.AnnotationGroup, count)
	for i := uint32(0); i < count; i++ {
		label, err := r.ReadString()
		if err != nil {
			return nil, ErrDirectoryCorrupted
		}
		n, err := r.ReadUint32()
		if err != nil {
			return nil, ErrDirectoryCorrupted
		}
		g := iris.NewAnnotationGroup(label)
		for j := uint32(0); j < n; j++ {
			id, err := r.ReadUint32()
			if err != nil {
				return nil, ErrDirectoryCorrupted
			}
			g.Add(iris.AnnotationIdentifier(id))
		}
		groups[label] = g
	}
	return groups, nil
}
