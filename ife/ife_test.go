package ife

import (
	"bytes"
	"io"
	"testing"

	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// seekBuffer is a minimal io.WriteSeeker backed by an in-memory byte slice
// that genuinely overwrites at the current position, unlike a bare
// bytes.Buffer (which only ever appends). ife.Writer relies on seeking back
// to patch the header after the root directory is written, so tests need a
// WriteSeeker that actually honors that.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		b.pos = offset
	case io.SeekCurrent:
		b.pos += offset
	case io.SeekEnd:
		b.pos = int64(len(b.data)) + offset
	}
	return b.pos, nil
}

func (b *seekBuffer) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{Version: iris.Version{Major: 1, Minor: 2, Build: 3}, RootDirectoryOffset: 4096, Flags: 0}
	encoded := EncodeHeader(h)
	if len(encoded) != HeaderSize {
		t.Fatalf("EncodeHeader() length = %d, want %d", len(encoded), HeaderSize)
	}
	decoded, err := DecodeHeader(encoded)
	if err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if decoded != h {
		t.Errorf("DecodeHeader() = %+v, want %+v", decoded, h)
	}
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	data := make([]byte, HeaderSize)
	if _, err := DecodeHeader(data); err != ErrBadMagic {
		t.Errorf("DecodeHeader() error = %v, want ErrBadMagic", err)
	}
}

func TestRootDirectoryEncodeDecodeRoundTrip(t *testing.T) {
	dir := RootDirectory{
		CodecVersion: iris.Version{Major: 1, Minor: 0, Build: 0},
		Extent: iris.Extent{
			Width: 512, Height: 512,
			Layers: []iris.LayerExtent{
				{XTiles: 1, YTiles: 1, Scale: 0.5, Downsample: 2},
				{XTiles: 2, YTiles: 2, Scale: 1, Downsample: 1},
			},
		},
		Format:   iris.FormatR8G8B8A8,
		Encoding: codec.JPEG,
		Metadata: Metadata{
			Codec:           iris.Version{Major: 1, Minor: 0, Build: 0},
			Attributes:      map[string]string{"scanner": "Aperio", "stain": "H&E"},
			MicronsPerPixel: 0.25,
			Magnification:   40,
		},
		TileDirectory: [][]TileEntry{
			{{Offset: 400, Size: 25}},
			{{Offset: 64, Size: 100}, {Offset: 164, Size: 50}, {}, {Offset: 300, Size: 75}},
		},
		AssociatedImages: map[string]AssociatedImageEntry{
			"thumbnail": {Offset: 1000, Size: 200, Width: 128, Height: 128, Encoding: codec.JPEG, SourceFormat: iris.FormatR8G8B8, Orientation: iris.Orientation0},
		},
		Annotations: map[iris.AnnotationIdentifier]AnnotationEntry{
			7: {Offset: 2000, Size: 40, Type: "polygon", XLocation: 10, YLocation: 20, XSize: 5, YSize: 6, Width: 1, Height: 1},
		},
		AnnotationGroups: map[string]*iris.AnnotationGroup{
			"review-1": func() *iris.AnnotationGroup {
				g := iris.NewAnnotationGroup("review-1")
				g.Add(7)
				return g
			}(),
		},
		ICCProfileOffset: 5000,
		ICCProfileSize:   128,
	}

	encoded := EncodeRootDirectory(dir)
	decoded, err := DecodeRootDirectory(encoded)
	if err != nil {
		t.Fatalf("DecodeRootDirectory() error = %v", err)
	}

	if decoded.Extent.Width != dir.Extent.Width || decoded.Extent.Height != dir.Extent.Height {
		t.Errorf("Extent mismatch: got %+v, want %+v", decoded.Extent, dir.Extent)
	}
	if len(decoded.TileDirectory) != len(dir.TileDirectory) {
		t.Fatalf("TileDirectory layer count = %d, want %d", len(decoded.TileDirectory), len(dir.TileDirectory))
	}
	if decoded.TileDirectory[1][2] != (TileEntry{}) {
		t.Error("empty tile entry should decode to zero value")
	}
	if decoded.Metadata.Attributes["scanner"] != "Aperio" {
		t.Errorf("Metadata.Attributes[scanner] = %q, want Aperio", decoded.Metadata.Attributes["scanner"])
	}
	img, ok := decoded.AssociatedImages["thumbnail"]
	if !ok || img.Width != 128 {
		t.Errorf("AssociatedImages[thumbnail] = %+v, ok=%v", img, ok)
	}
	ann, ok := decoded.Annotations[7]
	if !ok || ann.Type != "polygon" {
		t.Errorf("Annotations[7] = %+v, ok=%v", ann, ok)
	}
	group, ok := decoded.AnnotationGroups["review-1"]
	if !ok || !group.Contains(7) {
		t.Errorf("AnnotationGroups[review-1] missing id 7")
	}
	if decoded.ICCProfileOffset != 5000 || decoded.ICCProfileSize != 128 {
		t.Errorf("ICC profile offset/size = %d/%d, want 5000/128", decoded.ICCProfileOffset, decoded.ICCProfileSize)
	}
}

func TestWriterOpenReaderRoundTrip(t *testing.T) {
	buf := &seekBuffer{}
	extent := iris.Extent{
		Width: 256, Height: 256,
		Layers: []iris.LayerExtent{{XTiles: 1, YTiles: 1, Scale: 1, Downsample: 1}},
	}
	w, err := NewWriter(buf, extent, iris.FormatR8G8B8, codec.JPEG)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	tileData := []byte{1, 2, 3, 4, 5}
	if err := w.WriteTile(0, 0, tileData); err != nil {
		t.Fatalf("WriteTile() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := OpenReader(buf, int64(len(buf.data)))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	got, err := f.ReadTile(0, 0)
	if err != nil {
		t.Fatalf("ReadTile() error = %v", err)
	}
	if !bytes.Equal(got, tileData) {
		t.Errorf("ReadTile() = %v, want %v", got, tileData)
	}
}

func TestWriteTileLayerOutOfRange(t *testing.T) {
	buf := &seekBuffer{}
	extent := iris.Extent{Width: 1, Height: 1, Layers: []iris.LayerExtent{{XTiles: 1, YTiles: 1, Scale: 1, Downsample: 1}}}
	w, _ := NewWriter(buf, extent, iris.FormatR8G8B8, codec.JPEG)
	if err := w.WriteTile(5, 0, nil); err != ErrLayerOutOfRange {
		t.Errorf("WriteTile() error = %v, want ErrLayerOutOfRange", err)
	}
}

func TestProbeDetectsMagic(t *testing.T) {
	buf := &seekBuffer{}
	extent := iris.Extent{Width: 1, Height: 1, Layers: []iris.LayerExtent{{XTiles: 1, YTiles: 1, Scale: 1, Downsample: 1}}}
	w, _ := NewWriter(buf, extent, iris.FormatR8G8B8, codec.JPEG)
	_ = w.Close()

	if !Probe(buf) {
		t.Error("Probe() = false, want true for a freshly written container")
	}
}

func TestValidateSlideRejectsTruncatedFile(t *testing.T) {
	data := make([]byte, 4)
	r := bytes.NewReader(data)
	result := ValidateSlide(r, int64(len(data)))
	if result.Ok() {
		t.Error("ValidateSlide() reported Ok for a truncated file")
	}
}
