package slide

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"

	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/ife"
	"github.com/IrisDigitalPathology/iris-codec/iris"
)

func jpegTile(fill color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iris.TilePixLength, iris.TilePixLength))
	for y := 0; y < iris.TilePixLength; y++ {
		for x := 0; x < iris.TilePixLength; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func writeTestSlide(t *testing.T) string {
	t.Helper()
	path := t.TempDir() + "/test.ife"
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	extent := iris.Extent{
		Width: 256, Height: 256,
		Layers: []iris.LayerExtent{{XTiles: 1, YTiles: 1, Scale: 1, Downsample: 1}},
	}
	w, err := ife.NewWriter(f, extent, iris.FormatR8G8B8A8, codec.JPEG)
	if err != nil {
		t.Fatal(err)
	}
	data := jpegTile(color.RGBA{R: 200, G: 50, B: 50, A: 255})
	if err := w.WriteTile(0, 0, data); err != nil {
		t.Fatal(err)
	}
	ann := iris.Annotation{Type: "TEXT", Data: []byte("note"), XLocation: 1, YLocation: 2}
	if err := w.WriteAnnotation(7, ann); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func TestOpenAndGetInfo(t *testing.T) {
	path := writeTestSlide(t)
	s, err := Open(path, OpenInfo{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	info := s.GetInfo()
	if info.Extent.Width != 256 || info.Extent.Height != 256 {
		t.Errorf("GetInfo().Extent = %+v, want 256x256", info.Extent)
	}
	if info.Encoding != codec.JPEG {
		t.Errorf("GetInfo().Encoding = %v, want JPEG", info.Encoding)
	}
}

func TestReadTileDecodesAndConverts(t *testing.T) {
	path := writeTestSlide(t)
	s, err := Open(path, OpenInfo{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	buf, err := s.ReadTile(ReadTileInfo{Layer: 0, Index: 0, DesiredFormat: iris.FormatR8G8B8})
	if err != nil {
		t.Fatalf("ReadTile() error = %v", err)
	}
	if buf.Size() != iris.TilePixLength*iris.TilePixLength*3 {
		t.Errorf("ReadTile() size = %d, want %d", buf.Size(), iris.TilePixLength*iris.TilePixLength*3)
	}
}

func TestReadTileUsesDecodeCache(t *testing.T) {
	path := writeTestSlide(t)
	s, err := Open(path, OpenInfo{CacheCapacity: DefaultCacheCapacity})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := s.ReadTile(ReadTileInfo{Layer: 0, Index: 0, DesiredFormat: iris.FormatR8G8B8A8}); err != nil {
		t.Fatalf("ReadTile() first call error = %v", err)
	}
	if _, ok := s.cache.get(tileKey{0, 0}); !ok {
		t.Error("expected tile to be cached after first read")
	}
	if _, err := s.ReadTile(ReadTileInfo{Layer: 0, Index: 0, DesiredFormat: iris.FormatR8G8B8A8}); err != nil {
		t.Fatalf("ReadTile() second call error = %v", err)
	}
}

func TestReadTileEmptySlotSynthesizesBackground(t *testing.T) {
	path := t.TempDir() + "/empty.ife"
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	extent := iris.Extent{
		Width: 512, Height: 512,
		Layers: []iris.LayerExtent{{XTiles: 2, YTiles: 2, Scale: 1, Downsample: 1}},
	}
	w, err := ife.NewWriter(f, extent, iris.FormatR8G8B8A8, codec.JPEG)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s, err := Open(path, OpenInfo{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	buf, err := s.ReadTile(ReadTileInfo{Layer: 0, Index: 0, DesiredFormat: iris.FormatR8G8B8A8})
	if err != nil {
		t.Fatalf("ReadTile() error = %v", err)
	}
	want := iris.TilePixLength * iris.TilePixLength * 4
	if buf.Size() != want {
		t.Errorf("synthesized tile size = %d, want %d", buf.Size(), want)
	}
	for _, b := range buf.Data() {
		if b != 0 {
			t.Fatal("synthesized background tile should be zero-filled")
		}
	}
}

func TestAnnotateSlideAppendsAndPersists(t *testing.T) {
	path := writeTestSlide(t)
	s, err := Open(path, OpenInfo{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	err = s.AnnotateSlide(42, iris.Annotation{Type: "TEXT", Data: []byte("hello"), XLocation: 5, YLocation: 6})
	if err != nil {
		t.Fatalf("AnnotateSlide() error = %v", err)
	}
	s.Close()

	reopened, err := Open(path, OpenInfo{})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	anns, err := reopened.GetAnnotations()
	if err != nil {
		t.Fatalf("GetAnnotations() error = %v", err)
	}
	got, ok := anns[42]
	if !ok {
		t.Fatal("annotation 42 missing after reopen")
	}
	if string(got.Data) != "hello" {
		t.Errorf("annotation data = %q, want hello", got.Data)
	}
	if _, ok := anns[7]; !ok {
		t.Error("pre-existing annotation 7 should survive the append")
	}
}

func TestAnnotateAtViewportResolvesFractionalCoordinates(t *testing.T) {
	path := writeTestSlide(t)
	s, err := Open(path, OpenInfo{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	err = s.AnnotateAtViewport(99, ViewportAnnotation{
		Type: "TEXT", Data: []byte("viewport"), XOffset: 0.5, YOffset: 0.25,
	})
	if err != nil {
		t.Fatalf("AnnotateAtViewport() error = %v", err)
	}

	anns, err := s.GetAnnotations()
	if err != nil {
		t.Fatalf("GetAnnotations() error = %v", err)
	}
	got, ok := anns[99]
	if !ok {
		t.Fatal("annotation 99 missing")
	}
	if got.XLocation != 128 || got.YLocation != 64 {
		t.Errorf("resolved location = (%v, %v), want (128, 64)", got.XLocation, got.YLocation)
	}
}
