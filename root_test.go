package iriscodec

import (
	"os"
	"testing"

	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/encoder"
	"github.com/IrisDigitalPathology/iris-codec/iris"
	"github.com/IrisDigitalPathology/iris-codec/slide"
)

func solidSource(width, height uint32, format iris.Format, fill byte) *encoder.MemorySource {
	pixels := make([]byte, int(width)*int(height)*format.Channels())
	for i := range pixels {
		pixels[i] = fill
	}
	return &encoder.MemorySource{Width: width, Height: height, PixelFormat: format, Pixels: pixels}
}

func encodeFixture(t *testing.T, dst string) {
	t.Helper()
	ctx := Create()
	e, result := CreateEncoder(ctx, encoder.Info{DerivationFactor: encoder.Derive2xLayers, Encoding: codec.JPEG})
	if !result.Ok() {
		t.Fatalf("CreateEncoder() result = %+v", result)
	}
	if result := SetEncoderSrc(e, solidSource(512, 512, iris.FormatR8G8B8A8, 42)); !result.Ok() {
		t.Fatalf("SetEncoderSrc() result = %+v", result)
	}
	if result := SetEncoderDstPath(e, dst); !result.Ok() {
		t.Fatalf("SetEncoderDstPath() result = %+v", result)
	}
	if result := DispatchEncoder(e); !result.Ok() {
		t.Fatalf("DispatchEncoder() result = %+v", result)
	}
	e.Wait()
	progress := GetEncoderProgress(e)
	if progress.Status != encoder.Inactive {
		t.Fatalf("final status = %v, want INACTIVE; error: %s", progress.Status, progress.ErrorMsg)
	}
}

func TestIsIrisCodecFile(t *testing.T) {
	dst := t.TempDir() + "/slide.ife"
	encodeFixture(t, dst)

	if !IsIrisCodecFile(dst) {
		t.Error("IsIrisCodecFile() = false for a freshly encoded file")
	}
	if IsIrisCodecFile(dst + ".missing") {
		t.Error("IsIrisCodecFile() = true for a nonexistent path")
	}

	garbage := t.TempDir() + "/garbage.bin"
	if err := os.WriteFile(garbage, []byte("not an ife file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if IsIrisCodecFile(garbage) {
		t.Error("IsIrisCodecFile() = true for a non-IFE file")
	}
}

func TestValidateSlideOnEncodedFile(t *testing.T) {
	dst := t.TempDir() + "/slide.ife"
	encodeFixture(t, dst)

	result := ValidateSlide(dst)
	if !result.Ok() {
		t.Errorf("ValidateSlide() = %+v, want OK", result)
	}
}

func TestOpenSlideReadTileAndAnnotate(t *testing.T) {
	dst := t.TempDir() + "/slide.ife"
	encodeFixture(t, dst)

	ctx := Create()
	s, result := OpenSlide(ctx, dst, slide.OpenInfo{})
	if !result.Ok() {
		t.Fatalf("OpenSlide() result = %+v", result)
	}
	defer s.Close()

	info, result := GetSlideInfo(s)
	if !result.Ok() {
		t.Fatalf("GetSlideInfo() result = %+v", result)
	}
	if info.Extent.Width != 512 || info.Extent.Height != 512 {
		t.Errorf("slide extent = %+v, want 512x512", info.Extent)
	}

	data, result := ReadSlideTile(s, slide.ReadTileInfo{Layer: 0, Index: 0, DesiredFormat: iris.FormatR8G8B8A8})
	if !result.Ok() {
		t.Fatalf("ReadSlideTile() result = %+v", result)
	}
	if len(data) != iris.TilePixLength*iris.TilePixLength*4 {
		t.Errorf("tile data length = %d, want %d", len(data), iris.TilePixLength*iris.TilePixLength*4)
	}

	id := iris.AnnotationIdentifier(1)
	annotation := iris.Annotation{Type: "note", Data: []byte("hello"), XLocation: 10, YLocation: 10}
	if result := AnnotateSlide(s, id, annotation); !result.Ok() {
		t.Fatalf("AnnotateSlide() result = %+v", result)
	}

	annotations, result := GetSlideAnnotations(s)
	if !result.Ok() {
		t.Fatalf("GetSlideAnnotations() result = %+v", result)
	}
	if got, ok := annotations[id]; !ok || string(got.Data) != "hello" {
		t.Errorf("GetSlideAnnotations()[%v] = %+v, want Data %q", id, got, "hello")
	}
}

func TestContextHasGPU(t *testing.T) {
	cpuOnly := Create()
	if cpuOnly.HasGPU() {
		t.Error("Create() context reports HasGPU() = true")
	}
	var nilCtx *Context
	if nilCtx.HasGPU() {
		t.Error("nil *Context reports HasGPU() = true")
	}
	withDevice := CreateWithDevice(&GPUDevice{Name: "test-device"})
	if !withDevice.HasGPU() {
		t.Error("CreateWithDevice() context reports HasGPU() = false")
	}
}
