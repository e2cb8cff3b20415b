package encoder

import (
	"os"
	"testing"
	"time"

	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/ife"
	"github.com/IrisDigitalPathology/iris-codec/iris"
)

func solidSource(width, height uint32, format iris.Format, fill byte) *MemorySource {
	pixels := make([]byte, int(width)*int(height)*format.Channels())
	for i := range pixels {
		pixels[i] = fill
	}
	return &MemorySource{Width: width, Height: height, PixelFormat: format, Pixels: pixels}
}

func TestPlanPyramidStopsAtSingleTile(t *testing.T) {
	layers := planPyramid(600, 600, Derive2xLayers)
	if len(layers) == 0 {
		t.Fatal("planPyramid() returned no layers")
	}
	first := layers[0]
	if first.XTiles != 1 || first.YTiles != 1 {
		t.Errorf("layer 0 = %+v, want 1x1 (coarsest)", first)
	}
	last := layers[len(layers)-1]
	if last.XTiles != 3 || last.YTiles != 3 {
		t.Errorf("last layer = %+v, want 3x3 (full resolution) for a 600px/256 source", last)
	}
}

func TestPlanPyramid4xFactor(t *testing.T) {
	layers := planPyramid(1024, 1024, Derive4xLayers)
	if layers[0].XTiles != 1 {
		t.Errorf("layer 0 XTiles = %d, want 1 (coarsest)", layers[0].XTiles)
	}
	last := len(layers) - 1
	if last < 1 || layers[last].XTiles != 4 {
		t.Errorf("last layer should be the full-resolution 4-tile-wide layer, got %+v", layers)
	}
}

func TestDispatchRequiresSourceAndDstPath(t *testing.T) {
	e, err := NewEncoder(Info{})
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if err := e.Dispatch(); err != ErrEncoderNotReady {
		t.Errorf("Dispatch() error = %v, want ErrEncoderNotReady", err)
	}
}

func TestEncodeEndToEnd(t *testing.T) {
	dst := t.TempDir() + "/out.ife"
	src := solidSource(600, 600, iris.FormatR8G8B8A8, 77)

	e, err := NewEncoder(Info{DstPath: dst, DerivationFactor: Derive2xLayers, Encoding: codec.JPEG})
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if err := e.SetSource(src); err != nil {
		t.Fatalf("SetSource() error = %v", err)
	}
	if err := e.Dispatch(); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	e.Wait()

	progress := e.Progress()
	if progress.Status != Inactive {
		t.Fatalf("final status = %v, want INACTIVE; error: %s", progress.Status, progress.ErrorMsg)
	}
	if progress.Fraction != 1 {
		t.Errorf("final progress fraction = %v, want 1", progress.Fraction)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open encoded file error = %v", err)
	}
	defer f.Close()
	stat, _ := f.Stat()
	file, err := ife.OpenReader(f, stat.Size())
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	if file.Directory.Extent.Width != 600 || file.Directory.Extent.Height != 600 {
		t.Errorf("encoded extent = %+v, want 600x600", file.Directory.Extent)
	}
	if len(file.Directory.Extent.Layers) < 2 {
		t.Errorf("expected more than one pyramid layer, got %d", len(file.Directory.Extent.Layers))
	}
	lastLayer := len(file.Directory.Extent.Layers) - 1
	if _, err := file.ReadTile(lastLayer, 0); err != nil {
		t.Errorf("ReadTile(full-resolution layer) error = %v", err)
	}
	if _, err := file.ReadTile(0, 0); err != nil {
		t.Errorf("ReadTile(coarsest layer) error = %v", err)
	}
}

func TestInterruptDeletesPartialFile(t *testing.T) {
	dst := t.TempDir() + "/interrupted.ife"
	// A large source with a single worker gives Interrupt a wide window to
	// land mid-run.
	src := solidSource(4096, 4096, iris.FormatR8G8B8A8, 9)

	e, err := NewEncoder(Info{DstPath: dst, DerivationFactor: Derive2xLayers, Encoding: codec.JPEG, Concurrency: 1})
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if err := e.SetSource(src); err != nil {
		t.Fatalf("SetSource() error = %v", err)
	}
	if err := e.Dispatch(); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := e.Interrupt(); err != nil {
		t.Fatalf("Interrupt() error = %v", err)
	}

	progress := e.Progress()
	if progress.Status != Shutdown {
		t.Errorf("status after Interrupt() = %v, want SHUTDOWN", progress.Status)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("partial output file should have been deleted, stat error = %v", err)
	}
}

func TestResetClearsState(t *testing.T) {
	e, err := NewEncoder(Info{DstPath: "unused.ife"})
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if err := e.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if e.Progress().DstPath != "" {
		t.Error("Reset() should clear DstPath")
	}
}

func TestConfigurationRejectedWhileActive(t *testing.T) {
	dst := t.TempDir() + "/active.ife"
	src := solidSource(2048, 2048, iris.FormatR8G8B8A8, 3)
	e, err := NewEncoder(Info{DstPath: dst, Concurrency: 1})
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	e.SetSource(src)
	if err := e.Dispatch(); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	defer e.Interrupt()

	if err := e.SetDstPath("other.ife"); err != ErrEncoderActive {
		t.Errorf("SetDstPath() while active error = %v, want ErrEncoderActive", err)
	}
}
