package simd

import (
	"testing"

	"github.com/IrisDigitalPathology/iris-codec/iris"
)

func TestConvertTileFormatSwapChannels(t *testing.T) {
	src := []byte{10, 20, 30, 40, 50, 60} // two BGR pixels
	out, err := ConvertTileFormat(src, iris.FormatB8G8R8, iris.FormatR8G8B8, nil)
	if err != nil {
		t.Fatalf("ConvertTileFormat() error = %v", err)
	}
	want := []byte{30, 20, 10, 60, 50, 40}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("ConvertTileFormat()[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestConvertTileFormatExpandAlpha(t *testing.T) {
	src := []byte{1, 2, 3}
	out, err := ConvertTileFormat(src, iris.FormatR8G8B8, iris.FormatR8G8B8A8, nil)
	if err != nil {
		t.Fatalf("ConvertTileFormat() error = %v", err)
	}
	want := []byte{1, 2, 3, 0xFF}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("ConvertTileFormat()[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestConvertTileFormatStripAlphaIsInverse(t *testing.T) {
	src := []byte{1, 2, 3}
	expanded, err := ConvertTileFormat(src, iris.FormatR8G8B8, iris.FormatR8G8B8A8, nil)
	if err != nil {
		t.Fatalf("expand error = %v", err)
	}
	stripped, err := ConvertTileFormat(expanded, iris.FormatR8G8B8A8, iris.FormatR8G8B8, nil)
	if err != nil {
		t.Fatalf("strip error = %v", err)
	}
	for i := range src {
		if stripped[i] != src[i] {
			t.Fatalf("round trip[%d] = %d, want %d", i, stripped[i], src[i])
		}
	}
}

func TestConvertTileFormatIdentityReturnsSameSlice(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	out, err := ConvertTileFormat(src, iris.FormatR8G8B8A8, iris.FormatR8G8B8A8, nil)
	if err != nil {
		t.Fatalf("ConvertTileFormat() error = %v", err)
	}
	if &out[0] != &src[0] {
		t.Error("identity conversion should return the same backing array")
	}
}

func uniformTile(channels int, value byte) []byte {
	buf := make([]byte, tileLength*tileLength*channels)
	for i := range buf {
		buf[i] = value
	}
	return buf
}

func TestDownsample2xAvgUniformTile(t *testing.T) {
	src := uniformTile(3, 100)
	dst := make([]byte, tileLength*tileLength*3)
	if err := DownsampleIntoTile2xAvg(src, dst, 0, 0, 3); err != nil {
		t.Fatalf("DownsampleIntoTile2xAvg() error = %v", err)
	}
	if dst[0] != 100 {
		t.Errorf("dst[0] = %d, want 100", dst[0])
	}
}

func TestDownsample2xAvgPlacesSubRegion(t *testing.T) {
	src := uniformTile(1, 50)
	dst := make([]byte, tileLength*tileLength)
	if err := DownsampleIntoTile2xAvg(src, dst, 1, 0, 1); err != nil {
		t.Fatalf("DownsampleIntoTile2xAvg() error = %v", err)
	}
	// sub_y=1 should place output starting at row 128, not row 0.
	if dst[0] != 0 {
		t.Errorf("dst[0] = %d, want untouched 0", dst[0])
	}
	if dst[128*tileLength] != 50 {
		t.Errorf("dst[row 128] = %d, want 50", dst[128*tileLength])
	}
}

func TestDownsampleOutOfRangeSubRegion(t *testing.T) {
	src := uniformTile(1, 1)
	dst := make([]byte, tileLength*tileLength)
	if err := DownsampleIntoTile2xAvg(src, dst, 2, 0, 1); err != ErrSubRegionOutOfRange {
		t.Errorf("error = %v, want ErrSubRegionOutOfRange", err)
	}
}

func TestDownsample4xAvgAverages(t *testing.T) {
	src := make([]byte, tileLength*tileLength)
	// First 4x4 block: two 0s and fourteen 255s average to well above 127.
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if y == 0 && x < 2 {
				src[y*tileLength+x] = 0
			} else {
				src[y*tileLength+x] = 255
			}
		}
	}
	dst := make([]byte, tileLength*tileLength)
	if err := DownsampleIntoTile4xAvg(src, dst, 0, 0, 1); err != nil {
		t.Fatalf("DownsampleIntoTile4xAvg() error = %v", err)
	}
	if dst[0] == 0 || dst[0] == 255 {
		t.Errorf("dst[0] = %d, want a blended average", dst[0])
	}
}
