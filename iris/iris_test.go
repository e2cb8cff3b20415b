package iris

import "testing"

func TestResultClassification(t *testing.T) {
	tests := []struct {
		name      string
		flag      ResultFlag
		wantOk    bool
		wantFail  bool
		wantWarn  bool
	}{
		{"success", Success, true, false, false},
		{"uninitialized", Uninitialized, false, true, false},
		{"validation", ValidationFailure, false, true, false},
		{"warning", WarningValidation, false, false, true},
	}
	for _, tt := range tests {
		r := Result{Flag: tt.flag}
		if r.Ok() != tt.wantOk {
			t.Errorf("%s: Ok() = %v, want %v", tt.name, r.Ok(), tt.wantOk)
		}
		if r.IsFailure() != tt.wantFail {
			t.Errorf("%s: IsFailure() = %v, want %v", tt.name, r.IsFailure(), tt.wantFail)
		}
		if r.IsWarning() != tt.wantWarn {
			t.Errorf("%s: IsWarning() = %v, want %v", tt.name, r.IsWarning(), tt.wantWarn)
		}
	}
}

func TestVersionCompare(t *testing.T) {
	a := Version{1, 2, 3}
	b := Version{1, 2, 4}
	if a.Compare(b) != -1 {
		t.Errorf("a.Compare(b) = %d, want -1", a.Compare(b))
	}
	if b.Compare(a) != 1 {
		t.Errorf("b.Compare(a) = %d, want 1", b.Compare(a))
	}
	if a.Compare(a) != 0 {
		t.Errorf("a.Compare(a) = %d, want 0", a.Compare(a))
	}
}

func TestExtentPyramidBase(t *testing.T) {
	e := Extent{
		Width:  512,
		Height: 512,
		Layers: []LayerExtent{
			{XTiles: 1, YTiles: 1, Scale: 0.5, Downsample: 2},
			{XTiles: 2, YTiles: 2, Scale: 1, Downsample: 1},
		},
	}
	if !e.IsSingleTilePyramidBase(0) {
		t.Error("layer 0 should be the pyramid base")
	}
	if e.IsSingleTilePyramidBase(1) {
		t.Error("layer 1 should not be the pyramid base")
	}
	if e.NumTiles(1) != 4 {
		t.Errorf("NumTiles(1) = %d, want 4", e.NumTiles(1))
	}
}

func TestOrientationAliases(t *testing.T) {
	if OrientationMinus90 != Orientation270 {
		t.Error("OrientationMinus90 should equal Orientation270")
	}
	if Orientation90.Degrees() != 90 {
		t.Errorf("Orientation90.Degrees() = %d, want 90", Orientation90.Degrees())
	}
}
