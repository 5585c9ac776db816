package terrain

import (
	"math"
	"testing"
)

func testGridBounds() Bounds {
	return Bounds{LatMin: 52.47, LatMax: 52.48, LonMin: 4.81, LonMax: 4.82}
}

func TestBoundsValid(t *testing.T) {
	cases := []struct {
		name   string
		bounds Bounds
		want   bool
	}{
		{"normal", testGridBounds(), true},
		{"inverted lat", Bounds{LatMin: 52.48, LatMax: 52.47, LonMin: 4.81, LonMax: 4.82}, false},
		{"inverted lon", Bounds{LatMin: 52.47, LatMax: 52.48, LonMin: 4.82, LonMax: 4.81}, false},
		{"degenerate", Bounds{LatMin: 52.47, LatMax: 52.47, LonMin: 4.81, LonMax: 4.82}, false},
		{"out of range", Bounds{LatMin: -91, LatMax: 52.48, LonMin: 4.81, LonMax: 4.82}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.bounds.Valid(); got != tc.want {
				t.Errorf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGridCoordsRoundTrip(t *testing.T) {
	g := NewFeatureGrid(50, 40, testGridBounds(), 1.0)

	// Corners map to corner pixels; row 0 is the southern edge.
	y, x, ok := g.GridCoords(g.Bounds.LatMin, g.Bounds.LonMin)
	if !ok || y != 0 || x != 0 {
		t.Errorf("south-west corner = (%d, %d, %v), want (0, 0, true)", y, x, ok)
	}
	y, x, ok = g.GridCoords(g.Bounds.LatMax, g.Bounds.LonMax)
	if !ok || y != g.H-1 || x != g.W-1 {
		t.Errorf("north-east corner = (%d, %d, %v), want (%d, %d, true)", y, x, ok, g.H-1, g.W-1)
	}

	// LatLon inverts GridCoords within one pixel.
	lat, lon := g.LatLon(25, 20)
	y, x, ok = g.GridCoords(lat, lon)
	if !ok || y != 25 || x != 20 {
		t.Errorf("round trip = (%d, %d, %v), want (25, 20, true)", y, x, ok)
	}
}

func TestGridCoordsOutside(t *testing.T) {
	g := NewFeatureGrid(50, 40, testGridBounds(), 1.0)
	if _, _, ok := g.GridCoords(52.50, 4.815); ok {
		t.Error("expected point north of bounds to be rejected")
	}
	if _, _, ok := g.GridCoords(52.475, 4.80); ok {
		t.Error("expected point west of bounds to be rejected")
	}
}

func TestExtractPatch(t *testing.T) {
	g := NewFeatureGrid(20, 20, testGridBounds(), 1.0)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			g.Set(y, x, BandNormalizedHeight, float64(y*g.W+x))
		}
	}

	patch, ok := g.ExtractPatch(10, 10, 5, nil)
	if !ok {
		t.Fatal("expected interior patch to fit")
	}
	if patch.Side != 5 {
		t.Fatalf("Side = %d, want 5", patch.Side)
	}
	// Patch centre matches the grid pixel.
	if got, want := patch.At(2, 2, BandNormalizedHeight), g.At(10, 10, BandNormalizedHeight); got != want {
		t.Errorf("patch centre = %f, want %f", got, want)
	}

	if _, ok := g.ExtractPatch(1, 10, 5, nil); ok {
		t.Error("expected patch at the edge to be rejected")
	}
	if _, ok := g.ExtractPatch(10, 18, 5, nil); ok {
		t.Error("expected patch near the east edge to be rejected")
	}
}

func TestGradientLinearRamp(t *testing.T) {
	const side = 7
	field := make([]float64, side*side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			field[y*side+x] = 3*float64(x) + 2*float64(y)
		}
	}

	gx := make([]float64, side*side)
	gy := make([]float64, side*side)
	gradient(field, side, gx, gy)

	// Central and one-sided differences agree exactly on a linear field.
	for i := range field {
		if math.Abs(gx[i]-3) > 1e-12 {
			t.Fatalf("gx[%d] = %f, want 3", i, gx[i])
		}
		if math.Abs(gy[i]-2) > 1e-12 {
			t.Fatalf("gy[%d] = %f, want 2", i, gy[i])
		}
	}
}

func TestPatchBandRange(t *testing.T) {
	p := NewPatch(3)
	for i := 0; i < 9; i++ {
		p.Data[i*NumBands+BandSlope] = float64(i)
	}
	if got := p.bandRange(BandSlope); got != 8 {
		t.Errorf("bandRange = %f, want 8", got)
	}
	if got := p.bandRange(BandCurvature); got != 0 {
		t.Errorf("constant band range = %f, want 0", got)
	}
}
