package provider

import (
	"math"
	"testing"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

func testBounds() terrain.Bounds {
	return terrain.Bounds{LatMin: 52.47, LatMax: 52.48, LonMin: 4.81, LonMax: 4.82}
}

// moundDEM is a flat 1m plain with a raised plateau in the middle.
func moundDEM(h, w int) [][]float64 {
	elev := make([][]float64, h)
	for y := 0; y < h; y++ {
		elev[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			elev[y][x] = 1.0
			if y >= h/2-2 && y <= h/2+2 && x >= w/2-2 && x <= w/2+2 {
				elev[y][x] = 3.0
			}
		}
	}
	return elev
}

func TestDeriveFeatureGridEmpty(t *testing.T) {
	g := DeriveFeatureGrid(nil, testBounds(), 2.0)
	if g.H != 0 || g.W != 0 {
		t.Errorf("grid = %dx%d, want empty", g.H, g.W)
	}
}

func TestDeriveFeatureGridFlat(t *testing.T) {
	elev := make([][]float64, 10)
	for y := range elev {
		elev[y] = make([]float64, 10)
		for x := range elev[y] {
			elev[y][x] = 5.0
		}
	}
	g := DeriveFeatureGrid(elev, testBounds(), 2.0)

	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			if v := g.At(y, x, terrain.BandSlope); v != 0 {
				t.Fatalf("slope at (%d, %d) = %f on flat terrain, want 0", y, x, v)
			}
			if v := g.At(y, x, terrain.BandCurvature); v != 0 {
				t.Fatalf("curvature at (%d, %d) = %f on flat terrain, want 0", y, x, v)
			}
			if v := g.At(y, x, terrain.BandElevationAnomaly); v != 0 {
				t.Fatalf("anomaly at (%d, %d) = %f on flat terrain, want 0", y, x, v)
			}
		}
	}
}

func TestDeriveFeatureGridMound(t *testing.T) {
	g := DeriveFeatureGrid(moundDEM(20, 20), testBounds(), 2.0)
	cy, cx := 10, 10

	// The plateau centre sits above its 9x9 neighbourhood mean.
	if v := g.At(cy, cx, terrain.BandElevationAnomaly); v <= 0 {
		t.Errorf("anomaly at plateau centre = %f, want positive", v)
	}
	// Normalised height spans [0, 1] over the tile.
	if v := g.At(cy, cx, terrain.BandNormalizedHeight); math.Abs(v-1) > 1e-12 {
		t.Errorf("normalised height at plateau = %f, want 1", v)
	}
	if v := g.At(0, 0, terrain.BandNormalizedHeight); v != 0 {
		t.Errorf("normalised height on the plain = %f, want 0", v)
	}
	// The plateau edge is a step: positive slope and edge density.
	if v := g.At(cy, cx-3, terrain.BandSlope); v <= 0 {
		t.Errorf("slope at plateau edge = %f, want positive", v)
	}
	if v := g.At(cy, cx-3, terrain.BandBuilt); v <= 0 {
		t.Errorf("edge density at plateau edge = %f, want positive", v)
	}

	// All bands stay finite everywhere.
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			for f := 0; f < terrain.NumBands; f++ {
				v := g.At(y, x, f)
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("band %d at (%d, %d) = %f, want finite", f, y, x, v)
				}
			}
		}
	}
}

func TestDeriveFeatureGridMasksHoles(t *testing.T) {
	elev := moundDEM(12, 12)
	elev[3][4] = math.NaN()

	g := DeriveFeatureGrid(elev, testBounds(), 2.0)
	if g.Valid(3, 4) {
		t.Error("expected the NaN cell to be masked invalid")
	}
	if !g.Valid(3, 5) {
		t.Error("expected the neighbouring cell to stay valid")
	}
}
