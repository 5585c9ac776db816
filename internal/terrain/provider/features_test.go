package provider

import (
	"math"
	"testing"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

func TestExtractFeatures(t *testing.T) {
	g := DeriveFeatureGrid(moundDEM(20, 20), testBounds(), 2.0)
	lat, lon := g.LatLon(10, 10)

	feats, err := ExtractFeatures(lat, lon, g)
	if err != nil {
		t.Fatalf("ExtractFeatures: %v", err)
	}
	for _, name := range terrain.MotifFeatureNames {
		v, ok := feats[name]
		if !ok {
			t.Errorf("missing feature %q", name)
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("feature %q = %f, want finite", name, v)
		}
	}
	if len(feats) != len(terrain.MotifFeatureNames) {
		t.Errorf("got %d features, want %d", len(feats), len(terrain.MotifFeatureNames))
	}

	// The plateau centre has the tile's maximum normalised height and a
	// positive anomaly.
	if feats["normalized_height"] != 1 {
		t.Errorf("normalized_height = %f, want 1", feats["normalized_height"])
	}
	if feats["elevation_anomaly"] <= 0 {
		t.Errorf("elevation_anomaly = %f, want positive", feats["elevation_anomaly"])
	}
	if feats["height_variance"] <= 0 {
		t.Errorf("height_variance = %f, want positive near the plateau edge", feats["height_variance"])
	}
}

func TestExtractFeaturesOutsideGrid(t *testing.T) {
	g := DeriveFeatureGrid(moundDEM(20, 20), testBounds(), 2.0)
	if _, err := ExtractFeatures(53.0, 4.815, g); err == nil {
		t.Error("expected an error for a site outside the grid")
	}
}

func TestExtractFeaturesDeterministic(t *testing.T) {
	g := DeriveFeatureGrid(moundDEM(20, 20), testBounds(), 2.0)
	lat, lon := g.LatLon(7, 12)

	a, err := ExtractFeatures(lat, lon, g)
	if err != nil {
		t.Fatalf("ExtractFeatures: %v", err)
	}
	b, err := ExtractFeatures(lat, lon, g)
	if err != nil {
		t.Fatalf("ExtractFeatures: %v", err)
	}
	for name, v := range a {
		if b[name] != v {
			t.Errorf("feature %q differs between calls: %f != %f", name, v, b[name])
		}
	}
}
