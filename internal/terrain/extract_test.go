package terrain

import (
	"math"
	"testing"
)

// blobMap returns an otherwise zero coherence map with a square plateau of
// side inner at value 1.0 surrounded by a one-pixel ring at 0.5, centred on
// (cy, cx). The two-level blob keeps the value range above the near-flat
// epsilon so extraction follows the percentile path.
func blobMap(h, w, cy, cx, inner int) *CoherenceMap {
	cm := NewCoherenceMap(h, w)
	half := inner / 2
	for y := cy - half - 1; y <= cy+half+1; y++ {
		for x := cx - half - 1; x <= cx+half+1; x++ {
			v := 0.5
			if y >= cy-half && y <= cy+half && x >= cx-half && x <= cx+half {
				v = 1.0
			}
			cm.Values[y*w+x] = v
		}
	}
	return cm
}

func TestExtractCandidatesEmpty(t *testing.T) {
	bounds := testGridBounds()
	p := DefaultExtractParams()

	if got := ExtractCandidates(nil, bounds, 1.0, p); got == nil || len(got) != 0 {
		t.Errorf("ExtractCandidates(nil) = %v, want empty slice", got)
	}
	if got := ExtractCandidates(NewCoherenceMap(0, 0), bounds, 1.0, p); len(got) != 0 {
		t.Errorf("ExtractCandidates(empty map) = %v, want empty slice", got)
	}
	if got := ExtractCandidates(NewCoherenceMap(30, 30), bounds, 1.0, p); len(got) != 0 {
		t.Errorf("ExtractCandidates(all-zero map) = %v, want empty slice", got)
	}
}

func TestExtractCandidatesSingleBlob(t *testing.T) {
	bounds := testGridBounds()
	cm := blobMap(40, 40, 20, 20, 6)

	got := ExtractCandidates(cm, bounds, 2.0, DefaultExtractParams())
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	c := got[0]

	if c.Lat < bounds.LatMin || c.Lat > bounds.LatMax {
		t.Errorf("Lat = %f, want within bounds", c.Lat)
	}
	if c.Lon < bounds.LonMin || c.Lon > bounds.LonMax {
		t.Errorf("Lon = %f, want within bounds", c.Lon)
	}
	if c.Psi0 != 1.0 {
		t.Errorf("Psi0 = %f, want 1.0", c.Psi0)
	}
	if math.Abs(c.Phi0-0.95*c.Psi0) > 1e-12 {
		t.Errorf("Phi0 = %f, want 0.95 of Psi0", c.Phi0)
	}
	if c.Confidence != 1.0 {
		t.Errorf("Confidence = %f, want 1.0", c.Confidence)
	}
	if c.ElevationAnomalyM != 2.0 {
		t.Errorf("ElevationAnomalyM = %f, want 2.0", c.ElevationAnomalyM)
	}
	if c.FoundationDiameterM == nil || *c.FoundationDiameterM <= 0 {
		t.Errorf("FoundationDiameterM = %v, want positive", c.FoundationDiameterM)
	}
	if c.Source != SourceScan {
		t.Errorf("Source = %q, want %q", c.Source, SourceScan)
	}

	// The centroid should land on the blob centre.
	lat := bounds.LatMin + 20.0/39.0*bounds.LatExtent()
	lon := bounds.LonMin + 20.0/39.0*bounds.LonExtent()
	if math.Abs(c.Lat-lat) > bounds.LatExtent()/39 {
		t.Errorf("Lat = %f, want near %f", c.Lat, lat)
	}
	if math.Abs(c.Lon-lon) > bounds.LonExtent()/39 {
		t.Errorf("Lon = %f, want near %f", c.Lon, lon)
	}
}

func TestExtractCandidatesTwoBlobs(t *testing.T) {
	cm := blobMap(60, 60, 15, 15, 6)
	for y := 40 - 4; y <= 40+4; y++ {
		for x := 40 - 4; x <= 40+4; x++ {
			v := 0.5
			if y >= 40-3 && y <= 40+3 && x >= 40-3 && x <= 40+3 {
				v = 1.0
			}
			cm.Values[y*cm.W+x] = v
		}
	}

	got := ExtractCandidates(cm, testGridBounds(), 2.0, DefaultExtractParams())
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
}

func TestExtractCandidatesSparseMap(t *testing.T) {
	// Fewer non-zero values than MinNonZero: the threshold drops to the
	// minimum so the lone cluster still survives.
	cm := NewCoherenceMap(30, 30)
	for y := 14; y <= 16; y++ {
		for x := 14; x <= 16; x++ {
			cm.Values[y*cm.W+x] = 0.8
		}
	}

	got := ExtractCandidates(cm, testGridBounds(), 1.0, DefaultExtractParams())
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Psi0 != 0.8 {
		t.Errorf("Psi0 = %f, want 0.8", got[0].Psi0)
	}
}

func TestExtractCandidatesMinClusterPixels(t *testing.T) {
	cm := blobMap(40, 40, 20, 20, 6)
	p := DefaultExtractParams()
	p.MinClusterPixels = 500

	if got := ExtractCandidates(cm, testGridBounds(), 2.0, p); len(got) != 0 {
		t.Errorf("got %d candidates, want 0 with a high cluster floor", len(got))
	}
}
