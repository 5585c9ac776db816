package visualiser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

func testBounds() terrain.Bounds {
	return terrain.Bounds{LatMin: 52.46, LatMax: 52.49, LonMin: 4.80, LonMax: 4.84}
}

func TestRenderCoherence(t *testing.T) {
	m := terrain.NewCoherenceMap(20, 20)
	for i := range m.Values {
		m.Values[i] = float64(i%10) / 10.0
	}

	candidates := []terrain.Candidate{
		{Name: "De Kat", Lat: 52.47505, Lon: 4.81774, Coherence: 0.87},
	}

	var buf bytes.Buffer
	if err := RenderCoherence(&buf, m, testBounds(), candidates, 0); err != nil {
		t.Fatalf("RenderCoherence failed: %v", err)
	}

	html := buf.String()
	if !strings.Contains(html, "<html>") {
		t.Error("Expected HTML output")
	}
	if !strings.Contains(html, "Coherence Map") {
		t.Error("Expected chart title in output")
	}
	if !strings.Contains(html, "candidates") {
		t.Error("Expected candidate series in output")
	}
}

func TestRenderCoherenceDownsamples(t *testing.T) {
	m := terrain.NewCoherenceMap(200, 200)
	var buf bytes.Buffer
	if err := RenderCoherence(&buf, m, testBounds(), nil, 1000); err != nil {
		t.Fatalf("RenderCoherence failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("Expected non-empty output")
	}
}

func TestRenderCoherenceNilMap(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderCoherence(&buf, nil, testBounds(), nil, 0); err == nil {
		t.Error("Expected error for nil map")
	}
}
