// Package monitor renders diagnostic PNG plots from scan output. These are
// offline artifacts written to a run directory, not served over HTTP.
package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

var (
	profileColor   = color.RGBA{R: 31, G: 158, B: 137, A: 255}
	scoreColor     = color.RGBA{R: 53, G: 104, B: 142, A: 255}
	thresholdColor = color.RGBA{R: 200, G: 60, B: 60, A: 255}
)

// WriteCoherenceProfile plots the per-row maximum coherence across the map
// and saves it as coherence_profile.png in outputDir.
func WriteCoherenceProfile(outputDir string, m *terrain.CoherenceMap) (string, error) {
	if m == nil || m.H == 0 {
		return "", fmt.Errorf("no coherence map to plot")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	pts := make(plotter.XYs, 0, m.H)
	for y := 0; y < m.H; y++ {
		rowMax := 0.0
		for x := 0; x < m.W; x++ {
			if v := m.Values[y*m.W+x]; v > rowMax {
				rowMax = v
			}
		}
		pts = append(pts, plotter.XY{X: float64(y), Y: rowMax})
	}

	p := plot.New()
	p.Title.Text = "Row Maximum Coherence"
	p.X.Label.Text = "Row (south to north)"
	p.Y.Label.Text = "Coherence"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", err
	}
	line.Color = profileColor
	line.Width = vg.Points(1)
	p.Add(line)

	outFile := filepath.Join(outputDir, "coherence_profile.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, outFile); err != nil {
		return "", fmt.Errorf("failed to save coherence profile: %w", err)
	}
	return outFile, nil
}

// WriteValidationScores plots per-site validation scores against the pass
// threshold and saves validation_scores.png in outputDir. Candidates without
// the validation source tag are ignored.
func WriteValidationScores(outputDir string, candidates []terrain.Candidate, passScore float64) (string, error) {
	pts := make(plotter.XYs, 0, len(candidates))
	labels := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Source != terrain.SourceValidation {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(len(pts)), Y: c.Confidence})
		labels = append(labels, c.Name)
	}
	if len(pts) == 0 {
		return "", fmt.Errorf("no validation candidates to plot")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = "Validation Scores"
	p.X.Label.Text = "Site"
	p.Y.Label.Text = "Score"
	p.Y.Min = 0
	p.Y.Max = 1
	p.NominalX(labels...)

	scores, err := plotter.NewLine(pts)
	if err != nil {
		return "", err
	}
	scores.Color = scoreColor
	scores.Width = vg.Points(1)
	p.Add(scores)
	p.Legend.Add("score", scores)

	threshold := plotter.XYs{
		{X: 0, Y: passScore},
		{X: float64(len(pts) - 1), Y: passScore},
	}
	thLine, err := plotter.NewLine(threshold)
	if err != nil {
		return "", err
	}
	thLine.Color = thresholdColor
	thLine.Width = vg.Points(1)
	thLine.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(thLine)
	p.Legend.Add("pass threshold", thLine)

	outFile := filepath.Join(outputDir, "validation_scores.png")
	if err := p.Save(8*vg.Inch, 6*vg.Inch, outFile); err != nil {
		return "", fmt.Errorf("failed to save validation scores: %w", err)
	}
	return outFile, nil
}
