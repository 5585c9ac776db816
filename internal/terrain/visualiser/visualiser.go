// Package visualiser renders coherence maps as self-contained HTML charts.
// The map is drawn as a colored scatter (one point per pixel, downsampled)
// with detected candidates overlaid as larger markers.
package visualiser

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

// viridis ramp, low coherence dark to high coherence yellow.
var heatColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

const defaultMaxPoints = 8000

// RenderCoherence writes an HTML chart of the coherence map to w. maxPoints
// bounds the number of map pixels plotted; <= 0 uses the default.
func RenderCoherence(w io.Writer, m *terrain.CoherenceMap, bounds terrain.Bounds, candidates []terrain.Candidate, maxPoints int) error {
	if m == nil || m.H == 0 || m.W == 0 {
		return fmt.Errorf("no coherence map to render")
	}
	if maxPoints <= 0 {
		maxPoints = defaultMaxPoints
	}

	total := m.H * m.W
	stride := 1
	if total > maxPoints {
		stride = int(math.Ceil(float64(total) / float64(maxPoints)))
	}

	latStep := bounds.LatExtent() / float64(m.H)
	lonStep := bounds.LonExtent() / float64(m.W)

	data := make([]opts.ScatterData, 0, total/stride+1)
	maxVal := 0.0
	for i := 0; i < total; i += stride {
		y := i / m.W
		x := i % m.W
		v := m.Values[y*m.W+x]
		if v > maxVal {
			maxVal = v
		}
		lon := bounds.LonMin + (float64(x)+0.5)*lonStep
		lat := bounds.LatMin + (float64(y)+0.5)*latStep
		data = append(data, opts.ScatterData{Value: []interface{}{lon, lat, v}})
	}
	if maxVal == 0 {
		maxVal = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Coherence Map", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Coherence Map", Subtitle: fmt.Sprintf("pixels=%d stride=%d candidates=%d", len(data), stride, len(candidates))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: bounds.LonMin, Max: bounds.LonMax, Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: bounds.LatMin, Max: bounds.LatMax, Name: "Latitude", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: heatColors},
		}),
	)

	scatter.AddSeries("coherence", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	if len(candidates) > 0 {
		marks := make([]opts.ScatterData, 0, len(candidates))
		for _, c := range candidates {
			marks = append(marks, opts.ScatterData{
				Name:  c.Name,
				Value: []interface{}{c.Lon, c.Lat, maxVal},
			})
		}
		scatter.AddSeries("candidates", marks, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	}

	return scatter.Render(w)
}
