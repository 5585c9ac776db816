package testutil

import (
	"context"
	"math"

	"github.com/banshee-data/terrain.report/internal/terrain"
	"github.com/banshee-data/terrain.report/internal/terrain/provider"
)

// Mound is a raised circular feature in a synthetic elevation model,
// standing in for a windmill foundation.
type Mound struct {
	Lat, Lon float64
	HeightM  float64
	RadiusM  float64
}

// SyntheticGrid builds a feature grid from a synthetic elevation model: a
// gently sloping base with optional gaussian mounds, run through the same
// band derivation as real provider tiles. Row 0 is the southern edge.
func SyntheticGrid(h, w int, bounds terrain.Bounds, resolutionM float64, mounds []Mound) *terrain.FeatureGrid {
	latStep := bounds.LatExtent() / float64(h)
	lonStep := bounds.LonExtent() / float64(w)

	elev := make([][]float64, h)
	for y := 0; y < h; y++ {
		elev[y] = make([]float64, w)
		lat := bounds.LatMin + (float64(y)+0.5)*latStep
		for x := 0; x < w; x++ {
			lon := bounds.LonMin + (float64(x)+0.5)*lonStep

			// Sloped base with a mild ripple so the terrain is never
			// perfectly flat.
			z := 0.002*float64(x) + 0.001*float64(y) + 0.02*math.Sin(float64(x)*0.7)*math.Cos(float64(y)*0.9)

			for _, m := range mounds {
				dLatM := (lat - m.Lat) * 111320.0
				dLonM := (lon - m.Lon) * 111320.0 * math.Cos(m.Lat*math.Pi/180)
				d2 := dLatM*dLatM + dLonM*dLonM
				sigma := m.RadiusM / 2
				z += m.HeightM * math.Exp(-d2/(2*sigma*sigma))
			}

			elev[y][x] = z
		}
	}

	return provider.DeriveFeatureGrid(elev, bounds, resolutionM)
}

// StaticProvider serves one fixed grid regardless of the requested region.
type StaticProvider struct {
	Grid *terrain.FeatureGrid
	Err  error

	// Calls records each requested center and radius.
	Calls []ProviderCall
}

type ProviderCall struct {
	Lat, Lon, RadiusM float64
}

func (p *StaticProvider) FetchGrid(ctx context.Context, lat, lon, radiusM float64) (*terrain.FeatureGrid, error) {
	p.Calls = append(p.Calls, ProviderCall{Lat: lat, Lon: lon, RadiusM: radiusM})
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Grid, nil
}
