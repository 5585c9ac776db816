// Package provider supplies elevation feature grids to the detection core.
// It owns the HTTP client for the remote elevation tile service, the
// derivation of the eight feature bands from the raw DEM, and the per-site
// feature extraction the motif scorer consumes. The core never talks to the
// network itself; it sees only the terrain.GridProvider interface.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

// DataUnavailableError reports that the elevation service has no coverage
// for the requested region. Callers must propagate it; the pipeline never
// substitutes synthetic data for a missing region.
type DataUnavailableError struct {
	Lat     float64
	Lon     float64
	RadiusM float64
	Reason  string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("no elevation data for (%.5f, %.5f) radius %.0fm: %s", e.Lat, e.Lon, e.RadiusM, e.Reason)
}

// IsDataUnavailable reports whether err is (or wraps) a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var due *DataUnavailableError
	return errors.As(err, &due)
}

// Provider matches terrain.GridProvider; declared locally so implementations
// in this package can be compile-checked against it.
type Provider interface {
	FetchGrid(ctx context.Context, lat, lon, radiusM float64) (*terrain.FeatureGrid, error)
}
