package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"github.com/banshee-data/terrain.report/internal/httputil"
	"github.com/banshee-data/terrain.report/internal/monitoring"
	"github.com/banshee-data/terrain.report/internal/terrain"
	"github.com/banshee-data/terrain.report/internal/units"
)

// TileClient fetches elevation tiles from the remote height service and
// derives feature grids from them. The service exposes a single endpoint:
//
//	GET {base}/tile?lat=<deg>&lon=<deg>&radius_m=<m>
//
// returning a JSON elevation matrix with its resolution. 404 and empty
// matrices map to DataUnavailableError.
type TileClient struct {
	baseURL string
	client  httputil.HTTPClient
}

// tileResponse is the height service's wire format. Elevations is row-major
// south-to-north; JSON null cells mark no-data holes.
type tileResponse struct {
	ResolutionM float64      `json:"resolution_m"`
	Elevations  [][]*float64 `json:"elevations"`
	Bounds      struct {
		LatMin float64 `json:"lat_min"`
		LonMin float64 `json:"lon_min"`
		LatMax float64 `json:"lat_max"`
		LonMax float64 `json:"lon_max"`
	} `json:"bounds"`
}

// NewTileClient creates a client for the given service base URL. A nil
// HTTPClient falls back to http.DefaultClient.
func NewTileClient(baseURL string, client httputil.HTTPClient) *TileClient {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &TileClient{baseURL: baseURL, client: client}
}

// FetchGrid implements terrain.GridProvider.
func (c *TileClient) FetchGrid(ctx context.Context, lat, lon, radiusM float64) (*terrain.FeatureGrid, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", lat))
	q.Set("lon", fmt.Sprintf("%.6f", lon))
	q.Set("radius_m", fmt.Sprintf("%.0f", radiusM))
	reqURL := c.baseURL + "/tile?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tile request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch elevation tile: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, &DataUnavailableError{Lat: lat, Lon: lon, RadiusM: radiusM, Reason: "no coverage"}
	default:
		return nil, fmt.Errorf("elevation service returned status %d", resp.StatusCode)
	}

	var tile tileResponse
	if err := json.NewDecoder(resp.Body).Decode(&tile); err != nil {
		return nil, fmt.Errorf("failed to decode tile response: %w", err)
	}
	if len(tile.Elevations) == 0 || len(tile.Elevations[0]) == 0 {
		return nil, &DataUnavailableError{Lat: lat, Lon: lon, RadiusM: radiusM, Reason: "empty tile"}
	}
	if tile.ResolutionM <= 0 {
		return nil, fmt.Errorf("elevation service returned invalid resolution %.3f", tile.ResolutionM)
	}

	bounds := terrain.Bounds{
		LatMin: tile.Bounds.LatMin,
		LonMin: tile.Bounds.LonMin,
		LatMax: tile.Bounds.LatMax,
		LonMax: tile.Bounds.LonMax,
	}
	if !bounds.Valid() {
		// Older service versions omit bounds; reconstruct from the request.
		bounds = boundsFromCenter(lat, lon, radiusM)
	}

	elev := make([][]float64, len(tile.Elevations))
	for y, row := range tile.Elevations {
		elev[y] = make([]float64, len(row))
		for x, v := range row {
			if v == nil {
				elev[y][x] = math.NaN()
				continue
			}
			elev[y][x] = *v
		}
	}

	grid := DeriveFeatureGrid(elev, bounds, tile.ResolutionM)
	monitoring.Logf("provider: fetched %dx%d tile at (%.5f, %.5f) res %.1fm", grid.H, grid.W, lat, lon, tile.ResolutionM)
	return grid, nil
}

// boundsFromCenter reconstructs a bounding box from a centre point and
// radius using the planar-degree approximation.
func boundsFromCenter(lat, lon, radiusM float64) terrain.Bounds {
	dLat := units.DegreesLatFromMeters(radiusM)
	dLon := units.DegreesLonFromMeters(radiusM, lat)
	return terrain.Bounds{
		LatMin: lat - dLat,
		LonMin: lon - dLon,
		LatMax: lat + dLat,
		LonMax: lon + dLon,
	}
}
