package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/terrain.report/internal/config"
	"github.com/banshee-data/terrain.report/internal/httputil"
	"github.com/banshee-data/terrain.report/internal/terrain"
	"github.com/banshee-data/terrain.report/internal/terrain/provider"
	"github.com/banshee-data/terrain.report/internal/terrain/visualiser"
	"github.com/banshee-data/terrain.report/internal/terraindb"
	"github.com/banshee-data/terrain.report/internal/version"
)

// ScanRequest is the POST /api/scan body.
type ScanRequest struct {
	Bounds terrain.Bounds `json:"bounds"`
}

// ScanResponse wraps a completed run with its stored ID.
type ScanResponse struct {
	RunID  string                   `json:"run_id"`
	Result *terrain.DetectionResult `json:"result"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid scan request: %v", err))
		return
	}
	if !req.Bounds.Valid() {
		httputil.BadRequest(w, "invalid bounds: min must be strictly below max")
		return
	}

	s.mu.Lock()
	training, validation := s.training, s.validation
	s.mu.Unlock()

	s.scanMu.Lock()
	result, err := s.session.RunScan(r.Context(), req.Bounds, training, validation)
	s.scanMu.Unlock()
	if err != nil {
		if provider.IsDataUnavailable(err) {
			httputil.WriteJSONError(w, http.StatusBadGateway, fmt.Sprintf("elevation data unavailable: %v", err))
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("scan failed: %v", err))
		return
	}

	runID, err := s.db.InsertScanRun(result)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to store scan run: %v", err))
		return
	}

	httputil.WriteJSONOK(w, &ScanResponse{RunID: runID, Result: result})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.db.ListScanRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []terraindb.ScanRun{}
	}

	httputil.WriteJSONOK(w, runs)
}

func (s *Server) runByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if id == "" || strings.Contains(id, "/") {
		httputil.NotFound(w, "no such run")
		return
	}

	switch r.Method {
	case http.MethodGet:
		run, err := s.db.GetScanRun(id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httputil.NotFound(w, "no such run")
				return
			}
			httputil.InternalServerError(w, fmt.Sprintf("failed to load run: %v", err))
			return
		}
		httputil.WriteJSONOK(w, run)

	case http.MethodDelete:
		if err := s.db.DeleteScanRun(id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httputil.NotFound(w, "no such run")
				return
			}
			httputil.InternalServerError(w, fmt.Sprintf("failed to delete run: %v", err))
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"deleted": id})

	default:
		httputil.MethodNotAllowed(w)
	}
}

// showHeatmap renders the coherence map of the most recent scan as HTML.
func (s *Server) showHeatmap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	maxPoints := 0
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}

	s.scanMu.Lock()
	snapshot := s.session.CoherenceSnapshot()
	grid := s.session.LastGrid()
	s.scanMu.Unlock()
	if snapshot == nil || grid == nil {
		httputil.NotFound(w, "no scan has run yet")
		return
	}

	var buf bytes.Buffer
	if err := visualiser.RenderCoherence(&buf, snapshot, grid.Bounds, nil, maxPoints); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render heatmap: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		cfg := s.cfg
		s.mu.Unlock()
		httputil.WriteJSONOK(w, cfg)

	case http.MethodPost:
		var cfg config.TuningConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid params: %v", err))
			return
		}
		if err := cfg.Validate(); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}

		s.mu.Lock()
		s.cfg = &cfg
		s.mu.Unlock()

		// A new session drops the learned kernel and motif; the next scan
		// rebuilds both under the new parameters. Swapping under scanMu
		// keeps the swap out of any in-flight scan.
		s.scanMu.Lock()
		s.session = terrain.NewSession(s.provider, s.extractor, cfg.ToParams())
		s.scanMu.Unlock()

		httputil.WriteJSONOK(w, &cfg)

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	stats, err := s.db.GetStats()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load stats: %v", err))
		return
	}
	httputil.WriteJSONOK(w, stats)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
