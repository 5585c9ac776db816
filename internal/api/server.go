// Package api exposes the detection pipeline over HTTP. Scans are
// serialized: the session holds mutable kernel and motif state, so one scan
// runs at a time and parameter updates swap the session wholesale.
package api

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/terrain.report/internal/config"
	"github.com/banshee-data/terrain.report/internal/terrain"
	"github.com/banshee-data/terrain.report/internal/terraindb"
)

// ANSI escape codes for request log coloring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db        *terraindb.DB
	provider  terrain.GridProvider
	extractor terrain.FeatureExtractor

	mu         sync.Mutex // guards cfg and the site lists
	cfg        *config.TuningConfig
	training   []terrain.Site
	validation []terrain.Site

	// scanMu serializes scans and guards the session: RunScan mutates the
	// session's kernel, motif and last-scan state.
	scanMu  sync.Mutex
	session *terrain.Session
}

func NewServer(db *terraindb.DB, provider terrain.GridProvider, extractor terrain.FeatureExtractor, cfg *config.TuningConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Server{
		db:         db,
		provider:   provider,
		extractor:  extractor,
		session:    terrain.NewSession(provider, extractor, cfg.ToParams()),
		cfg:        cfg,
		training:   terrain.KnownTrainingSites(),
		validation: terrain.KnownValidationSites(),
	}
}

// SetSites overrides the compiled-in training and validation site lists.
func (s *Server) SetSites(training, validation []terrain.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.training = training
	s.validation = validation
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/", s.runByID)
	mux.HandleFunc("/api/heatmap", s.showHeatmap)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
