package terraindb

import (
	"database/sql"
	"fmt"
	"time"
)

// Stats summarises the stored history for the status endpoint.
type Stats struct {
	TotalRuns       int        `json:"total_runs"`
	TotalCandidates int        `json:"total_candidates"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
}

// GetStats returns aggregate counts over all stored runs.
func (db *DB) GetStats() (*Stats, error) {
	var stats Stats
	var lastRun sql.NullString

	err := db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE((SELECT COUNT(*) FROM scan_candidates), 0),
		       MAX(created_at)
		FROM scan_runs
	`).Scan(&stats.TotalRuns, &stats.TotalCandidates, &lastRun)
	if err != nil {
		return nil, fmt.Errorf("failed to query run stats: %w", err)
	}

	if lastRun.Valid {
		if t, err := time.Parse("2006-01-02 15:04:05", lastRun.String); err == nil {
			utc := t.UTC()
			stats.LastRunAt = &utc
		}
	}

	return &stats, nil
}
