package terraindb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

// ScanRun is one persisted detection run.
type ScanRun struct {
	ID             string              `json:"id"`
	Bounds         terrain.Bounds      `json:"bounds"`
	AreaKm2        float64             `json:"scanned_area_km2"`
	ResolutionM    float64             `json:"resolution_m"`
	ElapsedMS      int64               `json:"elapsed_ms"`
	CandidateCount int                 `json:"candidate_count"`
	NoCandidates   bool                `json:"no_candidates"`
	ValidationMean *float64            `json:"validation_mean,omitempty"`
	ValidationPass *bool               `json:"validation_pass,omitempty"`
	ValidatedSites *int                `json:"validated_sites,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	Candidates     []terrain.Candidate `json:"candidates,omitempty"`
}

// InsertScanRun persists a detection result and its candidates in one
// transaction. Returns the generated run ID.
func (db *DB) InsertScanRun(result *terrain.DetectionResult) (string, error) {
	runID := uuid.New().String()

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var validationMean sql.NullFloat64
	var validationPass sql.NullBool
	var validatedSites sql.NullInt64
	if result.Validation != nil {
		validationMean = sql.NullFloat64{Float64: result.Validation.MeanScore, Valid: true}
		validationPass = sql.NullBool{Bool: result.Validation.Pass, Valid: true}
		validatedSites = sql.NullInt64{Int64: int64(result.Validation.ValidatedSites), Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO scan_runs (
			id, lat_min, lat_max, lon_min, lon_max,
			area_km2, resolution_m, elapsed_ms,
			candidate_count, no_candidates,
			validation_mean, validation_pass, validation_site_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		result.Bounds.LatMin,
		result.Bounds.LatMax,
		result.Bounds.LonMin,
		result.Bounds.LonMax,
		result.AreaKm2,
		result.ResolutionM,
		result.ElapsedMS,
		len(result.Candidates),
		boolToInt(result.NoCandidates),
		validationMean,
		validationPass,
		validatedSites,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert scan run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO scan_candidates (
			run_id, name, lat, lon, psi0, phi0, coherence, confidence,
			elevation_anomaly_m, motif_score, foundation_diameter_m,
			position_error_m, source, is_training_windmill
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare candidate insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range result.Candidates {
		_, err := stmt.Exec(
			runID,
			c.Name,
			c.Lat,
			c.Lon,
			c.Psi0,
			c.Phi0,
			c.Coherence,
			c.Confidence,
			c.ElevationAnomalyM,
			c.MotifScore,
			c.FoundationDiameterM,
			c.PositionErrorM,
			c.Source,
			boolToInt(c.IsTrainingWindmill),
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert candidate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit scan run: %w", err)
	}

	return runID, nil
}

// GetScanRun retrieves a run and its candidates by ID. Returns
// sql.ErrNoRows when the run does not exist.
func (db *DB) GetScanRun(id string) (*ScanRun, error) {
	run, err := db.scanRunRow(db.QueryRow(`
		SELECT id, lat_min, lat_max, lon_min, lon_max,
		       area_km2, resolution_m, elapsed_ms,
		       candidate_count, no_candidates,
		       validation_mean, validation_pass, validation_site_count,
		       created_at
		FROM scan_runs WHERE id = ?
	`, id))
	if err != nil {
		return nil, err
	}

	run.Candidates, err = db.CandidatesForRun(id)
	if err != nil {
		return nil, err
	}

	return run, nil
}

// ListScanRuns returns the most recent runs, newest first, without their
// candidate lists. limit <= 0 means no limit.
func (db *DB) ListScanRuns(limit int) ([]ScanRun, error) {
	query := `
		SELECT id, lat_min, lat_max, lon_min, lon_max,
		       area_km2, resolution_m, elapsed_ms,
		       candidate_count, no_candidates,
		       validation_mean, validation_pass, validation_site_count,
		       created_at
		FROM scan_runs
		ORDER BY created_at DESC, id
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list scan runs: %w", err)
	}
	defer rows.Close()

	var runs []ScanRun
	for rows.Next() {
		run, err := db.scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// CandidatesForRun returns a run's candidates ordered by confidence,
// highest first.
func (db *DB) CandidatesForRun(runID string) ([]terrain.Candidate, error) {
	rows, err := db.Query(`
		SELECT name, lat, lon, psi0, phi0, coherence, confidence,
		       elevation_anomaly_m, motif_score, foundation_diameter_m,
		       position_error_m, source, is_training_windmill
		FROM scan_candidates
		WHERE run_id = ?
		ORDER BY confidence DESC, id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []terrain.Candidate
	for rows.Next() {
		var c terrain.Candidate
		var isTraining int
		err := rows.Scan(
			&c.Name,
			&c.Lat,
			&c.Lon,
			&c.Psi0,
			&c.Phi0,
			&c.Coherence,
			&c.Confidence,
			&c.ElevationAnomalyM,
			&c.MotifScore,
			&c.FoundationDiameterM,
			&c.PositionErrorM,
			&c.Source,
			&isTraining,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		c.IsTrainingWindmill = isTraining != 0
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// DeleteScanRun removes a run and, via the foreign key cascade, its
// candidates.
func (db *DB) DeleteScanRun(id string) error {
	result, err := db.Exec("DELETE FROM scan_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete scan run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (db *DB) scanRunRow(row rowScanner) (*ScanRun, error) {
	var run ScanRun
	var noCandidates int
	var validationMean sql.NullFloat64
	var validationPass sql.NullBool
	var validatedSites sql.NullInt64
	var createdAt string

	err := row.Scan(
		&run.ID,
		&run.Bounds.LatMin,
		&run.Bounds.LatMax,
		&run.Bounds.LonMin,
		&run.Bounds.LonMax,
		&run.AreaKm2,
		&run.ResolutionM,
		&run.ElapsedMS,
		&run.CandidateCount,
		&noCandidates,
		&validationMean,
		&validationPass,
		&validatedSites,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	run.NoCandidates = noCandidates != 0
	if validationMean.Valid {
		run.ValidationMean = &validationMean.Float64
	}
	if validationPass.Valid {
		run.ValidationPass = &validationPass.Bool
	}
	if validatedSites.Valid {
		n := int(validatedSites.Int64)
		run.ValidatedSites = &n
	}
	if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		run.CreatedAt = t.UTC()
	}

	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
