package terraindb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "NewDB failed")
	t.Cleanup(func() { db.Close() })

	return db
}

func floatPtr(f float64) *float64 {
	return &f
}

func testResult() *terrain.DetectionResult {
	return &terrain.DetectionResult{
		Bounds: terrain.Bounds{
			LatMin: 52.46, LatMax: 52.49,
			LonMin: 4.80, LonMax: 4.84,
		},
		AreaKm2:     9.1,
		ResolutionM: 0.5,
		ElapsedMS:   1234,
		Candidates: []terrain.Candidate{
			{
				Lat: 52.47505, Lon: 4.81774,
				Psi0: 0.83, Phi0: 0.79, Coherence: 0.87, Confidence: 0.87,
				ElevationAnomalyM:   1.74,
				MotifScore:          floatPtr(0.61),
				FoundationDiameterM: floatPtr(8.5),
				Name:                "De Kat",
				Source:              terrain.SourceTraining,
				IsTrainingWindmill:  true,
			},
			{
				Lat: 52.4702, Lon: 4.8231,
				Psi0: 0.52, Phi0: 0.49, Coherence: 0.55, Confidence: 0.55,
				ElevationAnomalyM: 1.09,
				MotifScore:        floatPtr(0.41),
				Source:            terrain.SourceScan,
			},
		},
		Validation: &terrain.ValidationSummary{
			TotalSites:     2,
			ValidatedSites: 2,
			DetectionRate:  1.0,
			MeanScore:      0.74,
			Pass:           true,
		},
	}
}

func TestInsertAndGetScanRun(t *testing.T) {
	db := setupTestDB(t)

	runID, err := db.InsertScanRun(testResult())
	require.NoError(t, err, "InsertScanRun failed")
	require.NotEmpty(t, runID, "expected non-empty run ID")

	run, err := db.GetScanRun(runID)
	require.NoError(t, err, "GetScanRun failed")

	assert.Equal(t, runID, run.ID)
	assert.Equal(t, 52.46, run.Bounds.LatMin)
	assert.Equal(t, 4.84, run.Bounds.LonMax)
	assert.Equal(t, 2, run.CandidateCount)
	require.NotNil(t, run.ValidationMean)
	assert.Equal(t, 0.74, *run.ValidationMean)
	require.NotNil(t, run.ValidationPass)
	assert.True(t, *run.ValidationPass)
	require.Len(t, run.Candidates, 2)

	// Candidates come back ordered by confidence descending.
	first := run.Candidates[0]
	assert.Equal(t, "De Kat", first.Name)
	assert.True(t, first.IsTrainingWindmill, "expected training flag to round-trip")
	require.NotNil(t, first.MotifScore)
	assert.Equal(t, 0.61, *first.MotifScore)

	second := run.Candidates[1]
	assert.Nil(t, second.FoundationDiameterM)
	assert.Nil(t, second.PositionErrorM)
}

func TestInsertScanRunWithoutValidation(t *testing.T) {
	db := setupTestDB(t)

	result := testResult()
	result.Validation = nil
	result.Candidates = nil
	result.NoCandidates = true

	runID, err := db.InsertScanRun(result)
	require.NoError(t, err, "InsertScanRun failed")

	run, err := db.GetScanRun(runID)
	require.NoError(t, err, "GetScanRun failed")
	assert.Nil(t, run.ValidationMean)
	assert.True(t, run.NoCandidates, "expected NoCandidates to round-trip")
	assert.Empty(t, run.Candidates)
}

func TestGetScanRunNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetScanRun("no-such-run")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListScanRuns(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 3; i++ {
		_, err := db.InsertScanRun(testResult())
		require.NoError(t, err, "InsertScanRun failed")
	}

	runs, err := db.ListScanRuns(0)
	require.NoError(t, err, "ListScanRuns failed")
	require.Len(t, runs, 3)
	// List view carries counts, not the candidate rows.
	assert.Equal(t, 2, runs[0].CandidateCount)
	assert.Nil(t, runs[0].Candidates)

	limited, err := db.ListScanRuns(2)
	require.NoError(t, err, "ListScanRuns(2) failed")
	assert.Len(t, limited, 2)
}

func TestDeleteScanRun(t *testing.T) {
	db := setupTestDB(t)

	runID, err := db.InsertScanRun(testResult())
	require.NoError(t, err, "InsertScanRun failed")

	require.NoError(t, db.DeleteScanRun(runID), "DeleteScanRun failed")

	// Cascade removes the candidate rows too.
	candidates, err := db.CandidatesForRun(runID)
	require.NoError(t, err, "CandidatesForRun failed")
	assert.Empty(t, candidates, "expected cascade delete")

	assert.ErrorIs(t, db.DeleteScanRun(runID), sql.ErrNoRows, "double delete")
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)

	stats, err := db.GetStats()
	require.NoError(t, err, "GetStats failed")
	assert.Zero(t, stats.TotalRuns)
	assert.Zero(t, stats.TotalCandidates)
	assert.Nil(t, stats.LastRunAt)

	_, err = db.InsertScanRun(testResult())
	require.NoError(t, err, "InsertScanRun failed")

	stats, err = db.GetStats()
	require.NoError(t, err, "GetStats failed")
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 2, stats.TotalCandidates)
	assert.NotNil(t, stats.LastRunAt)
}

func TestMigrateVersion(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err, "MigrateVersion failed")
	assert.False(t, dirty, "expected clean migration state")
	assert.Equal(t, uint(2), version)
}
