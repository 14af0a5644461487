package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/testutil"
)

func TestCostIncrementAccumulates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCostRepository(db)
	day := time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Increment(day, "openai", "gpt-4o-mini", 1200, 0.0005))
	require.NoError(t, repo.Increment(day, "openai", "gpt-4o-mini", 800, 0.0003))
	require.NoError(t, repo.Increment(day, "gemini", "gemini-1.5-flash", 500, 0.0001))

	records, err := repo.GetDay(day)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var openai *model.CostRecord
	for _, r := range records {
		if r.Provider == "openai" {
			openai = r
		}
	}
	require.NotNil(t, openai)
	assert.Equal(t, int64(2), openai.AnalysisCount)
	assert.Equal(t, int64(2000), openai.TokensUsed)
	assert.InDelta(t, 0.0008, openai.EstimatedCost, 1e-9)
}

func TestCostIncrementBucketsByDay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCostRepository(db)
	day1 := time.Date(2026, 8, 26, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 27, 0, 1, 0, 0, time.UTC)

	require.NoError(t, repo.Increment(day1, "openai", "gpt-4o-mini", 100, 0.0001))
	require.NoError(t, repo.Increment(day2, "openai", "gpt-4o-mini", 100, 0.0001))

	records, err := repo.GetDay(day1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].AnalysisCount)
}

func TestCostIncrementConcurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCostRepository(db)
	day := time.Now().UTC()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Increment(day, "openai", "gpt-4o-mini", 100, 0.001); err != nil {
				t.Errorf("Increment: %v", err)
			}
		}()
	}
	wg.Wait()

	records, err := repo.GetDay(day)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(n), records[0].AnalysisCount)
	assert.Equal(t, int64(n*100), records[0].TokensUsed)
	assert.InDelta(t, float64(n)*0.001, records[0].EstimatedCost, 1e-9)
}

func TestCostSummarize(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCostRepository(db)
	day1 := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Increment(day1, "openai", "gpt-4o-mini", 1000, 0.002))
	require.NoError(t, repo.Increment(day2, "openai", "gpt-4o-mini", 1000, 0.002))
	require.NoError(t, repo.Increment(day2, "gemini", "gemini-1.5-flash", 400, 0.0001))
	require.NoError(t, repo.Increment(outside, "openai", "gpt-4o-mini", 9999, 9.99))

	rows, err := repo.Summarize(day1, day2)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Ordered by spend, highest first.
	assert.Equal(t, "gpt-4o-mini", rows[0].ModelName)
	assert.Equal(t, int64(2), rows[0].AnalysisCount)
	assert.Equal(t, int64(2000), rows[0].TokensUsed)
	assert.InDelta(t, 0.004, rows[0].EstimatedCost, 1e-9)

	total, err := repo.TotalSince(day1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0041, total, 1e-9)
}

func TestCostTotalSinceEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCostRepository(db)
	total, err := repo.TotalSince(time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
}
