package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancheye/analysis_server/internal/repository"
	"github.com/rancheye/analysis_server/internal/testutil"
)

func TestCostRecord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	costs := repository.NewCostRepository(db)
	svc := NewCostService(costs)

	// gpt-4o-mini: 0.00015/1K input, 0.0006/1K output.
	cost, err := svc.Record("openai", "gpt-4o-mini", 1000, 500)
	require.NoError(t, err)
	assert.InDelta(t, 0.00015+0.0003, cost, 1e-9)

	cost, err = svc.Record("openai", "gpt-4o-mini", 2000, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.0003+0.0006, cost, 1e-9)

	records, err := costs.GetDay(time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].AnalysisCount)
	assert.Equal(t, int64(4500), records[0].TokensUsed)
	assert.InDelta(t, 0.00135, records[0].EstimatedCost, 1e-9)
}

func TestCostRecordFreeModel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewCostService(repository.NewCostRepository(db))

	cost, err := svc.Record("gemini", "gemini-2.0-flash-exp", 5000, 2000)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cost)
}
