package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/testutil"
)

func TestCacheLookupHit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCacheRepository(db)
	result := model.JSONMap{"gate_visible": true, "gate_open": false, "confidence": 0.92}

	require.NoError(t, repo.Store("phash-1", "gate_detection", "openai", "gpt-4o-mini", result, 0.92, time.Hour))

	entry, err := repo.Lookup("phash-1", "gate_detection", "openai", "gpt-4o-mini")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 0.92, entry.Confidence)
	assert.True(t, entry.Result.Bool("gate_visible"))
	assert.False(t, entry.Result.Bool("gate_open"))
}

func TestCacheLookupMissOnDifferentKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCacheRepository(db)
	require.NoError(t, repo.Store("phash-1", "gate_detection", "openai", "gpt-4o-mini", model.JSONMap{}, 0.9, time.Hour))

	// Any differing key component is a distinct entry.
	for _, key := range [][4]string{
		{"phash-other", "gate_detection", "openai", "gpt-4o-mini"},
		{"phash-1", "water_level", "openai", "gpt-4o-mini"},
		{"phash-1", "gate_detection", "gemini", "gpt-4o-mini"},
		{"phash-1", "gate_detection", "openai", "gpt-4o"},
	} {
		entry, err := repo.Lookup(key[0], key[1], key[2], key[3])
		require.NoError(t, err)
		assert.Nil(t, entry, "key %v must miss", key)
	}
}

func TestCacheExpiredEntryIsMiss(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCacheRepository(db)
	require.NoError(t, repo.Store("phash-1", "gate_detection", "openai", "gpt-4o-mini", model.JSONMap{}, 0.9, -time.Minute))

	entry, err := repo.Lookup("phash-1", "gate_detection", "openai", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestCacheStoreUpserts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCacheRepository(db)
	require.NoError(t, repo.Store("phash-1", "gate_detection", "openai", "gpt-4o-mini", model.JSONMap{"gate_open": false}, 0.7, time.Hour))
	require.NoError(t, repo.Store("phash-1", "gate_detection", "openai", "gpt-4o-mini", model.JSONMap{"gate_open": true}, 0.95, time.Hour))

	var count int64
	db.Model(&model.CacheEntry{}).Count(&count)
	assert.Equal(t, int64(1), count)

	entry, err := repo.Lookup("phash-1", "gate_detection", "openai", "gpt-4o-mini")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 0.95, entry.Confidence)
	assert.True(t, entry.Result.Bool("gate_open"))
}

func TestCachePurgeExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCacheRepository(db)
	require.NoError(t, repo.Store("phash-live", "gate_detection", "openai", "gpt-4o-mini", model.JSONMap{}, 0.9, time.Hour))
	require.NoError(t, repo.Store("phash-dead", "gate_detection", "openai", "gpt-4o-mini", model.JSONMap{}, 0.9, -time.Minute))

	purged, err := repo.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	var count int64
	db.Model(&model.CacheEntry{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
