package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancheye/analysis_server/internal/testutil"
)

func TestImageListWithoutTasks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewImageRepository(db)
	older := testutil.TestImage(t, db)
	require.NoError(t, db.Model(older).Update("captured_at", time.Now().UTC().Add(-time.Hour)).Error)
	newer := testutil.TestImage(t, db)
	done := testutil.TestImage(t, db)
	require.NoError(t, repo.MarkTasksGenerated(done.ImageID))

	images, err := repo.ListWithoutTasks(10)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, older.ImageID, images[0].ImageID, "oldest capture first")
	assert.Equal(t, newer.ImageID, images[1].ImageID)

	images, err = repo.ListWithoutTasks(1)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestImageMarkTasksGenerated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewImageRepository(db)
	img := testutil.TestImage(t, db)

	require.NoError(t, repo.MarkTasksGenerated(img.ImageID))

	got, err := repo.GetByImageID(img.ImageID)
	require.NoError(t, err)
	assert.True(t, got.TasksGenerated)
}
