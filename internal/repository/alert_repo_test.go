package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/testutil"
)

func TestCooldownFirstAlertPermitted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAlertRepository(db)
	now := time.Now().UTC()

	ok, err := repo.TryAcquireCooldown("North Gate", "gate_detection", time.Hour, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCooldownSuppressesWithinWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAlertRepository(db)
	now := time.Now().UTC()

	ok, err := repo.TryAcquireCooldown("North Gate", "gate_detection", time.Hour, now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.TryAcquireCooldown("North Gate", "gate_detection", time.Hour, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "second alert within the window must be suppressed")

	// A different camera or type is an independent window.
	ok, err = repo.TryAcquireCooldown("South Pasture", "gate_detection", time.Hour, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TryAcquireCooldown("North Gate", "water_level", time.Hour, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCooldownPermitsAfterWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAlertRepository(db)
	now := time.Now().UTC()

	ok, err := repo.TryAcquireCooldown("North Gate", "gate_detection", time.Hour, now)
	require.NoError(t, err)
	require.True(t, ok)

	later := now.Add(61 * time.Minute)
	ok, err = repo.TryAcquireCooldown("North Gate", "gate_detection", time.Hour, later)
	require.NoError(t, err)
	assert.True(t, ok)

	// The window restarts from the second alert.
	ok, err = repo.TryAcquireCooldown("North Gate", "gate_detection", time.Hour, later.Add(30*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCooldownConcurrentSingleWinner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAlertRepository(db)
	now := time.Now().UTC()

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	permitted := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryAcquireCooldown("North Gate", "gate_detection", time.Hour, now)
			if err != nil {
				t.Errorf("TryAcquireCooldown: %v", err)
				return
			}
			if ok {
				mu.Lock()
				permitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, permitted, "concurrent evaluations must yield exactly one alert")
}

func TestAlertAcknowledge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAlertRepository(db)
	alert := &model.Alert{
		AlertType:  "gate_detection",
		CameraName: "North Gate",
		Severity:   model.AlertSeverityCritical,
		Title:      "Gate Open Alert - North Gate",
		Message:    "Gate detected open with confidence 0.95",
	}
	require.NoError(t, repo.Create(alert))

	now := time.Now().UTC()
	require.NoError(t, repo.Acknowledge(alert.ID, "ranch-hand", now))

	got, err := repo.GetByID(alert.ID)
	require.NoError(t, err)
	assert.True(t, got.Acknowledged)
	assert.Equal(t, "ranch-hand", got.AcknowledgedBy)
	require.NotNil(t, got.AcknowledgedAt)

	// Second acknowledgement is a no-op.
	require.NoError(t, repo.Acknowledge(alert.ID, "someone-else", now))
	got, err = repo.GetByID(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, "ranch-hand", got.AcknowledgedBy)

	err = repo.Acknowledge(999999, "nobody", now)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestAlertListFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAlertRepository(db)
	require.NoError(t, repo.Create(&model.Alert{
		AlertType: "gate_detection", CameraName: "North Gate",
		Severity: model.AlertSeverityCritical, Title: "Gate Open Alert - North Gate",
	}))
	require.NoError(t, repo.Create(&model.Alert{
		AlertType: "water_level", CameraName: "South Pasture",
		Severity: model.AlertSeverityWarning, Title: "Water Level Alert - South Pasture",
		Acknowledged: true,
	}))

	alerts, total, err := repo.List("North Gate", "", nil, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, alerts, 1)
	assert.Equal(t, "gate_detection", alerts[0].AlertType)

	alerts, total, err = repo.List("", model.AlertSeverityWarning, nil, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	unacked := false
	alerts, total, err = repo.List("", "", &unacked, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.False(t, alerts[0].Acknowledged)

	count, err := repo.CountUnacknowledged()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
