package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/rancheye/analysis_server/internal/model"
)

var fixtureSeq int64

func nextSeq() int64 {
	fixtureSeq++
	return fixtureSeq
}

// TestConfig creates an active gate-detection config.
func TestConfig(t *testing.T, db *gorm.DB, opts ...func(*model.AnalysisConfig)) *model.AnalysisConfig {
	t.Helper()

	cfg := &model.AnalysisConfig{
		Name:                 fmt.Sprintf("Test Config %d", nextSeq()),
		AnalysisType:         model.AnalysisTypeGateDetection,
		Provider:             "openai",
		ModelName:            "gpt-4o-mini",
		PromptTemplate:       "Is the gate open? Respond with JSON.",
		Threshold:            0.8,
		AlertCooldownMinutes: 60,
		Active:               true,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := db.Create(cfg).Error; err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	return cfg
}

// WithCamera pins a config to one camera (empty string means all cameras).
func WithCamera(camera string) func(*model.AnalysisConfig) {
	return func(c *model.AnalysisConfig) {
		c.CameraName = camera
	}
}

// WithAnalysisType sets the analysis type.
func WithAnalysisType(analysisType string) func(*model.AnalysisConfig) {
	return func(c *model.AnalysisConfig) {
		c.AnalysisType = analysisType
	}
}

// WithActive toggles the active flag.
func WithActive(active bool) func(*model.AnalysisConfig) {
	return func(c *model.AnalysisConfig) {
		c.Active = active
	}
}

// WithSecondary enables dual-model comparison.
func WithSecondary(provider, modelName string) func(*model.AnalysisConfig) {
	return func(c *model.AnalysisConfig) {
		c.SecondaryProvider = provider
		c.SecondaryModel = modelName
	}
}

// WithTiebreaker configures the arbitration model.
func WithTiebreaker(provider, modelName string) func(*model.AnalysisConfig) {
	return func(c *model.AnalysisConfig) {
		c.TiebreakerProvider = provider
		c.TiebreakerModel = modelName
	}
}

// WithThreshold sets the alert confidence threshold.
func WithThreshold(threshold float64) func(*model.AnalysisConfig) {
	return func(c *model.AnalysisConfig) {
		c.Threshold = threshold
	}
}

// WithCooldown sets the alert cooldown in minutes.
func WithCooldown(minutes int) func(*model.AnalysisConfig) {
	return func(c *model.AnalysisConfig) {
		c.AlertCooldownMinutes = minutes
	}
}

// TestImage creates a catalog image row.
func TestImage(t *testing.T, db *gorm.DB, opts ...func(*model.CameraImage)) *model.CameraImage {
	t.Helper()

	seq := nextSeq()
	img := &model.CameraImage{
		ImageID:     fmt.Sprintf("img-%d", seq),
		CameraName:  "North Gate",
		CapturedAt:  time.Now().UTC(),
		Fingerprint: fmt.Sprintf("phash-%d", seq),
		ImageURL:    fmt.Sprintf("https://images.example.com/img-%d.jpg", seq),
	}

	for _, opt := range opts {
		opt(img)
	}

	if err := db.Create(img).Error; err != nil {
		t.Fatalf("Failed to create test image: %v", err)
	}

	return img
}

// WithImageCamera sets the originating camera.
func WithImageCamera(camera string) func(*model.CameraImage) {
	return func(i *model.CameraImage) {
		i.CameraName = camera
	}
}

// WithFingerprint sets the perceptual hash.
func WithFingerprint(fp string) func(*model.CameraImage) {
	return func(i *model.CameraImage) {
		i.Fingerprint = fp
	}
}

// TestTask creates a task for the given image and config.
func TestTask(t *testing.T, db *gorm.DB, imageID string, configID int64, status model.TaskStatus) *model.AnalysisTask {
	t.Helper()

	task := &model.AnalysisTask{
		ImageID:     imageID,
		ConfigID:    configID,
		Status:      status,
		Priority:    5,
		MaxRetries:  3,
		ScheduledAt: time.Now().UTC(),
	}
	if status == model.TaskStatusProcessing {
		now := time.Now().UTC()
		task.StartedAt = &now
	}

	if err := db.Create(task).Error; err != nil {
		t.Fatalf("Failed to create test task: %v", err)
	}

	return task
}
