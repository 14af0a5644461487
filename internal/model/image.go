package model

import (
	"time"
)

// CameraImage mirrors the catalog rows written by the ingestion pipeline.
// Everything except TasksGenerated is read-only to this service; the
// fingerprint is a perceptual hash computed at ingest time, so visually
// identical recaptures share a cache key regardless of image id.
type CameraImage struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	ImageID        string    `gorm:"size:64;not null;uniqueIndex" json:"image_id"`
	CameraName     string    `gorm:"size:100;not null;index" json:"camera_name"`
	CapturedAt     time.Time `gorm:"index" json:"captured_at"`
	Fingerprint    string    `gorm:"size:128;index" json:"fingerprint"`
	ImageURL       string    `gorm:"size:500" json:"image_url,omitempty"`
	TasksGenerated bool      `gorm:"default:false;index" json:"tasks_generated"`
	CreatedAt      time.Time `json:"created_at"`
}

func (CameraImage) TableName() string {
	return "camera_images"
}
