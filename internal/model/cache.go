package model

import (
	"time"
)

// CacheEntry is a prior analysis outcome keyed by image content, not image
// id. Entries are never mutated in place; a fresh write for the same key
// supersedes the old one (last write wins, both derive from the same input).
type CacheEntry struct {
	ID           int64   `gorm:"primaryKey" json:"id"`
	ImageHash    string  `gorm:"size:128;not null;uniqueIndex:idx_cache_key" json:"image_hash"`
	AnalysisType string  `gorm:"size:50;not null;uniqueIndex:idx_cache_key" json:"analysis_type"`
	Provider     string  `gorm:"size:50;not null;uniqueIndex:idx_cache_key" json:"provider"`
	ModelName    string  `gorm:"size:100;not null;uniqueIndex:idx_cache_key" json:"model_name"`
	Result       JSONMap `gorm:"type:json" json:"result"`
	Confidence   float64 `json:"confidence"`

	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (CacheEntry) TableName() string {
	return "analysis_cache"
}

// Valid reports whether the entry may still serve lookups.
func (e *CacheEntry) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
