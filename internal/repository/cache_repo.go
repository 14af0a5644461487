package repository

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rancheye/analysis_server/internal/model"
)

// CacheRepository is the content-addressed store of prior analysis outcomes.
// Keys are image fingerprints (perceptual hashes), not image ids, so
// visually identical recaptures collapse to one entry.
type CacheRepository struct {
	db *gorm.DB
}

func NewCacheRepository(db *gorm.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Lookup returns a valid cached entry or nil on miss. An expired or
// unreadable entry is a miss, never an error: the caller just pays for a
// fresh provider call.
func (r *CacheRepository) Lookup(imageHash, analysisType, provider, modelName string) (*model.CacheEntry, error) {
	var entry model.CacheEntry
	err := r.db.Where(
		"image_hash = ? AND analysis_type = ? AND provider = ? AND model_name = ?",
		imageHash, analysisType, provider, modelName,
	).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		// Treat a corrupted/unreadable row as a miss.
		log.Printf("cache: unreadable entry for %s/%s/%s/%s, treating as miss: %v",
			imageHash, analysisType, provider, modelName, err)
		return nil, nil
	}

	if !entry.Valid(time.Now().UTC()) {
		return nil, nil
	}
	return &entry, nil
}

// Store upserts an entry for the key. Concurrent duplicate stores are
// harmless: both derive from the same deterministic inputs, last write wins.
func (r *CacheRepository) Store(imageHash, analysisType, provider, modelName string, result model.JSONMap, confidence float64, ttl time.Duration) error {
	now := time.Now().UTC()
	entry := &model.CacheEntry{
		ImageHash:    imageHash,
		AnalysisType: analysisType,
		Provider:     provider,
		ModelName:    modelName,
		Result:       result,
		Confidence:   confidence,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "image_hash"}, {Name: "analysis_type"}, {Name: "provider"}, {Name: "model_name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"result", "confidence", "expires_at", "created_at"}),
	}).Create(entry).Error
}

// PurgeExpired removes entries past their expiry. Returns rows deleted.
func (r *CacheRepository) PurgeExpired() (int64, error) {
	res := r.db.Where("expires_at < ?", time.Now().UTC()).Delete(&model.CacheEntry{})
	return res.RowsAffected, res.Error
}
