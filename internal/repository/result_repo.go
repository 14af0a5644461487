package repository

import (
	"gorm.io/gorm"

	"github.com/rancheye/analysis_server/internal/model"
)

type ResultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Create persists one invocation outcome. Results are immutable once
// written; there is no Update.
func (r *ResultRepository) Create(result *model.AnalysisResult) error {
	return r.db.Create(result).Error
}

func (r *ResultRepository) GetByID(id int64) (*model.AnalysisResult, error) {
	var result model.AnalysisResult
	err := r.db.Where("id = ?", id).First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListBySession returns all members of one comparison session, in the order
// they were recorded.
func (r *ResultRepository) ListBySession(sessionID string) ([]*model.AnalysisResult, error) {
	var results []*model.AnalysisResult
	err := r.db.Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&results).Error
	return results, err
}

// List returns result history, optionally filtered, newest first.
func (r *ResultRepository) List(imageID, cameraName, analysisType string, page, pageSize int) ([]*model.AnalysisResult, int64, error) {
	query := r.db.Model(&model.AnalysisResult{})
	if imageID != "" {
		query = query.Where("image_id = ?", imageID)
	}
	if cameraName != "" {
		query = query.Where("camera_name = ?", cameraName)
	}
	if analysisType != "" {
		query = query.Where("analysis_type = ?", analysisType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*model.AnalysisResult
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&results).Error
	return results, total, err
}

// ListByTask returns every result recorded for a task.
func (r *ResultRepository) ListByTask(taskID int64) ([]*model.AnalysisResult, error) {
	var results []*model.AnalysisResult
	err := r.db.Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&results).Error
	return results, err
}
