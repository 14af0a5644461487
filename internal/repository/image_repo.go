package repository

import (
	"gorm.io/gorm"

	"github.com/rancheye/analysis_server/internal/model"
)

// ImageRepository reads the catalog written by the ingestion pipeline. The
// only column this service owns is tasks_generated.
type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) GetByImageID(imageID string) (*model.CameraImage, error) {
	var img model.CameraImage
	err := r.db.Where("image_id = ?", imageID).First(&img).Error
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// ListWithoutTasks returns images the enqueue scan has not visited yet,
// oldest capture first.
func (r *ImageRepository) ListWithoutTasks(limit int) ([]*model.CameraImage, error) {
	var images []*model.CameraImage
	err := r.db.Where("tasks_generated = ?", false).
		Order("captured_at ASC").
		Limit(limit).
		Find(&images).Error
	return images, err
}

// MarkTasksGenerated flags an image so the scan does not revisit it. Enqueue
// itself is idempotent, so a crash between enqueue and this flag is safe.
func (r *ImageRepository) MarkTasksGenerated(imageID string) error {
	return r.db.Model(&model.CameraImage{}).
		Where("image_id = ?", imageID).
		Update("tasks_generated", true).Error
}
