package service

import (
	"context"
	"fmt"
	"log"

	"github.com/rancheye/analysis_server/internal/repository"
)

// IngestService turns freshly cataloged camera images into queued tasks, one
// per matching active config. Enqueue is idempotent, so a crash between
// enqueueing and flagging an image only costs a harmless re-scan.
type IngestService struct {
	images    *repository.ImageRepository
	configs   *repository.ConfigRepository
	tasks     *repository.TaskRepository
	batchSize int
}

func NewIngestService(images *repository.ImageRepository, configs *repository.ConfigRepository, tasks *repository.TaskRepository, batchSize int) *IngestService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IngestService{
		images:    images,
		configs:   configs,
		tasks:     tasks,
		batchSize: batchSize,
	}
}

// Scan processes one batch of unvisited images. Returns images visited and
// tasks created. An image with no matching configs is still marked visited
// so the scan does not spin on it.
func (s *IngestService) Scan(ctx context.Context) (int, int, error) {
	images, err := s.images.ListWithoutTasks(s.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("list pending images: %w", err)
	}

	visited := 0
	created := 0
	for _, img := range images {
		if ctx.Err() != nil {
			return visited, created, ctx.Err()
		}

		configs, err := s.configs.ListActive(img.CameraName)
		if err != nil {
			return visited, created, fmt.Errorf("list configs for %s: %w", img.CameraName, err)
		}

		n, err := s.tasks.Enqueue(img.ImageID, img.CameraName, configs)
		if err != nil {
			return visited, created, fmt.Errorf("enqueue %s: %w", img.ImageID, err)
		}
		created += n

		if err := s.images.MarkTasksGenerated(img.ImageID); err != nil {
			return visited, created, fmt.Errorf("mark %s: %w", img.ImageID, err)
		}
		visited++
	}

	if visited > 0 {
		log.Printf("ingest: scanned %d images, created %d tasks", visited, created)
	}
	return visited, created, nil
}
