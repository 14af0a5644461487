package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rancheye/analysis_server/internal/model"
)

// claimBatch bounds how many pending candidates one claim attempt inspects.
const claimBatch = 10

const staleTaskError = "processing timed out; reset by staleness sweep"

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Enqueue creates one pending task per active config matching the image's
// camera. The unique (image_id, config_id) index plus ON CONFLICT DO NOTHING
// makes this idempotent: re-running ingestion is safe. Returns the number of
// tasks actually created.
func (r *TaskRepository) Enqueue(imageID, cameraName string, configs []*model.AnalysisConfig) (int, error) {
	created := 0
	now := time.Now().UTC()

	for _, cfg := range configs {
		if !cfg.Active || !cfg.AppliesTo(cameraName) {
			continue
		}

		task := &model.AnalysisTask{
			ImageID:     imageID,
			ConfigID:    cfg.ID,
			Status:      model.TaskStatusPending,
			Priority:    5,
			MaxRetries:  3,
			ScheduledAt: now,
		}

		res := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "image_id"}, {Name: "config_id"}},
			DoNothing: true,
		}).Create(task)
		if res.Error != nil {
			return created, res.Error
		}
		if res.RowsAffected > 0 {
			created++
		}
	}

	return created, nil
}

// ClaimNext atomically transitions the highest-priority pending task to
// processing and returns it. Ties break on oldest scheduled_at. The claim is
// a conditional update on status, so under concurrent callers exactly one
// wins a given task; losers move on to the next candidate. Returns nil when
// nothing is eligible.
func (r *TaskRepository) ClaimNext() (*model.AnalysisTask, error) {
	now := time.Now().UTC()

	var candidates []*model.AnalysisTask
	err := r.db.
		Where("status = ? AND scheduled_at <= ?", model.TaskStatusPending, now).
		Order("priority DESC").
		Order("scheduled_at ASC").
		Limit(claimBatch).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		res := r.db.Model(&model.AnalysisTask{}).
			Where("id = ? AND status = ?", candidate.ID, model.TaskStatusPending).
			Updates(map[string]interface{}{
				"status":     model.TaskStatusProcessing,
				"started_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			candidate.Status = model.TaskStatusProcessing
			candidate.StartedAt = &now
			return candidate, nil
		}
		// Another worker got there first; try the next candidate.
	}

	return nil, nil
}

// Complete moves a processing task to its completed terminal state.
func (r *TaskRepository) Complete(taskID int64) error {
	now := time.Now().UTC()

	res := r.db.Model(&model.AnalysisTask{}).
		Where("id = ? AND status = ?", taskID, model.TaskStatusProcessing).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.transitionError(taskID, model.TaskStatusCompleted)
	}
	return nil
}

// Fail records a transient failure. While retries remain the task goes back
// to pending (after the backoff delay) with retry_count incremented;
// otherwise it lands in the failed terminal state with the error preserved.
func (r *TaskRepository) Fail(taskID int64, taskErr string, backoff time.Duration) error {
	now := time.Now().UTC()

	res := r.db.Model(&model.AnalysisTask{}).
		Where("id = ? AND status = ? AND retry_count < max_retries", taskID, model.TaskStatusProcessing).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusPending,
			"retry_count":  gorm.Expr("retry_count + 1"),
			"scheduled_at": now.Add(backoff),
			"started_at":   nil,
			"last_error":   taskErr,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// Retries exhausted: terminal failure.
	res = r.db.Model(&model.AnalysisTask{}).
		Where("id = ? AND status = ?", taskID, model.TaskStatusProcessing).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusFailed,
			"completed_at": now,
			"last_error":   taskErr,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.transitionError(taskID, model.TaskStatusFailed)
	}
	return nil
}

// FailPermanent fails a task immediately, bypassing retries. Used when
// retrying cannot help (image or config gone).
func (r *TaskRepository) FailPermanent(taskID int64, taskErr string) error {
	now := time.Now().UTC()

	res := r.db.Model(&model.AnalysisTask{}).
		Where("id = ? AND status = ?", taskID, model.TaskStatusProcessing).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusFailed,
			"completed_at": now,
			"last_error":   taskErr,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.transitionError(taskID, model.TaskStatusFailed)
	}
	return nil
}

// ResetStale recovers tasks abandoned in processing past the cutoff (worker
// crash, lost connection). Retry limits are honored: tasks with retries left
// go back to pending, the rest fail terminally. Returns (requeued, failed).
func (r *TaskRepository) ResetStale(cutoff time.Time) (int64, int64, error) {
	now := time.Now().UTC()

	requeue := r.db.Model(&model.AnalysisTask{}).
		Where("status = ? AND started_at < ? AND retry_count < max_retries",
			model.TaskStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusPending,
			"retry_count":  gorm.Expr("retry_count + 1"),
			"scheduled_at": now,
			"started_at":   nil,
			"last_error":   staleTaskError,
		})
	if requeue.Error != nil {
		return 0, 0, requeue.Error
	}

	fail := r.db.Model(&model.AnalysisTask{}).
		Where("status = ? AND started_at < ? AND retry_count >= max_retries",
			model.TaskStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusFailed,
			"completed_at": now,
			"last_error":   staleTaskError,
		})
	if fail.Error != nil {
		return requeue.RowsAffected, 0, fail.Error
	}

	return requeue.RowsAffected, fail.RowsAffected, nil
}

func (r *TaskRepository) GetByID(id int64) (*model.AnalysisTask, error) {
	var task model.AnalysisTask
	err := r.db.Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns tasks, optionally filtered by status, newest first.
func (r *TaskRepository) List(status model.TaskStatus, page, pageSize int) ([]*model.AnalysisTask, int64, error) {
	query := r.db.Model(&model.AnalysisTask{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []*model.AnalysisTask
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tasks).Error
	return tasks, total, err
}

// QueueStats summarizes queue depth and age for the dashboard.
type QueueStats struct {
	Pending          int64      `json:"pending"`
	Processing       int64      `json:"processing"`
	Completed        int64      `json:"completed"`
	Failed           int64      `json:"failed"`
	OldestPendingAge float64    `json:"oldest_pending_age_seconds"`
	OldestPendingAt  *time.Time `json:"oldest_pending_at,omitempty"`
}

func (r *TaskRepository) Stats() (*QueueStats, error) {
	var rows []struct {
		Status model.TaskStatus
		Count  int64
	}
	err := r.db.Model(&model.AnalysisTask{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{}
	for _, row := range rows {
		switch row.Status {
		case model.TaskStatusPending:
			stats.Pending = row.Count
		case model.TaskStatusProcessing:
			stats.Processing = row.Count
		case model.TaskStatusCompleted:
			stats.Completed = row.Count
		case model.TaskStatusFailed:
			stats.Failed = row.Count
		}
	}

	if stats.Pending > 0 {
		var oldest model.AnalysisTask
		err := r.db.Where("status = ?", model.TaskStatusPending).
			Order("scheduled_at ASC").
			First(&oldest).Error
		if err == nil {
			stats.OldestPendingAt = &oldest.ScheduledAt
			stats.OldestPendingAge = time.Since(oldest.ScheduledAt).Seconds()
		}
	}

	return stats, nil
}

// transitionError reports why a conditional status update matched no rows.
func (r *TaskRepository) transitionError(taskID int64, next model.TaskStatus) error {
	task, err := r.GetByID(taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("task %d not found", taskID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("task %d: %w", taskID, task.Status.ValidateTransition(next))
}
