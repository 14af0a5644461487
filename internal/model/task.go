package model

import (
	"errors"
	"fmt"
	"time"
)

// TaskStatus is the closed set of analysis task states.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

var ErrInvalidTransition = errors.New("invalid task status transition")

// taskTransitions is the only set of moves the queue will perform.
// Terminal states (completed, failed) have no outgoing edges.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusProcessing},
	TaskStatusProcessing: {TaskStatusCompleted, TaskStatusPending, TaskStatusFailed},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error for an illegal move.
func (s TaskStatus) ValidateTransition(next TaskStatus) error {
	if !s.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

// Terminal reports whether no further automatic transitions occur.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// AnalysisTask is one unit of work binding an image to an analysis config.
// The (image_id, config_id) pair is unique, which makes enqueue idempotent.
type AnalysisTask struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	ImageID     string     `gorm:"size:64;not null;uniqueIndex:idx_task_image_config" json:"image_id"`
	ConfigID    int64      `gorm:"not null;uniqueIndex:idx_task_image_config" json:"config_id"`
	Status      TaskStatus `gorm:"size:20;default:pending;index" json:"status"`
	Priority    int        `gorm:"default:5;index" json:"priority"`
	RetryCount  int        `gorm:"default:0" json:"retry_count"`
	MaxRetries  int        `gorm:"default:3" json:"max_retries"`
	ScheduledAt time.Time  `gorm:"index" json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (AnalysisTask) TableName() string {
	return "analysis_tasks"
}
