package model

import (
	"time"
)

// AnalysisResult is the immutable outcome of one model invocation. Results
// belonging to a multi-model comparison run share a SessionID; a nil
// SessionID means a standalone single-model run.
type AnalysisResult struct {
	ID       int64   `gorm:"primaryKey" json:"id"`
	TaskID   *int64  `gorm:"index" json:"task_id,omitempty"`
	ImageID  string  `gorm:"size:64;not null;index" json:"image_id"`
	ConfigID int64   `gorm:"not null;index" json:"config_id"`
	Camera   string  `gorm:"column:camera_name;size:100;index" json:"camera_name"`
	Session  *string `gorm:"column:session_id;size:36;index" json:"session_id,omitempty"`

	AnalysisType string `gorm:"size:50;not null;index" json:"analysis_type"`
	Provider     string `gorm:"size:50;not null" json:"provider"`
	ModelName    string `gorm:"size:100;not null" json:"model_name"`

	Result       JSONMap `gorm:"type:json" json:"result"`
	RawResponse  string  `gorm:"type:text" json:"raw_response,omitempty"`
	Confidence   float64 `json:"confidence"`
	Success      bool    `gorm:"index" json:"success"`
	ErrorMessage string  `gorm:"type:text" json:"error_message,omitempty"`

	ProcessingMs int     `json:"processing_ms"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`

	// Cached marks a result synthesized from a cache hit (no provider call).
	Cached bool `gorm:"default:false" json:"cached"`
	// Tiebreaker marks the arbitration member of a disagreeing session.
	Tiebreaker bool `gorm:"default:false" json:"tiebreaker"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AnalysisResult) TableName() string {
	return "analysis_results"
}

// TotalTokens is the combined usage billed for this invocation.
func (r *AnalysisResult) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}
