package model

import (
	"time"
)

// CostDateLayout is the day bucket used for rollups.
const CostDateLayout = "2006-01-02"

// CostRecord is the daily spend rollup per (date, provider, model). Rows are
// only ever incremented, via a single SQL expression, so parallel workers
// cannot lose updates.
type CostRecord struct {
	ID            int64   `gorm:"primaryKey" json:"id"`
	Date          string  `gorm:"size:10;not null;uniqueIndex:idx_cost_day_model" json:"date"`
	Provider      string  `gorm:"size:50;not null;uniqueIndex:idx_cost_day_model" json:"provider"`
	ModelName     string  `gorm:"size:100;not null;uniqueIndex:idx_cost_day_model" json:"model_name"`
	AnalysisCount int64   `gorm:"default:0" json:"analysis_count"`
	TokensUsed    int64   `gorm:"default:0" json:"tokens_used"`
	EstimatedCost float64 `gorm:"default:0" json:"estimated_cost"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (CostRecord) TableName() string {
	return "analysis_costs"
}

// CostDay formats t into the rollup bucket in UTC.
func CostDay(t time.Time) string {
	return t.UTC().Format(CostDateLayout)
}
