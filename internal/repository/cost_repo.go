package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rancheye/analysis_server/internal/model"
)

type CostRepository struct {
	db *gorm.DB
}

func NewCostRepository(db *gorm.DB) *CostRepository {
	return &CostRepository{db: db}
}

// Increment folds one invocation into the daily (date, provider, model)
// rollup. The upsert increments in SQL so concurrent workers never lose
// counts to a read-modify-write race.
func (r *CostRepository) Increment(day time.Time, provider, modelName string, tokens int, cost float64) error {
	record := model.CostRecord{
		Date:          model.CostDay(day),
		Provider:      provider,
		ModelName:     modelName,
		AnalysisCount: 1,
		TokensUsed:    int64(tokens),
		EstimatedCost: cost,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "provider"}, {Name: "model_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"analysis_count": gorm.Expr("analysis_count + 1"),
			"tokens_used":    gorm.Expr("tokens_used + ?", tokens),
			"estimated_cost": gorm.Expr("estimated_cost + ?", cost),
		}),
	}).Create(&record).Error
}

// GetDay returns the rollup rows for one day bucket.
func (r *CostRepository) GetDay(day time.Time) ([]*model.CostRecord, error) {
	var records []*model.CostRecord
	err := r.db.Where("date = ?", model.CostDay(day)).
		Order("provider ASC, model_name ASC").
		Find(&records).Error
	return records, err
}

// CostSummary aggregates spend per model over a date range.
type CostSummary struct {
	Provider      string  `json:"provider"`
	ModelName     string  `json:"model_name"`
	AnalysisCount int64   `json:"analysis_count"`
	TokensUsed    int64   `json:"tokens_used"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// Summarize aggregates per (provider, model) across [from, to] inclusive.
func (r *CostRepository) Summarize(from, to time.Time) ([]*CostSummary, error) {
	var rows []*CostSummary
	err := r.db.Model(&model.CostRecord{}).
		Select("provider, model_name, SUM(analysis_count) AS analysis_count, SUM(tokens_used) AS tokens_used, SUM(estimated_cost) AS estimated_cost").
		Where("date >= ? AND date <= ?", model.CostDay(from), model.CostDay(to)).
		Group("provider, model_name").
		Order("estimated_cost DESC").
		Scan(&rows).Error
	return rows, err
}

// TotalSince returns the total estimated spend from a day bucket forward.
func (r *CostRepository) TotalSince(from time.Time) (float64, error) {
	var total *float64
	err := r.db.Model(&model.CostRecord{}).
		Select("SUM(estimated_cost)").
		Where("date >= ?", model.CostDay(from)).
		Scan(&total).Error
	if err != nil || total == nil {
		return 0, err
	}
	return *total, nil
}
