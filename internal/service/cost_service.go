package service

import (
	"time"

	"github.com/rancheye/analysis_server/internal/pricing"
	"github.com/rancheye/analysis_server/internal/repository"
)

// CostService prices provider invocations and folds them into the daily
// rollup. Cached verdicts are never recorded: no provider call, no spend.
type CostService struct {
	costs *repository.CostRepository
}

func NewCostService(costs *repository.CostRepository) *CostService {
	return &CostService{costs: costs}
}

// Record prices one invocation and increments today's (provider, model)
// rollup. Returns the estimated cost so the caller can attach it to the
// result row.
func (s *CostService) Record(provider, modelName string, inputTokens, outputTokens int) (float64, error) {
	cost := pricing.Price(provider, modelName, inputTokens, outputTokens)
	err := s.costs.Increment(time.Now().UTC(), provider, modelName, inputTokens+outputTokens, cost)
	return cost, err
}
