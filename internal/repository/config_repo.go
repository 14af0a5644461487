package repository

import (
	"gorm.io/gorm"

	"github.com/rancheye/analysis_server/internal/model"
)

type ConfigRepository struct {
	db *gorm.DB
}

func NewConfigRepository(db *gorm.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

func (r *ConfigRepository) Create(cfg *model.AnalysisConfig) error {
	return r.db.Create(cfg).Error
}

func (r *ConfigRepository) GetByID(id int64) (*model.AnalysisConfig, error) {
	var cfg model.AnalysisConfig
	err := r.db.Where("id = ?", id).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *ConfigRepository) Update(cfg *model.AnalysisConfig) error {
	return r.db.Save(cfg).Error
}

func (r *ConfigRepository) Delete(id int64) error {
	return r.db.Delete(&model.AnalysisConfig{}, id).Error
}

func (r *ConfigRepository) List() ([]*model.AnalysisConfig, error) {
	var configs []*model.AnalysisConfig
	err := r.db.Order("id ASC").Find(&configs).Error
	return configs, err
}

// ListActive returns configs eligible to spawn tasks, optionally narrowed to
// one camera (wildcard configs always match).
func (r *ConfigRepository) ListActive(cameraName string) ([]*model.AnalysisConfig, error) {
	query := r.db.Where("active = ?", true)
	if cameraName != "" {
		query = query.Where("camera_name = ? OR camera_name = ''", cameraName)
	}

	var configs []*model.AnalysisConfig
	err := query.Order("id ASC").Find(&configs).Error
	return configs, err
}

// SeedDefaults creates the stock ranch-monitoring configs when the table is
// empty. Mirrors the operator bootstrap tooling; a non-empty table is left
// untouched.
func (r *ConfigRepository) SeedDefaults() (int, error) {
	var count int64
	if err := r.db.Model(&model.AnalysisConfig{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	defaults := DefaultConfigs()
	for _, cfg := range defaults {
		if err := r.db.Create(cfg).Error; err != nil {
			return 0, err
		}
	}
	return len(defaults), nil
}

// DefaultConfigs is the stock rule set for common ranch monitoring scenarios.
// All entries are wildcard-camera.
func DefaultConfigs() []*model.AnalysisConfig {
	return []*model.AnalysisConfig{
		{
			Name:         "Gate Detection - All Cameras",
			AnalysisType: model.AnalysisTypeGateDetection,
			Provider:     "openai",
			ModelName:    "gpt-4o-mini",
			PromptTemplate: `Analyze this ranch camera image and determine if a gate is visible. If a gate is visible, determine if it is OPEN or CLOSED.

Respond with a JSON object containing:
{
  "gate_visible": boolean,
  "gate_open": boolean (null if no gate visible),
  "confidence": float between 0-1,
  "reasoning": "brief explanation of what you see"
}

Be careful to distinguish between:
- Open gates (you can see through/past them)
- Closed gates (blocking the path)
- No gate visible in the image`,
			Threshold:            0.85,
			AlertCooldownMinutes: 60,
			Active:               true,
		},
		{
			Name:         "Water Trough Monitor",
			AnalysisType: model.AnalysisTypeWaterLevel,
			Provider:     "openai",
			ModelName:    "gpt-4o-mini",
			PromptTemplate: `Analyze this ranch camera image for water troughs, tanks, or containers. Estimate the water level.

Respond with JSON:
{
  "water_visible": boolean,
  "water_level": "FULL|ADEQUATE|LOW|EMPTY|UNKNOWN",
  "percentage_estimate": number (0-100, null if unknown),
  "confidence": float (0-1),
  "container_type": "trough|tank|pond|other|none",
  "reasoning": "what you observe about the water source"
}

Water levels:
- FULL: 80-100% capacity
- ADEQUATE: 40-80% capacity
- LOW: 10-40% capacity (needs attention)
- EMPTY: 0-10% capacity (urgent)`,
			Threshold:            0.80,
			AlertCooldownMinutes: 120,
			Active:               true,
		},
		{
			Name:         "Feed Bin Monitor",
			AnalysisType: model.AnalysisTypeFeedBin,
			Provider:     "openai",
			ModelName:    "gpt-4o-mini",
			PromptTemplate: `Analyze this ranch camera image for feed bins, feeders, or hay storage. Assess the feed level.

Respond with JSON:
{
  "feeder_visible": boolean,
  "feed_level": "FULL|ADEQUATE|LOW|EMPTY|UNKNOWN",
  "percentage_estimate": number (0-100, null if unknown),
  "feed_type": "grain|hay|mineral|mixed|unknown",
  "confidence": float (0-1),
  "animals_present": boolean,
  "reasoning": "observations about the feed situation"
}

Feed levels:
- FULL: 80-100% capacity
- ADEQUATE: 40-80% capacity
- LOW: 10-40% capacity (needs refill soon)
- EMPTY: 0-10% capacity (urgent refill needed)`,
			Threshold:            0.80,
			AlertCooldownMinutes: 240,
			Active:               true,
		},
		{
			Name:         "Animal Detection",
			AnalysisType: model.AnalysisTypeAnimalDetection,
			Provider:     "openai",
			ModelName:    "gpt-4o-mini",
			PromptTemplate: `Analyze this ranch camera image for any animals. Identify livestock vs wildlife.

Respond with JSON:
{
  "animals_detected": boolean,
  "animals": [
    {
      "species": "cattle|horse|sheep|goat|deer|hog|bird|other|unknown",
      "count": number,
      "type": "livestock|wildlife|pet|unknown",
      "behavior": "grazing|resting|moving|drinking|other",
      "confidence": float (0-1)
    }
  ],
  "total_count": number,
  "unusual_activity": boolean,
  "reasoning": "description of what you observe"
}`,
			Threshold:            0.75,
			AlertCooldownMinutes: 30,
			Active:               true,
		},
	}
}
