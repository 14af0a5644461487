package model

import (
	"time"
)

// AnalysisConfig is an operator-authored rule describing which camera gets
// which analysis, with which models. An empty CameraName applies the config
// to every camera. Inactive configs never spawn tasks.
type AnalysisConfig struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:200;not null" json:"name"`
	CameraName string `gorm:"size:100;index" json:"camera_name,omitempty"`

	AnalysisType string `gorm:"size:50;not null;index" json:"analysis_type"`

	Provider  string `gorm:"size:50;not null" json:"provider"`
	ModelName string `gorm:"size:100;not null" json:"model_name"`

	// Optional second opinion; when set the resolver runs both models in one
	// session and compares their conclusions.
	SecondaryProvider string `gorm:"size:50" json:"secondary_provider,omitempty"`
	SecondaryModel    string `gorm:"size:100" json:"secondary_model,omitempty"`

	// Optional arbiter invoked only when the two models disagree.
	TiebreakerProvider string `gorm:"size:50" json:"tiebreaker_provider,omitempty"`
	TiebreakerModel    string `gorm:"size:100" json:"tiebreaker_model,omitempty"`

	PromptTemplate       string  `gorm:"type:text;not null" json:"prompt_template"`
	Threshold            float64 `gorm:"default:0.8" json:"threshold"`
	AlertCooldownMinutes int     `gorm:"default:60" json:"alert_cooldown_minutes"`
	Active               bool    `gorm:"default:true;index" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AnalysisConfig) TableName() string {
	return "analysis_configs"
}

// MultiModel reports whether the config requests a comparison session.
func (c *AnalysisConfig) MultiModel() bool {
	return c.SecondaryProvider != "" && c.SecondaryModel != ""
}

// HasTiebreaker reports whether an arbitration model is configured.
func (c *AnalysisConfig) HasTiebreaker() bool {
	return c.TiebreakerProvider != "" && c.TiebreakerModel != ""
}

// AppliesTo reports whether the config matches the given camera.
func (c *AnalysisConfig) AppliesTo(cameraName string) bool {
	return c.CameraName == "" || c.CameraName == cameraName
}

// Known analysis types. Custom types are allowed; they fall back to the
// generic conclusion/alert_condition handling.
const (
	AnalysisTypeGateDetection   = "gate_detection"
	AnalysisTypeWaterLevel      = "water_level"
	AnalysisTypeFeedBin         = "feed_bin"
	AnalysisTypeAnimalDetection = "animal_detection"
)
