package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/pkg/response"
	"github.com/rancheye/analysis_server/internal/repository"
	"github.com/rancheye/analysis_server/internal/vision"
)

type ConfigHandler struct {
	configs  *repository.ConfigRepository
	registry *vision.Registry
}

func NewConfigHandler(configs *repository.ConfigRepository, registry *vision.Registry) *ConfigHandler {
	return &ConfigHandler{configs: configs, registry: registry}
}

// ConfigRequest is the mutable subset of an analysis config.
type ConfigRequest struct {
	Name                 string  `json:"name" binding:"required"`
	CameraName           string  `json:"camera_name"`
	AnalysisType         string  `json:"analysis_type" binding:"required"`
	Provider             string  `json:"provider" binding:"required"`
	ModelName            string  `json:"model_name" binding:"required"`
	SecondaryProvider    string  `json:"secondary_provider"`
	SecondaryModel       string  `json:"secondary_model"`
	TiebreakerProvider   string  `json:"tiebreaker_provider"`
	TiebreakerModel      string  `json:"tiebreaker_model"`
	PromptTemplate       string  `json:"prompt_template" binding:"required"`
	Threshold            float64 `json:"threshold"`
	AlertCooldownMinutes int     `json:"alert_cooldown_minutes"`
	Active               *bool   `json:"active"`
}

// validate rejects provider names no configured vision client can serve, and
// half-specified model pairs.
func (r *ConfigRequest) validate(registry *vision.Registry) string {
	if _, err := registry.Get(r.Provider); err != nil {
		return "unknown provider: " + r.Provider
	}
	if (r.SecondaryProvider == "") != (r.SecondaryModel == "") {
		return "secondary_provider and secondary_model must be set together"
	}
	if r.SecondaryProvider != "" {
		if _, err := registry.Get(r.SecondaryProvider); err != nil {
			return "unknown secondary provider: " + r.SecondaryProvider
		}
	}
	if (r.TiebreakerProvider == "") != (r.TiebreakerModel == "") {
		return "tiebreaker_provider and tiebreaker_model must be set together"
	}
	if r.TiebreakerProvider != "" {
		if r.SecondaryProvider == "" {
			return "a tiebreaker requires a secondary model"
		}
		if _, err := registry.Get(r.TiebreakerProvider); err != nil {
			return "unknown tiebreaker provider: " + r.TiebreakerProvider
		}
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return "threshold must be between 0 and 1"
	}
	return ""
}

func (r *ConfigRequest) apply(cfg *model.AnalysisConfig) {
	cfg.Name = r.Name
	cfg.CameraName = r.CameraName
	cfg.AnalysisType = r.AnalysisType
	cfg.Provider = r.Provider
	cfg.ModelName = r.ModelName
	cfg.SecondaryProvider = r.SecondaryProvider
	cfg.SecondaryModel = r.SecondaryModel
	cfg.TiebreakerProvider = r.TiebreakerProvider
	cfg.TiebreakerModel = r.TiebreakerModel
	cfg.PromptTemplate = r.PromptTemplate
	cfg.Threshold = r.Threshold
	cfg.AlertCooldownMinutes = r.AlertCooldownMinutes
	if r.Active != nil {
		cfg.Active = *r.Active
	}
}

// List returns every config.
// GET /api/v1/configs
func (h *ConfigHandler) List(c *gin.Context) {
	configs, err := h.configs.List()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, configs)
}

// Get returns one config.
// GET /api/v1/configs/:id
func (h *ConfigHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid config id")
		return
	}

	cfg, err := h.configs.GetByID(id)
	if err != nil {
		response.NotFoundError(c, "config not found")
		return
	}
	response.Success(c, cfg)
}

// Create adds a new analysis config.
// POST /api/v1/configs
func (h *ConfigHandler) Create(c *gin.Context) {
	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if msg := req.validate(h.registry); msg != "" {
		response.ParamError(c, msg)
		return
	}

	cfg := &model.AnalysisConfig{Active: true, Threshold: 0.8, AlertCooldownMinutes: 60}
	req.apply(cfg)
	if req.Threshold == 0 {
		cfg.Threshold = 0.8
	}
	if req.AlertCooldownMinutes == 0 {
		cfg.AlertCooldownMinutes = 60
	}

	if err := h.configs.Create(cfg); err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, cfg)
}

// Update replaces a config's mutable fields. Tasks already queued against
// the old settings run with the new ones when claimed.
// PUT /api/v1/configs/:id
func (h *ConfigHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid config id")
		return
	}

	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if msg := req.validate(h.registry); msg != "" {
		response.ParamError(c, msg)
		return
	}

	cfg, err := h.configs.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.NotFoundError(c, "config not found")
		return
	}
	if err != nil {
		response.ServerError(c, "")
		return
	}

	req.apply(cfg)
	if err := h.configs.Update(cfg); err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, cfg)
}

// Delete removes a config. In-flight tasks referencing it fail permanently
// when claimed.
// DELETE /api/v1/configs/:id
func (h *ConfigHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid config id")
		return
	}

	if _, err := h.configs.GetByID(id); err != nil {
		response.NotFoundError(c, "config not found")
		return
	}

	if err := h.configs.Delete(id); err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, nil)
}
