package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/pkg/pubsub"
	"github.com/rancheye/analysis_server/internal/repository"
)

// AlertService turns analysis verdicts into operator alerts, deduplicated
// per (camera, analysis type) by the cooldown window.
type AlertService struct {
	alerts          *repository.AlertRepository
	publisher       *pubsub.Publisher
	defaultCooldown time.Duration
}

func NewAlertService(alerts *repository.AlertRepository, publisher *pubsub.Publisher, defaultCooldown time.Duration) *AlertService {
	return &AlertService{
		alerts:          alerts,
		publisher:       publisher,
		defaultCooldown: defaultCooldown,
	}
}

// Evaluate checks one verdict against its config's alert rule. Returns the
// created alert, or nil when no alert fires (condition not met, confidence
// below threshold, or suppressed by cooldown). Cached verdicts are evaluated
// the same as fresh ones: a reused answer can still mean an open gate.
func (s *AlertService) Evaluate(ctx context.Context, cfg *model.AnalysisConfig, result *model.AnalysisResult) (*model.Alert, error) {
	if !result.Success {
		return nil, nil
	}
	if result.Confidence < cfg.Threshold {
		return nil, nil
	}
	if !alertCondition(cfg.AnalysisType, result.Result) {
		return nil, nil
	}

	cooldown := time.Duration(cfg.AlertCooldownMinutes) * time.Minute
	if cooldown <= 0 {
		cooldown = s.defaultCooldown
	}

	now := time.Now().UTC()
	permitted, err := s.alerts.TryAcquireCooldown(result.Camera, cfg.AnalysisType, cooldown, now)
	if err != nil {
		return nil, fmt.Errorf("alert cooldown check: %w", err)
	}
	if !permitted {
		return nil, nil
	}

	severity := model.AlertSeverityWarning
	if result.Confidence > 0.9 {
		severity = model.AlertSeverityCritical
	}

	alert := &model.Alert{
		AlertType:  cfg.AnalysisType,
		CameraName: result.Camera,
		Severity:   severity,
		Title:      alertTitle(cfg.AnalysisType, result.Camera),
		Message:    alertMessage(cfg.AnalysisType, result),
		ResultID:   &result.ID,
		Data:       result.Result,
	}
	if err := s.alerts.Create(alert); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	if err := s.publisher.Publish(ctx, &pubsub.Event{
		Type:       pubsub.EventAlert,
		AlertID:    alert.ID,
		CameraName: alert.CameraName,
		Severity:   alert.Severity,
		Title:      alert.Title,
		Message:    alert.Message,
		Confidence: result.Confidence,
		ImageID:    result.ImageID,
	}); err != nil {
		log.Printf("alert %d: event publish failed: %v", alert.ID, err)
	}

	return alert, nil
}

// alertCondition is the per-type predicate over the verdict's parsed fields.
func alertCondition(analysisType string, data model.JSONMap) bool {
	switch analysisType {
	case model.AnalysisTypeGateDetection:
		return data.Bool("gate_visible") && data.Bool("gate_open")
	case model.AnalysisTypeWaterLevel:
		return levelNeedsAttention(data.String("water_level"))
	case model.AnalysisTypeFeedBin:
		return levelNeedsAttention(data.String("feed_level"))
	default:
		return data.Bool("alert_condition")
	}
}

func levelNeedsAttention(level string) bool {
	switch strings.ToUpper(level) {
	case "LOW", "EMPTY":
		return true
	}
	return false
}

func alertTitle(analysisType, camera string) string {
	switch analysisType {
	case model.AnalysisTypeGateDetection:
		return fmt.Sprintf("Gate Open Alert - %s", camera)
	case model.AnalysisTypeWaterLevel:
		return fmt.Sprintf("Water Level Alert - %s", camera)
	case model.AnalysisTypeFeedBin:
		return fmt.Sprintf("Feed Bin Alert - %s", camera)
	default:
		return fmt.Sprintf("%s Alert - %s", analysisType, camera)
	}
}

func alertMessage(analysisType string, result *model.AnalysisResult) string {
	switch analysisType {
	case model.AnalysisTypeGateDetection:
		return fmt.Sprintf("Gate detected open on %s (confidence %.2f). %s",
			result.Camera, result.Confidence, result.Result.String("reasoning"))
	case model.AnalysisTypeWaterLevel:
		return fmt.Sprintf("Water level %s on %s (confidence %.2f). %s",
			strings.ToUpper(result.Result.String("water_level")), result.Camera,
			result.Confidence, result.Result.String("reasoning"))
	case model.AnalysisTypeFeedBin:
		return fmt.Sprintf("Feed level %s on %s (confidence %.2f). %s",
			strings.ToUpper(result.Result.String("feed_level")), result.Camera,
			result.Confidence, result.Result.String("reasoning"))
	default:
		return fmt.Sprintf("Alert condition met on %s (confidence %.2f). %s",
			result.Camera, result.Confidence, result.Result.String("reasoning"))
	}
}
