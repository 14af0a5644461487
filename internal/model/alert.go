package model

import (
	"time"
)

// Alert severities.
const (
	AlertSeverityCritical = "critical"
	AlertSeverityWarning  = "warning"
)

type Alert struct {
	ID         int64   `gorm:"primaryKey" json:"id"`
	AlertType  string  `gorm:"size:50;not null;index:idx_alert_camera_type" json:"alert_type"`
	CameraName string  `gorm:"size:100;not null;index:idx_alert_camera_type" json:"camera_name"`
	Severity   string  `gorm:"size:20;not null" json:"severity"`
	Title      string  `gorm:"size:200;not null" json:"title"`
	Message    string  `gorm:"type:text" json:"message"`
	ResultID   *int64  `gorm:"index" json:"result_id,omitempty"`
	Data       JSONMap `gorm:"type:json" json:"data,omitempty"`

	Acknowledged   bool       `gorm:"default:false;index" json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `gorm:"size:100" json:"acknowledged_by,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Alert) TableName() string {
	return "analysis_alerts"
}

// AlertCooldown is the per-(camera, type) suppression row. The unique index
// lets two concurrent evaluations race on a single conditional write instead
// of an application-level check-then-insert.
type AlertCooldown struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	CameraName  string    `gorm:"size:100;not null;uniqueIndex:idx_cooldown_camera_type" json:"camera_name"`
	AlertType   string    `gorm:"size:50;not null;uniqueIndex:idx_cooldown_camera_type" json:"alert_type"`
	LastAlertAt time.Time `json:"last_alert_at"`
}

func (AlertCooldown) TableName() string {
	return "alert_cooldowns"
}
