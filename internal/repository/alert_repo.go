package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rancheye/analysis_server/internal/model"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(alert *model.Alert) error {
	return r.db.Create(alert).Error
}

func (r *AlertRepository) GetByID(id int64) (*model.Alert, error) {
	var alert model.Alert
	err := r.db.Where("id = ?", id).First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// TryAcquireCooldown decides whether a (camera, alert type) pair may alert
// at time now, given the configured cooldown window. The decision is a
// single-row atomic claim so concurrent workers never double-alert:
//
//   - first alert ever: the cooldown row is inserted, permitted
//   - window elapsed: the row's last_alert_at is advanced, permitted
//   - otherwise: no row changes, suppressed
func (r *AlertRepository) TryAcquireCooldown(cameraName, alertType string, cooldown time.Duration, now time.Time) (bool, error) {
	row := model.AlertCooldown{
		CameraName:  cameraName,
		AlertType:   alertType,
		LastAlertAt: now,
	}
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "camera_name"}, {Name: "alert_type"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Row exists: advance it only if the window has elapsed. The WHERE
	// guard makes the check-and-set atomic.
	cutoff := now.Add(-cooldown)
	res = r.db.Model(&model.AlertCooldown{}).
		Where("camera_name = ? AND alert_type = ? AND last_alert_at <= ?", cameraName, alertType, cutoff).
		Update("last_alert_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List returns alerts newest first, optionally filtered by camera, severity,
// or acknowledgement state.
func (r *AlertRepository) List(cameraName, severity string, acknowledged *bool, page, pageSize int) ([]*model.Alert, int64, error) {
	query := r.db.Model(&model.Alert{})
	if cameraName != "" {
		query = query.Where("camera_name = ?", cameraName)
	}
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if acknowledged != nil {
		query = query.Where("acknowledged = ?", *acknowledged)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var alerts []*model.Alert
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&alerts).Error
	return alerts, total, err
}

// Acknowledge marks an alert as seen by an operator. Acknowledging twice is
// a no-op rather than an error.
func (r *AlertRepository) Acknowledge(id int64, operator string, now time.Time) error {
	res := r.db.Model(&model.Alert{}).
		Where("id = ? AND acknowledged = ?", id, false).
		Updates(map[string]interface{}{
			"acknowledged":    true,
			"acknowledged_by": operator,
			"acknowledged_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish missing from already-acknowledged.
		var count int64
		if err := r.db.Model(&model.Alert{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// CountUnacknowledged is used by the dashboard badge.
func (r *AlertRepository) CountUnacknowledged() (int64, error) {
	var count int64
	err := r.db.Model(&model.Alert{}).Where("acknowledged = ?", false).Count(&count).Error
	return count, err
}
