package models

import "time"

const (
	AlertTypePriceAbove   = "price_above"
	AlertTypePriceBelow   = "price_below"
	AlertTypeSignalChange = "signal_change"
)

// Alert is a user-defined trigger on a code. Price alerts deactivate after
// their first trigger; signal_change alerts stay active and dedupe on the
// (before, after) pair.
type Alert struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Code string `gorm:"type:varchar(20);not null;index"`

	AlertType      string   `gorm:"type:varchar(20);not null"`
	ConditionValue *float64 `gorm:"type:numeric"`
	IsActive       bool     `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Alert) TableName() string {
	return "alerts"
}
