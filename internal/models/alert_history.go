package models

import "time"

// AlertHistory is one fired alert occurrence.
type AlertHistory struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	AlertID uint64 `gorm:"not null;index"`
	Code    string `gorm:"type:varchar(20);not null;index"`

	AlertType      string `gorm:"type:varchar(20);not null"`
	Message        string `gorm:"type:text;not null"`
	SignalBefore   string `gorm:"type:varchar(10)"`
	SignalAfter    string `gorm:"type:varchar(10)"`
	PriceAtTrigger *float64

	IsRead      bool      `gorm:"not null;default:false;index"`
	TriggeredAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (AlertHistory) TableName() string {
	return "alert_history"
}
