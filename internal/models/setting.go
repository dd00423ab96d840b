package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores runtime-configurable singletons (indicator settings, risk
// rules, auto-trade config, brokerage config) as keyed JSON documents.
type Setting struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Key string `gorm:"type:varchar(120);not null;uniqueIndex"`

	// JSON document; shape depends on the key, decoded by the settings service.
	Value datatypes.JSON `gorm:"type:jsonb;not null"`

	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime;index"`
}

func (Setting) TableName() string {
	return "settings"
}
