package models

import "time"

// Stock is a watch-list entry. One row per tracked code.
type Stock struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Code string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name string `gorm:"type:varchar(120);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Stock) TableName() string {
	return "stocks"
}
