package model

import "time"

// LegacyShortIDAllocation is a row of the pre-pool allocation table. The
// primary key is the short ID value itself; EntityType is free-form mixed
// case ("Room", "cabinet", ...).
type LegacyShortIDAllocation struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false"`
	EntityType string    `gorm:"size:32"`
	EntityID   *string   `gorm:"size:64"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (LegacyShortIDAllocation) TableName() string { return "legacy_short_id_allocations" }
