package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the UUID primary key and timestamps shared by inventory rows.
type Base struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not supply an id.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// DataCenter is the root of the physical location hierarchy.
type DataCenter struct {
	Base
	Name    string `gorm:"size:128;not null" json:"name"`
	ShortID *int64 `gorm:"uniqueIndex" json:"shortId,omitempty"`
}

// Room represents a room inside a data center.
type Room struct {
	Base
	DataCenterID string `gorm:"size:64;index;not null" json:"dataCenterId"`
	Name         string `gorm:"size:128;not null" json:"name"`
	ShortID      *int64 `gorm:"uniqueIndex" json:"shortId,omitempty"`
}

// Cabinet represents a rack cabinet inside a room.
type Cabinet struct {
	Base
	RoomID  string `gorm:"size:64;index;not null" json:"roomId"`
	Name    string `gorm:"size:128;not null" json:"name"`
	ShortID *int64 `gorm:"uniqueIndex" json:"shortId,omitempty"`
}

// Device represents a device mounted in a cabinet.
type Device struct {
	Base
	CabinetID string `gorm:"size:64;index;not null" json:"cabinetId"`
	Name      string `gorm:"size:128;not null" json:"name"`
	ShortID   *int64 `gorm:"uniqueIndex" json:"shortId,omitempty"`
}

// Panel represents a port panel (line card, patch panel face) of a device.
type Panel struct {
	Base
	DeviceID string `gorm:"size:64;index;not null" json:"deviceId"`
	Name     string `gorm:"size:128;not null" json:"name"`
	ShortID  *int64 `gorm:"uniqueIndex" json:"shortId,omitempty"`
}

// PortStatus is the occupancy state of a port.
type PortStatus string

const (
	PortAvailable PortStatus = "AVAILABLE"
	PortOccupied  PortStatus = "OCCUPIED"
	PortReserved  PortStatus = "RESERVED"
	PortFaulty    PortStatus = "FAULTY"
)

// Port is a single physical port on a panel.
type Port struct {
	Base
	PanelID string     `gorm:"size:64;index;not null" json:"panelId"`
	Name    string     `gorm:"size:64;not null" json:"name"`
	Number  int        `json:"number"`
	Status  PortStatus `gorm:"size:16;not null" json:"status"`
	ShortID *int64     `gorm:"uniqueIndex" json:"shortId,omitempty"`
}
