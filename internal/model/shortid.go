package model

import "time"

// EntityType names the kind of physical entity a short ID is bound to.
// The namespace is global: one value identifies at most one entity of any type.
type EntityType string

const (
	EntityDataCenter EntityType = "DATA_CENTER"
	EntityRoom       EntityType = "ROOM"
	EntityCabinet    EntityType = "CABINET"
	EntityDevice     EntityType = "DEVICE"
	EntityPanel      EntityType = "PANEL"
	EntityPort       EntityType = "PORT"
	EntityCable      EntityType = "CABLE"
)

// EntityTypes lists every bindable entity type in display order.
var EntityTypes = []EntityType{
	EntityDataCenter, EntityRoom, EntityCabinet, EntityDevice, EntityPanel, EntityPort, EntityCable,
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ShortIDStatus is a state in the short ID lifecycle.
//
//	GENERATED -> PRINTED -> BOUND
//	GENERATED ----------> BOUND
//	GENERATED|PRINTED --> CANCELLED
type ShortIDStatus string

const (
	StatusGenerated ShortIDStatus = "GENERATED"
	StatusPrinted   ShortIDStatus = "PRINTED"
	StatusBound     ShortIDStatus = "BOUND"
	StatusCancelled ShortIDStatus = "CANCELLED"
)

// BindableStatuses are the states from which a value may still be bound or cancelled.
var BindableStatuses = []ShortIDStatus{StatusGenerated, StatusPrinted}

// ShortID is one record of the global short ID pool. Records are never deleted.
type ShortID struct {
	Value       int64         `gorm:"primaryKey;autoIncrement:false" json:"value"`
	EntityType  EntityType    `gorm:"size:32;index" json:"entityType,omitempty"`
	EntityID    *string       `gorm:"size:64;index" json:"entityId,omitempty"`
	Status      ShortIDStatus `gorm:"size:16;not null;index" json:"status"`
	BatchNo     *string       `gorm:"size:64;index" json:"batchNo,omitempty"`
	PrintTaskID *int64        `gorm:"index" json:"printTaskId,omitempty"`
	BoundAt     *time.Time    `json:"boundAt,omitempty"`
	PrintedAt   *time.Time    `json:"printedAt,omitempty"`
	Notes       string        `gorm:"size:512" json:"notes,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"createdAt"`
}

// TableName pins the table name used by raw queries.
func (ShortID) TableName() string { return "short_ids" }

// GlobalCounter is the name of the counter row backing the unified pool.
const GlobalCounter = "global"

// ShortIDCounter holds the highest value ever issued for a namespace.
type ShortIDCounter struct {
	Name  string `gorm:"primaryKey;size:32"`
	Value int64  `gorm:"not null"`
}

func (ShortIDCounter) TableName() string { return "short_id_counters" }
