package model

import "time"

// PrintTaskStatus tracks a label printing run. The ids of a task stay PRINTED
// regardless of the task status.
type PrintTaskStatus string

const (
	PrintTaskPending   PrintTaskStatus = "PENDING"
	PrintTaskPrinting  PrintTaskStatus = "PRINTING"
	PrintTaskCompleted PrintTaskStatus = "COMPLETED"
	PrintTaskFailed    PrintTaskStatus = "FAILED"
)

// MixedEntityType is the scope of print tasks drawn from the unified pool.
const MixedEntityType = "mixed"

// PrintTask is a named batch of short IDs reserved for one label printing run.
type PrintTask struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:128;not null" json:"name"`
	EntityType  string          `gorm:"size:32;not null" json:"entityType"`
	Count       int             `gorm:"not null" json:"count"`
	Status      PrintTaskStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedBy   string          `gorm:"size:128" json:"createdBy,omitempty"`
	Notes       string          `gorm:"size:512" json:"notes,omitempty"`
	FilePath    string          `gorm:"size:512" json:"filePath,omitempty"`
	CreatedAt   time.Time       `gorm:"not null" json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}
