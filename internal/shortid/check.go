package shortid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"dcim-inventory-backend/internal/model"
)

// UsedBy says who holds a value. The set is closed; callers switch on it.
type UsedBy string

const (
	UsedByNone      UsedBy = "none"      // free
	UsedByPool      UsedBy = "pool"      // reserved, not bound yet
	UsedByEntity    UsedBy = "entity"    // bound to a live entity
	UsedByCancelled UsedBy = "cancelled" // permanently retired
)

// Sources of a check answer.
const (
	SourcePool      = "pool"
	SourceInventory = "inventory"
)

// Check is the answer to "is this value taken, and by what".
type Check struct {
	Exists     bool             `json:"exists"`
	UsedBy     UsedBy           `json:"usedBy"`
	EntityType model.EntityType `json:"entityType,omitempty"`
	Details    *CheckDetails    `json:"details,omitempty"`
}

// CheckDetails carries the record behind a positive answer.
type CheckDetails struct {
	Source      string              `json:"source"`
	Status      model.ShortIDStatus `json:"status,omitempty"`
	EntityID    *string             `json:"entityId,omitempty"`
	BatchNo     *string             `json:"batchNo,omitempty"`
	PrintTaskID *int64              `json:"printTaskId,omitempty"`
	BoundAt     *time.Time          `json:"boundAt,omitempty"`
	PrintedAt   *time.Time          `json:"printedAt,omitempty"`
	CreatedAt   *time.Time          `json:"createdAt,omitempty"`
	Notes       string              `json:"notes,omitempty"`
}

// inventoryTables lists the tables that may reference a value before
// reconciliation has brought it into the pool.
var inventoryTables = []struct {
	table      string
	entityType model.EntityType
}{
	{"data_centers", model.EntityDataCenter},
	{"rooms", model.EntityRoom},
	{"cabinets", model.EntityCabinet},
	{"devices", model.EntityDevice},
	{"panels", model.EntityPanel},
	{"ports", model.EntityPort},
	{"cable_endpoints", model.EntityCable},
}

// inventoryMaxSQL finds the highest value at or above @from that an
// inventory row carries.
var inventoryMaxSQL = func() string {
	parts := make([]string, len(inventoryTables))
	for i, it := range inventoryTables {
		parts[i] = fmt.Sprintf("SELECT MAX(short_id) AS v FROM %s WHERE short_id >= @from", it.table)
	}
	return "SELECT COALESCE(MAX(v), 0) FROM (" + strings.Join(parts, " UNION ALL ") + ") AS held"
}()

func inventoryMaxFrom(tx *gorm.DB, from int64) (int64, error) {
	var held int64
	if err := tx.Raw(inventoryMaxSQL, map[string]any{"from": from}).Scan(&held).Error; err != nil {
		return 0, fmt.Errorf("failed to scan inventory for short ids from %d: %w", from, err)
	}
	return held, nil
}

// inventoryHolder returns an inventory row other than the binding entity
// that already carries value. Ends of the same cable share a label.
func inventoryHolder(tx *gorm.DB, value int64, entityType model.EntityType, entityID string) (model.EntityType, string, error) {
	for _, it := range inventoryTables {
		q := tx.Table(it.table).Where("short_id = ?", value)
		if it.entityType == entityType {
			if entityType == model.EntityCable {
				q = q.Where("cable_id NOT IN (?)", tx.Table("cable_endpoints").Select("cable_id").Where("id = ?", entityID))
			} else {
				q = q.Where("id <> ?", entityID)
			}
		}
		var ids []string
		if err := q.Limit(1).Pluck("id", &ids).Error; err != nil {
			return "", "", fmt.Errorf("failed to check %s for short id %d: %w", it.table, value, err)
		}
		if len(ids) > 0 {
			return it.entityType, ids[0], nil
		}
	}
	return "", "", nil
}

// CheckExists reports whether value is free, reserved, bound or retired.
func (p *Pool) CheckExists(ctx context.Context, value int64) (Check, error) {
	return p.CheckTx(p.db.WithContext(ctx), value)
}

// CheckTx is CheckExists inside the caller's transaction.
func (p *Pool) CheckTx(tx *gorm.DB, value int64) (Check, error) {
	var rec model.ShortID
	err := tx.Where("value = ?", value).First(&rec).Error
	switch {
	case err == nil:
		return checkFromRecord(rec), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Check{}, fmt.Errorf("failed to check short id %d: %w", value, err)
	}

	for _, it := range inventoryTables {
		var ids []string
		if err := tx.Table(it.table).Where("short_id = ?", value).Limit(1).Pluck("id", &ids).Error; err != nil {
			return Check{}, fmt.Errorf("failed to check %s for short id %d: %w", it.table, value, err)
		}
		if len(ids) > 0 {
			return Check{
				Exists:     true,
				UsedBy:     UsedByEntity,
				EntityType: it.entityType,
				Details:    &CheckDetails{Source: SourceInventory, EntityID: &ids[0]},
			}, nil
		}
	}

	return Check{Exists: false, UsedBy: UsedByNone}, nil
}

func checkFromRecord(rec model.ShortID) Check {
	created := rec.CreatedAt
	c := Check{
		Exists: true,
		Details: &CheckDetails{
			Source:      SourcePool,
			Status:      rec.Status,
			EntityID:    rec.EntityID,
			BatchNo:     rec.BatchNo,
			PrintTaskID: rec.PrintTaskID,
			BoundAt:     rec.BoundAt,
			PrintedAt:   rec.PrintedAt,
			CreatedAt:   &created,
			Notes:       rec.Notes,
		},
	}
	switch rec.Status {
	case model.StatusBound:
		c.UsedBy = UsedByEntity
		c.EntityType = rec.EntityType
	case model.StatusCancelled:
		c.UsedBy = UsedByCancelled
	default:
		c.UsedBy = UsedByPool
	}
	return c
}
