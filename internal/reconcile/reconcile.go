// Package reconcile merges the legacy short ID allocation table into the
// unified pool.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"dcim-inventory-backend/internal/model"
	"dcim-inventory-backend/internal/shortid"
)

const batchSize = 500

// legacyTypes maps lower-cased legacy type strings to pool entity types.
var legacyTypes = map[string]model.EntityType{
	"data_center": model.EntityDataCenter,
	"datacenter":  model.EntityDataCenter,
	"room":        model.EntityRoom,
	"cabinet":     model.EntityCabinet,
	"device":      model.EntityDevice,
	"panel":       model.EntityPanel,
	"port":        model.EntityPort,
	"cable":       model.EntityCable,
}

// NormalizeEntityType maps a legacy type string onto the entity type enum.
// Unknown strings come back upper-cased with ok=false.
func NormalizeEntityType(legacy string) (model.EntityType, bool) {
	s := strings.TrimSpace(legacy)
	if t, ok := legacyTypes[strings.ToLower(s)]; ok {
		return t, true
	}
	return model.EntityType(strings.ToUpper(s)), false
}

// Options controls a reconciliation pass.
type Options struct {
	// DryRun computes the report without writing anything.
	DryRun bool
}

// Conflict is one value on which the legacy table and the pool disagree.
type Conflict struct {
	ShortID        int64               `json:"shortId"`
	LegacyType     model.EntityType    `json:"legacyType"`
	LegacyEntityID *string             `json:"legacyEntityId,omitempty"`
	PoolType       model.EntityType    `json:"poolType,omitempty"`
	PoolEntityID   *string             `json:"poolEntityId,omitempty"`
	PoolStatus     model.ShortIDStatus `json:"poolStatus"`
	Reason         string              `json:"reason"`
}

// Report summarizes a pass. Conflicts lists only disagreements left for a
// human; Adopted lists the ones resolved by taking the legacy reference.
type Report struct {
	DryRun       bool       `json:"dryRun"`
	Scanned      int        `json:"scanned"`
	Created      int        `json:"created"`
	Updated      int        `json:"updated"`
	Skipped      int        `json:"skipped"`
	Conflicts    []Conflict `json:"conflicts"`
	Adopted      []Conflict `json:"adopted"`
	UnknownTypes []string   `json:"unknownTypes"`
}

// Writes is the number of records the pass created or changed.
func (r Report) Writes() int {
	return r.Created + r.Updated
}

// Tool runs reconciliation passes.
type Tool struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewTool creates a Tool.
func NewTool(db *gorm.DB, log zerolog.Logger) *Tool {
	return &Tool{db: db, log: log}
}

// Run processes every legacy row in ascending id order. A real pass runs in
// one transaction, so it either lands completely or not at all. Running it
// again afterwards writes nothing and reports the same conflicts.
func (t *Tool) Run(ctx context.Context, opts Options) (Report, error) {
	report := Report{DryRun: opts.DryRun, Conflicts: []Conflict{}, Adopted: []Conflict{}, UnknownTypes: []string{}}
	unknown := map[string]struct{}{}

	pass := func(tx *gorm.DB) error {
		var highest int64
		var rows []model.LegacyShortIDAllocation
		res := tx.FindInBatches(&rows, batchSize, func(batch *gorm.DB, _ int) error {
			ids := make([]int64, len(rows))
			for i, r := range rows {
				ids[i] = r.ID
			}
			var existing []model.ShortID
			if err := tx.Where("value IN ?", ids).Find(&existing).Error; err != nil {
				return fmt.Errorf("failed to load pool records: %w", err)
			}
			byValue := make(map[int64]model.ShortID, len(existing))
			for _, rec := range existing {
				byValue[rec.Value] = rec
			}

			for _, row := range rows {
				entityType, known := NormalizeEntityType(row.EntityType)
				if !known {
					unknown[string(entityType)] = struct{}{}
				}
				report.Scanned++

				rec, found := byValue[row.ID]
				if !found {
					if !opts.DryRun {
						if err := createRecord(tx, row, entityType); err != nil {
							return err
						}
					}
					highest = max(highest, row.ID)
					report.Created++
					continue
				}

				conflict, adopt := compare(row, entityType, rec)
				switch {
				case conflict == nil:
					report.Skipped++
				case adopt:
					if !opts.DryRun {
						if err := adoptReference(tx, row, entityType); err != nil {
							return err
						}
					}
					report.Updated++
					report.Adopted = append(report.Adopted, *conflict)
				default:
					report.Conflicts = append(report.Conflicts, *conflict)
				}
			}
			return nil
		})
		if res.Error != nil {
			return fmt.Errorf("failed to scan legacy allocations: %w", res.Error)
		}

		if highest > 0 && !opts.DryRun {
			return shortid.RaiseCounterTx(tx, highest)
		}
		return nil
	}

	var err error
	if opts.DryRun {
		err = pass(t.db.WithContext(ctx))
	} else {
		err = t.db.WithContext(ctx).Transaction(pass)
	}
	if err != nil {
		return Report{}, err
	}

	for s := range unknown {
		report.UnknownTypes = append(report.UnknownTypes, s)
	}
	sort.Strings(report.UnknownTypes)

	t.log.Info().
		Bool("dry_run", opts.DryRun).
		Int("scanned", report.Scanned).
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("skipped", report.Skipped).
		Int("conflicts", len(report.Conflicts)).
		Msg("legacy reconciliation finished")
	for _, c := range report.Conflicts {
		t.log.Warn().Int64("short_id", c.ShortID).Str("reason", c.Reason).Msg("reconciliation conflict")
	}
	return report, nil
}

// compare classifies an existing pool record against its legacy row. It
// returns nil when they agree, and adopt=true when the pool side is still
// unbound and may take the legacy reference.
func compare(row model.LegacyShortIDAllocation, legacyType model.EntityType, rec model.ShortID) (*Conflict, bool) {
	c := &Conflict{
		ShortID:        row.ID,
		LegacyType:     legacyType,
		LegacyEntityID: row.EntityID,
		PoolType:       rec.EntityType,
		PoolEntityID:   rec.EntityID,
		PoolStatus:     rec.Status,
	}

	hasRef := row.EntityID != nil && *row.EntityID != ""
	switch rec.Status {
	case model.StatusBound:
		if !hasRef {
			c.Reason = "pool record is bound but the legacy row has no entity reference"
			return c, false
		}
		if rec.EntityType == legacyType && rec.EntityID != nil && *rec.EntityID == *row.EntityID {
			return nil, false
		}
		c.Reason = "pool record is bound to a different entity"
		return c, false
	case model.StatusCancelled:
		if !hasRef {
			return nil, false
		}
		c.Reason = "pool record is cancelled"
		return c, false
	default:
		if !hasRef {
			return nil, false
		}
		c.Reason = "pool record is unbound; adopting legacy reference"
		return c, true
	}
}

func createRecord(tx *gorm.DB, row model.LegacyShortIDAllocation, entityType model.EntityType) error {
	rec := model.ShortID{
		Value:      row.ID,
		EntityType: entityType,
		Status:     model.StatusGenerated,
		Notes:      "migrated from legacy allocation",
		CreatedAt:  row.CreatedAt,
	}
	if row.EntityID != nil && *row.EntityID != "" {
		boundAt := row.CreatedAt
		rec.EntityID = row.EntityID
		rec.Status = model.StatusBound
		rec.BoundAt = &boundAt
	}
	if err := tx.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create short id %d from legacy row: %w", row.ID, err)
	}
	return nil
}

func adoptReference(tx *gorm.DB, row model.LegacyShortIDAllocation, entityType model.EntityType) error {
	res := tx.Model(&model.ShortID{}).
		Where("value = ? AND status IN ?", row.ID, model.BindableStatuses).
		Updates(map[string]any{
			"status":      model.StatusBound,
			"entity_type": entityType,
			"entity_id":   *row.EntityID,
			"bound_at":    row.CreatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to adopt legacy reference for short id %d: %w", row.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("short id %d changed during reconciliation", row.ID)
	}
	return nil
}
