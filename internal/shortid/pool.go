// Package shortid implements the global short ID pool: allocation of
// monotonically increasing label numbers, print tasks, and the binding
// lifecycle that ties each number to exactly one physical entity.
package shortid

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dcim-inventory-backend/config"
	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/model"
)

const insertBatchSize = 500

// Pool is the sole authority for short ID uniqueness, status and binding.
// Every mutating method runs in one transaction; the *Tx variants run inside
// a transaction owned by the caller.
type Pool struct {
	db    *gorm.DB
	cfg   config.ShortIDConfig
	codec Codec
	log   zerolog.Logger
	now   func() time.Time
}

// NewPool creates a pool backed by db.
func NewPool(db *gorm.DB, cfg config.ShortIDConfig, log zerolog.Logger) *Pool {
	if cfg.MaxGenerateCount <= 0 {
		cfg.MaxGenerateCount = 10000
	}
	return &Pool{
		db:    db,
		cfg:   cfg,
		codec: NewCodec(cfg.DisplayPrefix, cfg.DisplayWidth),
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// DB returns the underlying database handle.
func (p *Pool) DB() *gorm.DB {
	return p.db
}

// Codec returns the display codec for labels and scan input.
func (p *Pool) Codec() Codec {
	return p.codec
}

// Generate allocates count fresh values, all greater than any value ever
// issued, with status GENERATED.
func (p *Pool) Generate(ctx context.Context, count int, batchNo *string) ([]model.ShortID, error) {
	if err := p.validateCount(count); err != nil {
		return nil, err
	}

	var records []model.ShortID
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		records, err = p.allocate(tx, count, func(r *model.ShortID) {
			r.Status = model.StatusGenerated
			r.BatchNo = batchNo
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	p.log.Info().
		Int("count", count).
		Int64("first", records[0].Value).
		Int64("last", records[len(records)-1].Value).
		Msg("short ids generated")
	return records, nil
}

func (p *Pool) validateCount(count int) error {
	if count <= 0 {
		return apperr.InvalidField("count", "must be positive")
	}
	if count > p.cfg.MaxGenerateCount {
		return apperr.InvalidField("count", fmt.Sprintf("must not exceed %d", p.cfg.MaxGenerateCount))
	}
	return nil
}

// allocate advances the counter row by count and inserts the new records.
// The UPDATE takes the row lock, so concurrent allocations queue behind it
// and each observes the committed value of the previous one.
func (p *Pool) allocate(tx *gorm.DB, count int, init func(*model.ShortID)) ([]model.ShortID, error) {
	res := tx.Model(&model.ShortIDCounter{}).
		Where("name = ?", model.GlobalCounter).
		UpdateColumn("value", gorm.Expr("value + ?", count))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to advance short id counter: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("short id counter %q is not seeded", model.GlobalCounter)
	}

	var counter model.ShortIDCounter
	if err := tx.Where("name = ?", model.GlobalCounter).First(&counter).Error; err != nil {
		return nil, fmt.Errorf("failed to read short id counter: %w", err)
	}

	first := counter.Value - int64(count) + 1
	held, err := inventoryMaxFrom(tx, first)
	if err != nil {
		return nil, err
	}
	if held >= first {
		// Labels already on inventory rows outside the pool are never reissued.
		first = held + 1
		counter.Value = held + int64(count)
		if err := tx.Model(&model.ShortIDCounter{}).
			Where("name = ?", model.GlobalCounter).
			Update("value", counter.Value).Error; err != nil {
			return nil, fmt.Errorf("failed to move short id counter past %d: %w", held, err)
		}
	}

	now := p.now()
	records := make([]model.ShortID, count)
	for i := range records {
		records[i] = model.ShortID{Value: first + int64(i), CreatedAt: now}
		init(&records[i])
	}

	if err := tx.CreateInBatches(&records, insertBatchSize).Error; err != nil {
		return nil, fmt.Errorf("failed to insert short ids %d-%d: %w", first, counter.Value, err)
	}
	return records, nil
}

// raiseCounter keeps the counter at or above a value inserted out of band.
func raiseCounter(tx *gorm.DB, value int64) error {
	if err := tx.Model(&model.ShortIDCounter{}).
		Where("name = ? AND value < ?", model.GlobalCounter, value).
		Update("value", value).Error; err != nil {
		return fmt.Errorf("failed to raise short id counter to %d: %w", value, err)
	}
	return nil
}

// RaiseCounterTx is raiseCounter for callers that insert pool records themselves.
func RaiseCounterTx(tx *gorm.DB, value int64) error {
	return raiseCounter(tx, value)
}

// Get returns the pool record for value.
func (p *Pool) Get(ctx context.Context, value int64) (model.ShortID, error) {
	return findRecord(p.db.WithContext(ctx), value)
}

func findRecord(tx *gorm.DB, value int64) (model.ShortID, error) {
	var rec model.ShortID
	if err := tx.Where("value = ?", value).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rec, apperr.ShortIDNotFound(value)
		}
		return rec, fmt.Errorf("failed to load short id %d: %w", value, err)
	}
	return rec, nil
}

func validateBinding(value int64, entityType model.EntityType, entityID string) error {
	if value < 1 {
		return apperr.InvalidField("shortId", "must be a positive integer")
	}
	if !entityType.Valid() {
		return apperr.InvalidField("entityType", fmt.Sprintf("unknown entity type %q", entityType))
	}
	if entityID == "" {
		return apperr.InvalidField("entityId", "must not be empty")
	}
	return nil
}

// Bind ties value to an entity. Binding the same entity twice is a no-op;
// binding an id held by another entity is a Conflict; a cancelled id can
// never be bound.
func (p *Pool) Bind(ctx context.Context, value int64, entityType model.EntityType, entityID string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return p.BindTx(tx, value, entityType, entityID)
	})
}

// BindTx is Bind inside the caller's transaction.
func (p *Pool) BindTx(tx *gorm.DB, value int64, entityType model.EntityType, entityID string) error {
	if err := validateBinding(value, entityType, entityID); err != nil {
		return err
	}

	// Compare-and-swap: only a still-bindable record is updated. A concurrent
	// binder that loses the race sees zero rows and falls through to classify.
	res := tx.Model(&model.ShortID{}).
		Where("value = ? AND status IN ?", value, model.BindableStatuses).
		Updates(map[string]any{
			"status":      model.StatusBound,
			"entity_type": entityType,
			"entity_id":   entityID,
			"bound_at":    p.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to bind short id %d: %w", value, res.Error)
	}
	if res.RowsAffected == 1 {
		p.log.Info().
			Int64("short_id", value).
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Msg("short id bound")
		return nil
	}

	return classifyBindMiss(tx, value, entityType, entityID)
}

func classifyBindMiss(tx *gorm.DB, value int64, entityType model.EntityType, entityID string) error {
	rec, err := findRecord(tx, value)
	if err != nil {
		return err
	}

	id := strconv.FormatInt(value, 10)
	switch rec.Status {
	case model.StatusBound:
		if rec.EntityType == entityType && rec.EntityID != nil && *rec.EntityID == entityID {
			return nil
		}
		return &apperr.ConflictError{
			Resource: "short id",
			ID:       id,
			Message:  fmt.Sprintf("already bound to %s %s", rec.EntityType, deref(rec.EntityID)),
		}
	case model.StatusCancelled:
		return &apperr.InvalidStateError{Resource: "short id", ID: id, State: string(rec.Status), Op: "bind"}
	default:
		return &apperr.ConflictError{Resource: "short id", ID: id, Message: "modified concurrently"}
	}
}

// BindOrCreate binds value, creating it as BOUND if it was never generated.
// This path exists for callers that predate the pool; every creation is
// logged as an audit warning. When disabled by configuration it behaves
// exactly like Bind.
func (p *Pool) BindOrCreate(ctx context.Context, value int64, entityType model.EntityType, entityID string) (bool, error) {
	var created bool
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = p.BindOrCreateTx(tx, value, entityType, entityID)
		return err
	})
	return created, err
}

// BindOrCreateTx is BindOrCreate inside the caller's transaction.
func (p *Pool) BindOrCreateTx(tx *gorm.DB, value int64, entityType model.EntityType, entityID string) (bool, error) {
	if err := validateBinding(value, entityType, entityID); err != nil {
		return false, err
	}
	if !p.cfg.BindOrCreateAllowed() {
		return false, p.BindTx(tx, value, entityType, entityID)
	}

	holderType, holderID, err := inventoryHolder(tx, value, entityType, entityID)
	if err != nil {
		return false, err
	}
	if holderID != "" {
		return false, &apperr.ConflictError{
			Resource: "short id",
			ID:       strconv.FormatInt(value, 10),
			Message:  fmt.Sprintf("already on %s %s", holderType, holderID),
		}
	}

	now := p.now()
	rec := model.ShortID{
		Value:      value,
		EntityType: entityType,
		EntityID:   &entityID,
		Status:     model.StatusBound,
		BoundAt:    &now,
		Notes:      "created on bind",
		CreatedAt:  now,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create short id %d: %w", value, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, p.BindTx(tx, value, entityType, entityID)
	}

	if err := raiseCounter(tx, value); err != nil {
		return false, err
	}
	p.log.Warn().
		Int64("short_id", value).
		Str("entity_type", string(entityType)).
		Str("entity_id", entityID).
		Msg("short id created on bind without prior allocation")
	return true, nil
}

// Cancel permanently retires an unbound id.
func (p *Pool) Cancel(ctx context.Context, value int64, reason string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ShortID{}).
			Where("value = ? AND status IN ?", value, model.BindableStatuses).
			Updates(map[string]any{
				"status": model.StatusCancelled,
				"notes":  reason,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to cancel short id %d: %w", value, res.Error)
		}
		if res.RowsAffected == 1 {
			p.log.Info().Int64("short_id", value).Str("reason", reason).Msg("short id cancelled")
			return nil
		}

		rec, err := findRecord(tx, value)
		if err != nil {
			return err
		}
		return &apperr.InvalidStateError{
			Resource: "short id",
			ID:       strconv.FormatInt(value, 10),
			State:    string(rec.Status),
			Op:       "cancel",
		}
	})
}

// Retire cancels an id as part of its owning entity's deletion. The id must
// be bound to exactly that entity.
func (p *Pool) Retire(ctx context.Context, value int64, entityType model.EntityType, entityID, reason string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return p.RetireTx(tx, value, entityType, entityID, reason)
	})
}

// RetireTx is Retire inside the caller's transaction.
func (p *Pool) RetireTx(tx *gorm.DB, value int64, entityType model.EntityType, entityID, reason string) error {
	if err := validateBinding(value, entityType, entityID); err != nil {
		return err
	}

	notes := fmt.Sprintf("retired from %s %s", entityType, entityID)
	if reason != "" {
		notes += ": " + reason
	}
	res := tx.Model(&model.ShortID{}).
		Where("value = ? AND status = ? AND entity_type = ? AND entity_id = ?", value, model.StatusBound, entityType, entityID).
		Updates(map[string]any{
			"status":    model.StatusCancelled,
			"entity_id": nil,
			"notes":     notes,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to retire short id %d: %w", value, res.Error)
	}
	if res.RowsAffected == 1 {
		p.log.Info().Int64("short_id", value).Str("entity_id", entityID).Msg("short id retired")
		return nil
	}

	rec, err := findRecord(tx, value)
	if err != nil {
		return err
	}
	id := strconv.FormatInt(value, 10)
	if rec.Status == model.StatusBound {
		return &apperr.ConflictError{
			Resource: "short id",
			ID:       id,
			Message:  fmt.Sprintf("bound to %s %s, not %s %s", rec.EntityType, deref(rec.EntityID), entityType, entityID),
		}
	}
	return &apperr.InvalidStateError{Resource: "short id", ID: id, State: string(rec.Status), Op: "retire"}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
