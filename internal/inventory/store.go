// Package inventory creates the physical location hierarchy and resolves a
// port's full location chain.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/model"
	"dcim-inventory-backend/internal/shortid"
)

// Store writes inventory rows and binds their short IDs in the same
// transaction.
type Store struct {
	db   *gorm.DB
	pool *shortid.Pool
	log  zerolog.Logger
}

// NewStore creates a Store.
func NewStore(db *gorm.DB, pool *shortid.Pool, log zerolog.Logger) *Store {
	return &Store{db: db, pool: pool, log: log}
}

// CreateDataCenter creates a data center.
func (s *Store) CreateDataCenter(ctx context.Context, name string, shortID *int64) (model.DataCenter, error) {
	row := model.DataCenter{Name: name, ShortID: shortID}
	err := s.create(ctx, model.EntityDataCenter, name, shortID, nil, &row, func() string { return row.ID })
	return row, err
}

// CreateRoom creates a room in a data center.
func (s *Store) CreateRoom(ctx context.Context, dataCenterID, name string, shortID *int64) (model.Room, error) {
	row := model.Room{DataCenterID: dataCenterID, Name: name, ShortID: shortID}
	parent := requireRow(&model.DataCenter{}, "data center", dataCenterID)
	err := s.create(ctx, model.EntityRoom, name, shortID, parent, &row, func() string { return row.ID })
	return row, err
}

// CreateCabinet creates a cabinet in a room.
func (s *Store) CreateCabinet(ctx context.Context, roomID, name string, shortID *int64) (model.Cabinet, error) {
	row := model.Cabinet{RoomID: roomID, Name: name, ShortID: shortID}
	parent := requireRow(&model.Room{}, "room", roomID)
	err := s.create(ctx, model.EntityCabinet, name, shortID, parent, &row, func() string { return row.ID })
	return row, err
}

// CreateDevice creates a device in a cabinet.
func (s *Store) CreateDevice(ctx context.Context, cabinetID, name string, shortID *int64) (model.Device, error) {
	row := model.Device{CabinetID: cabinetID, Name: name, ShortID: shortID}
	parent := requireRow(&model.Cabinet{}, "cabinet", cabinetID)
	err := s.create(ctx, model.EntityDevice, name, shortID, parent, &row, func() string { return row.ID })
	return row, err
}

// CreatePanel creates a panel on a device.
func (s *Store) CreatePanel(ctx context.Context, deviceID, name string, shortID *int64) (model.Panel, error) {
	row := model.Panel{DeviceID: deviceID, Name: name, ShortID: shortID}
	parent := requireRow(&model.Device{}, "device", deviceID)
	err := s.create(ctx, model.EntityPanel, name, shortID, parent, &row, func() string { return row.ID })
	return row, err
}

// CreatePort creates an AVAILABLE port on a panel.
func (s *Store) CreatePort(ctx context.Context, panelID, name string, number int, shortID *int64) (model.Port, error) {
	row := model.Port{PanelID: panelID, Name: name, Number: number, Status: model.PortAvailable, ShortID: shortID}
	parent := requireRow(&model.Panel{}, "panel", panelID)
	err := s.create(ctx, model.EntityPort, name, shortID, parent, &row, func() string { return row.ID })
	return row, err
}

func requireRow(dest any, resource, id string) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		if id == "" {
			return apperr.InvalidField(resource+"Id", "must not be empty")
		}
		if err := tx.Select("id").First(dest, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperr.NotFoundError{Resource: resource, ID: id}
			}
			return fmt.Errorf("failed to load %s %s: %w", resource, id, err)
		}
		return nil
	}
}

// create validates the parent and the requested short ID, inserts row and
// binds the short ID to it, all in one transaction.
func (s *Store) create(ctx context.Context, entityType model.EntityType, name string, shortID *int64, parent func(*gorm.DB) error, row any, idOf func() string) error {
	if name == "" {
		return apperr.InvalidField("name", "must not be empty")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if parent != nil {
			if err := parent(tx); err != nil {
				return err
			}
		}
		if shortID != nil {
			if err := s.checkAvailable(tx, *shortID); err != nil {
				return err
			}
		}

		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", entityType, err)
		}

		if shortID != nil {
			if _, err := s.pool.BindOrCreateTx(tx, *shortID, entityType, idOf()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	ev := s.log.Info().Str("entity_type", string(entityType)).Str("id", idOf())
	if shortID != nil {
		ev = ev.Int64("short_id", *shortID)
	}
	ev.Msg("inventory entity created")
	return nil
}

// checkAvailable turns the pool's view of a value into a request
// validation error before anything is written.
func (s *Store) checkAvailable(tx *gorm.DB, value int64) error {
	check, err := s.pool.CheckTx(tx, value)
	if err != nil {
		return err
	}

	switch check.UsedBy {
	case shortid.UsedByEntity:
		return &apperr.ConflictError{
			Resource: "short id",
			ID:       fmt.Sprintf("%d", value),
			Message:  fmt.Sprintf("already used by a %s", check.EntityType),
		}
	case shortid.UsedByCancelled:
		return &apperr.InvalidStateError{
			Resource: "short id",
			ID:       fmt.Sprintf("%d", value),
			State:    string(model.StatusCancelled),
			Op:       "bind",
		}
	}
	return nil
}
