// Package cabling resolves scanned cable labels and connects cable ends to
// ports.
package cabling

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/inventory"
	"dcim-inventory-backend/internal/model"
	"dcim-inventory-backend/internal/shortid"
)

// Kind is the outcome of resolving a scanned cable label.
type Kind string

const (
	// KindNew means the label identifies no cable yet.
	KindNew Kind = "new"
	// KindContinuation means the label is on a cable that already exists.
	KindContinuation Kind = "continuation"
)

// EndpointView is an endpoint with the location of the port it sits on.
type EndpointView struct {
	model.CableEndpoint
	Location *inventory.Chain `json:"location,omitempty"`
}

// Resolution describes what a scanned label refers to. Cable and Endpoints
// are set only for a continuation.
type Resolution struct {
	Kind      Kind           `json:"kind"`
	ShortID   int64          `json:"shortId"`
	Cable     *model.Cable   `json:"cable,omitempty"`
	Endpoints []EndpointView `json:"endpoints,omitempty"`
}

// Resolver classifies scanned cable labels.
type Resolver struct {
	db   *gorm.DB
	pool *shortid.Pool
}

// NewResolver creates a Resolver.
func NewResolver(db *gorm.DB, pool *shortid.Pool) *Resolver {
	return &Resolver{db: db, pool: pool}
}

// ParseToken normalizes scanner or keyboard input to a short ID value.
func (r *Resolver) ParseToken(token string) (int64, error) {
	return r.pool.Codec().Parse(token)
}

// ResolveToken parses token and resolves it.
func (r *Resolver) ResolveToken(ctx context.Context, token string) (Resolution, error) {
	value, err := r.ParseToken(token)
	if err != nil {
		return Resolution{}, err
	}
	return r.Resolve(ctx, value)
}

// Resolve classifies value without writing anything.
func (r *Resolver) Resolve(ctx context.Context, value int64) (Resolution, error) {
	return r.ResolveTx(r.db.WithContext(ctx), value)
}

// ResolveTx is Resolve inside the caller's transaction.
//
// An endpoint carrying the value wins over the pool, so cables labelled
// before the pool existed still resolve. Otherwise the pool decides: a value
// bound to anything but a cable is a wrong entity type, a value bound to a
// cable with no endpoint left is a conflict, a cancelled value is rejected,
// and anything else is a new cable.
func (r *Resolver) ResolveTx(tx *gorm.DB, value int64) (Resolution, error) {
	if value < 1 {
		return Resolution{}, &apperr.FormatError{Token: strconv.FormatInt(value, 10), Reason: "must be a positive integer"}
	}

	var carrier model.CableEndpoint
	err := tx.Where("short_id = ?", value).Order("end_type ASC").First(&carrier).Error
	switch {
	case err == nil:
		return r.continuation(tx, value, carrier.CableID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Resolution{}, fmt.Errorf("failed to look up endpoints for short id %d: %w", value, err)
	}

	check, err := r.pool.CheckTx(tx, value)
	if err != nil {
		return Resolution{}, err
	}

	id := strconv.FormatInt(value, 10)
	switch check.UsedBy {
	case shortid.UsedByEntity:
		if check.EntityType != model.EntityCable {
			return Resolution{}, &apperr.WrongEntityTypeError{
				ShortID:  value,
				Expected: string(model.EntityCable),
				Actual:   string(check.EntityType),
			}
		}
		return Resolution{}, &apperr.ConflictError{Resource: "short id", ID: id, Message: "bound to a cable endpoint that no longer exists"}
	case shortid.UsedByCancelled:
		return Resolution{}, &apperr.InvalidStateError{Resource: "short id", ID: id, State: string(model.StatusCancelled), Op: "connect"}
	}
	return Resolution{Kind: KindNew, ShortID: value}, nil
}

func (r *Resolver) continuation(tx *gorm.DB, value int64, cableID string) (Resolution, error) {
	cable, views, err := loadCable(tx, cableID)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Kind: KindContinuation, ShortID: value, Cable: &cable, Endpoints: views}, nil
}

// loadCable returns a cable with its endpoints ordered by end type, each
// with the location of a port that still exists.
func loadCable(tx *gorm.DB, cableID string) (model.Cable, []EndpointView, error) {
	var cable model.Cable
	err := tx.Preload("Endpoints", func(db *gorm.DB) *gorm.DB {
		return db.Order("end_type ASC")
	}).First(&cable, "id = ?", cableID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cable, nil, &apperr.NotFoundError{Resource: "cable", ID: cableID}
		}
		return cable, nil, fmt.Errorf("failed to load cable %s: %w", cableID, err)
	}

	views := make([]EndpointView, len(cable.Endpoints))
	for i, ep := range cable.Endpoints {
		views[i] = EndpointView{CableEndpoint: ep}
		if ep.PortID == nil {
			continue
		}
		chain, err := inventory.LocationChainTx(tx, *ep.PortID)
		if err != nil {
			if apperr.IsNotFound(err) {
				continue
			}
			return cable, nil, err
		}
		views[i].Location = &chain
	}
	return cable, views, nil
}
