package cabling

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/inventory"
	"dcim-inventory-backend/internal/model"
	"dcim-inventory-backend/internal/shortid"
)

// CableSpec is the caller-supplied description of a new cable.
type CableSpec struct {
	Label  string
	Type   string
	Length *float64
	Color  string
	Notes  string
}

// TwoSidedRequest connects a new cable between two ports at once.
type TwoSidedRequest struct {
	PortAID  string
	PortBID  string
	ShortIDA int64
	ShortIDB int64
	CableSpec
}

// SingleSidedRequest plugs one labelled cable end into a port.
type SingleSidedRequest struct {
	PortID  string
	ShortID int64
	CableSpec
}

// ConnectResult is the outcome of a single-sided connect. PeerInfo is the
// location of the far end when it sits on a live port.
type ConnectResult struct {
	Kind              Kind                `json:"kind"`
	Cable             model.Cable         `json:"cable"`
	ConnectedEndpoint model.CableEndpoint `json:"connectedEndpoint"`
	OtherEndpoint     *EndpointView       `json:"otherEndpoint"`
	PeerInfo          *inventory.Chain    `json:"peerInfo"`
}

// CableEnds is a cable with its A end and first B end.
type CableEnds struct {
	Cable     model.Cable   `json:"cable"`
	EndpointA *EndpointView `json:"endpointA"`
	EndpointB *EndpointView `json:"endpointB"`
}

// Service runs connect workflows. Each workflow is one transaction across
// the pool bind, the cable rows and the port status.
type Service struct {
	db       *gorm.DB
	pool     *shortid.Pool
	resolver *Resolver
	log      zerolog.Logger
}

// NewService creates a Service.
func NewService(db *gorm.DB, pool *shortid.Pool, resolver *Resolver, log zerolog.Logger) *Service {
	return &Service{db: db, pool: pool, resolver: resolver, log: log}
}

// CreateCable creates a cable between two AVAILABLE ports, each end carrying
// its own new label.
func (s *Service) CreateCable(ctx context.Context, req TwoSidedRequest) (model.Cable, error) {
	switch {
	case req.PortAID == "" || req.PortBID == "":
		return model.Cable{}, apperr.InvalidField("portId", "both ports are required")
	case req.PortAID == req.PortBID:
		return model.Cable{}, apperr.InvalidField("portBId", "must differ from portAId")
	case req.ShortIDA < 1 || req.ShortIDB < 1:
		return model.Cable{}, apperr.InvalidField("shortId", "both short ids must be positive integers")
	case req.ShortIDA == req.ShortIDB:
		return model.Cable{}, apperr.InvalidField("shortIdB", "must differ from shortIdA")
	case req.Type == "":
		return model.Cable{}, apperr.InvalidField("type", "must not be empty")
	}

	var cable model.Cable
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, v := range []int64{req.ShortIDA, req.ShortIDB} {
			res, err := s.resolver.ResolveTx(tx, v)
			if err != nil {
				return err
			}
			if res.Kind != KindNew {
				return &apperr.ConflictError{
					Resource: "short id",
					ID:       strconv.FormatInt(v, 10),
					Message:  fmt.Sprintf("already labels cable %s", res.Cable.ID),
				}
			}
		}

		for _, portID := range []string{req.PortAID, req.PortBID} {
			if err := occupyPort(tx, portID); err != nil {
				return err
			}
		}

		cable = newCable(req.CableSpec)
		if err := tx.Create(&cable).Error; err != nil {
			return &apperr.PartialFailureError{Op: "create cable", Cause: err}
		}

		a := model.CableEndpoint{CableID: cable.ID, PortID: &req.PortAID, EndType: model.EndTypeA, ShortID: &req.ShortIDA}
		b := model.CableEndpoint{CableID: cable.ID, PortID: &req.PortBID, EndType: model.EndTypeB, ShortID: &req.ShortIDB}
		for _, ep := range []*model.CableEndpoint{&a, &b} {
			if err := tx.Create(ep).Error; err != nil {
				return &apperr.PartialFailureError{Op: "create cable", Cause: err}
			}
			if _, err := s.pool.BindOrCreateTx(tx, *ep.ShortID, model.EntityCable, ep.ID); err != nil {
				return &apperr.PartialFailureError{Op: "create cable", Cause: err}
			}
		}
		cable.Endpoints = []model.CableEndpoint{a, b}
		return nil
	})
	if err != nil {
		return model.Cable{}, err
	}

	s.log.Info().
		Str("cable_id", cable.ID).
		Str("port_a", req.PortAID).
		Str("port_b", req.PortBID).
		Int64("short_id_a", req.ShortIDA).
		Int64("short_id_b", req.ShortIDB).
		Msg("cable created")
	return cable, nil
}

// ConnectSinglePort plugs a labelled cable end into an AVAILABLE port. A new
// label creates a cable whose other end is not plugged in yet; a known label
// attaches the port to the cable's unplugged end and reports where the far
// end is.
func (s *Service) ConnectSinglePort(ctx context.Context, req SingleSidedRequest) (ConnectResult, error) {
	if req.PortID == "" {
		return ConnectResult{}, apperr.InvalidField("portId", "must not be empty")
	}
	if req.ShortID < 1 {
		return ConnectResult{}, apperr.InvalidField("shortId", "must be a positive integer")
	}

	var result ConnectResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.resolver.ResolveTx(tx, req.ShortID)
		if err != nil {
			return err
		}

		if res.Kind == KindNew {
			result, err = s.connectNew(tx, req)
		} else {
			result, err = s.connectContinuation(tx, req, res)
		}
		return err
	})
	if err != nil {
		return ConnectResult{}, err
	}

	s.log.Info().
		Str("kind", string(result.Kind)).
		Str("cable_id", result.Cable.ID).
		Str("port_id", req.PortID).
		Int64("short_id", req.ShortID).
		Msg("cable end connected")
	return result, nil
}

func (s *Service) connectNew(tx *gorm.DB, req SingleSidedRequest) (ConnectResult, error) {
	if err := occupyPort(tx, req.PortID); err != nil {
		return ConnectResult{}, err
	}

	cable := newCable(req.CableSpec)
	if err := tx.Create(&cable).Error; err != nil {
		return ConnectResult{}, &apperr.PartialFailureError{Op: "connect cable", Cause: err}
	}

	// Both ends carry the same label; the far end has no port yet.
	a := model.CableEndpoint{CableID: cable.ID, PortID: &req.PortID, EndType: model.EndTypeA, ShortID: &req.ShortID}
	b := model.CableEndpoint{CableID: cable.ID, EndType: model.EndTypeB, ShortID: &req.ShortID}
	if err := tx.Create(&a).Error; err != nil {
		return ConnectResult{}, &apperr.PartialFailureError{Op: "connect cable", Cause: err}
	}
	if err := tx.Create(&b).Error; err != nil {
		return ConnectResult{}, &apperr.PartialFailureError{Op: "connect cable", Cause: err}
	}
	if _, err := s.pool.BindOrCreateTx(tx, req.ShortID, model.EntityCable, a.ID); err != nil {
		return ConnectResult{}, &apperr.PartialFailureError{Op: "connect cable", Cause: err}
	}

	cable.Endpoints = []model.CableEndpoint{a, b}
	return ConnectResult{
		Kind:              KindNew,
		Cable:             cable,
		ConnectedEndpoint: a,
		OtherEndpoint:     &EndpointView{CableEndpoint: b},
	}, nil
}

func (s *Service) connectContinuation(tx *gorm.DB, req SingleSidedRequest, res Resolution) (ConnectResult, error) {
	for _, ep := range res.Endpoints {
		if ep.PortID != nil && *ep.PortID == req.PortID {
			return ConnectResult{}, &apperr.InvalidStateError{
				Resource: "cable",
				ID:       res.Cable.ID,
				State:    "connected to port " + req.PortID,
				Op:       "connect",
			}
		}
	}

	// The scanned label names the end being plugged in. Only when no end
	// carries it does any free end qualify. An end is free when it has no
	// port or its port row is gone.
	target, labelled := -1, false
	for i, ep := range res.Endpoints {
		if !carries(ep, req.ShortID) {
			continue
		}
		labelled = true
		if ep.Location == nil {
			target = i
			break
		}
	}
	if !labelled {
		for i, ep := range res.Endpoints {
			if ep.Location == nil {
				target = i
				break
			}
		}
	}
	if target < 0 {
		state := "fully connected"
		if labelled {
			state = "end " + s.pool.Codec().Format(req.ShortID) + " already connected"
		}
		return ConnectResult{}, &apperr.InvalidStateError{
			Resource: "cable",
			ID:       res.Cable.ID,
			State:    state,
			Op:       "connect",
		}
	}

	if err := occupyPort(tx, req.PortID); err != nil {
		return ConnectResult{}, err
	}

	ep := res.Endpoints[target].CableEndpoint
	updates := map[string]any{"port_id": req.PortID}
	if ep.ShortID == nil {
		updates["short_id"] = req.ShortID
	}
	if err := tx.Model(&model.CableEndpoint{}).Where("id = ?", ep.ID).Updates(updates).Error; err != nil {
		return ConnectResult{}, &apperr.PartialFailureError{Op: "connect cable", Cause: err}
	}

	cable, views, err := loadCable(tx, res.Cable.ID)
	if err != nil {
		return ConnectResult{}, &apperr.PartialFailureError{Op: "connect cable", Cause: err}
	}

	result := ConnectResult{Kind: KindContinuation, Cable: cable}
	for i := range views {
		v := views[i]
		if v.ID == ep.ID {
			result.ConnectedEndpoint = v.CableEndpoint
			continue
		}
		if result.OtherEndpoint == nil || (result.OtherEndpoint.Location == nil && v.Location != nil) {
			result.OtherEndpoint = &v
		}
	}
	if result.OtherEndpoint != nil {
		result.PeerInfo = result.OtherEndpoint.Location
	}
	return result, nil
}

func carries(ep EndpointView, value int64) bool {
	return ep.ShortID != nil && *ep.ShortID == value
}

// EndpointsByShortID returns the cable a label belongs to with both ends'
// locations.
func (s *Service) EndpointsByShortID(ctx context.Context, value int64) (CableEnds, error) {
	res, err := s.resolver.Resolve(ctx, value)
	if err != nil {
		return CableEnds{}, err
	}
	if res.Kind != KindContinuation {
		return CableEnds{}, &apperr.NotFoundError{Resource: "cable with short id", ID: strconv.FormatInt(value, 10)}
	}

	ends := CableEnds{Cable: *res.Cable}
	for i := range res.Endpoints {
		v := res.Endpoints[i]
		switch {
		case v.EndType == model.EndTypeA && ends.EndpointA == nil:
			ends.EndpointA = &v
		case v.EndType != model.EndTypeA && ends.EndpointB == nil:
			ends.EndpointB = &v
		}
	}
	return ends, nil
}

// DisconnectEndpoint unplugs an endpoint. Its port goes back to AVAILABLE
// when nothing else is plugged into it and it was OCCUPIED.
func (s *Service) DisconnectEndpoint(ctx context.Context, endpointID string) (model.CableEndpoint, error) {
	var ep model.CableEndpoint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ep, "id = ?", endpointID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperr.NotFoundError{Resource: "cable endpoint", ID: endpointID}
			}
			return fmt.Errorf("failed to load cable endpoint %s: %w", endpointID, err)
		}
		if ep.PortID == nil {
			return &apperr.InvalidStateError{Resource: "cable endpoint", ID: endpointID, State: "disconnected", Op: "disconnect"}
		}

		portID := *ep.PortID
		if err := tx.Model(&model.CableEndpoint{}).Where("id = ?", ep.ID).Update("port_id", nil).Error; err != nil {
			return fmt.Errorf("failed to disconnect cable endpoint %s: %w", endpointID, err)
		}
		if err := releasePort(tx, portID); err != nil {
			return &apperr.PartialFailureError{Op: "disconnect endpoint", Cause: err}
		}
		ep.PortID = nil
		return nil
	})
	if err != nil {
		return model.CableEndpoint{}, err
	}

	s.log.Info().Str("endpoint_id", endpointID).Str("cable_id", ep.CableID).Msg("cable end disconnected")
	return ep, nil
}

// DeleteCable removes a cable and its endpoints, frees their ports and
// retires the labels bound to them.
func (s *Service) DeleteCable(ctx context.Context, cableID, reason string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cable, _, err := loadCable(tx, cableID)
		if err != nil {
			return err
		}

		endpointIDs := make([]string, 0, len(cable.Endpoints))
		var ports []string
		for _, ep := range cable.Endpoints {
			endpointIDs = append(endpointIDs, ep.ID)
			if ep.PortID != nil {
				ports = append(ports, *ep.PortID)
			}
		}

		if len(endpointIDs) > 0 {
			if err := tx.Where("id IN ?", endpointIDs).Delete(&model.CableEndpoint{}).Error; err != nil {
				return fmt.Errorf("failed to delete endpoints of cable %s: %w", cableID, err)
			}
		}
		if err := tx.Delete(&model.Cable{}, "id = ?", cableID).Error; err != nil {
			return &apperr.PartialFailureError{Op: "delete cable", Cause: err}
		}
		for _, portID := range ports {
			if err := releasePort(tx, portID); err != nil {
				return &apperr.PartialFailureError{Op: "delete cable", Cause: err}
			}
		}

		if len(endpointIDs) == 0 {
			return nil
		}
		var bound []model.ShortID
		if err := tx.Where("status = ? AND entity_type = ? AND entity_id IN ?", model.StatusBound, model.EntityCable, endpointIDs).
			Find(&bound).Error; err != nil {
			return &apperr.PartialFailureError{Op: "delete cable", Cause: err}
		}
		for _, rec := range bound {
			if err := s.pool.RetireTx(tx, rec.Value, model.EntityCable, *rec.EntityID, reason); err != nil {
				return &apperr.PartialFailureError{Op: "delete cable", Cause: err}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("cable_id", cableID).Str("reason", reason).Msg("cable deleted")
	return nil
}

func newCable(spec CableSpec) model.Cable {
	return model.Cable{
		Label:  spec.Label,
		Type:   spec.Type,
		Length: spec.Length,
		Color:  spec.Color,
		Notes:  spec.Notes,
	}
}

// occupyPort flips a port from AVAILABLE to OCCUPIED. The conditional update
// makes two concurrent connects to one port fail for all but one caller.
func occupyPort(tx *gorm.DB, portID string) error {
	res := tx.Model(&model.Port{}).
		Where("id = ? AND status = ?", portID, model.PortAvailable).
		Update("status", model.PortOccupied)
	if res.Error != nil {
		return fmt.Errorf("failed to occupy port %s: %w", portID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var port model.Port
	if err := tx.First(&port, "id = ?", portID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperr.NotFoundError{Resource: "port", ID: portID}
		}
		return fmt.Errorf("failed to load port %s: %w", portID, err)
	}
	return &apperr.InvalidStateError{Resource: "port", ID: portID, State: string(port.Status), Op: "connect to"}
}

// releasePort returns an OCCUPIED port with no endpoint left to AVAILABLE.
// FAULTY and RESERVED ports keep their status.
func releasePort(tx *gorm.DB, portID string) error {
	var n int64
	if err := tx.Model(&model.CableEndpoint{}).Where("port_id = ?", portID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to count endpoints on port %s: %w", portID, err)
	}
	if n > 0 {
		return nil
	}
	if err := tx.Model(&model.Port{}).
		Where("id = ? AND status = ?", portID, model.PortOccupied).
		Update("status", model.PortAvailable).Error; err != nil {
		return fmt.Errorf("failed to release port %s: %w", portID, err)
	}
	return nil
}
