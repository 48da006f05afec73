package inventory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/model"
)

// Node is one level of a location chain.
type Node struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ShortID *int64 `json:"shortId,omitempty"`
}

// Chain is the physical location of a port, from the port up to its data
// center. Levels whose row has gone missing are nil.
type Chain struct {
	Port       *Node `json:"port"`
	Panel      *Node `json:"panel,omitempty"`
	Device     *Node `json:"device,omitempty"`
	Cabinet    *Node `json:"cabinet,omitempty"`
	Room       *Node `json:"room,omitempty"`
	DataCenter *Node `json:"dataCenter,omitempty"`
}

// LocationChain walks port -> panel -> device -> cabinet -> room -> data center.
func (s *Store) LocationChain(ctx context.Context, portID string) (Chain, error) {
	return LocationChainTx(s.db.WithContext(ctx), portID)
}

// LocationChainTx is LocationChain on an explicit handle, usually a transaction.
func LocationChainTx(tx *gorm.DB, portID string) (Chain, error) {
	var port model.Port
	if err := tx.First(&port, "id = ?", portID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Chain{}, &apperr.NotFoundError{Resource: "port", ID: portID}
		}
		return Chain{}, fmt.Errorf("failed to load port %s: %w", portID, err)
	}
	chain := Chain{Port: &Node{ID: port.ID, Name: port.Name, ShortID: port.ShortID}}

	var panel model.Panel
	if ok, err := lookup(tx, &panel, port.PanelID); err != nil || !ok {
		return chain, err
	}
	chain.Panel = &Node{ID: panel.ID, Name: panel.Name, ShortID: panel.ShortID}

	var device model.Device
	if ok, err := lookup(tx, &device, panel.DeviceID); err != nil || !ok {
		return chain, err
	}
	chain.Device = &Node{ID: device.ID, Name: device.Name, ShortID: device.ShortID}

	var cabinet model.Cabinet
	if ok, err := lookup(tx, &cabinet, device.CabinetID); err != nil || !ok {
		return chain, err
	}
	chain.Cabinet = &Node{ID: cabinet.ID, Name: cabinet.Name, ShortID: cabinet.ShortID}

	var room model.Room
	if ok, err := lookup(tx, &room, cabinet.RoomID); err != nil || !ok {
		return chain, err
	}
	chain.Room = &Node{ID: room.ID, Name: room.Name, ShortID: room.ShortID}

	var dc model.DataCenter
	if ok, err := lookup(tx, &dc, room.DataCenterID); err != nil || !ok {
		return chain, err
	}
	chain.DataCenter = &Node{ID: dc.ID, Name: dc.Name, ShortID: dc.ShortID}
	return chain, nil
}

func lookup(tx *gorm.DB, dest any, id string) (bool, error) {
	err := tx.First(dest, "id = ?", id).Error
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to walk location chain: %w", err)
	}
}
