package api

import (
	"github.com/rs/zerolog"

	"dcim-inventory-backend/internal/cabling"
	"dcim-inventory-backend/internal/inventory"
	"dcim-inventory-backend/internal/shortid"
)

// Services are the domain services the handlers call into.
type Services struct {
	Pool      *shortid.Pool
	Batches   *shortid.PrintBatches
	Resolver  *cabling.Resolver
	Cables    *cabling.Service
	Inventory *inventory.Store
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	pool      *shortid.Pool
	batches   *shortid.PrintBatches
	resolver  *cabling.Resolver
	cables    *cabling.Service
	inventory *inventory.Store
	log       zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s Services, log zerolog.Logger) *Handler {
	return &Handler{
		pool:      s.Pool,
		batches:   s.Batches,
		resolver:  s.Resolver,
		cables:    s.Cables,
		inventory: s.Inventory,
		log:       log,
	}
}

// shortID parses a request token with the pool's display codec.
func (h *Handler) shortID(field string, t ShortIDToken) (int64, error) {
	return t.Value(field, h.pool.Codec())
}
