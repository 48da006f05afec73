package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dcim-inventory-backend/internal/apperr"
)

type createEntityRequest struct {
	ParentID string       `json:"parentId"`
	Name     string       `json:"name" binding:"required"`
	Number   int          `json:"number"`
	ShortID  ShortIDToken `json:"shortId"`
}

// CreateEntity handles POST /inventory/{kind}. A supplied short ID is
// checked and bound in the same transaction as the insert.
func (h *Handler) CreateEntity(c *gin.Context) {
	var req createEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	var shortID *int64
	if req.ShortID.Set() {
		v, err := h.shortID("shortId", req.ShortID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		shortID = &v
	}

	ctx := c.Request.Context()
	var (
		entity any
		err    error
	)
	switch kind := c.Param("kind"); kind {
	case "datacenters":
		entity, err = h.inventory.CreateDataCenter(ctx, req.Name, shortID)
	case "rooms":
		entity, err = h.inventory.CreateRoom(ctx, req.ParentID, req.Name, shortID)
	case "cabinets":
		entity, err = h.inventory.CreateCabinet(ctx, req.ParentID, req.Name, shortID)
	case "devices":
		entity, err = h.inventory.CreateDevice(ctx, req.ParentID, req.Name, shortID)
	case "panels":
		entity, err = h.inventory.CreatePanel(ctx, req.ParentID, req.Name, shortID)
	case "ports":
		entity, err = h.inventory.CreatePort(ctx, req.ParentID, req.Name, req.Number, shortID)
	default:
		err = &apperr.NotFoundError{Resource: "inventory kind", ID: kind}
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entity)
}

// PortLocation handles GET /inventory/ports/{id}/location.
func (h *Handler) PortLocation(c *gin.Context) {
	chain, err := h.inventory.LocationChain(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chain)
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.pool.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
