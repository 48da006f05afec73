package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dcim-inventory-backend/internal/cabling"
)

type cableSpecRequest struct {
	Label  string   `json:"label"`
	Type   string   `json:"type"`
	Length *float64 `json:"length"`
	Color  string   `json:"color"`
	Notes  string   `json:"notes"`
}

func (r cableSpecRequest) spec() cabling.CableSpec {
	return cabling.CableSpec{Label: r.Label, Type: r.Type, Length: r.Length, Color: r.Color, Notes: r.Notes}
}

type connectSinglePortRequest struct {
	PortID  string       `json:"portId" binding:"required"`
	ShortID ShortIDToken `json:"shortId"`
	cableSpecRequest
}

// ConnectSinglePort handles POST /cables/connect-single-port.
func (h *Handler) ConnectSinglePort(c *gin.Context) {
	var req connectSinglePortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	value, err := h.shortID("shortId", req.ShortID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.cables.ConnectSinglePort(c.Request.Context(), cabling.SingleSidedRequest{
		PortID:    req.PortID,
		ShortID:   value,
		CableSpec: req.spec(),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type createCableRequest struct {
	PortAID  string       `json:"portAId" binding:"required"`
	PortBID  string       `json:"portBId" binding:"required"`
	ShortIDA ShortIDToken `json:"shortIdA"`
	ShortIDB ShortIDToken `json:"shortIdB"`
	cableSpecRequest
}

// CreateCable handles POST /cables/create.
func (h *Handler) CreateCable(c *gin.Context) {
	var req createCableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	a, err := h.shortID("shortIdA", req.ShortIDA)
	if err != nil {
		h.respondError(c, err)
		return
	}
	b, err := h.shortID("shortIdB", req.ShortIDB)
	if err != nil {
		h.respondError(c, err)
		return
	}

	cable, err := h.cables.CreateCable(c.Request.Context(), cabling.TwoSidedRequest{
		PortAID:   req.PortAID,
		PortBID:   req.PortBID,
		ShortIDA:  a,
		ShortIDB:  b,
		CableSpec: req.spec(),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cable)
}

type shortIDRequest struct {
	ShortID ShortIDToken `json:"shortId"`
}

// EndpointsByShortID handles POST /cables/endpoints-by-shortid.
func (h *Handler) EndpointsByShortID(c *gin.Context) {
	var req shortIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	value, err := h.shortID("shortId", req.ShortID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ends, err := h.cables.EndpointsByShortID(c.Request.Context(), value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ends)
}

// ResolveCableLabel handles POST /cables/resolve.
func (h *Handler) ResolveCableLabel(c *gin.Context) {
	var req shortIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	value, err := h.shortID("shortId", req.ShortID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.resolver.Resolve(c.Request.Context(), value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DisconnectEndpoint handles POST /cables/endpoints/{id}/disconnect.
func (h *Handler) DisconnectEndpoint(c *gin.Context) {
	ep, err := h.cables.DisconnectEndpoint(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "endpoint disconnected", "endpoint": ep})
}

// DeleteCable handles DELETE /cables/{id}?reason=.
func (h *Handler) DeleteCable(c *gin.Context) {
	if err := h.cables.DeleteCable(c.Request.Context(), c.Param("id"), c.Query("reason")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "cable deleted"})
}
