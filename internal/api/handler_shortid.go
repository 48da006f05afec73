package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/model"
	"dcim-inventory-backend/internal/shortid"
)

// bindOptionalJSON decodes the body into obj, treating an empty body as
// the zero request whatever its framing.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type generateRequest struct {
	Count   int     `json:"count"`
	BatchNo *string `json:"batchNo"`
}

// Generate handles POST /shortid-pool/generate.
func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	records, err := h.pool.Generate(c.Request.Context(), req.Count, req.BatchNo)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  fmt.Sprintf("generated %d short ids", len(records)),
		"shortIds": recordValues(records),
	})
}

func recordValues(records []model.ShortID) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.Value
	}
	return out
}

type createPrintTaskRequest struct {
	Name      string `json:"name" binding:"required"`
	Count     int    `json:"count"`
	CreatedBy string `json:"createdBy"`
	Notes     string `json:"notes"`
}

// CreatePrintTask handles POST /shortid-pool/print-task/create.
func (h *Handler) CreatePrintTask(c *gin.Context) {
	var req createPrintTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	task, records, err := h.pool.CreatePrintTask(c.Request.Context(), shortid.PrintTaskRequest{
		Name:      req.Name,
		Count:     req.Count,
		CreatedBy: req.CreatedBy,
		Notes:     req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   fmt.Sprintf("print task %q created with %d short ids", task.Name, task.Count),
		"printTask": task,
		"shortIds":  recordValues(records),
	})
}

func taskID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.InvalidField("id", "must be a positive integer")
	}
	return id, nil
}

// ExportPrintTask handles GET /shortid-pool/print-task/{id}/export.
func (h *Handler) ExportPrintTask(c *gin.Context) {
	id, err := taskID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	data, err := h.batches.ExportCSV(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="print-task-%d.csv"`, id))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

type completePrintTaskRequest struct {
	FilePath string `json:"filePath"`
}

// CompletePrintTask handles POST /shortid-pool/print-task/{id}/complete.
func (h *Handler) CompletePrintTask(c *gin.Context) {
	id, err := taskID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req completePrintTaskRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	task, err := h.pool.CompletePrintTask(c.Request.Context(), id, req.FilePath)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "print task completed", "task": task})
}

// StartPrintTask handles POST /shortid-pool/print-task/{id}/start.
func (h *Handler) StartPrintTask(c *gin.Context) {
	id, err := taskID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	task, err := h.pool.StartPrintTask(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "print task started", "task": task})
}

type failPrintTaskRequest struct {
	Reason string `json:"reason"`
}

// FailPrintTask handles POST /shortid-pool/print-task/{id}/fail.
func (h *Handler) FailPrintTask(c *gin.Context) {
	id, err := taskID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req failPrintTaskRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	task, err := h.pool.FailPrintTask(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "print task failed", "task": task})
}

// GetPrintTask handles GET /shortid-pool/print-task/{id}.
func (h *Handler) GetPrintTask(c *gin.Context) {
	id, err := taskID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	task, err := h.pool.GetPrintTask(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ListPrintTasks handles GET /shortid-pool/print-tasks.
func (h *Handler) ListPrintTasks(c *gin.Context) {
	tasks, err := h.pool.ListPrintTasks(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

type checkRequest struct {
	ShortID ShortIDToken `json:"shortId"`
}

// Check handles POST /shortid-pool/check.
func (h *Handler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	value, err := h.shortID("shortId", req.ShortID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	check, err := h.pool.CheckExists(c.Request.Context(), value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

type bindRequest struct {
	ShortID    ShortIDToken `json:"shortId"`
	EntityType string       `json:"entityType" binding:"required"`
	EntityID   string       `json:"entityId" binding:"required"`
}

// Bind handles POST /shortid-pool/bind.
func (h *Handler) Bind(c *gin.Context) {
	var req bindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	value, err := h.shortID("shortId", req.ShortID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	entityType := model.EntityType(strings.ToUpper(req.EntityType))
	if err := h.pool.Bind(c.Request.Context(), value, entityType, req.EntityID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("short id %s bound to %s %s", h.pool.Codec().Format(value), entityType, req.EntityID),
	})
}

type cancelRequest struct {
	ShortID ShortIDToken `json:"shortId"`
	Reason  string       `json:"reason"`
}

// Cancel handles POST /shortid-pool/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	value, err := h.shortID("shortId", req.ShortID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.pool.Cancel(c.Request.Context(), value, req.Reason); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("short id %s cancelled", h.pool.Codec().Format(value)),
	})
}

type retireRequest struct {
	ShortID    ShortIDToken `json:"shortId"`
	EntityType string       `json:"entityType" binding:"required"`
	EntityID   string       `json:"entityId" binding:"required"`
	Reason     string       `json:"reason"`
}

// Retire handles POST /shortid-pool/retire.
func (h *Handler) Retire(c *gin.Context) {
	var req retireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	value, err := h.shortID("shortId", req.ShortID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	entityType := model.EntityType(strings.ToUpper(req.EntityType))
	if err := h.pool.Retire(c.Request.Context(), value, entityType, req.EntityID, req.Reason); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("short id %s retired", h.pool.Codec().Format(value)),
	})
}

// Stats handles GET /shortid-pool/stats?entityType=.
func (h *Handler) Stats(c *gin.Context) {
	entityType := model.EntityType(strings.ToUpper(c.Query("entityType")))
	if entityType != "" && !entityType.Valid() {
		h.respondError(c, apperr.InvalidField("entityType", fmt.Sprintf("unknown entity type %q", entityType)))
		return
	}

	stats, err := h.pool.Stats(c.Request.Context(), entityType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type recordsRequest struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	EntityType string `json:"entityType"`
	Status     string `json:"status"`
	BatchNo    string `json:"batchNo"`
	Search     string `json:"search"`
}

// Records handles POST /shortid-pool/records.
func (h *Handler) Records(c *gin.Context) {
	var req recordsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	page, err := h.pool.ListRecords(c.Request.Context(), shortid.RecordFilter{
		EntityType: model.EntityType(strings.ToUpper(req.EntityType)),
		Status:     model.ShortIDStatus(strings.ToUpper(req.Status)),
		BatchNo:    req.BatchNo,
		Search:     req.Search,
	}, req.Page, req.PageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
