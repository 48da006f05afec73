package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dcim-inventory-backend/internal/apperr"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeWrongEntityType = "WRONG_ENTITY_TYPE"
	CodeInvalidState    = "INVALID_STATE"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeInternal        = "INTERNAL"
)

// classify maps a domain error to an HTTP status and error code.
func classify(err error) (int, string) {
	var (
		formatErr *apperr.FormatError
		typeErr   *apperr.WrongEntityTypeError
	)
	switch {
	case errors.As(err, &formatErr):
		return http.StatusBadRequest, CodeInvalidFormat
	case errors.As(err, &typeErr):
		return http.StatusConflict, CodeWrongEntityType
	case apperr.IsInvalidArgument(err):
		return http.StatusBadRequest, CodeInvalidArgument
	case apperr.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case apperr.IsConflict(err):
		return http.StatusConflict, CodeConflict
	case apperr.IsInvalidState(err):
		return http.StatusUnprocessableEntity, CodeInvalidState
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondError writes {success:false, message, code}. Internal errors are
// logged and their text is not sent to the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message, "code": code})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error(), "code": CodeInvalidArgument})
}
