package bulk

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides the HTTP endpoint for bulk actions.
type Handler struct {
	service *Service
}

// NewHandler creates a new bulk action handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up protected (auth-required) bulk routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/bulk", h.ApplyBulk)
}

// ApplyBulk handles POST /v1/bulk
func (h *Handler) ApplyBulk(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	result, err := h.service.Apply(c.Request.Context(), req)
	if err != nil {
		h.mapError(c, err)
		return
	}

	// 200 even with partial failure; the body says which items failed
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// mapError maps service errors to HTTP responses.
func (h *Handler) mapError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, ErrInvalidAction):
		status = http.StatusBadRequest
		code = "invalid_action"
	case errors.Is(err, ErrEmptyBatch):
		status = http.StatusBadRequest
		code = "empty_batch"
	case errors.Is(err, ErrBatchTooLarge):
		status = http.StatusBadRequest
		code = "batch_too_large"
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
