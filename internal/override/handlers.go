package override

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fairplayhq/nilguard/internal/deal"
)

// Handler provides HTTP endpoints for override operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new override handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public (read-only) override routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/deals/:dealId/overrides", h.ListOverrides)
	r.GET("/deals/:dealId/overrides/active", h.GetActiveOverride)
}

// RegisterProtectedRoutes sets up protected (auth-required) override routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/deals/:dealId/overrides", h.ApplyOverride)
}

// ApplyOverride handles POST /v1/deals/:dealId/overrides
func (h *Handler) ApplyOverride(c *gin.Context) {
	dealID := c.Param("dealId")

	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	ov, err := h.service.Apply(c.Request.Context(), dealID, req)
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"override": ov})
}

// GetActiveOverride handles GET /v1/deals/:dealId/overrides/active
func (h *Handler) GetActiveOverride(c *gin.Context) {
	dealID := c.Param("dealId")

	ov, err := h.service.Active(c.Request.Context(), dealID)
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"override": ov})
}

// ListOverrides handles GET /v1/deals/:dealId/overrides
func (h *Handler) ListOverrides(c *gin.Context) {
	dealID := c.Param("dealId")
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 200 {
				limit = 200
			}
		}
	}

	overrides, err := h.service.ListByDeal(c.Request.Context(), dealID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}
	if overrides == nil {
		overrides = []*Override{}
	}

	c.JSON(http.StatusOK, gin.H{
		"overrides": overrides,
		"count":     len(overrides),
	})
}

// mapError maps service errors to HTTP responses.
func (h *Handler) mapError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, deal.ErrNotFound):
		status = http.StatusNotFound
		code = "deal_not_found"
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, ErrInvalidTargetStatus):
		status = http.StatusBadRequest
		code = "invalid_target_status"
	case errors.Is(err, ErrJustificationTooShort):
		status = http.StatusBadRequest
		code = "justification_too_short"
	case errors.Is(err, ErrNotOverridable):
		status = http.StatusConflict
		code = "not_overridable"
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
