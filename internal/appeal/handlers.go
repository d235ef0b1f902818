package appeal

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fairplayhq/nilguard/internal/deal"
)

// Handler provides HTTP endpoints for appeal operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new appeal handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public (read-only) appeal routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/appeals/queue", h.GetQueue)
	r.GET("/appeals/:appealId", h.GetAppeal)
	r.GET("/deals/:dealId/appeals", h.ListAppeals)
}

// RegisterProtectedRoutes sets up protected (auth-required) appeal routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/deals/:dealId/appeals", h.FileAppeal)
	r.POST("/appeals/:appealId/review", h.BeginReview)
	r.POST("/appeals/:appealId/resolve", h.ResolveAppeal)
}

// FileAppeal handles POST /v1/deals/:dealId/appeals
func (h *Handler) FileAppeal(c *gin.Context) {
	dealID := c.Param("dealId")

	var req FileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	a, err := h.service.File(c.Request.Context(), dealID, req)
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"appeal": a})
}

// GetAppeal handles GET /v1/appeals/:appealId
func (h *Handler) GetAppeal(c *gin.Context) {
	a, err := h.service.Get(c.Request.Context(), c.Param("appealId"))
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appeal": a})
}

// BeginReview handles POST /v1/appeals/:appealId/review
func (h *Handler) BeginReview(c *gin.Context) {
	a, err := h.service.BeginReview(c.Request.Context(), c.Param("appealId"))
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appeal": a})
}

// ResolveAppeal handles POST /v1/appeals/:appealId/resolve
func (h *Handler) ResolveAppeal(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	a, err := h.service.Resolve(c.Request.Context(), c.Param("appealId"), req)
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appeal": a})
}

// ListAppeals handles GET /v1/deals/:dealId/appeals
func (h *Handler) ListAppeals(c *gin.Context) {
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

	appeals, err := h.service.ListByDeal(c.Request.Context(), dealID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}
	if appeals == nil {
		appeals = []*Appeal{}
	}

	c.JSON(http.StatusOK, gin.H{
		"appeals": appeals,
		"count":   len(appeals),
	})
}

// GetQueue handles GET /v1/appeals/queue
func (h *Handler) GetQueue(c *gin.Context) {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 500 {
				limit = 500
			}
		}
	}

	q, err := h.service.Queue(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"queue": q})
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
	case errors.Is(err, ErrAlreadyOpen):
		status = http.StatusConflict
		code = "appeal_already_open"
	case errors.Is(err, ErrAlreadyResolved):
		status = http.StatusConflict
		code = "appeal_already_resolved"
	case errors.Is(err, ErrInvalidResolution):
		status = http.StatusBadRequest
		code = "invalid_resolution"
	case errors.Is(err, ErrNewDecisionRequired):
		status = http.StatusBadRequest
		code = "new_decision_required"
	case errors.Is(err, ErrInvalidNewDecision):
		status = http.StatusBadRequest
		code = "invalid_new_decision"
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
