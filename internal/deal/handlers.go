package deal

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fairplayhq/nilguard/internal/pagination"
	"github.com/fairplayhq/nilguard/internal/validation"
)

// Handler provides HTTP endpoints for deal operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new deal handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public (read-only) deal routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/deals", h.ListDeals)
	r.GET("/deals/:dealId", h.GetDeal)
	r.GET("/deals/:dealId/status", h.GetStatus)
}

// RegisterProtectedRoutes sets up protected (auth-required) deal routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/deals", h.CreateDeal)
	r.POST("/deals/:dealId/score", h.RecordScore)
}

// CreateDeal handles POST /v1/deals
func (h *Handler) CreateDeal(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	req.Counterparty = validation.SanitizeString(req.Counterparty, 200)
	if errs := validation.Validate(
		validation.Required("athleteId", req.AthleteID),
		validation.Required("counterparty", req.Counterparty),
		validation.MaxLength("athleteId", req.AthleteID, 64),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	d, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"deal": d})
}

// GetDeal handles GET /v1/deals/:dealId
func (h *Handler) GetDeal(c *gin.Context) {
	id := c.Param("dealId")

	v, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deal": v})
}

// GetStatus handles GET /v1/deals/:dealId/status
func (h *Handler) GetStatus(c *gin.Context) {
	id := c.Param("dealId")

	v, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dealId":          v.ID,
		"effectiveStatus": v.EffectiveStatus,
		"statusSource":    v.StatusSource,
		"openItem":        v.OpenItem,
	})
}

// ListDeals handles GET /v1/deals
func (h *Handler) ListDeals(c *gin.Context) {
	athleteID := c.Query("athleteId")
	status := c.Query("status")
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 200 {
				limit = 200
			}
		}
	}

	var opts []ListOption
	if cursor := c.Query("cursor"); cursor != "" {
		opts = append(opts, WithCursor(cursor))
	}

	views, err := h.service.List(c.Request.Context(), athleteID, status, limit, opts...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	views, nextCursor, hasMore := pagination.ComputePage(views, limit, func(v *View) (time.Time, string) {
		return v.CreatedAt, v.ID
	})
	if views == nil {
		views = []*View{}
	}

	c.JSON(http.StatusOK, gin.H{
		"deals":      views,
		"count":      len(views),
		"nextCursor": nextCursor,
		"hasMore":    hasMore,
	})
}

// RecordScore handles POST /v1/deals/:dealId/score
func (h *Handler) RecordScore(c *gin.Context) {
	id := c.Param("dealId")

	// Empty body means "ask the scoring provider"
	var req RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	v, err := h.service.RecordScore(c.Request.Context(), id, req)
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deal": v})
}

// mapError maps service errors to HTTP responses.
func (h *Handler) mapError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, ErrScoreUnavailable):
		status = http.StatusBadGateway
		code = "score_unavailable"
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
