package assignment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for assignment operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new assignment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public (read-only) assignment routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/items/:itemId/assignment", h.GetAssignment)
	r.GET("/members/:memberId/assignments", h.ListAssignments)
	r.GET("/members/:memberId/workload", h.GetWorkload)
	r.GET("/workload", h.GetTeamWorkload)
}

// RegisterProtectedRoutes sets up protected (auth-required) assignment routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.PUT("/items/:itemId/assignment", h.AssignItem)
	r.DELETE("/items/:itemId/assignment", h.UnassignItem)
	r.POST("/items/:itemId/assignment/complete", h.CompleteItem)
}

// AssignItem handles PUT /v1/items/:itemId/assignment
func (h *Handler) AssignItem(c *gin.Context) {
	itemID := c.Param("itemId")

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	rec, err := h.service.Assign(c.Request.Context(), itemID, req)
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignment": rec})
}

// UnassignItem handles DELETE /v1/items/:itemId/assignment
func (h *Handler) UnassignItem(c *gin.Context) {
	rec, err := h.service.Unassign(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignment": rec})
}

// CompleteItem handles POST /v1/items/:itemId/assignment/complete
func (h *Handler) CompleteItem(c *gin.Context) {
	rec, err := h.service.Complete(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignment": rec})
}

// GetAssignment handles GET /v1/items/:itemId/assignment
func (h *Handler) GetAssignment(c *gin.Context) {
	rec, err := h.service.Active(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignment": rec})
}

// ListAssignments handles GET /v1/members/:memberId/assignments
func (h *Handler) ListAssignments(c *gin.Context) {
	memberID := c.Param("memberId")
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 200 {
				limit = 200
			}
		}
	}

	records, err := h.service.ListByMember(c.Request.Context(), memberID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}
	if records == nil {
		records = []*Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"assignments": records,
		"count":       len(records),
	})
}

// GetWorkload handles GET /v1/members/:memberId/workload
func (h *Handler) GetWorkload(c *gin.Context) {
	w, err := h.service.Workload(c.Request.Context(), c.Param("memberId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"workload": w})
}

// GetTeamWorkload handles GET /v1/workload
func (h *Handler) GetTeamWorkload(c *gin.Context) {
	workloads, err := h.service.TeamWorkload(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}
	if workloads == nil {
		workloads = []*Workload{}
	}

	c.JSON(http.StatusOK, gin.H{
		"workloads": workloads,
		"count":     len(workloads),
	})
}

// mapError maps service errors to HTTP responses.
func (h *Handler) mapError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, ErrNotAssigned):
		status = http.StatusNotFound
		code = "not_assigned"
	case errors.Is(err, ErrInvalidPriority):
		status = http.StatusBadRequest
		code = "invalid_priority"
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
