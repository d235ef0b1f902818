package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler exposes the audit trail over HTTP.
type Handler struct {
	log Log
}

// NewHandler creates an audit trail handler.
func NewHandler(log Log) *Handler {
	return &Handler{log: log}
}

// RegisterRoutes registers audit endpoints on the router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/deals/:dealId/audit", h.ListByDeal)
}

// ListByDeal handles GET /deals/:dealId/audit
func (h *Handler) ListByDeal(c *gin.Context) {
	dealID := c.Param("dealId")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	entries, err := h.log.ListByDeal(c.Request.Context(), dealID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit entries"})
		return
	}
	if entries == nil {
		entries = []*Entry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"dealId":  dealID,
		"entries": entries,
		"count":   len(entries),
	})
}
