package handler

import (
	"context"
	"net/http"
	"strings"

	"region-api/internal/models"

	"github.com/gin-gonic/gin"
)

// RegionSearchHandler handles neighborhood name lookups
type RegionSearchHandler struct {
	service RegionSearchService
}

// Service interface for dependency injection
type RegionSearchService interface {
	Search(context.Context, string) ([]models.NeighborhoodRegion, error)
}

// NewRegionSearchHandler creates a new region search handler
func NewRegionSearchHandler(svc RegionSearchService) *RegionSearchHandler {
	return &RegionSearchHandler{service: svc}
}

// Search handles GET /regions/search requests
func (h *RegionSearchHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter 'q'"})
		return
	}

	neighborhoods, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, neighborhoods)
}
