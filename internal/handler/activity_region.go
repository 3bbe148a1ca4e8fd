package handler

import (
	"context"
	"strconv"

	"region-api/internal/models"

	"github.com/gin-gonic/gin"
)

// ActivityRegionHandler handles a user's verified neighborhoods
type ActivityRegionHandler struct {
	service ActivityRegionService
}

// ActivityRegionService interface for dependency injection
type ActivityRegionService interface {
	VerifyLocation(ctx context.Context, userID int64, lat, lon float64) models.Result
	ListRegions(ctx context.Context, userID int64) models.Result
	DeleteRegion(ctx context.Context, userID, regionID int64) models.Result
}

// NewActivityRegionHandler creates a new activity region handler
func NewActivityRegionHandler(svc ActivityRegionService) *ActivityRegionHandler {
	return &ActivityRegionHandler{service: svc}
}

type verifyLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// Verify handles POST /users/:user_id/activity-regions requests
func (h *ActivityRegionHandler) Verify(c *gin.Context) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}

	var req verifyLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must contain numeric 'latitude' and 'longitude'")
		return
	}

	writeResult(c, h.service.VerifyLocation(c.Request.Context(), userID, *req.Latitude, *req.Longitude))
}

// List handles GET /users/:user_id/activity-regions requests
func (h *ActivityRegionHandler) List(c *gin.Context) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}

	writeResult(c, h.service.ListRegions(c.Request.Context(), userID))
}

// Delete handles DELETE /users/:user_id/activity-regions/:region_id requests
func (h *ActivityRegionHandler) Delete(c *gin.Context) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	regionID, ok := idParam(c, "region_id")
	if !ok {
		return
	}

	writeResult(c, h.service.DeleteRegion(c.Request.Context(), userID, regionID))
}
