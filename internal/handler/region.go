package handler

import (
	"context"
	"strconv"

	"region-api/internal/models"
	"region-api/internal/service"

	"github.com/gin-gonic/gin"
)

// RegionHandler serves read-only coordinate lookups
type RegionHandler struct {
	service RegionService
}

// RegionService is the read side of the activity region service
type RegionService interface {
	GetLocationInfo(ctx context.Context, lat, lon float64) models.Result
	GetNearbyRegions(ctx context.Context, lat, lon, radiusKm float64, limit int) models.Result
}

// NewRegionHandler creates a new region handler
func NewRegionHandler(svc RegionService) *RegionHandler {
	return &RegionHandler{service: svc}
}

// parseCoordinates reads lat and lon from the query string and writes a 400 when either is
// missing or not a number.
func parseCoordinates(c *gin.Context) (lat, lon float64, ok bool) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")

	if latStr == "" || lonStr == "" {
		badRequest(c, "missing required query parameters 'lat' and 'lon'")
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		badRequest(c, "invalid latitude format")
		return 0, 0, false
	}

	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		badRequest(c, "invalid longitude format")
		return 0, 0, false
	}

	return lat, lon, true
}

// LocationInfo handles GET /regions/location-info requests
func (h *RegionHandler) LocationInfo(c *gin.Context) {
	lat, lon, ok := parseCoordinates(c)
	if !ok {
		return
	}

	writeResult(c, h.service.GetLocationInfo(c.Request.Context(), lat, lon))
}

// Nearby handles GET /regions/nearby requests. purpose=signup switches the defaults to the
// smaller signup search; explicit radius_km and limit always win.
func (h *RegionHandler) Nearby(c *gin.Context) {
	lat, lon, ok := parseCoordinates(c)
	if !ok {
		return
	}

	radiusKm := service.DefaultNearbyRadiusKm
	limit := service.DefaultNearbyLimit
	if c.Query("purpose") == "signup" {
		radiusKm = service.SignupNearbyRadiusKm
		limit = service.SignupNearbyLimit
	}

	if s := c.Query("radius_km"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			badRequest(c, "radius_km must be a positive number")
			return
		}
		radiusKm = v
	}

	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = v
	}

	writeResult(c, h.service.GetNearbyRegions(c.Request.Context(), lat, lon, radiusKm, limit))
}
