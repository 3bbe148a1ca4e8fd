package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"region-api/internal/geo"
	"region-api/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultMaxActivityRegions is how many neighborhoods a user may verify at once.
const DefaultMaxActivityRegions = 3

// NearbyFinder is implemented by NearbyRegionService.
type NearbyFinder interface {
	Find(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.NearbyRegion, error)
}

// ActivityRegionService binds users to the neighborhoods they verified and answers region
// lookups for the request layer. Every operation returns a models.Result.
type ActivityRegionService struct {
	geocoder   Geocoder
	store      ActivityRegionStore
	nearby     NearbyFinder
	maxRegions int
	now        func() time.Time
}

// NewActivityRegionService creates a new activity region service. maxRegions <= 0 falls back
// to DefaultMaxActivityRegions.
func NewActivityRegionService(geocoder Geocoder, store ActivityRegionStore, nearby NearbyFinder, maxRegions int) *ActivityRegionService {
	if maxRegions <= 0 {
		maxRegions = DefaultMaxActivityRegions
	}
	return &ActivityRegionService{
		geocoder:   geocoder,
		store:      store,
		nearby:     nearby,
		maxRegions: maxRegions,
		now:        time.Now,
	}
}

// ValidateCoordinates reports whether lat and lon are numbers within WGS84 bounds. Nil,
// non-numeric, NaN and infinite values are rejected.
func ValidateCoordinates(lat, lon any) bool {
	la, ok := toFloat(lat)
	if !ok {
		return false
	}
	lo, ok := toFloat(lon)
	if !ok {
		return false
	}
	if math.IsInf(la, 0) || math.IsInf(lo, 0) {
		return false
	}
	return geo.ValidCoordinate(la, lo)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case *float64:
		if n == nil {
			return 0, false
		}
		return *n, true
	default:
		return 0, false
	}
}

func invalidCoordinates(lat, lon float64) models.Result {
	return models.Fail(
		fmt.Errorf("service: %w: (%v, %v)", models.ErrInvalidCoordinates, lat, lon),
		"invalid coordinates: latitude must be within [-90, 90] and longitude within [-180, 180]",
	)
}

// VerifyLocation resolves the coordinate to a neighborhood and binds it to the user. A new
// neighborhood is appended with the next priority unless the user is at capacity; an already
// bound neighborhood only has its location and last_verified_at refreshed.
func (s *ActivityRegionService) VerifyLocation(ctx context.Context, userID int64, lat, lon float64) models.Result {
	if !ValidateCoordinates(lat, lon) {
		return invalidCoordinates(lat, lon)
	}

	res := s.geocoder.Resolve(ctx, lat, lon)
	location := models.Point{Latitude: lat, Longitude: lon}

	neighborhood, err := s.store.EnsureHierarchy(ctx, res.Address, location)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to ensure region hierarchy")
		return models.Fail(err, "failed to save region")
	}

	var bound models.ActivityRegion
	err = s.store.WithUserRegions(ctx, userID, func(tx ActivityRegionTx) error {
		regions, err := tx.Regions(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		for _, r := range regions {
			if r.NeighborhoodID != neighborhood.ID {
				continue
			}
			if err := tx.TouchRegion(ctx, r.ID, location, now); err != nil {
				return err
			}
			bound = r
			bound.Location = location
			bound.LastVerifiedAt = now
			return nil
		}

		if len(regions) >= s.maxRegions {
			return models.ErrCapacityExceeded
		}

		bound = models.ActivityRegion{
			UserID:         userID,
			NeighborhoodID: neighborhood.ID,
			Priority:       len(regions) + 1,
			Location:       location,
			VerifiedAt:     now,
			LastVerifiedAt: now,
		}
		return tx.InsertRegion(ctx, &bound)
	})

	switch {
	case errors.Is(err, models.ErrCapacityExceeded):
		return models.Fail(err, fmt.Sprintf("activity regions are limited to %d; delete one before adding another", s.maxRegions))
	case err != nil:
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to bind activity region")
		return models.Fail(err, "failed to save activity region")
	}

	bound.Neighborhood = *neighborhood
	view := toView(bound)
	view.Degraded = res.Degraded
	return models.OK("location verified", view)
}

// ListRegions returns the user's regions ordered by priority
func (s *ActivityRegionService) ListRegions(ctx context.Context, userID int64) models.Result {
	regions, err := s.store.ListActivityRegions(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to list activity regions")
		return models.Fail(err, "failed to load activity regions")
	}
	return models.OK("activity regions", toViews(regions))
}

// DeleteRegion removes one of the user's regions and renumbers the rest 1..n in their
// existing order. Regions owned by other users are reported as not found.
func (s *ActivityRegionService) DeleteRegion(ctx context.Context, userID, regionID int64) models.Result {
	var remaining []models.ActivityRegion
	err := s.store.WithUserRegions(ctx, userID, func(tx ActivityRegionTx) error {
		regions, err := tx.Regions(ctx)
		if err != nil {
			return err
		}

		remaining = make([]models.ActivityRegion, 0, len(regions))
		found := false
		for _, r := range regions {
			if r.ID == regionID {
				found = true
				continue
			}
			remaining = append(remaining, r)
		}
		if !found {
			return models.ErrNotFound
		}

		if err := tx.DeleteRegion(ctx, regionID); err != nil {
			return err
		}
		for i := range remaining {
			priority := i + 1
			if remaining[i].Priority == priority {
				continue
			}
			if err := tx.SetPriority(ctx, remaining[i].ID, priority); err != nil {
				return err
			}
			remaining[i].Priority = priority
		}
		return nil
	})

	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.Fail(err, "activity region not found")
	case err != nil:
		log.Error().Err(err).Int64("user_id", userID).Int64("region_id", regionID).Msg("service: failed to delete activity region")
		return models.Fail(err, "failed to delete activity region")
	}
	return models.OK("activity region deleted", toViews(remaining))
}

// GetLocationInfo resolves a coordinate without persisting anything
func (s *ActivityRegionService) GetLocationInfo(ctx context.Context, lat, lon float64) models.Result {
	if !ValidateCoordinates(lat, lon) {
		return invalidCoordinates(lat, lon)
	}

	res := s.geocoder.Resolve(ctx, lat, lon)
	return models.OK("location resolved", models.LocationInfo{
		Province:     res.Address.ProvinceName,
		County:       res.Address.CountyName,
		Neighborhood: res.Address.NeighborhoodName,
		Latitude:     lat,
		Longitude:    lon,
		Degraded:     res.Degraded,
	})
}

// GetNearbyRegions lists the neighborhoods around a coordinate, nearest first
func (s *ActivityRegionService) GetNearbyRegions(ctx context.Context, lat, lon, radiusKm float64, limit int) models.Result {
	if !ValidateCoordinates(lat, lon) {
		return invalidCoordinates(lat, lon)
	}

	regions, err := s.nearby.Find(ctx, lat, lon, radiusKm, limit)
	if err != nil {
		log.Error().Err(err).Msg("service: nearby region lookup failed")
		return models.Fail(err, "failed to find nearby regions")
	}
	return models.OK("nearby regions", regions)
}

func toView(r models.ActivityRegion) models.ActivityRegionView {
	return models.ActivityRegionView{
		ID:             r.ID,
		Province:       r.Neighborhood.Province.Name,
		County:         r.Neighborhood.County.Name,
		Neighborhood:   r.Neighborhood.Name,
		NeighborhoodID: r.NeighborhoodID,
		Priority:       r.Priority,
		IsPrimary:      r.IsPrimary(),
		Latitude:       r.Location.Latitude,
		Longitude:      r.Location.Longitude,
		VerifiedAt:     r.VerifiedAt.Format(time.RFC3339),
		LastVerifiedAt: r.LastVerifiedAt.Format(time.RFC3339),
	}
}

func toViews(regions []models.ActivityRegion) []models.ActivityRegionView {
	views := make([]models.ActivityRegionView, 0, len(regions))
	for _, r := range regions {
		views = append(views, toView(r))
	}
	return views
}
