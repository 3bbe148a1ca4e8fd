package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"region-api/internal/geo"
	"region-api/internal/metrics"
	"region-api/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultNearbyRadiusKm = 10.0
	DefaultNearbyLimit    = 10
	SignupNearbyRadiusKm  = 5.0
	SignupNearbyLimit     = 5
)

// NearbyOptions bounds the sample fan-out.
type NearbyOptions struct {
	Workers     int
	TaskTimeout time.Duration
	Deadline    time.Duration
}

// DefaultNearbyOptions matches the production fan-out: four workers, 4s per point, 10s overall.
func DefaultNearbyOptions() NearbyOptions {
	return NearbyOptions{Workers: 4, TaskTimeout: 4 * time.Second, Deadline: 10 * time.Second}
}

// NearbyRegionService finds the distinct neighborhoods at and around a coordinate
type NearbyRegionService struct {
	geocoder Geocoder
	opts     NearbyOptions
}

// NewNearbyRegionService creates a new nearby region service
func NewNearbyRegionService(geocoder Geocoder, opts NearbyOptions) *NearbyRegionService {
	defaults := DefaultNearbyOptions()
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = defaults.TaskTimeout
	}
	if opts.Deadline <= 0 {
		opts.Deadline = defaults.Deadline
	}
	return &NearbyRegionService{geocoder: geocoder, opts: opts}
}

// Find resolves the center and the planned sample points, then returns the regions found
// ordered by distance. The first element is always the center itself at distance 0. A region
// seen at several points keeps the distance of the first point in sample order.
func (s *NearbyRegionService) Find(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.NearbyRegion, error) {
	if !geo.ValidCoordinate(lat, lon) {
		return nil, fmt.Errorf("service: %w: (%f, %f)", models.ErrInvalidCoordinates, lat, lon)
	}
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}

	t0 := time.Now()
	defer func() {
		metrics.NearbyDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Deadline)
	defer cancel()

	center := s.geocoder.Resolve(ctx, lat, lon)
	found := []models.NearbyRegion{toNearby(center.Address, lat, lon, 0)}

	samples := geo.Plan(lat, lon, radiusKm)
	results := make([]*models.NearbyRegion, len(samples))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, p := range samples {
		g.Go(func() error {
			results[i] = s.resolveSample(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r != nil {
			found = append(found, *r)
		}
	}

	regions := dedupe(found)
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].DistanceMeters < regions[j].DistanceMeters
	})
	if len(regions) > limit {
		regions = regions[:limit]
	}
	return regions, nil
}

// resolveSample returns nil when the point could not be resolved in time.
func (s *NearbyRegionService) resolveSample(ctx context.Context, p geo.SamplePoint) (region *models.NearbyRegion) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Float64("lat", p.Latitude).Float64("lon", p.Longitude).Msg("service: sample point lookup panicked")
			metrics.NearbyDroppedPointsTotal.Inc()
			region = nil
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, s.opts.TaskTimeout)
	defer cancel()

	res := s.geocoder.Resolve(taskCtx, p.Latitude, p.Longitude)
	if taskCtx.Err() != nil || (res.Degraded && isContextError(res.Cause)) {
		log.Warn().Err(res.Cause).Float64("lat", p.Latitude).Float64("lon", p.Longitude).Msg("service: dropped sample point")
		metrics.NearbyDroppedPointsTotal.Inc()
		return nil
	}

	r := toNearby(res.Address, p.Latitude, p.Longitude, p.DistanceMeters)
	return &r
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func dedupe(regions []models.NearbyRegion) []models.NearbyRegion {
	seen := make(map[models.NameKey]struct{}, len(regions))
	out := make([]models.NearbyRegion, 0, len(regions))
	for _, r := range regions {
		key := models.NameKey{Province: r.Province, County: r.County, Neighborhood: r.Neighborhood}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func toNearby(addr models.AdministrativeAddress, lat, lon, distance float64) models.NearbyRegion {
	return models.NearbyRegion{
		Province:       addr.ProvinceName,
		County:         addr.CountyName,
		Neighborhood:   addr.NeighborhoodName,
		DistanceMeters: distance,
		Latitude:       lat,
		Longitude:      lon,
	}
}
