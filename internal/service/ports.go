package service

import (
	"context"
	"time"

	"region-api/internal/models"
	"region-api/internal/sgis"
)

// Geocoder resolves coordinates to administrative addresses. *sgis.Client implements it.
type Geocoder interface {
	Resolve(ctx context.Context, lat, lon float64) sgis.Resolution
}

// HierarchyStore upserts the shared province/county/neighborhood rows.
type HierarchyStore interface {
	EnsureHierarchy(ctx context.Context, addr models.AdministrativeAddress, center models.Point) (*models.NeighborhoodRegion, error)
}

// ActivityRegionStore persists user activity regions.
type ActivityRegionStore interface {
	HierarchyStore
	ListActivityRegions(ctx context.Context, userID int64) ([]models.ActivityRegion, error)
	// WithUserRegions runs fn in a transaction that holds an exclusive lock on the user's
	// region set. fn's error rolls the transaction back and is returned unchanged.
	WithUserRegions(ctx context.Context, userID int64, fn func(tx ActivityRegionTx) error) error
}

// ActivityRegionTx is the view of one user's regions inside a WithUserRegions transaction.
type ActivityRegionTx interface {
	Regions(ctx context.Context) ([]models.ActivityRegion, error)
	InsertRegion(ctx context.Context, region *models.ActivityRegion) error
	TouchRegion(ctx context.Context, regionID int64, location models.Point, at time.Time) error
	DeleteRegion(ctx context.Context, regionID int64) error
	SetPriority(ctx context.Context, regionID int64, priority int) error
}
