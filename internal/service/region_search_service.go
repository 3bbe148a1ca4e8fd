package service

import (
	"context"
	"fmt"
	"strings"

	"region-api/internal/models"
)

// RegionSearchService looks up known neighborhoods by name
type RegionSearchService struct {
	repo NeighborhoodSearcher
}

// NeighborhoodSearcher interface for dependency injection
type NeighborhoodSearcher interface {
	SearchNeighborhoods(ctx context.Context, query string) ([]models.NeighborhoodRegion, error)
}

// NewRegionSearchService creates a new region search service
func NewRegionSearchService(repo NeighborhoodSearcher) *RegionSearchService {
	return &RegionSearchService{repo: repo}
}

// Search returns neighborhoods whose neighborhood, county or province name contains query
func (s *RegionSearchService) Search(ctx context.Context, query string) ([]models.NeighborhoodRegion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("service: query cannot be empty")
	}

	neighborhoods, err := s.repo.SearchNeighborhoods(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("service: failed to search neighborhoods: %w", err)
	}

	return neighborhoods, nil
}
