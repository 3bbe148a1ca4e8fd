package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"region-api/internal/models"
	"region-api/internal/sgis"

	"github.com/stretchr/testify/mock"
)

// MockGeocoder is a mock implementation of the Geocoder interface
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Resolve(ctx context.Context, lat, lon float64) sgis.Resolution {
	args := m.Called(ctx, lat, lon)
	return args.Get(0).(sgis.Resolution)
}

// geocoderFunc adapts a function to the Geocoder interface
type geocoderFunc func(ctx context.Context, lat, lon float64) sgis.Resolution

func (f geocoderFunc) Resolve(ctx context.Context, lat, lon float64) sgis.Resolution {
	return f(ctx, lat, lon)
}

// MockNearbyFinder is a mock implementation of the NearbyFinder interface
type MockNearbyFinder struct {
	mock.Mock
}

func (m *MockNearbyFinder) Find(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.NearbyRegion, error) {
	args := m.Called(ctx, lat, lon, radiusKm, limit)
	return args.Get(0).([]models.NearbyRegion), args.Error(1)
}

func seoulAddress(county, countyCode, neighborhood, neighborhoodCode string) models.AdministrativeAddress {
	return models.AdministrativeAddress{
		ProvinceCode:     "11",
		ProvinceName:     "서울특별시",
		CountyCode:       countyCode,
		CountyName:       county,
		NeighborhoodCode: neighborhoodCode,
		NeighborhoodName: neighborhood,
	}
}

// memoryStore is an in-memory ActivityRegionStore. WithUserRegions holds a single lock for
// the whole callback and restores the previous rows when the callback fails.
type memoryStore struct {
	mu sync.Mutex

	nextID        int64
	provinces     map[string]models.ProvinceRegion
	counties      map[string]models.CountyRegion
	neighborhoods map[string]models.NeighborhoodRegion
	regions       []models.ActivityRegion

	ensureErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		provinces:     map[string]models.ProvinceRegion{},
		counties:      map[string]models.CountyRegion{},
		neighborhoods: map[string]models.NeighborhoodRegion{},
	}
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) EnsureHierarchy(_ context.Context, addr models.AdministrativeAddress, center models.Point) (*models.NeighborhoodRegion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensureErr != nil {
		return nil, s.ensureErr
	}

	p, ok := s.provinces[addr.ProvinceCode]
	if !ok {
		p = models.ProvinceRegion{ID: s.id(), Code: addr.ProvinceCode, Name: addr.ProvinceName}
		s.provinces[p.Code] = p
	}
	c, ok := s.counties[addr.CountyCode]
	if !ok {
		c = models.CountyRegion{ID: s.id(), Code: addr.CountyCode, Name: addr.CountyName, ProvinceID: p.ID}
		s.counties[c.Code] = c
	}
	n, ok := s.neighborhoods[addr.NeighborhoodCode]
	if !ok {
		pt := center
		n = models.NeighborhoodRegion{ID: s.id(), Code: addr.NeighborhoodCode, Name: addr.NeighborhoodName, CountyID: c.ID, CenterPoint: &pt, County: c, Province: p}
		s.neighborhoods[n.Code] = n
	}
	return &n, nil
}

func (s *memoryStore) neighborhoodByID(id int64) models.NeighborhoodRegion {
	for _, n := range s.neighborhoods {
		if n.ID == id {
			return n
		}
	}
	return models.NeighborhoodRegion{}
}

func (s *memoryStore) listLocked(userID int64) []models.ActivityRegion {
	out := []models.ActivityRegion{}
	for _, r := range s.regions {
		if r.UserID == userID {
			r.Neighborhood = s.neighborhoodByID(r.NeighborhoodID)
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memoryStore) ListActivityRegions(_ context.Context, userID int64) ([]models.ActivityRegion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(userID), nil
}

func (s *memoryStore) WithUserRegions(_ context.Context, userID int64, fn func(tx ActivityRegionTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := append([]models.ActivityRegion(nil), s.regions...)
	if err := fn(&memoryTx{store: s, userID: userID}); err != nil {
		s.regions = snapshot
		return err
	}
	return nil
}

// rows returns a copy of every stored activity region for the user
func (s *memoryStore) rows(userID int64) []models.ActivityRegion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(userID)
}

type memoryTx struct {
	store  *memoryStore
	userID int64
}

func (t *memoryTx) Regions(context.Context) ([]models.ActivityRegion, error) {
	return t.store.listLocked(t.userID), nil
}

func (t *memoryTx) InsertRegion(_ context.Context, region *models.ActivityRegion) error {
	region.ID = t.store.id()
	region.UserID = t.userID
	t.store.regions = append(t.store.regions, *region)
	return nil
}

func (t *memoryTx) find(regionID int64) *models.ActivityRegion {
	for i := range t.store.regions {
		if t.store.regions[i].ID == regionID && t.store.regions[i].UserID == t.userID {
			return &t.store.regions[i]
		}
	}
	return nil
}

func (t *memoryTx) TouchRegion(_ context.Context, regionID int64, location models.Point, at time.Time) error {
	r := t.find(regionID)
	if r == nil {
		return models.ErrNotFound
	}
	r.Location = location
	r.LastVerifiedAt = at
	return nil
}

func (t *memoryTx) DeleteRegion(_ context.Context, regionID int64) error {
	for i, r := range t.store.regions {
		if r.ID == regionID && r.UserID == t.userID {
			t.store.regions = append(t.store.regions[:i:i], t.store.regions[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (t *memoryTx) SetPriority(_ context.Context, regionID int64, priority int) error {
	r := t.find(regionID)
	if r == nil {
		return models.ErrNotFound
	}
	r.Priority = priority
	return nil
}
