//go:build integration

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"region-api/internal/models"
	"region-api/internal/service"
	"region-api/internal/sgis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupTestDatabase(t *testing.T) *Repository {
	ctx := context.Background()

	// Start PostgreSQL container with PostGIS
	req := testcontainers.ContainerRequest{
		Image:        "postgis/postgis:16-3.4",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		postgresC.Terminate(ctx)
	})

	host, err := postgresC.Host(ctx)
	require.NoError(t, err)

	port, err := postgresC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := "postgres://testuser:testpass@" + host + ":" + port.Port() + "/testdb?sslmode=disable"

	// Connect to database
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
	})

	repo := NewRepository(pool)

	// Create schema twice to check it is idempotent
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	return repo
}

func address(county, countyCode, neighborhood, neighborhoodCode string) models.AdministrativeAddress {
	return models.AdministrativeAddress{
		ProvinceCode:     "11",
		ProvinceName:     "서울특별시",
		CountyCode:       countyCode,
		CountyName:       county,
		NeighborhoodCode: neighborhoodCode,
		NeighborhoodName: neighborhood,
	}
}

type geocoderFunc func(ctx context.Context, lat, lon float64) sgis.Resolution

func (f geocoderFunc) Resolve(ctx context.Context, lat, lon float64) sgis.Resolution {
	return f(ctx, lat, lon)
}

func TestRepository_EnsureHierarchy(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := setupTestDatabase(t)
	ctx := context.Background()
	myeongdong := address("중구", "11020", "명동", "11020550")

	first, err := repo.EnsureHierarchy(ctx, myeongdong, models.Point{Latitude: 37.5636, Longitude: 126.9834})
	require.NoError(t, err)
	assert.Equal(t, "명동", first.Name)
	assert.Equal(t, "중구", first.County.Name)
	assert.Equal(t, "서울특별시", first.Province.Name)
	assert.Equal(t, first.County.ID, first.CountyID)
	require.NotNil(t, first.CenterPoint)
	assert.InDelta(t, 37.5636, first.CenterPoint.Latitude, 1e-9)
	assert.InDelta(t, 126.9834, first.CenterPoint.Longitude, 1e-9)

	t.Run("existing codes keep their rows", func(t *testing.T) {
		renamed := myeongdong
		renamed.NeighborhoodName = "명동1가"

		again, err := repo.EnsureHierarchy(ctx, renamed, models.Point{Latitude: 37.0, Longitude: 127.0})
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, "명동", again.Name)
		assert.InDelta(t, 37.5636, again.CenterPoint.Latitude, 1e-9)
	})

	t.Run("concurrent creators converge", func(t *testing.T) {
		jongno := address("종로구", "11010", "사직동", "11010530")

		var wg sync.WaitGroup
		ids := make([]int64, 8)
		errs := make([]error, 8)
		for i := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := repo.EnsureHierarchy(ctx, jongno, models.Point{Latitude: 37.5759, Longitude: 126.9768})
				errs[i] = err
				if err == nil {
					ids[i] = n.ID
				}
			}()
		}
		wg.Wait()

		for i := range ids {
			require.NoError(t, errs[i])
			assert.Equal(t, ids[0], ids[i])
		}
	})
}

func TestRepository_SearchNeighborhoods(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := setupTestDatabase(t)
	ctx := context.Background()

	for _, addr := range []models.AdministrativeAddress{
		address("중구", "11020", "명동", "11020550"),
		address("중구", "11020", "소공동", "11020520"),
		address("종로구", "11010", "사직동", "11010530"),
	} {
		_, err := repo.EnsureHierarchy(ctx, addr, models.Point{Latitude: 37.56, Longitude: 126.98})
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{name: "search by neighborhood", query: "명동", expected: []string{"명동"}},
		{name: "search by county", query: "중구", expected: []string{"명동", "소공동"}},
		{name: "search by province", query: "서울", expected: []string{"사직동", "명동", "소공동"}},
		{name: "wildcards are literal", query: "%", expected: []string{}},
		{name: "search with no results", query: "없는동", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			neighborhoods, err := repo.SearchNeighborhoods(ctx, tt.query)
			require.NoError(t, err)

			names := []string{}
			for _, n := range neighborhoods {
				names = append(names, n.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestRepository_ActivityRegions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := setupTestDatabase(t)
	ctx := context.Background()

	// each latitude tenth is its own neighborhood
	geocoder := geocoderFunc(func(_ context.Context, lat, _ float64) sgis.Resolution {
		code := fmt.Sprintf("1102050%d", int(lat*10)%10)
		return sgis.Resolution{Address: address("중구", "11020", "동"+code, code)}
	})
	svc := service.NewActivityRegionService(geocoder, repo, nil, 3)

	t.Run("concurrent verifications respect the limit", func(t *testing.T) {
		const userID = 42

		var wg sync.WaitGroup
		results := make([]models.Result, 6)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = svc.VerifyLocation(ctx, userID, 37.0+float64(i)/10+0.01, 127.0)
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, res := range results {
			if res.Success {
				succeeded++
			} else {
				assert.ErrorIs(t, res.Err, models.ErrCapacityExceeded)
			}
		}
		assert.Equal(t, 3, succeeded)

		regions, err := repo.ListActivityRegions(ctx, userID)
		require.NoError(t, err)
		require.Len(t, regions, 3)
		for i, r := range regions {
			assert.Equal(t, i+1, r.Priority)
			assert.Equal(t, "서울특별시", r.Neighborhood.Province.Name)
		}
	})

	t.Run("delete renumbers the rest", func(t *testing.T) {
		const userID = 7

		for _, lat := range []float64{37.01, 37.11, 37.21} {
			require.True(t, svc.VerifyLocation(ctx, userID, lat, 127.0).Success)
		}
		before, err := repo.ListActivityRegions(ctx, userID)
		require.NoError(t, err)

		res := svc.DeleteRegion(ctx, userID, before[0].ID)
		require.True(t, res.Success)

		after, err := repo.ListActivityRegions(ctx, userID)
		require.NoError(t, err)
		require.Len(t, after, 2)
		assert.Equal(t, before[1].ID, after[0].ID)
		assert.Equal(t, 1, after[0].Priority)
		assert.Equal(t, before[2].ID, after[1].ID)
		assert.Equal(t, 2, after[1].Priority)

		// other users cannot touch the row
		res = svc.DeleteRegion(ctx, 8, after[0].ID)
		assert.ErrorIs(t, res.Err, models.ErrNotFound)
	})

	t.Run("failed callback rolls back", func(t *testing.T) {
		const userID = 9
		n, err := repo.EnsureHierarchy(ctx, address("중구", "11020", "명동", "11020550"), models.Point{Latitude: 37.5636, Longitude: 126.9834})
		require.NoError(t, err)

		err = repo.WithUserRegions(ctx, userID, func(tx service.ActivityRegionTx) error {
			now := time.Now()
			region := &models.ActivityRegion{NeighborhoodID: n.ID, Priority: 1, Location: *n.CenterPoint, VerifiedAt: now, LastVerifiedAt: now}
			if err := tx.InsertRegion(ctx, region); err != nil {
				return err
			}
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)

		regions, err := repo.ListActivityRegions(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, regions)
	})

	t.Run("missing rows report not found", func(t *testing.T) {
		err := repo.WithUserRegions(ctx, 10, func(tx service.ActivityRegionTx) error {
			return tx.SetPriority(ctx, 999999, 1)
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
