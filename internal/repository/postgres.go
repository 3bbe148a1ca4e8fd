package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"region-api/internal/models"
	"region-api/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements region storage on PostgreSQL with PostGIS
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const neighborhoodColumns = `
	n.id,
	n.code,
	n.name,
	n.county_id,
	ST_Y(n.center_point::geometry) as center_lat,
	ST_X(n.center_point::geometry) as center_lon,
	c.id,
	c.code,
	c.name,
	c.province_id,
	p.id,
	p.code,
	p.name`

const neighborhoodJoins = `
	JOIN county_regions c ON c.id = n.county_id
	JOIN province_regions p ON p.id = c.province_id`

func neighborhoodDest(n *models.NeighborhoodRegion, centerLat, centerLon **float64) []any {
	return []any{
		&n.ID,
		&n.Code,
		&n.Name,
		&n.CountyID,
		centerLat,
		centerLon,
		&n.County.ID,
		&n.County.Code,
		&n.County.Name,
		&n.County.ProvinceID,
		&n.Province.ID,
		&n.Province.Code,
		&n.Province.Name,
	}
}

func setCenter(n *models.NeighborhoodRegion, lat, lon *float64) {
	if lat != nil && lon != nil {
		n.CenterPoint = &models.Point{Latitude: *lat, Longitude: *lon}
	}
}

// EnsureHierarchy upserts province, county and neighborhood for addr in one transaction and
// returns the neighborhood. Names and the center point are only written on creation.
func (r *Repository) EnsureHierarchy(ctx context.Context, addr models.AdministrativeAddress, center models.Point) (*models.NeighborhoodRegion, error) {
	var neighborhood *models.NeighborhoodRegion
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		provinceID, err := upsertByCode(ctx, tx,
			`INSERT INTO province_regions (code, name) VALUES ($1, $2)
			 ON CONFLICT (code) DO NOTHING RETURNING id`,
			`SELECT id FROM province_regions WHERE code = $1`,
			addr.ProvinceCode, addr.ProvinceName)
		if err != nil {
			return fmt.Errorf("province %s: %w", addr.ProvinceCode, err)
		}

		countyID, err := upsertByCode(ctx, tx,
			`INSERT INTO county_regions (code, name, province_id) VALUES ($1, $2, $3)
			 ON CONFLICT (code) DO NOTHING RETURNING id`,
			`SELECT id FROM county_regions WHERE code = $1`,
			addr.CountyCode, addr.CountyName, provinceID)
		if err != nil {
			return fmt.Errorf("county %s: %w", addr.CountyCode, err)
		}

		neighborhoodID, err := upsertByCode(ctx, tx,
			`INSERT INTO neighborhood_regions (code, name, county_id, center_point)
			 VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography)
			 ON CONFLICT (code) DO NOTHING RETURNING id`,
			`SELECT id FROM neighborhood_regions WHERE code = $1`,
			addr.NeighborhoodCode, addr.NeighborhoodName, countyID, center.Longitude, center.Latitude)
		if err != nil {
			return fmt.Errorf("neighborhood %s: %w", addr.NeighborhoodCode, err)
		}

		neighborhood, err = getNeighborhood(ctx, tx, neighborhoodID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to ensure region hierarchy: %w", err)
	}
	return neighborhood, nil
}

// upsertByCode inserts a row keyed by code, or rereads it when another writer got there first.
// The reread is a separate statement so it sees rows committed after the insert's snapshot.
func upsertByCode(ctx context.Context, q querier, insertSQL, selectSQL string, code string, args ...any) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, insertSQL, append([]any{code}, args...)...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	if err := q.QueryRow(ctx, selectSQL, code).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func getNeighborhood(ctx context.Context, q querier, id int64) (*models.NeighborhoodRegion, error) {
	sql := `SELECT` + neighborhoodColumns + `
		FROM neighborhood_regions n` + neighborhoodJoins + `
		WHERE n.id = $1`

	var n models.NeighborhoodRegion
	var lat, lon *float64
	if err := q.QueryRow(ctx, sql, id).Scan(neighborhoodDest(&n, &lat, &lon)...); err != nil {
		return nil, err
	}
	setCenter(&n, lat, lon)
	return &n, nil
}

// SearchNeighborhoods returns neighborhoods whose own, county or province name contains query
func (r *Repository) SearchNeighborhoods(ctx context.Context, query string) ([]models.NeighborhoodRegion, error) {
	sql := `SELECT` + neighborhoodColumns + `
		FROM neighborhood_regions n` + neighborhoodJoins + `
		WHERE n.name ILIKE $1 OR c.name ILIKE $1 OR p.name ILIKE $1
		ORDER BY p.name, c.name, n.name
		LIMIT 10
	`

	rows, err := r.db.Query(ctx, sql, "%"+escapeLike(query)+"%")
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute search query: %w", err)
	}
	defer rows.Close()

	neighborhoods := []models.NeighborhoodRegion{}
	for rows.Next() {
		var n models.NeighborhoodRegion
		var lat, lon *float64
		if err := rows.Scan(neighborhoodDest(&n, &lat, &lon)...); err != nil {
			return nil, fmt.Errorf("repository: failed to scan neighborhood: %w", err)
		}
		setCenter(&n, lat, lon)
		neighborhoods = append(neighborhoods, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}

	return neighborhoods, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

const activityRegionSelect = `
	SELECT
		r.id,
		r.user_id,
		r.neighborhood_id,
		r.priority,
		ST_Y(r.location::geometry) as latitude,
		ST_X(r.location::geometry) as longitude,
		r.verified_at,
		r.last_verified_at,` + neighborhoodColumns + `
	FROM user_activity_regions r
	JOIN neighborhood_regions n ON n.id = r.neighborhood_id` + neighborhoodJoins + `
	WHERE r.user_id = $1
	ORDER BY r.priority, r.id`

func listActivityRegions(ctx context.Context, q querier, userID int64) ([]models.ActivityRegion, error) {
	rows, err := q.Query(ctx, activityRegionSelect, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query activity regions: %w", err)
	}
	defer rows.Close()

	regions := []models.ActivityRegion{}
	for rows.Next() {
		var ar models.ActivityRegion
		var lat, lon *float64
		dest := append([]any{
			&ar.ID,
			&ar.UserID,
			&ar.NeighborhoodID,
			&ar.Priority,
			&ar.Location.Latitude,
			&ar.Location.Longitude,
			&ar.VerifiedAt,
			&ar.LastVerifiedAt,
		}, neighborhoodDest(&ar.Neighborhood, &lat, &lon)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("repository: failed to scan activity region: %w", err)
		}
		setCenter(&ar.Neighborhood, lat, lon)
		regions = append(regions, ar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}

	return regions, nil
}

// ListActivityRegions returns the user's regions ordered by priority
func (r *Repository) ListActivityRegions(ctx context.Context, userID int64) ([]models.ActivityRegion, error) {
	return listActivityRegions(ctx, r.db, userID)
}

// WithUserRegions serializes all writers of one user's region set with a transaction scoped
// advisory lock, so the count check and the insert happen atomically.
func (r *Repository) WithUserRegions(ctx context.Context, userID int64, fn func(tx service.ActivityRegionTx) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
			return fmt.Errorf("repository: failed to lock activity regions: %w", err)
		}
		return fn(&userRegionTx{tx: tx, userID: userID})
	})
}

type userRegionTx struct {
	tx     pgx.Tx
	userID int64
}

func (u *userRegionTx) Regions(ctx context.Context) ([]models.ActivityRegion, error) {
	return listActivityRegions(ctx, u.tx, u.userID)
}

func (u *userRegionTx) InsertRegion(ctx context.Context, region *models.ActivityRegion) error {
	sql := `
		INSERT INTO user_activity_regions
			(user_id, neighborhood_id, priority, location, verified_at, last_verified_at)
		VALUES
			($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7)
		RETURNING id
	`
	err := u.tx.QueryRow(ctx, sql,
		u.userID,
		region.NeighborhoodID,
		region.Priority,
		region.Location.Longitude,
		region.Location.Latitude,
		region.VerifiedAt,
		region.LastVerifiedAt,
	).Scan(&region.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to insert activity region: %w", err)
	}
	region.UserID = u.userID
	return nil
}

func (u *userRegionTx) TouchRegion(ctx context.Context, regionID int64, location models.Point, at time.Time) error {
	sql := `
		UPDATE user_activity_regions
		SET location = ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography,
			last_verified_at = $5
		WHERE id = $1 AND user_id = $2
	`
	tag, err := u.tx.Exec(ctx, sql, regionID, u.userID, location.Longitude, location.Latitude, at)
	if err != nil {
		return fmt.Errorf("repository: failed to update activity region: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (u *userRegionTx) DeleteRegion(ctx context.Context, regionID int64) error {
	tag, err := u.tx.Exec(ctx, `DELETE FROM user_activity_regions WHERE id = $1 AND user_id = $2`, regionID, u.userID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete activity region: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (u *userRegionTx) SetPriority(ctx context.Context, regionID int64, priority int) error {
	tag, err := u.tx.Exec(ctx, `UPDATE user_activity_regions SET priority = $3 WHERE id = $1 AND user_id = $2`, regionID, u.userID, priority)
	if err != nil {
		return fmt.Errorf("repository: failed to update priority: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
