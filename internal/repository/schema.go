package repository

import (
	"context"
	"fmt"
)

// Schema creates the region hierarchy and activity region tables. It is idempotent.
const Schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS province_regions (
	id BIGSERIAL PRIMARY KEY,
	code VARCHAR(20) NOT NULL UNIQUE,
	name VARCHAR(100) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS county_regions (
	id BIGSERIAL PRIMARY KEY,
	code VARCHAR(20) NOT NULL UNIQUE,
	name VARCHAR(100) NOT NULL,
	province_id BIGINT NOT NULL REFERENCES province_regions (id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS neighborhood_regions (
	id BIGSERIAL PRIMARY KEY,
	code VARCHAR(20) NOT NULL UNIQUE,
	name VARCHAR(100) NOT NULL,
	county_id BIGINT NOT NULL REFERENCES county_regions (id),
	center_point GEOGRAPHY(POINT, 4326),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS neighborhood_regions_center_point_idx ON neighborhood_regions USING GIST (center_point);

CREATE TABLE IF NOT EXISTS user_activity_regions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	neighborhood_id BIGINT NOT NULL REFERENCES neighborhood_regions (id),
	priority INTEGER NOT NULL CHECK (priority >= 1),
	location GEOGRAPHY(POINT, 4326) NOT NULL,
	verified_at TIMESTAMPTZ NOT NULL,
	last_verified_at TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, neighborhood_id)
);
CREATE INDEX IF NOT EXISTS user_activity_regions_user_priority_idx ON user_activity_regions (user_id, priority);
`

// EnsureSchema creates missing tables and indexes
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("repository: failed to create schema: %w", err)
	}
	return nil
}
