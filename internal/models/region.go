package models

import "time"

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AdministrativeAddress is the three-level address the SGIS reverse geocoder returns for a coordinate.
// Codes are issued by the authority and used as natural keys.
type AdministrativeAddress struct {
	ProvinceCode     string `json:"sido_cd"`
	ProvinceName     string `json:"sido"`
	CountyCode       string `json:"sgg_cd"`
	CountyName       string `json:"sigungu"`
	NeighborhoodCode string `json:"emd_cd"`
	NeighborhoodName string `json:"eupmyeondong"`
}

// NameKey identifies an address by its names only.
type NameKey struct {
	Province     string
	County       string
	Neighborhood string
}

// Key returns the name triple used for deduplication.
func (a AdministrativeAddress) Key() NameKey {
	return NameKey{Province: a.ProvinceName, County: a.CountyName, Neighborhood: a.NeighborhoodName}
}

type ProvinceRegion struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type CountyRegion struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	ProvinceID int64  `json:"province_id"`
}

// NeighborhoodRegion is the leaf of the hierarchy. CenterPoint is the coordinate that first
// caused the row to be created, not a boundary centroid.
type NeighborhoodRegion struct {
	ID          int64          `json:"id"`
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	CountyID    int64          `json:"county_id"`
	CenterPoint *Point         `json:"center_point,omitempty"`
	Province    ProvinceRegion `json:"province"`
	County      CountyRegion   `json:"county"`
}

// Address rebuilds the administrative address from the loaded hierarchy.
func (n NeighborhoodRegion) Address() AdministrativeAddress {
	return AdministrativeAddress{
		ProvinceCode:     n.Province.Code,
		ProvinceName:     n.Province.Name,
		CountyCode:       n.County.Code,
		CountyName:       n.County.Name,
		NeighborhoodCode: n.Code,
		NeighborhoodName: n.Name,
	}
}

// ActivityRegion binds a user to a neighborhood they verified. Priority 1 is the primary region.
type ActivityRegion struct {
	ID             int64              `json:"id"`
	UserID         int64              `json:"user_id"`
	NeighborhoodID int64              `json:"neighborhood_id"`
	Neighborhood   NeighborhoodRegion `json:"neighborhood"`
	Priority       int                `json:"priority"`
	Location       Point              `json:"location"`
	VerifiedAt     time.Time          `json:"verified_at"`
	LastVerifiedAt time.Time          `json:"last_verified_at"`
}

func (r ActivityRegion) IsPrimary() bool { return r.Priority == 1 }

// NearbyRegion is one entry of a nearby-region lookup.
type NearbyRegion struct {
	Province       string  `json:"sido"`
	County         string  `json:"sigungu"`
	Neighborhood   string  `json:"eupmyeondong"`
	DistanceMeters float64 `json:"distance"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}
