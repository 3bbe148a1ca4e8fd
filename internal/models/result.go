package models

import "errors"

var (
	ErrAuthentication     = errors.New("geocoder authentication failed")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrCapacityExceeded   = errors.New("activity region limit reached")
	ErrNotFound           = errors.New("activity region not found")
)

// Result is the envelope every activity region operation returns. Err is kept for the
// transport layer to pick a status code and is never serialized.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Err     error  `json:"-"`
}

func OK(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

func Fail(err error, message string) Result {
	return Result{Success: false, Message: message, Err: err}
}

// ActivityRegionView is the response shape of a bound region.
type ActivityRegionView struct {
	ID             int64   `json:"id"`
	Province       string  `json:"sido"`
	County         string  `json:"sigungu"`
	Neighborhood   string  `json:"eupmyeondong"`
	NeighborhoodID int64   `json:"neighborhood_id"`
	Priority       int     `json:"priority"`
	IsPrimary      bool    `json:"is_primary"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	VerifiedAt     string  `json:"verified_at"`
	LastVerifiedAt string  `json:"last_verified_at"`
	Degraded       bool    `json:"degraded,omitempty"`
}

// LocationInfo is the read-only resolution of a coordinate.
type LocationInfo struct {
	Province     string  `json:"sido"`
	County       string  `json:"sigungu"`
	Neighborhood string  `json:"eupmyeondong"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Degraded     bool    `json:"degraded"`
}
