package geo

import "math"

// KmPerDegree is the flat-earth length of one degree of latitude.
const KmPerDegree = 111.0

// Direction is a unit offset on the (north, east) plane.
type Direction struct {
	Name  string
	North float64
	East  float64
}

var (
	// Directions sampled around the center, in query order.
	Directions = []Direction{
		{Name: "east", East: 1},
		{Name: "north", North: 1},
		{Name: "west", East: -1},
		{Name: "south", North: -1},
	}

	// StepsKm are the sampled distances from the center.
	StepsKm = []float64{1, 2}
)

// SamplePoint is a coordinate to reverse geocode and its distance from the center.
type SamplePoint struct {
	Latitude       float64
	Longitude      float64
	DistanceMeters float64
}

// Plan returns at most len(Directions)*len(StepsKm) points around the center. Steps longer
// than radiusKm are skipped; if the radius is shorter than every step, the radius itself is
// the only step. Points outside valid coordinate bounds are dropped.
func Plan(lat, lon, radiusKm float64) []SamplePoint {
	if radiusKm <= 0 {
		return nil
	}

	steps := make([]float64, 0, len(StepsKm))
	for _, s := range StepsKm {
		if s <= radiusKm {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		steps = append(steps, radiusKm)
	}

	kmPerLonDegree := KmPerDegree * math.Cos(lat*math.Pi/180)

	points := make([]SamplePoint, 0, len(steps)*len(Directions))
	for _, step := range steps {
		for _, d := range Directions {
			p := SamplePoint{
				Latitude:       lat + d.North*step/KmPerDegree,
				Longitude:      lon,
				DistanceMeters: step * 1000,
			}
			if d.East != 0 {
				// no meaningful east/west offset at the poles
				if kmPerLonDegree < 1e-9 {
					continue
				}
				p.Longitude = lon + d.East*step/kmPerLonDegree
			}
			if !ValidCoordinate(p.Latitude, p.Longitude) {
				continue
			}
			points = append(points, p)
		}
	}
	return points
}

// ValidCoordinate reports whether lat and lon are finite and in WGS84 range.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
