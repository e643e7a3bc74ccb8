package models

import "strings"

// Bounds is a geographic bounding box in the shape the recommendation
// service expects.
type Bounds struct {
	LonMin float64 `json:"lonMin"`
	LatMin float64 `json:"latMin"`
	LonMax float64 `json:"lonMax"`
	LatMax float64 `json:"latMax"`
}

// WorldBounds covers the whole globe.
var WorldBounds = Bounds{LonMin: -180, LatMin: -90, LonMax: 180, LatMax: 90}

// Approximate continental extents.
var continentBounds = map[string]Bounds{
	"africa":        {LonMin: -18.0, LatMin: -35.0, LonMax: 52.0, LatMax: 38.0},
	"antarctica":    {LonMin: -180.0, LatMin: -90.0, LonMax: 180.0, LatMax: -60.0},
	"asia":          {LonMin: 25.0, LatMin: -11.0, LonMax: 180.0, LatMax: 82.0},
	"europe":        {LonMin: -25.0, LatMin: 34.0, LonMax: 45.0, LatMax: 72.0},
	"north america": {LonMin: -170.0, LatMin: 7.0, LonMax: -50.0, LatMax: 84.0},
	"south america": {LonMin: -82.0, LatMin: -56.0, LonMax: -34.0, LatMax: 13.0},
	"oceania":       {LonMin: 110.0, LatMin: -48.0, LonMax: 180.0, LatMax: 0.0},
	"australia":     {LonMin: 112.0, LatMin: -44.0, LonMax: 154.0, LatMax: -10.0},
}

// ContinentBounds looks up a continent by name, ignoring case and
// surrounding whitespace.
func ContinentBounds(name string) (Bounds, bool) {
	b, ok := continentBounds[strings.ToLower(strings.TrimSpace(name))]
	return b, ok
}
