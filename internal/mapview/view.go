// Package mapview projects candidate sites onto the map drawn by the
// browser's map library.
package mapview

import (
	"bytes"
	"encoding/json"
	"fmt"

	geojson "github.com/paulmach/go.geojson"

	"github.com/optimal-sites/planner/internal/config"
	"github.com/optimal-sites/planner/internal/models"
)

// LatLng is a map coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Viewport is the initial camera of the base map.
type Viewport struct {
	Center LatLng  `json:"center"`
	Zoom   float64 `json:"zoom"`
}

// ViewportFromConfig reads the configured initial viewport.
func ViewportFromConfig(cfg *config.Config) Viewport {
	return Viewport{
		Center: LatLng{Lat: cfg.MapCenterLat, Lng: cfg.MapCenterLng},
		Zoom:   cfg.MapZoom,
	}
}

// Marker is one site placed on the map. Key is stable for the position the
// site holds in the result list.
type Marker struct {
	Key      string                     `json:"key"`
	Position LatLng                     `json:"position"`
	Content  map[string]json.RawMessage `json:"content,omitempty"`
}

// Scene is everything the map needs to draw from scratch.
type Scene struct {
	Viewport Viewport `json:"viewport"`
	Markers  []Marker `json:"markers"`
}

// Patch is the difference between two renders.
type Patch struct {
	Added     []Marker `json:"added"`
	Updated   []Marker `json:"updated"`
	Removed   []string `json:"removed"`
	Unchanged int      `json:"unchanged"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.Added) == 0 && len(p.Updated) == 0 && len(p.Removed) == 0
}

// MarkerKey returns the key of the marker at index i.
func MarkerKey(i int) string {
	return fmt.Sprintf("site-%d", i)
}

// Markers places one marker per location. Duplicate coordinates stay
// distinct markers.
func Markers(locations []models.Location) []Marker {
	markers := make([]Marker, len(locations))
	for i, loc := range locations {
		markers[i] = Marker{
			Key:      MarkerKey(i),
			Position: LatLng{Lat: loc.Latitude, Lng: loc.Longitude},
			Content:  loc.Metadata,
		}
	}
	return markers
}

// SceneFor builds a full scene without tracking previous renders.
func SceneFor(viewport Viewport, locations []models.Location) Scene {
	return Scene{Viewport: viewport, Markers: Markers(locations)}
}

// View remembers what one map consumer has already drawn so that renders
// only touch markers that changed. A View is owned by a single goroutine.
type View struct {
	viewport Viewport
	markers  []Marker
}

// NewView creates a View with nothing drawn yet.
func NewView(viewport Viewport) *View {
	return &View{viewport: viewport, markers: []Marker{}}
}

// Render replaces the drawn markers with those for locations and returns
// what changed.
func (v *View) Render(locations []models.Location) Patch {
	next := Markers(locations)
	patch := diff(v.markers, next)
	v.markers = next
	return patch
}

// Scene returns the viewport and the markers drawn so far.
func (v *View) Scene() Scene {
	markers := make([]Marker, len(v.markers))
	copy(markers, v.markers)
	return Scene{Viewport: v.viewport, Markers: markers}
}

// FeatureCollection returns the drawn markers as GeoJSON points.
func (v *View) FeatureCollection() *geojson.FeatureCollection {
	return FeatureCollection(v.markers)
}

// FeatureCollection converts markers into GeoJSON point features keyed by
// marker key.
func FeatureCollection(markers []Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewPointFeature([]float64{m.Position.Lng, m.Position.Lat})
		f.ID = m.Key
		for key, value := range m.Content {
			f.SetProperty(key, value)
		}
		fc.AddFeature(f)
	}
	return fc
}

func diff(prev, next []Marker) Patch {
	patch := Patch{Added: []Marker{}, Updated: []Marker{}, Removed: []string{}}

	for i, m := range next {
		switch {
		case i >= len(prev):
			patch.Added = append(patch.Added, m)
		case sameMarker(prev[i], m):
			patch.Unchanged++
		default:
			patch.Updated = append(patch.Updated, m)
		}
	}
	for i := len(next); i < len(prev); i++ {
		patch.Removed = append(patch.Removed, prev[i].Key)
	}
	return patch
}

func sameMarker(a, b Marker) bool {
	if a.Key != b.Key || a.Position != b.Position || len(a.Content) != len(b.Content) {
		return false
	}
	for key, value := range a.Content {
		other, ok := b.Content[key]
		if !ok || !bytes.Equal(value, other) {
			return false
		}
	}
	return true
}
