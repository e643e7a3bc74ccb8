package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	latitudeKeys  = []string{"lat", "latitude"}
	longitudeKeys = []string{"lng", "lon", "longitude"}
)

// Location is a candidate site returned by the recommendation service.
// Keys other than the coordinates are kept verbatim in Metadata.
type Location struct {
	Latitude  float64
	Longitude float64
	Metadata  map[string]json.RawMessage
}

// Validate checks that the coordinates are on the globe.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", l.Longitude)
	}
	return nil
}

// UnmarshalJSON reads lat plus one of lng/lon/longitude; everything else
// becomes metadata.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("location must be an object")
	}

	lat, err := takeCoordinate(raw, latitudeKeys)
	if err != nil {
		return err
	}
	lng, err := takeCoordinate(raw, longitudeKeys)
	if err != nil {
		return err
	}

	l.Latitude = lat
	l.Longitude = lng
	l.Metadata = nil
	if len(raw) > 0 {
		l.Metadata = raw
	}
	return nil
}

// MarshalJSON writes the location as {"lat", "lng", ...metadata}.
func (l Location) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.Metadata)+2)
	for key, value := range l.Metadata {
		out[key] = value
	}
	out["lat"] = l.Latitude
	out["lng"] = l.Longitude
	return json.Marshal(out)
}

// takeCoordinate removes the first present key from raw and decodes it.
func takeCoordinate(raw map[string]json.RawMessage, keys []string) (float64, error) {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(value, &f); err != nil {
			return 0, fmt.Errorf("field %q is not a number", key)
		}
		for _, k := range keys {
			delete(raw, k)
		}
		return f, nil
	}
	return 0, fmt.Errorf("missing coordinate, expected one of %v", keys)
}
