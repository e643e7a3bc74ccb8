// Package models contains the data models for the application.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PlantType is the kind of power plant a siting search is run for.
type PlantType string

// Recognized plant types.
const (
	PlantWind  PlantType = "wind"
	PlantSolar PlantType = "solar"
)

// PlantTypes lists every recognized plant type.
var PlantTypes = []PlantType{PlantWind, PlantSolar}

// ParsePlantType trims and lower-cases the input before matching it against
// the recognized plant types. The empty string parses to the empty PlantType.
func ParsePlantType(s string) (PlantType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, pt := range PlantTypes {
		if string(pt) == s {
			return pt, nil
		}
	}
	return "", fmt.Errorf("unknown plant type %q", s)
}

// Date is a calendar date without a time of day. The zero value means the
// date was not supplied.
type Date struct {
	t time.Time
}

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date. Blank input yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

// IsZero reports whether the date is absent.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// String formats the date as YYYY-MM-DD, or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(time.DateOnly)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string, or null when absent.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a YYYY-MM-DD string, an empty string or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Draft is the user's in-progress search input, exactly as typed.
type Draft struct {
	Continent      string `json:"continent"`
	PowerPlantType string `json:"powerPlantType"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
}

// DraftPatch carries a partial edit of a Draft. Nil fields are left alone.
type DraftPatch struct {
	Continent      *string `json:"continent,omitempty" binding:"omitempty,max=128"`
	PowerPlantType *string `json:"powerPlantType,omitempty" binding:"omitempty,max=32"`
	StartDate      *string `json:"startDate,omitempty" binding:"omitempty,max=32"`
	EndDate        *string `json:"endDate,omitempty" binding:"omitempty,max=32"`
}

// Apply returns a copy of d with the patch applied.
func (p DraftPatch) Apply(d Draft) Draft {
	if p.Continent != nil {
		d.Continent = *p.Continent
	}
	if p.PowerPlantType != nil {
		d.PowerPlantType = *p.PowerPlantType
	}
	if p.StartDate != nil {
		d.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		d.EndDate = *p.EndDate
	}
	return d
}

// SearchCriteria is a validated search. It holds no reference types, so a
// copy never aliases the draft it was built from.
type SearchCriteria struct {
	Continent      string    `json:"continent"`
	PowerPlantType PlantType `json:"powerPlantType"`
	StartDate      Date      `json:"startDate"`
	EndDate        Date      `json:"endDate"`
}

// Draft renders the criteria back into draft form.
func (c SearchCriteria) Draft() Draft {
	return Draft{
		Continent:      c.Continent,
		PowerPlantType: string(c.PowerPlantType),
		StartDate:      c.StartDate.String(),
		EndDate:        c.EndDate.String(),
	}
}
