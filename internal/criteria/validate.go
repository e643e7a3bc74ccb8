// Package criteria turns a user's draft into validated search criteria.
package criteria

import (
	"errors"
	"fmt"
	"strings"

	"github.com/optimal-sites/planner/internal/models"
)

// Draft field names, as used in configuration and error responses.
const (
	FieldContinent      = "continent"
	FieldPowerPlantType = "powerPlantType"
	FieldStartDate      = "startDate"
	FieldEndDate        = "endDate"
)

// Validation error codes.
const (
	CodeMissingField     = "missing_field"
	CodeInvalidDateRange = "invalid_date_range"
	CodeInvalidPlantType = "invalid_plant_type"
	CodeInvalidDate      = "invalid_date"
)

// ErrInvalidDateRange is matched by errors.Is for a start date after the end date.
var ErrInvalidDateRange = &ValidationError{Code: CodeInvalidDateRange}

// ValidationError reports why a draft cannot be submitted.
type ValidationError struct {
	Code   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch e.Code {
	case CodeMissingField:
		return fmt.Sprintf("%s is required", e.Field)
	case CodeInvalidDateRange:
		return "start date must not be after end date"
	default:
		if e.Reason != "" {
			return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
		}
		return fmt.Sprintf("invalid %s", e.Field)
	}
}

// Is matches validation errors by code.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

// Fields is the set of draft fields that must be filled in.
type Fields map[string]struct{}

// NewFields builds a Fields set, rejecting names that are not draft fields.
func NewFields(names ...string) (Fields, error) {
	fields := make(Fields, len(names))
	for _, name := range names {
		switch name {
		case FieldContinent, FieldPowerPlantType, FieldStartDate, FieldEndDate:
			fields[name] = struct{}{}
		default:
			return nil, fmt.Errorf("unknown required field %q", name)
		}
	}
	return fields, nil
}

// Has reports whether name is required.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Validate checks a draft and converts it into SearchCriteria. Only the
// fields named in required are checked for presence.
func Validate(draft models.Draft, required Fields) (models.SearchCriteria, error) {
	values := []struct {
		name  string
		value string
	}{
		{FieldContinent, draft.Continent},
		{FieldPowerPlantType, draft.PowerPlantType},
		{FieldStartDate, draft.StartDate},
		{FieldEndDate, draft.EndDate},
	}
	for _, v := range values {
		if required.Has(v.name) && strings.TrimSpace(v.value) == "" {
			return models.SearchCriteria{}, &ValidationError{Code: CodeMissingField, Field: v.name}
		}
	}

	plantType, err := models.ParsePlantType(draft.PowerPlantType)
	if err != nil {
		return models.SearchCriteria{}, &ValidationError{Code: CodeInvalidPlantType, Field: FieldPowerPlantType, Reason: err.Error()}
	}

	start, err := models.ParseDate(draft.StartDate)
	if err != nil {
		return models.SearchCriteria{}, &ValidationError{Code: CodeInvalidDate, Field: FieldStartDate, Reason: err.Error()}
	}
	end, err := models.ParseDate(draft.EndDate)
	if err != nil {
		return models.SearchCriteria{}, &ValidationError{Code: CodeInvalidDate, Field: FieldEndDate, Reason: err.Error()}
	}

	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return models.SearchCriteria{}, &ValidationError{Code: CodeInvalidDateRange}
	}

	return models.SearchCriteria{
		Continent:      draft.Continent,
		PowerPlantType: plantType,
		StartDate:      start,
		EndDate:        end,
	}, nil
}

// AsValidationError extracts a ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
