package criteria

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimal-sites/planner/internal/models"
)

func allFields(t *testing.T) Fields {
	t.Helper()
	fields, err := NewFields(FieldContinent, FieldPowerPlantType, FieldStartDate, FieldEndDate)
	require.NoError(t, err)
	return fields
}

func TestValidate_Success(t *testing.T) {
	draft := models.Draft{
		Continent:      "Africa",
		PowerPlantType: "solar",
		StartDate:      "2023-01-01",
		EndDate:        "2023-06-01",
	}

	c, err := Validate(draft, allFields(t))
	require.NoError(t, err)

	assert.Equal(t, "Africa", c.Continent)
	assert.Equal(t, models.PlantSolar, c.PowerPlantType)
	assert.Equal(t, models.NewDate(2023, time.January, 1), c.StartDate)
	assert.Equal(t, models.NewDate(2023, time.June, 1), c.EndDate)
}

func TestValidate_InvalidDateRange(t *testing.T) {
	draft := models.Draft{
		Continent:      "Africa",
		PowerPlantType: "solar",
		StartDate:      "2023-06-01",
		EndDate:        "2023-01-01",
	}

	_, err := Validate(draft, allFields(t))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDateRange))
	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidDateRange, verr.Code)
}

func TestValidate_DateOrdering(t *testing.T) {
	base := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	for offset := -3; offset <= 3; offset++ {
		start := base.Format(time.DateOnly)
		end := base.AddDate(0, 0, offset).Format(time.DateOnly)

		t.Run(fmt.Sprintf("offset %d", offset), func(t *testing.T) {
			_, err := Validate(models.Draft{StartDate: start, EndDate: end}, Fields{})
			if offset < 0 {
				assert.ErrorIs(t, err, ErrInvalidDateRange)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_PartialDatesAreAccepted(t *testing.T) {
	tests := []struct {
		name  string
		draft models.Draft
	}{
		{"only start", models.Draft{StartDate: "2023-06-01"}},
		{"only end", models.Draft{EndDate: "2023-01-01"}},
		{"no dates", models.Draft{PowerPlantType: "wind"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.draft, Fields{})
			assert.NoError(t, err)
		})
	}
}

func TestValidate_MissingField(t *testing.T) {
	required, err := NewFields(FieldPowerPlantType)
	require.NoError(t, err)

	_, err = Validate(models.Draft{Continent: "Asia", PowerPlantType: "   "}, required)

	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, CodeMissingField, verr.Code)
	assert.Equal(t, FieldPowerPlantType, verr.Field)
	assert.Equal(t, "powerPlantType is required", verr.Error())
}

func TestValidate_RequiredSetIsConfigurable(t *testing.T) {
	draft := models.Draft{PowerPlantType: "wind"}

	_, err := Validate(draft, Fields{})
	assert.NoError(t, err)

	_, err = Validate(draft, allFields(t))
	assert.Error(t, err)
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		draft models.Draft
		code  string
		field string
	}{
		{"unknown plant type", models.Draft{PowerPlantType: "coal"}, CodeInvalidPlantType, FieldPowerPlantType},
		{"bad start date", models.Draft{StartDate: "June 1st"}, CodeInvalidDate, FieldStartDate},
		{"bad end date", models.Draft{EndDate: "2023-13-01"}, CodeInvalidDate, FieldEndDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.draft, Fields{})
			verr, ok := AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, verr.Code)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	draft := models.Draft{
		Continent:      "Europe",
		PowerPlantType: " Wind ",
		StartDate:      "2022-03-01",
		EndDate:        "2022-03-01",
	}

	first, err := Validate(draft, allFields(t))
	require.NoError(t, err)

	second, err := Validate(first.Draft(), allFields(t))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNewFields_UnknownName(t *testing.T) {
	_, err := NewFields("country")
	assert.Error(t, err)
}
