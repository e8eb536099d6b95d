package property

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput marks an input record outside the form's contract
var ErrInvalidInput = errors.New("invalid input")

// DateLayout is the wire and dataset format of calendar dates
const DateLayout = "2006-01-02"

// Closed enumerations offered by the form
var (
	Suburbs       = []string{"Burwood", "Camberwell", "Doncaster"}
	PropertyTypes = []string{"House", "Townhouse", "Unit"}
	ParkingAreas  = []string{"Indoor", "Outdoor stall", "Parkade", "Underground", "Parking pad"}
)

// Sale dates accepted by the form
var (
	MinSaleDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxSaleDate = time.Date(2030, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// InputRecord is one set of form values
type InputRecord struct {
	Suburb       string    `validate:"suburb"`
	PropertyType string    `validate:"property_type"`
	ParkingArea  string    `validate:"parking_area"`
	BuildingArea float64   `validate:"gte=10,lte=1000"`
	Landsize     float64   `validate:"gte=10,lte=2000"`
	YearBuilt    int       `validate:"gte=1900,lte=2025"`
	Bedroom      int       `validate:"gte=1,lte=6"`
	Bathroom     int       `validate:"gte=1,lte=4"`
	Latitude     float64   `validate:"gte=-38.5,lte=-37"`
	Longitude    float64   `validate:"gte=144.5,lte=146"`
	SaleDate     time.Time
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	enums := map[string][]string{
		"suburb":        Suburbs,
		"property_type": PropertyTypes,
		"parking_area":  ParkingAreas,
	}
	for tag, values := range enums {
		values := values
		// registration only fails on an empty tag or nil func
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return slices.Contains(values, fl.Field().String())
		})
	}
	return v
}

// Validate checks every field against the enumerations and bounds of the form
func (r InputRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%v)", fe.Field(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	day := CivilDate(r.SaleDate)
	if day.Before(MinSaleDate) || day.After(MaxSaleDate) {
		return fmt.Errorf("%w: SaleDate %s outside %s..%s", ErrInvalidInput,
			day.Format(DateLayout), MinSaleDate.Format(DateLayout), MaxSaleDate.Format(DateLayout))
	}
	return nil
}

// CivilDate drops the clock and location of t, keeping its calendar date
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: sale date %q: %w", ErrInvalidInput, s, err)
	}
	return t, nil
}
