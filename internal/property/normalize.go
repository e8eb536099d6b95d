package property

import (
	"fmt"
	"math"
	"slices"

	"github.com/kartoza/house-price-estimator/internal/dataset"
)

// PlaceholderPrice fills the Price column of an input row. It is dropped
// before prediction.
const PlaceholderPrice = 999

// ErrUnknownPropertyType marks a label missing from the type code table
var ErrUnknownPropertyType = fmt.Errorf("%w: unknown property type", ErrInvalidInput)

var typeCodes = map[string]string{
	"House":     "h",
	"Townhouse": "t",
	"Unit":      "u",
}

// TypeCode maps a property type label to its dataset code
func TypeCode(label string) (string, error) {
	code, ok := typeCodes[label]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownPropertyType, label)
	}
	return code, nil
}

// TypeCodes returns the dataset codes in label order
func TypeCodes() []string {
	codes := make([]string, len(PropertyTypes))
	for i, label := range PropertyTypes {
		codes[i] = typeCodes[label]
	}
	return codes
}

// RequiredLevels lists, per categorical dataset column, the values a
// reference dataset must contain for every form choice to be encodable.
func RequiredLevels() map[string][]string {
	return map[string][]string{
		dataset.ColSuburb:      slices.Clone(Suburbs),
		dataset.ColType:        TypeCodes(),
		dataset.ColParkingArea: slices.Clone(ParkingAreas),
	}
}

// NormalizedRecord is an InputRecord in dataset terms plus derived fields
type NormalizedRecord struct {
	Suburb          string
	TypeCode        string
	ParkingArea     string
	SaleDate        string
	Bedroom         int
	Bathroom        int
	Landsize        float64
	BuildingArea    float64
	YearBuilt       int
	Latitude        float64
	Longitude       float64
	Year            int
	Month           int
	Day             int
	BuildingDensity float64
}

// Normalize remaps labels to dataset codes and derives the calendar parts and
// building density. Range checks are left to Validate.
func Normalize(in InputRecord) (NormalizedRecord, error) {
	code, err := TypeCode(in.PropertyType)
	if err != nil {
		return NormalizedRecord{}, err
	}
	if !slices.Contains(Suburbs, in.Suburb) {
		return NormalizedRecord{}, fmt.Errorf("%w: unknown suburb %q", ErrInvalidInput, in.Suburb)
	}
	if !slices.Contains(ParkingAreas, in.ParkingArea) {
		return NormalizedRecord{}, fmt.Errorf("%w: unknown parking area %q", ErrInvalidInput, in.ParkingArea)
	}

	date := CivilDate(in.SaleDate)
	year, month, day := date.Date()

	return NormalizedRecord{
		Suburb:          in.Suburb,
		TypeCode:        code,
		ParkingArea:     in.ParkingArea,
		SaleDate:        date.Format(DateLayout),
		Bedroom:         in.Bedroom,
		Bathroom:        in.Bathroom,
		Landsize:        in.Landsize,
		BuildingArea:    in.BuildingArea,
		YearBuilt:       in.YearBuilt,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		Year:            year,
		Month:           int(month),
		Day:             day,
		BuildingDensity: BuildingDensity(in.BuildingArea, in.Landsize),
	}, nil
}

// BuildingDensity is building area over land size, or 0 when land size is
// not positive or the quotient is not finite.
func BuildingDensity(buildingArea, landsize float64) float64 {
	if !(landsize > 0) {
		return 0
	}
	d := buildingArea / landsize
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

// Row lays the record out in the reference schema
func (n NormalizedRecord) Row() dataset.Row {
	return dataset.Row{
		Suburb:          n.Suburb,
		Type:            n.TypeCode,
		Date:            n.SaleDate,
		Bedroom:         float64(n.Bedroom),
		Bathroom:        float64(n.Bathroom),
		Landsize:        n.Landsize,
		BuildingArea:    n.BuildingArea,
		YearBuilt:       float64(n.YearBuilt),
		Latitude:        n.Latitude,
		Longtitude:      n.Longitude,
		ParkingArea:     n.ParkingArea,
		Price:           PlaceholderPrice,
		Year:            float64(n.Year),
		Month:           float64(n.Month),
		Day:             float64(n.Day),
		BuildingDensity: n.BuildingDensity,
	}
}
