package property

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() InputRecord {
	return InputRecord{
		Suburb:       "Burwood",
		PropertyType: "House",
		ParkingArea:  "Indoor",
		BuildingArea: 150.0,
		Landsize:     500.0,
		YearBuilt:    1990,
		Bedroom:      3,
		Bathroom:     2,
		Latitude:     -37.8,
		Longitude:    145.0,
		SaleDate:     time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestNormalizeSample(t *testing.T) {
	n, err := Normalize(sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, 0.3, n.BuildingDensity)
	assert.Equal(t, 2024, n.Year)
	assert.Equal(t, 6, n.Month)
	assert.Equal(t, 15, n.Day)
	assert.Equal(t, "h", n.TypeCode)
	assert.Equal(t, "2024-06-15", n.SaleDate)
}

func TestTypeCode(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"House", "h"},
		{"Townhouse", "t"},
		{"Unit", "u"},
	}

	for _, tt := range tests {
		got, err := TypeCode(tt.label)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "TypeCode(%q)", tt.label)
	}

	for _, label := range []string{"", "house", "Apartment", "h"} {
		_, err := TypeCode(label)
		assert.ErrorIs(t, err, ErrUnknownPropertyType, "label %q", label)
		assert.ErrorIs(t, err, ErrInvalidInput, "label %q", label)
	}
}

func TestNormalizeRejectsUnknownLabels(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*InputRecord)
	}{
		{"type", func(r *InputRecord) { r.PropertyType = "Villa" }},
		{"suburb", func(r *InputRecord) { r.Suburb = "Richmond" }},
		{"parking", func(r *InputRecord) { r.ParkingArea = "Carport" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sampleRecord()
			tt.mutate(&rec)
			_, err := Normalize(rec)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestBuildingDensity(t *testing.T) {
	tests := []struct {
		name     string
		building float64
		land     float64
		want     float64
	}{
		{"zero land", 150, 0, 0},
		{"negative land", 150, -5, 0},
		{"NaN land", 150, math.NaN(), 0},
		{"overflow", math.MaxFloat64, 1e-300, 0},
		{"sample", 150, 500, 0.3},
		{"upper boundary", 1000, 10, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildingDensity(tt.building, tt.land)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
		})
	}
}

func TestNormalizeZeroLandsize(t *testing.T) {
	rec := sampleRecord()
	rec.Landsize = 0

	n, err := Normalize(rec)
	require.NoError(t, err)
	assert.Equal(t, 0.0, n.BuildingDensity)
}

func TestNormalizeBoundaryDensity(t *testing.T) {
	rec := sampleRecord()
	rec.Landsize = 10.0
	rec.BuildingArea = 1000.0

	n, err := Normalize(rec)
	require.NoError(t, err)
	assert.Equal(t, 100.0, n.BuildingDensity)
}

func TestDateDecompositionRoundTrips(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)
	for day := MinSaleDate; !day.After(MaxSaleDate); day = day.AddDate(0, 0, 1) {
		rec := sampleRecord()
		// local midnight in Melbourne must keep its calendar date
		rec.SaleDate = time.Date(day.Year(), day.Month(), day.Day(), 0, 30, 0, 0, loc)

		n, err := Normalize(rec)
		require.NoError(t, err)

		back := time.Date(n.Year, time.Month(n.Month), n.Day, 0, 0, 0, 0, time.UTC)
		if !back.Equal(day) {
			t.Fatalf("round trip of %s gave %s", day.Format(DateLayout), back.Format(DateLayout))
		}
	}
}

func TestRowLayout(t *testing.T) {
	n, err := Normalize(sampleRecord())
	require.NoError(t, err)

	row := n.Row()
	assert.Equal(t, "h", row.Type)
	assert.Equal(t, "2024-06-15", row.Date)
	assert.Equal(t, float64(PlaceholderPrice), row.Price)
	assert.Equal(t, 145.0, row.Longtitude)
	assert.Equal(t, 0.3, row.BuildingDensity)
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleRecord().Validate())

	tests := []struct {
		name   string
		mutate func(*InputRecord)
	}{
		{"suburb", func(r *InputRecord) { r.Suburb = "Kew" }},
		{"type", func(r *InputRecord) { r.PropertyType = "h" }},
		{"parking", func(r *InputRecord) { r.ParkingArea = "outdoor stall" }},
		{"building area low", func(r *InputRecord) { r.BuildingArea = 9.99 }},
		{"landsize high", func(r *InputRecord) { r.Landsize = 2000.5 }},
		{"landsize zero", func(r *InputRecord) { r.Landsize = 0 }},
		{"year built", func(r *InputRecord) { r.YearBuilt = 2026 }},
		{"bedroom", func(r *InputRecord) { r.Bedroom = 0 }},
		{"bathroom", func(r *InputRecord) { r.Bathroom = 5 }},
		{"latitude", func(r *InputRecord) { r.Latitude = -36.9 }},
		{"longitude", func(r *InputRecord) { r.Longitude = 146.1 }},
		{"date early", func(r *InputRecord) { r.SaleDate = time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC) }},
		{"date late", func(r *InputRecord) { r.SaleDate = time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC) }},
		{"date missing", func(r *InputRecord) { r.SaleDate = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sampleRecord()
			tt.mutate(&rec)
			err := rec.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestValidateAcceptsBounds(t *testing.T) {
	rec := sampleRecord()
	rec.BuildingArea = 1000
	rec.Landsize = 10
	rec.YearBuilt = 1900
	rec.Bedroom = 6
	rec.Bathroom = 1
	rec.Latitude = -38.5
	rec.Longitude = 146.0
	rec.SaleDate = MaxSaleDate

	assert.NoError(t, rec.Validate())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("15/06/2024")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestForm(t *testing.T) {
	form := Form(time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC))

	require.Len(t, form.Choices, 3)
	assert.Equal(t, ParkingAreas, form.Choices[2].Options)
	assert.Equal(t, "2026-10-19", form.Date.Default)

	late := Form(time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2030-12-31", late.Date.Default)

	for _, b := range form.Bounds {
		assert.True(t, b.Min <= b.Default && b.Default <= b.Max, "default of %s out of range", b.Name)
	}
}

func TestRequiredLevels(t *testing.T) {
	levels := RequiredLevels()
	assert.Equal(t, []string{"h", "t", "u"}, levels["Type"])
	assert.Len(t, levels["ParkingArea"], 5)
}
