package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrLoad marks a reference dataset that could not be read or parsed
	ErrLoad = errors.New("reference dataset load failed")
	// ErrCoverage marks a reference dataset missing an enumerated category level
	ErrCoverage = errors.New("reference dataset does not cover every category level")
)

// Column names of the reference table. "Longtitude" is spelled the way the
// historical dataset spells it.
const (
	ColSuburb          = "Suburb"
	ColType            = "Type"
	ColDate            = "Date"
	ColBedroom         = "Bedroom"
	ColBathroom        = "Bathroom"
	ColLandsize        = "Landsize"
	ColBuildingArea    = "BuildingArea"
	ColYearBuilt       = "YearBuilt"
	ColLatitude        = "Latitude"
	ColLongtitude      = "Longtitude"
	ColParkingArea     = "ParkingArea"
	ColPrice           = "Price"
	ColYear            = "Year"
	ColMonth           = "Month"
	ColDay             = "Day"
	ColBuildingDensity = "BuildingDensity"
)

// Columns is the reference schema in table order
var Columns = []string{
	ColSuburb, ColType, ColDate, ColBedroom, ColBathroom, ColLandsize, ColBuildingArea,
	ColYearBuilt, ColLatitude, ColLongtitude, ColParkingArea, ColPrice, ColYear, ColMonth,
	ColDay, ColBuildingDensity,
}

// CategoricalColumns are the one-hot encoded columns
var CategoricalColumns = []string{ColSuburb, ColType, ColParkingArea}

// Row is one property observation in the reference schema
type Row struct {
	Suburb          string
	Type            string
	Date            string
	Bedroom         float64
	Bathroom        float64
	Landsize        float64
	BuildingArea    float64
	YearBuilt       float64
	Latitude        float64
	Longtitude      float64
	ParkingArea     string
	Price           float64
	Year            float64
	Month           float64
	Day             float64
	BuildingDensity float64
}

// IsText reports whether the column holds strings rather than numbers
func IsText(column string) bool {
	switch column {
	case ColSuburb, ColType, ColDate, ColParkingArea:
		return true
	}
	return false
}

// Text returns the value of a string column
func (r *Row) Text(column string) (string, bool) {
	switch column {
	case ColSuburb:
		return r.Suburb, true
	case ColType:
		return r.Type, true
	case ColDate:
		return r.Date, true
	case ColParkingArea:
		return r.ParkingArea, true
	}
	return "", false
}

// Number returns the value of a numeric column
func (r *Row) Number(column string) (float64, bool) {
	switch column {
	case ColBedroom:
		return r.Bedroom, true
	case ColBathroom:
		return r.Bathroom, true
	case ColLandsize:
		return r.Landsize, true
	case ColBuildingArea:
		return r.BuildingArea, true
	case ColYearBuilt:
		return r.YearBuilt, true
	case ColLatitude:
		return r.Latitude, true
	case ColLongtitude:
		return r.Longtitude, true
	case ColPrice:
		return r.Price, true
	case ColYear:
		return r.Year, true
	case ColMonth:
		return r.Month, true
	case ColDay:
		return r.Day, true
	case ColBuildingDensity:
		return r.BuildingDensity, true
	}
	return 0, false
}

func (r *Row) setText(column, value string) {
	switch column {
	case ColSuburb:
		r.Suburb = value
	case ColType:
		r.Type = value
	case ColDate:
		r.Date = value
	case ColParkingArea:
		r.ParkingArea = value
	}
}

func (r *Row) setNumber(column string, value float64) {
	switch column {
	case ColBedroom:
		r.Bedroom = value
	case ColBathroom:
		r.Bathroom = value
	case ColLandsize:
		r.Landsize = value
	case ColBuildingArea:
		r.BuildingArea = value
	case ColYearBuilt:
		r.YearBuilt = value
	case ColLatitude:
		r.Latitude = value
	case ColLongtitude:
		r.Longtitude = value
	case ColPrice:
		r.Price = value
	case ColYear:
		r.Year = value
	case ColMonth:
		r.Month = value
	case ColDay:
		r.Day = value
	case ColBuildingDensity:
		r.BuildingDensity = value
	}
}

// Dataset is a read-only table of historical observations
type Dataset struct {
	Source string
	Rows   []Row
}

// Load reads a reference dataset, choosing the reader from the file extension
func Load(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(path)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrLoad, path)
	}
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Levels returns the sorted distinct values of a text column
func (d *Dataset) Levels(column string) []string {
	seen := make(map[string]struct{})
	for i := range d.Rows {
		if v, ok := d.Rows[i].Text(column); ok {
			seen[v] = struct{}{}
		}
	}

	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)
	return levels
}

// CheckCoverage verifies that every required level of every column occurs at
// least once in the dataset.
func (d *Dataset) CheckCoverage(required map[string][]string) error {
	columns := make([]string, 0, len(required))
	for col := range required {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var missing []string
	for _, col := range columns {
		present := make(map[string]bool)
		for _, lvl := range d.Levels(col) {
			present[lvl] = true
		}
		for _, lvl := range required[col] {
			if !present[lvl] {
				missing = append(missing, col+"="+lvl)
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s missing %s", ErrCoverage, d.Source, strings.Join(missing, ", "))
	}
	return nil
}
