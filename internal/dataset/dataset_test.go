package dataset_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/house-price-estimator/internal/dataset"
	"github.com/kartoza/house-price-estimator/internal/dataset/datasettest"
)

var fullCoverage = map[string][]string{
	dataset.ColSuburb:      {"Burwood", "Camberwell", "Doncaster"},
	dataset.ColType:        {"h", "t", "u"},
	dataset.ColParkingArea: {"Indoor", "Outdoor stall", "Parkade", "Underground", "Parking pad"},
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := datasettest.WriteCSV(t, dir, "prepared_data.csv", datasettest.Rows())

	ds, err := dataset.Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, ds.Source)
	assert.Equal(t, datasettest.Rows(), ds.Rows)
}

func TestReadCSVColumnOrderIndependent(t *testing.T) {
	content := strings.Join([]string{
		",Price,Suburb,Type,Date,Bedroom,Bathroom,Landsize,BuildingArea,YearBuilt,Latitude,Longtitude,ParkingArea,Year,Month,Day,BuildingDensity",
		"0,900000,Burwood,h,2016-03-12,3,2,500,150,1990,-37.8,145.0,Outdoor stall,2016,3,12,0.3",
	}, "\n")

	ds, err := dataset.ReadCSV(strings.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	row := ds.Rows[0]
	assert.Equal(t, "Outdoor stall", row.ParkingArea)
	assert.Equal(t, 900000.0, row.Price)
	assert.Equal(t, 0.3, row.BuildingDensity)
}

func TestReadCSVErrors(t *testing.T) {
	header := strings.Join(dataset.Columns, ",")
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"header only", header},
		{"missing column", strings.Replace(header, "Longtitude", "Longitude", 1) + "\n"},
		{"bad number", header + "\nBurwood,h,2016-03-12,three,2,500,150,1990,-37.8,145.0,Indoor,1,2016,3,12,0.3"},
		{"infinite density", header + "\nBurwood,h,2016-03-12,3,2,0,150,1990,-37.8,145.0,Indoor,1,2016,3,12,inf"},
		{"positive infinity", header + "\nBurwood,h,2016-03-12,3,2,0,150,1990,-37.8,145.0,Indoor,1,2016,3,12,+Inf"},
		{"nan landsize", header + "\nBurwood,h,2016-03-12,3,2,NaN,150,1990,-37.8,145.0,Indoor,1,2016,3,12,0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dataset.ReadCSV(strings.NewReader(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsNonFiniteValues(t *testing.T) {
	rows := datasettest.Rows()
	rows[2].BuildingDensity = math.Inf(1)
	dir := t.TempDir()

	for _, path := range []string{
		datasettest.WriteCSV(t, dir, "inf.csv", rows),
		datasettest.WriteSQLite(t, dir, "inf.db", rows),
	} {
		_, err := dataset.Load(path)
		require.Error(t, err, path)
		assert.ErrorIs(t, err, dataset.ErrLoad, path)
		assert.Contains(t, err.Error(), dataset.ColBuildingDensity, path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"missing.csv", "missing.db"} {
		_, err := dataset.Load(filepath.Join(dir, name))
		require.Error(t, err)
		assert.True(t, errors.Is(err, dataset.ErrLoad), "expected ErrLoad for %s, got %v", name, err)
		assert.True(t, errors.Is(err, os.ErrNotExist), "expected not-exist cause for %s", name)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := dataset.Load("prepared_data.parquet")
	assert.ErrorIs(t, err, dataset.ErrLoad)
}

func TestLoadSQLite(t *testing.T) {
	dir := t.TempDir()
	path := datasettest.WriteSQLite(t, dir, "prepared_data.db", datasettest.Rows())

	ds, err := dataset.Load(path)
	require.NoError(t, err)

	assert.Equal(t, datasettest.Rows(), ds.Rows)
}

func TestLoadSQLiteEmptyTable(t *testing.T) {
	dir := t.TempDir()
	path := datasettest.WriteSQLite(t, dir, "empty.sqlite", nil)

	_, err := dataset.Load(path)
	assert.ErrorIs(t, err, dataset.ErrLoad)
}

func TestLevels(t *testing.T) {
	ds := datasettest.Dataset()

	assert.Equal(t, []string{"Burwood", "Camberwell", "Doncaster"}, ds.Levels(dataset.ColSuburb))
	assert.Equal(t, []string{"h", "t", "u"}, ds.Levels(dataset.ColType))
	assert.Equal(t,
		[]string{"Indoor", "Outdoor stall", "Parkade", "Parking pad", "Underground"},
		ds.Levels(dataset.ColParkingArea))
	assert.Empty(t, ds.Levels(dataset.ColBedroom))
}

func TestCheckCoverage(t *testing.T) {
	ds := datasettest.Dataset()
	require.NoError(t, ds.CheckCoverage(fullCoverage))

	// drop the only Parkade and the only unit
	partial := &dataset.Dataset{Source: "partial"}
	for _, row := range ds.Rows {
		if row.ParkingArea == "Parkade" {
			continue
		}
		partial.Rows = append(partial.Rows, row)
	}

	err := partial.CheckCoverage(fullCoverage)
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrCoverage)
	assert.Contains(t, err.Error(), "ParkingArea=Parkade")
	assert.Contains(t, err.Error(), "Type=u")
}
