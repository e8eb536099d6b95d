// Package datasettest provides small reference datasets for tests.
package datasettest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kartoza/house-price-estimator/internal/dataset"
)

// Rows returns six observations that cover every suburb, type code and
// parking area level at least once. Their bedroom counts average to 3.
func Rows() []dataset.Row {
	return []dataset.Row{
		row("Burwood", "h", "Indoor", "2016-03-12", 2, 1, 600, 140, 1975, -37.85, 145.11, 1150000),
		row("Camberwell", "t", "Outdoor stall", "2017-07-01", 4, 2, 320, 190, 2004, -37.84, 145.07, 1420000),
		row("Doncaster", "u", "Parkade", "2018-11-24", 3, 2, 0, 95, 2012, -37.78, 145.13, 640000),
		row("Burwood", "t", "Underground", "2019-02-09", 3, 2, 250, 160, 2009, -37.86, 145.10, 980000),
		row("Camberwell", "h", "Parking pad", "2016-09-17", 2, 1, 720, 175, 1938, -37.83, 145.06, 2350000),
		row("Doncaster", "h", "Indoor", "2017-05-20", 4, 3, 690, 260, 1996, -37.79, 145.14, 1380000),
	}
}

func row(suburb, typ, parking, date string, bed, bath, land, building, built, lat, lon, price float64) dataset.Row {
	var y, m, d int
	fmt.Sscanf(date, "%d-%d-%d", &y, &m, &d)
	density := 0.0
	if land > 0 {
		density = building / land
	}
	return dataset.Row{
		Suburb:          suburb,
		Type:            typ,
		Date:            date,
		Bedroom:         bed,
		Bathroom:        bath,
		Landsize:        land,
		BuildingArea:    building,
		YearBuilt:       built,
		Latitude:        lat,
		Longtitude:      lon,
		ParkingArea:     parking,
		Price:           price,
		Year:            float64(y),
		Month:           float64(m),
		Day:             float64(d),
		BuildingDensity: density,
	}
}

// Dataset wraps Rows in a Dataset
func Dataset() *dataset.Dataset {
	return &dataset.Dataset{Source: "fixture", Rows: Rows()}
}

// WriteCSV writes rows to name inside dir and returns the path
func WriteCSV(t *testing.T, dir, name string, rows []dataset.Row) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create CSV: %v", err)
	}
	defer f.Close()

	if err := dataset.WriteCSV(f, rows); err != nil {
		t.Fatalf("Failed to write CSV: %v", err)
	}
	return path
}

// WriteSQLite writes rows into the properties table of a new SQLite file
func WriteSQLite(t *testing.T, dir, name string, rows []dataset.Row) string {
	t.Helper()

	path := filepath.Join(dir, name)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to create test DB: %v", err)
	}
	defer db.Close()

	defs := make([]string, len(dataset.Columns))
	quoted := make([]string, len(dataset.Columns))
	marks := make([]string, len(dataset.Columns))
	for i, col := range dataset.Columns {
		kind := "REAL"
		if dataset.IsText(col) {
			kind = "TEXT"
		}
		defs[i] = fmt.Sprintf("%q %s", col, kind)
		quoted[i] = fmt.Sprintf("%q", col)
		marks[i] = "?"
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", dataset.TableName, strings.Join(defs, ", "))
	if _, err := db.Exec(create); err != nil {
		t.Fatalf("Failed to execute: %s: %v", create, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		dataset.TableName, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	for i := range rows {
		args := make([]any, len(dataset.Columns))
		for j, col := range dataset.Columns {
			if dataset.IsText(col) {
				args[j], _ = rows[i].Text(col)
			} else {
				args[j], _ = rows[i].Number(col)
			}
		}
		if _, err := db.Exec(insert, args...); err != nil {
			t.Fatalf("Failed to insert row %d: %v", i, err)
		}
	}
	return path
}
