package dataset

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// TableName is the table a SQLite reference dataset is read from
const TableName = "properties"

// LoadSQLite reads a reference dataset from the properties table of a SQLite file
func LoadSQLite(path string) (*Dataset, error) {
	// mode=ro only reports a missing file on the first query
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrLoad, path, err)
	}
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?", TableName).Scan(&count)
	if err != nil || count == 0 {
		return nil, fmt.Errorf("%w: %s has no %s table", ErrLoad, path, TableName)
	}

	quoted := make([]string, len(Columns))
	for i, col := range Columns {
		quoted[i] = `"` + col + `"`
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(quoted, ", "), TableName)

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", ErrLoad, path, err)
	}
	defer rows.Close()

	ds := &Dataset{Source: path}
	for rows.Next() {
		var row Row
		dest := make([]any, len(Columns))
		texts := make([]sql.NullString, len(Columns))
		numbers := make([]sql.NullFloat64, len(Columns))
		for i, col := range Columns {
			if IsText(col) {
				dest[i] = &texts[i]
			} else {
				dest[i] = &numbers[i]
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", ErrLoad, path, err)
		}

		for i, col := range Columns {
			if IsText(col) {
				row.setText(col, texts[i].String)
				continue
			}
			if !numbers[i].Valid {
				return nil, fmt.Errorf("%w: %s row %d: NULL in %s", ErrLoad, path, len(ds.Rows)+1, col)
			}
			if v := numbers[i].Float64; math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s row %d: non-finite %s %v", ErrLoad, path, len(ds.Rows)+1, col, v)
			}
			row.setNumber(col, numbers[i].Float64)
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s: no data rows", ErrLoad, path)
	}
	return ds, nil
}
