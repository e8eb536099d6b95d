package features

import (
	"fmt"
	"sort"
)

// CategoryLevels are the fitted levels of one categorical column, sorted.
// Levels[0] is the dropped baseline.
type CategoryLevels struct {
	Column string
	Levels []string
}

// OneHotEncoder encodes categorical columns as 0/1 dummies, dropping the
// first level of every column.
type OneHotEncoder struct {
	Categories []CategoryLevels
}

// FitOneHot collects the sorted distinct levels of each column.
// values[i] holds the observations of columns[i].
func FitOneHot(columns []string, values [][]string) (*OneHotEncoder, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("onehot: %d columns, %d value sets", len(columns), len(values))
	}

	enc := &OneHotEncoder{Categories: make([]CategoryLevels, len(columns))}
	for i, col := range columns {
		seen := make(map[string]struct{})
		for _, v := range values[i] {
			seen[v] = struct{}{}
		}
		if len(seen) == 0 {
			return nil, fmt.Errorf("onehot: column %s has no values", col)
		}

		levels := make([]string, 0, len(seen))
		for v := range seen {
			levels = append(levels, v)
		}
		sort.Strings(levels)
		enc.Categories[i] = CategoryLevels{Column: col, Levels: levels}
	}
	return enc, nil
}

// FeatureNames returns the dummy column names, <column>_<level>, baseline
// levels excluded.
func (e *OneHotEncoder) FeatureNames() []string {
	var names []string
	for _, cat := range e.Categories {
		for _, lvl := range cat.Levels[1:] {
			names = append(names, cat.Column+"_"+lvl)
		}
	}
	return names
}

// Transform encodes the observations of each column into dummy columns in
// FeatureNames order. A level unseen at fit time is an error.
func (e *OneHotEncoder) Transform(values [][]string) ([][]float64, error) {
	if len(values) != len(e.Categories) {
		return nil, fmt.Errorf("onehot: expected %d value sets, got %d", len(e.Categories), len(values))
	}

	var out [][]float64
	for i, cat := range e.Categories {
		index := make(map[string]int, len(cat.Levels))
		for j, lvl := range cat.Levels {
			index[lvl] = j
		}

		dummies := make([][]float64, len(cat.Levels)-1)
		for j := range dummies {
			dummies[j] = make([]float64, len(values[i]))
		}
		for r, v := range values[i] {
			j, ok := index[v]
			if !ok {
				return nil, fmt.Errorf("onehot: unknown %s level %q", cat.Column, v)
			}
			if j > 0 {
				dummies[j-1][r] = 1
			}
		}
		out = append(out, dummies...)
	}
	return out, nil
}
