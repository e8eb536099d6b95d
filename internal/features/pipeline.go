package features

import (
	"fmt"
	"slices"

	"github.com/kartoza/house-price-estimator/internal/dataset"
	"github.com/kartoza/house-price-estimator/internal/property"
)

// NumericFeatures are standardised before prediction
var NumericFeatures = []string{
	dataset.ColBedroom, dataset.ColBathroom, dataset.ColLandsize, dataset.ColBuildingArea,
	dataset.ColYearBuilt, dataset.ColLatitude, dataset.ColLongtitude, dataset.ColBuildingDensity,
	dataset.ColYear, dataset.ColMonth, dataset.ColDay,
}

// Renames maps encoder dummy names to the names the model was trained with
var Renames = map[string]string{
	"Type_t": "Type_Townhouse",
	"Type_u": "Type_Unit",
}

// DroppedColumns never reach the model
var DroppedColumns = []string{dataset.ColDate, dataset.ColPrice}

// Refit encodes one record the way the model's training script did: the
// record is prepended to the reference rows, the encoder and scaler are fitted
// over the combined table and the record's row is returned.
func Refit(record property.NormalizedRecord, ref *dataset.Dataset) (EncodedRow, error) {
	if err := ref.CheckCoverage(property.RequiredLevels()); err != nil {
		return EncodedRow{}, err
	}

	combined := make([]dataset.Row, 0, ref.Len()+1)
	combined = append(combined, record.Row())
	combined = append(combined, ref.Rows...)

	enc, err := FitOneHot(dataset.CategoricalColumns, categoricalValues(combined))
	if err != nil {
		return EncodedRow{}, err
	}

	f, err := buildFrame(combined, enc)
	if err != nil {
		return EncodedRow{}, err
	}

	scaler, err := FitScaler(f, NumericFeatures)
	if err != nil {
		return EncodedRow{}, err
	}
	if err := scaler.Transform(f); err != nil {
		return EncodedRow{}, err
	}

	if err := f.Drop(DroppedColumns...); err != nil {
		return EncodedRow{}, err
	}
	return f.Row(0)
}

// Preprocessor is a fitted encoder and scaler that can be stored next to a
// model and applied to single records without the reference dataset.
type Preprocessor struct {
	Encoder  OneHotEncoder
	Scaler   StandardScaler
	Features []string
	Source   string
	Rows     int
}

// Fit fits a Preprocessor on the reference rows alone
func Fit(ref *dataset.Dataset) (*Preprocessor, error) {
	if err := ref.CheckCoverage(property.RequiredLevels()); err != nil {
		return nil, err
	}

	enc, err := FitOneHot(dataset.CategoricalColumns, categoricalValues(ref.Rows))
	if err != nil {
		return nil, err
	}

	f, err := buildFrame(ref.Rows, enc)
	if err != nil {
		return nil, err
	}

	scaler, err := FitScaler(f, NumericFeatures)
	if err != nil {
		return nil, err
	}

	if err := f.Drop(DroppedColumns...); err != nil {
		return nil, err
	}

	return &Preprocessor{
		Encoder:  *enc,
		Scaler:   *scaler,
		Features: f.Columns(),
		Source:   ref.Source,
		Rows:     ref.Len(),
	}, nil
}

// Transform encodes one record with the fitted state
func (p *Preprocessor) Transform(record property.NormalizedRecord) (EncodedRow, error) {
	f, err := buildFrame([]dataset.Row{record.Row()}, &p.Encoder)
	if err != nil {
		return EncodedRow{}, err
	}
	if err := p.Scaler.Transform(f); err != nil {
		return EncodedRow{}, err
	}
	if err := f.Drop(DroppedColumns...); err != nil {
		return EncodedRow{}, err
	}

	row, err := f.Row(0)
	if err != nil {
		return EncodedRow{}, err
	}
	if !slices.Equal(row.Columns, p.Features) {
		return EncodedRow{}, fmt.Errorf("preprocessor produced %v, fitted %v", row.Columns, p.Features)
	}
	return row, nil
}

// buildFrame lays out the non-categorical columns in schema order followed by
// the renamed dummy columns.
func buildFrame(rows []dataset.Row, enc *OneHotEncoder) (*Frame, error) {
	f := NewFrame(len(rows))

	for _, col := range dataset.Columns {
		if slices.Contains(dataset.CategoricalColumns, col) {
			continue
		}

		var err error
		if dataset.IsText(col) {
			values := make([]string, len(rows))
			for i := range rows {
				values[i], _ = rows[i].Text(col)
			}
			err = f.AddText(col, values)
		} else {
			values := make([]float64, len(rows))
			for i := range rows {
				values[i], _ = rows[i].Number(col)
			}
			err = f.AddNumeric(col, values)
		}
		if err != nil {
			return nil, err
		}
	}

	dummies, err := enc.Transform(categoricalValues(rows))
	if err != nil {
		return nil, err
	}
	for i, name := range enc.FeatureNames() {
		if err := f.AddNumeric(name, dummies[i]); err != nil {
			return nil, err
		}
	}

	if err := f.Rename(Renames); err != nil {
		return nil, err
	}
	return f, nil
}

func categoricalValues(rows []dataset.Row) [][]string {
	values := make([][]string, len(dataset.CategoricalColumns))
	for i, col := range dataset.CategoricalColumns {
		values[i] = make([]string, len(rows))
		for r := range rows {
			values[i][r], _ = rows[r].Text(col)
		}
	}
	return values
}
