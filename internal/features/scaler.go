package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centres each feature on its mean and divides by its
// population standard deviation. Constant features are divided by 1.
type StandardScaler struct {
	Features []string
	Mean     []float64
	Scale    []float64
}

// FitScaler computes the statistics of the named numeric columns of f
func FitScaler(f *Frame, names []string) (*StandardScaler, error) {
	s := &StandardScaler{
		Features: append([]string(nil), names...),
		Mean:     make([]float64, len(names)),
		Scale:    make([]float64, len(names)),
	}

	for i, name := range names {
		values, ok := f.Numeric(name)
		if !ok {
			return nil, fmt.Errorf("scaler: no numeric column %s", name)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("scaler: column %s is empty", name)
		}

		mean, variance := stat.PopMeanVariance(values, nil)
		scale := math.Sqrt(variance)
		if scale == 0 || math.IsNaN(scale) {
			scale = 1
		}
		s.Mean[i] = mean
		s.Scale[i] = scale
	}
	return s, nil
}

// Transform rescales the fitted columns of f in place
func (s *StandardScaler) Transform(f *Frame) error {
	for i, name := range s.Features {
		values, ok := f.Numeric(name)
		if !ok {
			return fmt.Errorf("scaler: no numeric column %s", name)
		}
		for r := range values {
			values[r] = (values[r] - s.Mean[i]) / s.Scale[i]
		}
	}
	return nil
}
