package regressor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Linear is an ordinary least squares style model: y = intercept + w·x
type Linear struct {
	Intercept    float64
	Coefficients []float64
}

func (l *Linear) check(n int) error {
	if len(l.Coefficients) != n {
		return fmt.Errorf("linear model has %d coefficients for %d features", len(l.Coefficients), n)
	}
	return nil
}

func (l *Linear) predict(x []float64) float64 {
	return l.Intercept + floats.Dot(l.Coefficients, x)
}
