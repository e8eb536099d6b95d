package regressor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Layer is one dense layer: h = x*W + b. Weights are row-major with In rows
// and Out columns.
type Layer struct {
	In      int
	Out     int
	Weights []float64
	Bias    []float64
}

// MLP is a feed-forward network with ReLU between layers and a single linear
// output unit.
type MLP struct {
	Layers []Layer
}

func (m *MLP) check(n int) error {
	if len(m.Layers) == 0 {
		return fmt.Errorf("mlp has no layers")
	}

	in := n
	for i, l := range m.Layers {
		if l.In != in {
			return fmt.Errorf("layer %d expects %d inputs, previous layer gives %d", i, l.In, in)
		}
		if l.Out <= 0 || len(l.Weights) != l.In*l.Out {
			return fmt.Errorf("layer %d has %d weights for %dx%d", i, len(l.Weights), l.In, l.Out)
		}
		if len(l.Bias) != l.Out {
			return fmt.Errorf("layer %d has %d biases for %d outputs", i, len(l.Bias), l.Out)
		}
		in = l.Out
	}
	if in != 1 {
		return fmt.Errorf("mlp output layer has %d units, want 1", in)
	}
	return nil
}

// predict runs the forward pass
func (m *MLP) predict(x []float64) (float64, error) {
	hidden := mat.NewDense(1, len(x), append([]float64(nil), x...))

	for i, l := range m.Layers {
		w := mat.NewDense(l.In, l.Out, l.Weights)

		var next mat.Dense
		next.Mul(hidden, w)

		// bias, then ReLU for every layer but the output
		last := i == len(m.Layers)-1
		for j := 0; j < l.Out; j++ {
			v := next.At(0, j) + l.Bias[j]
			if !last && v < 0 {
				v = 0
			}
			next.Set(0, j, v)
		}
		hidden = &next
	}

	r, c := hidden.Dims()
	if r != 1 || c != 1 {
		return 0, fmt.Errorf("mlp produced %dx%d output", r, c)
	}
	return hidden.At(0, 0), nil
}
