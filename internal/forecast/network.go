package forecast

import (
	"fmt"
	"math"
	"math/rand"
)

// Network describes a feedforward architecture with one or two hidden
// layers, sigmoid hidden activations and a single linear output unit. The
// network itself is stateless: all learnable state lives in a flat parameter
// vector so the optimizer can treat the model as an opaque function.
//
// Parameter vector layout, in order: every weight matrix row-major
// (input->hidden1, hidden1->hidden2 when present, lastHidden->output),
// followed by every bias vector in the same layer order.
type Network struct {
	InputSize int
	Hidden1   int
	Hidden2   int // 0 selects a single hidden layer
}

// layerSizes returns the neuron counts per layer, input first, output last.
func (n Network) layerSizes() []int {
	if n.Hidden2 > 0 {
		return []int{n.InputSize, n.Hidden1, n.Hidden2, 1}
	}
	return []int{n.InputSize, n.Hidden1, 1}
}

// ParamCount returns the exact length a parameter vector must have.
func (n Network) ParamCount() int {
	sizes := n.layerSizes()
	count := 0
	for i := 1; i < len(sizes); i++ {
		count += sizes[i]*sizes[i-1] + sizes[i]
	}
	return count
}

// Layer holds the unpacked weights of one layer: W is out x in row-major,
// B has one entry per output neuron.
type Layer struct {
	W [][]float64
	B []float64
}

// Unpack splits a flat parameter vector into per-layer weight matrices and
// bias vectors. It fails fast on a length mismatch, never truncating or
// padding.
func (n Network) Unpack(params []float64) ([]Layer, error) {
	if len(params) != n.ParamCount() {
		return nil, fmt.Errorf("%w: got %d, architecture needs %d", ErrParamLength, len(params), n.ParamCount())
	}

	sizes := n.layerSizes()
	layers := make([]Layer, len(sizes)-1)
	pos := 0
	for l := 1; l < len(sizes); l++ {
		in, out := sizes[l-1], sizes[l]
		w := make([][]float64, out)
		for i := range w {
			w[i] = append([]float64(nil), params[pos:pos+in]...)
			pos += in
		}
		layers[l-1].W = w
	}
	for l := 1; l < len(sizes); l++ {
		out := sizes[l]
		layers[l-1].B = append([]float64(nil), params[pos:pos+out]...)
		pos += out
	}
	return layers, nil
}

// Pack is the inverse of Unpack.
func (n Network) Pack(layers []Layer) []float64 {
	params := make([]float64, 0, n.ParamCount())
	for _, layer := range layers {
		for _, row := range layer.W {
			params = append(params, row...)
		}
	}
	for _, layer := range layers {
		params = append(params, layer.B...)
	}
	return params
}

// Forward computes the network output for one input vector. Hidden layers
// use the sigmoid activation; the output unit is linear so normalized
// targets on both sides of zero stay reachable.
func (n Network) Forward(params, input []float64) (float64, error) {
	if len(input) != n.InputSize {
		return 0, fmt.Errorf("forecast: input length %d does not match network input size %d", len(input), n.InputSize)
	}
	layers, err := n.Unpack(params)
	if err != nil {
		return 0, err
	}

	act := input
	for l, layer := range layers {
		next := make([]float64, len(layer.B))
		for i, row := range layer.W {
			sum := layer.B[i]
			for j, w := range row {
				sum += w * act[j]
			}
			if l < len(layers)-1 {
				sum = sigmoid(sum)
			}
			next[i] = sum
		}
		act = next
	}
	return act[0], nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// RandomParams draws an initial parameter vector from a small-variance
// Gaussian around zero.
func (n Network) RandomParams(rng *rand.Rand, scale float64) []float64 {
	params := make([]float64, n.ParamCount())
	for i := range params {
		params[i] = rng.NormFloat64() * scale
	}
	return params
}

// MSE evaluates the mean squared error of a parameter vector over a sample
// set. A wrong-length vector yields an error; numerical blow-ups inside the
// forward pass surface as non-finite values the optimizer penalizes.
func (n Network) MSE(params []float64, samples []Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}
	sum := 0.0
	for _, s := range samples {
		pred, err := n.Forward(params, s.Input)
		if err != nil {
			return 0, err
		}
		d := pred - s.Target
		sum += d * d
	}
	return sum / float64(len(samples)), nil
}
