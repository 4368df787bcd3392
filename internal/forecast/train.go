package forecast

// TrainBackprop runs plain stochastic gradient descent with backpropagation
// from the given starting parameters and returns the refined flat vector.
// Hidden layers are sigmoid, the output unit linear, the loss squared error.
// It is used to briefly train candidate architectures inside the
// architecture-search fitness and to polish the swarm's best weight vector.
func (n Network) TrainBackprop(start []float64, samples []Sample, learningRate float64, epochs int) ([]float64, error) {
	layers, err := n.Unpack(start)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	for epoch := 0; epoch < epochs; epoch++ {
		for _, s := range samples {
			// Forward pass, keeping every layer's activations.
			acts := make([][]float64, len(layers)+1)
			acts[0] = s.Input
			for l, layer := range layers {
				out := make([]float64, len(layer.B))
				for i, row := range layer.W {
					sum := layer.B[i]
					for j, w := range row {
						sum += w * acts[l][j]
					}
					if l < len(layers)-1 {
						sum = sigmoid(sum)
					}
					out[i] = sum
				}
				acts[l+1] = out
			}

			// Backward pass. Output delta for squared error with a linear
			// unit is just the residual.
			deltas := make([][]float64, len(layers))
			last := len(layers) - 1
			deltas[last] = []float64{acts[last+1][0] - s.Target}
			for l := last - 1; l >= 0; l-- {
				delta := make([]float64, len(layers[l].B))
				for i := range delta {
					sum := 0.0
					for k, row := range layers[l+1].W {
						sum += row[i] * deltas[l+1][k]
					}
					a := acts[l+1][i]
					delta[i] = sum * a * (1 - a)
				}
				deltas[l] = delta
			}

			for l, layer := range layers {
				for i, row := range layer.W {
					g := learningRate * deltas[l][i]
					for j := range row {
						row[j] -= g * acts[l][j]
					}
					layer.B[i] -= g
				}
			}
		}
	}

	return n.Pack(layers), nil
}
