package forecast

import (
	"context"
	"math"
	"math/rand"
)

// Architecture search explores a 4-dimensional continuous space:
// [hidden layer 1 size, hidden layer 2 size, learning rate, epochs].
// Positions are real vectors the swarm moves freely; decoding rounds the
// discrete dimensions. Positions drifting outside the validity bounds get
// the maximal penalty instead of being clamped, so the swarm routes around
// them on its own.

// Initialization ranges.
const (
	archInitH1Min, archInitH1Span         = 10, 90
	archInitH2Min, archInitH2Span         = 5, 45
	archInitLRMin, archInitLRSpan         = 0.001, 0.099
	archInitEpochsMin, archInitEpochsSpan = 100, 900
)

// Validity bounds, wider than the init ranges so the swarm can explore a
// little beyond where it started.
const (
	archMinH1, archMaxH1         = 5, 200
	archMinH2, archMaxH2         = 2, 100
	archMinLR, archMaxLR         = 0.0001, 0.5
	archMinEpochs, archMaxEpochs = 50, 2000
)

// ArchParams is a decoded architecture-search position.
type ArchParams struct {
	Hidden1      int
	Hidden2      int
	LearningRate float64
	Epochs       int
}

// DecodeArch rounds a raw position into concrete architecture parameters.
func DecodeArch(position []float64) ArchParams {
	return ArchParams{
		Hidden1:      int(math.Round(position[0])),
		Hidden2:      int(math.Round(position[1])),
		LearningRate: position[2],
		Epochs:       int(math.Round(position[3])),
	}
}

// Valid reports whether the parameters fall inside the searchable bounds.
func (a ArchParams) Valid() bool {
	return a.Hidden1 >= archMinH1 && a.Hidden1 <= archMaxH1 &&
		a.Hidden2 >= archMinH2 && a.Hidden2 <= archMaxH2 &&
		a.LearningRate >= archMinLR && a.LearningRate <= archMaxLR &&
		a.Epochs >= archMinEpochs && a.Epochs <= archMaxEpochs
}

// ArchInit draws a position uniformly within the initialization ranges.
func ArchInit() Init {
	return func(rng *rand.Rand) []float64 {
		return []float64{
			archInitH1Min + rng.Float64()*archInitH1Span,
			archInitH2Min + rng.Float64()*archInitH2Span,
			archInitLRMin + rng.Float64()*archInitLRSpan,
			archInitEpochsMin + rng.Float64()*archInitEpochsSpan,
		}
	}
}

// archEvalEpochs caps the training epochs used inside fitness evaluation:
// a candidate only needs a brief training run to rank it against the rest
// of the swarm. The decoded epoch count is still reported for the final
// training stage.
const archEvalEpochs = 40

// ArchFitness builds the held-out-error fitness for architecture search
// over a normalized sample set. The samples are split 80/20 into training
// and validation once, up front; each evaluation trains a fresh network at
// the candidate architecture and returns its validation MSE.
//
// Weight initialization uses a random source seeded from the position
// itself, which keeps evaluations deterministic regardless of how many
// workers run them.
func ArchFitness(inputSize int, samples []Sample, seed int64) Fitness {
	split := len(samples) * 8 / 10
	if split < 1 {
		split = 1
	}
	if split >= len(samples) {
		split = len(samples) - 1
	}
	train, validate := samples[:split], samples[split:]

	return func(position []float64) float64 {
		arch := DecodeArch(position)
		if !arch.Valid() {
			return math.Inf(1)
		}

		net := Network{InputSize: inputSize, Hidden1: arch.Hidden1, Hidden2: arch.Hidden2}
		rng := rand.New(rand.NewSource(seed ^ positionSeed(position)))

		epochs := arch.Epochs
		if epochs > archEvalEpochs {
			epochs = archEvalEpochs
		}

		params, err := net.TrainBackprop(net.RandomParams(rng, 0.1), train, arch.LearningRate, epochs)
		if err != nil {
			return math.Inf(1)
		}
		mse, err := net.MSE(params, validate)
		if err != nil {
			return math.Inf(1)
		}
		return mse
	}
}

// positionSeed folds a position into a deterministic seed value.
func positionSeed(position []float64) int64 {
	var h uint64 = 1469598103934665603
	for _, v := range position {
		h ^= math.Float64bits(v)
		h *= 1099511628211
	}
	return int64(h)
}

// OptimizeArchitecture runs the architecture-search swarm and decodes the
// winner.
func OptimizeArchitecture(ctx context.Context, cfg SwarmConfig, inputSize int, samples []Sample, rng *rand.Rand, seed int64) (ArchParams, SwarmResult, error) {
	result, err := Optimize(ctx, cfg, ArchInit(), ArchFitness(inputSize, samples, seed), rng)
	if err != nil {
		return ArchParams{}, result, err
	}
	return DecodeArch(result.Position), result, nil
}
