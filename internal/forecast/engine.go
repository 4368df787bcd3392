package forecast

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"
)

// TrainConfig gathers everything a training run needs. Zero values fall
// back to the defaults below, so a zero TrainConfig is usable as-is.
type TrainConfig struct {
	Window  int
	Hidden1 int
	Hidden2 int
	// LearningRate and Epochs drive the backpropagation polish applied to
	// the swarm's best weight vector. With architecture search enabled they
	// are replaced by the searched values.
	LearningRate float64
	Epochs       int
	// SearchArchitecture runs a PSO stage over hidden sizes, learning rate
	// and epochs before the weight search.
	SearchArchitecture bool
	// Seed fixes the random source for reproducible runs; 0 seeds from the
	// clock.
	Seed int64
	PSO  SwarmConfig
}

const (
	defaultHidden1      = 8
	defaultLearningRate = 0.01
	defaultEpochs       = 500
)

func (c TrainConfig) withDefaults() TrainConfig {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Hidden1 <= 0 {
		c.Hidden1 = defaultHidden1
	}
	if c.Hidden2 < 0 {
		c.Hidden2 = 0
	}
	if c.LearningRate <= 0 {
		c.LearningRate = defaultLearningRate
	}
	if c.Epochs <= 0 {
		c.Epochs = defaultEpochs
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Train fits a forecasting model on the pooled training samples. Stages:
// normalization stats are fitted once, an optional architecture-search
// swarm picks hidden sizes and training hyperparameters, a weight-search
// swarm optimizes the flat parameter vector against training MSE, and
// backpropagation polishes the winner, kept only when it strictly improves
// the fitness.
func Train(ctx context.Context, samples []Sample, cfg TrainConfig) (Model, error) {
	if len(samples) == 0 {
		return Model{}, ErrNoSamples
	}
	cfg = cfg.withDefaults()
	inputSize := len(samples[0].Input)

	stats := Fit(samples)
	normalized := normalizeSamples(samples, stats)
	rng := rand.New(rand.NewSource(cfg.Seed))

	hidden1, hidden2 := cfg.Hidden1, cfg.Hidden2
	learningRate, epochs := cfg.LearningRate, cfg.Epochs

	if cfg.SearchArchitecture && len(normalized) >= 2 {
		arch, result, err := OptimizeArchitecture(ctx, cfg.PSO, inputSize, normalized, rng, cfg.Seed)
		if err != nil {
			return Model{}, err
		}
		log.Printf("Architecture search done: hidden=%d/%d lr=%.4f epochs=%d (validation MSE %.6f)",
			arch.Hidden1, arch.Hidden2, arch.LearningRate, arch.Epochs, result.Fitness)
		hidden1, hidden2 = arch.Hidden1, arch.Hidden2
		learningRate, epochs = arch.LearningRate, arch.Epochs
	}

	net := Network{InputSize: inputSize, Hidden1: hidden1, Hidden2: hidden2}

	fitness := func(position []float64) float64 {
		mse, err := net.MSE(position, normalized)
		if err != nil {
			return math.Inf(1)
		}
		return mse
	}

	result, err := Optimize(ctx, cfg.PSO, GaussianInit(net.ParamCount(), 0.1), fitness, rng)
	if err != nil {
		return Model{}, err
	}

	params, best := result.Position, result.Fitness
	if refined, err := net.TrainBackprop(params, normalized, learningRate, epochs); err == nil {
		if mse, err := net.MSE(refined, normalized); err == nil && mse < best {
			params, best = refined, mse
		}
	}

	log.Printf("Model trained: %d inputs, hidden %d/%d, %d samples, fitness %.6f",
		inputSize, hidden1, hidden2, len(samples), best)

	return Model{
		Net:     net,
		Params:  params,
		Stats:   stats,
		Fitness: best,
		Window:  cfg.Window,
	}, nil
}
