package forecast

import (
	"context"
	"log"
	"math"
	"math/rand"
	"sync"
)

// PSO defaults, matching the tuning the forecasting model was calibrated
// with.
const (
	DefaultParticles  = 30
	DefaultIterations = 100
	DefaultInertia    = 0.7
	DefaultCognitive  = 1.5
	DefaultSocial     = 1.5
)

// Fitness scores a candidate position; lower is better. Implementations
// must be pure functions of the position: the optimizer may evaluate
// particles concurrently. Non-finite results are treated as a maximal
// penalty rather than an error, so one bad particle cannot abort a run.
type Fitness func(position []float64) float64

// Init draws one initial particle position. The dimensionality of the
// search space is taken from its output.
type Init func(rng *rand.Rand) []float64

// SwarmConfig controls a particle swarm run.
type SwarmConfig struct {
	Particles  int
	Iterations int
	Inertia    float64
	Cognitive  float64
	Social     float64
	// Workers > 1 evaluates particle fitness on a worker pool. Personal and
	// global bests are reduced sequentially afterwards, so results are
	// identical to a serial run.
	Workers int
}

// DefaultSwarmConfig returns the standard swarm tuning.
func DefaultSwarmConfig() SwarmConfig {
	return SwarmConfig{
		Particles:  DefaultParticles,
		Iterations: DefaultIterations,
		Inertia:    DefaultInertia,
		Cognitive:  DefaultCognitive,
		Social:     DefaultSocial,
	}
}

func (c SwarmConfig) withDefaults() SwarmConfig {
	d := DefaultSwarmConfig()
	if c.Particles <= 0 {
		c.Particles = d.Particles
	}
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	if c.Inertia == 0 {
		c.Inertia = d.Inertia
	}
	if c.Cognitive == 0 {
		c.Cognitive = d.Cognitive
	}
	if c.Social == 0 {
		c.Social = d.Social
	}
	return c
}

// SwarmResult is the outcome of an optimization run.
type SwarmResult struct {
	Position   []float64
	Fitness    float64
	Iterations int
	// History records the global best fitness after each iteration. It is
	// non-increasing by construction.
	History []float64
}

type particle struct {
	position    []float64
	velocity    []float64
	best        []float64
	bestFitness float64
	fitness     float64
}

// Optimize runs particle swarm optimization and returns the best position
// found. The caller supplies the random source; two runs with the same seed,
// config and fitness produce identical results. Positions are not clamped
// after velocity updates; fitness functions over bounded spaces are expected
// to penalize wanderers themselves.
//
// Cancellation is checked between iterations. On cancellation the best
// result found so far is returned along with the context error.
func Optimize(ctx context.Context, cfg SwarmConfig, init Init, fn Fitness, rng *rand.Rand) (SwarmResult, error) {
	cfg = cfg.withDefaults()

	particles := make([]particle, cfg.Particles)
	for i := range particles {
		pos := init(rng)
		particles[i] = particle{
			position:    pos,
			velocity:    make([]float64, len(pos)),
			best:        append([]float64(nil), pos...),
			bestFitness: math.Inf(1),
		}
	}

	result := SwarmResult{
		Fitness: math.Inf(1),
		History: make([]float64, 0, cfg.Iterations),
	}

	for iter := 0; iter < cfg.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			result.Iterations = iter
			return result, err
		}

		evaluate(particles, fn, cfg.Workers)

		// Reduce bests in particle order so ties keep the first finder.
		for i := range particles {
			p := &particles[i]
			if p.fitness < p.bestFitness {
				p.bestFitness = p.fitness
				copy(p.best, p.position)
			}
			if p.fitness < result.Fitness {
				result.Fitness = p.fitness
				result.Position = append(result.Position[:0], p.position...)
			}
		}
		if result.Position == nil {
			// Every particle hit the penalty; steer toward the first one
			// until something evaluates finite.
			result.Position = append([]float64(nil), particles[0].position...)
		}
		result.History = append(result.History, result.Fitness)

		for i := range particles {
			p := &particles[i]
			for d := range p.position {
				cognitive := cfg.Cognitive * rng.Float64() * (p.best[d] - p.position[d])
				social := cfg.Social * rng.Float64() * (result.Position[d] - p.position[d])
				p.velocity[d] = cfg.Inertia*p.velocity[d] + cognitive + social
				p.position[d] += p.velocity[d]
			}
		}

		if iter%10 == 0 {
			log.Printf("PSO iteration %d: best fitness %.6f", iter, result.Fitness)
		}
	}

	result.Iterations = cfg.Iterations
	return result, nil
}

// evaluate scores every particle, optionally spreading the work over a
// fixed pool of goroutines. Each worker only writes the fitness of its own
// particles, so no locking is needed; the reduction happens afterwards on
// the calling goroutine.
func evaluate(particles []particle, fn Fitness, workers int) {
	score := func(p *particle) {
		f := fn(p.position)
		if math.IsNaN(f) || math.IsInf(f, -1) {
			f = math.Inf(1)
		}
		p.fitness = f
	}

	if workers <= 1 || len(particles) < 2 {
		for i := range particles {
			score(&particles[i])
		}
		return
	}

	var wg sync.WaitGroup
	next := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				score(&particles[i])
			}
		}()
	}
	for i := range particles {
		next <- i
	}
	close(next)
	wg.Wait()
}

// GaussianInit draws positions of the given dimension from a Gaussian
// around zero, the standard initialization for weight search.
func GaussianInit(dim int, scale float64) Init {
	return func(rng *rand.Rand) []float64 {
		pos := make([]float64, dim)
		for i := range pos {
			pos[i] = rng.NormFloat64() * scale
		}
		return pos
	}
}
