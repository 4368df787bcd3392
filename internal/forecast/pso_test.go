package forecast

import (
	"context"
	"math"
	"math/rand"
	"testing"
)

func sphere(position []float64) float64 {
	sum := 0.0
	for _, v := range position {
		sum += v * v
	}
	return sum
}

func uniformInit(dim int, span float64) Init {
	return func(rng *rand.Rand) []float64 {
		pos := make([]float64, dim)
		for i := range pos {
			pos[i] = (rng.Float64()*2 - 1) * span
		}
		return pos
	}
}

func TestOptimizeSphere(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	result, err := Optimize(context.Background(), DefaultSwarmConfig(), uniformInit(5, 10), sphere, rng)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if result.Fitness > 0.1 {
		t.Errorf("Expected sphere minimum near 0, got fitness %f", result.Fitness)
	}
	if result.Iterations != DefaultIterations {
		t.Errorf("Expected %d iterations, got %d", DefaultIterations, result.Iterations)
	}
	if len(result.Position) != 5 {
		t.Errorf("Expected 5-dimensional result, got %d", len(result.Position))
	}
}

func TestOptimizeBestMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	result, err := Optimize(context.Background(), DefaultSwarmConfig(), uniformInit(3, 5), sphere, rng)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(result.History) != result.Iterations {
		t.Fatalf("Expected %d history entries, got %d", result.Iterations, len(result.History))
	}
	for i := 1; i < len(result.History); i++ {
		if result.History[i] > result.History[i-1] {
			t.Errorf("Global best worsened at iteration %d: %f -> %f", i, result.History[i-1], result.History[i])
		}
	}
	if result.History[len(result.History)-1] != result.Fitness {
		t.Errorf("Final history entry %f does not match result fitness %f",
			result.History[len(result.History)-1], result.Fitness)
	}
}

func TestOptimizeReproducible(t *testing.T) {
	run := func(workers int) SwarmResult {
		cfg := DefaultSwarmConfig()
		cfg.Workers = workers
		rng := rand.New(rand.NewSource(42))
		result, err := Optimize(context.Background(), cfg, uniformInit(4, 5), sphere, rng)
		if err != nil {
			t.Fatalf("Optimize failed: %v", err)
		}
		return result
	}

	a, b := run(0), run(0)
	if a.Fitness != b.Fitness {
		t.Errorf("Two seeded runs diverged: %v vs %v", a.Fitness, b.Fitness)
	}
	for i := range a.Position {
		if a.Position[i] != b.Position[i] {
			t.Errorf("Positions diverged at dim %d", i)
		}
	}

	// Parallel evaluation reduces bests on the caller goroutine, so worker
	// count must not change the outcome.
	p := run(4)
	if p.Fitness != a.Fitness {
		t.Errorf("Parallel run diverged from serial: %v vs %v", p.Fitness, a.Fitness)
	}
}

func TestOptimizeNonFinitePenalty(t *testing.T) {
	// Half the plane returns NaN; the swarm must absorb it as a maximal
	// penalty and still converge on the finite side.
	fn := func(position []float64) float64 {
		if position[0] < 0 {
			return math.NaN()
		}
		return (position[0] - 3) * (position[0] - 3)
	}

	rng := rand.New(rand.NewSource(3))
	result, err := Optimize(context.Background(), DefaultSwarmConfig(), uniformInit(1, 10), fn, rng)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if math.IsNaN(result.Fitness) || math.IsInf(result.Fitness, 0) {
		t.Fatalf("Expected finite best fitness, got %v", result.Fitness)
	}
	if result.Fitness > 1.0 {
		t.Errorf("Expected convergence near x=3, fitness %f", result.Fitness)
	}
}

func TestOptimizeAllNonFinite(t *testing.T) {
	fn := func([]float64) float64 { return math.Inf(-1) }
	rng := rand.New(rand.NewSource(4))
	result, err := Optimize(context.Background(), SwarmConfig{Particles: 5, Iterations: 3}, uniformInit(2, 1), fn, rng)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if !math.IsInf(result.Fitness, 1) {
		t.Errorf("Expected +Inf sentinel when nothing evaluates, got %v", result.Fitness)
	}
}

func TestOptimizeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rng := rand.New(rand.NewSource(5))
	result, err := Optimize(ctx, DefaultSwarmConfig(), uniformInit(2, 1), sphere, rng)
	if err == nil {
		t.Fatal("Expected context error")
	}
	if result.Iterations != 0 {
		t.Errorf("Expected 0 completed iterations, got %d", result.Iterations)
	}
}

func TestSwarmConfigDefaults(t *testing.T) {
	cfg := SwarmConfig{}.withDefaults()
	if cfg.Particles != DefaultParticles || cfg.Iterations != DefaultIterations {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.Inertia != DefaultInertia || cfg.Cognitive != DefaultCognitive || cfg.Social != DefaultSocial {
		t.Errorf("Unexpected weight defaults: %+v", cfg)
	}
}
