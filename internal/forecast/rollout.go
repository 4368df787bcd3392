package forecast

import "fmt"

// Confidence margin clamp range. The margin is a coarse heuristic derived
// from the optimizer's final fitness, not a statistical interval.
const (
	minConfidenceMargin = 0.1
	maxConfidenceMargin = 0.9
)

// Adjustment carries the multiplicative scenario corrections applied during
// rollout, each as a function of the target year. Nil fields mean no
// adjustment. Input adjustments scale the corresponding covariates of every
// window entry before the model sees them; Output scales the denormalized
// prediction.
type Adjustment struct {
	Consumption func(year int) float64
	GDP         func(year int) float64
	Population  func(year int) float64
	Output      func(year int) float64
}

func factor(f func(int) float64, year int) float64 {
	if f == nil {
		return 1.0
	}
	return f(year)
}

// Point is a single forecast year for one sector / energy-source series.
type Point struct {
	Year         int     `json:"year"`
	Sector       string  `json:"sector"`
	EnergySource string  `json:"energySource"`
	Predicted    float64 `json:"predicted"`
	Lower        float64 `json:"lower"`
	Upper        float64 `json:"upper"`
	Confidence   float64 `json:"confidence"`
}

// Model is a trained forecaster: the architecture, its flat parameter
// vector, the normalization stats fitted alongside it, and the training
// fitness the confidence margin is derived from.
type Model struct {
	Net     Network
	Params  []float64
	Stats   Stats
	Fitness float64
	Window  int
}

// ConfidenceMargin returns the fitness-derived half-width of the forecast
// band, clamped to [0.1, 0.9].
func (m Model) ConfidenceMargin() float64 {
	margin := m.Fitness
	if margin < minConfidenceMargin {
		margin = minConfidenceMargin
	}
	if margin > maxConfidenceMargin {
		margin = maxConfidenceMargin
	}
	return margin
}

// Rollout forecasts `horizon` years past the end of the given historical
// series, feeding each prediction back into the input window. The series
// must be sorted by year and hold at least one full window. An error in any
// year propagates forward: the rollout is strictly autoregressive, with no
// correction mid-horizon.
func (m Model) Rollout(series []Observation, horizon int, adj Adjustment) ([]Point, error) {
	if len(series) < m.Window {
		return nil, fmt.Errorf("%w: have %d observations, window is %d", ErrInsufficientData, len(series), m.Window)
	}
	if horizon <= 0 {
		return nil, nil
	}

	window := append([]Observation(nil), series[len(series)-m.Window:]...)
	last := window[len(window)-1]
	margin := m.ConfidenceMargin()

	points := make([]Point, 0, horizon)
	for year := last.Year + 1; year <= last.Year+horizon; year++ {
		input := adjustedVector(window, adj, year)

		raw, err := m.Net.Forward(m.Params, m.Stats.Transform(input))
		if err != nil {
			return nil, err
		}
		pred := m.Stats.InverseOutput(raw) * factor(adj.Output, year)

		lower := pred * (1 - margin)
		upper := pred * (1 + margin)
		if lower > upper {
			lower, upper = upper, lower
		}

		points = append(points, Point{
			Year:         year,
			Sector:       last.Sector,
			EnergySource: last.EnergySource,
			Predicted:    pred,
			Lower:        lower,
			Upper:        upper,
			Confidence:   margin,
		})

		// Slide the window: the forecast becomes history, covariates carry
		// forward from the newest real observation.
		next := window[len(window)-1]
		next.Year = year
		next.ConsumptionTWh = pred
		window = append(window[1:], next)
	}

	return points, nil
}

// adjustedVector builds the input vector for a target year with scenario
// multipliers applied to the relevant covariates.
func adjustedVector(window []Observation, adj Adjustment, year int) []float64 {
	input := make([]float64, 0, len(window)*covariatesPerYear)
	cons := factor(adj.Consumption, year)
	gdp := factor(adj.GDP, year)
	pop := factor(adj.Population, year)
	for _, o := range window {
		input = append(input,
			o.ConsumptionTWh*cons,
			o.GDPBillions*gdp,
			o.PopulationM*pop,
			o.AvgTemperatureC,
		)
	}
	return input
}
