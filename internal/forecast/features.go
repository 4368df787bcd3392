package forecast

// DefaultWindow is the number of trailing years used as model input.
const DefaultWindow = 4

// covariatesPerYear is the number of input features contributed by a single
// historical year: consumption, GDP, population and average temperature.
const covariatesPerYear = 4

// Observation is one year of historical data for a sector / energy-source
// series. Covariates that were missing in the source data are simply left at
// zero; the normalizer handles constant columns.
type Observation struct {
	Year            int     `json:"year"`
	Sector          string  `json:"sector"`
	EnergySource    string  `json:"energySource"`
	ConsumptionTWh  float64 `json:"consumptionTwh"`
	GDPBillions     float64 `json:"gdpBillions"`
	PopulationM     float64 `json:"populationMillions"`
	AvgTemperatureC float64 `json:"avgTemperatureC"`
}

// Key identifies the time series an observation belongs to.
func (o Observation) Key() string {
	return o.Sector + "_" + o.EnergySource
}

func (o Observation) features() []float64 {
	return []float64{o.ConsumptionTWh, o.GDPBillions, o.PopulationM, o.AvgTemperatureC}
}

// Sample is a supervised training pair: the covariates of `window`
// consecutive years as input, the following year's consumption as target.
type Sample struct {
	Input  []float64
	Target float64
}

// FeatureCount returns the input dimensionality for a given window size.
func FeatureCount(window int) int {
	return window * covariatesPerYear
}

// BuildSamples converts a chronologically sorted series into training
// samples with a sliding window. A series shorter than window+1 observations
// yields no samples; callers decide whether that is worth a warning.
func BuildSamples(series []Observation, window int) []Sample {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(series) < window+1 {
		return nil
	}

	samples := make([]Sample, 0, len(series)-window)
	for i := window; i < len(series); i++ {
		input := make([]float64, 0, FeatureCount(window))
		for j := i - window; j < i; j++ {
			input = append(input, series[j].features()...)
		}
		samples = append(samples, Sample{Input: input, Target: series[i].ConsumptionTWh})
	}
	return samples
}

// windowVector flattens a seed window of observations into an input vector.
// The window must hold exactly `window` observations, oldest first.
func windowVector(window []Observation) []float64 {
	input := make([]float64, 0, len(window)*covariatesPerYear)
	for _, o := range window {
		input = append(input, o.features()...)
	}
	return input
}
