package forecast

import "errors"

var (
	// ErrInsufficientData is returned when a series is too short to form a
	// single training window. Callers typically skip the series and log a
	// warning rather than aborting the whole run.
	ErrInsufficientData = errors.New("forecast: insufficient historical data for window")

	// ErrParamLength is returned when a parameter vector does not match the
	// network architecture it is applied to.
	ErrParamLength = errors.New("forecast: parameter vector length does not match architecture")

	// ErrNoSamples is returned when training is requested with an empty
	// sample set.
	ErrNoSamples = errors.New("forecast: no training samples")
)
