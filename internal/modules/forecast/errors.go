package forecast

import "errors"

var (
	// ErrInvalidInput is returned when the caller supplies an unusable history or horizon.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelFit marks a seasonal model that could not be fitted or extrapolated.
	// It never leaves the engine: the seasonal path falls back instead.
	ErrModelFit = errors.New("model fit failed")
)
