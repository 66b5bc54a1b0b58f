// Package velocity fuses GPS speed into a smoothed boat velocity.
package velocity

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultProcessNoise     = 0.1 // (m/s)² added per update
	DefaultMeasurementNoise = 1.0 // (m/s)² GPS speed variance
	// InitialVariance stands in for "unknown" after construction or Reset.
	InitialVariance = 1000.0
)

// ErrInvalidNoise is returned for non-positive noise terms.
var ErrInvalidNoise = errors.New("velocity: invalid noise parameter")

// Kalman is a scalar constant-velocity Kalman filter. Between updates the
// estimate is held; dropouts need no special handling.
type Kalman struct {
	q, r float64

	x float64 // velocity, m/s
	p float64 // variance of x
}

// NewKalman returns a filter with zero velocity and InitialVariance.
func NewKalman(processNoise, measurementNoise float64) (*Kalman, error) {
	if !(processNoise > 0) || !(measurementNoise > 0) {
		return nil, fmt.Errorf("%w: Q=%g R=%g", ErrInvalidNoise, processNoise, measurementNoise)
	}
	return &Kalman{q: processNoise, r: measurementNoise, p: InitialVariance}, nil
}

// UpdateGPS folds in one speed measurement and returns the new estimate.
// Non-finite measurements are ignored.
func (k *Kalman) UpdateGPS(speed float64) float64 {
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return k.x
	}

	// Predict: velocity held, uncertainty grows.
	p := k.p + k.q

	// Correct.
	gain := p / (p + k.r)
	k.x += gain * (speed - k.x)
	k.p = (1 - gain) * p
	return k.x
}

// Velocity returns the fused estimate in m/s.
func (k *Kalman) Velocity() float64 { return k.x }

// Variance returns the estimate variance.
func (k *Kalman) Variance() float64 { return k.p }

// Reset restores zero velocity and InitialVariance.
func (k *Kalman) Reset() {
	k.x = 0
	k.p = InitialVariance
}

// Split500 converts a speed to seconds per 500 m. It returns 0 below
// minSpeed, where a split is meaningless.
func Split500(speed, minSpeed float64) float64 {
	if !(speed > minSpeed) || speed <= 0 {
		return 0
	}
	return 500 / speed
}
