// Package dsp provides the causal per-sample filters applied to boat surge.
//
// Coefficients are computed once for an assumed sample rate (DefaultSampleRateHz
// unless configured). Inertial samples arrive on their own schedule; when the
// real rate drifts the pass band shifts proportionally but the filters stay
// stable, since every section's poles depend only on the fixed coefficients.
package dsp

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultSampleRateHz = 50.0
	DefaultLowCutHz     = 0.3
	DefaultHighCutHz    = 1.2
	DefaultSmoothing    = 0.85
)

// ErrInvalidParameter is wrapped by constructor errors.
var ErrInvalidParameter = errors.New("dsp: invalid filter parameter")

// BandPass is a 4th order Butterworth band: a 2nd order high-pass at the low
// cutoff followed by a 2nd order low-pass at the high cutoff.
type BandPass struct {
	hp, lp        biquad
	low, high, fs float64
}

// NewBandPass derives the sections for 0 < lowHz < highHz < sampleRateHz/2.
func NewBandPass(lowHz, highHz, sampleRateHz float64) (*BandPass, error) {
	switch {
	case !(sampleRateHz > 0):
		return nil, fmt.Errorf("%w: sample rate %g Hz", ErrInvalidParameter, sampleRateHz)
	case !(lowHz > 0) || !(highHz > lowHz):
		return nil, fmt.Errorf("%w: band %g-%g Hz", ErrInvalidParameter, lowHz, highHz)
	case !(highHz < sampleRateHz/2):
		return nil, fmt.Errorf("%w: high cutoff %g Hz at or above Nyquist for %g Hz", ErrInvalidParameter, highHz, sampleRateHz)
	}
	return &BandPass{
		hp:   highPassSection(lowHz, sampleRateHz),
		lp:   lowPassSection(highHz, sampleRateHz),
		low:  lowHz,
		high: highHz,
		fs:   sampleRateHz,
	}, nil
}

// Filter processes one sample. Non-finite input is returned as is and does
// not enter the filter state.
func (f *BandPass) Filter(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return f.lp.filter(f.hp.filter(x))
}

// Reset zeroes the section states.
func (f *BandPass) Reset() {
	f.hp.reset()
	f.lp.reset()
}

// SampleRate is the rate the coefficients were derived for.
func (f *BandPass) SampleRate() float64 { return f.fs }

// LowPass is a single-pole exponential smoother: y = a·y' + (1-a)·x.
type LowPass struct {
	alpha float64
	y     float64
}

// NewLowPass accepts 0 <= alpha < 1.
func NewLowPass(alpha float64) (*LowPass, error) {
	if !(alpha >= 0 && alpha < 1) {
		return nil, fmt.Errorf("%w: smoothing coefficient %g", ErrInvalidParameter, alpha)
	}
	return &LowPass{alpha: alpha}, nil
}

// Filter processes one sample. Non-finite input is returned as is.
func (f *LowPass) Filter(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f.y = f.alpha*f.y + (1-f.alpha)*x
	return f.y
}

// Reset zeroes the state.
func (f *LowPass) Reset() { f.y = 0 }

// Chain runs a band-pass followed by a low-pass.
type Chain struct {
	BandPass *BandPass
	LowPass  *LowPass
}

// NewChain builds both stages.
func NewChain(lowHz, highHz, sampleRateHz, smoothing float64) (*Chain, error) {
	bp, err := NewBandPass(lowHz, highHz, sampleRateHz)
	if err != nil {
		return nil, err
	}
	lp, err := NewLowPass(smoothing)
	if err != nil {
		return nil, err
	}
	return &Chain{BandPass: bp, LowPass: lp}, nil
}

// Filter returns the band-passed and the smoothed value for x.
func (c *Chain) Filter(x float64) (band, smooth float64) {
	band = c.BandPass.Filter(x)
	return band, c.LowPass.Filter(band)
}

// Reset resets both stages.
func (c *Chain) Reset() {
	c.BandPass.Reset()
	c.LowPass.Reset()
}
