package pipeline

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/stroke_coach/internal/baseline"
	"github.com/relabs-tech/stroke_coach/internal/calibration"
	"github.com/relabs-tech/stroke_coach/internal/dsp"
	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/orientation"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
	"github.com/relabs-tech/stroke_coach/internal/transform"
	"github.com/relabs-tech/stroke_coach/internal/velocity"
)

// ErrOutOfRange is wrapped by every Config validation error.
var ErrOutOfRange = errors.New("pipeline: configuration out of range")

// Config carries every tunable of both chains. Units are explicit: the
// gyroscope unit and the sample rate the filters are designed for are part of
// the configuration rather than assumptions.
type Config struct {
	Mounting     transform.Mounting
	AngularUnit  imu.AngularUnit
	SampleRateHz float64 // rate the band-pass coefficients assume

	Alpha      float64 // complementary filter gyro weight
	Thresholds stroke.Thresholds

	BandLowHz  float64
	BandHighHz float64
	Smoothing  float64

	BaselineWindowMs   float64
	BaselineMaxSamples int

	ProcessNoise     float64
	MeasurementNoise float64
	MinSplitSpeed    float64 // m/s

	CalibrationMinSamples int
	CalibrationMaxSamples int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Mounting:              transform.Rower,
		AngularUnit:           imu.DegreesPerSecond,
		SampleRateHz:          dsp.DefaultSampleRateHz,
		Alpha:                 orientation.DefaultAlpha,
		Thresholds:            stroke.DefaultThresholds(),
		BandLowHz:             dsp.DefaultLowCutHz,
		BandHighHz:            dsp.DefaultHighCutHz,
		Smoothing:             dsp.DefaultSmoothing,
		BaselineWindowMs:      baseline.DefaultWindowMs,
		BaselineMaxSamples:    baseline.DefaultMaxSamples,
		ProcessNoise:          velocity.DefaultProcessNoise,
		MeasurementNoise:      velocity.DefaultMeasurementNoise,
		MinSplitSpeed:         0.5,
		CalibrationMinSamples: 100,
		CalibrationMaxSamples: calibration.DefaultMaxSamples,
	}
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrOutOfRange}, args...)...))
	}

	if c.Mounting != transform.Rower && c.Mounting != transform.Coxswain {
		bad("mounting %v", c.Mounting)
	}
	if !c.AngularUnit.Valid() {
		bad("angular unit %v", c.AngularUnit)
	}
	if !(c.SampleRateHz > 0) {
		bad("sample rate %g Hz must be positive", c.SampleRateHz)
	}
	if !(c.Alpha > 0 && c.Alpha < 1) {
		bad("alpha %g must be in (0, 1)", c.Alpha)
	}
	if err := c.Thresholds.Validate(); err != nil {
		bad("%v", err)
	}
	if !(c.BandLowHz > 0) || !(c.BandHighHz > c.BandLowHz) || !(c.BandHighHz < c.SampleRateHz/2) {
		bad("band %g-%g Hz invalid for %g Hz", c.BandLowHz, c.BandHighHz, c.SampleRateHz)
	}
	if !(c.Smoothing > 0 && c.Smoothing < 1) {
		bad("smoothing %g must be in (0, 1)", c.Smoothing)
	}
	if !(c.BaselineWindowMs > 0) || c.BaselineMaxSamples <= 0 {
		bad("baseline window %g ms / %d samples must be positive", c.BaselineWindowMs, c.BaselineMaxSamples)
	}
	if !(c.ProcessNoise > 0) || !(c.MeasurementNoise > 0) {
		bad("kalman noise Q=%g R=%g must be positive", c.ProcessNoise, c.MeasurementNoise)
	}
	if c.MinSplitSpeed < 0 {
		bad("min split speed %g must not be negative", c.MinSplitSpeed)
	}
	if c.CalibrationMinSamples <= 0 || c.CalibrationMaxSamples < c.CalibrationMinSamples {
		bad("calibration samples min %d max %d", c.CalibrationMinSamples, c.CalibrationMaxSamples)
	}
	return errors.Join(errs...)
}
