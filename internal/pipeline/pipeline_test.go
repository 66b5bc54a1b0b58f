package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/stroke_coach/internal/calibration"
	"github.com/relabs-tech/stroke_coach/internal/gps"
	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/simulate"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
	"github.com/relabs-tech/stroke_coach/internal/transform"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	cases := map[string]func(*Config){
		"finish above catch":  func(c *Config) { c.Thresholds = stroke.Thresholds{Catch: 0.6, Finish: 0.7} },
		"finish equals catch": func(c *Config) { c.Thresholds = stroke.Thresholds{Catch: -0.3, Finish: -0.3} },
		"zero alpha":          func(c *Config) { c.Alpha = 0 },
		"zero sample rate":    func(c *Config) { c.SampleRateHz = 0 },
		"inverted band":       func(c *Config) { c.BandLowHz, c.BandHighHz = 1.2, 0.3 },
		"band above nyquist":  func(c *Config) { c.BandHighHz = 30 },
		"zero smoothing":      func(c *Config) { c.Smoothing = 0 },
		"zero window":         func(c *Config) { c.BaselineWindowMs = 0 },
		"negative noise":      func(c *Config) { c.ProcessNoise = -1 },
		"calibration bounds":  func(c *Config) { c.CalibrationMaxSamples = 10 },
		"unknown unit":        func(c *Config) { c.AngularUnit = imu.AngularUnit(7) },
		"unknown mounting":    func(c *Config) { c.Mounting = transform.Mounting(9) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrOutOfRange)
			_, err := NewInertial(cfg)
			assert.Error(t, err)
		})
	}
}

func runSession(t *testing.T, p *Inertial, gen *simulate.Rowing, seconds int) []Output {
	t.Helper()
	n := seconds * 50
	outs := make([]Output, 0, n)
	for i := 0; i < n; i++ {
		outs = append(outs, p.Process(gen.NextInertial()))
	}
	return outs
}

func TestInertialDetectsSimulatedStrokes(t *testing.T) {
	t.Parallel()

	for _, m := range []transform.Mounting{transform.Rower, transform.Coxswain} {
		t.Run(m.String(), func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			cfg.Mounting = m
			p, err := NewInertial(cfg)
			require.NoError(t, err)

			simCfg := simulate.DefaultConfig()
			simCfg.Mounting = m
			outs := runSession(t, p, simulate.NewRowing(simCfg), 60)

			var steady []stroke.Record
			for _, rec := range p.History() {
				if rec.CatchTimestamp > 10000 {
					steady = append(steady, rec)
				}
			}
			require.GreaterOrEqual(t, len(steady), 18)
			for _, rec := range steady {
				assert.InDelta(t, 25.0, rec.StrokeRate, 1.5, "stroke %d", rec.Number)
				assert.Greater(t, rec.DrivePercent, 15)
				assert.Less(t, rec.DrivePercent, 85)
			}

			maxRoll := 0.0
			for _, o := range outs[500:] {
				maxRoll = math.Max(maxRoll, math.Abs(o.Pose.Roll))
				assert.GreaterOrEqual(t, o.StrokeAngle, 0.0)
				assert.Less(t, o.StrokeAngle, 180.0)
			}
			assert.Greater(t, maxRoll, 2.0)
			assert.Less(t, maxRoll, 4.5)
		})
	}
}

func TestInertialCalibrationCapture(t *testing.T) {
	t.Parallel()

	p, err := NewInertial(DefaultConfig())
	require.NoError(t, err)

	simCfg := simulate.DefaultConfig()
	simCfg.MountPitch = 6
	simCfg.MountRoll = -4
	simCfg.Noise = 0.02
	gen := simulate.NewRowing(simCfg)
	gen.SetResting(true)

	cal := p.Calibration()
	require.NoError(t, p.StartCalibration())
	runSession(t, p, gen, 1)
	_, err = p.CompleteCalibration()
	assert.ErrorIs(t, err, calibration.ErrInsufficientSamples)
	assert.Equal(t, calibration.Collecting, cal.State())
	runSession(t, p, gen, 2)
	prof, err := p.CompleteCalibration()
	require.NoError(t, err)
	assert.Equal(t, 150, prof.SampleCount)
	assert.InDelta(t, 6.0, prof.PitchOffset, 0.2)
	assert.InDelta(t, -4.0, prof.RollOffset, 0.2)
	assert.Equal(t, calibration.Excellent, prof.Quality())

	out := p.Process(gen.NextInertial())
	assert.InDelta(t, 0.0, out.Boat.Surge, 0.1)
	assert.InDelta(t, 0.0, out.Boat.Sway, 0.1)

	gen.SetResting(false)
	p.Reset()
	runSession(t, p, gen, 40)
	assert.GreaterOrEqual(t, len(p.History()), 10)
	_, ready := cal.Profile()
	assert.True(t, ready, "profile survives a session reset")
}

func TestInertialResetMatchesFreshPipeline(t *testing.T) {
	t.Parallel()

	used, err := NewInertial(DefaultConfig())
	require.NoError(t, err)
	runSession(t, used, simulate.NewRowing(simulate.DefaultConfig()), 30)
	require.NotEmpty(t, used.History())

	used.Reset()
	used.Reset()
	assert.Empty(t, used.History())

	fresh, err := NewInertial(DefaultConfig())
	require.NoError(t, err)

	a := runSession(t, used, simulate.NewRowing(simulate.DefaultConfig()), 20)
	b := runSession(t, fresh, simulate.NewRowing(simulate.DefaultConfig()), 20)
	if diff := cmp.Diff(b, a); diff != "" {
		t.Errorf("reset pipeline diverged (-fresh +reset):\n%s", diff)
	}
}

func TestInertialSurvivesBadSamples(t *testing.T) {
	t.Parallel()

	p, err := NewInertial(DefaultConfig())
	require.NoError(t, err)
	gen := simulate.NewRowing(simulate.DefaultConfig())
	runSession(t, p, gen, 5)

	bad := gen.NextInertial()
	bad.Ay = math.NaN()
	p.Process(bad)

	// Repeated timestamp: dt falls back to the nominal step.
	s := gen.NextInertial()
	p.Process(s)
	out := p.Process(s)
	assert.False(t, math.IsNaN(out.Surge))

	for i := 0; i < 50; i++ {
		out = p.Process(gen.NextInertial())
	}
	assert.False(t, math.IsNaN(out.Surge))
	assert.False(t, math.IsNaN(out.Pose.Pitch))
}

func TestInertialSetThresholds(t *testing.T) {
	t.Parallel()

	p, err := NewInertial(DefaultConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, p.SetThresholds(stroke.Thresholds{Catch: 0.5, Finish: 0.6}), stroke.ErrInvalidThresholds)

	// Thresholds far above the simulated surge: no strokes.
	require.NoError(t, p.SetThresholds(stroke.Thresholds{Catch: 50, Finish: -50}))
	runSession(t, p, simulate.NewRowing(simulate.DefaultConfig()), 20)
	assert.Empty(t, p.History())
	assert.Equal(t, 50.0, p.Config().Thresholds.Catch)
}

func TestPositional(t *testing.T) {
	t.Parallel()

	p, err := NewPositional(DefaultConfig())
	require.NoError(t, err)

	var f Fused
	for i := 0; i < 30; i++ {
		f = p.Process(gps.Fix{TimestampMs: float64(i * 1000), SpeedMps: 4, Validity: "A"})
	}
	assert.InDelta(t, 4.0, f.Velocity, 0.01)
	assert.InDelta(t, 125.0, f.Split500, 0.5)

	held := p.Velocity()
	f = p.Process(gps.Fix{TimestampMs: 31000, SpeedMps: 0, Validity: "V"})
	assert.Equal(t, held, f.Velocity)

	p.Reset()
	assert.Zero(t, p.Velocity())
	f = p.Process(gps.Fix{Validity: "V"})
	assert.Zero(t, f.Split500)
}

func TestPositionalAcceptsFixWithoutValidity(t *testing.T) {
	t.Parallel()

	p, err := NewPositional(DefaultConfig())
	require.NoError(t, err)

	var fix gps.Fix
	require.NoError(t, json.Unmarshal([]byte(`{"t":1000,"speed":4.0,"heading":90}`), &fix))
	var f Fused
	for i := 0; i < 10; i++ {
		fix.TimestampMs = float64(1000 * (i + 1))
		f = p.Process(fix)
	}
	assert.InDelta(t, 4.0, f.Velocity, 0.05)
	assert.NotZero(t, f.Split500)
}

func TestRateMismatch(t *testing.T) {
	t.Parallel()

	assert.False(t, RateMismatch(50, 50))
	assert.False(t, RateMismatch(59, 50))
	assert.False(t, RateMismatch(41, 50))
	assert.True(t, RateMismatch(61, 50))
	assert.True(t, RateMismatch(100, 50))
	assert.True(t, RateMismatch(25, 50))
	assert.True(t, RateMismatch(0, 50))
	assert.True(t, RateMismatch(math.NaN(), 50))
}

func TestInertialFlagsSampleRateDrift(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		realHz   float64
		mismatch bool
	}{
		{50, false},
		{55, false},
		{100, true},
		{25, true},
	} {
		t.Run(fmt.Sprintf("%gHz", tc.realHz), func(t *testing.T) {
			t.Parallel()
			p, err := NewInertial(DefaultConfig())
			require.NoError(t, err)
			assert.Zero(t, p.MeasuredRateHz())

			simCfg := simulate.DefaultConfig()
			simCfg.SampleRateHz = tc.realHz
			gen := simulate.NewRowing(simCfg)

			var out Output
			for i := 0; i < 200; i++ {
				out = p.Process(gen.NextInertial())
			}
			assert.InDelta(t, tc.realHz, p.MeasuredRateHz(), 0.01*tc.realHz)
			assert.Equal(t, tc.mismatch, out.RateMismatch)

			p.Reset()
			assert.Zero(t, p.MeasuredRateHz())
		})
	}
}

func TestInertialIgnoresDropoutsForRate(t *testing.T) {
	t.Parallel()

	p, err := NewInertial(DefaultConfig())
	require.NoError(t, err)
	gen := simulate.NewRowing(simulate.DefaultConfig())
	var out Output
	for i := 0; i < 100; i++ {
		out = p.Process(gen.NextInertial())
	}
	s := gen.NextInertial()
	s.TimestampMs += 5000
	out = p.Process(s)
	assert.False(t, out.RateMismatch)
	assert.InDelta(t, 50.0, p.MeasuredRateHz(), 0.5)
}
