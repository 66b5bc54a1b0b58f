package pipeline

import (
	"github.com/relabs-tech/stroke_coach/internal/gps"
	"github.com/relabs-tech/stroke_coach/internal/velocity"
)

// Fused is the output for one GPS fix.
type Fused struct {
	TimestampMs float64 `json:"t"`
	RawSpeed    float64 `json:"rawSpeed"` // m/s
	Velocity    float64 `json:"velocity"` // m/s
	Variance    float64 `json:"variance"`
	Split500    float64 `json:"split500,omitempty"` // seconds per 500 m
}

// Positional is the per-session chain for GPS fixes.
type Positional struct {
	kalman   *velocity.Kalman
	minSplit float64
}

// NewPositional validates cfg and builds the velocity filter.
func NewPositional(cfg Config) (*Positional, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k, err := velocity.NewKalman(cfg.ProcessNoise, cfg.MeasurementNoise)
	if err != nil {
		return nil, err
	}
	return &Positional{kalman: k, minSplit: cfg.MinSplitSpeed}, nil
}

// Process folds in fix. Fixes the receiver marks void leave the estimate
// unchanged, like a dropout.
func (p *Positional) Process(fix gps.Fix) Fused {
	if fix.Valid() {
		p.kalman.UpdateGPS(fix.SpeedMps)
	}
	v := p.kalman.Velocity()
	return Fused{
		TimestampMs: fix.TimestampMs,
		RawSpeed:    fix.SpeedMps,
		Velocity:    v,
		Variance:    p.kalman.Variance(),
		Split500:    velocity.Split500(v, p.minSplit),
	}
}

// Velocity returns the current fused speed.
func (p *Positional) Velocity() float64 { return p.kalman.Velocity() }

// Reset restores the initial estimate.
func (p *Positional) Reset() { p.kalman.Reset() }
