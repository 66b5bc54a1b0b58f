// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline wires the estimators into the two independent chains:
// inertial samples to stroke metrics, and GPS fixes to fused velocity.
package pipeline

import (
	"math"

	"github.com/relabs-tech/stroke_coach/internal/baseline"
	"github.com/relabs-tech/stroke_coach/internal/calibration"
	"github.com/relabs-tech/stroke_coach/internal/dsp"
	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/orientation"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
	"github.com/relabs-tech/stroke_coach/internal/transform"
)

// Output is everything derived from one inertial sample.
type Output struct {
	TimestampMs float64             `json:"t"`
	Pose        orientation.Pose    `json:"pose"`
	Boat        transform.BoatFrame `json:"boat"`
	Band        float64             `json:"band"`
	Smoothed    float64             `json:"smoothed"`
	Baseline    float64             `json:"baseline"`
	Surge       float64             `json:"surge"` // corrected, fed to the detector
	Phase       stroke.Phase        `json:"phase"`
	StrokeAngle float64             `json:"strokeAngle"`
	StrokeCount int                 `json:"strokeCount"`
	Stroke      *stroke.Record      `json:"stroke,omitempty"`

	// RateMismatch is set once the measured sample rate has settled outside
	// RateTolerance of Config.SampleRateHz.
	RateMismatch bool `json:"rateMismatch,omitempty"`
}

// Inertial is the per-session chain for inertial samples:
// calibration, orientation, boat frame, band-pass, low-pass, baseline,
// stroke detection. It is not safe for concurrent use.
type Inertial struct {
	cfg Config

	cal      *calibration.Estimator
	orient   *orientation.ComplementaryFilter
	filters  *dsp.Chain
	base     *baseline.Corrector
	detector *stroke.Detector
	rate     rateMonitor

	lastTs  float64
	hasLast bool
}

// NewInertial validates cfg and builds every stage.
func NewInertial(cfg Config) (*Inertial, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filters, err := dsp.NewChain(cfg.BandLowHz, cfg.BandHighHz, cfg.SampleRateHz, cfg.Smoothing)
	if err != nil {
		return nil, err
	}
	base, err := baseline.NewCorrector(cfg.BaselineWindowMs, cfg.BaselineMaxSamples)
	if err != nil {
		return nil, err
	}
	det, err := stroke.NewDetector(cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	return &Inertial{
		cfg:      cfg,
		cal:      calibration.NewEstimator(cfg.CalibrationMaxSamples),
		orient:   orientation.NewComplementaryFilter(cfg.Alpha, cfg.AngularUnit),
		filters:  filters,
		base:     base,
		detector: det,
		rate:     rateMonitor{designHz: cfg.SampleRateHz},
	}, nil
}

// Process runs one sample through the chain. While a calibration capture is
// in progress the raw sample is also buffered for it.
func (p *Inertial) Process(s imu.Sample) Output {
	dt := 0.0
	if p.hasLast {
		dt = (s.TimestampMs - p.lastTs) / 1000
		p.rate.observe(dt)
	}
	if !math.IsNaN(s.TimestampMs) && !math.IsInf(s.TimestampMs, 0) {
		p.lastTs = s.TimestampMs
		p.hasLast = true
	}

	p.cal.AddSample(s)
	acc := p.cal.Apply(s.Accel())
	pose := p.orient.Update(acc, s.Gyro(), dt)
	boat := transform.ToBoatFrame(acc, pose, p.cfg.Mounting)

	band, smooth := p.filters.Filter(boat.Surge)
	corrected := p.base.Correct(s.TimestampMs, smooth, p.detector.Phase())

	out := Output{
		TimestampMs: s.TimestampMs,
		Pose:        pose,
		Boat:        boat,
		Band:        band,
		Smoothed:    smooth,
		Baseline:    p.base.Baseline(),
		Surge:       corrected,

		RateMismatch: p.rate.mismatched,
	}
	if rec, done := p.detector.Update(s.TimestampMs, corrected); done {
		out.Stroke = &rec
	}
	out.Phase = p.detector.Phase()
	out.StrokeAngle = p.detector.StrokeAngle(s.TimestampMs)
	out.StrokeCount = p.detector.Count()
	return out
}

// Calibration exposes the estimator for start and status queries.
func (p *Inertial) Calibration() *calibration.Estimator { return p.cal }

// StartCalibration begins buffering samples for a new profile. An active
// profile must be cleared first.
func (p *Inertial) StartCalibration() error { return p.cal.Start() }

// CompleteCalibration finishes the capture with the configured minimum
// sample count. On success the orientation filter is reseeded so that the
// new correction takes effect at once.
func (p *Inertial) CompleteCalibration() (calibration.Profile, error) {
	prof, err := p.cal.Complete(p.cfg.CalibrationMinSamples)
	if err != nil {
		return calibration.Profile{}, err
	}
	p.orient.Reset()
	return prof, nil
}

// LoadCalibration activates a stored profile.
func (p *Inertial) LoadCalibration(prof calibration.Profile) {
	p.cal.Load(prof)
	p.orient.Reset()
}

// ClearCalibration drops the active profile and any capture in progress.
func (p *Inertial) ClearCalibration() {
	p.cal.Clear()
	p.orient.Reset()
}

// SetThresholds updates the detector from the next sample on.
func (p *Inertial) SetThresholds(th stroke.Thresholds) error {
	if err := p.detector.SetThresholds(th); err != nil {
		return err
	}
	p.cfg.Thresholds = th
	return nil
}

// History returns the completed strokes of the session.
func (p *Inertial) History() []stroke.Record { return p.detector.History() }

// MeasuredRateHz returns the smoothed rate samples arrive at, or 0 before
// the second sample.
func (p *Inertial) MeasuredRateHz() float64 { return p.rate.rateHz() }

// Config returns the active configuration.
func (p *Inertial) Config() Config { return p.cfg }

// Reset starts a new session: every filter, the baseline window and the
// stroke history are cleared. The calibration profile describes the mount,
// not the session, and is kept.
func (p *Inertial) Reset() {
	p.orient.Reset()
	p.filters.Reset()
	p.base.Reset()
	p.detector.Reset()
	p.rate.reset()
	p.lastTs = 0
	p.hasLast = false
}
