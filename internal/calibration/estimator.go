// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/transform"
)

// DefaultMaxSamples bounds the at-rest buffer (one minute at 50 Hz).
const DefaultMaxSamples = 3000

// State of an Estimator.
type State int

const (
	Idle State = iota
	Collecting
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Estimator derives a mounting Profile from samples taken with the boat at
// rest and corrects later samples with it.
type Estimator struct {
	state      State
	maxSamples int
	ax, ay, az []float64
	profile    Profile

	now func() time.Time
}

// NewEstimator returns an idle estimator holding at most maxSamples samples.
func NewEstimator(maxSamples int) *Estimator {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Estimator{maxSamples: maxSamples, now: time.Now}
}

// State returns the current state.
func (e *Estimator) State() State { return e.state }

// SampleCount returns the number of buffered samples.
func (e *Estimator) SampleCount() int { return len(e.ax) }

// Profile returns the active profile, if any.
func (e *Estimator) Profile() (Profile, bool) {
	return e.profile, e.state == Ready
}

// Start clears the buffer and begins collecting. Ready is left only through
// Clear, so Start fails with ErrProfileActive while a profile is in use.
func (e *Estimator) Start() error {
	if e.state == Ready {
		return ErrProfileActive
	}
	e.ax, e.ay, e.az = e.ax[:0], e.ay[:0], e.az[:0]
	e.state = Collecting
	return nil
}

// AddSample buffers s while collecting. It reports whether the sample was
// kept; samples are dropped outside Collecting, once the buffer is full, or
// when any field is not finite.
func (e *Estimator) AddSample(s imu.Sample) bool {
	if e.state != Collecting || len(e.ax) >= e.maxSamples || !s.Finite() {
		return false
	}
	e.ax = append(e.ax, s.Ax)
	e.ay = append(e.ay, s.Ay)
	e.az = append(e.az, s.Az)
	return true
}

// Complete turns the buffer into a profile once at least minSamples are
// present. With fewer it returns ErrInsufficientSamples and keeps collecting.
func (e *Estimator) Complete(minSamples int) (Profile, error) {
	if e.state != Collecting {
		return Profile{}, ErrNotCollecting
	}
	n := len(e.ax)
	if n == 0 || n < minSamples {
		return Profile{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, n, minSamples)
	}

	mx, vx := stat.PopMeanVariance(e.ax, nil)
	my, vy := stat.PopMeanVariance(e.ay, nil)
	mz, vz := stat.PopMeanVariance(e.az, nil)
	mean := r3.Vector{X: mx, Y: my, Z: mz}

	p := Profile{
		Version:          ProfileVersion,
		PitchOffset:      -math.Atan2(my, math.Hypot(mx, mz)) * 180 / math.Pi,
		RollOffset:       -math.Atan2(mx, math.Hypot(my, mz)) * 180 / math.Pi,
		GravityMagnitude: mean.Norm(),
		SampleCount:      n,
		Variance:         math.Sqrt(math.Max(0, vx+vy+vz)),
		Timestamp:        float64(e.now().UnixMilli()),
	}
	if p.GravityDeviates() {
		log.Printf("calibration: warning: gravity magnitude %.2f m/s² is more than %.1f away from %.1f",
			p.GravityMagnitude, gravityTolerance, nominalGravity)
	}

	e.profile = p
	e.state = Ready
	e.ax, e.ay, e.az = e.ax[:0], e.ay[:0], e.az[:0]
	return p, nil
}

// Apply removes the mounting tilt from acc. Without a profile acc is
// returned unchanged.
func (e *Estimator) Apply(acc r3.Vector) r3.Vector {
	if e.state != Ready {
		return acc
	}
	return transform.RemoveOffset(acc, e.profile.PitchOffset, e.profile.RollOffset)
}

// Export serializes the active profile.
func (e *Estimator) Export() ([]byte, error) {
	if e.state != Ready {
		return nil, ErrNoProfile
	}
	return MarshalProfile(e.profile)
}

// Import replaces the active profile with a serialized one. On error the
// estimator is left as it was.
func (e *Estimator) Import(data []byte) error {
	p, err := UnmarshalProfile(data)
	if err != nil {
		return err
	}
	e.Load(p)
	return nil
}

// Load makes p the active profile.
func (e *Estimator) Load(p Profile) {
	e.profile = p
	e.state = Ready
	e.ax, e.ay, e.az = e.ax[:0], e.ay[:0], e.az[:0]
}

// Clear drops the profile and any buffered samples.
func (e *Estimator) Clear() {
	e.profile = Profile{}
	e.state = Idle
	e.ax, e.ay, e.az = e.ax[:0], e.ay[:0], e.az[:0]
}
