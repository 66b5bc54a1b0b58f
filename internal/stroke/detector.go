// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package stroke detects catch and finish events in the corrected surge
// signal and derives per-stroke timing.
package stroke

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultCatchThreshold  = 0.6  // m/s²
	DefaultFinishThreshold = -0.3 // m/s²

	// DefaultDriveMs seeds the stroke angle before any drive has been timed.
	DefaultDriveMs = 800.0
	// DefaultMaxHistory bounds the stroke history kept per session.
	DefaultMaxHistory = 10000
)

// ErrInvalidThresholds is returned for a threshold pair that cannot
// produce hysteresis.
var ErrInvalidThresholds = errors.New("stroke: invalid thresholds")

// Phase of the stroke cycle.
type Phase int

const (
	Recovery Phase = iota
	Drive
)

func (p Phase) String() string {
	if p == Drive {
		return "drive"
	}
	return "recovery"
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "drive":
		*p = Drive
	case "recovery":
		*p = Recovery
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}

// Thresholds on the corrected surge signal, in m/s².
type Thresholds struct {
	Catch  float64 `json:"catch" yaml:"catch"`
	Finish float64 `json:"finish" yaml:"finish"`
}

// DefaultThresholds returns the stock catch/finish pair.
func DefaultThresholds() Thresholds {
	return Thresholds{Catch: DefaultCatchThreshold, Finish: DefaultFinishThreshold}
}

// Validate requires a negative finish strictly below the catch.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.Catch) || math.IsInf(t.Catch, 0) || math.IsNaN(t.Finish) || math.IsInf(t.Finish, 0) {
		return fmt.Errorf("%w: catch %g, finish %g", ErrInvalidThresholds, t.Catch, t.Finish)
	}
	if t.Finish >= 0 {
		return fmt.Errorf("%w: finish %g must be negative", ErrInvalidThresholds, t.Finish)
	}
	if t.Finish >= t.Catch {
		return fmt.Errorf("%w: finish %g must be below catch %g", ErrInvalidThresholds, t.Finish, t.Catch)
	}
	return nil
}

// Record describes one completed drive. Times are milliseconds.
// StrokeRate and DrivePercent are zero for the first stroke of a session,
// when no previous finish is known.
type Record struct {
	Number          int     `json:"stroke"`
	CatchTimestamp  float64 `json:"catchTime"`
	FinishTimestamp float64 `json:"finishTime"`
	DriveTime       float64 `json:"driveTime"`
	RecoveryTime    float64 `json:"recoveryTime"`
	StrokeRate      float64 `json:"strokeRate,omitempty"` // strokes/min
	DrivePercent    int     `json:"drivePercent,omitempty"`
}

// HasRate reports whether the record carries cycle metrics.
func (r Record) HasRate() bool { return r.StrokeRate > 0 }

// Detector is a two-state hysteresis machine over corrected surge.
type Detector struct {
	th         Thresholds
	maxHistory int

	phase      Phase
	count      int
	catchTs    float64
	finishTs   float64
	hasFinish  bool
	lastDrive  float64
	angleScale float64 // ms, fixed at each catch
	history    []Record
}

// NewDetector returns a detector in Recovery with no strokes.
func NewDetector(th Thresholds) (*Detector, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Detector{th: th, maxHistory: DefaultMaxHistory}, nil
}

// SetThresholds replaces the thresholds from the next sample on.
func (d *Detector) SetThresholds(th Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}
	d.th = th
	return nil
}

// Thresholds returns the active thresholds.
func (d *Detector) Thresholds() Thresholds { return d.th }

// Phase returns the current phase.
func (d *Detector) Phase() Phase { return d.phase }

// Count returns the number of catches since the last reset.
func (d *Detector) Count() int { return d.count }

// History returns a copy of the completed strokes, oldest first.
func (d *Detector) History() []Record {
	out := make([]Record, len(d.history))
	copy(out, d.history)
	return out
}

// Update feeds one corrected surge value at time t (ms). It returns the
// completed record when the sample is a finish.
func (d *Detector) Update(t, surge float64) (Record, bool) {
	switch d.phase {
	case Recovery:
		if surge >= d.th.Catch {
			d.phase = Drive
			d.catchTs = t
			d.count++
			expected := DefaultDriveMs
			if d.lastDrive > 0 {
				expected = d.lastDrive
			}
			d.angleScale = expected / 4
		}
	case Drive:
		if surge <= d.th.Finish {
			rec := d.finish(t)
			return rec, true
		}
	}
	return Record{}, false
}

func (d *Detector) finish(t float64) Record {
	rec := Record{
		Number:          d.count,
		CatchTimestamp:  d.catchTs,
		FinishTimestamp: t,
		DriveTime:       t - d.catchTs,
	}
	if d.hasFinish {
		rec.RecoveryTime = d.catchTs - d.finishTs
		if cycle := rec.DriveTime + rec.RecoveryTime; cycle > 0 {
			rec.StrokeRate = 60000 / cycle
			rec.DrivePercent = int(math.Round(100 * rec.DriveTime / cycle))
		}
	}

	d.phase = Recovery
	d.finishTs = t
	d.hasFinish = true
	d.lastDrive = rec.DriveTime

	if len(d.history) >= d.maxHistory {
		d.history = append(d.history[:0], d.history[1:]...)
	}
	d.history = append(d.history, rec)
	return rec
}

// StrokeAngle maps time since the catch onto a pseudo crank angle in
// [0, 180): 0 at the catch, 144 after the previous drive time, and still
// rising hours into a drive that never finishes. Outside a drive it is 0.
func (d *Detector) StrokeAngle(t float64) float64 {
	if d.phase != Drive || d.angleScale <= 0 {
		return 0
	}
	elapsed := t - d.catchTs
	if !(elapsed > 0) {
		return 0
	}
	angle := 180 - 180*d.angleScale/(elapsed+d.angleScale)
	if angle >= 180 {
		angle = math.Nextafter(180, 0)
	}
	return angle
}

// Reset returns to Recovery with no strokes and no catch or finish history.
func (d *Detector) Reset() {
	d.phase = Recovery
	d.count = 0
	d.catchTs = 0
	d.finishTs = 0
	d.hasFinish = false
	d.lastDrive = 0
	d.angleScale = 0
	d.history = d.history[:0]
}
