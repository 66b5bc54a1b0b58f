// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/stroke_coach/internal/imu"
)

const (
	// DefaultAlpha weights the gyro-integrated angle.
	DefaultAlpha = 0.98
	// DefaultDt replaces a missing or non-positive elapsed time, in seconds.
	DefaultDt = 0.02
	// MaxDt caps the integration step after a gap, in seconds.
	MaxDt = 0.2
)

// ComplementaryFilter blends gyro integration with accelerometer tilt.
//
// Pitch integrates the X rate and yaw the Z rate. Roll is measured positive
// toward +X, which is the opposite sense of a right-hand rotation about Y, so
// it integrates the negated Y rate. Yaw has no accelerometer reference and
// drifts freely.
type ComplementaryFilter struct {
	alpha       float64
	unit        imu.AngularUnit
	pose        Pose
	initialized bool
}

// NewComplementaryFilter returns a filter with the given gyro weight. An alpha
// outside (0, 1) falls back to DefaultAlpha.
func NewComplementaryFilter(alpha float64, unit imu.AngularUnit) *ComplementaryFilter {
	if !(alpha > 0 && alpha < 1) {
		alpha = DefaultAlpha
	}
	return &ComplementaryFilter{alpha: alpha, unit: unit}
}

// Update advances the estimate by dt seconds and returns the new pose.
// The first update after construction or Reset seeds pitch and roll from
// the accelerometer. Non-finite inputs leave the state untouched.
func (f *ComplementaryFilter) Update(acc, gyro r3.Vector, dt float64) Pose {
	if !finite(acc) || !finite(gyro) {
		return f.pose
	}
	dt = clampDt(dt)

	tilt := TiltFromAccel(acc)
	if !f.initialized {
		f.pose = Pose{Roll: tilt.Roll, Pitch: tilt.Pitch}
		f.initialized = true
		return f.pose
	}

	gx := f.unit.ToDegrees(gyro.X)
	gy := f.unit.ToDegrees(gyro.Y)
	gz := f.unit.ToDegrees(gyro.Z)

	pitchGyro := f.pose.Pitch + gx*dt
	rollGyro := f.pose.Roll - gy*dt

	f.pose.Pitch = NormalizeAngle(f.alpha*pitchGyro + (1-f.alpha)*tilt.Pitch)
	f.pose.Roll = NormalizeAngle(f.alpha*rollGyro + (1-f.alpha)*tilt.Roll)
	f.pose.Yaw = NormalizeAngle(f.pose.Yaw + gz*dt)

	return f.pose
}

// Pose returns the current estimate.
func (f *ComplementaryFilter) Pose() Pose {
	return f.pose
}

// Reset zeroes the angles; the next update reseeds from the accelerometer.
func (f *ComplementaryFilter) Reset() {
	f.pose = Pose{}
	f.initialized = false
}

func clampDt(dt float64) float64 {
	if math.IsNaN(dt) || dt <= 0 {
		return DefaultDt
	}
	if dt > MaxDt {
		return MaxDt
	}
	return dt
}

func finite(v r3.Vector) bool {
	for _, c := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
