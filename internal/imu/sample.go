package imu

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

// Sample is a single inertial reading in the phone frame.
// Timestamps are milliseconds and must not decrease within a stream.
type Sample struct {
	TimestampMs float64 `json:"t"`

	Ax float64 `json:"ax"` // m/s²
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Gx float64 `json:"gx"` // angular rate, unit fixed by the pipeline configuration
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`
}

// Accel returns the acceleration as a vector.
func (s Sample) Accel() r3.Vector {
	return r3.Vector{X: s.Ax, Y: s.Ay, Z: s.Az}
}

// Gyro returns the angular rate as a vector.
func (s Sample) Gyro() r3.Vector {
	return r3.Vector{X: s.Gx, Y: s.Gy, Z: s.Gz}
}

// Finite reports whether every field is a finite number.
func (s Sample) Finite() bool {
	for _, v := range [...]float64{s.TimestampMs, s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// AngularUnit is the unit of the gyroscope fields of a Sample.
type AngularUnit int

const (
	DegreesPerSecond AngularUnit = iota
	RadiansPerSecond
)

func (u AngularUnit) String() string {
	switch u {
	case DegreesPerSecond:
		return "deg/s"
	case RadiansPerSecond:
		return "rad/s"
	default:
		return fmt.Sprintf("AngularUnit(%d)", int(u))
	}
}

// Valid reports whether u is a known unit.
func (u AngularUnit) Valid() bool {
	return u == DegreesPerSecond || u == RadiansPerSecond
}

// ToDegrees converts an angular rate in unit u to deg/s.
func (u AngularUnit) ToDegrees(rate float64) float64 {
	if u == RadiansPerSecond {
		return rate * 180.0 / math.Pi
	}
	return rate
}

// ParseAngularUnit accepts "deg/s", "dps", "rad/s" or "rps".
func ParseAngularUnit(s string) (AngularUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deg/s", "dps", "deg":
		return DegreesPerSecond, nil
	case "rad/s", "rps", "rad":
		return RadiansPerSecond, nil
	default:
		return 0, fmt.Errorf("unknown angular unit %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (u AngularUnit) MarshalText() ([]byte, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("unknown angular unit %d", int(u))
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *AngularUnit) UnmarshalText(b []byte) error {
	v, err := ParseAngularUnit(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}
