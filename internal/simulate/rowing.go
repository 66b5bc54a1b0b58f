// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package simulate generates synthetic rowing sessions for demo mode, tests
// and sample session files.
package simulate

import (
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/stroke_coach/internal/gps"
	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/transform"
)

const (
	metersPerDegreeLat = 111320.0
	rollPeriodS        = 3.3
)

// Config shapes the generated session. Zero fields take the defaults from
// DefaultConfig.
type Config struct {
	StrokeRate     float64 // strokes/min
	SampleRateHz   float64 // inertial rate
	GPSRateHz      float64
	SurgeAmplitude float64 // m/s²
	BoatSpeed      float64 // m/s
	RollAmplitude  float64 // degrees
	Noise          float64 // accelerometer noise sd, m/s²
	MountPitch     float64 // mounting offset, degrees
	MountRoll      float64
	Mounting       transform.Mounting
	StartMs        float64
	StartLat       float64
	StartLon       float64
	Seed           uint64
}

// DefaultConfig is a steady 25 spm piece at 4 m/s.
func DefaultConfig() Config {
	return Config{
		StrokeRate:     25,
		SampleRateHz:   50,
		GPSRateHz:      1,
		SurgeAmplitude: 2.0,
		BoatSpeed:      4.0,
		RollAmplitude:  3.0,
		Noise:          0.05,
		StartLat:       53.5,
		StartLon:       10.0,
		Seed:           1,
	}
}

// Rowing produces inertial and GPS samples on a shared clock.
type Rowing struct {
	cfg     Config
	rng     *rand.Rand
	imuN    int
	gpsN    int
	resting bool
	lat     float64
	lon     float64
}

// NewRowing returns a generator for cfg.
func NewRowing(cfg Config) *Rowing {
	def := DefaultConfig()
	if cfg.StrokeRate <= 0 {
		cfg.StrokeRate = def.StrokeRate
	}
	if cfg.SampleRateHz <= 0 {
		cfg.SampleRateHz = def.SampleRateHz
	}
	if cfg.GPSRateHz <= 0 {
		cfg.GPSRateHz = def.GPSRateHz
	}
	if cfg.SurgeAmplitude == 0 {
		cfg.SurgeAmplitude = def.SurgeAmplitude
	}
	if cfg.BoatSpeed == 0 {
		cfg.BoatSpeed = def.BoatSpeed
	}
	if cfg.StartLat == 0 && cfg.StartLon == 0 {
		cfg.StartLat, cfg.StartLon = def.StartLat, def.StartLon
	}
	return &Rowing{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		lat: cfg.StartLat,
		lon: cfg.StartLon,
	}
}

// SetResting stops or resumes rowing. A resting boat is level and still,
// which is what a calibration capture needs.
func (r *Rowing) SetResting(resting bool) { r.resting = resting }

func (r *Rowing) noise(sd float64) float64 {
	if sd <= 0 {
		return 0
	}
	return r.rng.NormFloat64() * sd
}

// NextInertial returns the next inertial sample with gyro in deg/s.
func (r *Rowing) NextInertial() imu.Sample {
	ts := r.cfg.StartMs + float64(r.imuN)*1000/r.cfg.SampleRateHz
	r.imuN++
	sec := (ts - r.cfg.StartMs) / 1000

	var surge, roll, rollRate float64
	if !r.resting {
		surge = r.cfg.SurgeAmplitude * math.Sin(2*math.Pi*r.cfg.StrokeRate/60*sec)
		w := 2 * math.Pi / rollPeriodS
		roll = r.cfg.RollAmplitude * math.Sin(w*sec)
		rollRate = r.cfg.RollAmplitude * w * math.Cos(w*sec)
	}

	level := r3.Vector{Y: surge, Z: imu.StandardGravity}
	if r.cfg.Mounting == transform.Rower {
		level.Y = -level.Y
	}
	// Boat attitude, then the phone's own mounting tilt.
	acc := transform.ApplyOffset(level, 0, -roll)
	acc = transform.ApplyOffset(acc, r.cfg.MountPitch, r.cfg.MountRoll)
	gyro := transform.ApplyOffset(r3.Vector{Y: -rollRate}, r.cfg.MountPitch, r.cfg.MountRoll)

	return imu.Sample{
		TimestampMs: ts,
		Ax:          acc.X + r.noise(r.cfg.Noise),
		Ay:          acc.Y + r.noise(r.cfg.Noise),
		Az:          acc.Z + r.noise(r.cfg.Noise),
		Gx:          gyro.X + r.noise(r.cfg.Noise*4),
		Gy:          gyro.Y + r.noise(r.cfg.Noise*4),
		Gz:          gyro.Z + r.noise(r.cfg.Noise*4),
	}
}

// NextGPS returns the next positional fix, heading due east.
func (r *Rowing) NextGPS() gps.Fix {
	ts := r.cfg.StartMs + float64(r.gpsN)*1000/r.cfg.GPSRateHz
	r.gpsN++

	speed := 0.0
	if !r.resting {
		sec := (ts - r.cfg.StartMs) / 1000
		speed = r.cfg.BoatSpeed + 0.2*math.Sin(2*math.Pi*r.cfg.StrokeRate/60*sec) + r.noise(0.2)
		speed = math.Max(speed, 0)
	}
	r.lon += speed / r.cfg.GPSRateHz / (metersPerDegreeLat * math.Cos(r.lat*math.Pi/180))

	return gps.Fix{
		TimestampMs: ts,
		Latitude:    r.lat,
		Longitude:   r.lon,
		SpeedMps:    speed,
		SpeedKnots:  speed / gps.KnotsToMetersPerSecond,
		HeadingDeg:  90,
		AccuracyM:   5,
		Validity:    "A",
	}
}

// InertialPeriodMs is the spacing of inertial samples.
func (r *Rowing) InertialPeriodMs() float64 { return 1000 / r.cfg.SampleRateHz }

// GPSPeriodMs is the spacing of GPS fixes.
func (r *Rowing) GPSPeriodMs() float64 { return 1000 / r.cfg.GPSRateHz }
