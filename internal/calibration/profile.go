package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// ProfileVersion is written into every exported profile.
const ProfileVersion = 2

const (
	nominalGravity   = 9.8
	gravityTolerance = 2.0
)

var (
	// ErrInsufficientSamples is returned by Complete when fewer samples than
	// requested have been collected. The buffer is kept.
	ErrInsufficientSamples = errors.New("calibration: insufficient samples")
	// ErrInvalidFormat is returned when an imported profile is malformed.
	ErrInvalidFormat = errors.New("calibration: invalid profile format")
	// ErrNotCollecting is returned by Complete outside the Collecting state.
	ErrNotCollecting = errors.New("calibration: not collecting")
	// ErrNoProfile is returned by Export before a profile exists.
	ErrNoProfile = errors.New("calibration: no profile")
	// ErrProfileActive is returned by Start while a profile is in use; Clear
	// it first.
	ErrProfileActive = errors.New("calibration: profile active, clear it first")
)

// Profile is a mounting calibration. Yaw and lateral offsets are always zero;
// they cannot be derived from gravity alone.
type Profile struct {
	Version          int     `json:"version"`
	PitchOffset      float64 `json:"pitchOffset"`      // degrees
	RollOffset       float64 `json:"rollOffset"`       // degrees
	YawOffset        float64 `json:"yawOffset"`        // degrees
	LateralOffset    float64 `json:"lateralOffset"`    // meters
	GravityMagnitude float64 `json:"gravityMagnitude"` // m/s²
	SampleCount      int     `json:"sampleCount"`
	Variance         float64 `json:"variance"`  // m/s²
	Timestamp        float64 `json:"timestamp"` // ms since Unix epoch
}

// Quality grades how still the phone was while the profile was captured.
type Quality int

const (
	Excellent Quality = iota
	Good
	Fair
	Poor
)

func (q Quality) String() string {
	switch q {
	case Excellent:
		return "excellent"
	case Good:
		return "good"
	case Fair:
		return "fair"
	default:
		return "poor"
	}
}

// Quality classifies the capture variance.
func (p Profile) Quality() Quality {
	switch {
	case p.Variance < 0.05:
		return Excellent
	case p.Variance < 0.1:
		return Good
	case p.Variance < 0.2:
		return Fair
	default:
		return Poor
	}
}

// GravityDeviates reports whether the measured gravity is implausible for a
// phone at rest.
func (p Profile) GravityDeviates() bool {
	return math.Abs(p.GravityMagnitude-nominalGravity) > gravityTolerance
}

// record mirrors Profile with optional fields so missing keys can be told
// apart from zero values.
type record struct {
	Version          *float64 `json:"version"`
	PitchOffset      *float64 `json:"pitchOffset"`
	RollOffset       *float64 `json:"rollOffset"`
	YawOffset        *float64 `json:"yawOffset"`
	LateralOffset    *float64 `json:"lateralOffset"`
	GravityMagnitude *float64 `json:"gravityMagnitude"`
	SampleCount      *float64 `json:"sampleCount"`
	Variance         *float64 `json:"variance"`
	Timestamp        *float64 `json:"timestamp"`
}

// MarshalProfile serializes p as a flat JSON record.
func MarshalProfile(p Profile) ([]byte, error) {
	if p.Version == 0 {
		p.Version = ProfileVersion
	}
	return json.MarshalIndent(p, "", "  ")
}

// UnmarshalProfile parses a flat JSON record. pitchOffset, rollOffset and
// gravityMagnitude are required; unknown fields are ignored.
func UnmarshalProfile(data []byte) (Profile, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	switch {
	case r.PitchOffset == nil:
		return Profile{}, fmt.Errorf("%w: missing pitchOffset", ErrInvalidFormat)
	case r.RollOffset == nil:
		return Profile{}, fmt.Errorf("%w: missing rollOffset", ErrInvalidFormat)
	case r.GravityMagnitude == nil:
		return Profile{}, fmt.Errorf("%w: missing gravityMagnitude", ErrInvalidFormat)
	}

	p := Profile{
		Version:          ProfileVersion,
		PitchOffset:      *r.PitchOffset,
		RollOffset:       *r.RollOffset,
		GravityMagnitude: *r.GravityMagnitude,
	}
	if r.Version != nil {
		p.Version = int(*r.Version)
	}
	if r.SampleCount != nil {
		p.SampleCount = int(*r.SampleCount)
	}
	if r.Variance != nil {
		if *r.Variance < 0 {
			return Profile{}, fmt.Errorf("%w: negative variance %g", ErrInvalidFormat, *r.Variance)
		}
		p.Variance = *r.Variance
	}
	if r.Timestamp != nil {
		p.Timestamp = *r.Timestamp
	}
	return p, nil
}

// SaveFile writes p to path.
func SaveFile(path string, p Profile) error {
	data, err := MarshalProfile(p)
	if err != nil {
		return fmt.Errorf("encode calibration profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write calibration profile: %w", err)
	}
	return nil
}

// LoadFile reads a profile previously written by SaveFile.
func LoadFile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read calibration profile: %w", err)
	}
	return UnmarshalProfile(data)
}
