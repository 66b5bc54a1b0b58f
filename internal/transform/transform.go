// Package transform holds the stateless rotation math that takes phone-frame
// acceleration into the boat frame.
//
// Phone axes: +X across the screen, +Y toward the top edge, +Z out of the
// screen. A phone lying flat reads (0, 0, +g) at rest.
//
// Two elementary tilts are used throughout:
//
//	tiltYZ(a): y' = y·cos a − z·sin a,  z' = y·sin a + z·cos a
//	tiltXZ(a): x' = x·cos a − z·sin a,  z' = x·sin a + z·cos a
//
// A mounting offset (pitch, roll) is applied roll first, then pitch, and is
// removed in the reverse order with negated angles.
package transform

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/orientation"
)

// Mounting describes which way the phone faces in the boat.
type Mounting int

const (
	// Rower: seated facing the stern, phone top toward the stern.
	Rower Mounting = iota
	// Coxswain: seated facing the bow, phone top toward the bow.
	Coxswain
)

func (m Mounting) String() string {
	switch m {
	case Rower:
		return "rower"
	case Coxswain:
		return "coxswain"
	default:
		return fmt.Sprintf("Mounting(%d)", int(m))
	}
}

// ParseMounting accepts "rower" or "coxswain".
func ParseMounting(s string) (Mounting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rower":
		return Rower, nil
	case "coxswain", "cox":
		return Coxswain, nil
	default:
		return 0, fmt.Errorf("unknown mounting %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mounting) MarshalText() ([]byte, error) {
	if m != Rower && m != Coxswain {
		return nil, fmt.Errorf("unknown mounting %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mounting) UnmarshalText(b []byte) error {
	v, err := ParseMounting(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// BoatFrame is acceleration along the boat axes in m/s².
// Heave excludes standard gravity.
type BoatFrame struct {
	Surge float64 `json:"surge"` // positive toward the bow
	Sway  float64 `json:"sway"`
	Heave float64 `json:"heave"` // positive up
}

func deg2rad(d float64) float64 { return d * math.Pi / 180.0 }

func tiltYZ(v r3.Vector, a float64) r3.Vector {
	s, c := math.Sincos(a)
	return r3.Vector{X: v.X, Y: v.Y*c - v.Z*s, Z: v.Y*s + v.Z*c}
}

func tiltXZ(v r3.Vector, a float64) r3.Vector {
	s, c := math.Sincos(a)
	return r3.Vector{X: v.X*c - v.Z*s, Y: v.Y, Z: v.X*s + v.Z*c}
}

// ApplyOffset rotates v by a mounting offset: roll, then pitch.
// Angles are in degrees.
func ApplyOffset(v r3.Vector, pitchOffsetDeg, rollOffsetDeg float64) r3.Vector {
	v = tiltXZ(v, deg2rad(rollOffsetDeg))
	return tiltYZ(v, deg2rad(pitchOffsetDeg))
}

// RemoveOffset is the exact inverse of ApplyOffset: it undoes pitch, then
// roll, using the negated angles.
func RemoveOffset(v r3.Vector, pitchOffsetDeg, rollOffsetDeg float64) r3.Vector {
	v = tiltYZ(v, -deg2rad(pitchOffsetDeg))
	return tiltXZ(v, -deg2rad(rollOffsetDeg))
}

// ToBoatFrame levels acc by the current pose and maps it onto the boat axes
// for the given mounting. NaN components propagate.
func ToBoatFrame(acc r3.Vector, pose orientation.Pose, m Mounting) BoatFrame {
	// A pose tilt is the negative of an offset.
	level := RemoveOffset(acc, -pose.Pitch, -pose.Roll)

	bf := BoatFrame{
		Surge: level.Y,
		Sway:  level.X,
		Heave: level.Z - imu.StandardGravity,
	}
	if m == Rower {
		// 180° about the vertical axis.
		bf.Surge = -bf.Surge
		bf.Sway = -bf.Sway
	}
	return bf
}
