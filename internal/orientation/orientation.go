package orientation

import (
	"math"

	"github.com/golang/geo/r3"
)

// Pose is the boat attitude in degrees, each angle in (-180, 180].
// Pitch is the fore-aft tilt, roll the lateral tilt.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// TiltFromAccel computes pitch and roll from the gravity direction.
// Yaw is left at 0; it cannot be observed from gravity.
//
//	pitch = atan2(ay, sqrt(ax² + az²))
//	roll  = atan2(ax, sqrt(ay² + az²))
func TiltFromAccel(acc r3.Vector) Pose {
	pitchRad := math.Atan2(acc.Y, math.Hypot(acc.X, acc.Z))
	rollRad := math.Atan2(acc.X, math.Hypot(acc.Y, acc.Z))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}

// NormalizeAngle wraps deg into (-180, 180].
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg <= -180 {
		deg += 360
	} else if deg > 180 {
		deg -= 360
	}
	return deg
}
