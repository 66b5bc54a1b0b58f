package orientation

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/stroke_coach/internal/imu"
)

var level = r3.Vector{Z: imu.StandardGravity}

func TestTiltFromAccel(t *testing.T) {
	t.Parallel()

	p := TiltFromAccel(r3.Vector{Y: imu.StandardGravity * math.Sin(10*math.Pi/180), Z: imu.StandardGravity * math.Cos(10*math.Pi/180)})
	assert.InDelta(t, 10.0, p.Pitch, 1e-9)
	assert.InDelta(t, 0.0, p.Roll, 1e-9)
	assert.Zero(t, p.Yaw)
}

func TestNormalizeAngle(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 180.0, NormalizeAngle(-180), 1e-12)
	assert.InDelta(t, -170.0, NormalizeAngle(190), 1e-12)
	assert.InDelta(t, 10.0, NormalizeAngle(730), 1e-12)
}

func TestComplementaryFilter(t *testing.T) {
	t.Parallel()

	t.Run("seeds from accelerometer", func(t *testing.T) {
		t.Parallel()
		f := NewComplementaryFilter(DefaultAlpha, imu.DegreesPerSecond)
		p := f.Update(r3.Vector{X: 1, Z: 9.75}, r3.Vector{}, 0.02)
		assert.InDelta(t, TiltFromAccel(r3.Vector{X: 1, Z: 9.75}).Roll, p.Roll, 1e-12)
	})

	t.Run("gyro dominates short term", func(t *testing.T) {
		t.Parallel()
		f := NewComplementaryFilter(DefaultAlpha, imu.DegreesPerSecond)
		f.Update(level, r3.Vector{}, 0.02)
		p := f.Update(level, r3.Vector{X: 50}, 0.02)
		// 0.98 * (0 + 50*0.02) + 0.02 * 0
		assert.InDelta(t, 0.98, p.Pitch, 1e-9)
	})

	t.Run("accelerometer corrects drift", func(t *testing.T) {
		t.Parallel()
		f := NewComplementaryFilter(DefaultAlpha, imu.DegreesPerSecond)
		f.Update(level, r3.Vector{}, 0.02)
		var p Pose
		for i := 0; i < 2000; i++ {
			p = f.Update(level, r3.Vector{X: 0.5}, 0.02)
		}
		// Steady state: alpha*rate*dt / (1-alpha)
		assert.InDelta(t, 0.98*0.5*0.02/0.02, p.Pitch, 1e-6)
	})

	t.Run("radians are converted", func(t *testing.T) {
		t.Parallel()
		f := NewComplementaryFilter(DefaultAlpha, imu.RadiansPerSecond)
		f.Update(level, r3.Vector{}, 0.02)
		p := f.Update(level, r3.Vector{Z: math.Pi}, 0.1)
		assert.InDelta(t, 18.0, p.Yaw, 1e-9)
	})

	t.Run("degenerate dt is clamped", func(t *testing.T) {
		t.Parallel()
		for _, dt := range []float64{0, -1, math.NaN()} {
			f := NewComplementaryFilter(DefaultAlpha, imu.DegreesPerSecond)
			f.Update(level, r3.Vector{}, dt)
			p := f.Update(level, r3.Vector{Z: 10}, dt)
			assert.InDelta(t, 10*DefaultDt, p.Yaw, 1e-12)
		}
	})

	t.Run("non-finite input holds state", func(t *testing.T) {
		t.Parallel()
		f := NewComplementaryFilter(DefaultAlpha, imu.DegreesPerSecond)
		before := f.Update(r3.Vector{X: 0.5, Z: 9.7}, r3.Vector{}, 0.02)
		after := f.Update(r3.Vector{X: math.NaN(), Z: 9.7}, r3.Vector{}, 0.02)
		assert.Equal(t, before, after)
	})

	t.Run("reset zeroes angles", func(t *testing.T) {
		t.Parallel()
		f := NewComplementaryFilter(DefaultAlpha, imu.DegreesPerSecond)
		f.Update(r3.Vector{X: 2, Z: 9.5}, r3.Vector{}, 0.02)
		f.Update(level, r3.Vector{Z: 30}, 0.02)
		f.Reset()
		assert.Equal(t, Pose{}, f.Pose())
	})
}
