package velocity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKalman(t *testing.T) *Kalman {
	t.Helper()
	k, err := NewKalman(DefaultProcessNoise, DefaultMeasurementNoise)
	require.NoError(t, err)
	return k
}

func TestKalmanConverges(t *testing.T) {
	t.Parallel()

	k := newKalman(t)
	assert.Zero(t, k.Velocity())
	assert.Equal(t, InitialVariance, k.Variance())

	prevVar := k.Variance()
	prevErr := math.Inf(1)
	for i := 0; i < 50; i++ {
		v := k.UpdateGPS(4.2)
		errNow := math.Abs(v - 4.2)
		assert.LessOrEqual(t, errNow, prevErr)
		assert.LessOrEqual(t, k.Variance(), prevVar)
		prevErr, prevVar = errNow, k.Variance()
	}
	assert.InDelta(t, 4.2, k.Velocity(), 1e-3)
	assert.Less(t, k.Variance(), DefaultMeasurementNoise)
}

func TestKalmanHoldsThroughDropout(t *testing.T) {
	t.Parallel()

	k := newKalman(t)
	for i := 0; i < 10; i++ {
		k.UpdateGPS(3.5)
	}
	held := k.Velocity()
	// No update calls for the gap.
	assert.Equal(t, held, k.Velocity())
	assert.Equal(t, held, k.UpdateGPS(math.NaN()))
	assert.Equal(t, held, k.Velocity())
}

func TestKalmanSmoothsNoise(t *testing.T) {
	t.Parallel()

	k := newKalman(t)
	for i := 0; i < 200; i++ {
		noise := 0.8
		if i%2 == 0 {
			noise = -0.8
		}
		k.UpdateGPS(4 + noise)
	}
	assert.InDelta(t, 4.0, k.Velocity(), 0.4)
}

func TestKalmanReset(t *testing.T) {
	t.Parallel()

	k := newKalman(t)
	k.UpdateGPS(5)
	k.Reset()
	assert.Zero(t, k.Velocity())
	assert.Equal(t, InitialVariance, k.Variance())
	k.Reset()
	assert.Zero(t, k.Velocity())
}

func TestNewKalmanValidates(t *testing.T) {
	t.Parallel()

	for _, c := range [][2]float64{{0, 1}, {0.1, 0}, {-1, 1}, {math.NaN(), 1}} {
		_, err := NewKalman(c[0], c[1])
		assert.ErrorIs(t, err, ErrInvalidNoise)
	}
}

func TestSplit500(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 125.0, Split500(4, 0.5), 1e-12)
	assert.Zero(t, Split500(0.3, 0.5))
	assert.Zero(t, Split500(math.NaN(), 0.5))
}
