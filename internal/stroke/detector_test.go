package stroke

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(DefaultThresholds())
	require.NoError(t, err)
	return d
}

func TestDetectorTiming(t *testing.T) {
	t.Parallel()

	d := newDetector(t)
	assert.Equal(t, Recovery, d.Phase())
	assert.Zero(t, d.Count())

	_, done := d.Update(1000, 0.7)
	assert.False(t, done)
	assert.Equal(t, Drive, d.Phase())
	assert.Equal(t, 1, d.Count())

	first, done := d.Update(1500, -0.4)
	require.True(t, done)
	assert.Equal(t, 500.0, first.DriveTime)
	assert.Zero(t, first.RecoveryTime)
	assert.False(t, first.HasRate())

	_, done = d.Update(3000, 0.7)
	assert.False(t, done)
	second, done := d.Update(3600, -0.4)
	require.True(t, done)
	assert.Equal(t, 600.0, second.DriveTime)
	assert.Equal(t, 1500.0, second.RecoveryTime)
	assert.Greater(t, second.StrokeRate, 28.0)
	assert.Less(t, second.StrokeRate, 30.0)
	assert.GreaterOrEqual(t, second.DrivePercent, 28)
	assert.LessOrEqual(t, second.DrivePercent, 29)

	want := []Record{
		{Number: 1, CatchTimestamp: 1000, FinishTimestamp: 1500, DriveTime: 500},
		{Number: 2, CatchTimestamp: 3000, FinishTimestamp: 3600, DriveTime: 600, RecoveryTime: 1500,
			StrokeRate: 60000.0 / 2100.0, DrivePercent: 29},
	}
	if diff := cmp.Diff(want, d.History()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectorHysteresis(t *testing.T) {
	t.Parallel()

	d := newDetector(t)
	for i, v := range []float64{0.5, 0.0, -0.5, 0.59} {
		_, done := d.Update(float64(i*20), v)
		assert.False(t, done)
		assert.Equal(t, Recovery, d.Phase())
	}
	d.Update(100, 0.6)
	for i, v := range []float64{0.4, 0.0, -0.29, math.NaN()} {
		_, done := d.Update(float64(120+i*20), v)
		assert.False(t, done)
		assert.Equal(t, Drive, d.Phase())
	}
	_, done := d.Update(200, -0.3)
	assert.True(t, done)
	assert.Equal(t, 1, d.Count())
}

func TestDetectorSetThresholds(t *testing.T) {
	t.Parallel()

	d := newDetector(t)
	require.NoError(t, d.SetThresholds(Thresholds{Catch: 1.0, Finish: -0.5}))
	d.Update(0, 0.8)
	assert.Equal(t, Recovery, d.Phase())
	d.Update(20, 1.0)
	assert.Equal(t, Drive, d.Phase())

	for _, bad := range []Thresholds{
		{Catch: 0.6, Finish: 0.1},
		{Catch: -0.5, Finish: -0.3},
		{Catch: -0.3, Finish: -0.3},
		{Catch: math.NaN(), Finish: -0.3},
	} {
		assert.ErrorIs(t, d.SetThresholds(bad), ErrInvalidThresholds, "%+v", bad)
	}
	assert.Equal(t, Thresholds{Catch: 1.0, Finish: -0.5}, d.Thresholds())

	_, err := NewDetector(Thresholds{Catch: 0.2, Finish: 0.3})
	assert.ErrorIs(t, err, ErrInvalidThresholds)
}

func TestStrokeAngle(t *testing.T) {
	t.Parallel()

	d := newDetector(t)
	assert.Zero(t, d.StrokeAngle(500))

	d.Update(1000, 0.7)
	assert.Zero(t, d.StrokeAngle(1000))
	assert.Zero(t, d.StrokeAngle(900))

	prev := 0.0
	for ts := 1010.0; ts <= 4000; ts += 10 {
		a := d.StrokeAngle(ts)
		assert.Greater(t, a, prev, "t=%g", ts)
		assert.Less(t, a, 180.0, "t=%g", ts)
		prev = a
	}

	d.Update(1800, -0.4)
	assert.Zero(t, d.StrokeAngle(1900))
}

func TestStrokeAngleKeepsRisingInLongDrive(t *testing.T) {
	t.Parallel()

	d := newDetector(t)
	d.Update(0, 0.7)
	d.Update(800, -0.4)
	d.Update(2400, 0.7)

	assert.InDelta(t, 144.0, d.StrokeAngle(2400+800), 1e-9)

	// Crew stops mid-drive: the angle still moves.
	prev := d.StrokeAngle(2400 + 12000)
	for _, after := range []float64{13000, 60000, 3_600_000, 3_600_010} {
		a := d.StrokeAngle(2400 + after)
		assert.Greater(t, a, prev, "%gms after the catch", after)
		assert.Less(t, a, 180.0)
		prev = a
	}
}

func TestDetectorReset(t *testing.T) {
	t.Parallel()

	d := newDetector(t)
	for i := 0; i < 5; i++ {
		base := float64(i * 2400)
		d.Update(base, 1)
		d.Update(base+800, -1)
	}
	d.Update(20000, 1)
	require.Equal(t, 6, d.Count())
	require.Len(t, d.History(), 5)

	d.Reset()
	assert.Equal(t, Recovery, d.Phase())
	assert.Zero(t, d.Count())
	assert.Empty(t, d.History())

	// No previous finish survives the reset.
	d.Update(30000, 1)
	rec, done := d.Update(30500, -1)
	require.True(t, done)
	assert.Zero(t, rec.RecoveryTime)
	assert.False(t, rec.HasRate())

	d.Reset()
	d.Reset()
	assert.Zero(t, d.Count())
}
