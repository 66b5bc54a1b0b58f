package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/stroke_coach/internal/gps"
	"github.com/relabs-tech/stroke_coach/internal/imu"
)

func TestStreamFixes(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"garbage",
		"$GPRMC,123519.00,A,4807.038,N,01131.000,E,7.776,084.4,230394,003.1,W*41",
		"$GPRMC,123519.00,A,4807.038,N*00",
		"$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48",
		"",
	}, "\r\n")

	pub := &fakePublisher{}
	now := func() time.Time { return time.UnixMilli(1) }
	require.NoError(t, streamFixes(strings.NewReader(input), pub, "t/gps", now))

	fixes := messagesOf[gps.Fix](pub, "t/gps")
	require.Len(t, fixes, 1)
	assert.InDelta(t, 4.0, fixes[0].SpeedMps, 1e-3)
	assert.NotEqual(t, 1.0, fixes[0].TimestampMs)
}

func TestStreamFixesStampsVTG(t *testing.T) {
	t.Parallel()

	input := "$GPVTG,220.86,T,,M,2.550,N,4.724,K,A*34\r\n"
	pub := &fakePublisher{}
	now := func() time.Time { return time.UnixMilli(42_000) }
	require.NoError(t, streamFixes(strings.NewReader(input), pub, "t/gps", now))

	fixes := messagesOf[gps.Fix](pub, "t/gps")
	require.Len(t, fixes, 1)
	assert.Equal(t, 42_000.0, fixes[0].TimestampMs)
	assert.InDelta(t, 2.55*gps.KnotsToMetersPerSecond, fixes[0].SpeedMps, 1e-9)
}

type fakeRaw struct {
	raw imu.Raw
	err error
}

func (f fakeRaw) NextRaw() (imu.Raw, error) { return f.raw, f.err }

func TestHardwareSource(t *testing.T) {
	t.Parallel()

	src := hardwareSource{dev: fakeRaw{raw: imu.Raw{Az: 8192, Gx: 131}}, accelRange: 1, gyroRange: 1}
	s, err := src.next(time.UnixMilli(5000))
	require.NoError(t, err)
	assert.Equal(t, 5000.0, s.TimestampMs)
	assert.InDelta(t, imu.StandardGravity, s.Az, 1e-9)
	assert.InDelta(t, 2.0, s.Gx, 1e-9)

	src.dev = fakeRaw{err: errors.New("spi")}
	_, err = src.next(time.Now())
	assert.Error(t, err)
}
