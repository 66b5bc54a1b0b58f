package app

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/stroke_coach/internal/pipeline"
	"github.com/relabs-tech/stroke_coach/internal/session"
	"github.com/relabs-tech/stroke_coach/internal/simulate"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
)

func recordedSession(t *testing.T) *session.Session {
	t.Helper()
	s := simulate.NewRowing(simulate.DefaultConfig()).Session(3, 60)
	s.ID = uuid.New()
	path := filepath.Join(t.TempDir(), s.ID.String()+session.Extension)
	require.NoError(t, session.WriteFile(path, s))
	loaded, err := session.ReadFile(path)
	require.NoError(t, err)
	return loaded
}

func TestReplayRecordedSession(t *testing.T) {
	t.Parallel()

	s := recordedSession(t)
	var strokes []stroke.Record
	var fixes int
	sum, err := Replay(s, pipeline.DefaultConfig(), ReplayHooks{
		Stroke:   func(rec stroke.Record) { strokes = append(strokes, rec) },
		Velocity: func(pipeline.Fused) { fixes++ },
	})
	require.NoError(t, err)

	assert.True(t, sum.Calibrated)
	assert.Equal(t, len(strokes), sum.Strokes)
	assert.GreaterOrEqual(t, sum.Strokes, 20)
	assert.InDelta(t, 25.0, sum.MeanRate, 3)
	assert.Greater(t, sum.MeanDrivePercent, 15.0)
	assert.Less(t, sum.MeanDrivePercent, 85.0)
	assert.Equal(t, len(s.GPS), fixes)
	assert.Greater(t, sum.MeanSpeed, 2.0)
	assert.Less(t, sum.MeanSpeed, 5.0)
	assert.InDelta(t, 60.0, sum.DurationS, 0.1)
}

func TestReplayWithoutCalibrationSamples(t *testing.T) {
	t.Parallel()

	s := recordedSession(t)
	s.CalibrationSamples = s.CalibrationSamples[:10]
	sum, err := Replay(s, pipeline.DefaultConfig(), ReplayHooks{})
	require.NoError(t, err)
	assert.False(t, sum.Calibrated)
	assert.NotZero(t, sum.Strokes)
}

func TestReplayToPublishes(t *testing.T) {
	t.Parallel()

	s := recordedSession(t)
	pub := &fakePublisher{}
	var out bytes.Buffer
	require.NoError(t, replayTo(&out, s, pipeline.DefaultConfig(), pub, testTopics))

	strokes := messagesOf[StrokeMessage](pub, testTopics.Stroke)
	require.NotEmpty(t, strokes)
	assert.Equal(t, s.ID.String(), strokes[0].SessionID)
	assert.Len(t, messagesOf[VelocityMessage](pub, testTopics.Velocity), len(s.GPS))
	assert.Contains(t, out.String(), "strokes:")
	assert.Contains(t, out.String(), "calibrated:    true")
}
