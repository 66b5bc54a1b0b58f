package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/stroke_coach/internal/calibration"
	"github.com/relabs-tech/stroke_coach/internal/pipeline"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
)

func newTestServer(t *testing.T) (*hub, *fakePublisher, *httptest.Server) {
	t.Helper()
	h := newHub()
	pub := &fakePublisher{}
	srv := httptest.NewServer(newWebMux(h, pub, "t/control", ""))
	t.Cleanup(srv.Close)
	return h, pub, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestAPIMetrics(t *testing.T) {
	t.Parallel()

	h, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	m := Metrics{SessionID: "s1", Output: pipeline.Output{TimestampMs: 20, Phase: stroke.Drive, StrokeCount: 3}}
	h.update("metrics", m, func(s *Snapshot) { s.Metrics = &m })
	v := VelocityMessage{SessionID: "s1", Fused: pipeline.Fused{Velocity: 4.2, Split500: 119}}
	h.update("velocity", v, func(s *Snapshot) { s.Velocity = &v })

	resp, err = http.Get(srv.URL + "/api/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.NotNil(t, snap.Metrics)
	assert.Equal(t, stroke.Drive, snap.Metrics.Phase)
	assert.Equal(t, 3, snap.Metrics.StrokeCount)
	require.NotNil(t, snap.Velocity)
	assert.Equal(t, 4.2, snap.Velocity.Velocity)
	assert.Nil(t, snap.Stroke)
}

func TestLiveWebsocket(t *testing.T) {
	t.Parallel()

	h, _, srv := newTestServer(t)
	conn := dial(t, srv, "/ws/live")
	require.Eventually(t, func() bool { return h.clientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	msg := StrokeMessage{SessionID: "s1", Record: stroke.Record{Number: 7, StrokeRate: 24.5, DrivePercent: 38}}
	h.update("stroke", msg, func(s *Snapshot) { s.Stroke = &msg })

	var ev struct {
		Type string        `json:"type"`
		Data StrokeMessage `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "stroke", ev.Type)
	assert.Equal(t, msg, ev.Data)

	conn.Close()
	require.Eventually(t, func() bool { return h.clientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestControlWebsocket(t *testing.T) {
	t.Parallel()

	_, pub, srv := newTestServer(t)
	conn := dial(t, srv, "/ws/control")

	var reply controlReply
	require.NoError(t, conn.WriteJSON(Command{Command: CmdReset}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.True(t, reply.OK)

	reply = controlReply{}
	require.NoError(t, conn.WriteJSON(Command{Command: "launch"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "unknown command")

	cmds := messagesOf[Command](pub, "t/control")
	require.Len(t, cmds, 1)
	assert.Equal(t, CmdReset, cmds[0].Command)
}

func TestCalibrationWebsocket(t *testing.T) {
	t.Parallel()

	h, pub, srv := newTestServer(t)
	conn := dial(t, srv, "/ws/calibration")

	require.NoError(t, conn.WriteJSON(CalibrationAction{Action: "start"}))
	require.Eventually(t, func() bool {
		return len(messagesOf[Command](pub, "t/control")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, CmdCalibrateStart, messagesOf[Command](pub, "t/control")[0].Command)

	st := CalibrationStatus{SessionID: "s1", State: "collecting", Samples: 50}
	h.update("calibration", st, func(s *Snapshot) { s.Calibration = &st })

	var got CalibrationStatus
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, st, got)
}

type scriptedPublisher struct {
	fakePublisher
	statuses chan CalibrationStatus
	reply    CalibrationStatus
}

func (p *scriptedPublisher) Publish(topic string, v any) error {
	if cmd, ok := v.(Command); ok {
		switch cmd.Command {
		case CmdCalibrateStart:
			p.statuses <- CalibrationStatus{State: "collecting", Samples: 0}
		case CmdCalibrateComplete:
			p.statuses <- p.reply
		}
	}
	return p.fakePublisher.Publish(topic, v)
}

func TestGuideCalibration(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		pub := &scriptedPublisher{
			statuses: make(chan CalibrationStatus, 4),
			reply: CalibrationStatus{State: "ready", Quality: "excellent", Profile: &calibration.Profile{
				PitchOffset: 4.5, RollOffset: -1.25, GravityMagnitude: 9.81, SampleCount: 250,
			}},
		}
		var out bytes.Buffer
		err := guideCalibration(pub, "t/control", pub.statuses, 20*time.Millisecond, time.Second, &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "collected 0 samples")
		assert.Contains(t, out.String(), "pitch offset:    4.50°")
		assert.NotContains(t, out.String(), "WARNING")
		cmds := messagesOf[Command](&pub.fakePublisher, "t/control")
		require.Len(t, cmds, 3)
		assert.Equal(t, CmdCalibrateClear, cmds[0].Command)
		assert.Equal(t, CmdCalibrateStart, cmds[1].Command)
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		pub := &scriptedPublisher{
			statuses: make(chan CalibrationStatus, 4),
			reply:    CalibrationStatus{State: "collecting", Error: "calibration: insufficient samples"},
		}
		var out bytes.Buffer
		err := guideCalibration(pub, "t/control", pub.statuses, 10*time.Millisecond, time.Second, &out)
		assert.ErrorContains(t, err, "insufficient")
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		pub := &fakePublisher{}
		var out bytes.Buffer
		err := guideCalibration(pub, "t/control", make(chan CalibrationStatus), 10*time.Millisecond, 20*time.Millisecond, &out)
		assert.ErrorIs(t, err, ErrCalibrationTimeout)
	})
}
