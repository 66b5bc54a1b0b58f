// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/stroke_coach/internal/config"
)

const (
	calibrationPoll    = 200 * time.Millisecond
	calibrationTimeout = 5 * time.Second
)

// ErrCalibrationTimeout is returned when the coach never answers a
// calibrate_complete command.
var ErrCalibrationTimeout = errors.New("calibration: no answer from coach")

// CalibrationAction is sent by the browser on /ws/calibration.
type CalibrationAction struct {
	Action string `json:"action"` // start, complete, cancel
}

func (a CalibrationAction) command() (Command, bool) {
	switch a.Action {
	case "start":
		return Command{Command: CmdCalibrateStart}, true
	case "complete":
		return Command{Command: CmdCalibrateComplete}, true
	case "cancel":
		return Command{Command: CmdCalibrateClear}, true
	}
	return Command{}, false
}

// serveCalibration drives a guided calibration from the browser: actions are
// forwarded as control commands and every new calibration status is pushed
// back.
func serveCalibration(h *hub, pub Publisher, topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("calibration: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var a CalibrationAction
				if err := conn.ReadJSON(&a); err != nil {
					return
				}
				cmd, ok := a.command()
				if !ok {
					log.Printf("calibration: unknown action %q", a.Action)
					continue
				}
				if err := pub.Publish(topic, cmd); err != nil {
					log.Printf("calibration: %v", err)
				}
			}
		}()

		ticker := time.NewTicker(calibrationPoll)
		defer ticker.Stop()

		var last *CalibrationStatus
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				st := h.snapshot().Calibration
				if st == nil || st == last {
					continue
				}
				last = st
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(st); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway) {
						log.Printf("calibration: websocket write error: %v", err)
					}
					return
				}
			}
		}
	}
}

// RunCalibration captures a mounting calibration from the console: it asks
// the coach to drop any active profile and start collecting, waits while the boat is held still, then
// asks it to complete and prints the resulting profile.
func RunCalibration(collect time.Duration) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole+"-calibration")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	statuses := make(chan CalibrationStatus, 16)
	if err := subscribeJSON(client, cfg.TopicCalibration, func(st CalibrationStatus) {
		select {
		case statuses <- st:
		default:
		}
	}); err != nil {
		return err
	}

	return guideCalibration(mqttPublisher{client: client}, cfg.TopicControl, statuses, collect, calibrationTimeout, os.Stdout)
}

func guideCalibration(pub Publisher, topic string, statuses <-chan CalibrationStatus, collect, timeout time.Duration, out io.Writer) error {
	fmt.Fprintf(out, "Keep the boat level and still for %v...\n", collect)
	// A stored profile stays active until cleared.
	for _, name := range []string{CmdCalibrateClear, CmdCalibrateStart} {
		if err := pub.Publish(topic, Command{Command: name}); err != nil {
			return err
		}
	}

	deadline := time.After(collect)
collecting:
	for {
		select {
		case st := <-statuses:
			if st.State == "collecting" {
				fmt.Fprintf(out, "  collected %d samples\n", st.Samples)
			}
		case <-deadline:
			break collecting
		}
	}

	if err := pub.Publish(topic, Command{Command: CmdCalibrateComplete}); err != nil {
		return err
	}

	wait := time.After(timeout)
	for {
		select {
		case st := <-statuses:
			switch {
			case st.Error != "":
				fmt.Fprintf(out, "Calibration failed: %s\n", st.Error)
				return fmt.Errorf("calibration: %s", st.Error)
			case st.State == "ready" && st.Profile != nil:
				p := st.Profile
				fmt.Fprintf(out, "Calibration complete (%s)\n", st.Quality)
				fmt.Fprintf(out, "  pitch offset: %7.2f°\n", p.PitchOffset)
				fmt.Fprintf(out, "  roll offset:  %7.2f°\n", p.RollOffset)
				fmt.Fprintf(out, "  gravity:      %7.3f m/s²\n", p.GravityMagnitude)
				fmt.Fprintf(out, "  samples:      %d (variance %.4f)\n", p.SampleCount, p.Variance)
				if p.GravityDeviates() {
					fmt.Fprintln(out, "  WARNING: gravity far from 9.8 m/s², check the sensor")
				}
				return nil
			}
		case <-wait:
			return ErrCalibrationTimeout
		}
	}
}
