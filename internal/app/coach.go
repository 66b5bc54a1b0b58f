// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/stroke_coach/internal/calibration"
	"github.com/relabs-tech/stroke_coach/internal/gps"
	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/pipeline"
	"github.com/relabs-tech/stroke_coach/internal/session"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
)

// calibrationProgressEvery is how often, in samples, a collecting estimator
// reports progress.
const calibrationProgressEvery = 50

// ErrUnknownCommand is returned by HandleCommand for unrecognised commands.
var ErrUnknownCommand = errors.New("unknown command")

// Topics are the output topics of the coach.
type Topics struct {
	Metrics     string
	Stroke      string
	Velocity    string
	Calibration string
}

// CoachOptions configures persistence around the pipelines.
type CoachOptions struct {
	Topics          Topics
	CalibrationFile string // profile loaded at start and saved on completion; "" disables
	SessionDir      string // recordings written on reset and close; "" disables
	DemoMode        bool   // stamped into recordings
}

// Coach owns one inertial and one positional pipeline, feeds them from
// incoming samples and commands, and publishes the results. It is safe for
// concurrent use.
type Coach struct {
	mu   sync.Mutex
	opts CoachOptions
	pub  Publisher

	inertial   *pipeline.Inertial
	positional *pipeline.Positional

	sessionID    uuid.UUID
	rec          *session.Session
	lastProgress int

	now func() time.Time
}

// NewCoach builds both pipelines from cfg and loads the stored calibration
// profile, if any.
func NewCoach(cfg pipeline.Config, pub Publisher, opts CoachOptions) (*Coach, error) {
	inertial, err := pipeline.NewInertial(cfg)
	if err != nil {
		return nil, fmt.Errorf("inertial pipeline: %w", err)
	}
	positional, err := pipeline.NewPositional(cfg)
	if err != nil {
		return nil, fmt.Errorf("positional pipeline: %w", err)
	}

	c := &Coach{
		opts:       opts,
		pub:        pub,
		inertial:   inertial,
		positional: positional,
		now:        time.Now,
	}

	if opts.CalibrationFile != "" {
		prof, err := calibration.LoadFile(opts.CalibrationFile)
		switch {
		case err == nil:
			inertial.LoadCalibration(prof)
			log.Printf("coach: loaded calibration from %s (pitch %.2f°, roll %.2f°, %s)",
				opts.CalibrationFile, prof.PitchOffset, prof.RollOffset, prof.Quality())
		case errors.Is(err, os.ErrNotExist):
			log.Printf("coach: no calibration at %s, running uncalibrated", opts.CalibrationFile)
		default:
			log.Printf("coach: ignoring calibration file: %v", err)
		}
	}

	c.startSession()
	return c, nil
}

// SessionID identifies the current session in every published message.
func (c *Coach) SessionID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// HandleSample runs s through the inertial pipeline and publishes the
// metrics and, when a drive just finished, the stroke.
func (c *Coach) HandleSample(s imu.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cal := c.inertial.Calibration()
	buffered := cal.SampleCount()
	out := c.inertial.Process(s)
	if c.rec != nil {
		c.rec.IMU = append(c.rec.IMU, s)
		if cal.SampleCount() > buffered {
			c.rec.CalibrationSamples = append(c.rec.CalibrationSamples, s)
		}
	}

	id := c.sessionID.String()
	c.publish(c.opts.Topics.Metrics, Metrics{SessionID: id, Output: out})
	if out.Stroke != nil {
		c.publish(c.opts.Topics.Stroke, StrokeMessage{SessionID: id, Record: *out.Stroke})
	}

	if n := cal.SampleCount(); cal.State() == calibration.Collecting && n != c.lastProgress && n%calibrationProgressEvery == 0 {
		c.lastProgress = n
		c.publishCalibration(nil)
	}
}

// HandleFix runs f through the positional pipeline and publishes the fused
// velocity. Fixes without a timestamp are stamped on arrival.
func (c *Coach) HandleFix(f gps.Fix) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f.TimestampMs == 0 {
		f.TimestampMs = float64(c.now().UnixMilli())
	}
	fused := c.positional.Process(f)
	if c.rec != nil && f.Valid() {
		c.rec.GPS = append(c.rec.GPS, f)
	}
	c.publish(c.opts.Topics.Velocity, VelocityMessage{SessionID: c.sessionID.String(), Fused: fused})
}

// HandleCommand applies a control command.
func (c *Coach) HandleCommand(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd.Command {
	case CmdReset:
		c.flushRecording()
		c.inertial.Reset()
		c.positional.Reset()
		c.startSession()
		log.Printf("coach: session reset, new session %s", c.sessionID)

	case CmdCalibrateStart:
		if err := c.inertial.StartCalibration(); err != nil {
			c.publishCalibration(err)
			return fmt.Errorf("start calibration: %w", err)
		}
		c.lastProgress = 0
		log.Println("coach: calibration started, keep the boat still")
		c.publishCalibration(nil)

	case CmdCalibrateComplete:
		prof, err := c.inertial.CompleteCalibration()
		if err != nil {
			c.publishCalibration(err)
			return fmt.Errorf("complete calibration: %w", err)
		}
		log.Printf("coach: calibration complete: pitch %.2f°, roll %.2f°, quality %s",
			prof.PitchOffset, prof.RollOffset, prof.Quality())
		if c.opts.CalibrationFile != "" {
			if err := calibration.SaveFile(c.opts.CalibrationFile, prof); err != nil {
				log.Printf("coach: %v", err)
			}
		}
		c.publishCalibration(nil)

	case CmdCalibrateClear:
		c.inertial.ClearCalibration()
		log.Println("coach: calibration cleared")
		c.publishCalibration(nil)

	case CmdSetThresholds:
		th := c.inertial.Config().Thresholds
		if cmd.Catch != nil {
			th.Catch = *cmd.Catch
		}
		if cmd.Finish != nil {
			th.Finish = *cmd.Finish
		}
		if err := c.inertial.SetThresholds(th); err != nil {
			return fmt.Errorf("set thresholds: %w", err)
		}
		log.Printf("coach: thresholds catch %.2f finish %.2f", th.Catch, th.Finish)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
	return nil
}

// History returns the strokes of the current session.
func (c *Coach) History() []stroke.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inertial.History()
}

// Close writes the pending recording, if any.
func (c *Coach) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushRecording()
	c.rec = nil
}

func (c *Coach) startSession() {
	c.sessionID = uuid.New()
	if c.opts.SessionDir == "" {
		return
	}
	c.rec = &session.Session{Header: session.Header{ID: c.sessionID}}
}

// flushRecording writes the current session file. Empty sessions are skipped.
func (c *Coach) flushRecording() {
	if c.rec == nil || (len(c.rec.IMU) == 0 && len(c.rec.GPS) == 0) {
		return
	}
	cfg := c.inertial.Config()
	c.rec.SessionStartMs = c.startMs()
	c.rec.Mounting = cfg.Mounting
	c.rec.Thresholds = cfg.Thresholds
	c.rec.DemoMode = c.opts.DemoMode
	if prof, ok := c.inertial.Calibration().Profile(); ok {
		c.rec.Calibration = &prof
	}

	if err := os.MkdirAll(c.opts.SessionDir, 0o755); err != nil {
		log.Printf("coach: session dir: %v", err)
		return
	}
	path := filepath.Join(c.opts.SessionDir, c.sessionID.String()+session.Extension)
	if err := session.WriteFile(path, c.rec); err != nil {
		log.Printf("coach: %v", err)
		return
	}
	log.Printf("coach: recorded %d samples and %d fixes to %s", len(c.rec.IMU), len(c.rec.GPS), path)
}

func (c *Coach) startMs() float64 {
	switch {
	case len(c.rec.IMU) > 0:
		return c.rec.IMU[0].TimestampMs
	case len(c.rec.GPS) > 0:
		return c.rec.GPS[0].TimestampMs
	default:
		return float64(c.now().UnixMilli())
	}
}

func (c *Coach) publishCalibration(cause error) {
	cal := c.inertial.Calibration()
	st := CalibrationStatus{
		SessionID: c.sessionID.String(),
		State:     cal.State().String(),
		Samples:   cal.SampleCount(),
	}
	if prof, ok := cal.Profile(); ok {
		st.Profile = &prof
		st.Quality = prof.Quality().String()
	}
	if cause != nil {
		st.Error = cause.Error()
	}
	c.publish(c.opts.Topics.Calibration, st)
}

func (c *Coach) publish(topic string, v any) {
	if topic == "" || c.pub == nil {
		return
	}
	if err := c.pub.Publish(topic, v); err != nil {
		log.Printf("coach: %v", err)
	}
}
