package app

import (
	"github.com/relabs-tech/stroke_coach/internal/calibration"
	"github.com/relabs-tech/stroke_coach/internal/pipeline"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
)

// Control commands accepted on the control topic and /ws/control.
const (
	CmdReset             = "reset"
	CmdCalibrateStart    = "calibrate_start"
	CmdCalibrateComplete = "calibrate_complete"
	CmdCalibrateClear    = "calibrate_clear"
	CmdSetThresholds     = "set_thresholds"
)

// Command is a session control message.
type Command struct {
	Command string   `json:"command"`
	Catch   *float64 `json:"catch,omitempty"`  // set_thresholds only
	Finish  *float64 `json:"finish,omitempty"` // set_thresholds only
}

// Metrics is published for every processed inertial sample.
type Metrics struct {
	SessionID string `json:"session"`
	pipeline.Output
}

// StrokeMessage is published once per completed stroke.
type StrokeMessage struct {
	SessionID string `json:"session"`
	stroke.Record
}

// VelocityMessage is published once per GPS fix.
type VelocityMessage struct {
	SessionID string `json:"session"`
	pipeline.Fused
}

// CalibrationStatus reports the calibration estimator after every command
// that touches it.
type CalibrationStatus struct {
	SessionID string               `json:"session"`
	State     string               `json:"state"` // idle, collecting, ready
	Samples   int                  `json:"samples"`
	Profile   *calibration.Profile `json:"profile,omitempty"`
	Quality   string               `json:"quality,omitempty"`
	Error     string               `json:"error,omitempty"`
}
