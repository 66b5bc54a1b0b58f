package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/pipeline"
	"github.com/relabs-tech/stroke_coach/internal/transform"
)

const maxTuningFileSize = 1 * 1024 * 1024 // 1MB

// Tuning holds optional pipeline overrides read from a YAML file.
// Nil fields fall back to pipeline.DefaultConfig.
type Tuning struct {
	Mounting     *string  `yaml:"mounting,omitempty"`     // "rower" or "coxswain"
	AngularUnit  *string  `yaml:"angular_unit,omitempty"` // "deg/s" or "rad/s"
	SampleRateHz *float64 `yaml:"sample_rate_hz,omitempty"`

	Alpha           *float64 `yaml:"alpha,omitempty"`
	CatchThreshold  *float64 `yaml:"catch_threshold,omitempty"`
	FinishThreshold *float64 `yaml:"finish_threshold,omitempty"`

	BandLowHz  *float64 `yaml:"band_low_hz,omitempty"`
	BandHighHz *float64 `yaml:"band_high_hz,omitempty"`
	Smoothing  *float64 `yaml:"smoothing,omitempty"`

	BaselineWindowMs   *float64 `yaml:"baseline_window_ms,omitempty"`
	BaselineMaxSamples *int     `yaml:"baseline_max_samples,omitempty"`

	ProcessNoise     *float64 `yaml:"process_noise,omitempty"`
	MeasurementNoise *float64 `yaml:"measurement_noise,omitempty"`
	MinSplitSpeed    *float64 `yaml:"min_split_speed,omitempty"`

	CalibrationMinSamples *int `yaml:"calibration_min_samples,omitempty"`
	CalibrationMaxSamples *int `yaml:"calibration_max_samples,omitempty"`
}

// LoadTuning reads a YAML tuning file. An empty path yields an empty Tuning.
func LoadTuning(path string) (*Tuning, error) {
	if path == "" {
		return &Tuning{}, nil
	}

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("tuning file must have .yaml or .yml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tuning file: %w", err)
	}
	if info.Size() > maxTuningFileSize {
		return nil, fmt.Errorf("tuning file too large: %d bytes (max %d)", info.Size(), maxTuningFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}

	t := &Tuning{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning YAML: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}

// Validate checks that the merged pipeline configuration is usable.
func (t *Tuning) Validate() error {
	cfg, err := t.Pipeline()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// Pipeline merges the overrides onto the defaults. Range checks are left to
// pipeline.Config.Validate.
func (t *Tuning) Pipeline() (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()

	m, err := t.GetMounting()
	if err != nil {
		return cfg, err
	}
	unit, err := t.GetAngularUnit()
	if err != nil {
		return cfg, err
	}
	cfg.Mounting = m
	cfg.AngularUnit = unit

	cfg.SampleRateHz = orFloat(t.SampleRateHz, cfg.SampleRateHz)
	cfg.Alpha = orFloat(t.Alpha, cfg.Alpha)
	cfg.Thresholds.Catch = orFloat(t.CatchThreshold, cfg.Thresholds.Catch)
	cfg.Thresholds.Finish = orFloat(t.FinishThreshold, cfg.Thresholds.Finish)
	cfg.BandLowHz = orFloat(t.BandLowHz, cfg.BandLowHz)
	cfg.BandHighHz = orFloat(t.BandHighHz, cfg.BandHighHz)
	cfg.Smoothing = orFloat(t.Smoothing, cfg.Smoothing)
	cfg.BaselineWindowMs = orFloat(t.BaselineWindowMs, cfg.BaselineWindowMs)
	cfg.BaselineMaxSamples = orInt(t.BaselineMaxSamples, cfg.BaselineMaxSamples)
	cfg.ProcessNoise = orFloat(t.ProcessNoise, cfg.ProcessNoise)
	cfg.MeasurementNoise = orFloat(t.MeasurementNoise, cfg.MeasurementNoise)
	cfg.MinSplitSpeed = orFloat(t.MinSplitSpeed, cfg.MinSplitSpeed)
	cfg.CalibrationMinSamples = orInt(t.CalibrationMinSamples, cfg.CalibrationMinSamples)
	cfg.CalibrationMaxSamples = orInt(t.CalibrationMaxSamples, cfg.CalibrationMaxSamples)
	return cfg, nil
}

// GetMounting returns the mounting or the default.
func (t *Tuning) GetMounting() (transform.Mounting, error) {
	if t.Mounting == nil {
		return pipeline.DefaultConfig().Mounting, nil
	}
	m, err := transform.ParseMounting(*t.Mounting)
	if err != nil {
		return 0, fmt.Errorf("invalid mounting %q: %w", *t.Mounting, err)
	}
	return m, nil
}

// GetAngularUnit returns the gyroscope unit or the default.
func (t *Tuning) GetAngularUnit() (imu.AngularUnit, error) {
	if t.AngularUnit == nil {
		return pipeline.DefaultConfig().AngularUnit, nil
	}
	u, err := imu.ParseAngularUnit(*t.AngularUnit)
	if err != nil {
		return 0, fmt.Errorf("invalid angular_unit %q: %w", *t.AngularUnit, err)
	}
	return u, nil
}

func orFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func orInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
