package app

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/stroke_coach/internal/config"
	"github.com/relabs-tech/stroke_coach/internal/pipeline"
	"github.com/relabs-tech/stroke_coach/internal/session"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
)

// ReplaySummary describes a recorded session after running both pipelines.
type ReplaySummary struct {
	DurationS        float64
	Strokes          int
	MeanRate         float64 // strokes/min, strokes with a rate only
	MeanDrivePercent float64
	MeanSpeed        float64 // fused, m/s
	MaxRoll          float64 // degrees, absolute
	Calibrated       bool
}

// ReplayHooks receive results as the replay runs. Nil hooks are skipped.
type ReplayHooks struct {
	Stroke   func(stroke.Record)
	Velocity func(pipeline.Fused)
}

// Replay runs s through fresh pipelines built from cfg. The session header
// overrides mounting and, when valid, the thresholds. The embedded profile
// is used when present; otherwise one is derived from the embedded
// calibration samples when there are enough of them.
func Replay(s *session.Session, cfg pipeline.Config, hooks ReplayHooks) (ReplaySummary, error) {
	cfg.Mounting = s.Mounting
	if err := s.Thresholds.Validate(); err == nil {
		cfg.Thresholds = s.Thresholds
	} else {
		log.Printf("replay: keeping configured thresholds: %v", err)
	}

	inertial, err := pipeline.NewInertial(cfg)
	if err != nil {
		return ReplaySummary{}, err
	}
	positional, err := pipeline.NewPositional(cfg)
	if err != nil {
		return ReplaySummary{}, err
	}

	var sum ReplaySummary
	switch {
	case s.Calibration != nil:
		inertial.LoadCalibration(*s.Calibration)
		sum.Calibrated = true
	case len(s.CalibrationSamples) >= cfg.CalibrationMinSamples:
		if err := inertial.StartCalibration(); err != nil {
			return ReplaySummary{}, err
		}
		for _, smp := range s.CalibrationSamples {
			inertial.Calibration().AddSample(smp)
		}
		if _, err := inertial.CompleteCalibration(); err != nil {
			log.Printf("replay: calibration from embedded samples: %v", err)
		} else {
			sum.Calibrated = true
		}
	}

	var speeds []float64
	i, j := 0, 0
	for i < len(s.IMU) || j < len(s.GPS) {
		if j >= len(s.GPS) || (i < len(s.IMU) && s.IMU[i].TimestampMs <= s.GPS[j].TimestampMs) {
			out := inertial.Process(s.IMU[i])
			i++
			sum.MaxRoll = math.Max(sum.MaxRoll, math.Abs(out.Pose.Roll))
			if out.Stroke != nil && hooks.Stroke != nil {
				hooks.Stroke(*out.Stroke)
			}
			continue
		}
		fused := positional.Process(s.GPS[j])
		j++
		if s.GPS[j-1].Valid() {
			speeds = append(speeds, fused.Velocity)
		}
		if hooks.Velocity != nil {
			hooks.Velocity(fused)
		}
	}

	history := inertial.History()
	sum.Strokes = len(history)
	var rates, drives []float64
	for _, rec := range history {
		if rec.HasRate() {
			rates = append(rates, rec.StrokeRate)
			drives = append(drives, float64(rec.DrivePercent))
		}
	}
	if len(rates) > 0 {
		sum.MeanRate = stat.Mean(rates, nil)
		sum.MeanDrivePercent = stat.Mean(drives, nil)
	}
	if len(speeds) > 0 {
		sum.MeanSpeed = stat.Mean(speeds, nil)
	}
	if n := len(s.IMU); n > 1 {
		sum.DurationS = (s.IMU[n-1].TimestampMs - s.IMU[0].TimestampMs) / 1000
	}
	return sum, nil
}

// RunReplay loads a .wrcdata file, replays it and prints one row per stroke
// followed by a summary. With publish set, strokes and velocities are also
// sent to the configured MQTT topics; config.InitGlobal must have run.
func RunReplay(path, tuningFile string, publish bool) error {
	s, err := session.ReadFile(path)
	if err != nil {
		return err
	}
	tuning, err := config.LoadTuning(tuningFile)
	if err != nil {
		return err
	}
	cfg, err := tuning.Pipeline()
	if err != nil {
		return err
	}

	var pub Publisher
	var topics Topics
	if publish {
		c := config.Get()
		if c == nil {
			return fmt.Errorf("replay: publishing needs the config file")
		}
		client, err := connectMQTT(c.MQTTBroker, c.MQTTClientIDCoach+"-replay")
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		pub = mqttPublisher{client: client}
		topics = Topics{Stroke: c.TopicStroke, Velocity: c.TopicVelocity}
	}

	return replayTo(os.Stdout, s, cfg, pub, topics)
}

func replayTo(out io.Writer, s *session.Session, cfg pipeline.Config, pub Publisher, topics Topics) error {
	fmt.Fprintf(out, "session %s: v%d, %s, %d samples, %d fixes, %d calibration samples\n",
		s.ID, s.Version, s.Mounting, len(s.IMU), len(s.GPS), len(s.CalibrationSamples))

	id := s.ID.String()
	hooks := ReplayHooks{
		Stroke: func(rec stroke.Record) {
			fmt.Fprintln(out, formatStroke(StrokeMessage{Record: rec}))
			if pub != nil {
				if err := pub.Publish(topics.Stroke, StrokeMessage{SessionID: id, Record: rec}); err != nil {
					log.Printf("replay: %v", err)
				}
			}
		},
		Velocity: func(f pipeline.Fused) {
			if pub != nil {
				if err := pub.Publish(topics.Velocity, VelocityMessage{SessionID: id, Fused: f}); err != nil {
					log.Printf("replay: %v", err)
				}
			}
		},
	}

	sum, err := Replay(s, cfg, hooks)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "duration:      %.1f s\n", sum.DurationS)
	fmt.Fprintf(out, "strokes:       %d\n", sum.Strokes)
	fmt.Fprintf(out, "mean rate:     %.1f spm\n", sum.MeanRate)
	fmt.Fprintf(out, "mean drive:    %.0f%%\n", sum.MeanDrivePercent)
	fmt.Fprintf(out, "mean speed:    %.2f m/s (split %s)\n", sum.MeanSpeed, formatSplit(500/sum.MeanSpeed))
	fmt.Fprintf(out, "max roll:      %.1f°\n", sum.MaxRoll)
	fmt.Fprintf(out, "calibrated:    %t\n", sum.Calibrated)
	return nil
}
