// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relabs-tech/stroke_coach/internal/pipeline"
	"github.com/relabs-tech/stroke_coach/internal/simulate"
)

// RunMockConsole rows a simulated session through a local pipeline in real
// time and prints strokes and speed, without MQTT or hardware.
func RunMockConsole(duration time.Duration) error {
	cfg := pipeline.DefaultConfig()
	simCfg := simulate.DefaultConfig()
	simCfg.StartMs = float64(time.Now().UnixMilli())
	gen := simulate.NewRowing(simCfg)

	ticker := time.NewTicker(time.Duration(gen.InertialPeriodMs() * float64(time.Millisecond)))
	defer ticker.Stop()

	steps := int(duration.Milliseconds() / int64(gen.InertialPeriodMs()))
	return rowMock(cfg, gen, steps, func() { <-ticker.C }, os.Stdout)
}

// rowMock runs steps inertial samples, with GPS fixes interleaved at their
// own rate. wait is called before every sample.
func rowMock(cfg pipeline.Config, gen *simulate.Rowing, steps int, wait func(), out io.Writer) error {
	inertial, err := pipeline.NewInertial(cfg)
	if err != nil {
		return err
	}
	positional, err := pipeline.NewPositional(cfg)
	if err != nil {
		return err
	}

	nextGPS := 0.0
	var first float64
	for i := 0; i < steps; i++ {
		wait()
		s := gen.NextInertial()
		if i == 0 {
			first = s.TimestampMs
			nextGPS = first
		}
		if s.TimestampMs >= nextGPS {
			fused := positional.Process(gen.NextGPS())
			fmt.Fprintln(out, formatVelocity(VelocityMessage{Fused: fused}))
			nextGPS += gen.GPSPeriodMs()
		}
		o := inertial.Process(s)
		if o.Stroke != nil {
			fmt.Fprintln(out, formatStroke(StrokeMessage{Record: *o.Stroke}))
		}
	}
	fmt.Fprintf(out, "%d strokes in %.0fs\n", len(inertial.History()), float64(steps)*gen.InertialPeriodMs()/1000)
	return nil
}
