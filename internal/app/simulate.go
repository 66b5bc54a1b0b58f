package app

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/stroke_coach/internal/session"
	"github.com/relabs-tech/stroke_coach/internal/simulate"
	"github.com/relabs-tech/stroke_coach/internal/transform"
)

// SimulateOptions shape a recorded demo session.
type SimulateOptions struct {
	RestSeconds float64
	RowSeconds  float64
	StrokeRate  float64
	BoatSpeed   float64
	Mounting    transform.Mounting
	Seed        uint64
}

// RunSimulate writes a simulated session to path and returns it.
func RunSimulate(path string, opts SimulateOptions) (*session.Session, error) {
	if !(opts.RowSeconds > 0) || opts.RestSeconds < 0 {
		return nil, fmt.Errorf("simulate: rest %gs / row %gs out of range", opts.RestSeconds, opts.RowSeconds)
	}
	cfg := simulate.DefaultConfig()
	cfg.Mounting = opts.Mounting
	cfg.StartMs = float64(time.Now().UnixMilli())
	if opts.StrokeRate > 0 {
		cfg.StrokeRate = opts.StrokeRate
	}
	if opts.BoatSpeed > 0 {
		cfg.BoatSpeed = opts.BoatSpeed
	}
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}

	s := simulate.NewRowing(cfg).Session(opts.RestSeconds, opts.RowSeconds)
	s.ID = uuid.New()
	if err := session.WriteFile(path, s); err != nil {
		return nil, err
	}
	log.Printf("simulate: wrote session %s to %s (%d samples, %d fixes)", s.ID, path, len(s.IMU), len(s.GPS))
	return s, nil
}
