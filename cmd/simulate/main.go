package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/stroke_coach/internal/app"
	"github.com/relabs-tech/stroke_coach/internal/transform"
)

func main() {
	out := flag.String("out", "demo.wrcdata", "output session file")
	rest := flag.Float64("rest", 3, "seconds at rest recorded as calibration samples")
	row := flag.Float64("row", 120, "seconds of rowing")
	rate := flag.Float64("rate", 25, "stroke rate (strokes/min)")
	speed := flag.Float64("speed", 4, "boat speed (m/s)")
	coxswain := flag.Bool("coxswain", false, "coxswain mounting instead of rower")
	seed := flag.Uint64("seed", 1, "noise seed")
	flag.Parse()

	mounting := transform.Rower
	if *coxswain {
		mounting = transform.Coxswain
	}

	log.Println("starting stroke-coach session simulator")

	if _, err := app.RunSimulate(*out, app.SimulateOptions{
		RestSeconds: *rest,
		RowSeconds:  *row,
		StrokeRate:  *rate,
		BoatSpeed:   *speed,
		Mounting:    mounting,
		Seed:        *seed,
	}); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
