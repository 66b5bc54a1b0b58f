package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/stroke_coach/internal/app"
	"github.com/relabs-tech/stroke_coach/internal/config"
)

func main() {
	tuningFile := flag.String("tuning", "", "YAML tuning file (defaults when empty)")
	publish := flag.Bool("publish", false, "also publish strokes and velocity over MQTT")
	configPath := flag.String("config", "./stroke_config.txt", "path to configuration file, used with -publish")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: replay [-tuning file.yaml] [-publish] session.wrcdata")
	}

	if *publish {
		if err := config.InitGlobal(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	if err := app.RunReplay(flag.Arg(0), *tuningFile, *publish); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
