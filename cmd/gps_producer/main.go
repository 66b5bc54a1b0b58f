package main

import (
	"log"

	"github.com/relabs-tech/stroke_coach/internal/app"
	"github.com/relabs-tech/stroke_coach/internal/config"
)

func main() {
	log.Println("starting stroke-coach GPS producer (NMEA → MQTT)")

	if err := config.InitGlobal("stroke_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunGPSProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
