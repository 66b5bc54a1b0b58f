package main

import (
	"log"

	"github.com/relabs-tech/stroke_coach/internal/app"
	"github.com/relabs-tech/stroke_coach/internal/config"
)

func main() {
	log.Println("starting stroke-coach display (MQTT → SSD1306)")

	if err := config.InitGlobal("stroke_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunDisplay(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
