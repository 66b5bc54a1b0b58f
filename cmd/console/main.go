// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/stroke_coach/internal/app"
)

func main() {
	duration := flag.Duration("duration", 30*time.Second, "simulated rowing time")
	flag.Parse()

	log.Println("starting stroke-coach (mock console)")

	if err := app.RunMockConsole(*duration); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
