package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/relabs-tech/stroke_coach/internal/config"
)

// RunConsoleMQTT prints coach output from MQTT: every stroke, velocity and
// calibration update, and the boat metrics once per CONSOLE_LOG_INTERVAL.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	var (
		mu        sync.Mutex
		lastPrint time.Time
	)
	interval := time.Duration(cfg.ConsoleLogInterval) * time.Millisecond

	if err := subscribeJSON(client, cfg.TopicMetrics, func(m Metrics) {
		mu.Lock()
		defer mu.Unlock()
		if time.Since(lastPrint) < interval {
			return
		}
		lastPrint = time.Now()
		fmt.Println(formatMetrics(m))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicStroke, func(m StrokeMessage) {
		fmt.Println(formatStroke(m))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicVelocity, func(m VelocityMessage) {
		fmt.Println(formatVelocity(m))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicCalibration, func(st CalibrationStatus) {
		fmt.Println(formatCalibration(st))
	}); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
