package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/stroke_coach/internal/config"
	"github.com/relabs-tech/stroke_coach/internal/gps"
)

// RunCoach subscribes to the inertial, GPS and control topics, runs every
// message through the pipelines and publishes the results until SIGINT or
// SIGTERM.
func RunCoach() error {
	cfg := config.Get()

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		return err
	}
	pcfg, err := tuning.Pipeline()
	if err != nil {
		return err
	}
	if err := cfg.CheckSampleRate(pcfg.SampleRateHz); err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDCoach)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	coach, err := NewCoach(pcfg, mqttPublisher{client: client}, CoachOptions{
		Topics: Topics{
			Metrics:     cfg.TopicMetrics,
			Stroke:      cfg.TopicStroke,
			Velocity:    cfg.TopicVelocity,
			Calibration: cfg.TopicCalibration,
		},
		CalibrationFile: cfg.CalibrationFile,
		SessionDir:      cfg.SessionDir,
		DemoMode:        cfg.DemoMode,
	})
	if err != nil {
		return err
	}
	defer coach.Close()
	log.Printf("coach: session %s, %s mounting", coach.SessionID(), pcfg.Mounting)

	if err := subscribeJSON(client, cfg.TopicInertial, coach.HandleSample); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicGPS, func(f gps.Fix) { coach.HandleFix(f) }); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicControl, func(cmd Command) {
		if err := coach.HandleCommand(cmd); err != nil {
			log.Printf("coach: command %q: %v", cmd.Command, err)
		}
	}); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("coach: shutting down")
	return nil
}
