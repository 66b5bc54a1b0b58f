package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/stroke_coach/internal/config"
	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/sensors"
	"github.com/relabs-tech/stroke_coach/internal/simulate"
)

const producerLogEvery = 1000

// hardwareSource scales raw MPU9250 counts stamped with the read time.
type hardwareSource struct {
	dev        imu.RawSource
	accelRange byte
	gyroRange  byte
}

func (h hardwareSource) next(now time.Time) (imu.Sample, error) {
	raw, err := h.dev.NextRaw()
	if err != nil {
		return imu.Sample{}, err
	}
	return raw.ToSample(float64(now.UnixMilli()), h.accelRange, h.gyroRange), nil
}

// RunIMUProducer samples the IMU every IMU_SAMPLE_INTERVAL ms and publishes
// each sample as JSON on TOPIC_INERTIAL. In DEMO_MODE the rowing simulator
// stands in for the sensor and also publishes GPS fixes on TOPIC_GPS.
func RunIMUProducer() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	pub := mqttPublisher{client: client}

	interval := time.Duration(cfg.IMUSampleInterval) * time.Millisecond

	var (
		hw      hardwareSource
		demo    *simulate.Rowing
		nextGPS float64
	)
	if cfg.DemoMode {
		simCfg := simulate.DefaultConfig()
		simCfg.SampleRateHz = 1000 / float64(cfg.IMUSampleInterval)
		simCfg.StartMs = float64(time.Now().UnixMilli())
		simCfg.Seed = uint64(time.Now().UnixNano())
		demo = simulate.NewRowing(simCfg)
		nextGPS = simCfg.StartMs
		log.Printf("imu producer: DEMO_MODE, simulating %.0f spm at %.0f Hz", simCfg.StrokeRate, simCfg.SampleRateHz)
	} else {
		dev, err := sensors.NewMPU9250(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange, cfg.IMUGyroRange)
		if err != nil {
			return fmt.Errorf("imu producer: %w", err)
		}
		hw = hardwareSource{dev: dev, accelRange: cfg.IMUAccelRange, gyroRange: cfg.IMUGyroRange}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("imu producer: publishing every %v on %s", interval, cfg.TopicInertial)

	published := 0
	for {
		select {
		case <-sigCh:
			log.Printf("imu producer: shutting down after %d samples", published)
			return nil
		case now := <-ticker.C:
			var s imu.Sample
			if demo != nil {
				s = demo.NextInertial()
				if s.TimestampMs >= nextGPS {
					if err := pub.Publish(cfg.TopicGPS, demo.NextGPS()); err != nil {
						log.Printf("imu producer: %v", err)
					}
					nextGPS += demo.GPSPeriodMs()
				}
			} else {
				var err error
				if s, err = hw.next(now); err != nil {
					log.Printf("imu producer: read error: %v", err)
					continue
				}
			}

			if err := pub.Publish(cfg.TopicInertial, s); err != nil {
				log.Printf("imu producer: %v", err)
				continue
			}
			published++
			if published%producerLogEvery == 0 {
				log.Printf("imu producer: %d samples, last ax=%.2f ay=%.2f az=%.2f gx=%.1f gy=%.1f gz=%.1f",
					published, s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz)
			}
		}
	}
}
