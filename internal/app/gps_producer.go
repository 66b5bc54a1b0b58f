package app

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/stroke_coach/internal/config"
	"github.com/relabs-tech/stroke_coach/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes every valid fix as JSON on TOPIC_GPS.
func RunGPSProducer() error {
	cfg := config.Get()
	if cfg.DemoMode {
		log.Println("gps producer: DEMO_MODE is set, fixes come from the imu producer; exiting")
		return nil
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("open GPS serial port %s: %w", cfg.GPSSerialPort, err)
	}
	defer port.Close()
	log.Printf("GPS serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	return streamFixes(port, mqttPublisher{client: client, retain: true}, cfg.TopicGPS, time.Now)
}

// streamFixes reads NMEA lines from r until it fails and publishes each
// valid fix. Fixes without a usable receiver time are stamped with now.
func streamFixes(r io.Reader, pub Publisher, topic string, now func() time.Time) error {
	reader := bufio.NewReader(r)
	var parser gps.Parser

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			log.Printf("GPS read error: %v", err)
			return err
		}

		fix, ok, err := parser.ParseLine(line)
		if err != nil {
			// noisy GPS or partial sentences
			continue
		}
		if !ok {
			continue
		}
		if fix.TimestampMs == 0 {
			fix.TimestampMs = float64(now().UnixMilli())
		}

		if err := pub.Publish(topic, fix); err != nil {
			log.Printf("GPS %v", err)
			continue
		}
	}
}
