package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/stroke_coach/internal/config"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// DisplayData holds the latest coach output for the OLED.
type DisplayData struct {
	mu sync.RWMutex

	rate      float64
	strokes   int
	split     float64
	speed     float64
	haveData  bool
	calibrate string
}

// displaySnapshot is a lock-free copy of DisplayData.
type displaySnapshot struct {
	rate      float64
	strokes   int
	split     float64
	speed     float64
	haveData  bool
	calibrate string
}

func (d *DisplayData) snapshot() displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return displaySnapshot{
		rate:      d.rate,
		strokes:   d.strokes,
		split:     d.split,
		speed:     d.speed,
		haveData:  d.haveData,
		calibrate: d.calibrate,
	}
}

func (d *DisplayData) onStroke(m StrokeMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strokes = m.Number
	if m.HasRate() {
		d.rate = m.StrokeRate
	}
	d.haveData = true
}

func (d *DisplayData) onVelocity(m VelocityMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = m.Velocity
	d.split = m.Split500
	d.haveData = true
}

func (d *DisplayData) onCalibration(st CalibrationStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st.State == "collecting" {
		d.calibrate = fmt.Sprintf("CAL %d", st.Samples)
	} else {
		d.calibrate = ""
	}
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	// The driver addresses the panel at 0x3C.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on %q at 0x3C", cfg.DisplayI2CBus)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	data := &DisplayData{}
	if err := subscribeJSON(client, cfg.TopicStroke, data.onStroke); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicVelocity, data.onVelocity); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicCalibration, data.onCalibration); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		img := renderDashboard(data.snapshot())
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// renderDashboard lays out rate, split, speed and stroke count in four
// rows of the 7x13 font.
func renderDashboard(s displaySnapshot) *image1bit.VerticalLSB {
	img, d := newCanvas()

	if !s.haveData {
		drawLine(d, 0, 26, "Stroke Coach")
		drawLine(d, 0, 39, "Waiting...")
		if s.calibrate != "" {
			drawLine(d, 0, 52, s.calibrate)
		}
		return img
	}

	drawLine(d, 0, 13, fmt.Sprintf("SPM   %5.1f", s.rate))
	drawLine(d, 0, 26, fmt.Sprintf("SPLIT %s", formatSplit(s.split)))
	drawLine(d, 0, 39, fmt.Sprintf("SPEED %4.2f", s.speed))
	if s.calibrate != "" {
		drawLine(d, 0, 52, s.calibrate)
	} else {
		drawLine(d, 0, 52, fmt.Sprintf("STROKES %d", s.strokes))
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, d := newCanvas()
	drawLine(d, 10, 26, "Stroke Coach")
	drawLine(d, 5, 43, "Hold still to")
	drawLine(d, 25, 56, "calibrate")
	return img
}
