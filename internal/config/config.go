package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/stroke_coach/internal/pipeline"
)

// ErrSampleRateMismatch is returned by CheckSampleRate.
var ErrSampleRateMismatch = errors.New("sample rate mismatch")

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDCoach    string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicInertial    string // raw samples from the IMU producer
	TopicGPS         string // fixes from the GPS producer
	TopicMetrics     string // per-sample pipeline output
	TopicStroke      string // completed strokes
	TopicVelocity    string // fused speed and split
	TopicCalibration string // calibration profile and status
	TopicControl     string // commands: reset, calibrate_start, calibrate_complete

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// DemoMode replaces the IMU and GPS hardware with the rowing simulator.
	DemoMode bool

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Timing
	IMUSampleInterval  int // milliseconds
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string // "" selects the first bus; the SSD1306 answers at 0x3C
	DisplayUpdateInterval int    // milliseconds

	// Files
	TuningFile      string // optional YAML pipeline tuning
	CalibrationFile string // JSON calibration profile, loaded at coach start
	SessionDir      string // where the coach records .wrcdata files; "" disables recording
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		if err := cfg.setValue(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults fills in everything that has a sensible value without a config line.
func defaults() *Config {
	return &Config{
		MQTTClientIDCoach:    "stroke-coach",
		MQTTClientIDProducer: "stroke-imu-producer",
		MQTTClientIDGPS:      "stroke-gps-producer",
		MQTTClientIDConsole:  "stroke-console",
		MQTTClientIDWeb:      "stroke-web",
		MQTTClientIDDisplay:  "stroke-display",

		TopicInertial:    "stroke/inertial",
		TopicGPS:         "stroke/gps",
		TopicMetrics:     "stroke/metrics",
		TopicStroke:      "stroke/stroke",
		TopicVelocity:    "stroke/velocity",
		TopicCalibration: "stroke/calibration",
		TopicControl:     "stroke/control",

		IMUAccelRange: 1,
		IMUGyroRange:  1,

		GPSBaudRate: 9600,

		IMUSampleInterval:  20,
		ConsoleLogInterval: 1000,

		WebServerPort: 8080,

		DisplayUpdateInterval: 500,
	}
}

func parseRange(key, value string, maxVal int) (byte, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < 0 || v > maxVal {
		return 0, fmt.Errorf("%s must be 0-%d, got %d", key, maxVal, v)
	}
	return byte(v), nil
}

func parsePositive(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, v)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_COACH":
		c.MQTTClientIDCoach = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_INERTIAL":
		c.TopicInertial = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_METRICS":
		c.TopicMetrics = value
	case "TOPIC_STROKE":
		c.TopicStroke = value
	case "TOPIC_VELOCITY":
		c.TopicVelocity = value
	case "TOPIC_CALIBRATION":
		c.TopicCalibration = value
	case "TOPIC_CONTROL":
		c.TopicControl = value

	// IMU
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		c.IMUAccelRange, err = parseRange(key, value, 3)
	case "IMU_GYRO_RANGE":
		c.IMUGyroRange, err = parseRange(key, value, 3)
	case "DEMO_MODE":
		c.DemoMode, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid DEMO_MODE %q: %w", value, err)
		}

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parsePositive(key, value)

	// Timing
	case "IMU_SAMPLE_INTERVAL":
		c.IMUSampleInterval, err = parsePositive(key, value)
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parsePositive(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parsePositive(key, value)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parsePositive(key, value)

	// Files
	case "TUNING_FILE":
		c.TuningFile = value
	case "CALIBRATION_FILE":
		c.CalibrationFile = value
	case "SESSION_DIR":
		c.SessionDir = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if !c.DemoMode {
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required unless DEMO_MODE is set")
		}
		if c.GPSSerialPort == "" {
			return fmt.Errorf("GPS_SERIAL_PORT is required unless DEMO_MODE is set")
		}
	}
	return nil
}

// CheckSampleRate compares the producer rate implied by IMU_SAMPLE_INTERVAL
// with the rate the filters are designed for.
func (c *Config) CheckSampleRate(designHz float64) error {
	producerHz := 1000 / float64(c.IMUSampleInterval)
	if pipeline.RateMismatch(producerHz, designHz) {
		return fmt.Errorf("%w: IMU_SAMPLE_INTERVAL=%dms gives %.1f Hz, filters designed for %.1f Hz (sample_rate_hz)",
			ErrSampleRateMismatch, c.IMUSampleInterval, producerHz, designHz)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads the file.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
