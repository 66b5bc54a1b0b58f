// Package session reads and writes .wrcdata recordings.
//
// All values are little-endian. Layout:
//
//	header        64 bytes (V1) or 128 bytes (V2, V3)
//	calibration   64 bytes, V2+ when the header flag is set
//	imu records   imuCount x 32 bytes (44 bytes in V3)
//	gps records   gpsCount x 36 bytes
//	cal samples   calibrationCount imu records (V2+)
package session

import (
	"errors"

	"github.com/google/uuid"

	"github.com/relabs-tech/stroke_coach/internal/calibration"
	"github.com/relabs-tech/stroke_coach/internal/gps"
	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
	"github.com/relabs-tech/stroke_coach/internal/transform"
)

const (
	magicV1 = "WRC_COACH_V1"
	magicV2 = "WRC_COACH_V2"
	magicV3 = "WRC_COACH_V3"

	headerSizeV1    = 64
	headerSizeV2    = 128
	calibrationSize = 64
	imuSizeV2       = 32
	imuSizeV3       = 44
	gpsSize         = 36

	// Extension is the conventional file suffix.
	Extension = ".wrcdata"
)

var (
	// ErrBadMagic is returned when the file does not start with a known magic.
	ErrBadMagic = errors.New("session: not a wrcdata file")
	// ErrTruncated is returned when the file ends before the declared records.
	ErrTruncated = errors.New("session: truncated file")
)

// Header describes a recording.
type Header struct {
	Version        int
	ID             uuid.UUID // zero when the writer did not stamp one
	SessionStartMs float64   // ms since Unix epoch
	Mounting       transform.Mounting
	DemoMode       bool
	Thresholds     stroke.Thresholds
	Calibration    *calibration.Profile
}

// Session is a complete recording.
type Session struct {
	Header
	IMU                []imu.Sample
	GPS                []gps.Fix
	CalibrationSamples []imu.Sample
}

type headerV1 struct {
	Magic        [16]byte
	IMUCount     uint32
	GPSCount     uint32
	SessionStart float64
	Orientation  uint8
	DemoMode     uint8
	Catch        float32
	Finish       float32
	Reserved     [headerSizeV1 - 42]byte
}

type headerV2 struct {
	Magic            [16]byte
	IMUCount         uint32
	GPSCount         uint32
	CalibrationCount uint32
	HasCalibration   uint8
	SessionStart     float64
	Orientation      uint8
	DemoMode         uint8
	Catch            float32
	Finish           float32
	ID               [16]byte
	Reserved         [headerSizeV2 - 47 - 16]byte
}

type calibrationBlock struct {
	Pitch       float32
	Roll        float32
	Yaw         float32
	Lateral     float32
	Gravity     float32
	SampleCount uint32
	Variance    float32
	Timestamp   float64
	Reserved    [calibrationSize - 36]byte
}

type imuRecord struct {
	T                      float64
	Ax, Ay, Az, Gx, Gy, Gz float32
}

type imuRecordV3 struct {
	imuRecord
	Mx, My, Mz float32
}

type gpsRecord struct {
	T, Lat, Lon              float64
	Speed, Heading, Accuracy float32
}

func (r imuRecord) sample() imu.Sample {
	return imu.Sample{
		TimestampMs: r.T,
		Ax:          float64(r.Ax),
		Ay:          float64(r.Ay),
		Az:          float64(r.Az),
		Gx:          float64(r.Gx),
		Gy:          float64(r.Gy),
		Gz:          float64(r.Gz),
	}
}

func newIMURecord(s imu.Sample) imuRecord {
	return imuRecord{
		T:  s.TimestampMs,
		Ax: float32(s.Ax), Ay: float32(s.Ay), Az: float32(s.Az),
		Gx: float32(s.Gx), Gy: float32(s.Gy), Gz: float32(s.Gz),
	}
}

func (r gpsRecord) fix() gps.Fix {
	return gps.Fix{
		TimestampMs: r.T,
		Latitude:    r.Lat,
		Longitude:   r.Lon,
		SpeedMps:    float64(r.Speed),
		SpeedKnots:  float64(r.Speed) / gps.KnotsToMetersPerSecond,
		HeadingDeg:  float64(r.Heading),
		AccuracyM:   float64(r.Accuracy),
		Validity:    "A",
	}
}

func newGPSRecord(f gps.Fix) gpsRecord {
	return gpsRecord{
		T: f.TimestampMs, Lat: f.Latitude, Lon: f.Longitude,
		Speed: float32(f.SpeedMps), Heading: float32(f.HeadingDeg), Accuracy: float32(f.AccuracyM),
	}
}

func (b calibrationBlock) profile() calibration.Profile {
	return calibration.Profile{
		Version:          calibration.ProfileVersion,
		PitchOffset:      float64(b.Pitch),
		RollOffset:       float64(b.Roll),
		YawOffset:        float64(b.Yaw),
		LateralOffset:    float64(b.Lateral),
		GravityMagnitude: float64(b.Gravity),
		SampleCount:      int(b.SampleCount),
		Variance:         float64(b.Variance),
		Timestamp:        b.Timestamp,
	}
}

func newCalibrationBlock(p calibration.Profile) calibrationBlock {
	return calibrationBlock{
		Pitch:       float32(p.PitchOffset),
		Roll:        float32(p.RollOffset),
		Yaw:         float32(p.YawOffset),
		Lateral:     float32(p.LateralOffset),
		Gravity:     float32(p.GravityMagnitude),
		SampleCount: uint32(p.SampleCount),
		Variance:    float32(p.Variance),
		Timestamp:   p.Timestamp,
	}
}

func mountingByte(m transform.Mounting) uint8 {
	if m == transform.Coxswain {
		return 1
	}
	return 0
}

func mountingFromByte(b uint8) transform.Mounting {
	if b == 1 {
		return transform.Coxswain
	}
	return transform.Rower
}
