package imu

// Raw is a single MPU9250 reading in sensor counts.
type Raw struct {
	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// RawSource is anything that can deliver raw readings.
type RawSource interface {
	NextRaw() (Raw, error)
}

// Full-scale selectors as written to ACCEL_CONFIG / GYRO_CONFIG.
// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
const (
	accelLSBPerG2    = 16384.0
	gyroLSBPerDps250 = 131.0
)

// AccelScale returns m/s² per count for the given range selector.
func AccelScale(rangeSel byte) float64 {
	return StandardGravity / (accelLSBPerG2 / float64(uint(1)<<(rangeSel&3)))
}

// GyroScale returns deg/s per count for the given range selector.
func GyroScale(rangeSel byte) float64 {
	return 1.0 / (gyroLSBPerDps250 / float64(uint(1)<<(rangeSel&3)))
}

// ToSample scales r into SI acceleration and deg/s angular rate.
func (r Raw) ToSample(timestampMs float64, accelRange, gyroRange byte) Sample {
	as := AccelScale(accelRange)
	gs := GyroScale(gyroRange)
	return Sample{
		TimestampMs: timestampMs,
		Ax:          float64(r.Ax) * as,
		Ay:          float64(r.Ay) * as,
		Az:          float64(r.Az) * as,
		Gx:          float64(r.Gx) * gs,
		Gy:          float64(r.Gy) * gs,
		Gz:          float64(r.Gz) * gs,
	}
}
