// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors talks to the boat-mounted MPU9250.
package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/stroke_coach/internal/imu"
)

// MPU9250 reads raw accelerometer and gyroscope counts over SPI.
type MPU9250 struct {
	dev *mpu9250.MPU9250
}

var _ imu.RawSource = (*MPU9250)(nil)

// NewMPU9250 initializes the sensor on spiDev with chip select csPin and
// applies the full-scale range selectors (0-3).
func NewMPU9250(spiDev, csPin string, accelRange, gyroRange byte) (*MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", accelRange, []int{2, 4, 8, 16}[accelRange&3])

	if err := dev.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	log.Printf("IMU: gyroscope range set to %d (±%d°/s)", gyroRange, []int{250, 500, 1000, 2000}[gyroRange&3])

	testResult, err := dev.SelfTest()
	if err != nil {
		log.Printf("Warning: IMU self-test failed: %v", err)
	} else {
		log.Printf("IMU self-test passed:")
		log.Printf("  Accelerometer deviation: X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
			testResult.AccelDeviation.X, testResult.AccelDeviation.Y, testResult.AccelDeviation.Z)
		log.Printf("  Gyroscope deviation: X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
			testResult.GyroDeviation.X, testResult.GyroDeviation.Y, testResult.GyroDeviation.Z)
	}

	// Bias calibration only; mounting tilt is handled by the calibration profile.
	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: IMU bias calibration failed: %v", err)
	} else {
		log.Printf("IMU bias calibration complete")
	}

	return &MPU9250{dev: dev}, nil
}

// NextRaw reads one accelerometer and gyroscope sample.
func (m *MPU9250) NextRaw() (imu.Raw, error) {
	var r imu.Raw
	reads := []struct {
		name string
		dst  *int16
		fn   func() (int16, error)
	}{
		{"accel X", &r.Ax, m.dev.GetAccelerationX},
		{"accel Y", &r.Ay, m.dev.GetAccelerationY},
		{"accel Z", &r.Az, m.dev.GetAccelerationZ},
		{"gyro X", &r.Gx, m.dev.GetRotationX},
		{"gyro Y", &r.Gy, m.dev.GetRotationY},
		{"gyro Z", &r.Gz, m.dev.GetRotationZ},
	}
	for _, rd := range reads {
		v, err := rd.fn()
		if err != nil {
			return imu.Raw{}, fmt.Errorf("IMU %s: %w", rd.name, err)
		}
		*rd.dst = v
	}
	return r, nil
}
