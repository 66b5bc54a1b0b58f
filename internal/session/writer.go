package session

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WriteFile encodes s to path as a V2 recording.
func WriteFile(path string, s *Session) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if err := Write(f, s); err != nil {
		f.Close()
		return fmt.Errorf("write session %s: %w", path, err)
	}
	return f.Close()
}

// Write encodes s as a V2 recording. The header version of s is ignored.
func Write(w io.Writer, s *Session) error {
	bw := bufio.NewWriter(w)

	h := headerV2{
		IMUCount:         uint32(len(s.IMU)),
		GPSCount:         uint32(len(s.GPS)),
		CalibrationCount: uint32(len(s.CalibrationSamples)),
		SessionStart:     s.SessionStartMs,
		Orientation:      mountingByte(s.Mounting),
		Catch:            float32(s.Thresholds.Catch),
		Finish:           float32(s.Thresholds.Finish),
		ID:               s.ID,
	}
	copy(h.Magic[:], magicV2)
	if s.DemoMode {
		h.DemoMode = 1
	}
	if s.Calibration != nil {
		h.HasCalibration = 1
	}

	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return err
	}
	if s.Calibration != nil {
		cb := newCalibrationBlock(*s.Calibration)
		if err := binary.Write(bw, binary.LittleEndian, &cb); err != nil {
			return err
		}
	}
	for _, smp := range s.IMU {
		rec := newIMURecord(smp)
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}
	for _, fix := range s.GPS {
		rec := newGPSRecord(fix)
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}
	for _, smp := range s.CalibrationSamples {
		rec := newIMURecord(smp)
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}
