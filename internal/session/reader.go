package session

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/relabs-tech/stroke_coach/internal/gps"
	"github.com/relabs-tech/stroke_coach/internal/imu"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
)

// maxPrealloc caps slice preallocation from untrusted header counts.
const maxPrealloc = 1 << 16

// ReadFile decodes the recording at path.
func ReadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer f.Close()
	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", path, err)
	}
	return s, nil
}

// Read decodes a recording from r.
func Read(r io.Reader) (*Session, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(16)
	if err != nil {
		return nil, ErrBadMagic
	}
	name := string(bytes.TrimRight(magic, "\x00"))

	s := &Session{}
	var imuCount, gpsCount, calCount uint32
	switch {
	case name == magicV1:
		var h headerV1
		if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
			return nil, truncated(err)
		}
		s.Version = 1
		imuCount, gpsCount = h.IMUCount, h.GPSCount
		s.SessionStartMs = h.SessionStart
		s.Mounting = mountingFromByte(h.Orientation)
		s.DemoMode = h.DemoMode == 1
		s.Thresholds = stroke.Thresholds{Catch: float64(h.Catch), Finish: float64(h.Finish)}

	case name == magicV2 || name == magicV3:
		var h headerV2
		if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
			return nil, truncated(err)
		}
		s.Version = 2
		if name == magicV3 {
			s.Version = 3
		}
		imuCount, gpsCount, calCount = h.IMUCount, h.GPSCount, h.CalibrationCount
		s.SessionStartMs = h.SessionStart
		s.Mounting = mountingFromByte(h.Orientation)
		s.DemoMode = h.DemoMode == 1
		s.Thresholds = stroke.Thresholds{Catch: float64(h.Catch), Finish: float64(h.Finish)}
		if id, err := uuid.FromBytes(h.ID[:]); err == nil {
			s.ID = id
		}

		if h.HasCalibration == 1 {
			var cb calibrationBlock
			if err := binary.Read(br, binary.LittleEndian, &cb); err != nil {
				return nil, truncated(err)
			}
			p := cb.profile()
			s.Calibration = &p
		}

	default:
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, name)
	}

	if s.IMU, err = readIMU(br, imuCount, s.Version); err != nil {
		return nil, fmt.Errorf("imu records: %w", err)
	}
	s.GPS = make([]gps.Fix, 0, min(gpsCount, maxPrealloc))
	for i := uint32(0); i < gpsCount; i++ {
		var rec gpsRecord
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("gps record %d: %w", i, truncated(err))
		}
		s.GPS = append(s.GPS, rec.fix())
	}
	if s.CalibrationSamples, err = readIMU(br, calCount, s.Version); err != nil {
		return nil, fmt.Errorf("calibration samples: %w", err)
	}
	return s, nil
}

func readIMU(r io.Reader, n uint32, version int) ([]imu.Sample, error) {
	out := make([]imu.Sample, 0, min(n, maxPrealloc))
	for i := uint32(0); i < n; i++ {
		var rec imuRecord
		if version >= 3 {
			var v3 imuRecordV3
			if err := binary.Read(r, binary.LittleEndian, &v3); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, truncated(err))
			}
			rec = v3.imuRecord
		} else if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, truncated(err))
		}
		out = append(out, rec.sample())
	}
	return out, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}
