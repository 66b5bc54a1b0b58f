package simulate

import (
	"github.com/relabs-tech/stroke_coach/internal/session"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
)

func (r *Rowing) nextGPSMs() float64 {
	return r.cfg.StartMs + float64(r.gpsN)*1000/r.cfg.GPSRateHz
}

// Session records a complete demo session: restSeconds of a still boat kept
// as calibration samples, then rowSeconds of rowing with GPS fixes on the
// same clock.
func (r *Rowing) Session(restSeconds, rowSeconds float64) *session.Session {
	s := &session.Session{
		Header: session.Header{
			SessionStartMs: r.cfg.StartMs,
			Mounting:       r.cfg.Mounting,
			DemoMode:       true,
			Thresholds:     stroke.DefaultThresholds(),
		},
	}

	r.SetResting(true)
	for i := 0; i < int(restSeconds*r.cfg.SampleRateHz); i++ {
		s.CalibrationSamples = append(s.CalibrationSamples, r.NextInertial())
	}
	rowStart := r.cfg.StartMs + float64(r.imuN)*1000/r.cfg.SampleRateHz
	for r.nextGPSMs() < rowStart {
		r.NextGPS()
	}
	r.SetResting(false)

	for i := 0; i < int(rowSeconds*r.cfg.SampleRateHz); i++ {
		smp := r.NextInertial()
		for r.nextGPSMs() <= smp.TimestampMs {
			s.GPS = append(s.GPS, r.NextGPS())
		}
		s.IMU = append(s.IMU, smp)
	}
	return s
}
