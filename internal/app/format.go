package app

import (
	"fmt"
	"math"
)

// formatSplit renders seconds per 500 m as m:ss.s, or "-:--.-" when unknown.
func formatSplit(sec float64) string {
	if !(sec > 0) || math.IsInf(sec, 0) {
		return "-:--.-"
	}
	tenths := int(math.Round(sec * 10))
	return fmt.Sprintf("%d:%02d.%d", tenths/600, tenths/10%60, tenths%10)
}

func formatStroke(m StrokeMessage) string {
	if !m.HasRate() {
		return fmt.Sprintf("[STROKE] #%-4d drive=%4.0fms", m.Number, m.DriveTime)
	}
	return fmt.Sprintf("[STROKE] #%-4d rate=%4.1fspm drive=%4.0fms recovery=%5.0fms ratio=%d%%",
		m.Number, m.StrokeRate, m.DriveTime, m.RecoveryTime, m.DrivePercent)
}

func formatVelocity(m VelocityMessage) string {
	return fmt.Sprintf("[SPEED]  gps=%4.2fm/s fused=%4.2fm/s split=%s/500m",
		m.RawSpeed, m.Velocity, formatSplit(m.Split500))
}

func formatMetrics(m Metrics) string {
	return fmt.Sprintf("[BOAT]   surge=%+6.2f phase=%-8s angle=%5.1f° roll=%+5.1f° pitch=%+5.1f° strokes=%d",
		m.Surge, m.Phase, m.StrokeAngle, m.Pose.Roll, m.Pose.Pitch, m.StrokeCount)
}

func formatCalibration(st CalibrationStatus) string {
	if st.Error != "" {
		return fmt.Sprintf("[CAL]    %s error: %s", st.State, st.Error)
	}
	if st.Profile != nil {
		return fmt.Sprintf("[CAL]    %s pitch=%.2f° roll=%.2f° quality=%s", st.State,
			st.Profile.PitchOffset, st.Profile.RollOffset, st.Quality)
	}
	return fmt.Sprintf("[CAL]    %s samples=%d", st.State, st.Samples)
}
