package pipeline

import (
	"log"
	"math"
)

const (
	// RateTolerance is the relative deviation from the design sample rate
	// beyond which the band-pass corners no longer sit where configured.
	RateTolerance = 0.2

	rateSmoothing  = 0.05
	rateMinSamples = 50
	rateMaxGap     = 1.0 // seconds; longer gaps are dropouts, not the rate
)

// RateMismatch reports whether measuredHz is outside RateTolerance of designHz.
func RateMismatch(measuredHz, designHz float64) bool {
	if !(measuredHz > 0) || !(designHz > 0) {
		return true
	}
	return math.Abs(measuredHz-designHz) > RateTolerance*designHz
}

// rateMonitor tracks the smoothed inter-sample interval and warns when it
// drifts away from the rate the filters were designed for.
type rateMonitor struct {
	designHz   float64
	meanDt     float64
	n          int
	mismatched bool
}

func (m *rateMonitor) observe(dt float64) {
	if !(dt > 0) || dt > rateMaxGap {
		return
	}
	if m.n == 0 {
		m.meanDt = dt
	} else {
		m.meanDt += rateSmoothing * (dt - m.meanDt)
	}
	m.n++
	if m.n < rateMinSamples {
		return
	}

	bad := RateMismatch(1/m.meanDt, m.designHz)
	switch {
	case bad && !m.mismatched:
		log.Printf("pipeline: warning: samples arrive at %.1f Hz, filters are designed for %.1f Hz; stroke detection is unreliable",
			1/m.meanDt, m.designHz)
	case !bad && m.mismatched:
		log.Printf("pipeline: sample rate back at %.1f Hz", 1/m.meanDt)
	}
	m.mismatched = bad
}

func (m *rateMonitor) rateHz() float64 {
	if m.n == 0 {
		return 0
	}
	return 1 / m.meanDt
}

func (m *rateMonitor) reset() {
	m.meanDt, m.n, m.mismatched = 0, 0, false
}
