package gps

// KnotsToMetersPerSecond converts speed over ground.
const KnotsToMetersPerSecond = 1852.0 / 3600.0

// Fix represents a single positional sample suitable for JSON and MQTT.
type Fix struct {
	TimestampMs float64 `json:"t"`           // ms since Unix epoch
	Time        string  `json:"time"`        // e.g. "12:34:56"
	Date        string  `json:"date"`        // e.g. "23/03/94"
	Latitude    float64 `json:"lat"`         // decimal degrees
	Longitude   float64 `json:"lon"`         // decimal degrees
	SpeedMps    float64 `json:"speed"`       // speed over ground, m/s
	HeadingDeg  float64 `json:"heading"`     // course over ground
	AccuracyM   float64 `json:"accuracy"`    // horizontal accuracy estimate, m
	Validity    string  `json:"validity"`    // "A" (valid) / "V" (void) / "" (not reported)
	SpeedKnots  float64 `json:"speed_knots"` // as reported by the receiver
}

// Valid reports whether the fix is usable. Only an explicit void flag
// marks it unusable; producers that do not report validity are trusted.
func (f Fix) Valid() bool {
	return f.Validity != "V"
}
