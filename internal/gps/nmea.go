package gps

import (
	"fmt"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// hdopToMeters is a typical user-equivalent range error for consumer receivers.
const hdopToMeters = 5.0

// Parser turns a stream of NMEA sentences into fixes. RMC sentences produce a
// fix; GGA sentences refresh the accuracy estimate and the last position.
// VTG sentences produce a speed-only fix, stamped by the caller, as long as
// the receiver has not sent any RMC.
type Parser struct {
	accuracy float64
	lat, lon float64
	seenRMC  bool
}

// ParseLine parses one line. ok is true when the line completed a valid fix.
// Lines that are not NMEA sentences are ignored without error.
func (p *Parser) ParseLine(line string) (fix Fix, ok bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, fmt.Errorf("nmea parse: %w", err)
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		if m.HDOP > 0 {
			p.accuracy = m.HDOP * hdopToMeters
		}
		if m.FixQuality != nmea.Invalid {
			p.lat, p.lon = m.Latitude, m.Longitude
		}
	case nmea.TypeVTG:
		if p.seenRMC {
			return Fix{}, false, nil
		}
		m := sentence.(nmea.VTG)
		fix = Fix{
			Latitude:   p.lat,
			Longitude:  p.lon,
			SpeedKnots: m.GroundSpeedKnots,
			SpeedMps:   m.GroundSpeedKnots * KnotsToMetersPerSecond,
			HeadingDeg: m.TrueTrack,
			AccuracyM:  p.accuracy,
			Validity:   "A",
		}
		if m.FFAMode == nmea.FAAModeDataNotValid {
			fix.Validity = "V"
		}
		return fix, fix.Valid(), nil
	case nmea.TypeRMC:
		p.seenRMC = true
		m := sentence.(nmea.RMC)
		fix = Fix{
			Time:       m.Time.String(),
			Date:       m.Date.String(),
			Latitude:   m.Latitude,
			Longitude:  m.Longitude,
			SpeedKnots: m.Speed,
			SpeedMps:   m.Speed * KnotsToMetersPerSecond,
			HeadingDeg: m.Course,
			AccuracyM:  p.accuracy,
			Validity:   string(m.Validity),
		}
		if m.Time.Valid && m.Date.Valid {
			ts := time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
				m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond), time.UTC)
			if m.Date.YY >= 80 {
				ts = ts.AddDate(-100, 0, 0)
			}
			fix.TimestampMs = float64(ts.UnixMilli())
		}
		return fix, fix.Valid(), nil
	}
	return Fix{}, false, nil
}
