// Package baseline removes slow drift from the filtered surge signal.
package baseline

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/stroke_coach/internal/stroke"
)

const (
	DefaultWindowMs   = 3000.0
	DefaultMaxSamples = 1024

	// minRecoverySamples is the least recovery data a drive-free window needs
	// before it moves the baseline.
	minRecoverySamples = 5
)

// ErrInvalidWindow is returned for a non-positive window or sample cap.
var ErrInvalidWindow = errors.New("baseline: invalid window")

type point struct {
	t, v float64
}

// Corrector keeps a sliding time window of values per stroke phase.
//
// With both phases in the window the baseline is the window mean, which is
// close to zero for a band-passed stroke cycle and follows drift. A window
// holding only recovery values (no strokes) uses their median. A window
// holding only drive values leaves the baseline where it was, so a long
// drive cannot drag it.
type Corrector struct {
	windowMs   float64
	maxSamples int

	drive, recovery []point
	baseline        float64
	scratch         []float64
}

// NewCorrector returns a corrector over windowMs keeping at most maxSamples
// values per phase.
func NewCorrector(windowMs float64, maxSamples int) (*Corrector, error) {
	if !(windowMs > 0) || maxSamples <= 0 {
		return nil, fmt.Errorf("%w: %g ms, %d samples", ErrInvalidWindow, windowMs, maxSamples)
	}
	return &Corrector{windowMs: windowMs, maxSamples: maxSamples}, nil
}

// Correct records v at time t (ms) under phase and returns v minus the
// updated baseline. Non-finite values are returned unchanged and not stored.
func (c *Corrector) Correct(t, v float64, phase stroke.Phase) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(t) {
		return v
	}

	p := point{t: t, v: v}
	if phase == stroke.Drive {
		c.drive = c.push(c.drive, p)
	} else {
		c.recovery = c.push(c.recovery, p)
	}
	cutoff := t - c.windowMs
	c.drive = prune(c.drive, cutoff)
	c.recovery = prune(c.recovery, cutoff)

	c.update()
	return v - c.baseline
}

// Baseline returns the current estimate.
func (c *Corrector) Baseline() float64 { return c.baseline }

// Len returns the number of values per phase currently in the window.
func (c *Corrector) Len() (drive, recovery int) {
	return len(c.drive), len(c.recovery)
}

// Reset clears the window and the baseline.
func (c *Corrector) Reset() {
	c.drive = c.drive[:0]
	c.recovery = c.recovery[:0]
	c.baseline = 0
}

func (c *Corrector) push(buf []point, p point) []point {
	if len(buf) >= c.maxSamples {
		buf = append(buf[:0], buf[1:]...)
	}
	return append(buf, p)
}

func prune(buf []point, cutoff float64) []point {
	i := 0
	for i < len(buf) && buf[i].t < cutoff {
		i++
	}
	if i == 0 {
		return buf
	}
	return append(buf[:0], buf[i:]...)
}

func (c *Corrector) update() {
	switch {
	case len(c.drive) > 0 && len(c.recovery) > 0:
		c.scratch = c.values(c.scratch[:0], c.drive)
		c.scratch = c.values(c.scratch, c.recovery)
		c.baseline = stat.Mean(c.scratch, nil)
	case len(c.recovery) >= minRecoverySamples:
		c.scratch = c.values(c.scratch[:0], c.recovery)
		slices.Sort(c.scratch)
		c.baseline = stat.Quantile(0.5, stat.Empirical, c.scratch, nil)
	}
}

func (c *Corrector) values(dst []float64, buf []point) []float64 {
	for _, p := range buf {
		dst = append(dst, p.v)
	}
	return dst
}
