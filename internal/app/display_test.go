package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/stroke_coach/internal/pipeline"
	"github.com/relabs-tech/stroke_coach/internal/stroke"
)

func litPixels(pix []byte) int {
	n := 0
	for _, b := range pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestDisplayData(t *testing.T) {
	t.Parallel()

	var d DisplayData
	assert.False(t, d.snapshot().haveData)

	d.onStroke(StrokeMessage{Record: stroke.Record{Number: 1}})
	d.onStroke(StrokeMessage{Record: stroke.Record{Number: 2, StrokeRate: 26}})
	d.onStroke(StrokeMessage{Record: stroke.Record{Number: 3}})
	d.onVelocity(VelocityMessage{Fused: pipeline.Fused{Velocity: 4, Split500: 125}})
	d.onCalibration(CalibrationStatus{State: "collecting", Samples: 100})

	s := d.snapshot()
	assert.True(t, s.haveData)
	assert.Equal(t, 3, s.strokes)
	assert.Equal(t, 26.0, s.rate, "rate kept from the last stroke that had one")
	assert.Equal(t, 125.0, s.split)
	assert.Equal(t, "CAL 100", s.calibrate)

	d.onCalibration(CalibrationStatus{State: "ready"})
	assert.Empty(t, d.snapshot().calibrate)
}

func TestRenderDashboard(t *testing.T) {
	t.Parallel()

	waiting := renderDashboard(displaySnapshot{})
	rowing := renderDashboard(displaySnapshot{rate: 24.5, split: 118, speed: 4.2, strokes: 40, haveData: true})

	assert.Len(t, rowing.Pix, displayWidth*displayHeight/8)
	assert.Positive(t, litPixels(waiting.Pix))
	assert.Positive(t, litPixels(rowing.Pix))
	assert.False(t, bytes.Equal(waiting.Pix, rowing.Pix))

	other := renderDashboard(displaySnapshot{rate: 30, split: 100, speed: 5, strokes: 41, haveData: true})
	assert.False(t, bytes.Equal(rowing.Pix, other.Pix))
}
