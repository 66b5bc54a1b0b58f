package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/stroke_coach/internal/session"
	"github.com/relabs-tech/stroke_coach/internal/transform"
)

func TestRunSimulate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "demo"+session.Extension)
	s, err := RunSimulate(path, SimulateOptions{RestSeconds: 2, RowSeconds: 10, Mounting: transform.Coxswain})
	require.NoError(t, err)

	got, err := session.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, transform.Coxswain, got.Mounting)
	assert.True(t, got.DemoMode)
	assert.Len(t, got.CalibrationSamples, 100)
	assert.Len(t, got.IMU, 500)
	assert.Len(t, got.GPS, 10)

	_, err = RunSimulate(path, SimulateOptions{RowSeconds: 0})
	assert.Error(t, err)
}
