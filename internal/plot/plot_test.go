package plot_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/acckpi/internal/acc"
	"github.com/signalnine/acckpi/internal/plot"
)

func TestCleanTTC(t *testing.T) {
	nan := math.NaN()
	ttc := []float64{5, math.Inf(1), nan, 2, 45, 1.2}
	vrel := []float64{-2, -2, -2, -0.05, -1, -3}
	got := plot.CleanTTC(ttc, vrel, 0.1, 30)
	want := []float64{5, nan, nan, nan, nan, 1.2}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("CleanTTC mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanTTCWithoutRelSpeed(t *testing.T) {
	got := plot.CleanTTC([]float64{4, 50}, nil, 0.1, 30)
	if diff := cmp.Diff([]float64{4, math.NaN()}, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("CleanTTC mismatch (-want +got):\n%s", diff)
	}
}

func TestSegments(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5}
	y := []float64{1, 2, math.NaN(), 4, math.Inf(-1), 6}
	segs := plot.Segments(x, y)
	require.Len(t, segs, 3)
	assert.Len(t, segs[0], 2)
	assert.Len(t, segs[1], 1)
	assert.Equal(t, 6.0, segs[2][0].Y)
}

func records(withLead bool) []acc.LogRecord {
	var out []acc.LogRecord
	for i := 0; i < 200; i++ {
		r := acc.LogRecord{
			T:               float64(i) * 0.02,
			Mode:            acc.ModeCruise,
			EgoSpeedMps:     20 + float64(i)*0.01,
			VSetMps:         25,
			ACmdMps2:        0.5,
			TTCS:            math.Inf(1),
			LeadDistanceM:   math.NaN(),
			LeadRelSpeedMps: math.NaN(),
		}
		if withLead && i >= 100 {
			r.Mode = acc.ModeFollow
			r.LeadValid = true
			r.LeadDistanceM = 40 - float64(i-100)*0.1
			r.LeadRelSpeedMps = -2
			r.TTCS = r.LeadDistanceM / 2
		}
		out = append(out, r)
	}
	return out
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	paths, err := plot.Render(records(true), plot.Options{OutDir: dir, Prefix: "follow"})
	require.NoError(t, err)
	want := []string{"follow_speed.png", "follow_distance.png", "follow_accel.png", "follow_ttc.png", "follow_mode.png"}
	require.Len(t, paths, len(want))
	for i, name := range want {
		assert.Equal(t, filepath.Join(dir, name), paths[i])
		info, err := os.Stat(paths[i])
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestRenderSkipsDistanceWithoutLead(t *testing.T) {
	dir := t.TempDir()
	paths, err := plot.Render(records(false), plot.Options{OutDir: dir, Prefix: "cruise"})
	require.NoError(t, err)
	assert.Len(t, paths, 4)
	assert.NoFileExists(t, filepath.Join(dir, "cruise_distance.png"))
}

func TestRenderEmpty(t *testing.T) {
	_, err := plot.Render(nil, plot.Options{OutDir: t.TempDir()})
	assert.True(t, errors.Is(err, plot.ErrNoRecords))
}
