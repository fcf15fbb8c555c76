package runner_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/acckpi/internal/config"
	"github.com/signalnine/acckpi/internal/history"
	"github.com/signalnine/acckpi/internal/kpi"
	"github.com/signalnine/acckpi/internal/result"
	"github.com/signalnine/acckpi/internal/runner"
)

func TestExitReasonFromCode(t *testing.T) {
	tests := []struct {
		code     int
		timedOut bool
		want     string
	}{
		{0, false, "completed"},
		{1, false, "failed"},
		{2, false, "failed"},
		{124, true, "timeout"},
	}
	for _, tt := range tests {
		got := runner.ExitReasonFromCode(tt.code, tt.timedOut)
		if got != tt.want {
			t.Errorf("ExitReasonFromCode(%d, %v) = %q, want %q", tt.code, tt.timedOut, got, tt.want)
		}
	}
}

func TestBuildSimCommand(t *testing.T) {
	got := runner.BuildSimCommand("sim_runner", "lead_brake.csv", false)
	assert.Equal(t, []string{"sim_runner", "--scenario", "/scenario/lead_brake.csv", "--out", "/out/log.csv"}, got)

	got = runner.BuildSimCommand("sim_runner", "lead_brake.csv", true)
	assert.Equal(t, "--no-aeb", got[len(got)-1])
}

// cruiseLog writes a steady cruise log whose speed error over the last
// seconds is err.
func cruiseLog(t *testing.T, dir, name string, speedErr float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("t_s,mode,ego_speed_mps,v_set_mps,lead_valid,lead_distance_m,ttc_s,a_cmd_mps2\n")
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&b, "%g,1,%g,25,0,,inf,0.1\n", float64(i)*0.02, 25-speedErr)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunEvaluation(t *testing.T) {
	dir := t.TempDir()
	logPath := cruiseLog(t, dir, "cruise_step.csv", 0.25)
	runDir := filepath.Join(dir, "run")
	store, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	meta, err := runner.RunEvaluation(context.Background(), &runner.EvalOpts{
		LogPath:      logPath,
		Params:       kpi.DefaultParams(),
		Requirements: config.DefaultRequirements(),
		RunDir:       runDir,
		History:      store,
	})
	require.NoError(t, err)
	assert.Equal(t, "cruise_step", meta.Log)
	assert.Equal(t, 500, meta.Metrics.Records)
	assert.InDelta(t, 0.25, meta.Metrics.CruiseSSSpeedErrMps, 1e-9)
	assert.True(t, meta.Passed)
	assert.Equal(t, 1.0, meta.Score)

	stored, err := result.ReadEvalMeta(filepath.Join(result.EvalDir(runDir, "cruise_step"), result.MetaFile))
	require.NoError(t, err)
	assert.Equal(t, meta.ID, stored.ID)
	assert.FileExists(t, filepath.Join(result.EvalDir(runDir, "cruise_step"), result.LogFile))

	got, err := store.Get(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.Log, got.Log)
}

func TestRunEvaluationFailingRequirement(t *testing.T) {
	dir := t.TempDir()
	meta, err := runner.RunEvaluation(context.Background(), &runner.EvalOpts{
		LogPath:      cruiseLog(t, dir, "slow.csv", 1.5),
		Params:       kpi.DefaultParams(),
		Requirements: config.DefaultRequirements(),
	})
	require.NoError(t, err)
	assert.False(t, meta.Passed)
	assert.Less(t, meta.Score, 1.0)
}

func TestRunEvaluationMissingLog(t *testing.T) {
	_, err := runner.RunEvaluation(context.Background(), &runner.EvalOpts{
		LogPath: filepath.Join(t.TempDir(), "missing.csv"),
		Params:  kpi.DefaultParams(),
	})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunEvaluationHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("t_s,mode,a_cmd_mps2\n"), 0o644))
	_, err := runner.RunEvaluation(context.Background(), &runner.EvalOpts{LogPath: path, Params: kpi.DefaultParams()})
	assert.True(t, errors.Is(err, kpi.ErrEmptyInput))
}

func TestRescore(t *testing.T) {
	dir := t.TempDir()
	runDir := filepath.Join(dir, "run")
	meta, err := runner.RunEvaluation(context.Background(), &runner.EvalOpts{
		LogPath:      cruiseLog(t, dir, "cruise.csv", 0.25),
		Params:       kpi.DefaultParams(),
		Requirements: config.DefaultRequirements(),
		RunDir:       runDir,
	})
	require.NoError(t, err)
	require.True(t, meta.Passed)

	tight := 0.1
	reqs := []config.Requirement{{Metric: kpi.NameCruiseSSErr, Max: &tight}}
	rescored, err := runner.Rescore(context.Background(), result.EvalDir(runDir, "cruise"), kpi.DefaultParams(), reqs)
	require.NoError(t, err)
	assert.Equal(t, meta.ID, rescored.ID)
	assert.False(t, rescored.Passed)

	stored, err := result.ReadEvalMeta(filepath.Join(result.EvalDir(runDir, "cruise"), result.MetaFile))
	require.NoError(t, err)
	assert.False(t, stored.Passed)
	require.Len(t, stored.Verdicts, 1)
}

func TestRunSimulationMissingScenario(t *testing.T) {
	_, err := runner.RunSimulation(context.Background(), &runner.SimOpts{
		ScenarioPath: filepath.Join(t.TempDir(), "nope.csv"),
		OutDir:       t.TempDir(),
	})
	assert.Error(t, err)
}
