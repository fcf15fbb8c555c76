package result_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/acckpi/internal/kpi"
	"github.com/signalnine/acckpi/internal/result"
	"github.com/signalnine/acckpi/internal/validation"
)

func TestWriteAndReadEvalMeta(t *testing.T) {
	dir := t.TempDir()
	meta := &result.EvalMeta{
		ID:          result.NewID(),
		Log:         "cruise_step",
		Source:      "/tmp/cruise_step.csv",
		EvaluatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Params:      kpi.DefaultParams(),
		Metrics: kpi.Metrics{
			MinDistanceM:        math.Inf(1),
			MinTTCS:             math.Inf(1),
			CruiseSSSpeedErrMps: 0.12,
			FollowSSTGapErrS:    math.NaN(),
			JerkSamples:         499,
		},
		Verdicts: []validation.Verdict{{Metric: kpi.NameAEBTime, Status: validation.StatusPass}},
		Score:    1,
		Passed:   true,
	}
	if err := result.WriteEvalMeta(dir, meta); err != nil {
		t.Fatalf("WriteEvalMeta: %v", err)
	}
	got, err := result.ReadEvalMeta(filepath.Join(dir, result.MetaFile))
	if err != nil {
		t.Fatalf("ReadEvalMeta: %v", err)
	}
	if got.ID != meta.ID {
		t.Errorf("id: got %q, want %q", got.ID, meta.ID)
	}
	if !math.IsInf(got.Metrics.MinDistanceM, 1) {
		t.Errorf("min distance: got %v, want +Inf", got.Metrics.MinDistanceM)
	}
	if !math.IsNaN(got.Metrics.FollowSSTGapErrS) {
		t.Errorf("follow error: got %v, want NaN", got.Metrics.FollowSSTGapErrS)
	}
	if got.Metrics.JerkSamples != 499 {
		t.Errorf("jerk samples: got %d, want 499", got.Metrics.JerkSamples)
	}
	if got.Params != meta.Params {
		t.Errorf("params: got %+v, want %+v", got.Params, meta.Params)
	}
}

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	runDir, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		t.Errorf("run directory not created: %s", runDir)
	}
	latest := filepath.Join(base, "latest")
	target, err := os.Readlink(latest)
	if err != nil {
		t.Fatalf("reading latest symlink: %v", err)
	}
	if target != runDir {
		t.Errorf("latest symlink: got %q, want %q", target, runDir)
	}
}

func TestEvalDir(t *testing.T) {
	base := t.TempDir()
	dir := result.EvalDir(base, result.LogName("/data/logs/follow_constant_lead.csv"))
	expected := filepath.Join(base, "evals", "follow_constant_lead")
	if dir != expected {
		t.Errorf("got %q, want %q", dir, expected)
	}
}

func TestMetaPaths(t *testing.T) {
	runDir := t.TempDir()
	for _, name := range []string{"b", "a"} {
		if err := result.WriteEvalMeta(result.EvalDir(runDir, name), &result.EvalMeta{Log: name}); err != nil {
			t.Fatalf("WriteEvalMeta: %v", err)
		}
	}
	paths, err := result.MetaPaths(runDir)
	if err != nil {
		t.Fatalf("MetaPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if filepath.Base(filepath.Dir(paths[0])) != "a" {
		t.Errorf("expected lexical order, got %v", paths)
	}
}
