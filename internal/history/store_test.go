package history_test

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/acckpi/internal/history"
	"github.com/signalnine/acckpi/internal/kpi"
	"github.com/signalnine/acckpi/internal/result"
	"github.com/signalnine/acckpi/internal/validation"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleMeta(log string, at time.Time, score float64) *result.EvalMeta {
	return &result.EvalMeta{
		Log:         log,
		Source:      "/logs/" + log + ".csv",
		EvaluatedAt: at,
		Params:      kpi.DefaultParams(),
		Metrics: kpi.Metrics{
			MinDistanceM:        12.5,
			MinTTCS:             math.Inf(1),
			CruiseSSSpeedErrMps: 0.2,
			FollowSSTGapErrS:    math.NaN(),
			Records:             1000,
		},
		Verdicts: []validation.Verdict{{Metric: kpi.NameCruiseSSErr, Value: 0.2, Status: validation.StatusPass}},
		Score:    score,
		Passed:   score == 1,
	}
}

func TestInsertAndGet(t *testing.T) {
	s := openStore(t)
	meta := sampleMeta("cruise_step", time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), 1)
	require.NoError(t, s.Insert(meta))
	require.NotEmpty(t, meta.ID)

	got, err := s.Get(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "cruise_step", got.Log)
	assert.Equal(t, meta.Source, got.Source)
	assert.True(t, got.Passed)
	assert.True(t, got.EvaluatedAt.Equal(meta.EvaluatedAt))
	assert.Equal(t, meta.Params, got.Params)
	assert.Equal(t, 12.5, got.Metrics.MinDistanceM)
	assert.True(t, math.IsInf(got.Metrics.MinTTCS, 1))
	assert.True(t, math.IsNaN(got.Metrics.FollowSSTGapErrS))
	assert.Equal(t, 1000, got.Metrics.Records)
	require.Len(t, got.Verdicts, 1)
	assert.Equal(t, validation.StatusPass, got.Verdicts[0].Status)
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get("does-not-exist")
	assert.True(t, errors.Is(err, history.ErrNotFound))
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, log := range []string{"a", "b", "c"} {
		require.NoError(t, s.Insert(sampleMeta(log, base.Add(time.Duration(i)*time.Minute), 0.5)))
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].Log, all[1].Log, all[2].Log})

	two, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
	assert.False(t, two[0].Passed)
}
