package kpi

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/signalnine/acckpi/internal/acc"
)

var ErrEmptyInput = errors.New("no log records to evaluate")

// Evaluate computes the metrics of a complete run. The final timestamp is
// known up front, so everything is gathered in one forward pass.
func Evaluate(records []acc.LogRecord, p Params) (Metrics, error) {
	if err := p.Validate(); err != nil {
		return Metrics{}, err
	}
	if len(records) == 0 {
		return Metrics{}, ErrEmptyInput
	}
	tEnd := records[len(records)-1].T
	cruiseFrom := tEnd - p.CruiseWindow
	followFrom := tEnd - p.FollowWindow

	a := newAccumulator(p)
	var cruiseErrs, followErrs []float64
	for i := range records {
		r := &records[i]
		a.add(r)
		if e, ok := cruiseSpeedError(r); ok && r.T >= cruiseFrom {
			cruiseErrs = append(cruiseErrs, e)
		}
		if e, ok := followGapError(r, p); ok && r.T >= followFrom {
			followErrs = append(followErrs, e)
		}
	}
	return a.finish(cruiseErrs, followErrs), nil
}

// accumulator owns the running extrema and jerk state of one run.
type accumulator struct {
	p        Params
	n        int
	tStart   float64
	tEnd     float64
	prevMode acc.Mode
	prevA    float64
	aebTicks int
	m        Metrics
}

func newAccumulator(p Params) *accumulator {
	return &accumulator{
		p: p,
		m: Metrics{
			MinDistanceM: math.Inf(1),
			MinTTCS:      math.Inf(1),
		},
	}
}

func (a *accumulator) add(r *acc.LogRecord) {
	if a.n == 0 {
		a.tStart = r.T
		a.m.ACmdRangeMps2 = [2]float64{r.ACmdMps2, r.ACmdMps2}
	}
	a.tEnd = r.T

	if r.HasLeadDistance() && r.LeadDistanceM < a.m.MinDistanceM {
		a.m.MinDistanceM = r.LeadDistanceM
	}
	if finite(r.TTCS) && r.TTCS < a.m.MinTTCS {
		a.m.MinTTCS = r.TTCS
	}
	if r.Mode == acc.ModeAEB {
		a.aebTicks++
	}
	a.m.ACmdRangeMps2[0] = math.Min(a.m.ACmdRangeMps2[0], r.ACmdMps2)
	a.m.ACmdRangeMps2[1] = math.Max(a.m.ACmdRangeMps2[1], r.ACmdMps2)

	if a.n > 0 {
		a.addJerk(r)
	}
	a.prevMode = r.Mode
	a.prevA = r.ACmdMps2
	a.n++
}

// addJerk classifies the step from the previous record. Steps touching AEB on
// either side are excluded; only AEB is special-cased, FAULT steps count.
func (a *accumulator) addJerk(r *acc.LogRecord) {
	if r.Mode == acc.ModeAEB || a.prevMode == acc.ModeAEB {
		a.m.JerkExcluded++
		return
	}
	jerk := math.Abs(r.ACmdMps2-a.prevA) / a.p.Ts
	a.m.JerkSamples++
	a.m.MaxJerkTotalMps3 = math.Max(a.m.MaxJerkTotalMps3, jerk)
	if finite(r.TTCS) && r.TTCS < a.p.TTCWarn {
		a.m.MaxJerkEmergencyMps3 = math.Max(a.m.MaxJerkEmergencyMps3, jerk)
	} else {
		a.m.MaxJerkComfortMps3 = math.Max(a.m.MaxJerkComfortMps3, jerk)
	}
}

func (a *accumulator) finish(cruiseErrs, followErrs []float64) Metrics {
	m := a.m
	m.Records = a.n
	m.DurationS = a.tEnd - a.tStart
	m.AEBTimeS = float64(a.aebTicks) * a.p.Ts
	m.CruiseSamples = len(cruiseErrs)
	m.FollowSamples = len(followErrs)
	m.CruiseSSSpeedErrMps = mean(cruiseErrs)
	m.FollowSSTGapErrS = mean(followErrs)
	return m
}

// cruiseSpeedError is the absolute set-speed error of a CRUISE record with a
// set speed. The window test is left to the caller.
func cruiseSpeedError(r *acc.LogRecord) (float64, bool) {
	if r.Mode != acc.ModeCruise || !finite(r.VSetMps) {
		return 0, false
	}
	return math.Abs(r.VSetMps - r.EgoSpeedMps), true
}

// followGapError is the absolute time-gap error of a FOLLOW record with a
// usable lead distance and enough speed for the gap to be meaningful.
func followGapError(r *acc.LogRecord, p Params) (float64, bool) {
	if r.Mode != acc.ModeFollow || !r.HasLeadDistance() || !(r.EgoSpeedMps > p.FollowMinSpeed) {
		return 0, false
	}
	gap := (r.LeadDistanceM - p.D0) / r.EgoSpeedMps
	return math.Abs(gap - p.TGap), true
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
