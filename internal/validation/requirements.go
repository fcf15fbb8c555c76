package validation

import (
	"fmt"
	"math"

	"github.com/signalnine/acckpi/internal/config"
	"github.com/signalnine/acckpi/internal/kpi"
)

type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

type Verdict struct {
	Metric string    `json:"metric"`
	Value  kpi.Float `json:"value"`
	Min    *float64  `json:"min,omitempty"`
	Max    *float64  `json:"max,omitempty"`
	Weight float64   `json:"weight"`
	Status Status    `json:"status"`
	Detail string    `json:"detail,omitempty"`
}

// Check evaluates each requirement against the metrics. A NaN metric means the
// scenario never exercised it, so the requirement is skipped.
func Check(m kpi.Metrics, reqs []config.Requirement) []Verdict {
	verdicts := make([]Verdict, 0, len(reqs))
	for _, r := range reqs {
		v := Verdict{Metric: r.Metric, Min: r.Min, Max: r.Max, Weight: r.Weight}
		value, ok := m.Lookup(r.Metric)
		switch {
		case !ok:
			v.Status = StatusError
			v.Detail = fmt.Sprintf("unknown metric %q", r.Metric)
		case math.IsNaN(value):
			v.Value = kpi.Float(value)
			v.Status = StatusSkipped
			v.Detail = "not applicable"
		default:
			v.Value = kpi.Float(value)
			v.Status = StatusPass
			if r.Max != nil && value > *r.Max {
				v.Status = StatusFail
				v.Detail = fmt.Sprintf("%g > max %g", value, *r.Max)
			}
			if r.Min != nil && value < *r.Min {
				v.Status = StatusFail
				v.Detail = fmt.Sprintf("%g < min %g", value, *r.Min)
			}
		}
		verdicts = append(verdicts, v)
	}
	return verdicts
}

// Passed reports whether no verdict failed or errored.
func Passed(verdicts []Verdict) bool {
	for _, v := range verdicts {
		if v.Status == StatusFail || v.Status == StatusError {
			return false
		}
	}
	return true
}
