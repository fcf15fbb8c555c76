package kpi

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Metrics is the fixed set of scalar KPIs produced by one evaluation run.
type Metrics struct {
	MinDistanceM         float64
	MinTTCS              float64
	AEBTimeS             float64
	ACmdRangeMps2        [2]float64
	JerkSamples          int
	JerkExcluded         int
	MaxJerkTotalMps3     float64
	MaxJerkComfortMps3   float64
	MaxJerkEmergencyMps3 float64
	CruiseSSSpeedErrMps  float64
	FollowSSTGapErrS     float64
	CruiseSamples        int
	FollowSamples        int
	Records              int
	DurationS            float64
}

// Metric names. Units are part of each name.
const (
	NameMinDistance      = "min_distance_m"
	NameMinTTC           = "min_ttc_s"
	NameAEBTime          = "aeb_time_s"
	NameACmdMin          = "a_cmd_min_mps2"
	NameACmdMax          = "a_cmd_max_mps2"
	NameJerkSamples      = "jerk_samples"
	NameMaxJerkTotal     = "max_jerk_total_mps3"
	NameMaxJerkComfort   = "max_jerk_comfort_mps3"
	NameMaxJerkEmergency = "max_jerk_emergency_mps3"
	NameCruiseSSErr      = "cruise_ss_speed_err_mps"
	NameFollowSSErr      = "follow_ss_tgap_err_s"
)

type NamedValue struct {
	Name  string
	Value float64
}

// Named returns the reported metrics in their canonical order.
func (m Metrics) Named() []NamedValue {
	return []NamedValue{
		{NameMinDistance, m.MinDistanceM},
		{NameMinTTC, m.MinTTCS},
		{NameAEBTime, m.AEBTimeS},
		{NameACmdMin, m.ACmdRangeMps2[0]},
		{NameACmdMax, m.ACmdRangeMps2[1]},
		{NameJerkSamples, float64(m.JerkSamples)},
		{NameMaxJerkTotal, m.MaxJerkTotalMps3},
		{NameMaxJerkComfort, m.MaxJerkComfortMps3},
		{NameMaxJerkEmergency, m.MaxJerkEmergencyMps3},
		{NameCruiseSSErr, m.CruiseSSSpeedErrMps},
		{NameFollowSSErr, m.FollowSSTGapErrS},
	}
}

// Lookup returns the value of a named metric.
func (m Metrics) Lookup(name string) (float64, bool) {
	for _, nv := range m.Named() {
		if nv.Name == name {
			return nv.Value, true
		}
	}
	return 0, false
}

// Float is a float64 whose JSON form carries NaN and infinities as strings.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parsing float %q: %w", s, err)
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

type metricsJSON struct {
	MinDistanceM         Float    `json:"min_distance_m"`
	MinTTCS              Float    `json:"min_ttc_s"`
	AEBTimeS             Float    `json:"aeb_time_s"`
	ACmdRangeMps2        [2]Float `json:"a_cmd_range_mps2"`
	JerkSamples          int      `json:"jerk_samples"`
	JerkExcluded         int      `json:"jerk_excluded"`
	MaxJerkTotalMps3     Float    `json:"max_jerk_total_mps3"`
	MaxJerkComfortMps3   Float    `json:"max_jerk_comfort_mps3"`
	MaxJerkEmergencyMps3 Float    `json:"max_jerk_emergency_mps3"`
	CruiseSSSpeedErrMps  Float    `json:"cruise_ss_speed_err_mps"`
	FollowSSTGapErrS     Float    `json:"follow_ss_tgap_err_s"`
	CruiseSamples        int      `json:"cruise_samples"`
	FollowSamples        int      `json:"follow_samples"`
	Records              int      `json:"records"`
	DurationS            Float    `json:"duration_s"`
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricsJSON{
		MinDistanceM:         Float(m.MinDistanceM),
		MinTTCS:              Float(m.MinTTCS),
		AEBTimeS:             Float(m.AEBTimeS),
		ACmdRangeMps2:        [2]Float{Float(m.ACmdRangeMps2[0]), Float(m.ACmdRangeMps2[1])},
		JerkSamples:          m.JerkSamples,
		JerkExcluded:         m.JerkExcluded,
		MaxJerkTotalMps3:     Float(m.MaxJerkTotalMps3),
		MaxJerkComfortMps3:   Float(m.MaxJerkComfortMps3),
		MaxJerkEmergencyMps3: Float(m.MaxJerkEmergencyMps3),
		CruiseSSSpeedErrMps:  Float(m.CruiseSSSpeedErrMps),
		FollowSSTGapErrS:     Float(m.FollowSSTGapErrS),
		CruiseSamples:        m.CruiseSamples,
		FollowSamples:        m.FollowSamples,
		Records:              m.Records,
		DurationS:            Float(m.DurationS),
	})
}

func (m *Metrics) UnmarshalJSON(data []byte) error {
	var j metricsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*m = Metrics{
		MinDistanceM:         float64(j.MinDistanceM),
		MinTTCS:              float64(j.MinTTCS),
		AEBTimeS:             float64(j.AEBTimeS),
		ACmdRangeMps2:        [2]float64{float64(j.ACmdRangeMps2[0]), float64(j.ACmdRangeMps2[1])},
		JerkSamples:          j.JerkSamples,
		JerkExcluded:         j.JerkExcluded,
		MaxJerkTotalMps3:     float64(j.MaxJerkTotalMps3),
		MaxJerkComfortMps3:   float64(j.MaxJerkComfortMps3),
		MaxJerkEmergencyMps3: float64(j.MaxJerkEmergencyMps3),
		CruiseSSSpeedErrMps:  float64(j.CruiseSSSpeedErrMps),
		FollowSSTGapErrS:     float64(j.FollowSSTGapErrS),
		CruiseSamples:        j.CruiseSamples,
		FollowSamples:        j.FollowSamples,
		Records:              j.Records,
		DurationS:            float64(j.DurationS),
	}
	return nil
}
