package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/signalnine/acckpi/internal/kpi"
	"github.com/signalnine/acckpi/internal/result"
)

// AggregateName labels the worst-case row across all evaluated logs.
const AggregateName = "ALL (worst)"

type LogSummary struct {
	Log                string    `json:"log"`
	Records            int       `json:"records"`
	MinDistanceM       kpi.Float `json:"min_distance_m"`
	MinTTCS            kpi.Float `json:"min_ttc_s"`
	AEBTimeS           kpi.Float `json:"aeb_time_s"`
	MaxJerkComfortMps3 kpi.Float `json:"max_jerk_comfort_mps3"`
	CruiseSSErrMps     kpi.Float `json:"cruise_ss_speed_err_mps"`
	FollowSSErrS       kpi.Float `json:"follow_ss_tgap_err_s"`
	Score              float64   `json:"score"`
	Passed             bool      `json:"passed"`
}

type Summary struct {
	Evaluations []LogSummary `json:"evaluations"`
	Aggregate   LogSummary   `json:"aggregate"`
}

// Generate reads stored evaluations from runDir and produces a summary report.
func Generate(runDir, format string, w io.Writer) error {
	metas, err := collectMetas(runDir)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		return fmt.Errorf("no evaluations found in %s", runDir)
	}

	s := Summarize(metas)

	switch format {
	case "markdown":
		return writeMarkdown(s, w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "", "table":
		return writeTable(s, w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func collectMetas(runDir string) ([]*result.EvalMeta, error) {
	paths, err := result.MetaPaths(runDir)
	if err != nil {
		return nil, err
	}
	var metas []*result.EvalMeta
	for _, p := range paths {
		meta, err := result.ReadEvalMeta(p)
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// Summarize builds one row per evaluation plus the worst-case aggregate.
func Summarize(metas []*result.EvalMeta) Summary {
	rows := make([]LogSummary, 0, len(metas))
	for _, m := range metas {
		rows = append(rows, LogSummary{
			Log:                m.Log,
			Records:            m.Metrics.Records,
			MinDistanceM:       kpi.Float(m.Metrics.MinDistanceM),
			MinTTCS:            kpi.Float(m.Metrics.MinTTCS),
			AEBTimeS:           kpi.Float(m.Metrics.AEBTimeS),
			MaxJerkComfortMps3: kpi.Float(m.Metrics.MaxJerkComfortMps3),
			CruiseSSErrMps:     kpi.Float(m.Metrics.CruiseSSSpeedErrMps),
			FollowSSErrS:       kpi.Float(m.Metrics.FollowSSTGapErrS),
			Score:              m.Score,
			Passed:             m.Passed,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Log < rows[j].Log
	})
	return Summary{Evaluations: rows, Aggregate: worst(rows)}
}

func worst(rows []LogSummary) LogSummary {
	agg := LogSummary{
		Log:          AggregateName,
		MinDistanceM: kpi.Float(math.Inf(1)),
		MinTTCS:      kpi.Float(math.Inf(1)),
		Passed:       true,
	}
	var cruise, follow []float64
	for _, r := range rows {
		agg.Records += r.Records
		agg.MinDistanceM = kpi.Float(math.Min(float64(agg.MinDistanceM), float64(r.MinDistanceM)))
		agg.MinTTCS = kpi.Float(math.Min(float64(agg.MinTTCS), float64(r.MinTTCS)))
		agg.AEBTimeS += r.AEBTimeS
		agg.MaxJerkComfortMps3 = kpi.Float(math.Max(float64(agg.MaxJerkComfortMps3), float64(r.MaxJerkComfortMps3)))
		if !math.IsNaN(float64(r.CruiseSSErrMps)) {
			cruise = append(cruise, float64(r.CruiseSSErrMps))
		}
		if !math.IsNaN(float64(r.FollowSSErrS)) {
			follow = append(follow, float64(r.FollowSSErrS))
		}
		agg.Score += r.Score
		agg.Passed = agg.Passed && r.Passed
	}
	if len(rows) > 0 {
		agg.Score /= float64(len(rows))
	}
	agg.CruiseSSErrMps = kpi.Float(meanOf(cruise))
	agg.FollowSSErrS = kpi.Float(meanOf(follow))
	return agg
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

func passLabel(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func row(s LogSummary) []string {
	return []string{
		s.Log,
		fmt.Sprintf("%d", s.Records),
		FormatValue(float64(s.MinDistanceM)),
		FormatValue(float64(s.MinTTCS)),
		FormatValue(float64(s.AEBTimeS)),
		FormatValue(float64(s.MaxJerkComfortMps3)),
		FormatValue(float64(s.CruiseSSErrMps)),
		FormatValue(float64(s.FollowSSErrS)),
		fmt.Sprintf("%.3f", s.Score),
		passLabel(s.Passed),
	}
}

var headers = []string{"LOG", "RECORDS", "MIN DIST", "MIN TTC", "AEB TIME", "MAX JERK", "CRUISE ERR", "FOLLOW ERR", "SCORE", "RESULT"}

func writeTable(s Summary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	fmt.Fprintln(tw, strings.Repeat("-", 100))
	for _, r := range s.Evaluations {
		fmt.Fprintln(tw, strings.Join(row(r), "\t"))
	}
	fmt.Fprintln(tw, strings.Repeat("-", 100))
	fmt.Fprintln(tw, strings.Join(row(s.Aggregate), "\t"))
	return tw.Flush()
}

func writeMarkdown(s Summary, w io.Writer) error {
	fmt.Fprintln(w, "| "+strings.Join(headers, " | ")+" |")
	fmt.Fprintln(w, "|"+strings.Repeat("---|", len(headers)))
	for _, r := range s.Evaluations {
		fmt.Fprintln(w, "| "+strings.Join(row(r), " | ")+" |")
	}
	agg := row(s.Aggregate)
	agg[0] = "**" + agg[0] + "**"
	fmt.Fprintln(w, "| "+strings.Join(agg, " | ")+" |")
	return nil
}
