package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/signalnine/acckpi/internal/kpi"
)

// MetricPrefix is prepended to every exported Prometheus gauge.
const MetricPrefix = "acckpi_"

var Formats = []string{"text", "json", "prom"}

// Write renders a single evaluation in the given format.
func Write(w io.Writer, format string, m kpi.Metrics) error {
	return WriteLabeled(w, format, m, nil)
}

// WriteLabeled is Write with constant labels attached to prom output. Other
// formats ignore the labels.
func WriteLabeled(w io.Writer, format string, m kpi.Metrics, labels map[string]string) error {
	switch format {
	case "", "text":
		return writeText(w, m)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "prom":
		return writeProm(w, m, labels)
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

func writeText(w io.Writer, m kpi.Metrics) error {
	for _, nv := range m.Named() {
		var err error
		switch nv.Name {
		case kpi.NameJerkSamples:
			_, err = fmt.Fprintf(w, "%s: %d\n", nv.Name, m.JerkSamples)
		case kpi.NameACmdMin:
			_, err = fmt.Fprintf(w, "a_cmd_range_mps2: [%s, %s]\n",
				FormatValue(m.ACmdRangeMps2[0]), FormatValue(m.ACmdRangeMps2[1]))
		case kpi.NameACmdMax:
			continue
		default:
			_, err = fmt.Fprintf(w, "%s: %s\n", nv.Name, FormatValue(nv.Value))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// FormatValue prints v with three decimals, or inf/-inf/nan.
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.3f", v)
}

func writeProm(w io.Writer, m kpi.Metrics, labels map[string]string) error {
	for _, mf := range MetricFamilies(m, labels) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// MetricFamilies converts the metrics into one gauge family per KPI.
func MetricFamilies(m kpi.Metrics, labels map[string]string) []*dto.MetricFamily {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]*dto.LabelPair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, &dto.LabelPair{Name: proto.String(k), Value: proto.String(labels[k])})
	}

	named := m.Named()
	families := make([]*dto.MetricFamily, 0, len(named))
	for _, nv := range named {
		families = append(families, &dto.MetricFamily{
			Name: proto.String(MetricPrefix + nv.Name),
			Help: proto.String("ACC/AEB KPI " + nv.Name),
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{
				Label: pairs,
				Gauge: &dto.Gauge{Value: proto.Float64(nv.Value)},
			}},
		})
	}
	return families
}
