package plot

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/signalnine/acckpi/internal/acc"
)

var ErrNoRecords = errors.New("no records to plot")

type Options struct {
	OutDir      string
	Prefix      string
	TTCWarn     float64
	TTCAEB      float64
	TTCMax      float64
	RelSpeedEps float64
}

func DefaultOptions() Options {
	return Options{
		OutDir:      "docs/plots",
		Prefix:      "run",
		TTCWarn:     3.0,
		TTCAEB:      1.5,
		TTCMax:      30,
		RelSpeedEps: 0.1,
	}
}

var (
	colorEgo    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorSet    = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	colorWarn   = color.RGBA{R: 214, G: 160, B: 0, A: 255}
	colorAEB    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	plotWidth   = 10 * vg.Inch
	plotHeight  = 4 * vg.Inch
	dashPattern = []vg.Length{vg.Points(6), vg.Points(3)}
)

// Render writes the standard set of PNG charts for a log and returns the
// paths written. The distance chart is skipped when no valid lead distance
// was ever logged.
func Render(records []acc.LogRecord, opts Options) ([]string, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	def := DefaultOptions()
	if opts.OutDir == "" {
		opts.OutDir = def.OutDir
	}
	if opts.Prefix == "" {
		opts.Prefix = def.Prefix
	}
	if opts.TTCWarn <= 0 {
		opts.TTCWarn = def.TTCWarn
	}
	if opts.TTCAEB <= 0 {
		opts.TTCAEB = def.TTCAEB
	}
	if opts.TTCMax <= 0 {
		opts.TTCMax = def.TTCMax
	}
	if opts.RelSpeedEps <= 0 {
		opts.RelSpeedEps = def.RelSpeedEps
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	n := len(records)
	t := make([]float64, n)
	ego := make([]float64, n)
	vset := make([]float64, n)
	dist := make([]float64, n)
	acmd := make([]float64, n)
	ttc := make([]float64, n)
	vrel := make([]float64, n)
	mode := make([]float64, n)
	hasDistance := false
	for i, r := range records {
		t[i] = r.T
		ego[i] = r.EgoSpeedMps
		vset[i] = r.VSetMps
		acmd[i] = r.ACmdMps2
		ttc[i] = r.TTCS
		vrel[i] = r.LeadRelSpeedMps
		mode[i] = float64(r.Mode)
		dist[i] = math.NaN()
		if r.HasLeadDistance() {
			dist[i] = r.LeadDistanceM
			hasDistance = true
		}
	}

	var written []string
	save := func(p *gplot.Plot, name string) error {
		path := filepath.Join(opts.OutDir, fmt.Sprintf("%s_%s.png", opts.Prefix, name))
		if err := p.Save(plotWidth, plotHeight, path); err != nil {
			return fmt.Errorf("failed to save %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	p := newPlot("Speed tracking", "speed [m/s]")
	if err := addSeries(p, "ego_speed_mps", t, ego, colorEgo); err != nil {
		return written, err
	}
	if err := addSeries(p, "v_set_mps", t, vset, colorSet); err != nil {
		return written, err
	}
	if err := save(p, "speed"); err != nil {
		return written, err
	}

	if hasDistance {
		p = newPlot("Lead distance (valid only)", "distance [m]")
		if err := addSeries(p, "lead_distance_m", t, dist, colorEgo); err != nil {
			return written, err
		}
		if err := save(p, "distance"); err != nil {
			return written, err
		}
	}

	p = newPlot("Acceleration command", "a_cmd [m/s^2]")
	if err := addSeries(p, "a_cmd_mps2", t, acmd, colorEgo); err != nil {
		return written, err
	}
	if err := save(p, "accel"); err != nil {
		return written, err
	}

	p = newPlot("Time to collision", "TTC [s]")
	if err := addSeries(p, "ttc_s", t, CleanTTC(ttc, vrel, opts.RelSpeedEps, opts.TTCMax), colorEgo); err != nil {
		return written, err
	}
	addThreshold(p, fmt.Sprintf("TTC warn (%.1fs)", opts.TTCWarn), opts.TTCWarn, colorWarn)
	addThreshold(p, fmt.Sprintf("TTC AEB (%.1fs)", opts.TTCAEB), opts.TTCAEB, colorAEB)
	p.X.Min = t[0]
	p.X.Max = t[n-1]
	p.Y.Min = 0
	p.Y.Max = opts.TTCMax
	if err := save(p, "ttc"); err != nil {
		return written, err
	}

	p = newPlot("ACC mode", "mode")
	line, err := plotter.NewLine(xys(t, mode))
	if err != nil {
		return written, err
	}
	line.StepStyle = plotter.PostStep
	line.Color = colorEgo
	line.Width = vg.Points(1)
	p.Add(line)
	p.Y.Min = -0.5
	p.Y.Max = float64(acc.ModeFault) + 0.5
	p.Y.Tick.Marker = modeTicks{}
	if err := save(p, "mode"); err != nil {
		return written, err
	}

	return written, nil
}

// CleanTTC blanks TTC samples that are non-finite, taken while the relative
// speed is within eps of zero, or larger than max. Blanked samples are NaN
// and render as gaps. A nil or short vrel disables the relative speed test.
func CleanTTC(ttc, vrel []float64, eps, max float64) []float64 {
	out := make([]float64, len(ttc))
	for i, v := range ttc {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			out[i] = math.NaN()
		case i < len(vrel) && !math.IsNaN(vrel[i]) && math.Abs(vrel[i]) < eps:
			out[i] = math.NaN()
		case v > max:
			out[i] = math.NaN()
		default:
			out[i] = v
		}
	}
	return out
}

func newPlot(title, ylabel string) *gplot.Plot {
	p := gplot.New()
	p.Title.Text = title
	p.X.Label.Text = "t [s]"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

// addSeries draws y against x, breaking the line wherever y is not finite.
func addSeries(p *gplot.Plot, label string, x, y []float64, c color.Color) error {
	segments := Segments(x, y)
	for i, seg := range segments {
		line, err := plotter.NewLine(seg)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		line.Color = c
		line.Width = vg.Points(1)
		p.Add(line)
		if i == 0 {
			p.Legend.Add(label, line)
		}
	}
	return nil
}

func addThreshold(p *gplot.Plot, label string, y float64, c color.Color) {
	fn := plotter.NewFunction(func(float64) float64 { return y })
	fn.Color = c
	fn.Width = vg.Points(1)
	fn.Dashes = dashPattern
	p.Add(fn)
	p.Legend.Add(label, fn)
}

// Segments splits the series into runs of consecutive finite points.
func Segments(x, y []float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i := range x {
		if i >= len(y) || !finite(x[i]) || !finite(y[i]) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: x[i], Y: y[i]})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	return pts
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type modeTicks struct{}

func (modeTicks) Ticks(min, max float64) []gplot.Tick {
	var ticks []gplot.Tick
	for m := acc.ModeOff; m <= acc.ModeFault; m++ {
		ticks = append(ticks, gplot.Tick{Value: float64(m), Label: m.String()})
	}
	return ticks
}
