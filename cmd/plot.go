package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/acckpi/internal/logreader"
	"github.com/signalnine/acckpi/internal/plot"
	"github.com/signalnine/acckpi/internal/result"
)

var (
	flagPlotOutDir  string
	flagPlotPrefix  string
	flagPlotTTCWarn float64
	flagPlotTTCAEB  float64
	flagPlotTTCMax  float64
)

func newPlotCmd() *cobra.Command {
	d := plot.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "plot <log.csv>",
		Short: "Render speed, distance, acceleration, TTC and mode charts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			records, err := logreader.ReadFile(args[0])
			if err != nil {
				return err
			}
			opts := plot.Options{
				OutDir:      cfg.Plot.OutDir,
				Prefix:      result.LogName(args[0]),
				TTCWarn:     cfg.Params.TTCWarn,
				TTCAEB:      cfg.Plot.TTCAEB,
				TTCMax:      cfg.Plot.TTCMax,
				RelSpeedEps: cfg.Plot.RelSpeedEps,
			}
			flags := cmd.Flags()
			if flags.Changed("out-dir") {
				opts.OutDir = flagPlotOutDir
			}
			if flags.Changed("prefix") {
				opts.Prefix = flagPlotPrefix
			}
			if flags.Changed("ttc-warn") {
				opts.TTCWarn = flagPlotTTCWarn
			}
			if flags.Changed("ttc-aeb") {
				opts.TTCAEB = flagPlotTTCAEB
			}
			if flags.Changed("ttc-max") {
				opts.TTCMax = flagPlotTTCMax
			}
			paths, err := plot.Render(records, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			fmt.Fprintf(out, "Wrote plots to: %s\n", opts.OutDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagPlotOutDir, "out-dir", d.OutDir, "output directory for PNGs")
	cmd.Flags().StringVar(&flagPlotPrefix, "prefix", "", "filename prefix (default: log file stem)")
	cmd.Flags().Float64Var(&flagPlotTTCWarn, "ttc-warn", d.TTCWarn, "TTC warning threshold line [s]")
	cmd.Flags().Float64Var(&flagPlotTTCAEB, "ttc-aeb", d.TTCAEB, "TTC AEB threshold line [s]")
	cmd.Flags().Float64Var(&flagPlotTTCMax, "ttc-max", d.TTCMax, "hide TTC above this value [s]")
	return cmd
}
