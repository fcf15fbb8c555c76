package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalnine/acckpi/internal/report"
	"github.com/signalnine/acckpi/internal/result"
	"github.com/signalnine/acckpi/internal/runner"
	"github.com/signalnine/acckpi/internal/validation"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <log.csv>...",
		Short: "Check logs against the configured requirements",
		Long:  "Evaluate each log and compare its KPIs with the requirements from the config file. Exits non-zero when any requirement fails.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			params, err := resolveParams(cmd, cfg.Params)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			failed := 0
			for _, logPath := range args {
				meta, err := runner.RunEvaluation(ctx, &runner.EvalOpts{
					LogPath:      logPath,
					Params:       params,
					Requirements: cfg.Requirements,
				})
				if err != nil {
					return err
				}
				writeVerdicts(cmd.OutOrStdout(), meta)
				if !meta.Passed {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d logs failed requirements", failed, len(args))
			}
			return nil
		},
	}
	addParamFlags(cmd)
	return cmd
}

func writeVerdicts(w io.Writer, meta *result.EvalMeta) {
	fmt.Fprintf(w, "%s: %s (score %.3f)\n", meta.Log, passLabel(meta.Passed), meta.Score)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  METRIC\tVALUE\tBOUND\tSTATUS")
	for _, v := range meta.Verdicts {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", v.Metric, formatVerdictValue(v), bounds(v), strings.ToUpper(string(v.Status)))
	}
	tw.Flush()
}

func formatVerdictValue(v validation.Verdict) string {
	if v.Status == validation.StatusError {
		return "-"
	}
	return report.FormatValue(float64(v.Value))
}

func bounds(v validation.Verdict) string {
	var parts []string
	if v.Min != nil {
		parts = append(parts, fmt.Sprintf(">= %g", *v.Min))
	}
	if v.Max != nil {
		parts = append(parts, fmt.Sprintf("<= %g", *v.Max))
	}
	return strings.Join(parts, ", ")
}

func passLabel(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
