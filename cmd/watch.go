package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/signalnine/acckpi/internal/acc"
	"github.com/signalnine/acckpi/internal/kpi"
	"github.com/signalnine/acckpi/internal/logreader"
	"github.com/signalnine/acckpi/internal/report"
	"github.com/signalnine/acckpi/internal/validation"
	"github.com/signalnine/acckpi/internal/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <log.csv>",
		Short: "Re-evaluate a log whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			params, err := resolveParams(cmd, cfg.Params)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			show := func(records []acc.LogRecord) {
				m, err := kpi.Evaluate(records, params)
				if err != nil {
					slog.Warn("watch: evaluation failed", "path", args[0], "err", err)
					return
				}
				verdicts := validation.Check(m, cfg.Requirements)
				fmt.Fprintf(out, "--- %s: %d records, %.2fs ---\n", args[0], m.Records, m.DurationS)
				report.Write(out, "text", m)
				fmt.Fprintf(out, "requirements: %s (score %.3f)\n", passLabel(validation.Passed(verdicts)), validation.Score(verdicts))
			}

			if records, err := logreader.ReadFile(args[0]); err == nil {
				show(records)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watch.Watch(ctx, args[0], show)
		},
	}
	addParamFlags(cmd)
	return cmd
}
