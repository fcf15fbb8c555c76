package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalnine/acckpi/internal/report"
)

var flagLimit int

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List recorded evaluations, or show one in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openHistory(flagHistory, cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("no history database: pass --db or set history.path in %s", cfgFile)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				meta, err := store.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "id: %s\nlog: %s\nsource: %s\nevaluated_at: %s\n",
					meta.ID, meta.Log, meta.Source, meta.EvaluatedAt.Format(time.RFC3339))
				if err := report.Write(out, "text", meta.Metrics); err != nil {
					return err
				}
				writeVerdicts(out, meta)
				return nil
			}

			metas, err := store.List(flagLimit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEVALUATED\tLOG\tSCORE\tRESULT")
			for _, m := range metas {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%s\n",
					m.ID, m.EvaluatedAt.Format(time.RFC3339), m.Log, m.Score, passLabel(m.Passed))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of evaluations to list (0 for all)")
	cmd.Flags().StringVar(&flagHistory, "db", "", "SQLite database (default from config)")
	return cmd
}
