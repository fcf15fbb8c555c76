package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalnine/acckpi/internal/result"
)

type runSummary struct {
	name   string
	evals  int
	passed int
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			runs, err := listRuns(filepath.Join(cfg.Results.Dir, "runs"))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintf(out, "No runs in %s\n", cfg.Results.Dir)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tLOGS\tPASSED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", r.name, r.evals, r.passed)
			}
			return tw.Flush()
		},
	}
}

func listRuns(runsDir string) ([]runSummary, error) {
	entries, err := os.ReadDir(runsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}
	var runs []runSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		paths, err := result.MetaPaths(filepath.Join(runsDir, e.Name()))
		if err != nil {
			continue
		}
		s := runSummary{name: e.Name()}
		for _, p := range paths {
			meta, err := result.ReadEvalMeta(p)
			if err != nil {
				continue
			}
			s.evals++
			if meta.Passed {
				s.passed++
			}
		}
		runs = append(runs, s)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].name > runs[j].name })
	return runs, nil
}
