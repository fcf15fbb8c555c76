package cmd

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/acckpi/internal/result"
	"github.com/signalnine/acckpi/internal/runner"
)

func newRescoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rescore [run-dir]",
		Short: "Re-score an existing run",
		Long:  "Walk a run directory and re-evaluate each stored log with the current parameters and requirements, updating meta.json.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir, err := resolveRunDir(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			params, err := resolveParams(cmd, cfg.Params)
			if err != nil {
				return err
			}

			metaFiles, err := result.MetaPaths(runDir)
			if err != nil {
				return fmt.Errorf("walking run dir: %w", err)
			}
			if len(metaFiles) == 0 {
				return fmt.Errorf("no meta.json files found in %s", runDir)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			for _, metaPath := range metaFiles {
				evalDir := filepath.Dir(metaPath)
				prev, err := result.ReadEvalMeta(metaPath)
				if err != nil {
					log.Printf("skipping %s: %v", metaPath, err)
					continue
				}
				meta, err := runner.Rescore(ctx, evalDir, params, cfg.Requirements)
				if err != nil {
					log.Printf("skipping %s: %v", metaPath, err)
					continue
				}
				fmt.Fprintf(out, "%s: score %.3f -> %.3f  %s -> %s\n",
					meta.Log, prev.Score, meta.Score, passLabel(prev.Passed), passLabel(meta.Passed))
			}
			return nil
		},
	}
	addParamFlags(cmd)
	return cmd
}
