package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/signalnine/acckpi/internal/config"
	"github.com/signalnine/acckpi/internal/history"
	"github.com/signalnine/acckpi/internal/kpi"
	"github.com/signalnine/acckpi/internal/report"
	"github.com/signalnine/acckpi/internal/result"
	"github.com/signalnine/acckpi/internal/runner"
)

var (
	flagTs             float64
	flagTTCWarn        float64
	flagTGap           float64
	flagD0             float64
	flagCruiseWindow   float64
	flagFollowWindow   float64
	flagFollowMinSpeed float64
	flagEvalFormat     string
	flagOutDir         string
	flagHistory        string
	flagParallel       int
	flagLegacyArgs     bool
	flagStream         bool
)

func newEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <log.csv>...",
		Short: "Compute KPIs for one or more logs",
		Long: "Evaluate a single log and print its KPIs, or evaluate several logs into a stored run and print a summary table.\n\n" +
			"With --legacy-args the positional form `evaluate log.csv [Ts [ttc_warn [T_gap [d0]]]]` is accepted.",
		Args: cobra.MinimumNArgs(1),
		RunE: runEvaluate,
	}
	addParamFlags(cmd)
	cmd.Flags().StringVar(&flagEvalFormat, "format", "text", "output format for a single log without --out-dir (text, json, prom)")
	cmd.Flags().StringVar(&flagOutDir, "out-dir", "", "store results under this directory (default: results dir from config when evaluating several logs)")
	cmd.Flags().StringVar(&flagHistory, "history", "", "record evaluations in this SQLite database")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "max concurrent evaluations")
	cmd.Flags().BoolVar(&flagLegacyArgs, "legacy-args", false, "read Ts, ttc_warn, T_gap and d0 from positional arguments after the log")
	cmd.Flags().BoolVar(&flagStream, "stream", false, "evaluate incrementally with bounded memory")
	return cmd
}

func addParamFlags(cmd *cobra.Command) {
	d := kpi.DefaultParams()
	cmd.Flags().Float64Var(&flagTs, "ts", d.Ts, "sample period [s]")
	cmd.Flags().Float64Var(&flagTTCWarn, "ttc-warn", d.TTCWarn, "TTC threshold separating emergency from comfort jerk [s]")
	cmd.Flags().Float64Var(&flagTGap, "t-gap", d.TGap, "desired time gap in FOLLOW [s]")
	cmd.Flags().Float64Var(&flagD0, "d0", d.D0, "standstill distance [m]")
	cmd.Flags().Float64Var(&flagCruiseWindow, "cruise-window", d.CruiseWindow, "cruise steady-state window [s]")
	cmd.Flags().Float64Var(&flagFollowWindow, "follow-window", d.FollowWindow, "follow steady-state window [s]")
	cmd.Flags().Float64Var(&flagFollowMinSpeed, "follow-min-speed", d.FollowMinSpeed, "minimum ego speed for gap samples [m/s]")
}

// resolveParams layers explicitly set flags over the configured parameters.
func resolveParams(cmd *cobra.Command, p kpi.Params) (kpi.Params, error) {
	set := func(name string, dst *float64, v float64) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("ts", &p.Ts, flagTs)
	set("ttc-warn", &p.TTCWarn, flagTTCWarn)
	set("t-gap", &p.TGap, flagTGap)
	set("d0", &p.D0, flagD0)
	set("cruise-window", &p.CruiseWindow, flagCruiseWindow)
	set("follow-window", &p.FollowWindow, flagFollowWindow)
	set("follow-min-speed", &p.FollowMinSpeed, flagFollowMinSpeed)
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// parseLegacyArgs splits `log.csv [Ts [ttc_warn [T_gap [d0]]]]` into the log
// path and the overridden parameters.
func parseLegacyArgs(args []string, p kpi.Params) (string, kpi.Params, error) {
	if len(args) == 0 {
		return "", p, fmt.Errorf("missing log path")
	}
	if len(args) > 5 {
		return "", p, fmt.Errorf("too many arguments: want log.csv [Ts [ttc_warn [T_gap [d0]]]]")
	}
	targets := []*float64{&p.Ts, &p.TTCWarn, &p.TGap, &p.D0}
	names := []string{"Ts", "ttc_warn", "T_gap", "d0"}
	for i, arg := range args[1:] {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return "", p, fmt.Errorf("%s: %w", names[i], err)
		}
		*targets[i] = v
	}
	return args[0], p, nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	params := cfg.Params
	logs := args
	if flagLegacyArgs {
		var logPath string
		logPath, params, err = parseLegacyArgs(args, params)
		if err != nil {
			return err
		}
		logs = []string{logPath}
	}
	params, err = resolveParams(cmd, params)
	if err != nil {
		return err
	}

	store, err := openHistory(flagHistory, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(logs) == 1 && flagOutDir == "" {
		meta, err := runner.RunEvaluation(ctx, &runner.EvalOpts{
			LogPath:      logs[0],
			Stream:       flagStream,
			Params:       params,
			Requirements: cfg.Requirements,
			History:      store,
		})
		if err != nil {
			return err
		}
		return report.WriteLabeled(out, flagEvalFormat, meta.Metrics, map[string]string{"log": meta.Log})
	}

	if cmd.Flags().Changed("format") {
		return fmt.Errorf("--format applies to a single log without --out-dir; use 'acckpi report --format' for stored runs")
	}

	baseDir := flagOutDir
	if baseDir == "" {
		baseDir = cfg.Results.Dir
	}
	runDir, err := result.CreateRunDir(baseDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Run directory: %s\n", runDir)

	errs := runner.RunPool(ctx, flagParallel, evaluationJobs(logs, runDir, params, cfg, store))
	for _, err := range errs {
		log.Printf("ERROR: %v", err)
	}

	fmt.Fprintln(out, "\n--- Results ---")
	if err := report.Generate(runDir, "table", out); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d logs failed to evaluate", len(errs), len(logs))
	}
	return nil
}

func evaluationJobs(logs []string, runDir string, params kpi.Params, cfg *config.Config, store *history.Store) []runner.Job {
	jobs := make([]runner.Job, 0, len(logs))
	names := uniqueNames(logs)
	for i, logPath := range logs {
		name := names[i]
		jobs = append(jobs, func(ctx context.Context) error {
			_, err := runner.RunEvaluation(ctx, &runner.EvalOpts{
				LogPath:      logPath,
				Name:         name,
				Stream:       flagStream,
				Params:       params,
				Requirements: cfg.Requirements,
				RunDir:       runDir,
				History:      store,
			})
			return err
		})
	}
	return jobs
}

// uniqueNames derives per-log directory names, suffixing repeated stems
// so logs from different directories do not overwrite each other.
func uniqueNames(logs []string) []string {
	seen := map[string]int{}
	names := make([]string, len(logs))
	for i, p := range logs {
		name := result.LogName(p)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		names[i] = name
	}
	return names
}
