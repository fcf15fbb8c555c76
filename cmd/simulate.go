package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalnine/acckpi/internal/report"
	"github.com/signalnine/acckpi/internal/result"
	"github.com/signalnine/acckpi/internal/runner"
)

var (
	flagScenario string
	flagImage    string
	flagBinary   string
	flagNoAEB    bool
	flagTimeout  time.Duration
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the simulator container on a scenario and evaluate its log",
		RunE:  runSimulate,
	}
	cmd.Flags().StringVar(&flagScenario, "scenario", "", "scenario file passed to the simulator")
	cmd.Flags().StringVar(&flagImage, "image", "", "simulator image (default from config)")
	cmd.Flags().StringVar(&flagBinary, "binary", "", "simulator binary inside the image (default from config)")
	cmd.Flags().BoolVar(&flagNoAEB, "no-aeb", false, "disable AEB in the simulated function")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "container timeout (default from config)")
	cmd.Flags().StringVar(&flagHistory, "history", "", "record the evaluation in this SQLite database")
	cmd.MarkFlagRequired("scenario")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc := cfg.Simulator
	if flagImage != "" {
		sc.Image = flagImage
	}
	if flagBinary != "" {
		sc.Binary = flagBinary
	}
	timeout := time.Duration(sc.TimeoutMinutes) * time.Minute
	if flagTimeout > 0 {
		timeout = flagTimeout
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run directory: %s\n", runDir)

	ctx := cmd.Context()
	name := result.LogName(flagScenario)
	if flagNoAEB {
		name += "-no-aeb"
	}
	fmt.Fprintf(out, "Simulating %s (image %s)...\n", flagScenario, sc.Image)
	sim, err := runner.RunSimulation(ctx, &runner.SimOpts{
		ScenarioPath: flagScenario,
		Image:        sc.Image,
		Binary:       sc.Binary,
		NoAEB:        flagNoAEB,
		OutDir:       filepath.Join(runDir, "sim", name),
		Timeout:      timeout,
		CPULimit:     sc.CPULimit,
		MemoryLimit:  sc.MemoryLimitMB * 1024 * 1024,
		Env:          sc.Env,
		Logs:         os.Stderr,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s (duration: %ds)\n", sim.ExitReason, int(sim.Duration.Seconds()))

	store, err := openHistory(flagHistory, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	meta, err := runner.RunEvaluation(ctx, &runner.EvalOpts{
		LogPath:      sim.LogPath,
		Name:         name,
		Params:       cfg.Params,
		Requirements: cfg.Requirements,
		RunDir:       runDir,
		History:      store,
	})
	if err != nil {
		return err
	}
	if err := report.Write(out, "text", meta.Metrics); err != nil {
		return err
	}
	writeVerdicts(out, meta)
	return nil
}
