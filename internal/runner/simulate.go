package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/signalnine/acckpi/internal/docker"
)

// SimLogName is the file the simulator writes inside the output mount.
const SimLogName = "log.csv"

type SimOpts struct {
	ScenarioPath string
	Image        string
	Binary       string
	NoAEB        bool
	OutDir       string
	Timeout      time.Duration
	CPULimit     float64
	MemoryLimit  int64
	Env          map[string]string
	Logs         io.Writer
}

type SimResult struct {
	LogPath    string
	ExitCode   int
	ExitReason string
	Duration   time.Duration
}

func ExitReasonFromCode(code int, timedOut bool) string {
	if timedOut {
		return "timeout"
	}
	if code == 0 {
		return "completed"
	}
	return "failed"
}

// BuildSimCommand returns the simulator invocation for a scenario file that
// is mounted under docker.ScenarioMount.
func BuildSimCommand(binary, scenarioFile string, noAEB bool) []string {
	cmd := []string{
		binary,
		"--scenario", path.Join(docker.ScenarioMount, scenarioFile),
		"--out", path.Join(docker.OutMount, SimLogName),
	}
	if noAEB {
		cmd = append(cmd, "--no-aeb")
	}
	return cmd
}

// RunSimulation runs the simulator container for one scenario and returns the
// host path of the log it produced.
func RunSimulation(ctx context.Context, opts *SimOpts) (*SimResult, error) {
	scenarioAbs, err := filepath.Abs(opts.ScenarioPath)
	if err != nil {
		return nil, fmt.Errorf("resolving scenario path: %w", err)
	}
	if _, err := os.Stat(scenarioAbs); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	outAbs, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output dir: %w", err)
	}
	if err := os.MkdirAll(outAbs, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	res, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:       opts.Image,
		Command:     BuildSimCommand(opts.Binary, filepath.Base(scenarioAbs), opts.NoAEB),
		ScenarioDir: filepath.Dir(scenarioAbs),
		OutDir:      outAbs,
		Env:         opts.Env,
		Timeout:     opts.Timeout,
		CPULimit:    opts.CPULimit,
		MemoryLimit: opts.MemoryLimit,
		UserID:      fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
		Logs:        opts.Logs,
	})
	if err != nil {
		return nil, fmt.Errorf("running simulator: %w", err)
	}

	sim := &SimResult{
		LogPath:    filepath.Join(outAbs, SimLogName),
		ExitCode:   res.ExitCode,
		ExitReason: ExitReasonFromCode(res.ExitCode, res.TimedOut),
		Duration:   res.Duration,
	}
	if sim.ExitReason != "completed" {
		return sim, fmt.Errorf("simulator %s (exit code %d)", sim.ExitReason, sim.ExitCode)
	}
	if _, err := os.Stat(sim.LogPath); err != nil {
		return sim, fmt.Errorf("simulator produced no log: %w", err)
	}
	return sim, nil
}
