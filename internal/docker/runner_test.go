package docker_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/moby/moby/api/types/mount"

	"github.com/signalnine/acckpi/internal/docker"
)

func requireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("ACCKPI_DOCKER_TESTS") == "" {
		t.Skip("set ACCKPI_DOCKER_TESTS=1 to run Docker tests")
	}
}

func TestMounts(t *testing.T) {
	mounts := docker.Mounts(&docker.RunOpts{ScenarioDir: "/src/scenarios", OutDir: "/tmp/out"})
	if len(mounts) != 2 {
		t.Fatalf("expected 2 mounts, got %d", len(mounts))
	}
	if mounts[0].Target != docker.ScenarioMount || !mounts[0].ReadOnly {
		t.Errorf("scenario mount: got %+v", mounts[0])
	}
	if mounts[1].Target != docker.OutMount || mounts[1].ReadOnly {
		t.Errorf("out mount: got %+v", mounts[1])
	}
	if mounts[1].Type != mount.TypeBind {
		t.Errorf("mount type: got %s, want bind", mounts[1].Type)
	}
}

func TestMountsOmitsEmpty(t *testing.T) {
	if got := docker.Mounts(&docker.RunOpts{OutDir: "/tmp/out"}); len(got) != 1 {
		t.Errorf("expected only the out mount, got %+v", got)
	}
}

func TestRunContainer(t *testing.T) {
	requireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	scenarioDir := t.TempDir()
	outDir := t.TempDir()
	os.WriteFile(filepath.Join(scenarioDir, "cruise.json"), []byte("{}"), 0o644)

	var logs bytes.Buffer
	result, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:       "alpine:latest",
		Command:     []string{"sh", "-c", "cat /scenario/cruise.json && printf 't_s,mode,a_cmd_mps2\\n0,1,0\\n' > /out/log.csv"},
		ScenarioDir: scenarioDir,
		OutDir:      outDir,
		Timeout:     30 * time.Second,
		Logs:        &logs,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code: got %d, want 0", result.ExitCode)
	}
	if result.TimedOut {
		t.Error("unexpected timeout")
	}
	content, err := os.ReadFile(filepath.Join(outDir, "log.csv"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.HasPrefix(string(content), "t_s,mode,a_cmd_mps2") {
		t.Errorf("output: got %q", content)
	}
	if !strings.Contains(logs.String(), "{}") {
		t.Errorf("expected container output in logs, got %q", logs.String())
	}
}

func TestRunContainerScenarioReadOnly(t *testing.T) {
	requireDocker(t)
	result, err := docker.RunContainer(context.Background(), &docker.RunOpts{
		Image:       "alpine:latest",
		Command:     []string{"sh", "-c", "touch /scenario/x"},
		ScenarioDir: t.TempDir(),
		OutDir:      t.TempDir(),
		Timeout:     30 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if result.ExitCode == 0 {
		t.Error("expected write to read-only scenario mount to fail")
	}
}

func TestRunContainerTimeout(t *testing.T) {
	requireDocker(t)
	result, err := docker.RunContainer(context.Background(), &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sleep", "300"},
		OutDir:  t.TempDir(),
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected timeout")
	}
	if result.ExitCode != docker.TimeoutExitCode {
		t.Errorf("exit code: got %d, want %d", result.ExitCode, docker.TimeoutExitCode)
	}
}

func TestRunContainerCrash(t *testing.T) {
	requireDocker(t)
	result, err := docker.RunContainer(context.Background(), &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sh", "-c", "exit 1"},
		OutDir:  t.TempDir(),
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if result.ExitCode != 1 {
		t.Errorf("exit code: got %d, want 1", result.ExitCode)
	}
}
