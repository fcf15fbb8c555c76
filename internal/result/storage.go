package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const MetaFile = "meta.json"

// LogFile is the copy of the evaluated log kept next to meta.json so that a
// run can be re-scored later.
const LogFile = "log.csv"

func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05.000")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// LogName derives the per-log directory name from the log path.
func LogName(logPath string) string {
	base := filepath.Base(logPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func EvalDir(runDir, logName string) string {
	return filepath.Join(runDir, "evals", logName)
}

func NewID() string {
	return uuid.New().String()
}

func WriteEvalMeta(evalDir string, meta *EvalMeta) error {
	if err := os.MkdirAll(evalDir, 0o755); err != nil {
		return fmt.Errorf("creating eval dir: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	return os.WriteFile(filepath.Join(evalDir, MetaFile), data, 0o644)
}

func ReadEvalMeta(path string) (*EvalMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	var meta EvalMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing meta: %w", err)
	}
	return &meta, nil
}

// MetaPaths lists every meta.json below runDir in lexical order.
func MetaPaths(runDir string) ([]string, error) {
	var paths []string
	err := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.Name() == MetaFile {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
