package runner

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/signalnine/acckpi/internal/acc"
	"github.com/signalnine/acckpi/internal/config"
	"github.com/signalnine/acckpi/internal/history"
	"github.com/signalnine/acckpi/internal/kpi"
	"github.com/signalnine/acckpi/internal/logreader"
	"github.com/signalnine/acckpi/internal/result"
	"github.com/signalnine/acckpi/internal/validation"
)

type EvalOpts struct {
	LogPath string
	// Name labels the evaluation. Defaults to the log file stem.
	Name         string
	Stream       bool
	Params       kpi.Params
	Requirements []config.Requirement
	// RunDir, when set, receives meta.json and a copy of the log under
	// result.EvalDir.
	RunDir string
	// History, when set, records the evaluation.
	History *history.Store
}

// RunEvaluation reads one log, computes its KPIs and checks them against the
// requirements.
func RunEvaluation(ctx context.Context, opts *EvalOpts) (*result.EvalMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(opts.LogPath)
	if err != nil {
		return nil, fmt.Errorf("opening log %s: %w", opts.LogPath, err)
	}
	records, err := logreader.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading log %s: %w", opts.LogPath, err)
	}
	metrics, err := evaluate(records, opts.Params, opts.Stream)
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", opts.LogPath, err)
	}

	name := opts.Name
	if name == "" {
		name = result.LogName(opts.LogPath)
	}
	source, err := filepath.Abs(opts.LogPath)
	if err != nil {
		source = opts.LogPath
	}
	verdicts := validation.Check(metrics, opts.Requirements)
	meta := &result.EvalMeta{
		ID:          result.NewID(),
		Log:         name,
		Source:      source,
		EvaluatedAt: time.Now().UTC(),
		Params:      opts.Params,
		Metrics:     metrics,
		Verdicts:    verdicts,
		Score:       validation.Score(verdicts),
		Passed:      validation.Passed(verdicts),
	}

	if opts.RunDir != "" {
		evalDir := result.EvalDir(opts.RunDir, meta.Log)
		if err := result.WriteEvalMeta(evalDir, meta); err != nil {
			return nil, fmt.Errorf("writing meta: %w", err)
		}
		if err := os.WriteFile(filepath.Join(evalDir, result.LogFile), data, 0o644); err != nil {
			return nil, fmt.Errorf("copying log: %w", err)
		}
	}

	if opts.History != nil {
		if err := opts.History.Insert(meta); err != nil {
			log.Printf("warning: recording %s in history: %v", meta.Log, err)
		}
	}
	return meta, nil
}

// Rescore re-evaluates the log stored next to meta.json in evalDir with new
// parameters and requirements, and rewrites meta.json. The evaluation keeps
// its ID.
func Rescore(ctx context.Context, evalDir string, params kpi.Params, reqs []config.Requirement) (*result.EvalMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prev, err := result.ReadEvalMeta(filepath.Join(evalDir, result.MetaFile))
	if err != nil {
		return nil, err
	}
	records, err := logreader.ReadFile(filepath.Join(evalDir, result.LogFile))
	if err != nil {
		return nil, err
	}
	metrics, err := kpi.Evaluate(records, params)
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", prev.Log, err)
	}
	verdicts := validation.Check(metrics, reqs)
	meta := *prev
	meta.EvaluatedAt = time.Now().UTC()
	meta.Params = params
	meta.Metrics = metrics
	meta.Verdicts = verdicts
	meta.Score = validation.Score(verdicts)
	meta.Passed = validation.Passed(verdicts)
	if err := result.WriteEvalMeta(evalDir, &meta); err != nil {
		return nil, fmt.Errorf("writing meta: %w", err)
	}
	return &meta, nil
}

func evaluate(records []acc.LogRecord, p kpi.Params, stream bool) (kpi.Metrics, error) {
	if !stream {
		return kpi.Evaluate(records, p)
	}
	s, err := kpi.NewStream(p)
	if err != nil {
		return kpi.Metrics{}, err
	}
	for _, r := range records {
		s.Add(r)
	}
	return s.Finish()
}
