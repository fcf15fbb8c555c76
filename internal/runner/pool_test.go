package runner_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/signalnine/acckpi/internal/runner"
)

func TestPool(t *testing.T) {
	var count atomic.Int32
	jobs := make([]runner.Job, 10)
	for i := range jobs {
		jobs[i] = func(context.Context) error {
			count.Add(1)
			return nil
		}
	}
	errs := runner.RunPool(context.Background(), 3, jobs)
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
	if count.Load() != 10 {
		t.Errorf("expected 10 jobs, got %d", count.Load())
	}
}

func TestPoolWithErrors(t *testing.T) {
	jobs := []runner.Job{
		func(context.Context) error { return nil },
		func(context.Context) error { return fmt.Errorf("fail") },
		func(context.Context) error { return nil },
	}
	errs := runner.RunPool(context.Background(), 2, jobs)
	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %d", len(errs))
	}
}

func TestPoolRespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})
	jobs := make([]runner.Job, 6)
	for i := range jobs {
		jobs[i] = func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil
		}
	}
	done := make(chan []error)
	go func() { done <- runner.RunPool(context.Background(), 2, jobs) }()
	for i := 0; i < len(jobs); i++ {
		release <- struct{}{}
	}
	if errs := <-done; len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent jobs, saw %d", peak.Load())
	}
}

func TestPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Int32
	jobs := make([]runner.Job, 4)
	for i := range jobs {
		jobs[i] = func(context.Context) error {
			ran.Add(1)
			return nil
		}
	}
	errs := runner.RunPool(ctx, 1, jobs)
	for _, err := range errs {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error %v", err)
		}
	}
	if int(ran.Load())+len(errs) != len(jobs) {
		t.Errorf("every job should either run or be cancelled: ran %d, cancelled %d", ran.Load(), len(errs))
	}
}
