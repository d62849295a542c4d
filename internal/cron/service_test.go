package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/orderlift/orderlift-backend/pkg/logger"
)

type fakeLock struct {
	held  bool
	fails bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.fails {
		return false, errors.New("redis down")
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func newCronTestService(t *testing.T, registry *Registry, lock Lock) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{Logger: logg, Registry: registry, Lock: lock})
	if err != nil {
		t.Fatalf("constructing cron service: %v", err)
	}
	return svc
}

func TestRunCycleContinuesPastFailedJob(t *testing.T) {
	t.Parallel()

	broken := &countingJob{name: "broken", err: errors.New("boom")}
	healthy := &countingJob{name: "healthy"}
	svc := newCronTestService(t, NewRegistry(broken, healthy), &fakeLock{})

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if broken.runs != 1 || healthy.runs != 1 {
		t.Fatalf("expected both jobs to run once, got broken=%d healthy=%d", broken.runs, healthy.runs)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	t.Parallel()

	job := &countingJob{name: "job"}
	svc := newCronTestService(t, NewRegistry(job), &fakeLock{held: true})

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock, ran %d times", job.runs)
	}
}

func TestRunCycleSurfacesLockErrors(t *testing.T) {
	t.Parallel()

	svc := newCronTestService(t, NewRegistry(&countingJob{name: "job"}), &fakeLock{fails: true})
	if err := svc.runCycle(context.Background()); err == nil {
		t.Fatal("expected lock acquire error to surface")
	}
}
