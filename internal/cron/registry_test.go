package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	t.Parallel()

	first := &stubJob{name: "first"}
	second := &stubJob{name: "second"}
	registry := NewRegistry(first, nil, second)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected nil job skipped, got %d jobs", len(jobs))
	}
	if jobs[0] != first || jobs[1] != second {
		t.Fatal("jobs returned out of registration order")
	}

	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("Jobs leaked the internal slice")
	}
}
