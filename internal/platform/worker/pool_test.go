package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

func TestPoolExecutesAllJobs(t *testing.T) {
	pool := NewPool(context.Background(), 4, 16)
	defer pool.Close()

	var executed int64
	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = Job{
			ID: fmt.Sprintf("job-%d", i),
			Execute: func(ctx context.Context) (interface{}, error) {
				atomic.AddInt64(&executed, 1)
				return nil, nil
			},
		}
	}

	results := pool.SubmitAndWait(jobs)

	if len(results) != 10 {
		t.Errorf("Expected 10 results, got %d", len(results))
	}
	if executed != 10 {
		t.Errorf("Expected 10 executions, got %d", executed)
	}
}

func TestPoolIsolatesJobFailures(t *testing.T) {
	pool := NewPool(context.Background(), 2, 8)
	defer pool.Close()

	jobs := []Job{
		{ID: "ok", Execute: func(ctx context.Context) (interface{}, error) { return "fine", nil }},
		{ID: "bad", Execute: func(ctx context.Context) (interface{}, error) { return nil, errors.New("boom") }},
	}

	results := pool.SubmitAndWait(jobs)

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	var okSeen, errSeen bool
	for _, r := range results {
		switch r.JobID {
		case "ok":
			okSeen = r.Err == nil && r.Value == "fine"
		case "bad":
			errSeen = r.Err != nil
		}
	}

	if !okSeen {
		t.Error("Successful job result missing or wrong")
	}
	if !errSeen {
		t.Error("Failed job error missing")
	}
}

func TestPoolSubmitAfterClose(t *testing.T) {
	pool := NewPool(context.Background(), 1, 1)
	pool.Close()

	err := pool.Submit(Job{ID: "late", Execute: func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}})

	if err == nil {
		t.Error("Expected error submitting to closed pool")
	}
}

func TestPoolDefaultsToOneWorker(t *testing.T) {
	pool := NewPool(context.Background(), 0, -1)
	defer pool.Close()

	if pool.Workers() != 1 {
		t.Errorf("Expected 1 worker, got %d", pool.Workers())
	}
}
