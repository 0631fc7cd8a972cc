package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pruneCounter struct{ total atomic.Int64 }

func (p *pruneCounter) ObservePrune(n int) { p.total.Add(int64(n)) }

func TestScheduler_InvalidSpec(t *testing.T) {
	s := New(discard(), nil)
	run := func(context.Context, string) error { return nil }

	if err := s.AddEvaluation(context.Background(), "not a cron", "schedule", run); err == nil {
		t.Error("AddEvaluation() accepted an invalid spec")
	}
	if err := s.AddPrune(context.Background(), "61 * * * *", nil); err == nil {
		t.Error("AddPrune() accepted an invalid spec")
	}
	if err := s.AddPrune(context.Background(), "", nil); err != nil {
		t.Errorf("AddPrune(\"\") error = %v, want nil", err)
	}
	if !s.NextRun("prune").IsZero() {
		t.Error("empty prune schedule was registered")
	}
}

func TestScheduler_RunsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	counter := &pruneCounter{}
	s := New(discard(), counter)

	runs := make(chan string, 10)
	err := s.AddEvaluation(ctx, "@every 1s", "schedule", func(_ context.Context, trigger string) error {
		runs <- trigger
		return errors.New("ignored")
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.AddPrune(ctx, "@every 1s", func(context.Context) (int64, error) { return 3, nil })
	if err != nil {
		t.Fatal(err)
	}

	s.Start(ctx)
	if !s.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}
	if s.NextRun("evaluation").IsZero() {
		t.Error("NextRun(evaluation) is zero")
	}

	select {
	case trigger := <-runs:
		if trigger != "schedule" {
			t.Errorf("trigger = %q, want schedule", trigger)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("evaluation job never ran")
	}

	deadline := time.Now().Add(3 * time.Second)
	for counter.total.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if counter.total.Load() < 3 {
		t.Errorf("observed %d pruned results, want >= 3", counter.total.Load())
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestScheduler_ReplaceJob(t *testing.T) {
	s := New(discard(), nil)
	run := func(context.Context, string) error { return nil }

	_ = s.AddEvaluation(context.Background(), "@hourly", "schedule", run)
	_ = s.AddEvaluation(context.Background(), "@daily", "schedule", run)

	if got := len(s.cron.Entries()); got != 1 {
		t.Errorf("cron has %d entries, want 1", got)
	}
}

func TestScheduler_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(discard(), nil)
	s.Start(ctx)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("scheduler still running after context cancellation")
	}
}

func TestScheduler_StopReleasesContextWatch(t *testing.T) {
	s := New(discard(), nil)
	s.Start(context.Background())
	done := s.done
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start goroutine still waiting after Stop")
	}

	// A stopped scheduler can be started again.
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	if !s.IsRunning() {
		t.Fatal("scheduler not running after restart")
	}
	done = s.done
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start goroutine did not exit on cancellation")
	}
	if s.IsRunning() {
		t.Error("scheduler still running after context cancellation")
	}
}
