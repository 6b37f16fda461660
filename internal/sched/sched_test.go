package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sweeney/taskpanel/internal/logic"
)

// counterTask increments n at every suspension point until cancelled.
func counterTask(n *atomic.Int64) TaskFunc {
	return func(ctx context.Context, t *Task) error {
		for {
			if err := t.Sleep(time.Millisecond); err != nil {
				return err
			}
			n.Add(1)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCreateDuplicate(t *testing.T) {
	s := New()
	if _, err := s.Create("a", 1, counterTask(new(atomic.Int64))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := s.Create("a", 1, counterTask(new(atomic.Int64)))
	if !errors.Is(err, ErrDuplicateTask) {
		t.Errorf("expected ErrDuplicateTask, got %v", err)
	}
}

func TestCreateAfterStart(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	if _, err := s.Create("late", 1, counterTask(new(atomic.Int64))); !errors.Is(err, ErrStarted) {
		t.Errorf("expected ErrStarted, got %v", err)
	}
}

func TestUnknownTask(t *testing.T) {
	s := New()
	for _, err := range []error{s.Suspend("nope"), s.Resume("nope"), s.Delete("nope")} {
		if !errors.Is(err, ErrUnknownTask) {
			t.Errorf("expected ErrUnknownTask, got %v", err)
		}
	}
}

func TestSuspendResume(t *testing.T) {
	s := New()
	var n atomic.Int64
	s.Create("count", 1, counterTask(&n))

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.Wait()
	}()
	s.Start(ctx)

	waitFor(t, "task to run", func() bool { return n.Load() > 3 })

	if err := s.Suspend("count"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	// Let any in-flight step finish.
	time.Sleep(10 * time.Millisecond)
	paused := n.Load()
	time.Sleep(30 * time.Millisecond)
	if got := n.Load(); got > paused+1 {
		t.Errorf("task kept running while suspended: %d -> %d", paused, got)
	}
	if st := s.States()["count"]; st != StateSuspended {
		t.Errorf("expected suspended, got %s", st)
	}

	if err := s.Resume("count"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	waitFor(t, "task to resume", func() bool { return n.Load() > paused+3 })
}

func TestSuspendIdempotent(t *testing.T) {
	s := New()
	task, _ := s.Create("count", 1, counterTask(new(atomic.Int64)))

	if err := s.Suspend("count"); err != nil {
		t.Fatalf("first suspend: %v", err)
	}
	once := task.State()
	if err := s.Suspend("count"); err != nil {
		t.Fatalf("second suspend: %v", err)
	}
	if task.State() != once {
		t.Errorf("state changed on repeat suspend: %s -> %s", once, task.State())
	}

	// One resume undoes any number of suspends.
	if err := s.Resume("count"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := s.Resume("count"); err != nil {
		t.Fatalf("repeat resume: %v", err)
	}
	if task.State() != StateRunning {
		t.Errorf("expected running, got %s", task.State())
	}
}

func TestSuspendBeforeStart(t *testing.T) {
	s := New()
	var n atomic.Int64
	s.Create("count", 1, counterTask(&n))
	s.Suspend("count")

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.Wait()
	}()
	s.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	if got := n.Load(); got > 1 {
		t.Errorf("suspended task ran %d steps", got)
	}
	s.Resume("count")
	waitFor(t, "task to run after resume", func() bool { return n.Load() > 2 })
}

func TestResumeBeforeStartStaysReady(t *testing.T) {
	s := New()
	var n atomic.Int64
	s.Create("count", 1, counterTask(&n))

	s.Suspend("count")
	if st := s.States()["count"]; st != StateSuspended {
		t.Fatalf("after suspend: got %s, want suspended", st)
	}
	if err := s.Resume("count"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if st := s.States()["count"]; st != StateReady {
		t.Errorf("after resume before start: got %s, want ready", st)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.Wait()
	}()
	s.Start(ctx)
	if st := s.States()["count"]; st != StateRunning {
		t.Errorf("after start: got %s, want running", st)
	}
	waitFor(t, "task to run", func() bool { return n.Load() > 2 })
}

func TestDeleteIsFinal(t *testing.T) {
	s := New()
	var n atomic.Int64
	s.Create("count", 1, counterTask(&n))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	waitFor(t, "task to run", func() bool { return n.Load() > 0 })

	if err := s.Delete("count"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	s.Wait()

	if st := s.States()["count"]; st != StateDeleted {
		t.Errorf("expected deleted, got %s", st)
	}
	if err := s.Resume("count"); !errors.Is(err, ErrDeleted) {
		t.Errorf("resume after delete: expected ErrDeleted, got %v", err)
	}
	if err := s.Suspend("count"); !errors.Is(err, ErrDeleted) {
		t.Errorf("suspend after delete: expected ErrDeleted, got %v", err)
	}
	if err := s.Delete("count"); !errors.Is(err, ErrDeleted) {
		t.Errorf("repeat delete: expected ErrDeleted, got %v", err)
	}
}

func TestDeleteSuspendedTask(t *testing.T) {
	s := New()
	s.Create("count", 1, counterTask(new(atomic.Int64)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	s.Suspend("count")
	s.Delete("count")

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("suspended task did not exit after delete")
	}
}

func TestTaskExit(t *testing.T) {
	s := New()
	s.Create("once", 1, func(ctx context.Context, t *Task) error { return nil })

	s.Start(context.Background())
	s.Wait()

	if st := s.States()["once"]; st != StateExited {
		t.Errorf("expected exited, got %s", st)
	}
}

func TestApply(t *testing.T) {
	s := New()
	task, _ := s.Create("display", 2, counterTask(new(atomic.Int64)))

	if err := s.Apply(logic.Suspend("display")); err != nil {
		t.Fatalf("apply suspend: %v", err)
	}
	if task.State() != StateSuspended {
		t.Errorf("expected suspended, got %s", task.State())
	}
	if err := s.Apply(logic.Resume("display")); err != nil {
		t.Fatalf("apply resume: %v", err)
	}
	if err := s.Apply(logic.Directive{}); err != nil {
		t.Errorf("apply none: %v", err)
	}
	if err := s.Apply(logic.Directive{Action: "JUMP", Task: "display"}); err == nil {
		t.Error("expected error for unknown action")
	}
	if err := s.Apply(logic.Suspend("ghost")); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}
}

func TestPriority(t *testing.T) {
	s := New()
	task, _ := s.Create("display", 2, counterTask(new(atomic.Int64)))
	if task.Priority() != 2 || task.ID() != "display" {
		t.Errorf("unexpected handle: %s/%d", task.ID(), task.Priority())
	}
}
