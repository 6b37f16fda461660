// Package sched runs the cooperating tasks and carries out suspend, resume
// and delete requests against them.
//
// Suspension is cooperative: a task only pauses at its suspension points
// (Task.Yield and Task.Sleep). Delete cancels the task's context; no cleanup
// callback is run.
package sched

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/taskpanel/internal/logic"
)

var (
	// ErrUnknownTask is returned for a task name that was never created.
	ErrUnknownTask = errors.New("unknown task")
	// ErrDeleted is returned when controlling a task that has been deleted
	// or has exited.
	ErrDeleted = errors.New("task deleted")
	// ErrDuplicateTask is returned when two tasks share a name.
	ErrDuplicateTask = errors.New("duplicate task")
	// ErrStarted is returned when creating a task after Start.
	ErrStarted = errors.New("scheduler already started")
)

// State is the lifecycle state of a task.
type State string

const (
	StateReady     State = "ready"
	StateRunning   State = "running"
	StateSuspended State = "suspended"
	StateDeleted   State = "deleted"
	StateExited    State = "exited"
)

// TaskFunc is the body of a task. It returns when ctx is cancelled.
type TaskFunc func(ctx context.Context, t *Task) error

// Task is a handle to one cooperating task.
type Task struct {
	id       logic.TaskID
	priority int
	fn       TaskFunc

	mu     sync.Mutex
	state  State
	gate   chan struct{} // closed when a suspended task may continue
	ctx    context.Context
	cancel context.CancelFunc
}

// ID returns the task name.
func (t *Task) ID() logic.TaskID { return t.id }

// Priority returns the priority the task was created with.
func (t *Task) Priority() int { return t.priority }

// State returns the current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Yield is a suspension point. It blocks while the task is suspended and
// returns the context error once the task has been deleted.
func (t *Task) Yield() error {
	t.mu.Lock()
	gate := t.gate
	ctx := t.ctx
	suspended := t.state == StateSuspended
	t.mu.Unlock()

	if ctx == nil {
		return nil
	}
	if suspended {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	return ctx.Err()
}

// Sleep waits for d and then yields.
func (t *Task) Sleep(d time.Duration) error {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()

	if d > 0 && ctx != nil {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return t.Yield()
}

func (t *Task) suspend() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateDeleted, StateExited:
		return ErrDeleted
	case StateSuspended:
		return nil
	}
	t.state = StateSuspended
	t.gate = make(chan struct{})
	return nil
}

func (t *Task) resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateDeleted, StateExited:
		return ErrDeleted
	case StateSuspended:
		t.state = StateRunning
		if t.ctx == nil {
			t.state = StateReady
		}
		close(t.gate)
	}
	return nil
}

func (t *Task) delete() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateDeleted, StateExited:
		return ErrDeleted
	}
	t.state = StateDeleted
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

// Scheduler owns a fixed set of tasks.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[logic.TaskID]*Task
	order   []logic.TaskID
	started bool
	wg      sync.WaitGroup
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{tasks: make(map[logic.TaskID]*Task)}
}

// Create registers a task. Tasks must be created before Start.
func (s *Scheduler) Create(name logic.TaskID, priority int, fn TaskFunc) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil, ErrStarted
	}
	if _, ok := s.tasks[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}

	t := &Task{id: name, priority: priority, fn: fn, state: StateReady}
	s.tasks[name] = t
	s.order = append(s.order, name)
	return t, nil
}

// Start launches every task, highest priority first.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	order := make([]logic.TaskID, len(s.order))
	copy(order, s.order)
	sort.SliceStable(order, func(i, j int) bool {
		return s.tasks[order[i]].priority > s.tasks[order[j]].priority
	})

	for _, id := range order {
		t := s.tasks[id]
		t.mu.Lock()
		t.ctx, t.cancel = context.WithCancel(ctx)
		if t.state == StateReady {
			t.state = StateRunning
		}
		deleted := t.state == StateDeleted
		t.mu.Unlock()
		if deleted {
			t.cancel()
			continue
		}

		s.wg.Add(1)
		go s.run(t)
	}
}

func (s *Scheduler) run(t *Task) {
	defer s.wg.Done()

	err := t.fn(t.ctx, t)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithField("task", t.id).Printf("sched: task exited: %v", err)
	}

	t.mu.Lock()
	if t.state != StateDeleted {
		t.state = StateExited
	}
	t.mu.Unlock()
	t.cancel()
}

// Wait blocks until every started task has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Task returns the handle for name.
func (s *Scheduler) Task(name logic.TaskID) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return t, nil
}

// Suspend pauses a task at its next suspension point. Suspending a
// suspended task is a no-op.
func (s *Scheduler) Suspend(name logic.TaskID) error {
	t, err := s.Task(name)
	if err != nil {
		return err
	}
	return t.suspend()
}

// Resume lets a suspended task continue. Resuming a running task is a no-op.
func (s *Scheduler) Resume(name logic.TaskID) error {
	t, err := s.Task(name)
	if err != nil {
		return err
	}
	return t.resume()
}

// Delete terminates a task for good.
func (s *Scheduler) Delete(name logic.TaskID) error {
	t, err := s.Task(name)
	if err != nil {
		return err
	}
	return t.delete()
}

// Apply carries out a supervisor directive.
func (s *Scheduler) Apply(d logic.Directive) error {
	switch d.Action {
	case logic.ActionSuspend:
		return s.Suspend(d.Task)
	case logic.ActionResume:
		return s.Resume(d.Task)
	case logic.ActionNone:
		return nil
	}
	return fmt.Errorf("unknown action %q", d.Action)
}

// States returns the state of every task by name.
func (s *Scheduler) States() map[string]State {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	out := make(map[string]State, len(tasks))
	for _, t := range tasks {
		out[string(t.id)] = t.State()
	}
	return out
}
