// Package task is a small named-task runner. A task has dependencies, run
// in order before it, and an optional function.
package task

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/foldingtext/ftbundle/internal/logging"
)

var (
	ErrUnknownTask = errors.New("unknown task")
	ErrCycle       = errors.New("task cycle")
)

// Func is the body of a task.
type Func func(ctx context.Context) error

// Result is the outcome of a task started with Runner.Start.
type Result struct {
	Task string
	Err  error
}

type entry struct {
	deps []string
	fn   Func
}

// Runner holds the registered tasks. A task runs at most once per call to
// Run, however many tasks depend on it.
type Runner struct {
	mu    sync.RWMutex
	tasks map[string]entry
	log   *logging.Logger
}

func New(log *logging.Logger) *Runner {
	return &Runner{tasks: map[string]entry{}, log: log}
}

// Register adds or replaces a task. fn may be nil for tasks that only group
// their dependencies.
func (r *Runner) Register(name string, deps []string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = entry{deps: slices.Clone(deps), fn: fn}
}

// Names returns the registered task names, sorted.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.tasks))
}

// Start runs a task in the background. The channel delivers exactly one
// Result and is then closed.
func (r *Runner) Start(ctx context.Context, name string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ch <- Result{Task: name, Err: r.Run(ctx, name)}
	}()
	return ch
}

// Run runs the named tasks in order, each after its dependencies. The
// first failure stops the run and is returned as is. All names are checked
// before anything runs.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	r.mu.RLock()
	tasks := maps.Clone(r.tasks)
	r.mu.RUnlock()

	for _, name := range names {
		if err := check(tasks, name, nil); err != nil {
			return err
		}
	}

	done := map[string]bool{}
	for _, name := range names {
		if err := r.run(ctx, tasks, name, done); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) run(ctx context.Context, tasks map[string]entry, name string, done map[string]bool) error {
	if done[name] {
		return nil
	}
	done[name] = true

	t := tasks[name]
	for _, dep := range t.deps {
		if err := r.run(ctx, tasks, dep, done); err != nil {
			return err
		}
	}
	if t.fn == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	r.log.Debugf("Starting '%s'...", name)
	if err := t.fn(ctx); err != nil {
		return err
	}
	r.log.Debugf("Finished '%s' after %s", name, time.Since(start).Round(time.Millisecond))
	return nil
}

// check verifies that name and everything it depends on is registered and
// that there are no cycles.
func check(tasks map[string]entry, name string, path []string) error {
	if slices.Contains(path, name) {
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(append(path, name), " -> "))
	}
	t, ok := tasks[name]
	if !ok {
		if len(path) > 0 {
			return fmt.Errorf("%w %q (required by %q)", ErrUnknownTask, name, path[len(path)-1])
		}
		return fmt.Errorf("%w %q", ErrUnknownTask, name)
	}
	path = append(path, name)
	for _, dep := range t.deps {
		if err := check(tasks, dep, slices.Clip(path)); err != nil {
			return err
		}
	}
	return nil
}
