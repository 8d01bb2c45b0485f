// Package build runs the bundling pass of a target and reports on it.
package build

import (
	"context"
	"errors"
	"fmt"

	"github.com/foldingtext/ftbundle/internal/bundler"
	"github.com/foldingtext/ftbundle/internal/config"
	"github.com/foldingtext/ftbundle/internal/logging"
)

// Error is a bundling failure of a target. It is the only error a Task
// returns; callers treat it as fatal.
type Error struct {
	Target string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("bundle %q failed: %v", e.Target, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var errNoResult = errors.New("bundler finished without a result")

// Task builds one target. The configuration it was created with is never
// handed to the bundler; every run gets its own copy.
type Task struct {
	cfg     config.Bundle
	bundler bundler.Bundler
	log     *logging.Logger
}

func NewTask(cfg config.Bundle, b bundler.Bundler, log *logging.Logger) *Task {
	return &Task{cfg: cfg.Clone(), bundler: b, log: log}
}

func (t *Task) Name() string {
	return t.cfg.Name
}

// Config returns a copy of the task's configuration.
func (t *Task) Config() config.Bundle {
	return t.cfg.Clone()
}

// Run starts a bundling pass and waits for its result. On success the
// statistics summary is logged once. On failure nothing is logged and the
// cause is returned as an *Error.
func (t *Task) Run(ctx context.Context) error {
	res, ok := <-t.bundler.Start(ctx, t.cfg.Clone())
	if !ok {
		return &Error{Target: t.cfg.Name, Err: errNoResult}
	}
	if res.Err != nil {
		return &Error{Target: t.cfg.Name, Err: res.Err}
	}
	if res.Stats == nil {
		return &Error{Target: t.cfg.Name, Err: errNoResult}
	}

	t.log.Infof("[bundle] %s", res.Stats.Summary())
	return nil
}
