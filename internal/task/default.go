package task

import (
	"context"

	"github.com/foldingtext/ftbundle/internal/build"
	"github.com/foldingtext/ftbundle/internal/progress"
)

// Names of the tasks every runner built by NewDefault has.
const (
	Default = "default"
	Build   = "build"
)

// NewDefault registers one task per target, a build task that runs all of
// them in order and a default task that runs build. bar, which may be nil,
// advances once per finished target.
func NewDefault(r *Runner, bar *progress.Bar, targets ...*build.Task) *Runner {
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Name())
		r.Register(t.Name(), nil, func(ctx context.Context) error {
			bar.Describe(t.Name())
			if err := t.Run(ctx); err != nil {
				return err
			}
			bar.Add(1)
			return nil
		})
	}
	r.Register(Build, names, nil)
	r.Register(Default, []string{Build}, nil)
	return r
}
