package cmd

import (
	"context"
	"slices"

	"github.com/spf13/cobra"

	"github.com/foldingtext/ftbundle/internal/logging"
	"github.com/foldingtext/ftbundle/internal/progress"
	"github.com/foldingtext/ftbundle/internal/task"
)

func newRunCommand(p *params) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Run named tasks (default: the default task)",
		Long: `Run named tasks in order. Every target is a task; "build" runs all targets
and "default" runs "build". The first failing task aborts the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{task.Default}
			}
			return p.runTasks(cmd.Context(), args)
		},
	}
	addBuildFlags(cmd, p)
	return cmd
}

func newBuildCommand(p *params) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [target...]",
		Short: "Bundle the given targets (default: all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{task.Build}
			}
			return p.runTasks(cmd.Context(), args)
		},
	}
	addBuildFlags(cmd, p)
	return cmd
}

func addBuildFlags(cmd *cobra.Command, p *params) {
	cmd.Flags().BoolVar(&p.progress, "progress", logging.IsTerminal(p.stderr), "show a progress bar")
	cmd.Flags().BoolVar(&p.noWrite, "dry-run", false, "bundle without writing output files")
}

func (p *params) runTasks(ctx context.Context, names []string) error {
	log := p.logger()
	root, base, err := p.load()
	if err != nil {
		return err
	}
	targets, err := p.tasks(root, base, log)
	if err != nil {
		return err
	}

	var bar *progress.Bar
	if p.progress {
		bar = progress.New(p.stderr, countTargets(names, len(targets)), "bundling")
	}
	defer bar.Finish()

	r := task.NewDefault(task.New(log), bar, targets...)
	return r.Run(ctx, names...)
}

// countTargets estimates the number of targets a run builds, for the
// progress bar.
func countTargets(names []string, all int) int {
	if slices.Contains(names, task.Default) || slices.Contains(names, task.Build) {
		return all
	}
	return min(len(names), all)
}
