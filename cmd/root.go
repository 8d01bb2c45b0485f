// Package cmd implements the ftbundle command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"

	"github.com/foldingtext/ftbundle/internal/build"
	"github.com/foldingtext/ftbundle/internal/bundler"
	"github.com/foldingtext/ftbundle/internal/config"
	"github.com/foldingtext/ftbundle/internal/logging"
	"github.com/foldingtext/ftbundle/internal/task"
)

type params struct {
	base      string
	configs   []string
	patches   []string
	strict    bool
	logLevel  logging.Level
	logFormat logging.Format
	progress  bool
	noWrite   bool

	stderr io.Writer
}

// Execute runs the command line. Errors are fatal: they are logged and the
// process exits with status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &params{stderr: os.Stderr}
	root := newRootCommand(p)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		fatal(p.logger(), err)
	}
}

func fatal(log *logging.Logger, err error) {
	var me *bundler.MessagesError
	if errors.As(err, &me) {
		log.Errorf("%s", me.Details())
	}
	log.Fatalf("%v", err)
}

func newRootCommand(p *params) *cobra.Command {
	root := &cobra.Command{
		Use:           "ftbundle",
		Short:         "Bundle the birch and foldingtext browser libraries",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return p.runTasks(cmd.Context(), []string{task.Default})
		},
	}
	root.SetErr(p.stderr)

	addCommonFlags(root.PersistentFlags(), p)

	root.AddCommand(
		newRunCommand(p),
		newBuildCommand(p),
		newWatchCommand(p),
		newConfigCommand(p),
	)
	return root
}

func addCommonFlags(fs *pflag.FlagSet, p *params) {
	p.logLevel = logging.Info
	fs.StringVar(&p.base, "base", "", "base directory of the project (default: working directory)")
	fs.StringSliceVarP(&p.configs, "config", "c", nil, "configuration file or directory merged over the built-in targets (repeatable)")
	fs.StringSliceVar(&p.patches, "patch", nil, "JSON patch applied to the merged configuration (repeatable)")
	fs.BoolVar(&p.strict, "strict", false, "fail when configuration files set conflicting values")
	fs.Var(enumflag.New(&p.logLevel, "level", logging.LevelIds, enumflag.EnumCaseInsensitive), "log-level", "log level (debug, info, warn, error)")
	fs.Var(enumflag.New(&p.logFormat, "format", logging.FormatIds, enumflag.EnumCaseInsensitive), "log-format", "log format (pretty, json)")
}

func (p *params) logger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: p.logLevel, Format: p.logFormat, Output: p.stderr})
}

func (p *params) baseDir() (string, error) {
	base := p.base
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		base = wd
	}
	return filepath.Abs(base)
}

func (p *params) load() (*config.Root, string, error) {
	base, err := p.baseDir()
	if err != nil {
		return nil, "", err
	}
	root, err := config.Load(config.LoadOptions{Base: base, Files: p.configs, Patches: p.patches, Strict: p.strict})
	if err != nil {
		return nil, "", err
	}
	return root, base, nil
}

// tasks returns one build task per target, in target order. With names,
// only those targets are returned.
func (p *params) tasks(root *config.Root, base string, log *logging.Logger, names ...string) ([]*build.Task, error) {
	esb := bundler.NewESBuild(base).WithLogger(log).WithWrite(!p.noWrite)

	var tasks []*build.Task
	for _, b := range root.SortedTargets() {
		tasks = append(tasks, build.NewTask(*b, esb, log.With("target", b.Name)))
	}
	if len(names) == 0 {
		return tasks, nil
	}

	selected := make([]*build.Task, 0, len(names))
	for _, name := range names {
		i := indexOf(tasks, name)
		if i < 0 {
			return nil, fmt.Errorf("%w %q", task.ErrUnknownTask, name)
		}
		selected = append(selected, tasks[i])
	}
	return selected, nil
}

func indexOf(tasks []*build.Task, name string) int {
	for i, t := range tasks {
		if t.Name() == name {
			return i
		}
	}
	return -1
}
