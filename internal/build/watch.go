package build

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/foldingtext/ftbundle/internal/config"
	ftfs "github.com/foldingtext/ftbundle/internal/fs"
	"github.com/foldingtext/ftbundle/internal/logging"
	"github.com/foldingtext/ftbundle/internal/pool"
)

const (
	defaultDebounce = 200 * time.Millisecond
	idle            = 24 * time.Hour
)

// Filter selects the files whose changes trigger a rebuild. Paths are
// slash-separated and relative to the base directory.
type Filter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewFilter compiles the include and exclude patterns of w. A nil Watch
// selects everything below the source directory except the output.
func NewFilter(w *config.Watch) (*Filter, error) {
	if w == nil {
		w = &config.Watch{
			Include: []string{config.SourceDir + "/**"},
			Exclude: []string{config.DistDir + "/**"},
		}
	}
	var f Filter
	for _, p := range w.Include {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("include %q: %w", p, err)
		}
		f.include = append(f.include, g)
	}
	for _, p := range w.Exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude %q: %w", p, err)
		}
		f.exclude = append(f.exclude, g)
	}
	return &f, nil
}

func (f *Filter) Match(name string) bool {
	for _, g := range f.exclude {
		if g.Match(name) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if g.Match(name) {
			return true
		}
	}
	return false
}

type watched struct {
	task     *Task
	filter   *Filter
	debounce time.Duration
	timer    *time.Timer
}

// Watcher rebuilds targets when their source files change. Every target is
// built once on start. Rebuilds run one at a time, and a target changed
// while it is being built is rebuilt right after.
type Watcher struct {
	base    string
	targets []*watched
	log     *logging.Logger

	mu   sync.Mutex
	pool *pool.Pool
}

func NewWatcher(base string, log *logging.Logger, tasks ...*Task) (*Watcher, error) {
	w := &Watcher{base: base, log: log}
	for _, t := range tasks {
		cfg := t.Config()
		f, err := NewFilter(cfg.Watch)
		if err != nil {
			return nil, &config.ValidationError{Target: cfg.Name, Field: "watch", Msg: err.Error()}
		}
		var debounce time.Duration
		if cfg.Watch != nil {
			debounce = time.Duration(cfg.Watch.Debounce)
		}
		w.targets = append(w.targets, &watched{task: t, filter: f, debounce: cmp.Or(debounce, defaultDebounce)})
	}
	return w, nil
}

// Run watches the base directory until ctx is done. Build failures are
// logged; they do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := w.addTree(fsw, w.base); err != nil {
		return err
	}
	if ok, err := ftfs.FSContainsFiles(os.DirFS(filepath.Join(w.base, config.SourceDir))); err == nil && !ok {
		w.log.Warnf("no source files below %s yet", filepath.Join(w.base, config.SourceDir))
	}

	w.mu.Lock()
	w.pool = pool.New(ctx, 1)
	w.mu.Unlock()
	for _, t := range w.targets {
		w.pool.Add(t.task.Name(), w.rebuild(t.task))
	}

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher channel closed")
			}
			w.handle(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			w.log.Warnf("watch: %v", err)
		}
	}
}

func (w *Watcher) rebuild(t *Task) func(context.Context) time.Time {
	return func(ctx context.Context) time.Time {
		if ctx.Err() != nil {
			return time.Time{}
		}
		if err := t.Run(ctx); err != nil {
			w.log.Errorf("%v", err)
		}
		return time.Now().Add(idle)
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				w.log.Warnf("watch %s: %v", event.Name, err)
			}
		}
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	rel, err := filepath.Rel(w.base, event.Name)
	if err != nil {
		return
	}
	w.Changed(filepath.ToSlash(rel))
}

// Changed schedules a rebuild of every target whose filter selects name.
// Changes arriving within a target's debounce interval coalesce into a
// single rebuild.
func (w *Watcher) Changed(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range w.targets {
		if !t.filter.Match(name) {
			continue
		}
		w.log.Debugf("%s changed, rebuilding %q", name, t.task.Name())
		if t.timer != nil {
			t.timer.Reset(t.debounce)
			continue
		}
		target := t.task.Name()
		t.timer = time.AfterFunc(t.debounce, func() { w.trigger(target) })
	}
}

func (w *Watcher) trigger(target string) {
	w.mu.Lock()
	p := w.pool
	w.mu.Unlock()
	if p == nil {
		return
	}
	if err := p.Trigger(target); err != nil {
		w.log.Warnf("rebuild %q: %v", target, err)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.targets {
		if t.timer != nil {
			t.timer.Stop()
		}
	}
}

// addTree watches root and every directory below it, skipping hidden
// directories and node_modules.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
