package build

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/foldingtext/ftbundle/internal/bundler"
	"github.com/foldingtext/ftbundle/internal/config"
	"github.com/foldingtext/ftbundle/internal/logging"
)

// stubBundler records the configurations it is started with and delivers
// a preset outcome.
type stubBundler struct {
	mu      sync.Mutex
	configs []config.Bundle
	err     error
	mutate  bool
	silent  bool // close the channel without a result
}

func (s *stubBundler) Start(_ context.Context, cfg config.Bundle) <-chan bundler.Result {
	s.mu.Lock()
	s.configs = append(s.configs, cfg.Clone())
	s.mu.Unlock()

	if s.mutate {
		cfg.Entry["extra"] = "./lib-browser/extra"
		cfg.Resolve.Alias["fs"] = "/elsewhere"
		cfg.Resolve.Extensions[0] = ".ts"
		cfg.Rules[1].Options["literate"] = false
		cfg.Output.Path = "/tmp/out"
	}

	ch := make(chan bundler.Result, 1)
	go func() {
		defer close(ch)
		switch {
		case s.silent:
		case s.err != nil:
			ch <- bundler.Result{Err: s.err}
		default:
			ch <- bundler.Result{Stats: &bundler.Stats{Target: cfg.Name, Modules: 3}}
		}
	}()
	return ch
}

func (s *stubBundler) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.configs)
}

func newLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.Debug, Format: logging.JSON, Output: buf})
}

func logLines(buf *bytes.Buffer) []string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

var ignoreUnexported = cmpopts.IgnoreUnexported(config.Bundle{}, config.Output{}, config.Rule{}, config.Resolve{}, config.Watch{})

func TestTaskSuccess(t *testing.T) {
	var buf bytes.Buffer
	stub := &stubBundler{}
	task := NewTask(config.Birch("/src"), stub, newLogger(&buf))

	if err := task.Run(t.Context()); err != nil {
		t.Fatal(err)
	}

	if exp, act := 1, stub.calls(); exp != act {
		t.Fatalf("expected %d bundler call, got %d", exp, act)
	}
	lines := logLines(&buf)
	if len(lines) != 1 || !strings.Contains(lines[0], "[bundle] birch: 3 modules") {
		t.Errorf("expected a single summary entry, got %q", lines)
	}
}

func TestTaskFailure(t *testing.T) {
	var buf bytes.Buffer
	cause := errors.New("Could not resolve \"./lib-browser/birch\"")
	stub := &stubBundler{err: cause}
	task := NewTask(config.Birch("/src"), stub, newLogger(&buf))

	err := task.Run(t.Context())

	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if be.Target != config.TargetBirch || !errors.Is(err, cause) {
		t.Errorf("unexpected error: %v", err)
	}
	if lines := logLines(&buf); len(lines) != 0 {
		t.Errorf("expected no log output, got %q", lines)
	}
}

func TestTaskNoResult(t *testing.T) {
	var buf bytes.Buffer
	task := NewTask(config.FoldingText("/src"), &stubBundler{silent: true}, newLogger(&buf))

	err := task.Run(t.Context())
	if !errors.Is(err, errNoResult) {
		t.Fatalf("expected errNoResult, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %q", buf.String())
	}
}

func TestTaskPassesIndependentCopies(t *testing.T) {
	original := config.FoldingText("/src")
	stub := &stubBundler{mutate: true}
	task := NewTask(original, stub, logging.NewNop())

	for range 2 {
		if err := task.Run(t.Context()); err != nil {
			t.Fatal(err)
		}
	}

	if exp, act := 2, stub.calls(); exp != act {
		t.Fatalf("expected %d bundler calls, got %d", exp, act)
	}
	for i, cfg := range stub.configs {
		if diff := cmp.Diff(original, cfg, ignoreUnexported); diff != "" {
			t.Errorf("call %d: configuration was mutated (-want, +got):\n%s", i, diff)
		}
	}
	if diff := cmp.Diff(original, task.Config(), ignoreUnexported); diff != "" {
		t.Errorf("task configuration was mutated (-want, +got):\n%s", diff)
	}
}

func TestFilter(t *testing.T) {
	cases := []struct {
		note  string
		watch *config.Watch
		path  string
		exp   bool
	}{
		{note: "default source", path: "lib-browser/birch.coffee", exp: true},
		{note: "default nested source", path: "lib-browser/shims/atom/index.js", exp: true},
		{note: "default output", path: "lib-browser/dist/birch.js", exp: false},
		{note: "default outside", path: "README.md", exp: false},
		{
			note:  "include only",
			watch: &config.Watch{Include: []string{"**/*.coffee"}},
			path:  "lib-browser/birch.js",
			exp:   false,
		},
		{
			note:  "no include",
			watch: &config.Watch{Exclude: []string{"*.md"}},
			path:  "package.json",
			exp:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			f, err := NewFilter(tc.watch)
			if err != nil {
				t.Fatal(err)
			}
			if act := f.Match(tc.path); act != tc.exp {
				t.Errorf("%s: expected %v, got %v", tc.path, tc.exp, act)
			}
		})
	}
}
