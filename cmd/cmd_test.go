package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foldingtext/ftbundle/internal/build"
	"github.com/foldingtext/ftbundle/internal/task"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand(&params{stderr: &stderr})
	root.SetOut(&stdout)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	base := t.TempDir()
	for name, content := range files {
		p := filepath.Join(base, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return base
}

func TestBuild(t *testing.T) {
	base := project(t, map[string]string{
		"lib-browser/birch.js":       "module.exports = require('grim');\n",
		"lib-browser/foldingtext.js": "module.exports = require('less');\n",
	})

	_, stderr, err := execute(t, "build", "--base", base, "--log-format", "json", "--progress=false")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"birch.js", "foldingtext.js"} {
		if _, err := os.Stat(filepath.Join(base, "lib-browser", "dist", name)); err != nil {
			t.Error(err)
		}
	}
	if exp, act := 2, strings.Count(stderr, "[bundle]"); exp != act {
		t.Errorf("expected %d summaries, got %d:\n%s", exp, act, stderr)
	}
}

func TestBuildFailure(t *testing.T) {
	base := project(t, map[string]string{
		"lib-browser/foldingtext.js": "module.exports = {};\n",
	})

	_, stderr, err := execute(t, "run", "--base", base, "--log-format", "json", "--progress=false")

	var be *build.Error
	if !errors.As(err, &be) || be.Target != "birch" {
		t.Fatalf("expected bundling failure of birch, got %v", err)
	}
	if strings.Contains(stderr, "[bundle]") {
		t.Errorf("expected no summary, got:\n%s", stderr)
	}
	if _, err := os.Stat(filepath.Join(base, "lib-browser", "dist", "foldingtext.js")); !os.IsNotExist(err) {
		t.Errorf("expected foldingtext not to be built, got %v", err)
	}
}

func TestRunUnknownTask(t *testing.T) {
	_, _, err := execute(t, "run", "--base", t.TempDir(), "webpack")
	if !errors.Is(err, task.ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	stdout, _, err := execute(t, "config", "show", "--base", "/src/ft", "birch")
	if err != nil {
		t.Fatal(err)
	}
	for _, exp := range []string{"birch: ./lib-browser/birch", "public_path: browser/dist/", "/src/ft/lib-browser/shims/grim"} {
		if !strings.Contains(stdout, exp) {
			t.Errorf("expected %q in:\n%s", exp, stdout)
		}
	}
	if strings.Contains(stdout, "foldingtext") {
		t.Errorf("expected only birch, got:\n%s", stdout)
	}
}

func TestConfigDiff(t *testing.T) {
	base := project(t, map[string]string{
		"ftbundle.yaml": "targets:\n  birch:\n    output:\n      public_path: assets/\n",
	})

	stdout, _, err := execute(t, "config", "diff", "--base", base)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "" {
		t.Errorf("expected no difference without configuration files, got:\n%s", stdout)
	}

	stdout, _, err = execute(t, "config", "diff", "--base", base, "--config", filepath.Join(base, "ftbundle.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, exp := range []string{"-      public_path: browser/dist/", "+      public_path: assets/"} {
		if !strings.Contains(stdout, exp) {
			t.Errorf("expected %q in:\n%s", exp, stdout)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	base := project(t, map[string]string{
		"bad.yaml": "targets:\n  birch:\n    rules:\n      - test: \"(\"\n        loader: coffee\n",
	})

	if _, _, err := execute(t, "config", "validate", "--base", base, "--config", filepath.Join(base, "bad.yaml")); err == nil {
		t.Fatal("expected validation error")
	}
	stdout, _, err := execute(t, "config", "validate", "--base", base)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "2 targets") {
		t.Errorf("unexpected output %q", stdout)
	}
}
