package bundle_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/foldingtext/ftbundle/pkg/bundle"
)

func TestBuild(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "lib-browser")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "foldingtext.js"), []byte("module.exports = require('atom');\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := bundle.New(base).WithWrite(false).Build(t.Context(), bundle.FoldingText(base))
	if err != nil {
		t.Fatal(err)
	}
	if len(stats.Assets) != 1 || stats.Assets[0].Name != "lib-browser/dist/foldingtext.js" {
		t.Errorf("unexpected assets: %+v", stats.Assets)
	}
	if _, err := os.Stat(filepath.Join(src, "dist")); !os.IsNotExist(err) {
		t.Errorf("expected nothing written, got %v", err)
	}

	_, err = bundle.New(base).Build(t.Context(), bundle.Birch(base))
	var be *bundle.Error
	if !errors.As(err, &be) || be.Target != "birch" {
		t.Errorf("expected bundling failure of birch, got %v", err)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := bundle.Birch(t.TempDir())
	cfg.Rules = append(cfg.Rules, bundle.Rule{Test: "(", Loader: "js"})

	if _, err := bundle.New(t.TempDir()).Build(t.Context(), cfg); err == nil {
		t.Fatal("expected invalid rule to be rejected")
	}
}
