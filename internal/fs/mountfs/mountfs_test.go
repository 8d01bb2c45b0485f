package mountfs_test

import (
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"

	ftfs "github.com/foldingtext/ftbundle/internal/fs"
	"github.com/foldingtext/ftbundle/internal/fs/mountfs"
)

func TestMountFS(t *testing.T) {
	shims := ftfs.MapFS(map[string]string{
		"fs.js":   "module.exports = {}",
		"grim.js": "module.exports = {deprecate() {}}",
	})
	nested := ftfs.MapFS(map[string]string{"index.js": "// nested"})
	fsys := mountfs.New(map[string]fs.FS{
		"lib-browser/shims":      shims,
		"lib-browser/shims/atom": nested,
		"vendor":                 ftfs.MapFS(map[string]string{"a.js": ""}),
	})

	readDir := func(t *testing.T, name string) []string {
		t.Helper()
		xs, err := fs.ReadDir(fsys, name)
		if err != nil {
			t.Fatal(err)
		}
		names := make([]string, len(xs))
		for i := range xs {
			names[i] = xs[i].Name()
		}
		return names
	}

	t.Run("list root", func(t *testing.T) {
		if diff := cmp.Diff([]string{"lib-browser", "vendor"}, readDir(t, ".")); diff != "" {
			t.Fatalf("(-want, +got):\n%s", diff)
		}
	})
	t.Run("list common prefix", func(t *testing.T) {
		if diff := cmp.Diff([]string{"shims"}, readDir(t, "lib-browser")); diff != "" {
			t.Fatalf("(-want, +got):\n%s", diff)
		}
	})
	t.Run("list mount point", func(t *testing.T) {
		if diff := cmp.Diff([]string{"fs.js", "grim.js"}, readDir(t, "lib-browser/shims")); diff != "" {
			t.Fatalf("(-want, +got):\n%s", diff)
		}
	})
	t.Run("read file", func(t *testing.T) {
		bs, err := fs.ReadFile(fsys, "lib-browser/shims/fs.js")
		if err != nil {
			t.Fatal(err)
		}
		if exp, act := "module.exports = {}", string(bs); exp != act {
			t.Fatalf("expected %q, got %q", exp, act)
		}
	})
	t.Run("longest prefix wins", func(t *testing.T) {
		bs, err := fs.ReadFile(fsys, "lib-browser/shims/atom/index.js")
		if err != nil {
			t.Fatal(err)
		}
		if exp, act := "// nested", string(bs); exp != act {
			t.Fatalf("expected %q, got %q", exp, act)
		}
	})
	t.Run("missing", func(t *testing.T) {
		if _, err := fsys.Open("lib-browser/birch.coffee"); err == nil {
			t.Fatal("expected error")
		}
	})
}
