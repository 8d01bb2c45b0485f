// Package shims carries the browser stand-ins for platform modules that the
// bundled libraries import. A project's own lib-browser/shims directory
// takes precedence; these are used for any shim it does not provide.
package shims

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yalue/merged_fs"

	"github.com/foldingtext/ftbundle/internal/config"
	"github.com/foldingtext/ftbundle/internal/fs/mountfs"
)

//go:embed js/*.js
var embedded embed.FS

// FS returns the embedded shims, one file per module ("fs.js", ...).
func FS() fs.FS {
	sub, err := fs.Sub(embedded, "js")
	if err != nil {
		panic(err)
	}
	return sub
}

// Overlay returns a view of the base directory in which the embedded shims
// appear under lib-browser/shims wherever the directory itself has no file.
func Overlay(base string) fs.FS {
	return OverlayFS(os.DirFS(base))
}

// OverlayFS is Overlay for an arbitrary source tree.
func OverlayFS(src fs.FS) fs.FS {
	mounted := mountfs.New(map[string]fs.FS{filepath.ToSlash(config.ShimDir): FS()})
	return merged_fs.MergeMultiple(src, mounted)
}
