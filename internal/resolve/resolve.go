// Package resolve redirects aliased module names to files, trying the
// configured extensions in order.
package resolve

import (
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/foldingtext/ftbundle/internal/config"
	ftfs "github.com/foldingtext/ftbundle/internal/fs"
)

// NotFoundError is returned when an aliased import does not resolve to a file.
type NotFoundError struct {
	Import string
	Tried  []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot resolve %q (tried %s)", e.Import, strings.Join(e.Tried, ", "))
}

// Resolution is the outcome of resolving an aliased import.
type Resolution struct {
	Path   string // absolute path of the file
	Rel    string // slash-separated path relative to the base directory, empty outside of it
	OnDisk bool   // false if the file only exists in the source view (an embedded shim)
}

// Resolver applies the alias map of a bundle. Files are looked up in the
// source view, an fs.FS rooted at the base directory, so that embedded shims
// can stand in for missing files.
type Resolver struct {
	base  string
	src   fs.FS
	disk  fs.FS
	alias map[string]string
	names []string // alias names, longest first
	exts  []string
}

func New(base string, src fs.FS, cfg config.Resolve) *Resolver {
	names := slices.SortedFunc(maps.Keys(cfg.Alias), func(a, b string) int {
		return len(b) - len(a)
	})
	return &Resolver{
		base:  base,
		src:   src,
		disk:  os.DirFS(base),
		alias: maps.Clone(cfg.Alias),
		names: names,
		exts:  slices.Clone(cfg.Extensions),
	}
}

// Names returns the aliased module names.
func (r *Resolver) Names() []string {
	return slices.Sorted(slices.Values(r.names))
}

// Alias maps an import path onto its alias target. Both "fs" and "fs/sub"
// match the alias "fs"; "fsx" does not.
func (r *Resolver) Alias(importPath string) (string, bool) {
	for _, name := range r.names {
		if importPath == name {
			return r.alias[name], true
		}
		if rest, ok := strings.CutPrefix(importPath, name+"/"); ok {
			return filepath.Join(r.alias[name], filepath.FromSlash(rest)), true
		}
	}
	return "", false
}

// Resolve resolves an aliased import to a file. Files on disk are preferred
// over the rest of the source view. ok is false if importPath is not aliased
// at all.
func (r *Resolver) Resolve(importPath string) (res Resolution, ok bool, err error) {
	target, ok := r.Alias(importPath)
	if !ok {
		return Resolution{}, false, nil
	}

	rel, err := filepath.Rel(r.base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// outside of the base directory, only the real file system applies
		abs, tried, found := withExtensions(osStat, target, r.exts)
		if !found {
			return Resolution{}, true, &NotFoundError{Import: importPath, Tried: tried}
		}
		return Resolution{Path: abs, OnDisk: true}, true, nil
	}

	rel = filepath.ToSlash(rel)
	if found, _, onDisk := withExtensions(r.onDisk, rel, r.exts); onDisk {
		return Resolution{Path: filepath.Join(r.base, filepath.FromSlash(found)), Rel: found, OnDisk: true}, true, nil
	}
	found, tried, inSrc := withExtensions(r.inSource, rel, r.exts)
	if !inSrc {
		return Resolution{}, true, &NotFoundError{Import: importPath, Tried: tried}
	}
	return Resolution{Path: filepath.Join(r.base, filepath.FromSlash(found)), Rel: found}, true, nil
}

func (r *Resolver) onDisk(name string) bool {
	return ftfs.Exists(r.disk, name)
}

func (r *Resolver) inSource(name string) bool {
	return ftfs.Exists(r.src, name)
}

func osStat(name string) bool {
	fi, err := os.Stat(name)
	return err == nil && fi.Mode().IsRegular()
}

// withExtensions tries name with each extension in order, then name/index with each
// extension. The empty extension stands for the name as given.
func withExtensions(exists func(string) bool, name string, exts []string) (string, []string, bool) {
	if len(exts) == 0 {
		exts = []string{""}
	}
	var tried []string
	try := func(c string) bool {
		tried = append(tried, c)
		return exists(c)
	}
	for _, ext := range exts {
		if try(name + ext) {
			return name + ext, tried, true
		}
	}

	join := path.Join
	if filepath.IsAbs(name) {
		join = filepath.Join
	}
	index := join(name, "index")
	for _, ext := range exts {
		if ext != "" && try(index+ext) {
			return index + ext, tried, true
		}
	}
	return "", tried, false
}
