// Package mountfs composes several fs.FS instances into one, each mounted
// under its own directory prefix.
package mountfs

import (
	"io"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"
	"time"
)

// A MountFS maps directory prefixes to the file systems mounted there.
//
// Parent directories of mount points are synthesized. When mounts are
// nested, the longest matching prefix wins. The map must not change while
// the file system is in use.
type MountFS map[string]fs.FS

var _ fs.FS = MountFS(nil)

func New(m map[string]fs.FS) MountFS {
	return m
}

// Open opens the named file, delegating to the file system mounted at the
// longest prefix of name.
func (fsys MountFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	if mnt, rest, ok := fsys.lookup(name); ok {
		if rest == "." {
			return &mountDir{info: dirInfo(path.Base(name)), fsys: fsys[mnt]}, nil
		}
		return fsys[mnt].Open(rest)
	}

	children := fsys.children(name)
	if len(children) == 0 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	entries := make([]fs.DirEntry, 0, len(children))
	for _, c := range children {
		entries = append(entries, fs.FileInfoToDirEntry(dirInfo(c)))
	}
	return &synthDir{info: dirInfo(path.Base(name)), entries: entries}, nil
}

func (fsys MountFS) lookup(name string) (string, string, bool) {
	var best string
	found := false
	for mnt := range fsys {
		if mnt == "." {
			continue
		}
		if (name == mnt || strings.HasPrefix(name, mnt+"/")) && len(mnt) >= len(best) {
			best, found = mnt, true
		}
	}
	if !found {
		return "", "", false
	}
	if name == best {
		return best, ".", true
	}
	return best, name[len(best)+1:], true
}

// children lists the synthesized subdirectories of dir, which lead to at
// least one mount point.
func (fsys MountFS) children(dir string) []string {
	prefix := dir + "/"
	if dir == "." {
		prefix = ""
	}
	set := map[string]struct{}{}
	for mnt := range fsys {
		if !strings.HasPrefix(mnt, prefix) || mnt == "." {
			continue
		}
		elem, _, _ := strings.Cut(mnt[len(prefix):], "/")
		set[elem] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

type dirInfo string

func (d dirInfo) Name() string     { return string(d) }
func (dirInfo) Size() int64        { return 0 }
func (dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (dirInfo) ModTime() time.Time { return time.Time{} }
func (dirInfo) IsDir() bool        { return true }
func (dirInfo) Sys() any           { return nil }

// synthDir is a directory that only exists because mounts live below it.
type synthDir struct {
	info    dirInfo
	entries []fs.DirEntry
	offset  int
}

func (d *synthDir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (*synthDir) Close() error                 { return nil }
func (d *synthDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: string(d.info), Err: fs.ErrInvalid}
}

func (d *synthDir) ReadDir(count int) ([]fs.DirEntry, error) {
	n := len(d.entries) - d.offset
	if n == 0 && count > 0 {
		return nil, io.EOF
	}
	if count > 0 && n > count {
		n = count
	}
	list := d.entries[d.offset : d.offset+n]
	d.offset += n
	return list, nil
}

// mountDir is the root directory of a mounted file system.
type mountDir struct {
	info dirInfo
	fsys fs.FS
}

func (d *mountDir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (*mountDir) Close() error                 { return nil }
func (d *mountDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: string(d.info), Err: fs.ErrInvalid}
}

func (d *mountDir) ReadDir(int) ([]fs.DirEntry, error) {
	return fs.ReadDir(d.fsys, ".") // NB: count is ignored, callers read mount roots in one go.
}
