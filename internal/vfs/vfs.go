// Package vfs resolves logical model and texture names to file contents.
//
// Names are matched case-insensitively with forward slashes, the way game
// archives address their lumps.
package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

var ErrBadHandle = errors.New("vfs: invalid handle")

// Handle identifies one file in a FileSystem. Valid handles are >= 0.
type Handle int

const NoHandle Handle = -1

// FileSystem is what loaders need from a file collaborator.
type FileSystem interface {
	// Find returns the handle for a full logical name, or false.
	Find(name string) (Handle, bool)
	ReadFile(h Handle) ([]byte, error)
	Length(h Handle) int64
	FullName(h Handle) string
}

// Normalize folds a logical name into its lookup key: backslashes become
// slashes, duplicate and leading slashes and "." segments are dropped, and
// the result is lower case.
func Normalize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return ""
	}
	return strings.ToLower(path.Clean(name))
}

type entry struct {
	name string // as found on disk
	size int64
}

// Index is a FileSystem over an fs.FS, built by walking it once.
type Index struct {
	fsys    fs.FS
	entries []entry
	byName  map[string]Handle // Normalize(name) → handle
}

// Open indexes a directory tree.
func Open(dir string) (*Index, error) {
	idx, err := New(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("vfs: open %s: %w", dir, err)
	}
	return idx, nil
}

// New indexes every regular file of fsys.
func New(fsys fs.FS) (*Index, error) {
	idx := &Index{fsys: fsys, byName: make(map[string]Handle)}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		key := Normalize(p)
		if _, exists := idx.byName[key]; exists {
			// Two names differing only in case: the first one in walk order wins.
			return nil
		}
		idx.byName[key] = Handle(len(idx.entries))
		idx.entries = append(idx.entries, entry{name: p, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) Find(name string) (Handle, bool) {
	h, ok := idx.byName[Normalize(name)]
	return h, ok
}

func (idx *Index) valid(h Handle) bool {
	return h >= 0 && int(h) < len(idx.entries)
}

func (idx *Index) ReadFile(h Handle) ([]byte, error) {
	if !idx.valid(h) {
		return nil, fmt.Errorf("%w: %d", ErrBadHandle, h)
	}
	data, err := fs.ReadFile(idx.fsys, idx.entries[h].name)
	if err != nil {
		return nil, fmt.Errorf("vfs: read %s: %w", idx.entries[h].name, err)
	}
	return data, nil
}

func (idx *Index) Length(h Handle) int64 {
	if !idx.valid(h) {
		return -1
	}
	return idx.entries[h].size
}

func (idx *Index) FullName(h Handle) string {
	if !idx.valid(h) {
		return ""
	}
	return idx.entries[h].name
}

// Len returns the number of indexed files.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Names returns every indexed file whose name has one of the given
// extensions (with dot, any case). With no extensions it returns all.
func (idx *Index) Names(exts ...string) []string {
	var out []string
	for _, e := range idx.entries {
		if len(exts) == 0 {
			out = append(out, e.name)
			continue
		}
		ext := strings.ToLower(path.Ext(e.name))
		for _, want := range exts {
			if ext == strings.ToLower(want) {
				out = append(out, e.name)
				break
			}
		}
	}
	return out
}
