// Package catalog lists the record files of a directory in navigation order.
package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/scanlabel/internal/fsutil"
)

// DefaultExt is the record-file extension recognised by List.
const DefaultExt = ".txt"

// Catalog is a sorted listing of the record files in one directory.
// It is rebuilt with List whenever the directory changes; it is never patched.
type Catalog struct {
	dir   string
	names []string
}

// List returns the regular files in dir whose name ends in ext (DefaultExt
// when ext is empty), sorted lexicographically ascending. Symlinks count when
// their target is a regular file. The order is the navigation order and is
// stable for an unchanged directory.
func List(fsys fsutil.FileSystem, dir, ext string) (*Catalog, error) {
	if ext == "" {
		ext = DefaultExt
	}

	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	c := &Catalog{dir: dir}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		if !isRegular(fsys, dir, e) {
			continue
		}
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)

	return c, nil
}

// Dir returns the directory the catalog was built from.
func (c *Catalog) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Len returns the number of entries. A nil catalog is empty.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Empty reports whether the catalog has no entries.
func (c *Catalog) Empty() bool { return c.Len() == 0 }

// Name returns the file name at position i.
func (c *Catalog) Name(i int) string { return c.names[i] }

// Path returns the full path of the entry at position i.
func (c *Catalog) Path(i int) string { return filepath.Join(c.dir, c.names[i]) }

// Names returns a copy of the sorted file names.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// PositionOf returns the position of name, or -1 if it is not listed.
func (c *Catalog) PositionOf(name string) int {
	if c == nil {
		return -1
	}
	for i, n := range c.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Wrap moves i by delta positions modulo n, wrapping in both directions.
// It returns -1 when n is zero.
func Wrap(i, delta, n int) int {
	if n <= 0 {
		return -1
	}
	return ((i+delta)%n + n) % n
}

func isRegular(fsys fsutil.FileSystem, dir string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	info, err := fsys.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}
