package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the file extension of oosh scripts and libraries.
const Ext = ".oosh"

// ErrUnknownLibrary is returned when an import name does not resolve.
var ErrUnknownLibrary = errors.New("unknown library")

// SearchPath locates libraries by their two-level name group/name.
// Directories are searched in order for group/name.oosh; groups mounted
// from dependencies are searched first, as dir/name.oosh.
type SearchPath struct {
	dirs   []string
	mounts map[string][]string
}

// NewSearchPath creates a search path over dirs, searched in the given order.
func NewSearchPath(dirs ...string) *SearchPath {
	sp := &SearchPath{mounts: make(map[string][]string)}
	for _, d := range dirs {
		sp.appendDir(d)
	}
	return sp
}

// Add puts dir at the front of the search path. A directory already on the
// path moves to the front.
func (sp *SearchPath) Add(dir string) {
	dir = filepath.Clean(dir)
	sp.remove(dir)
	sp.dirs = append([]string{dir}, sp.dirs...)
	log.Debugf("library path: added %s", dir)
}

// Mount makes the libraries in dirs importable as group/name.
func (sp *SearchPath) Mount(group string, dirs ...string) {
	for _, d := range dirs {
		sp.mounts[group] = append(sp.mounts[group], filepath.Clean(d))
	}
}

// Dirs returns the search directories in search order.
func (sp *SearchPath) Dirs() []string {
	return append([]string(nil), sp.dirs...)
}

// Groups returns the mounted dependency groups.
func (sp *SearchPath) Groups() []string {
	groups := make([]string, 0, len(sp.mounts))
	for g := range sp.mounts {
		groups = append(groups, g)
	}
	return groups
}

// Resolve returns the file for a library name. The name must have exactly
// two non-empty segments.
func (sp *SearchPath) Resolve(name string) (string, error) {
	group, lib, ok := splitLibraryName(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownLibrary, name)
	}
	for _, d := range sp.mounts[group] {
		if p := filepath.Join(d, lib+Ext); isFile(p) {
			return p, nil
		}
	}
	for _, d := range sp.dirs {
		if p := filepath.Join(d, group, lib+Ext); isFile(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownLibrary, name)
}

func (sp *SearchPath) appendDir(dir string) {
	dir = filepath.Clean(dir)
	for _, d := range sp.dirs {
		if d == dir {
			return
		}
	}
	sp.dirs = append(sp.dirs, dir)
}

func (sp *SearchPath) remove(dir string) {
	for i, d := range sp.dirs {
		if d == dir {
			sp.dirs = append(sp.dirs[:i], sp.dirs[i+1:]...)
			return
		}
	}
}

func splitLibraryName(name string) (group, lib string, ok bool) {
	parts := strings.Split(name, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `\`) {
			return "", "", false
		}
	}
	return parts[0], parts[1], true
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
