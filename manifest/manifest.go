// Package manifest handles oosh.toml project configuration and the library
// search path used by import.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("oosh.manifest")

// FileName is the name of the project manifest.
const FileName = "oosh.toml"

// Manifest represents an oosh.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Library      Library               `toml:"library"`
	Dependencies map[string]Dependency `toml:"dependencies"`
	Runtime      Runtime               `toml:"runtime"`
	Log          Log                   `toml:"log"`

	// Dir is the directory containing the oosh.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"` // script run when none is given
	Group   string `toml:"group"` // import group when used as a dependency
}

// Library configures library directories searched by import.
type Library struct {
	Paths []string `toml:"paths"`
}

// Dependency is another project whose libraries are imported as group/name.
type Dependency struct {
	Git   string `toml:"git"`
	Tag   string `toml:"tag"`
	Path  string `toml:"path"`
	Group string `toml:"group"`
}

// Runtime configures the VM.
type Runtime struct {
	DB       string `toml:"db"`
	Image    string `toml:"image"`
	MaxDepth int    `toml:"max-depth"`
	Shell    string `toml:"shell"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Load parses an oosh.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Library.Paths) == 0 {
		m.Library.Paths = []string{"lib"}
	}

	log.Debugf("loaded %s", path)
	return &m, nil
}

// FindAndLoad walks up from startDir to find an oosh.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// LibraryPaths returns absolute paths for the configured library directories.
func (m *Manifest) LibraryPaths() []string {
	return m.resolvePaths(m.Library.Paths)
}

// EntryPath returns the absolute path of the entry script, or "" when none
// is configured.
func (m *Manifest) EntryPath() string {
	if m.Project.Entry == "" {
		return ""
	}
	return m.resolve(m.Project.Entry)
}

// DBPath returns the absolute path of the configured database, or "".
// ":memory:" is returned unchanged.
func (m *Manifest) DBPath() string {
	if m.Runtime.DB == "" || m.Runtime.DB == ":memory:" {
		return m.Runtime.DB
	}
	return m.resolve(m.Runtime.DB)
}

// ImagePath returns the absolute path of the configured image, or "".
func (m *Manifest) ImagePath() string {
	if m.Runtime.Image == "" {
		return ""
	}
	return m.resolve(m.Runtime.Image)
}

// DepsDir returns the path to the .oosh/deps directory.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".oosh", "deps")
}

// LockFilePath returns the path to .oosh/lock.toml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".oosh", "lock.toml")
}

func (m *Manifest) resolvePaths(rel []string) []string {
	paths := make([]string, 0, len(rel))
	for _, p := range rel {
		paths = append(paths, m.resolve(p))
	}
	return paths
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
