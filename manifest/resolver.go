package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ResolvedDep represents a dependency that has been resolved to a local path.
type ResolvedDep struct {
	Name      string    // dependency name
	Group     string    // import group of its libraries
	LocalPath string    // local filesystem path
	Manifest  *Manifest // the dependency's own manifest (may be nil)
	Dep       Dependency
}

// LibraryDirs returns the directories holding the dependency's libraries:
// the library paths of its manifest, or lib/ when it has none.
func (rd *ResolvedDep) LibraryDirs() []string {
	if rd.Manifest != nil {
		return rd.Manifest.LibraryPaths()
	}
	return []string{filepath.Join(rd.LocalPath, "lib")}
}

// Resolver manages dependency resolution.
type Resolver struct {
	manifest *Manifest
	lock     *LockFile
}

// NewResolver creates a new dependency resolver.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve resolves all dependencies and returns them in load order
// (dependencies before dependents).
func (r *Resolver) Resolve() ([]ResolvedDep, error) {
	if len(r.manifest.Dependencies) == 0 {
		return nil, nil
	}

	lock, err := ReadLock(r.manifest.LockFilePath())
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	r.lock = lock

	resolved := make(map[string]*ResolvedDep)
	order, err := r.resolveAll(r.manifest.Dir, r.manifest.Dependencies, resolved)
	if err != nil {
		return nil, err
	}

	if err := r.writeLock(resolved); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return order, nil
}

// MountAll resolves the dependencies and mounts each one's libraries on sp
// under its group.
func (r *Resolver) MountAll(sp *SearchPath) error {
	deps, err := r.Resolve()
	if err != nil {
		return err
	}
	for i := range deps {
		sp.Mount(deps[i].Group, deps[i].LibraryDirs()...)
		log.Infof("dependency %s mounted as %s", deps[i].Name, deps[i].Group)
	}
	return nil
}

// resolveAll resolves a set of dependencies recursively, in name order.
// Relative paths are taken from base, the directory of the declaring manifest.
func (r *Resolver) resolveAll(base string, deps map[string]Dependency, resolved map[string]*ResolvedDep) ([]ResolvedDep, error) {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var order []ResolvedDep
	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue
		}

		rd, err := r.resolveOne(base, name, deps[name])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		resolved[name] = rd

		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			transitive, err := r.resolveAll(rd.LocalPath, rd.Manifest.Dependencies, resolved)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}
		order = append(order, *rd)
	}
	return order, nil
}

func (r *Resolver) resolveOne(base, name string, dep Dependency) (*ResolvedDep, error) {
	var localPath string
	switch {
	case dep.Path != "":
		localPath = dep.Path
		if !filepath.IsAbs(localPath) {
			localPath = filepath.Join(base, localPath)
		}
		if _, err := os.Stat(localPath); err != nil {
			return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
		}

	case dep.Git != "":
		localPath = filepath.Join(r.manifest.DepsDir(), name)
		if err := r.fetchGit(localPath, name, dep); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("dependency %q has no git or path specified", name)
	}

	var depManifest *Manifest
	if isFile(filepath.Join(localPath, FileName)) {
		m, err := Load(localPath)
		if err != nil {
			return nil, err
		}
		depManifest = m
	}

	group, err := resolveGroup(name, dep, depManifest)
	if err != nil {
		return nil, err
	}
	return &ResolvedDep{
		Name:      name,
		Group:     group,
		LocalPath: localPath,
		Manifest:  depManifest,
		Dep:       dep,
	}, nil
}

// fetchGit clones a git dependency, or fetches it when the locked tag
// differs from the requested one, then checks out the tag.
func (r *Resolver) fetchGit(dir, name string, dep Dependency) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
			return fmt.Errorf("creating deps dir: %w", err)
		}
		log.Infof("cloning %s from %s", name, dep.Git)
		if err := gitClone(dep.Git, dir); err != nil {
			return err
		}
	} else if locked := r.lock.FindLockedDep(name); locked == nil || locked.Tag != dep.Tag {
		log.Infof("fetching %s", name)
		if err := gitFetch(dir); err != nil {
			return err
		}
	}
	if dep.Tag != "" {
		return gitCheckout(dir, dep.Tag)
	}
	return nil
}

// writeLock writes the resolved dependencies to the lock file.
func (r *Resolver) writeLock(resolved map[string]*ResolvedDep) error {
	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)

	lf := &LockFile{}
	for _, name := range names {
		rd := resolved[name]
		ld := LockedDep{Name: rd.Name}
		if rd.Dep.Git != "" {
			ld.Git = rd.Dep.Git
			ld.Tag = rd.Dep.Tag
			if commit, err := gitCurrentCommit(rd.LocalPath); err == nil {
				ld.Commit = commit
			}
		} else {
			ld.Path = rd.LocalPath
		}
		lf.Deps = append(lf.Deps, ld)
	}

	if err := os.MkdirAll(filepath.Dir(r.manifest.LockFilePath()), 0755); err != nil {
		return err
	}
	return WriteLock(r.manifest.LockFilePath(), lf)
}
