package compiler

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/chazu/oosh/manifest"
	"github.com/chazu/oosh/vm"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("oosh.compiler")

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseError collects every syntax and semantic error of one source file.
type ParseError struct {
	File   string
	Errors []string
}

func (e *ParseError) Error() string {
	lines := make([]string, len(e.Errors))
	for i, msg := range e.Errors {
		lines[i] = e.File + ": " + msg
	}
	return strings.Join(lines, "\n")
}

// Parse parses and checks a source file. Warnings are logged; errors are
// returned together as a *ParseError.
func Parse(name, src string) (*SourceFile, error) {
	p := NewParser(src)
	f := p.ParseSourceFile()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &ParseError{File: name, Errors: errs}
	}

	sa := NewSemanticAnalyzer()
	sa.AnalyzeFile(f)
	for _, w := range sa.Warnings() {
		log.Warningf("%s: %s", name, w)
	}
	if errs := sa.Errors(); len(errs) > 0 {
		return nil, &ParseError{File: name, Errors: errs}
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// Session runs oosh source against one VM. It owns the library search path,
// the set of imported libraries and the top-level variables, which persist
// across RunString calls.
type Session struct {
	VM   *vm.VM
	Path *manifest.SearchPath

	loaded  map[string]string // library name -> file
	globals *env
}

// NewSession creates a session on v. A nil path searches nothing until
// directories are added.
func NewSession(v *vm.VM, path *manifest.SearchPath) *Session {
	if path == nil {
		path = manifest.NewSearchPath()
	}
	return &Session{
		VM:      v,
		Path:    path,
		loaded:  make(map[string]string),
		globals: newEnv(),
	}
}

// Define sets a top-level variable.
func (s *Session) Define(name, value string) {
	s.globals.define(name, value)
}

// Lookup returns a top-level variable.
func (s *Session) Lookup(name string) (string, bool) {
	return s.globals.lookup(name)
}

// RunString parses and runs src. Parse errors are returned before anything
// runs. Runtime termination is returned as a *vm.ExitError.
func (s *Session) RunString(name, src string) error {
	f, err := Parse(name, src)
	if err != nil {
		return err
	}
	log.Debugf("running %s: %d statements", name, len(f.Statements))
	return s.VM.Run(func() error {
		in := &interp{sess: s, vm: s.VM, env: s.globals, file: name}
		_, err := in.execBlock(f.Statements)
		return err
	})
}

// RunFile reads and runs a script.
func (s *Session) RunFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	return s.RunString(path, string(src))
}

// Import loads a library at most once. A name that does not resolve throws
// UnknownLibraryException. Libraries run with their own top-level
// variables; their declarations are shared through the VM.
func (s *Session) Import(name string) error {
	if _, ok := s.loaded[name]; ok {
		return nil
	}
	path, err := s.Path.Resolve(name)
	if err != nil {
		log.Debugf("import %s: %s", name, err)
		return s.VM.Throw(vm.UnknownLibraryException, name)
	}
	// Marked before running so that import cycles terminate.
	s.loaded[name] = path

	src, err := os.ReadFile(path)
	if err != nil {
		return s.VM.Fault("import "+name, err)
	}
	f, err := Parse(path, string(src))
	if err != nil {
		return s.VM.Fault("import "+name, err)
	}
	log.Infof("importing %s from %s", name, path)
	in := &interp{sess: s, vm: s.VM, env: newEnv(), file: path}
	_, err = in.execBlock(f.Statements)
	return err
}

// Loaded returns the imported library names in sorted order.
func (s *Session) Loaded() []string {
	names := make([]string, 0, len(s.loaded))
	for name := range s.loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
