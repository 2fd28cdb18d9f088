package vm

import (
	"errors"
	"io"
	"os"
	"sort"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("oosh.vm")

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds VM configuration.
type Config struct {
	Stdout   io.Writer // method output (defaults to os.Stdout)
	Stderr   io.Writer // default exception handler output (defaults to os.Stderr)
	DBPath   string    // SQLite store for persisted objects; empty disables persistence
	MaxDepth int       // maximum nested activations; <= 0 disables the check
	Shell    string    // shell used for host commands
}

// DefaultMaxDepth bounds nested method activations.
const DefaultMaxDepth = 10000

// DefaultConfig returns a configuration with default values. OOSH_DB names
// the persistence database and OOSH_SHELL overrides the host shell.
func DefaultConfig() *Config {
	shell := os.Getenv("OOSH_SHELL")
	if shell == "" {
		shell = "sh"
	}
	return &Config{
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		DBPath:   os.Getenv("OOSH_DB"),
		MaxDepth: DefaultMaxDepth,
		Shell:    shell,
	}
}

// ---------------------------------------------------------------------------
// VM
// ---------------------------------------------------------------------------

// VM is a single-threaded object runtime: the declaration tables, the object
// space, the context stack and the exception handler table.
//
// A VM is not safe for concurrent use.
type VM struct {
	Classes *ClassTable
	Traits  *TraitTable
	Objects *ObjectSpace

	resolved    map[string]*Class
	resolvedGen uint64

	frames []*Frame
	trace  []string

	handlers       map[string][]Handler
	pendingTry     *TryBlock
	defaultHandler Handler
	faulting       int

	out         io.Writer
	stderr      io.Writer
	shell       string
	maxDepth    int
	persistence *Persistence
}

// NewVM creates a VM with the root Object class and the built-in exception
// classes declared. A nil config uses DefaultConfig.
func NewVM(cfg *Config) (*VM, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	vm := &VM{
		Classes:        NewClassTable(),
		Traits:         NewTraitTable(),
		Objects:        NewObjectSpace(),
		resolved:       make(map[string]*Class),
		handlers:       make(map[string][]Handler),
		defaultHandler: HandlerFunc(defaultHandler),
		out:            cfg.Stdout,
		stderr:         cfg.Stderr,
		shell:          cfg.Shell,
		maxDepth:       cfg.MaxDepth,
	}
	if vm.out == nil {
		vm.out = os.Stdout
	}
	if vm.stderr == nil {
		vm.stderr = os.Stderr
	}
	if vm.shell == "" {
		vm.shell = "sh"
	}

	if cfg.DBPath != "" {
		p, err := NewPersistence(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		vm.persistence = p
		vm.Objects.SetPersistence(p)
	}

	vm.bootstrap()
	log.Debugf("vm ready (%d classes)", vm.Classes.Len())
	return vm, nil
}

// bootstrap declares the classes every program can rely on.
func (vm *VM) bootstrap() {
	vm.Declare(objectClassDecl())
	for _, d := range exceptionClassDecls() {
		vm.Declare(d)
	}
}

// Declare registers a class, trait or decorator declaration. Redeclaring a
// name replaces the previous declaration; live objects pick up the new
// attribute list on their next dispatch.
func (vm *VM) Declare(d *ClassDecl) {
	switch d.Kind {
	case KindTrait:
		vm.Traits.Register(d)
	default:
		vm.Classes.Register(d)
	}
	log.Debugf("declared %s %s", d.Kind, d.Name)
}

// Close writes every modified object to the persistent store and releases it.
func (vm *VM) Close() error {
	if vm.persistence == nil {
		return nil
	}
	err := vm.persistence.SaveAll(vm.Objects.All())
	return errors.Join(err, vm.persistence.Close())
}

// Persistence returns the attached store, or nil.
func (vm *VM) Persistence() *Persistence {
	return vm.persistence
}

// Output returns the current output channel.
func (vm *VM) Output() io.Writer {
	return vm.out
}

// SetOutput replaces the output channel and returns the previous one.
func (vm *VM) SetOutput(w io.Writer) io.Writer {
	prev := vm.out
	vm.out = w
	return prev
}

// SetDefaultHandler replaces the handler used for exceptions nobody catches.
func (vm *VM) SetDefaultHandler(h Handler) {
	if h == nil {
		h = HandlerFunc(defaultHandler)
	}
	vm.defaultHandler = h
}

// ClassNames returns every declared class and trait name, sorted.
func (vm *VM) ClassNames() []string {
	names := append(vm.Classes.Names(), vm.Traits.Names()...)
	sort.Strings(names)
	return names
}
