package vm

import "sort"

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// ClassKind distinguishes the three kinds of declaration bodies.
type ClassKind int

const (
	KindClass     ClassKind = iota // instantiable class
	KindTrait                      // mixed into classes, never instantiated
	KindDecorator                  // applied after its target resolves
)

func (k ClassKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindTrait:
		return "trait"
	case KindDecorator:
		return "decorator"
	default:
		return "kind?"
	}
}

// MethodFunc is the implementation of a method. Output goes to s.Out().
// A non-nil error that is not an *ExitError is treated as a failed host
// instruction.
type MethodFunc func(s *Self, args []string) error

// MethodDecl declares a method in a class, trait or decorator body.
type MethodDecl struct {
	Name       string
	Visibility Visibility
	Fn         MethodFunc
}

// AttributeDecl declares an attribute. When Init is set it is evaluated in
// the constructing frame and its result replaces Default.
type AttributeDecl struct {
	Name       string
	Visibility Visibility
	Default    Value
	Init       func(s *Self) (Value, error)
}

// ClassDecl is the declared body of a class, trait or decorator.
type ClassDecl struct {
	Name      string
	Kind      ClassKind
	Parent    string   // explicit parent class (classes only)
	Traits    []string // traits mixed in, in order
	Decorates string   // target class (decorators only)

	Attributes []AttributeDecl
	Methods    []MethodDecl
}

// ---------------------------------------------------------------------------
// Class: a resolved class
// ---------------------------------------------------------------------------

// Class is a fully resolved class: its parent chain, traits, own body and
// decorators folded into one method table and one ordered descriptor list.
// Classes are rebuilt whenever the declaration tables change.
type Class struct {
	Name       string
	Parent     *Class
	Decl       *ClassDecl
	VTable     *VTable
	Attributes []AttributeDecl // base -> derived, in declaration order

	generation uint64
}

// IsSubclassOf returns true if c is the named class or inherits from it.
func (c *Class) IsSubclassOf(name string) bool {
	for current := c; current != nil; current = current.Parent {
		if current.Name == name {
			return true
		}
	}
	return false
}

// Superclasses returns all superclasses from immediate parent to root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.Parent; current != nil; current = current.Parent {
		result = append(result, current)
	}
	return result
}

// Depth returns the inheritance depth (0 for the root class).
func (c *Class) Depth() int {
	depth := 0
	for current := c.Parent; current != nil; current = current.Parent {
		depth++
	}
	return depth
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.Name
}

// ---------------------------------------------------------------------------
// ClassTable: class and decorator registry
// ---------------------------------------------------------------------------

// ClassTable holds class and decorator declarations by name. Decorators are
// additionally indexed by the class they decorate, in registration order.
type ClassTable struct {
	classes    map[string]*ClassDecl
	decorators map[string]*ClassDecl
	byTarget   map[string][]string
	generation uint64
}

// NewClassTable creates an empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes:    make(map[string]*ClassDecl),
		decorators: make(map[string]*ClassDecl),
		byTarget:   make(map[string][]string),
	}
}

// Register adds a class or decorator declaration, replacing any previous
// declaration of the same name. Returns the replaced declaration, or nil.
func (ct *ClassTable) Register(d *ClassDecl) *ClassDecl {
	ct.generation++
	if d.Kind == KindDecorator {
		old := ct.decorators[d.Name]
		if old != nil {
			ct.removeTarget(old.Decorates, old.Name)
		}
		ct.decorators[d.Name] = d
		ct.byTarget[d.Decorates] = append(ct.byTarget[d.Decorates], d.Name)
		return old
	}
	old := ct.classes[d.Name]
	ct.classes[d.Name] = d
	return old
}

func (ct *ClassTable) removeTarget(target, name string) {
	names := ct.byTarget[target]
	for i, n := range names {
		if n == name {
			ct.byTarget[target] = append(names[:i:i], names[i+1:]...)
			return
		}
	}
}

// Lookup finds a class declaration by name.
func (ct *ClassTable) Lookup(name string) *ClassDecl {
	return ct.classes[name]
}

// Has returns true if a class with this name is declared.
func (ct *ClassTable) Has(name string) bool {
	_, ok := ct.classes[name]
	return ok
}

// DecoratorsFor returns the decorators targeting a class in registration order.
func (ct *ClassTable) DecoratorsFor(target string) []*ClassDecl {
	names := ct.byTarget[target]
	result := make([]*ClassDecl, 0, len(names))
	for _, n := range names {
		result = append(result, ct.decorators[n])
	}
	return result
}

// Names returns all declared class names, sorted.
func (ct *ClassTable) Names() []string {
	names := make([]string, 0, len(ct.classes))
	for n := range ct.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of declared classes (decorators excluded).
func (ct *ClassTable) Len() int {
	return len(ct.classes)
}

// Generation changes every time a declaration is registered.
func (ct *ClassTable) Generation() uint64 {
	return ct.generation
}
