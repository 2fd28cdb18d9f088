package vm

import "sort"

// Method is a method installed in a resolved class.
type Method struct {
	Name       string
	Visibility Visibility
	Owner      string // class, trait or decorator that declared it
	Class      *Class // resolved class the body was folded into; parent calls start above it
	Fn         MethodFunc
}

// VTable holds the method dispatch table for a resolved class.
//
// The table is flattened at resolution time: it starts as a copy of the
// parent's table and every later declaration overwrites same-named entries,
// so dispatch never walks the inheritance chain. Public and private methods
// live in separate maps; a name is present in at most one of them.
type VTable struct {
	class   *Class
	public  map[string]*Method
	private map[string]*Method
}

// NewVTable creates a vtable for a class, seeded from the parent's entries.
func NewVTable(class *Class, parent *VTable) *VTable {
	vt := &VTable{
		class:   class,
		public:  make(map[string]*Method),
		private: make(map[string]*Method),
	}
	if parent != nil {
		for name, m := range parent.public {
			vt.public[name] = m
		}
		for name, m := range parent.private {
			vt.private[name] = m
		}
	}
	return vt
}

// Define installs a method, replacing any same-named method of either visibility.
func (vt *VTable) Define(m *Method) {
	delete(vt.public, m.Name)
	delete(vt.private, m.Name)
	if m.Visibility == Private {
		vt.private[m.Name] = m
	} else {
		vt.public[m.Name] = m
	}
}

// LookupPublic finds a public method.
func (vt *VTable) LookupPublic(name string) *Method {
	return vt.public[name]
}

// Lookup finds a method reachable with the given access. Public methods are
// always reachable; private ones only with internal access.
func (vt *VTable) Lookup(name string, internal bool) *Method {
	if m := vt.public[name]; m != nil {
		return m
	}
	if internal {
		return vt.private[name]
	}
	return nil
}

// HasMethod returns true if the vtable has a method of either visibility.
func (vt *VTable) HasMethod(name string) bool {
	return vt.Lookup(name, true) != nil
}

// Class returns the class this vtable belongs to.
func (vt *VTable) Class() *Class {
	return vt.class
}

// MethodNames returns the sorted names of methods with the given visibility.
func (vt *VTable) MethodNames(vis Visibility) []string {
	src := vt.public
	if vis == Private {
		src = vt.private
	}
	names := make([]string, 0, len(src))
	for n := range src {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MethodCount returns the number of installed methods.
func (vt *VTable) MethodCount() int {
	return len(vt.public) + len(vt.private)
}
