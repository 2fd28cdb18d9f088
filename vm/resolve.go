package vm

import "fmt"

// RootClassName is the class every class without an explicit parent inherits.
const RootClassName = "Object"

// ResolveError reports a declaration that could not be resolved.
type ResolveError struct {
	Kind   ClassKind
	Name   string
	Reason string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Name, e.Reason)
}

// resolver carries the state of one resolution pass.
type resolver struct {
	vm        *VM
	resolving map[string]bool
}

// Resolve returns the resolved form of the named class: the parent chain is
// resolved first, then the class's traits, then its own body, then every
// decorator targeting it. Later declarations overwrite same-named methods.
//
// Results are cached until a class, decorator or trait is registered.
func (vm *VM) Resolve(name string) (*Class, error) {
	gen := vm.generation()
	if vm.resolvedGen != gen {
		vm.resolved = make(map[string]*Class)
		vm.resolvedGen = gen
	}
	r := &resolver{vm: vm, resolving: make(map[string]bool)}
	return r.resolve(name)
}

// ResolveTrait resolves a trait on its own, using the same composition rules
// as classes. The result has no parent and is never instantiated.
func (vm *VM) ResolveTrait(name string) (*Class, error) {
	if vm.Traits.Lookup(name) == nil {
		return nil, &ResolveError{Kind: KindTrait, Name: name, Reason: "undefined trait"}
	}
	c := &Class{Name: name, generation: vm.generation()}
	c.VTable = NewVTable(c, nil)
	r := &resolver{vm: vm, resolving: make(map[string]bool)}
	if err := r.includeTrait(c, name, make(map[string]bool)); err != nil {
		return nil, err
	}
	c.Decl = vm.Traits.Lookup(name)
	return c, nil
}

func (vm *VM) generation() uint64 {
	return vm.Classes.Generation() + vm.Traits.Generation()
}

func (r *resolver) resolve(name string) (*Class, error) {
	if c := r.vm.resolved[name]; c != nil {
		return c, nil
	}
	decl := r.vm.Classes.Lookup(name)
	if decl == nil {
		return nil, &ResolveError{Kind: KindClass, Name: name, Reason: "undefined class"}
	}
	if r.resolving[name] {
		return nil, &ResolveError{Kind: KindClass, Name: name, Reason: "inheritance cycle"}
	}
	r.resolving[name] = true
	defer delete(r.resolving, name)

	parentName := decl.Parent
	if parentName == "" && name != RootClassName {
		parentName = RootClassName
	}

	c := &Class{Name: name, Decl: decl, generation: r.vm.resolvedGen}
	var parentVT *VTable
	if parentName != "" {
		parent, err := r.resolve(parentName)
		if err != nil {
			return nil, err
		}
		c.Parent = parent
		parentVT = parent.VTable
		c.Attributes = append([]AttributeDecl(nil), parent.Attributes...)
	}
	c.VTable = NewVTable(c, parentVT)

	seen := make(map[string]bool)
	for _, t := range decl.Traits {
		if err := r.includeTrait(c, t, seen); err != nil {
			return nil, err
		}
	}
	applyBody(c, decl)

	for _, d := range r.vm.Classes.DecoratorsFor(name) {
		for _, t := range d.Traits {
			if err := r.includeTrait(c, t, seen); err != nil {
				return nil, err
			}
		}
		applyBody(c, d)
	}

	r.vm.resolved[name] = c
	log.Debugf("resolved %s (parent %q, %d methods, %d attributes)",
		name, parentName, c.VTable.MethodCount(), len(c.Attributes))
	return c, nil
}

// applyBody folds one declaration body into a class under construction.
func applyBody(c *Class, d *ClassDecl) {
	c.Attributes = append(c.Attributes, d.Attributes...)
	for _, m := range d.Methods {
		c.VTable.Define(&Method{
			Name:       m.Name,
			Visibility: m.Visibility,
			Owner:      d.Name,
			Class:      c,
			Fn:         m.Fn,
		})
	}
}
