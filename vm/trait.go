package vm

import "sort"

// ---------------------------------------------------------------------------
// TraitTable: trait registry
// ---------------------------------------------------------------------------

// TraitTable manages trait declarations by name. Traits carry attributes and
// methods but no identity and no parent.
type TraitTable struct {
	traits     map[string]*ClassDecl
	generation uint64
}

// NewTraitTable creates a new empty trait table.
func NewTraitTable() *TraitTable {
	return &TraitTable{
		traits: make(map[string]*ClassDecl),
	}
}

// Register adds a trait to the table.
// Returns the previous trait with this name, or nil.
func (tt *TraitTable) Register(t *ClassDecl) *ClassDecl {
	tt.generation++
	old := tt.traits[t.Name]
	tt.traits[t.Name] = t
	return old
}

// Lookup finds a trait by name.
func (tt *TraitTable) Lookup(name string) *ClassDecl {
	return tt.traits[name]
}

// Has returns true if a trait with this name is registered.
func (tt *TraitTable) Has(name string) bool {
	_, ok := tt.traits[name]
	return ok
}

// Names returns all registered trait names, sorted.
func (tt *TraitTable) Names() []string {
	names := make([]string, 0, len(tt.traits))
	for n := range tt.traits {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered traits.
func (tt *TraitTable) Len() int {
	return len(tt.traits)
}

// Generation changes every time a trait is registered.
func (tt *TraitTable) Generation() uint64 {
	return tt.generation
}

// ---------------------------------------------------------------------------
// Trait composition
// ---------------------------------------------------------------------------

// includeTrait mixes a trait into a class under construction. Traits may
// themselves use other traits; those are applied first. Unlike the class
// body, a trait is applied before the body so the class's own declarations win.
func (r *resolver) includeTrait(c *Class, name string, seen map[string]bool) error {
	t := r.vm.Traits.Lookup(name)
	if t == nil {
		return &ResolveError{Kind: KindTrait, Name: name, Reason: "undefined trait"}
	}
	if seen[name] {
		return &ResolveError{Kind: KindTrait, Name: name, Reason: "trait includes itself"}
	}
	seen[name] = true
	defer delete(seen, name)

	for _, inner := range t.Traits {
		if err := r.includeTrait(c, inner, seen); err != nil {
			return err
		}
	}
	applyBody(c, t)
	return nil
}
