package vm

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Ref: object references
// ---------------------------------------------------------------------------

// Ref is a reference to an object: the class it was created from and its
// identity. References are plain values; their textual form Class:ID can be
// stored in attributes and passed as method arguments.
type Ref struct {
	Class string
	ID    string
}

// String returns the textual form of the reference.
func (r Ref) String() string {
	return r.Class + ":" + r.ID
}

// IsZero returns true for the zero reference.
func (r Ref) IsZero() bool {
	return r.Class == "" && r.ID == ""
}

// ParseRef parses the textual form of a reference. The identity part must
// be a well-formed UUID.
func ParseRef(s string) (Ref, error) {
	class, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || class == "" {
		return Ref{}, fmt.Errorf("malformed object reference %q", s)
	}
	if !ValidIdentity(id) {
		return Ref{}, fmt.Errorf("malformed object identity %q", id)
	}
	return Ref{Class: class, ID: id}, nil
}

// ValidIdentity reports whether id is a well-formed object identity.
func ValidIdentity(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// newIdentity mints a fresh identity. Identities are never reused.
func newIdentity() string {
	return uuid.New().String()
}

// ---------------------------------------------------------------------------
// Object: per-object attribute record
// ---------------------------------------------------------------------------

type attrKey struct {
	name string
	vis  Visibility
}

// Attribute is one attribute cell of an object.
type Attribute struct {
	Name       string
	Visibility Visibility
	Value      Value
}

// Object owns the attribute record of one identity.
//
// Cells are keyed by (name, visibility) and kept in declaration order.
// The record is created empty by New; cells appear on first dispatch.
type Object struct {
	ID    string
	Class string

	cells map[attrKey]*Attribute
	order []attrKey

	constructed bool
	destroyed   bool
	declaredGen uint64
	dirty       bool
}

// NewObject creates an empty record for an identity.
func NewObject(class, id string) *Object {
	return &Object{
		ID:    id,
		Class: class,
		cells: make(map[attrKey]*Attribute),
	}
}

// Ref returns a reference to this object.
func (o *Object) Ref() Ref {
	return Ref{Class: o.Class, ID: o.ID}
}

// Constructed reports whether the object's first dispatch has run.
func (o *Object) Constructed() bool {
	return o.constructed
}

// Destroyed reports whether destruct has run on the object.
func (o *Object) Destroyed() bool {
	return o.destroyed
}

// declare creates a cell if none exists for (name, visibility).
// Returns true if a cell was created.
func (o *Object) declare(name string, vis Visibility, v Value) bool {
	key := attrKey{name, vis}
	if _, ok := o.cells[key]; ok {
		return false
	}
	o.cells[key] = &Attribute{Name: name, Visibility: vis, Value: v}
	o.order = append(o.order, key)
	o.dirty = true
	return true
}

// has reports whether a cell exists for (name, visibility).
func (o *Object) has(name string, vis Visibility) bool {
	_, ok := o.cells[attrKey{name, vis}]
	return ok
}

// lookup finds a reachable cell: public first, then private when internal.
func (o *Object) lookup(name string, internal bool) *Attribute {
	if a, ok := o.cells[attrKey{name, Public}]; ok {
		return a
	}
	if internal {
		if a, ok := o.cells[attrKey{name, Private}]; ok {
			return a
		}
	}
	return nil
}

// Attributes returns copies of all cells in declaration order.
func (o *Object) Attributes() []Attribute {
	result := make([]Attribute, 0, len(o.order))
	for _, key := range o.order {
		result = append(result, *o.cells[key])
	}
	return result
}

// Attribute returns a copy of one cell regardless of visibility.
func (o *Object) Attribute(name string, vis Visibility) (Attribute, bool) {
	a, ok := o.cells[attrKey{name, vis}]
	if !ok {
		return Attribute{}, false
	}
	return *a, true
}

// NumAttributes returns the number of cells.
func (o *Object) NumAttributes() int {
	return len(o.order)
}

// clear removes every cell of the object.
func (o *Object) clear() {
	o.cells = make(map[attrKey]*Attribute)
	o.order = nil
	o.dirty = true
}

// restore installs a cell verbatim (used by persistence and images).
func (o *Object) restore(a Attribute) {
	key := attrKey{a.Name, a.Visibility}
	if _, ok := o.cells[key]; !ok {
		o.order = append(o.order, key)
	}
	cell := a
	o.cells[key] = &cell
}

// copyInto copies every cell of o into target, overwriting same-named cells.
func (o *Object) copyInto(target *Object) {
	for _, key := range o.order {
		target.restore(*o.cells[key])
	}
	target.dirty = true
}
