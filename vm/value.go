package vm

import "strconv"

// Value is the content of an attribute cell.
//
// Attribute storage is textual. A cell is either unset (declared but never
// assigned) or holds a text, which may legitimately be the empty string.
// The zero Value is Unset.
type Value struct {
	text     string
	assigned bool
}

// Unset is the value of a declared attribute that has never been assigned.
var Unset = Value{}

// Text returns an assigned value holding s.
func Text(s string) Value {
	return Value{text: s, assigned: true}
}

// Int returns an assigned value holding the decimal form of n.
func Int(n int64) Value {
	return Text(strconv.FormatInt(n, 10))
}

// IsSet returns true if the value has been assigned.
func (v Value) IsSet() bool {
	return v.assigned
}

// String returns the text of the value. Unset renders as the empty string.
func (v Value) String() string {
	return v.text
}

// Equal reports whether two values are identical, including their set state.
func (v Value) Equal(other Value) bool {
	return v.assigned == other.assigned && v.text == other.text
}

// GoString is used by %#v and test failure output.
func (v Value) GoString() string {
	if !v.assigned {
		return "vm.Unset"
	}
	return "vm.Text(" + strconv.Quote(v.text) + ")"
}

// ---------------------------------------------------------------------------
// Visibility
// ---------------------------------------------------------------------------

// Visibility controls who may reach an attribute or method.
type Visibility int

const (
	// Public members are reachable through any reference.
	Public Visibility = iota
	// Private members are reachable only with internal access (self or parent calls).
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Private:
		return "private"
	default:
		return "Visibility(" + strconv.Itoa(int(v)) + ")"
	}
}
