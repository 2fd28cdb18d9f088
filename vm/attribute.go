package vm

import "fmt"

// ---------------------------------------------------------------------------
// Attribute store operations
// ---------------------------------------------------------------------------

// declare creates an attribute cell unless one already exists for the
// object. Existing cells keep their value.
func (vm *VM) declare(obj *Object, name string, vis Visibility, def Value) {
	if obj.declare(name, vis, def) {
		log.Debugf("declared %s %s.%s", vis, obj.Class, name)
	}
}

// getAttribute reads an attribute of the frame's object. Public cells are
// always readable; private cells only with internal access. Anything else
// raises UndefinedAttributeException.
func (vm *VM) getAttribute(f *Frame, name string, internal bool) (Value, error) {
	if a := f.Object.lookup(name, internal); a != nil {
		return a.Value, nil
	}
	return Unset, vm.Throw(UndefinedAttributeException, attributeName(f.Object, name))
}

// setAttribute writes an attribute with the same visibility rules as
// getAttribute. The value is stored verbatim; an empty text stays an
// assigned empty text.
func (vm *VM) setAttribute(f *Frame, name string, v Value, internal bool) error {
	a := f.Object.lookup(name, internal)
	if a == nil {
		return vm.Throw(UndefinedAttributeException, attributeName(f.Object, name))
	}
	a.Value = v
	f.Object.dirty = true
	return nil
}

func attributeName(obj *Object, name string) string {
	return fmt.Sprintf("%s.%s", obj.Class, name)
}
