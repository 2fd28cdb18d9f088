package vm

// ---------------------------------------------------------------------------
// Object lifecycle
// ---------------------------------------------------------------------------

// New mints a fresh identity for className and returns its reference.
// The object is neither resolved nor constructed until its first dispatch.
func (vm *VM) New(className string) Ref {
	obj := vm.Objects.Mint(className)
	log.Debugf("new %s", obj.Ref())
	return obj.Ref()
}

// enter prepares the receiver of an external dispatch. On first dispatch the
// resolved attribute list is declared, base class first, and construct runs
// (unless construct is itself the method being called). When the class has
// been redeclared since, missing attributes are declared again.
func (vm *VM) enter(s *Self, method string) error {
	obj := s.frame.Object
	if obj.destroyed {
		return nil
	}
	if !obj.constructed || obj.declaredGen != s.frame.Class.generation {
		if err := vm.declareAll(s); err != nil {
			return err
		}
	}
	if obj.constructed {
		return nil
	}
	obj.constructed = true
	if method == "construct" {
		return nil
	}
	return vm.InnerCall(s, "construct")
}

// declareAll declares every attribute of the frame's class the object does
// not hold yet. Initialisers run with internal access.
func (vm *VM) declareAll(s *Self) error {
	f := s.frame
	prev := f.Internal
	f.Internal = true
	defer func() { f.Internal = prev }()

	for _, d := range f.Class.Attributes {
		if f.Object.has(d.Name, d.Visibility) {
			continue
		}
		v := d.Default
		if d.Init != nil {
			var err error
			if v, err = d.Init(s); err != nil {
				return err
			}
		}
		vm.declare(f.Object, d.Name, d.Visibility, v)
	}
	f.Object.declaredGen = f.Class.generation
	return nil
}

// destruct removes every attribute cell of the object and marks it
// destroyed. A persisted copy is deleted too.
func (vm *VM) destruct(obj *Object) error {
	obj.clear()
	obj.destroyed = true
	log.Debugf("destruct %s", obj.Ref())
	if vm.persistence != nil {
		return vm.persistence.Delete(obj.ID)
	}
	return nil
}

// clone copies every attribute cell of src onto the object named by target.
// The target's constructor never runs for the copied state: a target that
// receives the cells of a constructed source counts as constructed.
func (vm *VM) clone(src *Object, target Ref) error {
	dst, err := vm.Objects.Obtain(target)
	if err != nil {
		return err
	}
	if dst == src {
		return nil
	}
	src.copyInto(dst)
	dst.constructed = dst.constructed || src.constructed
	dst.destroyed = false
	dst.declaredGen = 0
	log.Debugf("clone %s -> %s", src.Ref(), dst.Ref())
	return nil
}
