package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Dispatcher
//
// Three entry points, each with its own visibility rule:
//   - Call:       another object's public API (external reference)
//   - InnerCall:  the receiver's own methods, private included (self)
//   - ParentCall: the superclass implementation (parent)
// ---------------------------------------------------------------------------

// Call dispatches method on the object behind ref. Only public methods are
// reachable. A new frame is pushed for the duration of the call; the first
// dispatch to an object constructs it.
func (vm *VM) Call(ref Ref, method string, args ...string) error {
	if err := vm.checkDepth(ref.Class, method); err != nil {
		return err
	}
	obj, err := vm.Objects.Obtain(ref)
	if err != nil {
		return vm.Fault(fmt.Sprintf("%s %s", ref, method), err)
	}
	class, err := vm.Resolve(ref.Class)
	if err != nil {
		return vm.throwResolveError(err)
	}

	frame := &Frame{Class: class, Object: obj, Method: method}
	vm.pushFrame(frame)
	defer vm.popFrame()
	vm.enterTrace(class.Name, method)
	defer vm.leaveTrace()

	self := &Self{vm: vm, frame: frame}
	if err := vm.enter(self, method); err != nil {
		return err
	}

	m := class.VTable.LookupPublic(method)
	if m == nil {
		return vm.Throw(UndefinedMethodException, class.Name+"."+method)
	}
	log.Debugf("call %s.%s %v", class.Name, method, args)
	return vm.invoke(self, m, args)
}

// InnerCall dispatches method within the frame of s, with internal access.
// Public methods are searched first, then private ones.
func (vm *VM) InnerCall(s *Self, method string, args ...string) error {
	f := s.frame
	if err := vm.checkDepth(f.Class.Name, method); err != nil {
		return err
	}
	m := f.Class.VTable.Lookup(method, true)
	if m == nil {
		return vm.Throw(UndefinedMethodException, f.Class.Name+"."+method)
	}

	prevInternal, prevMethod := f.Internal, f.Method
	f.Internal, f.Method = true, method
	defer func() { f.Internal, f.Method = prevInternal, prevMethod }()
	vm.enterTrace(f.Class.Name, method)
	defer vm.leaveTrace()

	log.Debugf("self %s.%s %v", f.Class.Name, method, args)
	return vm.invoke(s, m, args)
}

// ParentCall dispatches method on the superclass of the class that defined
// the running method, so an inherited override reaches its own parent and
// never itself. The ancestor's table is entered in a new frame with internal access, so
// private ancestor methods stay reachable and self calls made from there
// resolve against the ancestor.
func (vm *VM) ParentCall(s *Self, method string, args ...string) error {
	f := s.frame
	if err := vm.checkDepth(f.Class.Name, method); err != nil {
		return err
	}
	definer := f.Definer
	if definer == nil {
		definer = f.Class
	}
	base := definer.Parent
	if base == nil {
		return vm.Throw(UndefinedMethodException, fmt.Sprintf("%s.%s (no parent class)", definer.Name, method))
	}

	frame := &Frame{Class: base, Object: f.Object, Method: method, Internal: true}
	vm.pushFrame(frame)
	defer vm.popFrame()
	vm.enterTrace(base.Name, method)
	defer vm.leaveTrace()

	m := base.VTable.Lookup(method, true)
	if m == nil {
		return vm.Throw(UndefinedMethodException, base.Name+"."+method)
	}
	log.Debugf("parent %s.%s %v", base.Name, method, args)
	return vm.invoke(&Self{vm: vm, frame: frame}, m, args)
}

// invoke runs a method body. Errors other than terminations are failed host
// instructions and go through the failure hook while the frame is current.
func (vm *VM) invoke(s *Self, m *Method, args []string) error {
	f := s.frame
	prevDefiner := f.Definer
	if m.Class != nil {
		f.Definer = m.Class
	}
	err := m.Fn(s, args)
	f.Definer = prevDefiner
	if err == nil {
		return nil
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit
	}
	return vm.Fault(s.frame.Class.Name+"."+m.Name, err)
}

// checkDepth guards against unbounded re-entrancy.
func (vm *VM) checkDepth(class, method string) error {
	if vm.maxDepth <= 0 || vm.faulting > 0 || len(vm.trace) < vm.maxDepth {
		return nil
	}
	return vm.Fault(class+"."+method, fmt.Errorf("call depth exceeded %d", vm.maxDepth))
}

// throwResolveError raises the exception matching a resolution failure.
func (vm *VM) throwResolveError(err error) error {
	var re *ResolveError
	if errors.As(err, &re) {
		return vm.Throw(UndefinedClassException, re.Error())
	}
	return vm.Fault("resolve", err)
}
