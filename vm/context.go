package vm

import (
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Frames and the context stack
// ---------------------------------------------------------------------------

// Frame is one active object context: the class whose method table is in
// effect, the object whose attributes are reachable, and whether the current
// dispatch arrived through self or parent (internal access). Definer is the
// class that defined the running method.
type Frame struct {
	Class    *Class
	Object   *Object
	Method   string
	Internal bool
	Definer  *Class
}

// pushFrame makes f the current frame. The previous frame stays suspended
// on the stack until popFrame.
func (vm *VM) pushFrame(f *Frame) {
	vm.frames = append(vm.frames, f)
}

// popFrame discards the current frame and resumes the one below it.
func (vm *VM) popFrame() {
	vm.frames[len(vm.frames)-1] = nil
	vm.frames = vm.frames[:len(vm.frames)-1]
}

// CurrentFrame returns the current frame, or nil at top level.
func (vm *VM) CurrentFrame() *Frame {
	if len(vm.frames) == 0 {
		return nil
	}
	return vm.frames[len(vm.frames)-1]
}

// Depth returns the number of active frames.
func (vm *VM) Depth() int {
	return len(vm.frames)
}

// enterTrace records a method activation for call-stack snapshots.
func (vm *VM) enterTrace(class, method string) {
	vm.trace = append(vm.trace, class+"."+method)
}

func (vm *VM) leaveTrace() {
	vm.trace = vm.trace[:len(vm.trace)-1]
}

// CallStack returns the active method activations, innermost first.
func (vm *VM) CallStack() []string {
	stack := make([]string, len(vm.trace))
	for i, entry := range vm.trace {
		stack[len(vm.trace)-1-i] = entry
	}
	return stack
}

func (vm *VM) callStackText() string {
	return strings.Join(vm.CallStack(), "\n")
}

// ---------------------------------------------------------------------------
// Self: the explicit handle passed to every method
// ---------------------------------------------------------------------------

// Self is the receiver handle of a running method. It binds the frame the
// method runs in; self calls and attribute access go through it.
type Self struct {
	vm    *VM
	frame *Frame
}

// VM returns the machine the method runs on.
func (s *Self) VM() *VM {
	return s.vm
}

// Ref returns a reference to the receiver.
func (s *Self) Ref() Ref {
	return s.frame.Object.Ref()
}

// Class returns the class whose method table is in effect. Inside a parent
// call this is the ancestor, not the receiver's class.
func (s *Self) Class() *Class {
	return s.frame.Class
}

// Object returns the receiver's attribute record.
func (s *Self) Object() *Object {
	return s.frame.Object
}

// Method returns the name of the running method.
func (s *Self) Method() string {
	return s.frame.Method
}

// Internal reports whether the running method was reached through self or
// parent. Externally dispatched methods see false.
func (s *Self) Internal() bool {
	return s.frame.Internal
}

// Out returns the current output channel.
func (s *Self) Out() io.Writer {
	return s.vm.out
}

// Println writes its operands to the output channel followed by a newline.
func (s *Self) Println(a ...any) {
	fmt.Fprintln(s.vm.out, a...)
}

// Get reads an attribute through the self binding (private reachable).
func (s *Self) Get(name string) (Value, error) {
	return s.vm.getAttribute(s.frame, name, true)
}

// Set writes an attribute through the self binding (private reachable).
func (s *Self) Set(name string, v Value) error {
	return s.vm.setAttribute(s.frame, name, v, true)
}

// DeclarePublic declares a public attribute on the receiver.
func (s *Self) DeclarePublic(name string, def Value) {
	s.vm.declare(s.frame.Object, name, Public, def)
}

// DeclarePrivate declares a private attribute on the receiver.
func (s *Self) DeclarePrivate(name string, def Value) {
	s.vm.declare(s.frame.Object, name, Private, def)
}

// Call invokes one of the receiver's own methods, public or private.
func (s *Self) Call(method string, args ...string) error {
	return s.vm.InnerCall(s, method, args...)
}

// Parent invokes the implementation of method found in the superclass of the
// class whose table is in effect.
func (s *Self) Parent(method string, args ...string) error {
	return s.vm.ParentCall(s, method, args...)
}
