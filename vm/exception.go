package vm

import (
	"errors"
	"fmt"
	"strings"
)

// Built-in exception classes.
const (
	ExceptionClassName          = "Exception"
	UndefinedClassException     = "UndefinedClassException"
	UndefinedMethodException    = "UndefinedMethodException"
	UndefinedAttributeException = "UndefinedAttributeException"
	UnknownLibraryException     = "UnknownLibraryException"
	IllegalArgumentException    = "IllegalArgumentException"
	ShellErrorException         = "ShellErrorException"
)

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

// Handler receives a thrown exception object. Returning nil resumes
// execution after the throw; returning an error propagates it.
type Handler interface {
	Handle(vm *VM, ex Ref) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(vm *VM, ex Ref) error

// Handle calls f(vm, ex).
func (f HandlerFunc) Handle(vm *VM, ex Ref) error {
	return f(vm, ex)
}

// MethodHandler handles an exception by calling a public method on an
// object, passing the exception reference as the only argument.
type MethodHandler struct {
	Target Ref
	Method string
}

// Handle dispatches the handler method.
func (h MethodHandler) Handle(vm *VM, ex Ref) error {
	return vm.Call(h.Target, h.Method, ex.String())
}

// ExitError terminates execution. It is returned by the default handler and
// by the failure hook, and carries the process exit status.
type ExitError struct {
	Code      int
	Exception Ref
	Message   string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d: %s", e.Code, e.Message)
}

// ExitCode maps an error returned by the VM to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return 1
}

// ---------------------------------------------------------------------------
// Throw
// ---------------------------------------------------------------------------

// Throw raises an exception of the named class. The exception object is
// created with its message and a snapshot of the call stack, then handed to
// the innermost handler registered for exactly that class name, or to the
// default handler. While a handler runs its registration is withdrawn, so a
// rethrow of the same class reaches the next handler out.
//
// Throw returns nil when the handler returns normally.
func (vm *VM) Throw(className, message string) error {
	class, err := vm.Resolve(className)
	if err != nil {
		if className == UndefinedClassException {
			return &ExitError{Code: 1, Message: err.Error()}
		}
		return vm.throwResolveError(err)
	}
	if !class.IsSubclassOf(ExceptionClassName) {
		if className == IllegalArgumentException {
			return &ExitError{Code: 1, Message: className + " is not an exception class"}
		}
		return vm.Throw(IllegalArgumentException, className+" is not an exception class")
	}

	stack := vm.callStackText()
	ex := vm.New(className)
	if err := vm.Call(ex, "set", "message", message); err != nil {
		return err
	}
	if err := vm.Call(ex, "set", "stack", stack); err != nil {
		return err
	}
	log.Debugf("throw %s: %s", className, message)

	handler := vm.withdrawHandler(className)
	if handler == nil {
		return vm.defaultHandler.Handle(vm, ex)
	}
	defer vm.pushHandler(className, handler)
	return handler.Handle(vm, ex)
}

// defaultHandler prints the exception and its stack to the error channel and
// terminates with status 1.
func defaultHandler(vm *VM, ex Ref) error {
	text, err := vm.Capture(func() error { return vm.Call(ex, "toString") })
	if err != nil {
		return err
	}
	stack, err := vm.Capture(func() error { return vm.Call(ex, "get", "stack") })
	if err != nil {
		return err
	}
	fmt.Fprintln(vm.stderr, text)
	if stack != "" {
		for _, line := range strings.Split(stack, "\n") {
			fmt.Fprintf(vm.stderr, "  at %s\n", line)
		}
	}
	return &ExitError{Code: 1, Exception: ex, Message: text}
}

// ---------------------------------------------------------------------------
// Handler table
// ---------------------------------------------------------------------------

func (vm *VM) pushHandler(className string, h Handler) {
	vm.handlers[className] = append(vm.handlers[className], h)
}

// withdrawHandler pops the innermost handler for className, or returns nil.
func (vm *VM) withdrawHandler(className string) Handler {
	stack := vm.handlers[className]
	if len(stack) == 0 {
		return nil
	}
	h := stack[len(stack)-1]
	stack[len(stack)-1] = nil
	if len(stack) == 1 {
		delete(vm.handlers, className)
	} else {
		vm.handlers[className] = stack[:len(stack)-1]
	}
	return h
}

// Handled reports whether a handler is currently registered for className.
func (vm *VM) Handled(className string) bool {
	return len(vm.handlers[className]) > 0
}

// ---------------------------------------------------------------------------
// Try / Catch
// ---------------------------------------------------------------------------

// TryBlock is a deferred protected block. It runs once, when Catch attaches
// a handler to it.
type TryBlock struct {
	vm    *VM
	block func() error
	used  bool
}

// Try records block as the pending protected block and returns it. Nothing
// runs until Catch.
func (vm *VM) Try(block func() error) *TryBlock {
	tb := &TryBlock{vm: vm, block: block}
	vm.pendingTry = tb
	return tb
}

// Catch runs the pending try block with h registered for className.
func (vm *VM) Catch(className string, h Handler) error {
	tb := vm.pendingTry
	if tb == nil {
		return vm.Throw(IllegalArgumentException, "catch "+className+" without a try block")
	}
	return tb.Catch(className, h)
}

// Catch runs the block with h registered for className. The registration is
// removed when the block finishes, whatever the outcome. A try block can be
// caught only once.
func (tb *TryBlock) Catch(className string, h Handler) error {
	vm := tb.vm
	if vm.pendingTry == tb {
		vm.pendingTry = nil
	}
	if tb.used || tb.block == nil {
		return vm.Throw(IllegalArgumentException, "catch "+className+" without a try block")
	}
	tb.used = true

	vm.pushHandler(className, h)
	defer vm.withdrawHandler(className)
	return tb.block()
}

// ---------------------------------------------------------------------------
// Exception classes
// ---------------------------------------------------------------------------

func exceptionClassDecls() []*ClassDecl {
	base := &ClassDecl{
		Name:   ExceptionClassName,
		Kind:   KindClass,
		Parent: RootClassName,
		Attributes: []AttributeDecl{
			{Name: "message", Visibility: Public},
			{Name: "stack", Visibility: Public},
		},
		Methods: []MethodDecl{
			{Name: "toString", Visibility: Public, Fn: exceptionToString},
			{Name: "trace", Visibility: Public, Fn: exceptionTrace},
			{Name: "print", Visibility: Public, Fn: exceptionPrint},
		},
	}
	decls := []*ClassDecl{base}
	for _, name := range []string{
		UndefinedClassException,
		UndefinedMethodException,
		UndefinedAttributeException,
		UnknownLibraryException,
		IllegalArgumentException,
		ShellErrorException,
	} {
		decls = append(decls, &ClassDecl{Name: name, Kind: KindClass, Parent: ExceptionClassName})
	}
	return decls
}

// exceptionToString prints "Class: message".
func exceptionToString(s *Self, args []string) error {
	msg, err := s.Get("message")
	if err != nil {
		return err
	}
	s.Println(s.Object().Class + ": " + msg.String())
	return nil
}

func exceptionTrace(s *Self, args []string) error {
	stack, err := s.Get("stack")
	if err != nil {
		return err
	}
	if stack.String() != "" {
		s.Println(stack.String())
	}
	return nil
}

func exceptionPrint(s *Self, args []string) error {
	if err := s.Call("toString"); err != nil {
		return err
	}
	return s.Call("trace")
}
