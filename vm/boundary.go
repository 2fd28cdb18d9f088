package vm

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// HostError is a failed host instruction: a command with a non-zero status
// or an operation the host could not carry out.
type HostError struct {
	Instruction string
	Status      int
	Err         error
}

func (e *HostError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: exit status %d", e.Instruction, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Instruction, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}

// Fault is the failure hook. It raises ShellErrorException for a failed
// instruction and always ends in termination: the result is an *ExitError
// carrying the host status (1 when there is none). A handler may observe the
// failure, but execution never resumes after it.
//
// Causes that already are terminations are passed through untouched.
func (vm *VM) Fault(instruction string, cause error) error {
	var exit *ExitError
	if errors.As(cause, &exit) {
		return exit
	}

	code := 1
	msg := instruction
	var host *HostError
	switch {
	case errors.As(cause, &host):
		if host.Status > 0 {
			code = host.Status
		}
		msg = host.Error()
	case cause != nil:
		msg = fmt.Sprintf("%s: %v", instruction, cause)
	}
	log.Debugf("fault: %s", msg)

	vm.faulting++
	defer func() { vm.faulting-- }()
	err := vm.Throw(ShellErrorException, msg)
	if errors.As(err, &exit) {
		return &ExitError{Code: code, Exception: exit.Exception, Message: exit.Message}
	}
	return &ExitError{Code: code, Message: msg}
}

// Run is the top-level execution boundary. It runs fn, converts panics and
// unclassified errors into failures, and returns nil or an *ExitError.
func (vm *VM) Run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = vm.Fault("panic", fmt.Errorf("%v", r))
		}
	}()
	if err := fn(); err != nil {
		var exit *ExitError
		if errors.As(err, &exit) {
			return exit
		}
		return vm.Fault("run", err)
	}
	return nil
}

// Capture runs fn with the output channel redirected into a buffer and
// returns what was written, minus one trailing newline.
func (vm *VM) Capture(fn func() error) (string, error) {
	var buf bytes.Buffer
	prev := vm.SetOutput(&buf)
	defer vm.SetOutput(prev)
	err := fn()
	return strings.TrimSuffix(buf.String(), "\n"), err
}
