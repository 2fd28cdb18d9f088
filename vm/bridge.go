package vm

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Exec runs a host command through the configured shell. Its standard output
// goes to the current output channel, so it can be captured like method
// output. The receiver of the running method, if any, is exported to the
// command as OOSH_SELF.
//
// A non-zero exit status is a failed instruction and goes through Fault.
func (vm *VM) Exec(command string) error {
	cmd := exec.Command(vm.shell, "-c", command)
	cmd.Stdout = vm.out
	cmd.Stderr = vm.stderr
	cmd.Env = os.Environ()
	if f := vm.CurrentFrame(); f != nil {
		cmd.Env = append(cmd.Env, "OOSH_SELF="+f.Object.Ref().String())
	}
	log.Debugf("exec %q", command)

	if err := cmd.Run(); err != nil {
		status := 1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			status = ee.ExitCode()
			err = nil
		} else {
			err = fmt.Errorf("starting %s: %w", vm.shell, err)
		}
		return vm.Fault(command, &HostError{Instruction: command, Status: status, Err: err})
	}
	return nil
}
