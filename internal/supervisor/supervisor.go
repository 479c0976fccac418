// Package supervisor runs the external cansend utility and classifies
// its outcome the way this server's task closures need to react to it:
// a clean exit, a non-zero exit, a signal, or a failure to even start.
package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"

	"github.com/cansrv/cansrv/internal/logger"
	"github.com/cansrv/cansrv/internal/metrics"
)

// PIDRegistrar is implemented by the global state's PID-to-task map so
// a running invocation can be located and signaled by KILL_ALL / teardown.
type PIDRegistrar interface {
	RegisterPID(pid int, taskID string)
	UnregisterPID(pid int)
}

// Run invokes name with args (argv form, never through a shell) and
// blocks until it exits. It returns ok=true on a clean exit (status 0).
// On any other outcome it returns ok=false and a short error message in
// the exact wording the caller should record as the task's last error.
// It does not mutate any task state itself; the caller decides whether a
// given outcome disables the task. The PID is registered with reg before
// the process is waited on, so a concurrent KILL_ALL can signal it.
func Run(ctx context.Context, name string, args []string, taskID string, reg PIDRegistrar) (ok bool, errMsg string) {
	cmd := exec.CommandContext(ctx, name, args...)

	if err := cmd.Start(); err != nil {
		logger.Error().Str("task_id", taskID).Err(err).Msg("fork() failed for cansend")
		metrics.RecordSubprocessExit("fork_failed")
		return false, "fork() failed: system resource limit reached"
	}

	pid := cmd.Process.Pid
	reg.RegisterPID(pid, taskID)
	defer reg.UnregisterPID(pid)

	err := cmd.Wait()
	if err == nil {
		metrics.RecordSubprocessExit("success")
		return true, ""
	}

	msg, outcome := classify(err)
	logger.Error().Str("task_id", taskID).Str("reason", msg).Msg("cansend invocation failed")
	metrics.RecordSubprocessExit(outcome)
	return false, msg
}

// classify turns the error from cmd.Wait() into the exact message text
// original_source's supervisor logs, plus a short metrics label.
func classify(err error) (message string, outcome string) {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return fmt.Sprintf("waitpid failed: %v", err), "waitpid_failed"
	}

	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return fmt.Sprintf("cansend failed: %v", err), "unknown"
	}

	if status.Signaled() {
		return fmt.Sprintf("cansend terminated by signal %d", int(status.Signal())), "signaled"
	}

	return fmt.Sprintf("cansend failed with exit code %d", status.ExitStatus()), "nonzero_exit"
}

// Kill sends SIGTERM to pid, matching the teardown behavior of a session
// disconnect or KILL_ALL.
func Kill(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}
