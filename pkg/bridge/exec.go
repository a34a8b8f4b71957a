package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/sibikrish3000/cargowin/internal/issue"
)

// AbnormalExitCode is returned when the child ended without an exit code,
// e.g. because it was killed by a signal.
const AbnormalExitCode = 255

// StartFailureExitCode is returned when the child could not be run at all.
const StartFailureExitCode = 1

// ExitStatus describes how a child process ended.
type ExitStatus struct {
	// Exited is false when the process ended without an exit code.
	Exited bool
	// Code is the exit code when Exited is true.
	Code int
	// Signal names the terminating signal when known.
	Signal string
}

// Stdio is the set of streams handed to the child.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// StartFunc starts the process described by plan, waits for it and reports
// how it ended. An error means the process could not be started (or waited
// on) at all.
type StartFunc func(ctx context.Context, plan Plan, stdio Stdio) (ExitStatus, error)

// Runner executes a Plan and forwards the child's exit status.
type Runner struct {
	// Start spawns the process. Nil means StartProcess.
	Start StartFunc
	// Stdio defaults to the parent's own streams.
	Stdio  Stdio
	Logger *log.Logger
}

// Run executes plan synchronously and returns the exit code to propagate:
// the child's own code, or AbnormalExitCode when it had none. No timeout is
// applied; a hung host process hangs the caller.
func (r *Runner) Run(ctx context.Context, plan Plan) (int, error) {
	start := r.Start
	if start == nil {
		start = StartProcess
	}

	stdio := r.Stdio
	if stdio.Stdin == nil {
		stdio.Stdin = os.Stdin
	}
	if stdio.Stdout == nil {
		stdio.Stdout = os.Stdout
	}
	if stdio.Stderr == nil {
		stdio.Stderr = os.Stderr
	}

	name, args := plan.Argv()
	r.logger().Debug("starting host process", "strategy", plan.Kind, "program", name, "args", args, "dir", plan.Dir)

	status, err := start(ctx, plan, stdio)
	if err != nil {
		return StartFailureExitCode, err
	}

	if !status.Exited {
		r.logger().Warn("host process terminated abnormally", "program", name, "signal", status.Signal)
		return AbnormalExitCode, nil
	}

	r.logger().Debug("host process exited", "program", name, "code", status.Code)
	return status.Code, nil
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

// StartProcess is the os/exec backed StartFunc. stdio is wired straight to
// the child so interactive output (progress bars, colors) is preserved.
func StartProcess(ctx context.Context, plan Plan, stdio Stdio) (ExitStatus, error) {
	name, args := plan.Argv()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = plan.Dir
	cmd.Env = plan.Env
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr

	if err := cmd.Start(); err != nil {
		return ExitStatus{}, fmt.Errorf("failed to start %q: %w: %w", name, issue.ErrInvocationFailed, err)
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return ExitStatus{}, fmt.Errorf("waiting for %q: %w: %w", name, issue.ErrInvocationFailed, waitErr)
		}
	}

	return exitStatus(cmd.ProcessState), nil
}

// exitStatus converts a finished process state.
func exitStatus(ps *os.ProcessState) ExitStatus {
	if ps.Exited() {
		return ExitStatus{Exited: true, Code: ps.ExitCode()}
	}
	return ExitStatus{Signal: signalName(ps)}
}
