package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
)

// Capturer runs a helper process to completion and returns its stdout.
// Implementations must wrap start failures so that NotInvocable reports
// them, and must report a non-zero exit as an error.
type Capturer interface {
	Capture(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecCapturer is the os/exec backed Capturer.
type ExecCapturer struct {
	// Env is the helper environment. Nil means inherit.
	Env []string
}

// Capture implements Capturer.
func (c ExecCapturer) Capture(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = c.Env

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &HelperError{
			Command:  commandLine(name, args),
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return nil, fmt.Errorf("could not run %s: %w", name, err)
}

// HelperError reports a helper that started but did not exit cleanly.
type HelperError struct {
	Command  string
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *HelperError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// NotInvocable reports whether err means the helper could not be started
// at all (missing binary, not executable), as opposed to a helper that ran
// and failed.
func NotInvocable(err error) bool {
	if err == nil {
		return false
	}
	var helperErr *HelperError
	if errors.As(err, &helperErr) {
		return false
	}
	var execErr *exec.Error
	return errors.As(err, &execErr) ||
		errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
