// Package issue defines the failure taxonomy shared by every step of a
// cargo-win run, plus the StepError wrapper used to tell the user which
// step failed and what to try next.
package issue

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Components wrap these with fmt.Errorf("...: %w", ...) so
// callers can classify a failure with errors.Is.
var (
	// ErrNoSubcommand means no cargo subcommand was given. Reported before
	// any process is spawned.
	ErrNoSubcommand = errors.New("no cargo subcommand given")

	// ErrHostQueryFailed means the Windows temp directory could not be
	// determined, or cmd.exe could not be used to ask for it.
	ErrHostQueryFailed = errors.New("host environment query failed")

	// ErrMetadataUnavailable means the workspace root could not be determined.
	ErrMetadataUnavailable = errors.New("workspace metadata unavailable")

	// ErrToolchainHelperMissing means rustup could not be invoked. Toolchain
	// detection is skipped; this is never fatal.
	ErrToolchainHelperMissing = errors.New("toolchain helper missing")

	// ErrToolchainParseFailed means rustup ran but its report did not have
	// the expected shape.
	ErrToolchainParseFailed = errors.New("toolchain report not understood")

	// ErrEnvironmentNotDetected means the WSL distribution name is unknown.
	ErrEnvironmentNotDetected = errors.New("WSL distribution not detected")

	// ErrInvocationFailed means the host process could not be started.
	ErrInvocationFailed = errors.New("host invocation failed")
)

// StepError attaches the name of the failing step and optional hints to an
// underlying cause.
type StepError struct {
	// Step is a verb phrase, e.g. "resolve Windows temp directory".
	Step string

	// Suggestions are printed one per line under the message.
	Suggestions []string

	// Cause is the wrapped error.
	Cause error
}

// Wrap returns a StepError for cause, or nil when cause is nil.
func Wrap(cause error, step string, suggestions ...string) error {
	if cause == nil {
		return nil
	}
	return &StepError{Step: step, Suggestions: suggestions, Cause: cause}
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Cause == nil {
		return "failed to " + e.Step
	}
	return fmt.Sprintf("failed to %s: %s", e.Step, e.Cause)
}

// Unwrap returns the cause for errors.Is/As.
func (e *StepError) Unwrap() error {
	return e.Cause
}

// Format renders the error for display. In verbose mode the full error
// chain is listed as well.
func (e *StepError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	for _, s := range e.Suggestions {
		b.WriteString("\n  • ")
		b.WriteString(s)
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&b, "\n  %d. %s", depth, err)
			depth++
		}
	}

	return b.String()
}

// Display formats any error for the user, using StepError.Format when the
// chain contains one.
func Display(err error, verbose bool) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Format(verbose)
	}
	return err.Error()
}
