// Package hostenv captures the ambient state of a run once, up front, and
// answers questions about the Windows host (its temp directory) through
// cmd.exe.
package hostenv

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sibikrish3000/cargowin/internal/wsl"
)

// Guest variables read by cargo-win.
const (
	DistroNameVar = "WSL_DISTRO_NAME"
	WSLENVVar     = "WSLENV"
)

// Context is a snapshot of the guest state a run depends on. It is built
// once at the top of a run and passed to every component, so nothing else
// reads the process environment.
type Context struct {
	// Environ is the guest environment as KEY=VALUE pairs.
	Environ []string
	// Cwd is the guest working directory.
	Cwd string
	// Distro is the WSL distribution name, empty when unknown.
	Distro string
	// WSLENV is the guest's current propagation list.
	WSLENV string
	// WSLVersion is 1 or 2 inside WSL, 0 elsewhere.
	WSLVersion int
	// StdoutIsTerminal reports whether stdout is attached to a terminal.
	StdoutIsTerminal bool
}

// Capture snapshots the current process.
func Capture() (*Context, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	c := New(cwd, os.Environ())
	c.WSLVersion = wsl.Version()
	c.StdoutIsTerminal = term.IsTerminal(int(os.Stdout.Fd()))
	return c, nil
}

// New builds a Context from explicit values.
func New(cwd string, environ []string) *Context {
	c := &Context{
		Environ: append([]string(nil), environ...),
		Cwd:     cwd,
	}
	c.Distro = c.Getenv(DistroNameVar)
	c.WSLENV = c.Getenv(WSLENVVar)
	return c
}

// LookupEnv returns the value of name in the snapshot. When a name occurs
// more than once the last occurrence wins, as with os/exec.
func (c *Context) LookupEnv(name string) (string, bool) {
	prefix := name + "="
	for i := len(c.Environ) - 1; i >= 0; i-- {
		if value, ok := strings.CutPrefix(c.Environ[i], prefix); ok {
			return value, true
		}
	}
	return "", false
}

// Getenv returns the value of name, or "" when unset.
func (c *Context) Getenv(name string) string {
	v, _ := c.LookupEnv(name)
	return v
}
