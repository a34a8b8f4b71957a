// Package bridge builds and runs host-side (Windows) invocations from a WSL
// guest: the WSLENV propagation list, cmd.exe quoting, decoding of helper
// output, and the runner that forwards the child's exit status.
package bridge

import (
	"fmt"
	"strings"
)

// Kind selects how a Plan reaches the host build tool.
type Kind int

const (
	// DirectExec starts the host executable with the argument list as-is.
	DirectExec Kind = iota
	// ShellComposed runs a single command string through the host shell.
	ShellComposed
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case DirectExec:
		return "direct"
	case ShellComposed:
		return "shell"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configuration value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct", "exec":
		return DirectExec, nil
	case "shell", "cmd":
		return ShellComposed, nil
	default:
		return DirectExec, fmt.Errorf("unknown invocation strategy %q (supported: direct, shell)", s)
	}
}

// ShellCommandVar carries a ShellComposed command line to the host shell.
// WSL interop re-quotes argv with the MSVC rules, turning '"' into '\"',
// which cmd.exe does not understand. The shell therefore only receives a
// reference to this variable, and expands and parses its value itself.
const ShellCommandVar = "CARGO_WIN_COMMAND"

// Plan is one host-side invocation. Exactly one of the two shapes is
// populated, as selected by Kind.
type Plan struct {
	Kind Kind

	// Executable and Args describe a DirectExec plan.
	Executable string
	Args       []string

	// Shell and Command describe a ShellComposed plan.
	Shell   string
	Command string

	// Dir is the guest directory the process is started from.
	// Empty means inherit the current working directory.
	Dir string

	// Env is the complete child environment. Nil means inherit.
	Env []string
}

// NewDirectExec returns a plan that starts exe with args and the bridged
// environment applied on top of base.
func NewDirectExec(exe string, args []string, env *Environment, base []string) Plan {
	return Plan{
		Kind:       DirectExec,
		Executable: exe,
		Args:       append([]string(nil), args...),
		Env:        env.Apply(base),
	}
}

// NewShellComposed returns a plan that hands command to shell. The shell is
// started from dir, which should be a drvfs location so cmd.exe does not
// fall back to the Windows directory. command is recorded in env under
// ShellCommandVar.
func NewShellComposed(shell, command, dir string, env *Environment, base []string) Plan {
	env.Set(ShellCommandVar, command, FlagToWin)
	return Plan{
		Kind:    ShellComposed,
		Shell:   shell,
		Command: command,
		Dir:     dir,
		Env:     env.Apply(base),
	}
}

// Argv returns the program and arguments the runner starts.
func (p Plan) Argv() (string, []string) {
	if p.Kind == ShellComposed {
		return p.Shell, []string{"/S", "/C", "%" + ShellCommandVar + "%"}
	}
	return p.Executable, p.Args
}

// HostExecutable appends ".exe" to name unless it already carries it.
// WSL interop only launches Windows binaries by their full file name, and
// a bare "cargo" would resolve to the guest's own toolchain.
func HostExecutable(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name
	}
	return name + ".exe"
}
