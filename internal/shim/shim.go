// Package shim turns `cargo win <subcommand> [args...]` into one host-side
// cargo invocation and runs it.
package shim

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/sibikrish3000/cargowin/internal/config"
	"github.com/sibikrish3000/cargowin/internal/hostenv"
	"github.com/sibikrish3000/cargowin/internal/issue"
	"github.com/sibikrish3000/cargowin/internal/target"
	"github.com/sibikrish3000/cargowin/internal/toolchain"
	"github.com/sibikrish3000/cargowin/internal/workspace"
	"github.com/sibikrish3000/cargowin/internal/wsl"
	"github.com/sibikrish3000/cargowin/pkg/bridge"
)

// ColorEnvVar is cargo's color switch.
const ColorEnvVar = "CARGO_TERM_COLOR"

// FailureExitCode is returned when cargo-win itself fails.
const FailureExitCode = bridge.StartFailureExitCode

// TempDirSource resolves the host temp directory.
type TempDirSource interface {
	Resolve(ctx context.Context) (string, error)
}

// Shim holds everything one run needs. Build it with New, or fill the
// fields directly to substitute collaborators.
type Shim struct {
	Config    *config.Config
	Host      *hostenv.Context
	TempDirs  TempDirSource
	Workspace workspace.Source
	Toolchain toolchain.Detector
	Runner    *bridge.Runner
	// DryRunOut receives the rendered plan in dry-run mode.
	DryRunOut io.Writer
	Logger    *log.Logger
}

// Invocation is a planned run together with the facts it was built from.
type Invocation struct {
	Plan      bridge.Plan
	Env       *bridge.Environment
	Workspace workspace.Identity
	TargetDir string
	// Channel is empty when toolchain detection was skipped.
	Channel toolchain.Channel
}

// New wires the production collaborators for cfg and host.
func New(cfg *config.Config, host *hostenv.Context, logger *log.Logger) (*Shim, error) {
	capturer := bridge.ExecCapturer{Env: host.Environ}

	source, err := workspace.NewSource(cfg.Metadata.Source,
		&workspace.CargoMetadata{Capturer: capturer, Cargo: cfg.GuestCargo},
		&workspace.ManifestWalk{FS: os.DirFS("/")},
		logger,
	)
	if err != nil {
		return nil, err
	}

	var detector toolchain.Detector
	switch {
	case cfg.Toolchain.Channel != "":
		detector = toolchain.Fixed(cfg.Toolchain.Channel)
	case !cfg.Toolchain.Detect:
		detector = toolchain.Disabled{}
	default:
		detector = toolchain.Chain{
			&toolchain.RustupDetector{Capturer: capturer, Rustup: cfg.Rustup, Dir: host.Cwd, Logger: logger},
			toolchain.EnvOverride{Value: host.Getenv(toolchain.EnvVar)},
		}
	}

	return &Shim{
		Config: cfg,
		Host:   host,
		TempDirs: &hostenv.TempDirResolver{
			Querier: &hostenv.CmdQuerier{
				Capturer: capturer,
				Shell:    bridge.HostExecutable(cfg.Shell),
				Dir:      cfg.ScratchDir,
				Encoding: cfg.Encoding,
			},
			Vars:   cfg.TempVars,
			Logger: logger,
		},
		Workspace: source,
		Toolchain: detector,
		Runner:    &bridge.Runner{Logger: logger},
		DryRunOut: os.Stdout,
		Logger:    logger,
	}, nil
}

// Run forwards args (subcommand first) to the host cargo and returns the
// exit code to leave with. A non-nil error means cargo-win itself failed
// and the code is FailureExitCode.
func (s *Shim) Run(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		return FailureExitCode, issue.Wrap(issue.ErrNoSubcommand, "forward cargo command",
			"Usage: cargo win <subcommand> [args...]",
			"Example: cargo win build --release")
	}

	if s.Host.WSLVersion == wsl.VersionNone {
		s.Logger.Warn("not running inside WSL, the host invocation will probably fail")
	}

	inv, err := s.Plan(ctx, args)
	if err != nil {
		return FailureExitCode, err
	}

	s.Logger.Info("forwarding to host cargo",
		"workspace", inv.Workspace.Name,
		"target_dir", inv.TargetDir,
		"toolchain", inv.Channel,
		"strategy", inv.Plan.Kind)

	if s.Config.DryRun {
		line, err := Render(inv)
		if err != nil {
			return FailureExitCode, err
		}
		fmt.Fprintln(s.DryRunOut, line)
		return 0, nil
	}

	code, err := s.Runner.Run(ctx, inv.Plan)
	if err != nil {
		return FailureExitCode, issue.Wrap(err, "start host cargo",
			fmt.Sprintf("Check that %s is installed on Windows and on the PATH WSL inherits", s.Config.Cargo),
			"Check that WSL interop is enabled (/proc/sys/fs/binfmt_misc/WSLInterop)")
	}
	return code, nil
}

// Plan resolves the workspace, target directory and toolchain and builds
// the invocation without running anything on the host except the queries.
func (s *Shim) Plan(ctx context.Context, args []string) (*Invocation, error) {
	if len(args) == 0 {
		return nil, issue.Wrap(issue.ErrNoSubcommand, "forward cargo command")
	}

	kind, err := bridge.ParseKind(s.Config.Strategy)
	if err != nil {
		return nil, issue.Wrap(err, "select invocation strategy")
	}

	id, err := s.Workspace.Workspace(ctx, s.Host.Cwd)
	if err != nil {
		return nil, issue.Wrap(err, "determine cargo workspace",
			"Run cargo win from inside a cargo project",
			"Set CARGO_WIN_METADATA_SOURCE=manifest if the guest cargo is broken")
	}

	tempDir, err := s.TempDirs.Resolve(ctx)
	if err != nil {
		return nil, issue.Wrap(err, "resolve Windows temp directory",
			"Check that cmd.exe is reachable from WSL",
			"Check that TMP or TEMP is set in the Windows user environment")
	}
	targetDir := target.Derive(tempDir, id.Name)
	s.Logger.Debug("derived target directory", "workspace", id.Root, "dir", targetDir)

	ch, ok, err := s.Toolchain.Detect(ctx)
	if err != nil {
		return nil, issue.Wrap(err, "detect active toolchain",
			"Check the output of 'rustup show'",
			"Set CARGO_WIN_TOOLCHAIN_CHANNEL to choose the channel explicitly")
	}

	env := bridge.NewEnvironment(s.Host.WSLENV)
	env.Set(target.EnvVar, targetDir, bridge.FlagToWin)
	if ok {
		env.Set(toolchain.EnvVar, string(ch), bridge.FlagToWin)
	} else {
		s.Logger.Debug("no toolchain channel forwarded, host default applies")
	}
	if color := s.colorValue(); color != "" {
		env.Set(ColorEnvVar, color, bridge.FlagToWin)
	}

	exe := bridge.HostExecutable(s.Config.Cargo)

	var plan bridge.Plan
	switch kind {
	case bridge.ShellComposed:
		hostDir, err := wsl.ToHostPath(s.Host.Distro, s.Host.Cwd)
		if err != nil {
			return nil, issue.Wrap(err, "translate working directory for cmd.exe",
				"Run from a WSL shell so WSL_DISTRO_NAME is set",
				"Or use the direct strategy (CARGO_WIN_STRATEGY=direct)")
		}
		if strings.HasPrefix(exe, "/") {
			if exe, err = wsl.ToHostPath(s.Host.Distro, exe); err != nil {
				return nil, issue.Wrap(err, "translate cargo path for cmd.exe")
			}
		}
		command := bridge.ComposeCmdLine(hostDir, env.Vars(), exe, args)
		plan = bridge.NewShellComposed(bridge.HostExecutable(s.Config.Shell), command, s.Config.ScratchDir, env, s.Host.Environ)
	default:
		plan = bridge.NewDirectExec(exe, args, env, s.Host.Environ)
	}

	return &Invocation{
		Plan:      plan,
		Env:       env,
		Workspace: id,
		TargetDir: targetDir,
		Channel:   ch,
	}, nil
}

// colorValue returns the CARGO_TERM_COLOR value to force, or "".
// cargo.exe writes into an interop pipe and would otherwise never color.
func (s *Shim) colorValue() string {
	switch s.Config.Color {
	case config.ColorAlways, config.ColorNever:
		return s.Config.Color
	}
	if _, set := s.Host.LookupEnv(ColorEnvVar); set || !s.Host.StdoutIsTerminal {
		return ""
	}
	return config.ColorAlways
}
