package shim

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/syntax"

	"github.com/sibikrish3000/cargowin/internal/config"
	"github.com/sibikrish3000/cargowin/internal/hostenv"
	"github.com/sibikrish3000/cargowin/internal/issue"
	"github.com/sibikrish3000/cargowin/internal/toolchain"
	"github.com/sibikrish3000/cargowin/internal/workspace"
	"github.com/sibikrish3000/cargowin/internal/wsl"
	"github.com/sibikrish3000/cargowin/pkg/bridge"
)

type fakeWorkspace struct {
	id    workspace.Identity
	err   error
	calls int
}

func (f *fakeWorkspace) Workspace(context.Context, string) (workspace.Identity, error) {
	f.calls++
	return f.id, f.err
}

type fakeTempDirs struct {
	dir   string
	err   error
	calls int
}

func (f *fakeTempDirs) Resolve(context.Context) (string, error) {
	f.calls++
	return f.dir, f.err
}

type fakeDetector struct {
	ch  toolchain.Channel
	ok  bool
	err error
}

func (f fakeDetector) Detect(context.Context) (toolchain.Channel, bool, error) {
	return f.ch, f.ok, f.err
}

// recorder stands in for process creation.
type recorder struct {
	plans  []bridge.Plan
	status bridge.ExitStatus
	err    error
}

func (r *recorder) start(_ context.Context, plan bridge.Plan, _ bridge.Stdio) (bridge.ExitStatus, error) {
	r.plans = append(r.plans, plan)
	return r.status, r.err
}

type fixture struct {
	shim      *Shim
	workspace *fakeWorkspace
	tempDirs  *fakeTempDirs
	spawns    *recorder
	dryRun    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	host := hostenv.New("/home/alice/app", []string{
		"PATH=/usr/bin",
		"WSL_DISTRO_NAME=Ubuntu",
		"WSLENV=USERPROFILE/p",
		"RUSTUP_TOOLCHAIN=nightly",
	})
	host.WSLVersion = wsl.Version2

	logger := log.New(io.Discard)
	f := &fixture{
		workspace: &fakeWorkspace{id: workspace.Identity{Root: "/home/alice/app", Name: "app"}},
		tempDirs:  &fakeTempDirs{dir: `C:\Users\alice\AppData\Local\Temp`},
		spawns:    &recorder{status: bridge.ExitStatus{Exited: true}},
		dryRun:    &bytes.Buffer{},
	}
	f.shim = &Shim{
		Config:    config.DefaultConfig(),
		Host:      host,
		TempDirs:  f.tempDirs,
		Workspace: f.workspace,
		Toolchain: fakeDetector{ch: "1.79.0", ok: true},
		Runner: &bridge.Runner{
			Start:  f.spawns.start,
			Stdio:  bridge.Stdio{Stdin: strings.NewReader(""), Stdout: io.Discard, Stderr: io.Discard},
			Logger: logger,
		},
		DryRunOut: f.dryRun,
		Logger:    logger,
	}
	return f
}

const wantTargetDir = `C:\Users\alice\AppData\Local\Temp\cargo-win\app\`

func TestRunNoSubcommand(t *testing.T) {
	f := newFixture(t)

	code, err := f.shim.Run(context.Background(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, issue.ErrNoSubcommand)
	assert.Equal(t, FailureExitCode, code)
	assert.Empty(t, f.spawns.plans)
	assert.Zero(t, f.workspace.calls)
	assert.Zero(t, f.tempDirs.calls)
}

func TestRunDirectExec(t *testing.T) {
	f := newFixture(t)

	code, err := f.shim.Run(context.Background(), []string{"build", "--release"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	require.Len(t, f.spawns.plans, 1)
	plan := f.spawns.plans[0]
	assert.Equal(t, bridge.DirectExec, plan.Kind)
	assert.Equal(t, "cargo.exe", plan.Executable)
	assert.Equal(t, []string{"build", "--release"}, plan.Args)
	assert.Empty(t, plan.Dir)

	assert.Contains(t, plan.Env, "CARGO_TARGET_DIR="+wantTargetDir)
	assert.Contains(t, plan.Env, "RUSTUP_TOOLCHAIN=1.79.0")
	assert.Contains(t, plan.Env, "WSLENV=USERPROFILE/p:CARGO_TARGET_DIR/w:RUSTUP_TOOLCHAIN/w")
	assert.Contains(t, plan.Env, "PATH=/usr/bin")
	assert.NotContains(t, plan.Env, "RUSTUP_TOOLCHAIN=nightly")
}

func TestRunPropagatesExitCode(t *testing.T) {
	tests := []struct {
		name   string
		status bridge.ExitStatus
		want   int
	}{
		{name: "success", status: bridge.ExitStatus{Exited: true}, want: 0},
		{name: "build failure", status: bridge.ExitStatus{Exited: true, Code: 101}, want: 101},
		{name: "exit 7", status: bridge.ExitStatus{Exited: true, Code: 7}, want: 7},
		{name: "terminated", status: bridge.ExitStatus{Signal: "SIGKILL"}, want: bridge.AbnormalExitCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.spawns.status = tt.status

			code, err := f.shim.Run(context.Background(), []string{"test"})

			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestRunStartFailure(t *testing.T) {
	f := newFixture(t)
	f.spawns.err = issue.ErrInvocationFailed

	code, err := f.shim.Run(context.Background(), []string{"build"})

	require.Error(t, err)
	assert.ErrorIs(t, err, issue.ErrInvocationFailed)
	assert.Equal(t, FailureExitCode, code)

	var step *issue.StepError
	require.ErrorAs(t, err, &step)
	assert.Equal(t, "start host cargo", step.Step)
}

func TestRunWithoutToolchain(t *testing.T) {
	f := newFixture(t)
	f.shim.Toolchain = toolchain.Disabled{}

	_, err := f.shim.Run(context.Background(), []string{"check"})
	require.NoError(t, err)

	require.Len(t, f.spawns.plans, 1)
	env := f.spawns.plans[0].Env
	assert.Contains(t, env, "WSLENV=USERPROFILE/p:CARGO_TARGET_DIR/w")
	// The guest's own value is inherited but not propagated.
	assert.Contains(t, env, "RUSTUP_TOOLCHAIN=nightly")
}

func TestRunFailuresSpawnNothing(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(f *fixture)
		sentinel error
		step     string
	}{
		{
			name:     "workspace",
			mutate:   func(f *fixture) { f.workspace.err = issue.ErrMetadataUnavailable },
			sentinel: issue.ErrMetadataUnavailable,
			step:     "determine cargo workspace",
		},
		{
			name:     "temp dir",
			mutate:   func(f *fixture) { f.tempDirs.err = issue.ErrHostQueryFailed },
			sentinel: issue.ErrHostQueryFailed,
			step:     "resolve Windows temp directory",
		},
		{
			name: "toolchain",
			mutate: func(f *fixture) {
				f.shim.Toolchain = fakeDetector{err: issue.ErrToolchainParseFailed}
			},
			sentinel: issue.ErrToolchainParseFailed,
			step:     "detect active toolchain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.mutate(f)

			code, err := f.shim.Run(context.Background(), []string{"build"})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, FailureExitCode, code)
			assert.Empty(t, f.spawns.plans)

			var step *issue.StepError
			require.ErrorAs(t, err, &step)
			assert.Equal(t, tt.step, step.Step)
			assert.NotEmpty(t, step.Suggestions)
		})
	}
}

func TestRunShellComposed(t *testing.T) {
	f := newFixture(t)
	f.shim.Config.Strategy = "shell"

	_, err := f.shim.Run(context.Background(), []string{"run", "--", "a b"})
	require.NoError(t, err)

	require.Len(t, f.spawns.plans, 1)
	plan := f.spawns.plans[0]
	assert.Equal(t, bridge.ShellComposed, plan.Kind)
	assert.Equal(t, "cmd.exe", plan.Shell)
	assert.Equal(t, "/mnt/c", plan.Dir)

	want := `pushd ^"\\wsl$\Ubuntu\home\alice\app^"` +
		` && set ^"CARGO_TARGET_DIR=` + wantTargetDir + `^"` +
		` && set ^"RUSTUP_TOOLCHAIN=1.79.0^"` +
		` && cargo.exe run -- ^"a b^"`
	assert.Equal(t, want, plan.Command)

	name, args := plan.Argv()
	assert.Equal(t, "cmd.exe", name)
	assert.Equal(t, []string{"/S", "/C", "%CARGO_WIN_COMMAND%"}, args)
	assert.Contains(t, plan.Env, "CARGO_WIN_COMMAND="+want)
	assert.Contains(t, plan.Env, "WSLENV=USERPROFILE/p:CARGO_TARGET_DIR/w:RUSTUP_TOOLCHAIN/w:CARGO_WIN_COMMAND/w")
	assert.Contains(t, plan.Env, "CARGO_TARGET_DIR="+wantTargetDir)
}

func TestRunShellComposedNeedsDistro(t *testing.T) {
	f := newFixture(t)
	f.shim.Config.Strategy = "shell"
	f.shim.Host.Distro = ""

	code, err := f.shim.Run(context.Background(), []string{"build"})

	require.Error(t, err)
	assert.ErrorIs(t, err, issue.ErrEnvironmentNotDetected)
	assert.Equal(t, FailureExitCode, code)
	assert.Empty(t, f.spawns.plans)
}

func TestRunShellComposedDrvfsCwd(t *testing.T) {
	f := newFixture(t)
	f.shim.Config.Strategy = "shell"
	f.shim.Host.Cwd = "/mnt/d/src/app"

	_, err := f.shim.Run(context.Background(), []string{"build"})
	require.NoError(t, err)

	require.Len(t, f.spawns.plans, 1)
	assert.True(t, strings.HasPrefix(f.spawns.plans[0].Command, `pushd ^"D:\src\app^" && `))
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t)
	f.shim.Config.DryRun = true

	code, err := f.shim.Run(context.Background(), []string{"build", "--features", "a b"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Empty(t, f.spawns.plans)

	want := `CARGO_TARGET_DIR='` + wantTargetDir + `'` +
		` RUSTUP_TOOLCHAIN=1.79.0` +
		` WSLENV=USERPROFILE/p:CARGO_TARGET_DIR/w:RUSTUP_TOOLCHAIN/w` +
		` cargo.exe build --features 'a b'` + "\n"
	assert.Equal(t, want, f.dryRun.String())
}

func TestRunColorForwarding(t *testing.T) {
	tests := []struct {
		name     string
		color    string
		terminal bool
		guest    string
		want     string
	}{
		{name: "auto on terminal", color: config.ColorAuto, terminal: true, want: "always"},
		{name: "auto piped", color: config.ColorAuto},
		{name: "auto respects guest setting", color: config.ColorAuto, terminal: true, guest: "never"},
		{name: "forced always", color: config.ColorAlways, want: "always"},
		{name: "forced never", color: config.ColorNever, terminal: true, want: "never"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.shim.Config.Color = tt.color
			f.shim.Host.StdoutIsTerminal = tt.terminal
			if tt.guest != "" {
				f.shim.Host.Environ = append(f.shim.Host.Environ, ColorEnvVar+"="+tt.guest)
			}

			inv, err := f.shim.Plan(context.Background(), []string{"build"})
			require.NoError(t, err)

			got, ok := inv.Env.Lookup(ColorEnvVar)
			if tt.want == "" {
				assert.False(t, ok)
				assert.NotContains(t, inv.Env.WSLENV(), ColorEnvVar)
				return
			}
			assert.Equal(t, tt.want, got)
			assert.Contains(t, inv.Env.WSLENV(), ColorEnvVar+"/w")
		})
	}
}

func TestPlanRejectsUnknownStrategy(t *testing.T) {
	f := newFixture(t)
	f.shim.Config.Strategy = "powershell"

	_, err := f.shim.Plan(context.Background(), []string{"build"})
	require.Error(t, err)
	assert.Zero(t, f.workspace.calls)
}

func TestNewWiresDetectors(t *testing.T) {
	host := hostenv.New("/home/alice/app", []string{"RUSTUP_TOOLCHAIN=beta"})
	logger := log.New(io.Discard)

	tests := []struct {
		name   string
		mutate func(c *config.Config)
		check  func(t *testing.T, d toolchain.Detector)
	}{
		{
			name:   "fixed channel",
			mutate: func(c *config.Config) { c.Toolchain.Channel = "1.80.0" },
			check: func(t *testing.T, d toolchain.Detector) {
				assert.Equal(t, toolchain.Fixed("1.80.0"), d)
			},
		},
		{
			name:   "detection off",
			mutate: func(c *config.Config) { c.Toolchain.Detect = false },
			check: func(t *testing.T, d toolchain.Detector) {
				assert.Equal(t, toolchain.Disabled{}, d)
			},
		},
		{
			name:   "rustup then guest override",
			mutate: func(*config.Config) {},
			check: func(t *testing.T, d toolchain.Detector) {
				chain, ok := d.(toolchain.Chain)
				require.True(t, ok)
				require.Len(t, chain, 2)
				assert.IsType(t, &toolchain.RustupDetector{}, chain[0])
				assert.Equal(t, toolchain.EnvOverride{Value: "beta"}, chain[1])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			s, err := New(cfg, host, logger)
			require.NoError(t, err)
			tt.check(t, s.Toolchain)
			assert.NotNil(t, s.Workspace)
			assert.NotNil(t, s.TempDirs)
		})
	}
}

func TestNewRejectsUnknownMetadataSource(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Metadata.Source = "bogus"

	_, err := New(cfg, hostenv.New("/", nil), log.New(io.Discard))
	require.Error(t, err)
}

func TestRenderShellPlan(t *testing.T) {
	env := bridge.NewEnvironment("")
	env.Set("CARGO_TARGET_DIR", `C:\Temp\cargo-win\app\`, bridge.FlagToWin)
	plan := bridge.NewShellComposed("cmd.exe", "cargo.exe build", "/mnt/c", env, nil)

	got, err := Render(&Invocation{Plan: plan, Env: env})
	require.NoError(t, err)
	want := `cd /mnt/c && CARGO_TARGET_DIR='C:\Temp\cargo-win\app\'` +
		` CARGO_WIN_COMMAND='cargo.exe build'` +
		` WSLENV=CARGO_TARGET_DIR/w:CARGO_WIN_COMMAND/w` +
		` cmd.exe /S /C %CARGO_WIN_COMMAND%`
	assert.Equal(t, want, got)
}

func TestRenderRejectsNul(t *testing.T) {
	env := bridge.NewEnvironment("")
	plan := bridge.NewDirectExec("cargo.exe", []string{"a\x00b"}, env, nil)

	_, err := Render(&Invocation{Plan: plan, Env: env})
	var quoteErr *syntax.QuoteError
	assert.ErrorAs(t, err, &quoteErr)
}
