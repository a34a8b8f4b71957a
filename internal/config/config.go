// Package config loads cargo-win settings from defaults, an optional TOML
// file, CARGO_WIN_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sibikrish3000/cargowin/internal/workspace"
	"github.com/sibikrish3000/cargowin/pkg/bridge"
)

const (
	// AppName is the application name.
	AppName = "cargo-win"
	// EnvPrefix prefixes environment overrides, e.g. CARGO_WIN_STRATEGY.
	EnvPrefix = "CARGO_WIN"
	// ConfigFileName is the config file looked up under the XDG config dirs.
	ConfigFileName = "config.toml"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds every setting of a run.
type Config struct {
	// Strategy is "direct" or "shell", see bridge.ParseKind.
	Strategy string `mapstructure:"strategy"`
	// Cargo is the host cargo executable.
	Cargo string `mapstructure:"cargo"`
	// Shell is the host shell used for queries and the shell strategy.
	Shell string `mapstructure:"shell"`
	// GuestCargo is the guest cargo used for `cargo metadata`.
	GuestCargo string `mapstructure:"guest_cargo"`
	// Rustup is the guest toolchain manager.
	Rustup string `mapstructure:"rustup"`
	// ScratchDir is a drvfs directory host shells are started from.
	ScratchDir string `mapstructure:"scratch_dir"`
	// TempVars are the host variables consulted for the temp directory.
	TempVars []string `mapstructure:"temp_vars"`
	// Encoding of host shell output.
	Encoding string `mapstructure:"encoding"`
	// Color is auto, always or never.
	Color    string `mapstructure:"color"`
	LogLevel string `mapstructure:"log_level"`
	DryRun   bool   `mapstructure:"dry_run"`

	Toolchain ToolchainConfig `mapstructure:"toolchain"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
}

// ToolchainConfig controls toolchain detection.
type ToolchainConfig struct {
	Detect bool `mapstructure:"detect"`
	// Channel, when set, is forwarded without asking rustup.
	Channel string `mapstructure:"channel"`
}

// MetadataConfig controls workspace discovery.
type MetadataConfig struct {
	// Source is auto, cargo or manifest.
	Source string `mapstructure:"source"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Strategy:   bridge.DirectExec.String(),
		Cargo:      "cargo.exe",
		Shell:      "cmd.exe",
		GuestCargo: "cargo",
		Rustup:     "rustup",
		ScratchDir: "/mnt/c",
		TempVars:   []string{"TMP", "TEMP"},
		Encoding:   bridge.EncodingAuto,
		Color:      ColorAuto,
		LogLevel:   "warn",
		Toolchain:  ToolchainConfig{Detect: true},
		Metadata:   MetadataConfig{Source: workspace.SourceAuto},
	}
}

// FlagKeys maps config keys to the flag names bound to them.
var FlagKeys = map[string]string{
	"strategy":          "strategy",
	"dry_run":           "dry-run",
	"toolchain.channel": "toolchain",
}

// LoadOptions tune Load.
type LoadOptions struct {
	// ConfigFile is an explicit file. It must exist.
	ConfigFile string
	// Flags, when set, override file and environment values for the keys
	// in FlagKeys that were given on the command line.
	Flags *pflag.FlagSet
}

// Load builds the Config and returns it with the path of the file it read,
// or "" when none was found.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("strategy", defaults.Strategy)
	v.SetDefault("cargo", defaults.Cargo)
	v.SetDefault("shell", defaults.Shell)
	v.SetDefault("guest_cargo", defaults.GuestCargo)
	v.SetDefault("rustup", defaults.Rustup)
	v.SetDefault("scratch_dir", defaults.ScratchDir)
	v.SetDefault("temp_vars", defaults.TempVars)
	v.SetDefault("encoding", defaults.Encoding)
	v.SetDefault("color", defaults.Color)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("dry_run", defaults.DryRun)
	v.SetDefault("toolchain.detect", defaults.Toolchain.Detect)
	v.SetDefault("toolchain.channel", defaults.Toolchain.Channel)
	v.SetDefault("metadata.source", defaults.Metadata.Source)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := configFile(opts.ConfigFile)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if opts.Flags != nil {
		for key, name := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, path, nil
}

// configFile returns the file to read: the explicit one, or the first
// cargo-win/config.toml in the XDG config directories.
func configFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	path, err := xdg.SearchConfigFile(filepath.Join(AppName, ConfigFileName))
	if err != nil {
		// Not having a config file is the common case.
		return "", nil
	}
	return path, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	var errs []error

	if _, err := bridge.ParseKind(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("unknown color mode %q (supported: auto, always, never)", c.Color))
	}
	switch c.Metadata.Source {
	case workspace.SourceAuto, workspace.SourceCargo, workspace.SourceManifest:
	default:
		errs = append(errs, fmt.Errorf("unknown metadata source %q (supported: auto, cargo, manifest)", c.Metadata.Source))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err))
	}
	if _, err := bridge.DecodeOutput(nil, c.Encoding); err != nil {
		errs = append(errs, fmt.Errorf("invalid encoding: %w", err))
	}
	if c.Cargo == "" || c.Shell == "" {
		errs = append(errs, errors.New("cargo and shell must not be empty"))
	}
	if len(c.TempVars) == 0 {
		errs = append(errs, errors.New("temp_vars must name at least one variable"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
