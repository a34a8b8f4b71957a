// Package toolchain finds out which rust toolchain channel is active in the
// guest, so the host build can use the same one.
package toolchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/sibikrish3000/cargowin/internal/issue"
	"github.com/sibikrish3000/cargowin/pkg/bridge"
)

// EnvVar is the rustup variable the channel is forwarded in.
const EnvVar = "RUSTUP_TOOLCHAIN"

// Channel is a toolchain name without host triple, e.g. "nightly" or
// "1.79.0". The host's rustup resolves it against its own triple.
type Channel string

// Detector reports the active channel. ok is false when detection was
// skipped and the host default toolchain should be used.
type Detector interface {
	Detect(ctx context.Context) (ch Channel, ok bool, err error)
}

// RustupDetector asks the guest rustup.
type RustupDetector struct {
	Capturer bridge.Capturer
	// Rustup is the helper binary, normally "rustup".
	Rustup string
	// Dir is where the helper runs; directory overrides apply there.
	Dir string
	// Parser defaults to ParseShow.
	Parser Parser
	Logger *log.Logger
}

// Detect implements Detector.
//
// A helper that cannot be started is not an error: detection is skipped.
// A helper that runs but reports something unexpected is, since guessing
// could build with the wrong compiler.
func (d *RustupDetector) Detect(ctx context.Context) (Channel, bool, error) {
	out, err := d.Capturer.Capture(ctx, d.Dir, d.Rustup, "show")
	if err != nil {
		if bridge.NotInvocable(err) {
			d.debug("toolchain detection skipped", "error", fmt.Errorf("%w: %w", issue.ErrToolchainHelperMissing, err))
			return "", false, nil
		}
		return "", false, fmt.Errorf("%s show: %w: %w", d.Rustup, issue.ErrToolchainParseFailed, err)
	}

	parser := d.Parser
	if parser == nil {
		parser = ParseShow
	}

	report, err := parser.Parse(string(out))
	if err != nil {
		return "", false, fmt.Errorf("%s show output: %w: %w", d.Rustup, issue.ErrToolchainParseFailed, err)
	}

	ch := StripHost(report.Active, report.DefaultHost)
	if ch == "" {
		return "", false, fmt.Errorf("%s show reported toolchain %q with nothing left after removing host %q: %w",
			d.Rustup, report.Active, report.DefaultHost, issue.ErrToolchainParseFailed)
	}

	d.debug("detected toolchain", "active", report.Active, "host", report.DefaultHost, "channel", ch)
	return Channel(ch), true, nil
}

func (d *RustupDetector) debug(msg string, kv ...any) {
	if d.Logger != nil {
		d.Logger.Debug(msg, kv...)
	}
}

// Fixed always reports the configured channel.
type Fixed Channel

// Detect implements Detector.
func (f Fixed) Detect(context.Context) (Channel, bool, error) {
	return Channel(f), f != "", nil
}

// Disabled never detects anything.
type Disabled struct{}

// Detect implements Detector.
func (Disabled) Detect(context.Context) (Channel, bool, error) {
	return "", false, nil
}

// guestTriples are the host triples a WSL guest toolchain can carry.
var guestTriples = []string{
	"x86_64-unknown-linux-gnu",
	"x86_64-unknown-linux-musl",
	"aarch64-unknown-linux-gnu",
	"aarch64-unknown-linux-musl",
}

// EnvOverride forwards a RUSTUP_TOOLCHAIN value set in the guest. It is
// meant as a fallback after RustupDetector, for guests without rustup.
type EnvOverride struct {
	Value string
}

// Detect implements Detector.
func (e EnvOverride) Detect(context.Context) (Channel, bool, error) {
	v := strings.TrimSpace(e.Value)
	if v == "" {
		return "", false, nil
	}
	for _, triple := range guestTriples {
		if stripped := StripHost(v, triple); stripped != v {
			v = stripped
			break
		}
	}
	return Channel(v), v != "", nil
}

// Chain tries detectors in order. The first one that reports a channel
// wins; the first error stops the chain.
type Chain []Detector

// Detect implements Detector.
func (c Chain) Detect(ctx context.Context) (Channel, bool, error) {
	for _, d := range c {
		ch, ok, err := d.Detect(ctx)
		if err != nil {
			return "", false, err
		}
		if ok {
			return ch, true, nil
		}
	}
	return "", false, nil
}
