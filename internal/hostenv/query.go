package hostenv

import (
	"context"
	"fmt"
	"strings"

	"github.com/sibikrish3000/cargowin/internal/issue"
	"github.com/sibikrish3000/cargowin/pkg/bridge"
)

// HostQuerier reads variables of the Windows host environment.
type HostQuerier interface {
	// HostGetenv returns the value of name on the host, or "" when unset.
	HostGetenv(ctx context.Context, name string) (string, error)
}

// CmdQuerier asks cmd.exe to echo a variable.
type CmdQuerier struct {
	Capturer bridge.Capturer
	// Shell is the host shell, normally cmd.exe.
	Shell string
	// Dir is a drvfs directory to start cmd.exe from. cmd.exe refuses a
	// \\wsl$ working directory and prints a warning on stderr.
	Dir string
	// Encoding of cmd.exe output, see bridge.NewDecodingReader.
	Encoding string
}

// HostGetenv implements HostQuerier.
func (q *CmdQuerier) HostGetenv(ctx context.Context, name string) (string, error) {
	ref := "%" + name + "%"

	out, err := q.Capturer.Capture(ctx, q.Dir, q.Shell, "/C", "echo "+ref)
	if err != nil {
		return "", fmt.Errorf("%s /C echo %s: %w: %w", q.Shell, ref, issue.ErrHostQueryFailed, err)
	}

	text, err := bridge.DecodeOutput(out, q.Encoding)
	if err != nil {
		return "", fmt.Errorf("decoding %s output: %w: %w", q.Shell, issue.ErrHostQueryFailed, err)
	}
	text = strings.TrimRight(text, " \t\r\n")

	// cmd.exe leaves undefined references untouched.
	if strings.EqualFold(text, ref) {
		return "", nil
	}
	return text, nil
}
