package toolchain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Report holds the facts scraped from a toolchain manager's status output.
type Report struct {
	// DefaultHost is the host triple, e.g. x86_64-unknown-linux-gnu.
	DefaultHost string
	// Active is the full active toolchain name, usually suffixed with the
	// host triple.
	Active string
}

// Parser extracts a Report from status text.
type Parser interface {
	Parse(text string) (Report, error)
}

// ParseFunc adapts a function to Parser.
type ParseFunc func(text string) (Report, error)

// Parse implements Parser.
func (f ParseFunc) Parse(text string) (Report, error) {
	return f(text)
}

var (
	errNoDefaultHost = errors.New(`no "Default host:" line`)
	errNoActive      = errors.New(`no "active toolchain" section`)
)

var defaultHostRe = regexp.MustCompile(`(?m)^Default host:[ \t]*(\S+)[ \t]*\r?$`)

// ParseShow parses `rustup show`. Two layouts of the active toolchain
// section are understood:
//
//	active toolchain            active toolchain
//	----------------            ----------------
//	                            name: nightly-x86_64-unknown-linux-gnu
//	nightly-x86_64-... (default)
//
// The left one is printed by rustup before 1.28, the right one since.
var ParseShow ParseFunc = parseShow

func parseShow(text string) (Report, error) {
	m := defaultHostRe.FindStringSubmatch(text)
	if m == nil {
		return Report{}, errNoDefaultHost
	}
	host := m[1]

	active, err := activeToolchain(text)
	if err != nil {
		return Report{}, err
	}
	return Report{DefaultHost: host, Active: active}, nil
}

// activeToolchain returns the first token of the active toolchain section.
func activeToolchain(text string) (string, error) {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}

	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "active toolchain" {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", errNoActive
	}

	i := start
	if i < len(lines) && isUnderline(lines[i]) {
		i++
	}
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return "", fmt.Errorf("%w: section is empty", errNoActive)
	}

	if strings.HasPrefix(strings.TrimSpace(lines[i]), "no active toolchain") {
		return "", errNoActive
	}

	fields := strings.Fields(lines[i])
	if fields[0] == "name:" {
		if len(fields) < 2 {
			return "", fmt.Errorf("%w: empty name field", errNoActive)
		}
		return fields[1], nil
	}
	return fields[0], nil
}

func isUnderline(line string) bool {
	line = strings.TrimSpace(line)
	return line != "" && strings.Trim(line, "-") == ""
}

// StripHost removes host from toolchain together with the '-' separators
// directly around it: nightly-x86_64-unknown-linux-gnu becomes nightly.
// A toolchain that does not contain host is returned unchanged.
func StripHost(toolchain, host string) string {
	if host == "" {
		return toolchain
	}
	i := strings.LastIndex(toolchain, host)
	if i < 0 {
		return toolchain
	}

	before := strings.TrimRight(toolchain[:i], "-")
	after := strings.TrimLeft(toolchain[i+len(host):], "-")
	switch {
	case before == "":
		return after
	case after == "":
		return before
	default:
		return before + "-" + after
	}
}
