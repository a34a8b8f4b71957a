// Package wsl knows the shape of a Windows Subsystem for Linux guest: how to
// tell that we are running in one, and how its paths look from Windows.
package wsl

import (
	"os"
	"strings"
	"sync"
)

// WSL version constants.
const (
	VersionNone = 0
	Version1    = 1
	Version2    = 2
)

// procVersionReader reads /proc/version. Tests replace it.
var procVersionReader = func() (string, error) {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var detected = sync.OnceValue(detect)

// detect classifies the kernel banner. WSL kernels carry "microsoft";
// WSL2 kernels are built as "microsoft-standard(-WSL2)".
func detect() int {
	content, err := procVersionReader()
	if err != nil {
		return VersionNone
	}

	lower := strings.ToLower(content)
	switch {
	case !strings.Contains(lower, "microsoft"):
		return VersionNone
	case strings.Contains(lower, "microsoft-standard"):
		return Version2
	default:
		return Version1
	}
}

// IsWSL reports whether the process runs inside WSL. The result is computed
// once per process.
func IsWSL() bool {
	return detected() != VersionNone
}

// Version returns 1 or 2, or VersionNone outside WSL.
func Version() int {
	return detected()
}

// resetDetection forgets the cached result. Tests only.
func resetDetection() {
	detected = sync.OnceValue(detect)
}
