// Package target derives the host-side cargo target directory for a
// workspace.
package target

import "strings"

// Namespace is the directory under the host temp directory that holds every
// cargo-win target directory. It keeps them apart from cargo's own default
// target directories and from other tools using the temp directory.
const Namespace = "cargo-win"

// EnvVar is the cargo variable the derived directory is passed in.
const EnvVar = "CARGO_TARGET_DIR"

const sep = `\`

// Derive returns <tempDir>\cargo-win\<workspace>\. The temp directory is
// normalized to end in exactly one separator first, so "C:\Temp" and
// "C:\Temp\" give the same result. The directory is not created; cargo does
// that on first use. The result only depends on the inputs, which lets
// repeated builds of a workspace reuse the same cache.
func Derive(tempDir, workspace string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(tempDir, sep))
	b.WriteString(sep)
	b.WriteString(Namespace)
	b.WriteString(sep)
	b.WriteString(workspace)
	b.WriteString(sep)
	return b.String()
}
