package wsl

import (
	"fmt"
	"path"
	"strings"

	"github.com/sibikrish3000/cargowin/internal/issue"
)

// UNCPrefix is the network share under which Windows reaches the file
// systems of running WSL distributions.
const UNCPrefix = `\\wsl$\`

// drvfsRoot is where WSL mounts the Windows drives.
const drvfsRoot = "/mnt/"

// ToHostPath converts an absolute guest path into the path Windows uses to
// reach the same location. Paths on a mounted Windows drive map back to the
// drive (/mnt/c/src -> C:\src); everything else goes through the
// distribution's share (/home/alice -> \\wsl$\<distro>\home\alice).
func ToHostPath(distro, guestPath string) (string, error) {
	if !strings.HasPrefix(guestPath, "/") {
		return "", fmt.Errorf("path %q is not absolute", guestPath)
	}
	clean := path.Clean(guestPath)

	if drive, rest, ok := splitDrvfs(clean); ok {
		return drive + `:\` + strings.ReplaceAll(rest, "/", `\`), nil
	}

	if distro == "" {
		return "", fmt.Errorf("cannot translate %q: WSL_DISTRO_NAME is not set: %w", guestPath, issue.ErrEnvironmentNotDetected)
	}

	return UNCPrefix + distro + strings.ReplaceAll(clean, "/", `\`), nil
}

// splitDrvfs splits /mnt/<letter>[/rest] into the upper-case drive letter
// and rest without its leading slash.
func splitDrvfs(clean string) (drive, rest string, ok bool) {
	tail, found := strings.CutPrefix(clean, drvfsRoot)
	if !found || tail == "" {
		return "", "", false
	}

	letter, rest, _ := strings.Cut(tail, "/")
	if len(letter) != 1 {
		return "", "", false
	}
	c := letter[0]
	if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
		return "", "", false
	}
	return strings.ToUpper(letter), rest, true
}
