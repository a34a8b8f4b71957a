// Package workspace identifies the cargo workspace a command runs in.
package workspace

import (
	"context"
	"fmt"
	"path"

	"github.com/charmbracelet/log"

	"github.com/sibikrish3000/cargowin/internal/issue"
	"github.com/sibikrish3000/cargowin/pkg/bridge"
)

// Identity names a workspace. Name keys the host target directory.
type Identity struct {
	// Root is the absolute guest path of the workspace root.
	Root string
	// Name is the base name of Root.
	Name string
}

// FromRoot builds an Identity from an absolute workspace root.
func FromRoot(root string) (Identity, error) {
	clean := path.Clean(root)
	name := path.Base(clean)
	if !path.IsAbs(clean) || name == "/" || name == "." {
		return Identity{}, fmt.Errorf("workspace root %q has no usable name: %w", root, issue.ErrMetadataUnavailable)
	}
	return Identity{Root: clean, Name: name}, nil
}

// Source finds the workspace that contains dir.
type Source interface {
	Workspace(ctx context.Context, dir string) (Identity, error)
}

// Source selectors accepted by NewSource.
const (
	SourceAuto     = "auto"
	SourceCargo    = "cargo"
	SourceManifest = "manifest"
)

// Auto asks cargo first and walks the manifests itself only when the guest
// has no cargo to ask. A cargo that runs and fails is an error, not a
// reason to guess.
type Auto struct {
	Cargo    *CargoMetadata
	Manifest *ManifestWalk
	Logger   *log.Logger
}

// Workspace implements Source.
func (a *Auto) Workspace(ctx context.Context, dir string) (Identity, error) {
	id, err := a.Cargo.Workspace(ctx, dir)
	if err == nil || !bridge.NotInvocable(err) {
		return id, err
	}
	if a.Logger != nil {
		a.Logger.Debug("guest cargo not available, reading manifests", "error", err)
	}
	return a.Manifest.Workspace(ctx, dir)
}

// NewSource returns the Source for a configuration selector.
func NewSource(kind string, cargo *CargoMetadata, manifest *ManifestWalk, logger *log.Logger) (Source, error) {
	switch kind {
	case "", SourceAuto:
		return &Auto{Cargo: cargo, Manifest: manifest, Logger: logger}, nil
	case SourceCargo:
		return cargo, nil
	case SourceManifest:
		return manifest, nil
	default:
		return nil, fmt.Errorf("unknown metadata source %q (supported: auto, cargo, manifest)", kind)
	}
}
