package workspace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sibikrish3000/cargowin/internal/issue"
	"github.com/sibikrish3000/cargowin/pkg/bridge"
)

// CargoMetadata asks the guest cargo for the workspace root.
type CargoMetadata struct {
	Capturer bridge.Capturer
	// Cargo is the guest cargo binary, normally "cargo".
	Cargo string
}

// metadata is the part of `cargo metadata` output we use.
type metadata struct {
	WorkspaceRoot string `json:"workspace_root"`
}

// Workspace implements Source.
func (c *CargoMetadata) Workspace(ctx context.Context, dir string) (Identity, error) {
	out, err := c.Capturer.Capture(ctx, dir, c.Cargo, "metadata", "--format-version", "1", "--no-deps")
	if err != nil {
		return Identity{}, fmt.Errorf("%s metadata: %w: %w", c.Cargo, issue.ErrMetadataUnavailable, err)
	}

	var md metadata
	if err := json.Unmarshal(out, &md); err != nil {
		return Identity{}, fmt.Errorf("decoding %s metadata output: %w: %w", c.Cargo, issue.ErrMetadataUnavailable, err)
	}
	if md.WorkspaceRoot == "" {
		return Identity{}, fmt.Errorf("%s metadata reported no workspace_root: %w", c.Cargo, issue.ErrMetadataUnavailable)
	}

	return FromRoot(md.WorkspaceRoot)
}
