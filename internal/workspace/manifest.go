package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/sibikrish3000/cargowin/internal/issue"
)

// ManifestFile is the cargo manifest name.
const ManifestFile = "Cargo.toml"

// manifest is the part of Cargo.toml needed to locate a workspace root.
type manifest struct {
	Workspace *struct {
		Members  []string `toml:"members"`
		Exclude  []string `toml:"exclude"`
		Resolver string   `toml:"resolver"`
	} `toml:"workspace"`
	Package *struct {
		Name      string `toml:"name"`
		Workspace string `toml:"workspace"`
	} `toml:"package"`
}

// ManifestWalk locates the workspace root by reading Cargo.toml files,
// following cargo's rules closely enough for naming a target directory:
// the nearest manifest is the package; its workspace root is itself when
// it declares [workspace], the directory named by package.workspace, or
// the nearest ancestor whose [workspace] lists it as a member.
type ManifestWalk struct {
	// FS is rooted at the guest "/". Paths passed to it have no leading slash.
	FS fs.FS
}

// Workspace implements Source.
func (m *ManifestWalk) Workspace(_ context.Context, dir string) (Identity, error) {
	if !path.IsAbs(dir) {
		return Identity{}, fmt.Errorf("directory %q is not absolute: %w", dir, issue.ErrMetadataUnavailable)
	}

	pkgDir, pkg, err := m.nearest(path.Clean(dir))
	if err != nil {
		return Identity{}, err
	}

	switch {
	case pkg.Workspace != nil:
		return FromRoot(pkgDir)
	case pkg.Package != nil && pkg.Package.Workspace != "":
		return FromRoot(path.Join(pkgDir, pkg.Package.Workspace))
	}

	for parent := path.Dir(pkgDir); ; parent = path.Dir(parent) {
		mf, ok, err := m.read(parent)
		if err != nil {
			return Identity{}, err
		}
		if ok && mf.Workspace != nil && isMember(parent, pkgDir, mf.Workspace.Members, mf.Workspace.Exclude) {
			return FromRoot(parent)
		}
		if parent == "/" {
			break
		}
	}

	return FromRoot(pkgDir)
}

// nearest finds the closest directory at or above dir holding a manifest.
func (m *ManifestWalk) nearest(dir string) (string, manifest, error) {
	for d := dir; ; d = path.Dir(d) {
		mf, ok, err := m.read(d)
		if err != nil {
			return "", manifest{}, err
		}
		if ok {
			return d, mf, nil
		}
		if d == "/" {
			return "", manifest{}, fmt.Errorf("no %s in %s or any parent directory: %w", ManifestFile, dir, issue.ErrMetadataUnavailable)
		}
	}
}

// read loads dir/Cargo.toml. ok is false when there is none.
func (m *ManifestWalk) read(dir string) (manifest, bool, error) {
	name := strings.TrimPrefix(path.Join(dir, ManifestFile), "/")
	data, err := fs.ReadFile(m.FS, name)
	if errors.Is(err, fs.ErrNotExist) {
		return manifest{}, false, nil
	}
	if err != nil {
		return manifest{}, false, fmt.Errorf("reading %s: %w: %w", "/"+name, issue.ErrMetadataUnavailable, err)
	}

	var mf manifest
	if err := toml.Unmarshal(data, &mf); err != nil {
		return manifest{}, false, fmt.Errorf("parsing %s: %w: %w", "/"+name, issue.ErrMetadataUnavailable, err)
	}
	return mf, true, nil
}

// isMember reports whether pkgDir is a member of the workspace at root.
func isMember(root, pkgDir string, members, exclude []string) bool {
	rel, ok := strings.CutPrefix(pkgDir, strings.TrimSuffix(root, "/")+"/")
	if !ok {
		return false
	}
	if matchAny(exclude, rel) {
		return false
	}
	return matchAny(members, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		p = path.Clean(strings.TrimPrefix(p, "./"))
		if p == rel {
			return true
		}
		if ok, err := path.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
