// Package builtinext ships the extensions Betty always registers itself,
// illustrating the extension/capability machinery end to end without
// depending on any out-of-scope extension body (spec.md §9's "inheritance-
// heavy capability interfaces" redesign, applied to a concrete pair).
package builtinext

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/betty-gen/betty/internal/config"
	"github.com/betty-gen/betty/internal/extension"
	"github.com/betty-gen/betty/internal/requirement"
)

// StaticAssetsID is the extension id registered for static asset serving.
const StaticAssetsID = "staticassets"

//go:embed defaultassets
var defaultAssets embed.FS

func init() {
	dir, err := extractDefaultAssets()
	if err != nil {
		// The embedded tree is part of the binary; failure here means the
		// host filesystem rejected a temp-directory write, not a bad asset.
		panic(fmt.Sprintf("builtinext: extracting default assets: %v", err))
	}
	extension.Register(&extension.Descriptor{
		ID:                StaticAssetsID,
		New:               newStaticAssets,
		EnableRequirement: func(map[string]bool) requirement.Requirement { return requirement.Always },
		Capabilities:      []extension.Capability{extension.CapabilityAssetProvider},
		AssetsDir:         dir,
	})
}

// extractDefaultAssets materializes the embedded defaultassets tree (the
// favicon spec.md's end-to-end scenario expects every generated site to
// ship) into a real directory, since the Asset Repository overlay reads
// from disk, not from an fs.FS.
func extractDefaultAssets() (string, error) {
	dir, err := os.MkdirTemp("", "betty-default-assets-")
	if err != nil {
		return "", err
	}
	root := "defaultassets"
	err = fs.WalkDir(defaultAssets, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := defaultAssets.ReadFile(path)
		if err != nil {
			return err
		}
		dest := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return os.WriteFile(dest, data, 0o644)
	})
	if err != nil {
		return "", err
	}
	return dir, nil
}

// staticAssets is the always-available built-in asset provider: it exists
// so the embedded `public/static` defaults have a real owner in the
// registry, even on a project that enables no other extensions. The
// error-response JSON files are written by the pipeline, not by it.
type staticAssets struct{}

func newStaticAssets(_ config.Value) (any, error) {
	return &staticAssets{}, nil
}
