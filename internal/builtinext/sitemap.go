package builtinext

import (
	"context"
	"path/filepath"

	"github.com/betty-gen/betty/internal/config"
	"github.com/betty-gen/betty/internal/extension"
	"github.com/betty-gen/betty/internal/pipeline"
	"github.com/betty-gen/betty/internal/requirement"
)

const robotsBody = "User-agent: *\nAllow: /\nSitemap: /sitemap.xml\n"

// SitemapID is the extension id registered for the robots.txt companion to
// the pipeline's own sitemap generation task.
const SitemapID = "sitemap"

func init() {
	extension.Register(&extension.Descriptor{
		ID:                SitemapID,
		New:               newSitemap,
		EnableRequirement: func(map[string]bool) requirement.Requirement { return requirement.Always },
		Capabilities:      []extension.Capability{extension.CapabilityGenerator},
	})
}

// sitemapExtension demonstrates the Generator capability and dispatch path:
// sitemap.xml itself is one of the pipeline's own deterministic tasks
// (spec.md §4.8 step 4), so this extension contributes the one piece of
// output that genuinely belongs to an extension body instead — a
// robots.txt pointing crawlers at it.
type sitemapExtension struct{}

func newSitemap(_ config.Value) (any, error) {
	return &sitemapExtension{}, nil
}

// GenerateSite implements pipeline.GenerateSite.
func (*sitemapExtension) GenerateSite(ctx context.Context, outputDir string) error {
	return pipeline.WriteTextFile(filepath.Join(outputDir, "robots.txt"), []byte(robotsBody))
}
