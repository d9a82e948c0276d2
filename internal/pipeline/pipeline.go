// Package pipeline implements the Generation Pipeline: purging and
// rebuilding the output tree, delegating the deterministic set of
// generation tasks to a Worker Pool, and normalizing output permissions
// (spec.md §4.8).
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/betty-gen/betty/internal/assets"
	"github.com/betty-gen/betty/internal/event"
	"github.com/betty-gen/betty/internal/extension"
	"github.com/betty-gen/betty/internal/jobctx"
	"github.com/betty-gen/betty/internal/logger"
	"github.com/betty-gen/betty/internal/worker"
)

// SitemapShardSize is the named constant for the sitemap pagination limit
// spec.md §9 calls out as "kept as a named constant".
const SitemapShardSize = 50_000

// EntityRef is the minimal shape the pipeline needs about an ancestry
// entity to decide what to render. The full ancestry data model is out of
// scope for the core (spec.md §1); callers supply these references.
type EntityRef struct {
	Type          string
	ID            string
	IsGenerated   bool
	IsPublic      bool
}

// EntityTypeRef describes one user-facing entity type and its entities.
type EntityTypeRef struct {
	Name             string
	GenerateHTMLList bool
	Entities         []EntityRef
}

// Site is the minimal project surface the pipeline needs: locales, output
// root, asset repository, extension registry/dispatcher, and the ancestry
// entity listing. project.Project implements this.
type Site interface {
	OutputDir() string
	Locales() []LocaleRef
	DefaultLocale() LocaleRef
	Assets() *assets.Repository
	Registry() *extension.Registry
	Dispatcher() *event.Dispatcher
	EntityTypes() []EntityTypeRef
	RenderEntityHTML(entityType, id, locale string) ([]byte, error)
	RenderEntityJSON(entityType, id string) ([]byte, error)
	RenderListingHTML(entityType, locale string) ([]byte, error)
	RenderListingJSON(entityType string) ([]byte, error)
	RenderIndexHTML(locale string) ([]byte, error)
	RenderIndexJSON() ([]byte, error)
}

// LocaleRef is the minimal locale shape the pipeline needs.
type LocaleRef struct {
	Locale string
	Alias  string
}

// GenerateSite is the capability dispatched once per run so extensions can
// contribute their own output (spec.md §4.8 step 4's "dispatch the
// GenerateSite event").
type GenerateSite interface {
	GenerateSite(ctx context.Context, outputDir string) error
}

// Run executes the full pipeline with a pool that has not been started yet:
// Run starts it itself once the static assets are written.
func Run(ctx context.Context, site Site, pool *worker.Pool, jc *jobctx.Context) error {
	log := logger.FromContext(ctx)
	out := site.OutputDir()
	if err := purgeAndRecreate(out); err != nil {
		return fmt.Errorf("preparing output directory: %w", err)
	}
	if err := writeStaticAssets(site, out); err != nil {
		return fmt.Errorf("writing static assets: %w", err)
	}
	pool.Start(ctx)
	if err := delegateAll(site, pool, out); err != nil {
		pool.Cancel()
		pool.Join()
		return err
	}
	pool.Finish()
	if err := pool.Join(); err != nil {
		return err
	}
	if err := NormalizePermissions(out); err != nil {
		return fmt.Errorf("normalizing output permissions: %w", err)
	}
	log.Info("generation complete", "output", out)
	return nil
}

func purgeAndRecreate(out string) error {
	if err := os.RemoveAll(out); err != nil {
		return err
	}
	return os.MkdirAll(out, 0o755)
}

// writeStaticAssets copies public/static ahead of the worker pool starting,
// so any subsequent render may read them (spec.md §5's ordering guarantee).
func writeStaticAssets(site Site, out string) error {
	wwwDir := filepath.Join(out, "www")
	if err := os.MkdirAll(wwwDir, 0o755); err != nil {
		return err
	}
	if err := site.Assets().CopyTree("public/static", wwwDir, nil); err != nil {
		return fmt.Errorf("copying static assets: %w", err)
	}
	return writeErrorResponses(site, wwwDir)
}

func writeErrorResponses(site Site, wwwDir string) error {
	for _, locale := range site.Locales() {
		dir := filepath.Join(wwwDir, ".error")
		if locale.Alias != site.DefaultLocale().Alias {
			dir = filepath.Join(wwwDir, locale.Alias, ".error")
		}
		for _, code := range []int{401, 403, 404} {
			payload := map[string]any{"error": code, "locale": locale.Locale}
			data, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			path := filepath.Join(dir, fmt.Sprintf("%d.json", code))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

// NormalizePermissions walks out and sets every directory to 0755 and every
// regular file to 0644, matching spec.md §4.8's final normalization step
// regardless of the umask in effect while the tree was written.
func NormalizePermissions(out string) error {
	return filepath.WalkDir(out, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.Chmod(path, 0o755)
		}
		return os.Chmod(path, 0o644)
	})
}

func delegateAll(site Site, pool *worker.Pool, out string) error {
	wwwDir := filepath.Join(out, "www")
	if err := pool.Delegate(dispatchGenerateSiteTask(site, wwwDir)); err != nil {
		return err
	}
	if err := pool.Delegate(sitemapTask(site, wwwDir)); err != nil {
		return err
	}
	if err := pool.Delegate(schemaTask(site, wwwDir)); err != nil {
		return err
	}
	if err := pool.Delegate(openAPITask(wwwDir)); err != nil {
		return err
	}
	if err := pool.DelegateAll(indexTasks(site, wwwDir)...); err != nil {
		return err
	}
	for _, locale := range site.Locales() {
		if err := pool.Delegate(localeAssetsTask(site, wwwDir, locale)); err != nil {
			return err
		}
	}
	for _, et := range site.EntityTypes() {
		if err := delegateEntityType(site, pool, wwwDir, et); err != nil {
			return err
		}
	}
	return nil
}
