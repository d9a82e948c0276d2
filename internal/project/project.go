// Package project implements the Project lifecycle: loading configuration,
// lazily building the extension registry, event dispatcher, and asset
// repository, and exposing the thin rendering surface the Generation
// Pipeline drives (spec.md §4.6).
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/betty-gen/betty/internal/assets"
	"github.com/betty-gen/betty/internal/builtinext"
	"github.com/betty-gen/betty/internal/config"
	"github.com/betty-gen/betty/internal/event"
	"github.com/betty-gen/betty/internal/extension"
	"github.com/betty-gen/betty/internal/logger"
	"github.com/betty-gen/betty/internal/pipeline"
)

// alwaysEnabled lists the built-in extensions every project enables
// regardless of its own configuration (spec.md §9's "staticassets is
// always-enabled" resolution).
var alwaysEnabled = []string{builtinext.StaticAssetsID, builtinext.SitemapID}

type lifecycleState int

const (
	notBootstrapped lifecycleState = iota
	bootstrapped
	shutDown
)

// Ancestry is the genealogical data model Betty renders; its real shape is
// an external collaborator out of scope for the core (spec.md §1). The
// pipeline only needs the listing shape pipeline.EntityTypeRef describes.
type Ancestry interface {
	EntityTypes() []pipeline.EntityTypeRef
}

// URLGenerator is the thin "build a public URL for an entity" collaborator
// spec.md excludes the body of; Betty only needs its shape wired through.
type URLGenerator interface {
	EntityURL(entityType, id, locale string) string
}

// Renderer is the thin "render a template to bytes" collaborator spec.md
// excludes the body of.
type Renderer interface {
	RenderEntity(entityType, id, locale string) ([]byte, error)
	RenderEntityJSON(entityType, id string) ([]byte, error)
	RenderListing(entityType, locale string) ([]byte, error)
	RenderListingJSON(entityType string) ([]byte, error)
	RenderIndex(locale string) ([]byte, error)
	RenderIndexJSON() ([]byte, error)
}

// Project is the runtime instance of one Betty configuration: it owns the
// extension registry, event dispatcher, asset repository, and the lazily
// built renderer/URL-generator collaborators, and implements pipeline.Site.
type Project struct {
	Config   *config.ProjectConfig
	Ancestry Ancestry

	state      lifecycleState
	outputDir  string
	registry   *extension.Registry
	dispatcher *event.Dispatcher
	assetsRepo *assets.Repository
	urls       URLGenerator
	renderer   Renderer
}

// New builds an unbootstrapped Project from an already-loaded configuration.
// outputDir is where Bootstrap will have the pipeline write generated output.
func New(cfg *config.ProjectConfig, ancestry Ancestry, outputDir string) *Project {
	return &Project{Config: cfg, Ancestry: ancestry, outputDir: outputDir}
}

// NewTemporaryProject creates a scratch project rooted at a fresh temp
// directory, for tests and the `demo` CLI command (spec.md §4.6).
func NewTemporaryProject(ctx context.Context) (*Project, error) {
	name := uuid.New().String()
	dir, err := os.MkdirTemp("", "betty-"+name+"-")
	if err != nil {
		return nil, fmt.Errorf("creating temporary project directory: %w", err)
	}
	cfg := &config.ProjectConfig{
		BaseURL:  "http://localhost:8000",
		Name:     name,
		FilePath: filepath.Join(dir, "betty.json"),
	}
	cfg.ApplyDefaults()
	return New(cfg, emptyAncestry{}, filepath.Join(dir, "output")), nil
}

// withAlwaysEnabled returns a copy of cfg with every built-in extension
// forced to Enabled: true, leaving any project-supplied configuration for
// those ids untouched.
func withAlwaysEnabled(cfg map[string]config.ExtensionConfig) map[string]config.ExtensionConfig {
	out := make(map[string]config.ExtensionConfig, len(cfg)+len(alwaysEnabled))
	for id, ec := range cfg {
		out[id] = ec
	}
	for _, id := range alwaysEnabled {
		ec := out[id]
		ec.Enabled = true
		out[id] = ec
	}
	return out
}

type emptyAncestry struct{}

func (emptyAncestry) EntityTypes() []pipeline.EntityTypeRef { return nil }

// Bootstrap transitions the project from notBootstrapped to bootstrapped,
// building the extension registry, dispatcher, and asset repository. A
// second Bootstrap call is a programmer error, matching spec.md §4.6.
func (p *Project) Bootstrap(ctx context.Context) error {
	if p.state != notBootstrapped {
		panic("project: Bootstrap called more than once")
	}
	log := logger.FromContext(ctx)

	extCfg := withAlwaysEnabled(p.Config.Extensions)
	reg, err := extension.Resolve(extension.Registered(), extCfg)
	if err != nil {
		return fmt.Errorf("resolving extensions: %w", err)
	}
	p.registry = reg
	p.dispatcher = event.New(reg)

	repo := assets.New()
	for _, batch := range reg.Batches {
		for _, inst := range batch {
			if inst.Descriptor.AssetsDir == "" {
				continue
			}
			repo.Prepend(assets.Root{Dir: inst.Descriptor.AssetsDir})
		}
	}
	p.assetsRepo = repo
	p.urls = defaultURLGenerator{cfg: p.Config}
	p.renderer = stubRenderer{}

	p.state = bootstrapped
	log.Info("project bootstrapped", "name", p.Config.Name, "extensions", len(reg.Batches))
	return nil
}

// Shutdown transitions the project to shutDown. Calling Shutdown on a
// project that never finished Bootstrap is allowed but logged, per spec.md
// §4.6's "Shutdown being idempotent-but-warns" behavior; a second Shutdown
// is a silent no-op.
func (p *Project) Shutdown(ctx context.Context) {
	if p.state == shutDown {
		return
	}
	if p.state == notBootstrapped {
		logger.FromContext(ctx).Warn("shutting down a project that was never bootstrapped", "name", p.Config.Name)
	}
	p.state = shutDown
}

func (p *Project) requireBootstrapped() {
	if p.state != bootstrapped {
		panic("project: used before Bootstrap or after Shutdown")
	}
}

// OutputDir implements pipeline.Site.
func (p *Project) OutputDir() string {
	p.requireBootstrapped()
	return p.outputDir
}

// Locales implements pipeline.Site.
func (p *Project) Locales() []pipeline.LocaleRef {
	p.requireBootstrapped()
	out := make([]pipeline.LocaleRef, len(p.Config.Locales))
	for i, l := range p.Config.Locales {
		out[i] = pipeline.LocaleRef{Locale: l.Locale, Alias: l.Alias}
	}
	return out
}

// DefaultLocale implements pipeline.Site.
func (p *Project) DefaultLocale() pipeline.LocaleRef {
	p.requireBootstrapped()
	d := p.Config.DefaultLocale()
	return pipeline.LocaleRef{Locale: d.Locale, Alias: d.Alias}
}

// Assets implements pipeline.Site.
func (p *Project) Assets() *assets.Repository {
	p.requireBootstrapped()
	return p.assetsRepo
}

// Registry implements pipeline.Site.
func (p *Project) Registry() *extension.Registry {
	p.requireBootstrapped()
	return p.registry
}

// Dispatcher implements pipeline.Site.
func (p *Project) Dispatcher() *event.Dispatcher {
	p.requireBootstrapped()
	return p.dispatcher
}

// EntityTypes implements pipeline.Site.
func (p *Project) EntityTypes() []pipeline.EntityTypeRef {
	p.requireBootstrapped()
	if p.Ancestry == nil {
		return nil
	}
	return p.Ancestry.EntityTypes()
}

func (p *Project) RenderEntityHTML(entityType, id, locale string) ([]byte, error) {
	return p.renderer.RenderEntity(entityType, id, locale)
}
func (p *Project) RenderEntityJSON(entityType, id string) ([]byte, error) {
	return p.renderer.RenderEntityJSON(entityType, id)
}
func (p *Project) RenderListingHTML(entityType, locale string) ([]byte, error) {
	return p.renderer.RenderListing(entityType, locale)
}
func (p *Project) RenderListingJSON(entityType string) ([]byte, error) {
	return p.renderer.RenderListingJSON(entityType)
}
func (p *Project) RenderIndexHTML(locale string) ([]byte, error) {
	return p.renderer.RenderIndex(locale)
}
func (p *Project) RenderIndexJSON() ([]byte, error) {
	return p.renderer.RenderIndexJSON()
}

type defaultURLGenerator struct {
	cfg *config.ProjectConfig
}

func (g defaultURLGenerator) EntityURL(entityType, id, locale string) string {
	prefix := g.cfg.BaseURL
	if g.cfg.RootPath != "" {
		prefix += "/" + g.cfg.RootPath
	}
	if locale != g.cfg.DefaultLocale().Locale {
		for _, l := range g.cfg.Locales {
			if l.Locale == locale {
				prefix += "/" + l.Alias
				break
			}
		}
	}
	return fmt.Sprintf("%s/%s/%s/", prefix, entityType, id)
}

// stubRenderer is the thin, pre-templating-engine renderer: it emits the
// minimal JSON/HTML shell the pipeline needs so every generation task has
// somewhere real to write. A real templating layer is out of the core's
// scope (spec.md §1's "the template engine ... remain out of scope").
type stubRenderer struct{}

func (stubRenderer) RenderEntity(entityType, id, locale string) ([]byte, error) {
	return []byte(fmt.Sprintf("<html><body>%s/%s (%s)</body></html>", entityType, id, locale)), nil
}
func (stubRenderer) RenderEntityJSON(entityType, id string) ([]byte, error) {
	return []byte(fmt.Sprintf(`{"type":%q,"id":%q}`, entityType, id)), nil
}
func (stubRenderer) RenderListing(entityType, locale string) ([]byte, error) {
	return []byte(fmt.Sprintf("<html><body>%s listing (%s)</body></html>", entityType, locale)), nil
}
func (stubRenderer) RenderListingJSON(entityType string) ([]byte, error) {
	return []byte(fmt.Sprintf(`{"type":%q}`, entityType)), nil
}
func (stubRenderer) RenderIndex(locale string) ([]byte, error) {
	return []byte(fmt.Sprintf("<html><body>index (%s)</body></html>", locale)), nil
}
func (stubRenderer) RenderIndexJSON() ([]byte, error) {
	return []byte(`{"index":true}`), nil
}
