package pipeline

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/betty-gen/betty/internal/event"
	"github.com/betty-gen/betty/internal/extension"
	"github.com/betty-gen/betty/internal/jobctx"
	"github.com/betty-gen/betty/internal/worker"
)

// CreateFile creates all parent directories of path and opens it for UTF-8
// text writing, truncating any existing content — the Go analogue of
// spec.md's `create_file(path)`.
func CreateFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

// WriteHTML writes body under dir/index.html.
func WriteHTML(dir string, body []byte) error {
	f, err := CreateFile(filepath.Join(dir, "index.html"))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(body)
	return err
}

// WriteTextFile writes body to an exact file path, creating parent dirs.
func WriteTextFile(path string, body []byte) error {
	f, err := CreateFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(body)
	return err
}

// WriteJSON writes body under dir/index.json.
func WriteJSON(dir string, body []byte) error {
	f, err := CreateFile(filepath.Join(dir, "index.json"))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(body)
	return err
}

func dispatchGenerateSiteTask(site Site, wwwDir string) worker.Task {
	return worker.Task{
		Label: "dispatch:generate-site",
		Run: func(ctx context.Context, _ *jobctx.Context) error {
			_, err := event.Invoke(ctx, site.Dispatcher(), extension.CapabilityGenerator,
				func(ctx context.Context, inst *extension.Instance) (struct{}, error) {
					gen, ok := inst.Value.(GenerateSite)
					if !ok {
						return struct{}{}, nil
					}
					return struct{}{}, gen.GenerateSite(ctx, wwwDir)
				})
			return err
		},
	}
}

func sitemapTask(site Site, wwwDir string) worker.Task {
	return worker.Task{
		Label: "sitemap",
		Run: func(ctx context.Context, _ *jobctx.Context) error {
			return writeSitemaps(site, wwwDir)
		},
	}
}

func schemaTask(site Site, wwwDir string) worker.Task {
	return worker.Task{
		Label: "schema",
		Run: func(ctx context.Context, _ *jobctx.Context) error {
			return writeSchema(site, wwwDir)
		},
	}
}

func openAPITask(wwwDir string) worker.Task {
	return worker.Task{
		Label: "openapi",
		Run: func(ctx context.Context, _ *jobctx.Context) error {
			return writeOpenAPI(wwwDir)
		},
	}
}

func localeAssetsTask(site Site, wwwDir string, locale LocaleRef) worker.Task {
	return worker.Task{
		Label: fmt.Sprintf("locale-assets:%s", locale.Locale),
		Run: func(ctx context.Context, _ *jobctx.Context) error {
			dest := wwwDir
			if locale.Alias != site.DefaultLocale().Alias {
				dest = filepath.Join(wwwDir, locale.Alias)
			}
			return site.Assets().CopyTree("public/locale", dest, nil)
		},
	}
}

func indexTasks(site Site, wwwDir string) []worker.Task {
	tasks := make([]worker.Task, 0, len(site.Locales())+1)
	tasks = append(tasks, worker.Task{
		Label: "index:json",
		Run: func(ctx context.Context, _ *jobctx.Context) error {
			body, err := site.RenderIndexJSON()
			if err != nil {
				return err
			}
			return WriteJSON(wwwDir, body)
		},
	})
	for _, locale := range site.Locales() {
		locale := locale
		dir := wwwDir
		if locale.Alias != site.DefaultLocale().Alias {
			dir = filepath.Join(wwwDir, locale.Alias)
		}
		tasks = append(tasks, worker.Task{
			Label: fmt.Sprintf("index:html:%s", locale.Locale),
			Run: func(ctx context.Context, _ *jobctx.Context) error {
				body, err := site.RenderIndexHTML(locale.Locale)
				if err != nil {
					return err
				}
				return WriteHTML(dir, body)
			},
		})
	}
	return tasks
}

func delegateEntityType(site Site, pool *worker.Pool, wwwDir string, et EntityTypeRef) error {
	typeDir := filepath.Join(wwwDir, et.Name)
	if et.GenerateHTMLList {
		for _, locale := range site.Locales() {
			locale := locale
			dir := typeDir
			if locale.Alias != site.DefaultLocale().Alias {
				dir = filepath.Join(wwwDir, locale.Alias, et.Name)
			}
			if err := pool.Delegate(worker.Task{
				Label: fmt.Sprintf("listing:html:%s:%s", et.Name, locale.Locale),
				Run: func(ctx context.Context, _ *jobctx.Context) error {
					body, err := site.RenderListingHTML(et.Name, locale.Locale)
					if err != nil {
						return err
					}
					return WriteHTML(dir, body)
				},
			}); err != nil {
				return err
			}
		}
	}
	if err := pool.Delegate(worker.Task{
		Label: fmt.Sprintf("listing:json:%s", et.Name),
		Run: func(ctx context.Context, _ *jobctx.Context) error {
			body, err := site.RenderListingJSON(et.Name)
			if err != nil {
				return err
			}
			return WriteJSON(typeDir, body)
		},
	}); err != nil {
		return err
	}
	for _, entity := range et.Entities {
		if entity.IsGenerated {
			continue
		}
		if err := delegateEntity(site, pool, wwwDir, typeDir, et.Name, entity); err != nil {
			return err
		}
	}
	return nil
}

func delegateEntity(site Site, pool *worker.Pool, wwwDir, typeDir, entityType string, entity EntityRef) error {
	entityDir := filepath.Join(typeDir, entity.ID)
	if err := pool.Delegate(worker.Task{
		Label: fmt.Sprintf("entity:json:%s:%s", entityType, entity.ID),
		Run: func(ctx context.Context, _ *jobctx.Context) error {
			body, err := site.RenderEntityJSON(entityType, entity.ID)
			if err != nil {
				return err
			}
			return WriteJSON(entityDir, body)
		},
	}); err != nil {
		return err
	}
	if !entity.IsPublic {
		return nil
	}
	for _, locale := range site.Locales() {
		locale := locale
		dir := entityDir
		if locale.Alias != site.DefaultLocale().Alias {
			dir = filepath.Join(wwwDir, locale.Alias, entityType, entity.ID)
		}
		if err := pool.Delegate(worker.Task{
			Label: fmt.Sprintf("entity:html:%s:%s:%s", entityType, entity.ID, locale.Locale),
			Run: func(ctx context.Context, _ *jobctx.Context) error {
				body, err := site.RenderEntityHTML(entityType, entity.ID, locale.Locale)
				if err != nil {
					return err
				}
				return WriteHTML(dir, body)
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

// entityTypeSchema is the reflected shape of one listed entity type; the
// ancestry record fields themselves live outside the core (spec.md §1), so
// only the name and listing flag are reflected here.
type entityTypeSchema struct {
	Name             string `json:"name"`
	GenerateHTMLList bool   `json:"generate_html_list"`
}

type siteSchema struct {
	EntityTypes []entityTypeSchema `json:"entity_types"`
	Locales     []string           `json:"locales"`
}

func writeSchema(site Site, wwwDir string) error {
	doc := siteSchema{}
	for _, et := range site.EntityTypes() {
		doc.EntityTypes = append(doc.EntityTypes, entityTypeSchema{
			Name:             et.Name,
			GenerateHTMLList: et.GenerateHTMLList,
		})
	}
	for _, locale := range site.Locales() {
		doc.Locales = append(doc.Locales, locale.Locale)
	}
	reflector := &jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(&doc)
	body, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	return WriteJSONFile(filepath.Join(wwwDir, "schema.json"), body)
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapIndexEntry struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	XMLName xml.Name            `xml:"sitemapindex"`
	XMLNS   string              `xml:"xmlns,attr"`
	Entries []sitemapIndexEntry `xml:"sitemap"`
}

const sitemapXMLNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

// writeSitemaps shards every locale's public, non-generated entity URLs at
// SitemapShardSize each (spec.md §8 invariant 6: ⌈N/50000⌉ shards per
// locale), then either writes the single combined shard directly as
// sitemap.xml, or writes every shard as sitemap-N.xml and sitemap.xml as
// the referencing sitemap index.
func writeSitemaps(site Site, wwwDir string) error {
	var allShards [][]string
	for _, locale := range site.Locales() {
		var urls []string
		for _, et := range site.EntityTypes() {
			for _, entity := range et.Entities {
				if entity.IsGenerated || !entity.IsPublic {
					continue
				}
				path := fmt.Sprintf("/%s/%s/", et.Name, entity.ID)
				if locale.Alias != site.DefaultLocale().Alias {
					path = "/" + locale.Alias + path
				}
				urls = append(urls, path)
			}
		}
		allShards = append(allShards, shardStrings(urls, SitemapShardSize)...)
	}
	if len(allShards) == 0 {
		allShards = [][]string{{}}
	}

	if len(allShards) == 1 {
		return writeSitemapShard(filepath.Join(wwwDir, "sitemap.xml"), allShards[0])
	}

	names := make([]string, len(allShards))
	for i, shard := range allShards {
		names[i] = fmt.Sprintf("sitemap-%d.xml", i)
		if err := writeSitemapShard(filepath.Join(wwwDir, names[i]), shard); err != nil {
			return err
		}
	}
	entries := make([]sitemapIndexEntry, len(names))
	for i, name := range names {
		entries[i] = sitemapIndexEntry{Loc: "/" + name}
	}
	idx := sitemapIndex{XMLNS: sitemapXMLNS, Entries: entries}
	body, err := xml.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return WriteXMLFile(filepath.Join(wwwDir, "sitemap.xml"), body)
}

func writeSitemapShard(path string, urls []string) error {
	set := sitemapURLSet{XMLNS: sitemapXMLNS}
	for _, u := range urls {
		set.URLs = append(set.URLs, sitemapURL{Loc: u})
	}
	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}
	return WriteXMLFile(path, body)
}

// WriteXMLFile writes an XML document (with its declaration) to an exact
// file path.
func WriteXMLFile(path string, body []byte) error {
	f, err := CreateFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(xml.Header); err != nil {
		return err
	}
	_, err = f.Write(body)
	return err
}

func shardStrings(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	var shards [][]string
	for len(items) > size {
		shards = append(shards, items[:size])
		items = items[size:]
	}
	shards = append(shards, items)
	return shards
}

func writeOpenAPI(wwwDir string) error {
	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "Betty Ancestry API",
			"version": "1.0.0",
		},
		"paths": map[string]any{},
	}
	return WriteJSONValue(filepath.Join(wwwDir, "api"), doc)
}

// WriteJSONFile writes raw JSON bytes to an exact file path (used for
// top-level, non index.json documents like schema.json).
func WriteJSONFile(path string, body []byte) error {
	f, err := CreateFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(body)
	return err
}

// WriteJSONValue marshals v and writes it as dir/index.json.
func WriteJSONValue(dir string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteJSON(dir, body)
}
