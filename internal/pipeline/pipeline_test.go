package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betty-gen/betty/internal/assets"
	"github.com/betty-gen/betty/internal/event"
	"github.com/betty-gen/betty/internal/extension"
	"github.com/betty-gen/betty/internal/jobctx"
	"github.com/betty-gen/betty/internal/worker"
)

// fakeSite is the minimal Site implementation used to drive the pipeline in
// isolation, without a full project.Project.
type fakeSite struct {
	outputDir   string
	locales     []LocaleRef
	assetsRepo  *assets.Repository
	registry    *extension.Registry
	dispatcher  *event.Dispatcher
	entityTypes []EntityTypeRef
}

func (s *fakeSite) OutputDir() string                { return s.outputDir }
func (s *fakeSite) Locales() []LocaleRef              { return s.locales }
func (s *fakeSite) DefaultLocale() LocaleRef          { return s.locales[0] }
func (s *fakeSite) Assets() *assets.Repository        { return s.assetsRepo }
func (s *fakeSite) Registry() *extension.Registry     { return s.registry }
func (s *fakeSite) Dispatcher() *event.Dispatcher     { return s.dispatcher }
func (s *fakeSite) EntityTypes() []EntityTypeRef       { return s.entityTypes }

func (s *fakeSite) RenderEntityHTML(entityType, id, locale string) ([]byte, error) {
	return []byte(fmt.Sprintf("<html>%s/%s/%s</html>", entityType, id, locale)), nil
}
func (s *fakeSite) RenderEntityJSON(entityType, id string) ([]byte, error) {
	return []byte(fmt.Sprintf(`{"type":%q,"id":%q}`, entityType, id)), nil
}
func (s *fakeSite) RenderListingHTML(entityType, locale string) ([]byte, error) {
	return []byte("<html>listing</html>"), nil
}
func (s *fakeSite) RenderListingJSON(entityType string) ([]byte, error) {
	return []byte(`{"listing":true}`), nil
}
func (s *fakeSite) RenderIndexHTML(locale string) ([]byte, error) { return []byte("<html>index</html>"), nil }
func (s *fakeSite) RenderIndexJSON() ([]byte, error)              { return []byte(`{"index":true}`), nil }

func newFakeSite(t *testing.T, locales []LocaleRef, entityTypes []EntityTypeRef) *fakeSite {
	t.Helper()
	reg, err := extension.Resolve(map[string]*extension.Descriptor{}, nil)
	require.NoError(t, err)
	return &fakeSite{
		outputDir:   t.TempDir(),
		locales:     locales,
		assetsRepo:  assets.New(),
		registry:    reg,
		dispatcher:  event.New(reg),
		entityTypes: entityTypes,
	}
}

func runPipeline(t *testing.T, site *fakeSite) {
	t.Helper()
	jc, err := jobctx.New()
	require.NoError(t, err)
	defer jc.Close()
	pool := worker.New(2, 2, jc)
	require.NoError(t, Run(context.Background(), site, pool, jc))
}

func TestRun_EmptyProjectProducesCoreFiles(t *testing.T) {
	site := newFakeSite(t, []LocaleRef{{Locale: "en-US", Alias: "en"}}, nil)
	runPipeline(t, site)

	www := filepath.Join(site.outputDir, "www")
	for _, rel := range []string{
		"index.html", "index.json", "sitemap.xml", "schema.json",
		filepath.Join("api", "index.json"),
		filepath.Join(".error", "404.json"),
	} {
		_, err := os.Stat(filepath.Join(www, rel))
		assert.NoError(t, err, "expected %s to exist", rel)
	}
}

func TestRun_PermissionsNormalized(t *testing.T) {
	site := newFakeSite(t, []LocaleRef{{Locale: "en-US", Alias: "en"}}, nil)
	runPipeline(t, site)

	err := filepath.WalkDir(site.outputDir, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		info, err := d.Info()
		require.NoError(t, err)
		if d.IsDir() {
			assert.Equal(t, os.FileMode(0o755), info.Mode().Perm(), path)
		} else {
			assert.Equal(t, os.FileMode(0o644), info.Mode().Perm(), path)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestRun_MultilingualEntityHTMLPerLocaleOneJSON(t *testing.T) {
	et := EntityTypeRef{
		Name:             "person",
		GenerateHTMLList: true,
		Entities:         []EntityRef{{Type: "person", ID: "p1", IsPublic: true}},
	}
	site := newFakeSite(t, []LocaleRef{
		{Locale: "en-US", Alias: "en"},
		{Locale: "nl-NL", Alias: "nl"},
	}, []EntityTypeRef{et})
	runPipeline(t, site)

	www := filepath.Join(site.outputDir, "www")
	_, err := os.Stat(filepath.Join(www, "person", "p1", "index.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(www, "person", "p1", "index.html"))
	assert.NoError(t, err, "default locale entity HTML")
	_, err = os.Stat(filepath.Join(www, "nl", "person", "p1", "index.html"))
	assert.NoError(t, err, "non-default locale entity HTML")
}

func TestRun_GeneratedEntitiesAreSkipped(t *testing.T) {
	et := EntityTypeRef{
		Name: "file",
		Entities: []EntityRef{
			{Type: "file", ID: "generated-1", IsGenerated: true, IsPublic: true},
		},
	}
	site := newFakeSite(t, []LocaleRef{{Locale: "en-US", Alias: "en"}}, []EntityTypeRef{et})
	runPipeline(t, site)

	www := filepath.Join(site.outputDir, "www")
	_, err := os.Stat(filepath.Join(www, "file", "generated-1"))
	assert.True(t, os.IsNotExist(err))
}

func TestShardStrings_ShardCountMatchesCeilingDivision(t *testing.T) {
	items := make([]string, 125_000)
	for i := range items {
		items[i] = fmt.Sprintf("/x/%d/", i)
	}
	shards := shardStrings(items, SitemapShardSize)
	assert.Len(t, shards, 3) // ceil(125000/50000) == 3
}
