package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProjectConfig_RoundTrip(t *testing.T) {
	path := writeTempConfig(t, "betty.json", `{"base_url": "https://example.com", "title": "Ancestry"}`)

	cfg, err := LoadProjectConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", cfg.BaseURL)
	assert.Equal(t, "Ancestry", cfg.Title)

	dumped := cfg.Dump(false)
	second := &ProjectConfig{FilePath: path}
	l := New()
	ok := AssertProjectConfig(l, dumped, second)
	require.True(t, ok)
	require.NoError(t, l.Finish())
	second.ApplyDefaults()

	assert.Equal(t, cfg.BaseURL, second.BaseURL)
	assert.Equal(t, cfg.Title, second.Title)
	assert.Equal(t, cfg.Locales, second.Locales)
}

func TestAssertProjectConfig_BaseURLBoundary(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "valid https", baseURL: "https://example.com", wantErr: false},
		{name: "missing netloc", baseURL: "file://", wantErr: true},
		{name: "trailing slash", baseURL: "https://example.com/", wantErr: true},
		{name: "contains path", baseURL: "https://example.com/blog", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Mapping(KV{Key: "base_url", Value: String(tt.baseURL)})
			target := &ProjectConfig{}
			l := New()
			AssertProjectConfig(l, v, target)
			err := l.Finish()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssertProjectConfig_LifetimeThresholdMustBePositive(t *testing.T) {
	v := Mapping(
		KV{Key: "base_url", Value: String("https://example.com")},
		KV{Key: "lifetime_threshold", Value: Int(0)},
	)
	target := &ProjectConfig{}
	l := New()
	AssertProjectConfig(l, v, target)
	assert.Error(t, l.Finish())
}

func TestAssertProjectConfig_LocaleAliasRejectsSlash(t *testing.T) {
	v := Mapping(
		KV{Key: "base_url", Value: String("https://example.com")},
		KV{Key: "locales", Value: Mapping(
			KV{Key: "en-US", Value: Mapping(
				KV{Key: "locale", Value: String("en-US")},
				KV{Key: "alias", Value: String("en/us")},
			)},
		)},
	)
	target := &ProjectConfig{}
	l := New()
	AssertProjectConfig(l, v, target)
	assert.Error(t, l.Finish())
}

func TestAssertProjectConfig_EmptyLocalesAutoDefaults(t *testing.T) {
	v := Mapping(
		KV{Key: "base_url", Value: String("https://example.com")},
		KV{Key: "locales", Value: Mapping()},
	)
	target := &ProjectConfig{}
	l := New()
	require.True(t, AssertProjectConfig(l, v, target))
	require.NoError(t, l.Finish())
	require.Len(t, target.Locales, 1)
	assert.Equal(t, "en-US", target.Locales[0].Locale)
	assert.Equal(t, "en", target.Locales[0].Alias)
}

func TestApplyDefaults_NameDerivedFromFilePath(t *testing.T) {
	c := &ProjectConfig{FilePath: "/tmp/a/betty.json"}
	c.ApplyDefaults()
	assert.Len(t, c.Name, 12)
	assert.Equal(t, int64(DefaultLifetimeThreshold), c.LifetimeThreshold)
}
