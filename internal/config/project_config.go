package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/gosimple/slug"
)

// LocaleConfig is one entry of ProjectConfig.Locales.
type LocaleConfig struct {
	Locale string
	Alias  string
}

// ExtensionConfig is one entry of ProjectConfig.Extensions.
type ExtensionConfig struct {
	Enabled       bool
	Configuration Value
}

// EntityTypeConfig is one entry of ProjectConfig.EntityTypes.
type EntityTypeConfig struct {
	GenerateHTMLList bool
}

// ProjectConfig is Betty's top-level project configuration, per spec.md §3.
type ProjectConfig struct {
	BaseURL           string
	RootPath          string
	CleanURLs         bool
	Title             string
	Author            string
	Name              string
	Debug             bool
	LifetimeThreshold int64
	Locales           []LocaleConfig
	Extensions        map[string]ExtensionConfig
	EntityTypes       map[string]EntityTypeConfig

	// FilePath is the path the configuration was loaded from, used to
	// derive Name's default when absent.
	FilePath string
}

// DefaultLifetimeThreshold mirrors the upstream genealogical convention for
// "presumed dead" age when the project does not set one explicitly.
const DefaultLifetimeThreshold = 125

// baseURL asserts v is a string of scheme+host only (no path, no trailing
// slash); any path component is rejected here since it belongs in
// root_path per spec.md §3.
func baseURL(l *Loader, v Value) (any, bool) {
	s, ok := v.String()
	if !ok {
		l.AddError("expected a URL string")
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil {
		l.AddError("%q is not a valid URL: %s", s, err)
		return nil, false
	}
	if u.Scheme == "" || u.Host == "" {
		l.AddError("%q must include a scheme and a host", s)
		return nil, false
	}
	if strings.HasSuffix(s, "/") {
		l.AddError("%q must not have a trailing slash", s)
		return nil, false
	}
	if u.Path != "" && u.Path != "/" {
		l.AddError("%q must not contain a path; use root_path instead", s)
		return nil, false
	}
	return u.Scheme + "://" + u.Host, true
}

// rootPath strips leading/trailing slashes from a root path string.
func rootPath(l *Loader, v Value) (any, bool) {
	s, ok := v.String()
	if !ok {
		l.AddError("expected a string")
		return nil, false
	}
	return strings.Trim(s, "/"), true
}

// recordNow asserts a nested record like Record, but runs its field commits
// as soon as the record is valid, so they fill the caller's local entry
// before it is returned. The entry itself still reaches the target only
// through the commit the enclosing field registers on l.
func recordNow(l *Loader, v Value, fields ...Field) bool {
	sub := &Loader{ctxStack: append([]string(nil), l.ctxStack...)}
	ok := Record(sub, v, fields...)
	l.errs = append(l.errs, sub.errs...)
	if !ok {
		return false
	}
	for _, c := range sub.committers {
		c()
	}
	return true
}

func localeEntry(l *Loader, v Value) (any, bool) {
	var entry LocaleConfig
	ok := recordNow(l, v,
		RequiredField("locale", Locale, SetAttr(func(s string) { entry.Locale = s })),
		OptionalField("alias", Str, SetAttr(func(s string) { entry.Alias = s })),
	)
	if !ok {
		return nil, false
	}
	if strings.Contains(entry.Alias, "/") {
		l.WithContext("alias", func() {
			l.AddError("locale alias must not contain '/'")
		})
		return nil, false
	}
	if entry.Alias == "" {
		entry.Alias = slug.Make(entry.Locale)
	}
	return entry, true
}

func extensionEntry(l *Loader, v Value) (any, bool) {
	entry := ExtensionConfig{Configuration: Void}
	ok := recordNow(l, v,
		RequiredField("enabled", Bool, SetAttr(func(b bool) { entry.Enabled = b })),
		OptionalField("configuration", rawValue, SetAttr(func(raw Value) { entry.Configuration = raw })),
	)
	return entry, ok
}

// rawValue passes v through untouched, for fields (like an extension's
// free-form `configuration` block) that are validated later by the
// extension itself rather than by the project loader.
func rawValue(_ *Loader, v Value) (any, bool) { return v, true }

func entityTypeEntry(l *Loader, v Value) (any, bool) {
	var entry EntityTypeConfig
	ok := recordNow(l, v,
		OptionalField("generate_html_list", Bool, SetAttr(func(b bool) { entry.GenerateHTMLList = b })),
	)
	return entry, ok
}

// locales asserts the non-empty, ordered locales mapping and enforces the
// invariant that the first entry is the default and the list is never
// empty: an empty input auto-appends a synthesized "en-US" default, per
// spec.md §8's "Removing the last locale" boundary behavior.
func locales(l *Loader, v Value) (any, bool) {
	m, ok := v.Mapping()
	if !ok {
		l.AddError("expected a mapping of locale to configuration")
		return nil, false
	}
	keys := v.Keys()
	if len(keys) == 0 {
		return []LocaleConfig{{Locale: "en-US", Alias: "en"}}, true
	}
	out := make([]LocaleConfig, 0, len(keys))
	allOK := true
	for _, k := range keys {
		l.WithContext(k, func() {
			val, ok := localeEntry(l, m[k])
			if !ok {
				allOK = false
				return
			}
			entry := val.(LocaleConfig)
			if entry.Locale == "" {
				entry.Locale = k
			}
			out = append(out, entry)
		})
	}
	return out, allOK
}

func extensionsMap(l *Loader, v Value) (any, bool) {
	raw, ok := Mapping(extensionEntry)(l, v)
	if !ok {
		return nil, false
	}
	m := raw.(map[string]any)
	out := make(map[string]ExtensionConfig, len(m))
	for k, e := range m {
		out[k] = e.(ExtensionConfig)
	}
	return out, true
}

func entityTypesMap(l *Loader, v Value) (any, bool) {
	raw, ok := Mapping(entityTypeEntry)(l, v)
	if !ok {
		return nil, false
	}
	m := raw.(map[string]any)
	out := make(map[string]EntityTypeConfig, len(m))
	for k, e := range m {
		out[k] = e.(EntityTypeConfig)
	}
	return out, true
}

// AssertProjectConfig runs the full ProjectConfig record assertion against
// v, committing into target on success.
func AssertProjectConfig(l *Loader, v Value, target *ProjectConfig) bool {
	return Record(l, v,
		RequiredField("base_url", baseURL, SetAttr(func(s string) { target.BaseURL = s })),
		OptionalField("root_path", rootPath, SetAttr(func(s string) { target.RootPath = s })),
		OptionalField("clean_urls", Bool, SetAttr(func(b bool) { target.CleanURLs = b })),
		OptionalField("title", Str, SetAttr(func(s string) { target.Title = s })),
		OptionalField("author", Str, SetAttr(func(s string) { target.Author = s })),
		OptionalField("name", Str, SetAttr(func(s string) { target.Name = s })),
		OptionalField("debug", Bool, SetAttr(func(b bool) { target.Debug = b })),
		OptionalField("lifetime_threshold", PositiveNumber, SetAttr(func(f float64) {
			target.LifetimeThreshold = int64(f)
		})),
		OptionalField("locales", locales, SetAttr(func(ls []LocaleConfig) { target.Locales = ls })),
		OptionalField("extensions", extensionsMap, SetAttr(func(m map[string]ExtensionConfig) {
			target.Extensions = m
		})),
		OptionalField("entity_types", entityTypesMap, SetAttr(func(m map[string]EntityTypeConfig) {
			target.EntityTypes = m
		})),
	)
}

// ApplyDefaults fills in the fields spec.md describes as defaulted rather
// than required: Name from a hash of FilePath, LifetimeThreshold, and the
// default locale list.
func (c *ProjectConfig) ApplyDefaults() {
	if c.Name == "" {
		sum := sha256.Sum256([]byte(c.FilePath))
		c.Name = hex.EncodeToString(sum[:])[:12]
	}
	if c.LifetimeThreshold == 0 {
		c.LifetimeThreshold = DefaultLifetimeThreshold
	}
	if len(c.Locales) == 0 {
		c.Locales = []LocaleConfig{{Locale: "en-US", Alias: "en"}}
	}
	if c.Extensions == nil {
		c.Extensions = map[string]ExtensionConfig{}
	}
	if c.EntityTypes == nil {
		c.EntityTypes = map[string]EntityTypeConfig{}
	}
}

// DefaultLocale returns the first, default locale entry.
func (c *ProjectConfig) DefaultLocale() LocaleConfig {
	if len(c.Locales) == 0 {
		return LocaleConfig{Locale: "en-US", Alias: "en"}
	}
	return c.Locales[0]
}

// String implements fmt.Stringer for debug logging.
func (c *ProjectConfig) String() string {
	return fmt.Sprintf("ProjectConfig{Name:%s BaseURL:%s Locales:%d Extensions:%d}",
		c.Name, c.BaseURL, len(c.Locales), len(c.Extensions))
}
