package config

// Dump produces the minimized configuration tree for a ProjectConfig:
// void/empty optional fields are omitted unless preserveEmpty is set, per
// spec.md §4.1's "dump ∘ load is identity modulo default fields".
func (c *ProjectConfig) Dump(preserveEmpty bool) Value {
	pairs := []KV{
		{Key: "base_url", Value: String(c.BaseURL)},
	}
	pairs = append(pairs, kvOrVoid("root_path", c.RootPath, preserveEmpty)...)
	pairs = append(pairs, KV{Key: "clean_urls", Value: Bool(c.CleanURLs)})
	pairs = append(pairs, kvOrVoid("title", c.Title, preserveEmpty)...)
	pairs = append(pairs, kvOrVoid("author", c.Author, preserveEmpty)...)
	pairs = append(pairs, KV{Key: "name", Value: String(c.Name)})
	pairs = append(pairs, KV{Key: "debug", Value: Bool(c.Debug)})
	pairs = append(pairs, KV{Key: "lifetime_threshold", Value: Int(c.LifetimeThreshold)})
	pairs = append(pairs, KV{Key: "locales", Value: dumpLocales(c.Locales)})
	if len(c.Extensions) > 0 || preserveEmpty {
		pairs = append(pairs, KV{Key: "extensions", Value: dumpExtensions(c.Extensions)})
	}
	if len(c.EntityTypes) > 0 || preserveEmpty {
		pairs = append(pairs, KV{Key: "entity_types", Value: dumpEntityTypes(c.EntityTypes)})
	}
	return Mapping(pairs...)
}

func kvOrVoid(key, s string, preserveEmpty bool) []KV {
	if s == "" && !preserveEmpty {
		return nil
	}
	return []KV{{Key: key, Value: String(s)}}
}

func dumpLocales(locales []LocaleConfig) Value {
	pairs := make([]KV, 0, len(locales))
	for _, lc := range locales {
		pairs = append(pairs, KV{Key: lc.Locale, Value: Mapping(
			KV{Key: "locale", Value: String(lc.Locale)},
			KV{Key: "alias", Value: String(lc.Alias)},
		)})
	}
	return Mapping(pairs...)
}

func dumpExtensions(exts map[string]ExtensionConfig) Value {
	pairs := make([]KV, 0, len(exts))
	for id, e := range exts {
		fields := []KV{{Key: "enabled", Value: Bool(e.Enabled)}}
		if !e.Configuration.IsVoid() {
			fields = append(fields, KV{Key: "configuration", Value: e.Configuration})
		}
		pairs = append(pairs, KV{Key: id, Value: Mapping(fields...)})
	}
	return Mapping(pairs...)
}

func dumpEntityTypes(types map[string]EntityTypeConfig) Value {
	pairs := make([]KV, 0, len(types))
	for id, e := range types {
		pairs = append(pairs, KV{Key: id, Value: Mapping(
			KV{Key: "generate_html_list", Value: Bool(e.GenerateHTMLList)},
		)})
	}
	return Mapping(pairs...)
}
