package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile reads filePath and decodes it into a Value tree, auto-detecting
// the format from its extension (.json, .yaml, .yml). Any other extension
// is a load error, per spec.md §4.1.
func ParseFile(filePath string) (Value, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Value{}, fmt.Errorf("reading configuration file: %w", err)
	}
	var raw any
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return Value{}, fmt.Errorf("decoding JSON configuration: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Value{}, fmt.Errorf("decoding YAML configuration: %w", err)
		}
	default:
		return Value{}, fmt.Errorf("unsupported configuration file extension %q", ext)
	}
	return FromAny(normalizeYAMLMaps(raw)), nil
}

// normalizeYAMLMaps walks map[string]any and []any nodes, recursing into
// their children in place. It does not rewrite map[any]any nodes (as
// produced by some YAML decoders); FromAny converts those itself.
func normalizeYAMLMaps(in any) any {
	switch t := in.(type) {
	case map[string]any:
		for k, v := range t {
			t[k] = normalizeYAMLMaps(v)
		}
		return t
	case []any:
		for i, v := range t {
			t[i] = normalizeYAMLMaps(v)
		}
		return t
	default:
		return in
	}
}

// FindProjectFile locates a project configuration file under dir, trying
// betty.json, betty.yaml, betty.yml in that order.
func FindProjectFile(dir string) (string, error) {
	for _, name := range []string{"betty.json", "betty.yaml", "betty.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no betty.(json|yaml|yml) found in %s", dir)
}

// LoadProjectConfig parses and asserts filePath into a *ProjectConfig,
// applying defaults on success.
func LoadProjectConfig(filePath string) (*ProjectConfig, error) {
	v, err := ParseFile(filePath)
	if err != nil {
		return nil, err
	}
	target := &ProjectConfig{FilePath: filePath}
	l := New()
	AssertProjectConfig(l, v, target)
	if err := l.Finish(); err != nil {
		return nil, err
	}
	target.ApplyDefaults()
	return target, nil
}
