// Package extension implements the Extension Registry: discovery,
// dependency/order resolution, instantiation, and capability dispatch
// tables (spec.md §4.4).
package extension

import (
	"github.com/betty-gen/betty/internal/config"
	"github.com/betty-gen/betty/internal/requirement"
)

// Capability names a single-method contract an extension instance may
// implement. Per spec.md §9's redesign note, dispatch is a map lookup by
// Capability rather than a reflective method-set walk.
type Capability string

const (
	CapabilityGenerator        Capability = "generator"
	CapabilityAssetProvider    Capability = "asset_provider"
	CapabilityCSSProvider      Capability = "css_provider"
	CapabilityJSProvider       Capability = "js_provider"
	CapabilityEntryPoint       Capability = "entry_point_provider"
	CapabilityEntityType       Capability = "entity_type_provider"
	CapabilityEventType        Capability = "event_type_provider"
	CapabilityThemable         Capability = "themable"
)

// Descriptor is the static metadata for one extension type, analogous to a
// registered plugin entry point (spec.md §3's "Extension descriptor").
type Descriptor struct {
	ID   string
	New  func(cfg config.Value) (any, error)
	DependsOn   []string
	ComesAfter  []string
	ComesBefore []string
	EnableRequirement func(enabledIDs map[string]bool) requirement.Requirement
	DefaultConfig     func() config.Value
	AssetsDir         string
	Capabilities      []Capability
}

var registry = map[string]*Descriptor{}

// Register adds d to the global set of known extension types. Extensions
// call this from an init() function, the static analogue of scanning a
// runtime plugin-entry-point group named "betty.extensions" (spec.md §6).
func Register(d *Descriptor) {
	registry[d.ID] = d
}

// Registered returns every statically registered extension descriptor.
func Registered() map[string]*Descriptor {
	out := make(map[string]*Descriptor, len(registry))
	for k, v := range registry {
		out[k] = v
	}
	return out
}

// Lookup returns a previously registered descriptor by id.
func Lookup(id string) (*Descriptor, bool) {
	d, ok := registry[id]
	return d, ok
}

// Instance pairs an instantiated extension with its descriptor.
type Instance struct {
	Descriptor *Descriptor
	Value      any
}
