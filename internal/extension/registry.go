package extension

import (
	"fmt"
	"sort"

	"github.com/betty-gen/betty/internal/bettyerr"
	"github.com/betty-gen/betty/internal/config"
	"github.com/betty-gen/betty/internal/requirement"
)

// Registry is the resolved, instantiated, batched set of extensions for one
// project (spec.md §4.4).
type Registry struct {
	// Batches holds extensions grouped so that, within a batch, no instance
	// depends on another in the same batch; batch N fully precedes batch
	// N+1.
	Batches [][]*Instance

	byID         map[string]*Instance
	byCapability map[Capability][]*Instance
	dependents   map[string][]string // reverse of DependsOn, for DisableRequirement
}

// ByCapability returns every instance implementing capability, across all
// batches, in batch order — the order the Event Dispatcher relies on.
func (r *Registry) ByCapability(capability Capability) []*Instance {
	return r.byCapability[capability]
}

// Get returns the instantiated extension for id, if enabled.
func (r *Registry) Get(id string) (*Instance, bool) {
	inst, ok := r.byID[id]
	return inst, ok
}

// DisableRequirement returns the requirement that must hold for id to be
// disabled: none of the other enabled extensions may still depend on it.
func (r *Registry) DisableRequirement(id string) requirement.Requirement {
	dependents := r.dependents[id]
	if len(dependents) == 0 {
		return requirement.Always
	}
	leaves := make([]requirement.Requirement, len(dependents))
	for i, dep := range dependents {
		dep := dep
		leaves[i] = requirement.NewLeaf(
			fmt.Sprintf("%q no longer depends on %q", dep, id),
			func() bool { return false },
		)
	}
	return requirement.NewAllOf(leaves...)
}

// Resolve runs the five-step algorithm of spec.md §4.4: expand the enabled
// set across transitive dependencies, check enable requirements, build the
// "comes after" DAG, batch-sort it topologically, and instantiate every
// extension per batch.
func Resolve(all map[string]*Descriptor, cfg map[string]config.ExtensionConfig) (*Registry, error) {
	enabled, err := resolveEnabledSet(all, cfg)
	if err != nil {
		return nil, err
	}
	if err := checkRequirements(all, enabled); err != nil {
		return nil, err
	}
	predecessors := buildGraph(all, enabled)
	batchIDs, err := batchTopoSort(enabled, predecessors)
	if err != nil {
		return nil, err
	}
	return instantiate(all, cfg, batchIDs)
}

// resolveEnabledSet expands the directly-enabled extensions across their
// transitive dependencies (step 1 of spec.md §4.4).
func resolveEnabledSet(all map[string]*Descriptor, cfg map[string]config.ExtensionConfig) (map[string]bool, error) {
	enabled := map[string]bool{}
	for id, ec := range cfg {
		if !ec.Enabled {
			continue
		}
		if _, known := all[id]; !known {
			return nil, fmt.Errorf("unknown extension %q", id)
		}
		enabled[id] = true
	}
	changed := true
	for changed {
		changed = false
		for id := range enabled {
			d := all[id]
			for _, dep := range d.DependsOn {
				if enabled[dep] {
					continue
				}
				if _, known := all[dep]; !known {
					return nil, fmt.Errorf("extension %q depends on unknown extension %q", id, dep)
				}
				enabled[dep] = true
				changed = true
			}
		}
	}
	return enabled, nil
}

// checkRequirements evaluates each enabled extension's EnableRequirement
// (step 2).
func checkRequirements(all map[string]*Descriptor, enabled map[string]bool) error {
	for id := range enabled {
		d := all[id]
		if d.EnableRequirement == nil {
			continue
		}
		req := d.EnableRequirement(enabled)
		if req == nil {
			continue
		}
		result := req.Evaluate()
		if !result.Met {
			return &bettyerr.RequirementError{ExtensionID: id, Summary: result}
		}
	}
	return nil
}

// buildGraph seeds "must come after" edges from DependsOn, then overlays
// ComesBefore/ComesAfter only when the other side is present (step 3).
func buildGraph(all map[string]*Descriptor, enabled map[string]bool) map[string]map[string]bool {
	predecessors := make(map[string]map[string]bool, len(enabled))
	for id := range enabled {
		predecessors[id] = map[string]bool{}
	}
	addEdge := func(after, before string) {
		// after must come after before.
		if enabled[after] && enabled[before] {
			predecessors[after][before] = true
		}
	}
	for id := range enabled {
		d := all[id]
		for _, dep := range d.DependsOn {
			addEdge(id, dep)
		}
		for _, other := range d.ComesAfter {
			addEdge(id, other)
		}
		for _, other := range d.ComesBefore {
			addEdge(other, id)
		}
	}
	return predecessors
}

// batchTopoSort repeatedly extracts the set of nodes with no remaining
// predecessors, sorts each batch lexicographically, and emits it (step 4).
// A non-empty remainder with no zero-predecessor node is a cycle.
func batchTopoSort(enabled map[string]bool, predecessors map[string]map[string]bool) ([][]string, error) {
	remaining := make(map[string]bool, len(enabled))
	for id := range enabled {
		remaining[id] = true
	}
	var batches [][]string
	for len(remaining) > 0 {
		var batch []string
		for id := range remaining {
			ready := true
			for pred := range predecessors[id] {
				if remaining[pred] {
					ready = false
					break
				}
			}
			if ready {
				batch = append(batch, id)
			}
		}
		if len(batch) == 0 {
			members := make([]string, 0, len(remaining))
			for id := range remaining {
				members = append(members, id)
			}
			sort.Strings(members)
			return nil, &bettyerr.CyclicDependencyError{Members: members}
		}
		sort.Strings(batch)
		batches = append(batches, batch)
		for _, id := range batch {
			delete(remaining, id)
		}
	}
	return batches, nil
}

// instantiate builds extension instances per batch (step 5), recording each
// extension's capability memberships and reverse dependencies. Asset
// directories are not registered here; project.Bootstrap adds them to the
// asset repository.
func instantiate(
	all map[string]*Descriptor,
	cfg map[string]config.ExtensionConfig,
	batchIDs [][]string,
) (*Registry, error) {
	reg := &Registry{
		byID:         map[string]*Instance{},
		byCapability: map[Capability][]*Instance{},
		dependents:   map[string][]string{},
	}
	for _, batch := range batchIDs {
		for _, id := range batch {
			for _, dep := range all[id].DependsOn {
				reg.dependents[dep] = append(reg.dependents[dep], id)
			}
		}
	}
	for _, batch := range batchIDs {
		var instances []*Instance
		for _, id := range batch {
			d := all[id]
			cv := config.Void
			if ec, ok := cfg[id]; ok && !ec.Configuration.IsVoid() {
				cv = ec.Configuration
			} else if d.DefaultConfig != nil {
				cv = d.DefaultConfig()
			}
			value, err := d.New(cv)
			if err != nil {
				return nil, fmt.Errorf("instantiating extension %q: %w", id, err)
			}
			inst := &Instance{Descriptor: d, Value: value}
			instances = append(instances, inst)
			reg.byID[id] = inst
			for _, cap := range d.Capabilities {
				reg.byCapability[cap] = append(reg.byCapability[cap], inst)
			}
		}
		reg.Batches = append(reg.Batches, instances)
	}
	return reg, nil
}
