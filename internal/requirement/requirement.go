// Package requirement implements the composable predicate tree
// ({leaf, all-of, any-of}) spec.md §3/§4.4 uses to describe an extension's
// enable/disable preconditions with a localizable, renderable summary.
package requirement

import (
	"fmt"
	"strings"
)

// Result is the outcome of evaluating a Requirement: whether it is met,
// and a renderable human-facing explanation.
type Result struct {
	Met     bool
	Summary string
}

// Requirement is a node of the predicate tree.
type Requirement interface {
	Evaluate() Result
}

// Leaf is a single named predicate with its own check function.
type Leaf struct {
	Description string
	Check       func() bool
}

// Evaluate runs the leaf's check and renders its summary.
func (l Leaf) Evaluate() Result {
	met := l.Check()
	status := "met"
	if !met {
		status = "unmet"
	}
	return Result{Met: met, Summary: fmt.Sprintf("%s (%s)", l.Description, status)}
}

// NewLeaf builds a Leaf requirement.
func NewLeaf(description string, check func() bool) Leaf {
	return Leaf{Description: description, Check: check}
}

// AllOf is met only if every child requirement is met.
type AllOf struct {
	Children []Requirement
}

func (a AllOf) Evaluate() Result {
	met := true
	summaries := make([]string, len(a.Children))
	for i, c := range a.Children {
		r := c.Evaluate()
		summaries[i] = r.Summary
		met = met && r.Met
	}
	return Result{Met: met, Summary: "all of: " + strings.Join(summaries, "; ")}
}

// NewAllOf builds an AllOf requirement from children.
func NewAllOf(children ...Requirement) AllOf {
	return AllOf{Children: children}
}

// AnyOf is met if at least one child requirement is met. An empty AnyOf is
// treated as met.
type AnyOf struct {
	Children []Requirement
}

func (a AnyOf) Evaluate() Result {
	if len(a.Children) == 0 {
		return Result{Met: true, Summary: "no requirements"}
	}
	met := false
	summaries := make([]string, len(a.Children))
	for i, c := range a.Children {
		r := c.Evaluate()
		summaries[i] = r.Summary
		met = met || r.Met
	}
	return Result{Met: met, Summary: "any of: " + strings.Join(summaries, "; ")}
}

// NewAnyOf builds an AnyOf requirement from children.
func NewAnyOf(children ...Requirement) AnyOf {
	return AnyOf{Children: children}
}

// Always is a trivially-met requirement, used as the default
// EnableRequirement for extensions with no precondition.
var Always Requirement = NewLeaf("always available", func() bool { return true })
