// Package event implements the dispatchable event bus extensions use to
// participate in generation (spec.md §4.5).
package event

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/betty-gen/betty/internal/extension"
)

// Dispatcher delivers typed events to every extension implementing a given
// capability, batch by batch, preserving batch ordering in the results.
type Dispatcher struct {
	registry *extension.Registry
}

// New builds a Dispatcher bound to registry.
func New(registry *extension.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Invoke calls fn, once per extension instance implementing capability, in
// registry batch order. Within one batch every implementing extension is
// invoked concurrently via errgroup; the first non-nil error cancels the
// batch's context, aborts the whole dispatch, and is returned once every
// goroutine of that batch has returned, matching spec.md §4.5's "a
// failing invocation ... cancels the whole dispatch and propagates the
// first exception". Successful batches are appended, in order, to the
// flat result slice returned.
func Invoke[R any](ctx context.Context, d *Dispatcher, capability extension.Capability, fn func(ctx context.Context, inst *extension.Instance) (R, error)) ([]R, error) {
	var results []R
	for _, batch := range d.registry.Batches {
		var implementing []*extension.Instance
		for _, inst := range batch {
			if hasCapability(inst, capability) {
				implementing = append(implementing, inst)
			}
		}
		if len(implementing) == 0 {
			continue
		}
		batchResults := make([]R, len(implementing))
		g, gctx := errgroup.WithContext(ctx)
		for i, inst := range implementing {
			i, inst := i, inst
			g.Go(func() error {
				r, err := fn(gctx, inst)
				if err != nil {
					return err
				}
				batchResults[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		results = append(results, batchResults...)
	}
	return results, nil
}

func hasCapability(inst *extension.Instance, capability extension.Capability) bool {
	for _, c := range inst.Descriptor.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
