package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betty-gen/betty/internal/config"
	"github.com/betty-gen/betty/internal/extension"
)

type generatorValue struct{ id string }

func buildRegistry(t *testing.T, batches [][]string) *extension.Registry {
	t.Helper()
	all := map[string]*extension.Descriptor{}
	for i, batch := range batches {
		for _, id := range batch {
			deps := []string{}
			if i > 0 {
				deps = append(deps, batches[i-1]...)
			}
			all[id] = &extension.Descriptor{
				ID:           id,
				DependsOn:    deps,
				New:          func(config.Value) (any, error) { return &generatorValue{id: id}, nil },
				Capabilities: []extension.Capability{extension.CapabilityGenerator},
			}
		}
	}
	cfg := map[string]config.ExtensionConfig{}
	for _, batch := range batches {
		for _, id := range batch {
			cfg[id] = config.ExtensionConfig{Enabled: true, Configuration: config.Void}
		}
	}
	reg, err := extension.Resolve(all, cfg)
	require.NoError(t, err)
	return reg
}

func TestInvoke_BatchOrderedDispatch(t *testing.T) {
	reg := buildRegistry(t, [][]string{{"b"}, {"a"}})
	d := New(reg)

	var mu sync.Mutex
	var order []string
	_, err := Invoke(context.Background(), d, extension.CapabilityGenerator,
		func(ctx context.Context, inst *extension.Instance) (struct{}, error) {
			mu.Lock()
			order = append(order, inst.Descriptor.ID)
			mu.Unlock()
			return struct{}{}, nil
		})
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "b", order[0], "batch 0 must run, and fully finish, before batch 1")
	assert.Equal(t, "a", order[1])
}

func TestInvoke_FirstErrorCancelsDispatch(t *testing.T) {
	reg := buildRegistry(t, [][]string{{"a", "b"}})
	d := New(reg)

	boom := errors.New("boom")
	_, err := Invoke(context.Background(), d, extension.CapabilityGenerator,
		func(ctx context.Context, inst *extension.Instance) (struct{}, error) {
			if inst.Descriptor.ID == "a" {
				return struct{}{}, boom
			}
			<-ctx.Done()
			return struct{}{}, ctx.Err()
		})
	require.Error(t, err)
}
