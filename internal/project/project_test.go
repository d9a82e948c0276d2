package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betty-gen/betty/internal/config"
)

func testConfig(t *testing.T) *config.ProjectConfig {
	t.Helper()
	cfg := &config.ProjectConfig{BaseURL: "https://example.com", FilePath: "/tmp/betty.json"}
	cfg.ApplyDefaults()
	return cfg
}

func TestBootstrap_BuildsCollaborators(t *testing.T) {
	p := New(testConfig(t), nil, t.TempDir())
	require.NoError(t, p.Bootstrap(context.Background()))
	assert.NotNil(t, p.Registry())
	assert.NotNil(t, p.Dispatcher())
	assert.NotNil(t, p.Assets())
}

func TestBootstrap_TwiceIsProgrammerError(t *testing.T) {
	p := New(testConfig(t), nil, t.TempDir())
	require.NoError(t, p.Bootstrap(context.Background()))
	assert.Panics(t, func() { _ = p.Bootstrap(context.Background()) })
}

func TestUseBeforeBootstrap_IsProgrammerError(t *testing.T) {
	p := New(testConfig(t), nil, t.TempDir())
	assert.Panics(t, func() { p.OutputDir() })
}

func TestShutdown_IsIdempotent(t *testing.T) {
	p := New(testConfig(t), nil, t.TempDir())
	require.NoError(t, p.Bootstrap(context.Background()))
	p.Shutdown(context.Background())
	assert.NotPanics(t, func() { p.Shutdown(context.Background()) })
}

func TestShutdown_WithoutBootstrapWarnsButDoesNotPanic(t *testing.T) {
	p := New(testConfig(t), nil, t.TempDir())
	assert.NotPanics(t, func() { p.Shutdown(context.Background()) })
}

func TestNewTemporaryProject_CreatesScratchDir(t *testing.T) {
	p, err := NewTemporaryProject(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Bootstrap(context.Background()))
	assert.NotEmpty(t, p.OutputDir())
}
