package bettyerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betty-gen/betty/internal/requirement"
)

func TestIsUserFacing_TrueForUserErrors(t *testing.T) {
	assert.True(t, IsUserFacing(&ConfigError{Errors: []*FieldError{{Message: "bad"}}}))
	assert.True(t, IsUserFacing(&RequirementError{ExtensionID: "x", Summary: requirement.Result{Met: false}}))
	assert.True(t, IsUserFacing(&CyclicDependencyError{Members: []string{"a", "b"}}))
	assert.True(t, IsUserFacing(NewFilesystemError("open", nil, errors.New("nope"))))
}

func TestIsUserFacing_FalseForPipelineErrors(t *testing.T) {
	assert.False(t, IsUserFacing(NewPipelineError("schema", errors.New("boom"))))
}

func TestIsUserFacing_FalseForPlainErrors(t *testing.T) {
	assert.False(t, IsUserFacing(errors.New("plain")))
}

func TestConfigError_SingleVsMultiple(t *testing.T) {
	single := &ConfigError{Errors: []*FieldError{{Message: "bad base_url", Context: []string{"base_url"}}}}
	assert.Equal(t, "base_url: bad base_url", single.Error())

	multi := &ConfigError{Errors: []*FieldError{
		{Message: "bad", Context: []string{"a"}},
		{Message: "worse", Context: []string{"b"}},
	}}
	assert.Contains(t, multi.Error(), "2 configuration errors")
}

func TestPipelineError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPipelineError("sitemap", cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "sitemap")
	assert.Contains(t, err.Error(), "disk full")
}

func TestFilesystemError_ListsTriedPaths(t *testing.T) {
	err := NewFilesystemError("open asset", []string{"/a", "/b"}, errors.New("not found"))
	assert.Contains(t, err.Error(), "/a")
	assert.Contains(t, err.Error(), "/b")
	require.ErrorIs(t, err, err.Unwrap())
}
