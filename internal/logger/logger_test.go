package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_WritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Output: &buf, TimeFormat: "15:04:05"})
	l.Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestNewLogger_LevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: WarnLevel, Output: &buf})
	l.Info("should not appear")
	l.Warn("should appear")
	assert.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestWith_AttachesFieldsToSubsequentLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Output: &buf})
	l.With("request_id", "abc").Info("handled")
	assert.Contains(t, buf.String(), "request_id=abc")
}

func TestContextWithLogger_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Output: &buf})
	ctx := ContextWithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestFromContext_FallsBackWithoutPanicking(t *testing.T) {
	assert.NotPanics(t, func() { FromContext(context.Background()).Info("no logger attached") })
	assert.NotPanics(t, func() { FromContext(nil).Info("nil context") })
}
