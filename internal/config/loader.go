package config

import (
	"fmt"

	"github.com/betty-gen/betty/internal/bettyerr"
)

// Loader accumulates structured field errors and deferred commit callbacks
// while a configuration tree is asserted against. Per spec.md §4.1, asserting
// never mutates the target directly: every successful assertion registers a
// commit callback, and commits only fire once the whole tree has been
// checked without error.
type Loader struct {
	errs       []*bettyerr.FieldError
	ctxStack   []string
	committers []func()
}

// New creates an empty Loader.
func New() *Loader {
	return &Loader{}
}

// PushContext pushes a path label; errors raised before the matching
// PopContext inherit it as a trailing context entry.
func (l *Loader) PushContext(label string) {
	l.ctxStack = append(l.ctxStack, label)
}

// PopContext pops the most recently pushed context label.
func (l *Loader) PopContext() {
	if len(l.ctxStack) == 0 {
		return
	}
	l.ctxStack = l.ctxStack[:len(l.ctxStack)-1]
}

// WithContext pushes label, runs fn, and always pops afterward.
func (l *Loader) WithContext(label string, fn func()) {
	l.PushContext(label)
	defer l.PopContext()
	fn()
}

// AddError records a field error at the current context.
func (l *Loader) AddError(format string, args ...any) {
	ctx := make([]string, len(l.ctxStack))
	copy(ctx, l.ctxStack)
	l.errs = append(l.errs, &bettyerr.FieldError{
		Message: fmt.Sprintf(format, args...),
		Context: ctx,
	})
}

// Commit registers a deferred side effect to run only if Finish succeeds.
func (l *Loader) Commit(fn func()) {
	l.committers = append(l.committers, fn)
}

// HasErrors reports whether any error has been recorded so far.
func (l *Loader) HasErrors() bool { return len(l.errs) > 0 }

// Errors returns the field errors recorded so far.
func (l *Loader) Errors() []*bettyerr.FieldError { return l.errs }

// Finish runs every committer in registration order if zero errors were
// recorded; otherwise it returns the aggregated *bettyerr.ConfigError and
// runs no committer at all, preserving the invariant that a partially-valid
// configuration never corrupts a live object.
func (l *Loader) Finish() error {
	if len(l.errs) > 0 {
		return &bettyerr.ConfigError{Errors: l.errs}
	}
	for _, c := range l.committers {
		c()
	}
	return nil
}
