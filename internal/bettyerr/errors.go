// Package bettyerr implements Betty's error taxonomy: configuration errors,
// requirement errors, pipeline errors, filesystem errors, and the
// UserError/internal-error distinction the CLI uses to decide whether to
// print a traceback.
package bettyerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/betty-gen/betty/internal/requirement"
)

// UserError is implemented by errors whose Error() message is safe and
// meaningful to show a user without a stack trace.
type UserError interface {
	error
	UserFacing() bool
}

// FieldError is one structured validation failure raised by the
// configuration loader: a localizable message plus the path from the
// configuration root to the offending node.
type FieldError struct {
	Message string
	Context []string
}

func (e *FieldError) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return strings.Join(e.Context, ".") + ": " + e.Message
}

// ConfigError aggregates every FieldError collected by a single load.
type ConfigError struct {
	Errors []*FieldError
}

func (e *ConfigError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	lines := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		lines[i] = fe.Error()
	}
	return fmt.Sprintf("%d configuration errors:\n  %s", len(e.Errors), strings.Join(lines, "\n  "))
}

func (e *ConfigError) UserFacing() bool { return true }

// RequirementError reports that an extension's enable (or disable)
// requirement was not met.
type RequirementError struct {
	ExtensionID string
	Summary     requirement.Result
}

func (e *RequirementError) Error() string {
	return fmt.Sprintf("extension %q requirement not met: %s", e.ExtensionID, e.Summary.Summary)
}

func (e *RequirementError) UserFacing() bool { return true }

// CyclicDependencyError reports an extension dependency cycle.
type CyclicDependencyError struct {
	Members []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic extension dependency among: %s", strings.Join(e.Members, ", "))
}

func (e *CyclicDependencyError) UserFacing() bool { return true }

// PipelineError wraps the first error raised by a generation task, keeping
// the task label for diagnostics and the original cause for Unwrap.
type PipelineError struct {
	Task  string
	cause error
}

// NewPipelineError builds a PipelineError. cause may itself be a
// *PipelineError from a nested task; in that case the outer Task label is
// kept and the original cause is preserved transparently via Unwrap.
func NewPipelineError(task string, cause error) *PipelineError {
	return &PipelineError{Task: task, cause: cause}
}

func (e *PipelineError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("task %q failed", e.Task)
	}
	return fmt.Sprintf("task %q failed: %s", e.Task, e.cause.Error())
}

func (e *PipelineError) Unwrap() error { return e.cause }

func (e *PipelineError) UserFacing() bool { return false }

// FilesystemError reports a failed lookup across an Asset Repository's
// overlay roots, or any other filesystem failure worth reporting with the
// set of paths that were tried.
type FilesystemError struct {
	Op        string
	TriedPaths []string
	cause     error
}

// NewFilesystemError builds a FilesystemError.
func NewFilesystemError(op string, triedPaths []string, cause error) *FilesystemError {
	return &FilesystemError{Op: op, TriedPaths: triedPaths, cause: cause}
}

func (e *FilesystemError) Error() string {
	if len(e.TriedPaths) == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.cause)
	}
	return fmt.Sprintf("%s: %s (tried: %s)", e.Op, e.cause, strings.Join(e.TriedPaths, ", "))
}

func (e *FilesystemError) Unwrap() error { return e.cause }

func (e *FilesystemError) UserFacing() bool { return true }

// IsUserFacing reports whether err should be printed to the user without a
// traceback. The first UserError found in err's chain (err itself, or
// something it wraps) decides.
func IsUserFacing(err error) bool {
	var ue UserError
	return errors.As(err, &ue) && ue.UserFacing()
}
