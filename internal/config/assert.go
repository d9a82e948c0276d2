package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Assertion inspects v at the loader's current context and either returns a
// typed result with ok=true, or records an error on l and returns ok=false.
// Assertions never mutate a target directly (spec.md §4.1) — the caller is
// responsible for registering the commit via l.Commit.
type Assertion func(l *Loader, v Value) (any, bool)

var validate = validator.New()

// Bool asserts v is a boolean.
func Bool(l *Loader, v Value) (any, bool) {
	if b, ok := v.Bool(); ok {
		return b, true
	}
	l.AddError("expected a boolean")
	return nil, false
}

// Int asserts v is an integer.
func Int(l *Loader, v Value) (any, bool) {
	if i, ok := v.Int(); ok {
		return i, true
	}
	l.AddError("expected an integer")
	return nil, false
}

// Float asserts v is a number (integer or decimal).
func Float(l *Loader, v Value) (any, bool) {
	if f, ok := v.Float(); ok {
		return f, true
	}
	l.AddError("expected a number")
	return nil, false
}

// Str asserts v is a string.
func Str(l *Loader, v Value) (any, bool) {
	if s, ok := v.String(); ok {
		return s, true
	}
	l.AddError("expected a string")
	return nil, false
}

// List asserts v is a sequence, without checking item types.
func List(l *Loader, v Value) (any, bool) {
	if seq, ok := v.Sequence(); ok {
		return seq, true
	}
	l.AddError("expected a sequence")
	return nil, false
}

// Dict asserts v is a mapping, without checking value types.
func Dict(l *Loader, v Value) (any, bool) {
	if m, ok := v.Mapping(); ok {
		return m, true
	}
	l.AddError("expected a mapping")
	return nil, false
}

// Sequence builds an Assertion that asserts v is a sequence and every item
// satisfies item. Errors from individual items are reported with an
// index-qualified context but do not abort checking the remaining items.
func Sequence(item Assertion) Assertion {
	return func(l *Loader, v Value) (any, bool) {
		seq, ok := v.Sequence()
		if !ok {
			l.AddError("expected a sequence")
			return nil, false
		}
		out := make([]any, 0, len(seq))
		allOK := true
		for i, elem := range seq {
			l.WithContext(itoaContext(i), func() {
				if val, ok := item(l, elem); ok {
					out = append(out, val)
				} else {
					allOK = false
				}
			})
		}
		return out, allOK
	}
}

// Mapping builds an Assertion that asserts v is a mapping and every value
// satisfies valAssert. Keys are preserved as-is.
func Mapping(valAssert Assertion) Assertion {
	return func(l *Loader, v Value) (any, bool) {
		m, ok := v.Mapping()
		if !ok {
			l.AddError("expected a mapping")
			return nil, false
		}
		out := make(map[string]any, len(m))
		allOK := true
		for _, k := range v.Keys() {
			l.WithContext(k, func() {
				if val, ok := valAssert(l, m[k]); ok {
					out[k] = val
				} else {
					allOK = false
				}
			})
		}
		return out, allOK
	}
}

// PositiveNumber asserts v is a number strictly greater than zero.
func PositiveNumber(l *Loader, v Value) (any, bool) {
	f, ok := v.Float()
	if !ok {
		l.AddError("expected a number")
		return nil, false
	}
	if f <= 0 {
		l.AddError("must be a positive number")
		return nil, false
	}
	return f, true
}

// Path asserts v is a non-empty string naming a filesystem path, without
// requiring it to exist.
func Path(l *Loader, v Value) (any, bool) {
	s, ok := v.String()
	if !ok {
		l.AddError("expected a path string")
		return nil, false
	}
	if strings.TrimSpace(s) == "" {
		l.AddError("path must not be empty")
		return nil, false
	}
	return s, true
}

// DirectoryPath asserts v is a string naming a directory that exists on
// disk.
func DirectoryPath(l *Loader, v Value) (any, bool) {
	raw, ok := Path(l, v)
	if !ok {
		return nil, false
	}
	s := raw.(string)
	info, err := os.Stat(s)
	if err != nil || !info.IsDir() {
		l.AddError("%q is not an existing directory", s)
		return nil, false
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		l.AddError("could not resolve %q to an absolute path", s)
		return nil, false
	}
	return abs, true
}

var localeTagRE = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

// Locale asserts v is a string shaped like a BCP-47 locale tag.
func Locale(l *Loader, v Value) (any, bool) {
	s, ok := v.String()
	if !ok {
		l.AddError("expected a locale string")
		return nil, false
	}
	if !localeTagRE.MatchString(s) {
		l.AddError("%q is not a valid locale tag", s)
		return nil, false
	}
	return s, true
}

var entityTypeRE = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// EntityType asserts v names a valid entity-type identifier.
func EntityType(l *Loader, v Value) (any, bool) {
	s, ok := v.String()
	if !ok {
		l.AddError("expected an entity type name")
		return nil, false
	}
	if err := validate.Var(s, "required"); err != nil || !entityTypeRE.MatchString(s) {
		l.AddError("%q is not a valid entity type identifier", s)
		return nil, false
	}
	return s, true
}

var extensionIDRE = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ExtensionType asserts v names a valid extension identifier.
func ExtensionType(l *Loader, v Value) (any, bool) {
	s, ok := v.String()
	if !ok {
		l.AddError("expected an extension id")
		return nil, false
	}
	if !extensionIDRE.MatchString(s) {
		l.AddError("%q is not a valid extension id", s)
		return nil, false
	}
	return s, true
}

func itoaContext(i int) string {
	return fmt.Sprintf("[%d]", i)
}
