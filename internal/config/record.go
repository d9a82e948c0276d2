package config

// Field describes one named field of a record: how to assert its value and
// how to commit the asserted result onto a target once the whole load
// succeeds.
type Field struct {
	Name     string
	Required bool
	Assert   Assertion
	Commit   func(val any)
}

// RequiredField builds a Field that errors if absent.
func RequiredField(name string, assert Assertion, commit func(val any)) Field {
	return Field{Name: name, Required: true, Assert: assert, Commit: commit}
}

// OptionalField builds a Field that is silently skipped if absent.
func OptionalField(name string, assert Assertion, commit func(val any)) Field {
	return Field{Name: name, Required: false, Assert: assert, Commit: commit}
}

// SetAttr adapts a typed setter into the `func(val any)` shape Field.Commit
// expects — the Go analogue of spec.md's terminal `setattr(target,
// attribute)` assertion.
func SetAttr[T any](setter func(T)) func(val any) {
	return func(val any) {
		setter(val.(T))
	}
}

// Record asserts that v is a mapping, applies every field in fields,
// reports unknown keys with the set of known keys as a hint, and registers
// one commit callback per successfully asserted field. It returns false if
// v was not a mapping or any field failed.
func Record(l *Loader, v Value, fields ...Field) bool {
	m, ok := v.Mapping()
	if !ok {
		l.AddError("expected a mapping")
		return false
	}
	known := make(map[string]bool, len(fields))
	allOK := true
	for _, f := range fields {
		known[f.Name] = true
		fv, present := m[f.Name]
		if !present {
			if f.Required {
				l.WithContext(f.Name, func() {
					l.AddError("missing required field")
				})
				allOK = false
			}
			continue
		}
		field := f
		l.WithContext(field.Name, func() {
			val, ok := field.Assert(l, fv)
			if !ok {
				allOK = false
				return
			}
			l.Commit(func() { field.Commit(val) })
		})
	}
	knownList := knownKeys(fields)
	for _, k := range v.Keys() {
		if !known[k] {
			l.WithContext(k, func() {
				l.AddError("unknown field (known fields: %v)", knownList)
			})
			allOK = false
		}
	}
	return allOK
}

func knownKeys(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}
