// Package config implements Betty's configuration tree, the two-phase
// assertion/commit loader, and the typed ProjectConfig it produces.
package config

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind identifies the concrete shape a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMapping
	// KindVoid marks a value that must disappear from serialized output,
	// distinct from an explicit null (spec.md §3's "void sentinel").
	KindVoid
)

// Value is Betty's recursive configuration tree node: bool, int, decimal,
// string, null, ordered sequence, string-keyed mapping, or void.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
	m    map[string]Value
	// keys preserves mapping insertion order, since map[string]Value alone
	// does not.
	keys []string
}

// Void is the distinguished sentinel instructing the dumper to omit a key.
var Void = Value{kind: KindVoid}

// Null is the explicit-null value, distinct from Void.
var Null = Value{kind: KindNull}

func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int(i int64) Value       { return Value{kind: KindInt, i: i} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func Sequence(v ...Value) Value {
	return Value{kind: KindSequence, seq: v}
}

// Mapping builds an ordered mapping Value from keys in the order given.
func Mapping(pairs ...KV) Value {
	v := Value{kind: KindMapping, m: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		if _, exists := v.m[p.Key]; !exists {
			v.keys = append(v.keys, p.Key)
		}
		v.m[p.Key] = p.Value
	}
	return v
}

// KV is a single mapping entry, used to build ordered Mappings.
type KV struct {
	Key   string
	Value Value
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsVoid() bool { return v.kind == KindVoid }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) Float() (float64, bool) {
	if v.kind == KindFloat {
		return v.f, true
	}
	if v.kind == KindInt {
		return float64(v.i), true
	}
	return 0, false
}
func (v Value) String() (string, bool) { return v.s, v.kind == KindString }
func (v Value) Sequence() ([]Value, bool) {
	return v.seq, v.kind == KindSequence
}
func (v Value) Mapping() (map[string]Value, bool) {
	return v.m, v.kind == KindMapping
}

// Keys returns a mapping's keys in insertion order. Empty for non-mappings.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Get looks up a mapping key, returning Void (not Null) when absent so
// callers can distinguish "absent" from "explicitly null" at call sites
// that care.
func (v Value) Get(key string) Value {
	if v.kind != KindMapping {
		return Void
	}
	if val, ok := v.m[key]; ok {
		return val
	}
	return Void
}

// FromAny converts a generic decoded tree (as produced by json.Unmarshal or
// yaml.Unmarshal into `any`) into a Value tree.
func FromAny(in any) Value {
	switch t := in.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case string:
		return String(t)
	case []any:
		seq := make([]Value, len(t))
		for i, item := range t {
			seq[i] = FromAny(item)
		}
		return Value{kind: KindSequence, seq: seq}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		v := Value{kind: KindMapping, m: make(map[string]Value, len(t)), keys: keys}
		for _, k := range keys {
			v.m[k] = FromAny(t[k])
		}
		return v
	case map[any]any:
		converted := make(map[string]any, len(t))
		for k, val := range t {
			converted[fmt.Sprintf("%v", k)] = val
		}
		return FromAny(converted)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// ToAny converts a Value tree back into plain Go values, suitable for
// json.Marshal or yaml.Marshal. Void collapses to nil and must be filtered
// by the caller before serialization (see Dump's minimizer).
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull, KindVoid:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.ToAny()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.m))
		for _, k := range v.keys {
			item := v.m[k]
			if item.IsVoid() {
				continue
			}
			out[k] = item.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler, honoring Void omission inside
// mappings (top-level Void marshals as null, since there is no key to drop).
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}
