package query

import (
	"net/url"
	"reflect"
	"sort"
)

// Map is an insertion-ordered string-keyed map.
// Go maps have no stable iteration order, so payloads that must serialize
// in a given order should be built with Map.
type Map struct {
	keys   []string
	values map[string]any
}

// New returns an empty Map.
func New() *Map {
	return &Map{values: make(map[string]any)}
}

// Set stores value under key. An existing key keeps its position.
// Returns the map to allow chaining.
func (m *Map) Set(key string, value any) *Map {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return m
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key from the map.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// From copies a top-level payload into a new Map.
// Maps keep insertion order when they are a *Map and sorted key order otherwise.
// Structs keep field order and are keyed by their url or json tags.
// Nil or scalar payloads produce an empty Map.
func From(payload any) *Map {
	out := New()
	switch t := payload.(type) {
	case nil:
		return out
	case *Map:
		if t == nil {
			return out
		}
		for _, k := range t.keys {
			out.Set(k, t.values[k])
		}
		return out
	case Map:
		return From(&t)
	case url.Values:
		for _, k := range sortedKeys(t) {
			if vals := t[k]; len(vals) == 1 {
				out.Set(k, vals[0])
			} else {
				out.Set(k, vals)
			}
		}
		return out
	}

	rv := reflect.ValueOf(payload)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return out
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct && !isText(rv) {
		for _, f := range structFields(rv) {
			out.Set(f.name, f.value.Interface())
		}
		return out
	}
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return out
	}

	keys := make([]reflect.Value, 0, rv.Len())
	keys = append(keys, rv.MapKeys()...)
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		out.Set(k.String(), rv.MapIndex(k).Interface())
	}
	return out
}
