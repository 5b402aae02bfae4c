package query

import (
	"encoding"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Serialize converts a nested key/value structure into a URL query string.
// The result starts with "?" when at least one pair is produced; an empty
// structure yields "".
//
// Nested keys are written as parent[child], recursively:
//
//	query.Serialize(query.New().Set("a", 1).Set("b", query.New().Set("c", 2)))
//	// "?a=1&b[c]=2"
func Serialize(v any) string {
	s := Encode(v)
	if s == "" {
		return ""
	}
	return "?" + s
}

// Encode is Serialize without the leading "?".
func Encode(v any) string {
	var pairs []string
	walk(v, "", &pairs)
	return strings.Join(pairs, "&")
}

// walk appends key=value pairs for every leaf of v.
// A scalar without a prefix has no key and is ignored.
func walk(v any, prefix string, pairs *[]string) {
	if v == nil {
		return
	}

	switch t := v.(type) {
	case *Map:
		if t == nil {
			return
		}
		for _, k := range t.keys {
			walk(t.values[k], join(prefix, k), pairs)
		}
		return
	case Map:
		walk(&t, prefix, pairs)
		return
	case url.Values:
		for _, k := range sortedKeys(t) {
			vals := t[k]
			if len(vals) == 1 {
				walk(vals[0], join(prefix, k), pairs)
				continue
			}
			walk(vals, join(prefix, k), pairs)
		}
		return
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface(), join(prefix, k), pairs)
		}
		return
	case reflect.Struct:
		if isText(rv) {
			break
		}
		for _, f := range structFields(rv) {
			walk(f.value.Interface(), join(prefix, f.name), pairs)
		}
		return
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			break // []byte is a scalar
		}
		for i := 0; i < rv.Len(); i++ {
			walk(rv.Index(i).Interface(), join(prefix, strconv.Itoa(i)), pairs)
		}
		return
	}

	if prefix == "" {
		return
	}
	*pairs = append(*pairs, escapeKey(prefix)+"="+Escape(scalar(rv)))
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "[" + key + "]"
}

// scalar formats a leaf value the way a browser would stringify it.
func scalar(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes())
		}
	}
	if m, ok := rv.Interface().(encoding.TextMarshaler); ok {
		if b, err := m.MarshalText(); err == nil {
			return string(b)
		}
	}
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(rv.Interface())
}

// Escape percent-encodes s like JavaScript's encodeURIComponent:
// spaces become %20 and the characters -_.!~*'() stay literal.
func Escape(s string) string {
	e := url.QueryEscape(s)
	if !strings.ContainsAny(e, "+%") {
		return e
	}
	e = strings.ReplaceAll(e, "+", "%20")
	for enc, lit := range literalEscapes {
		e = strings.ReplaceAll(e, enc, lit)
	}
	return e
}

var literalEscapes = map[string]string{
	"%21": "!",
	"%27": "'",
	"%28": "(",
	"%29": ")",
	"%2A": "*",
	"%7E": "~",
}

// escapeKey encodes every key segment but keeps the bracket notation readable.
func escapeKey(key string) string {
	if !strings.Contains(key, "[") {
		return Escape(key)
	}
	var b strings.Builder
	for i, part := range strings.Split(key, "[") {
		if i == 0 {
			b.WriteString(Escape(part))
			continue
		}
		b.WriteByte('[')
		b.WriteString(Escape(strings.TrimSuffix(part, "]")))
		b.WriteByte(']')
	}
	return b.String()
}

func sortedKeys(v url.Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
