package query

import (
	"encoding"
	"reflect"
	"strings"
)

var textMarshaler = reflect.TypeFor[encoding.TextMarshaler]()

type field struct {
	name  string
	value reflect.Value
}

// structFields returns the exported fields of rv in declaration order, named
// by their url tag, then json tag, then Go name. Untagged embedded structs are
// flattened into the parent.
func structFields(rv reflect.Value) []field {
	var out []field
	t := rv.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, omitEmpty, skip := fieldTag(sf)
		if skip {
			continue
		}

		fv := rv.Field(i)
		if sf.Anonymous && name == "" {
			inner := fv
			for inner.Kind() == reflect.Pointer && !inner.IsNil() {
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct && !isText(inner) {
				out = append(out, structFields(inner)...)
				continue
			}
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		out = append(out, field{name: name, value: fv})
	}
	return out
}

func fieldTag(sf reflect.StructField) (name string, omitEmpty, skip bool) {
	tag, ok := sf.Tag.Lookup("url")
	if !ok {
		tag, ok = sf.Tag.Lookup("json")
	}
	if !ok {
		return "", false, false
	}
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// isText reports whether rv serializes as a single value, like time.Time.
func isText(rv reflect.Value) bool {
	return rv.Type().Implements(textMarshaler)
}
