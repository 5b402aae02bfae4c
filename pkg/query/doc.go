// Package query builds multi-level URL query strings from nested key/value data.
//
// Nested structures are flattened with bracket notation, the format PHP-style
// and legacy web GUIs expect:
//
//	q := query.New().
//		Set("a", 1).
//		Set("b", query.New().Set("c", 2))
//
//	query.Serialize(q) // "?a=1&b[c]=2"
//	query.Serialize(nil) // ""
//
// Values are encoded like encodeURIComponent (space becomes %20). Use Map to
// control pair order; plain Go maps are serialized in sorted key order and
// slices use their index as key:
//
//	query.Serialize(map[string]any{"ids": []int{4, 2}}) // "?ids[0]=4&ids[1]=2"
//
// Structs are flattened in field order, keyed by their url or json tag:
//
//	type filter struct {
//		Rows int    `json:"rows"`
//		Name string `url:"name,omitempty"`
//	}
//	query.Serialize(filter{Rows: 50}) // "?rows=50"
package query
