package response

import (
	"encoding/json"
	"math/big"
	"reflect"
	"time"
)

// circular is the literal spec requires in place of a cyclic reference.
const circular = "[Circular]"

// safeMarshal implements the "safe JSON" encoder (spec §4.6/§9): cycles are
// replaced with "[Circular]", big integers become decimal strings, and
// date-like values serialize to ISO-8601/RFC3339 strings.
//
// Grounded on the reflect-driven value-rewriting walk in
// xraph-go-utils/http/sensitive.go's cleanSensitiveValue/cleanSensitiveStruct
// (same technique — recursively rebuild a reflect.Value tree — reused here
// to pre-transform a value into something encoding/json can always marshal,
// instead of redacting sensitive fields).
func safeMarshal(v any) ([]byte, error) {
	seen := make(map[uintptr]bool)
	transformed := transform(reflect.ValueOf(v), seen)

	return json.Marshal(transformed)
}

func transform(rv reflect.Value, seen map[uintptr]bool) any {
	if !rv.IsValid() {
		return nil
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return nil
		}

		return transform(rv.Elem(), seen)

	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}

		addr := rv.Pointer()
		if seen[addr] {
			return circular
		}

		seen[addr] = true
		defer delete(seen, addr)

		if bi, ok := rv.Interface().(*big.Int); ok {
			return bi.String()
		}

		return transform(rv.Elem(), seen)

	case reflect.Struct:
		if t, ok := rv.Interface().(time.Time); ok {
			return t.UTC().Format(time.RFC3339)
		}

		if bi, ok := rv.Interface().(big.Int); ok {
			return bi.String()
		}

		out := make(map[string]any)
		rt := rv.Type()

		for i := range rt.NumField() {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}

			name := field.Name
			tag := field.Tag.Get("json")
			if tag == "-" {
				continue
			}

			if tag != "" {
				if idx := indexOfComma(tag); idx >= 0 {
					name = tag[:idx]
				} else {
					name = tag
				}

				if name == "" {
					name = field.Name
				}
			}

			out[name] = transform(rv.Field(i), seen)
		}

		return out

	case reflect.Map:
		addr := rv.Pointer()
		if addr != 0 {
			if seen[addr] {
				return circular
			}

			seen[addr] = true
			defer delete(seen, addr)
		}

		out := make(map[string]any, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			out[toKeyString(iter.Key())] = transform(iter.Value(), seen)
		}

		return out

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return nil
			}

			addr := rv.Pointer()
			if seen[addr] {
				return circular
			}

			seen[addr] = true
			defer delete(seen, addr)
		}

		out := make([]any, rv.Len())
		for i := range out {
			out[i] = transform(rv.Index(i), seen)
		}

		return out

	default:
		return rv.Interface()
	}
}

func toKeyString(rv reflect.Value) string {
	if rv.Kind() == reflect.String {
		return rv.String()
	}

	b, _ := json.Marshal(rv.Interface())

	return string(b)
}

func indexOfComma(s string) int {
	for i, r := range s {
		if r == ',' {
			return i
		}
	}

	return -1
}
