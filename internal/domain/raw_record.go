package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is one vendor record as returned by a ChMS client: an arbitrary
// key/value map, possibly with nested objects (JSON:API attributes, CCB
// address blocks, etc).
type RawRecord map[string]interface{}

// Lookup resolves a dotted vendor field path ("addresses.address.city")
// against the record. It returns the value and whether the full path exists.
func (r RawRecord) Lookup(path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = map[string]interface{}(r)
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			if rr, isRaw := cur.(RawRecord); isRaw {
				m = map[string]interface{}(rr)
			} else {
				return nil, false
			}
		}
		v, ok := m[p]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// LookupString resolves path and renders the value as a trimmed string.
// Nil values, empty strings, and missing paths all report ok=false, matching
// the mapping rule that empty vendor fields are omissions, not values.
func (r RawRecord) LookupString(path string) (string, bool) {
	v, ok := r.Lookup(path)
	if !ok || v == nil {
		return "", false
	}
	s := Stringify(v)
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// Stringify renders a scalar vendor value as a string. Numbers keep a fixed
// format so the same remote value always renders identically (IDs in
// particular must be stable across passes).
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; integral IDs must not grow ".000000".
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
