// Package record provides the loosely-typed representation of upstream
// platform data and the alias-resolution primitive used by the reconciler.
//
// Upstream orders, line items and shipments are not decoded into structs:
// the same logical field shows up under different key names depending on the
// endpoint and the age of the record. A Record keeps the raw shape and callers
// resolve fields through ordered alias lists:
//
//	city := record.Lookup(addr, "city", "town")
//
// The first alias holding a non-empty scalar wins.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is a single upstream object (order, line item, shipment, address).
type Record map[string]any

// Decode parses a JSON document keeping numbers as json.Number so that
// large numeric ids survive unchanged.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// AsRecord converts a decoded JSON value into a Record if it is an object.
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]any:
		return Record(m), true
	default:
		return nil, false
	}
}

// Lookup resolves the first alias that holds a non-empty scalar.
func Lookup(r Record, aliases ...string) Value {
	if r == nil {
		return None()
	}
	for _, key := range aliases {
		raw, ok := r[key]
		if !ok {
			continue
		}
		if v := Stringify(raw); v.Present() {
			return v
		}
	}
	return None()
}

// LookupRecord returns the first alias that holds an object.
func LookupRecord(r Record, aliases ...string) (Record, bool) {
	if r == nil {
		return nil, false
	}
	for _, key := range aliases {
		if sub, ok := AsRecord(r[key]); ok {
			return sub, true
		}
	}
	return nil, false
}

// LookupList returns the first alias that holds an array.
func LookupList(r Record, aliases ...string) ([]any, bool) {
	if r == nil {
		return nil, false
	}
	for _, key := range aliases {
		if list, ok := r[key].([]any); ok {
			return list, true
		}
	}
	return nil, false
}

// Has reports whether any alias resolves to a non-empty scalar.
func Has(r Record, aliases ...string) bool {
	return Lookup(r, aliases...).Present()
}

// Stringify renders a scalar JSON value. Objects, arrays and null are absent.
func Stringify(raw any) Value {
	switch v := raw.(type) {
	case string:
		return Some(strings.TrimSpace(v))
	case json.Number:
		return Some(v.String())
	case float64:
		return Some(strconv.FormatFloat(v, 'f', -1, 64))
	case float32:
		return Some(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case int:
		return Some(strconv.Itoa(v))
	case int64:
		return Some(strconv.FormatInt(v, 10))
	case bool:
		return Some(strconv.FormatBool(v))
	default:
		return None()
	}
}

// Merge returns a copy of base with every non-nil key of overlay applied on
// top. Keys present only in base are preserved.
func Merge(base, overlay Record) Record {
	out := make(Record, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// Records keeps the object entries of a decoded JSON array.
func Records(list []any) []Record {
	out := make([]Record, 0, len(list))
	for _, item := range list {
		if rec, ok := AsRecord(item); ok {
			out = append(out, rec)
		}
	}
	return out
}
