package pagination

import (
	"sort"

	"github.com/Sternrassler/order-export/pkg/record"
)

// EnvelopeKeys are the object keys checked, in order, for the item array.
var EnvelopeKeys = []string{"orders", "items", "data", "results"}

// Items normalizes a decoded response body into records.
//
// Accepted shapes, in precedence order:
//   - a bare array
//   - an object holding the array under one of EnvelopeKeys
//   - an object with any array-valued property; when there are several, the
//     alphabetically first key is used
//
// Anything else yields no items. Non-object array entries are dropped.
func Items(body any) []record.Record {
	list, ok := itemList(body)
	if !ok {
		return nil
	}
	return record.Records(list)
}

// itemList returns the raw array (including non-object entries) so callers
// can compare its length against the page size.
func itemList(body any) ([]any, bool) {
	switch v := body.(type) {
	case []any:
		return v, true
	case map[string]any:
		obj := record.Record(v)
		if list, ok := record.LookupList(obj, EnvelopeKeys...); ok {
			return list, true
		}

		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if list, ok := obj[k].([]any); ok {
				return list, true
			}
		}
	}
	return nil, false
}
