package reconcile

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/Sternrassler/order-export/pkg/record"
)

// FormatOptions renders product options. A string passes through; an array
// renders each entry (string, name/value object as "name: value", anything
// else as JSON) joined "; "; a mapping renders "key: value" pairs in key
// order joined "; ".
func FormatOptions(raw any) record.Value {
	switch v := raw.(type) {
	case []any:
		parts := make([]record.Value, 0, len(v))
		for _, entry := range v {
			parts = append(parts, formatOption(entry))
		}
		return joinPresent("; ", parts...)
	case map[string]any:
		return formatMapping(record.Record(v), ": ", "; ")
	case record.Record:
		return formatMapping(v, ": ", "; ")
	default:
		return record.Stringify(raw)
	}
}

func formatOption(entry any) record.Value {
	sub, ok := record.AsRecord(entry)
	if !ok {
		if _, nested := entry.([]any); nested {
			return jsonValue(entry)
		}
		return record.Stringify(entry)
	}

	name := record.Lookup(sub, OptionNameKeys...)
	value := record.Lookup(sub, OptionValueKeys...)
	if pair := joinPresent(": ", name, value); pair.Present() {
		return pair
	}
	return jsonValue(sub)
}

// FormatPersonalization renders personalization data. A string passes
// through; each structured item renders as
// "title | Attributes: a: v, ... | Price: {type}{amount}" without empty
// segments, and items are joined " ; ".
func FormatPersonalization(raw any) record.Value {
	switch v := raw.(type) {
	case []any:
		parts := make([]record.Value, 0, len(v))
		for _, entry := range v {
			if sub, ok := record.AsRecord(entry); ok {
				parts = append(parts, formatPersonalizationItem(sub))
				continue
			}
			parts = append(parts, record.Stringify(entry))
		}
		return joinPresent(" ; ", parts...)
	default:
		if sub, ok := record.AsRecord(raw); ok {
			return formatPersonalizationItem(sub)
		}
		return record.Stringify(raw)
	}
}

func formatPersonalizationItem(item record.Record) record.Value {
	title := record.Lookup(item, PersonalizationTitleKeys...)
	if value := record.Lookup(item, PersonalizationValueKeys...); value.Present() {
		title = joinPresent(": ", title, value)
	}

	var attributes record.Value
	if attrs := formatAttributes(item); attrs.Present() {
		attributes = record.Some("Attributes: " + attrs.String())
	}

	var price record.Value
	if amount := record.Lookup(item, PriceAmountKeys...); amount.Present() {
		price = record.Some("Price: " + record.Lookup(item, PriceTypeKeys...).String() + amount.String())
	}

	if out := joinPresent(" | ", title, attributes, price); out.Present() {
		return out
	}
	return jsonValue(item)
}

func formatAttributes(item record.Record) record.Value {
	for _, key := range AttributesKeys {
		switch v := item[key].(type) {
		case nil:
			continue
		case []any:
			parts := make([]record.Value, 0, len(v))
			for _, entry := range v {
				sub, ok := record.AsRecord(entry)
				if !ok {
					parts = append(parts, record.Stringify(entry))
					continue
				}
				pair := joinPresent(": ",
					record.Lookup(sub, AttributeNameKeys...),
					record.Lookup(sub, AttributeValueKeys...))
				parts = append(parts, pair)
			}
			return joinPresent(", ", parts...)
		default:
			if sub, ok := record.AsRecord(v); ok {
				return formatMapping(sub, ": ", ", ")
			}
			return record.Stringify(v)
		}
	}
	return record.None()
}

// formatMapping renders "key{kv}value" pairs sorted by key, joined with sep.
// Nested values are rendered as JSON; empty values are skipped.
func formatMapping(m record.Record, kv, sep string) record.Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := record.Stringify(m[k])
		switch m[k].(type) {
		case map[string]any, record.Record, []any:
			v = jsonValue(m[k])
		}
		if s, ok := v.Get(); ok {
			parts = append(parts, strings.TrimSpace(k)+kv+s)
		}
	}
	return record.Some(strings.Join(parts, sep))
}

// jsonValue is the last-resort rendering of an opaque value.
func jsonValue(v any) record.Value {
	if v == nil {
		return record.None()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return record.None()
	}
	s := string(data)
	if s == "{}" || s == "[]" || s == `""` || s == "null" {
		return record.None()
	}
	return record.Some(s)
}
