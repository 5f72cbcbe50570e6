package reconcile

import (
	"strings"

	"github.com/Sternrassler/order-export/pkg/record"
)

// ShipmentLineItemIDs lists the line item ids a shipment covers, from its id
// array and from embedded line item objects. Ids are compared as strings.
func ShipmentLineItemIDs(shipment record.Record) []string {
	var ids []string
	for _, aliases := range [][]string{ShipmentLineItemIDsKeys, ShipmentLineItemsKeys} {
		list, ok := record.LookupList(shipment, aliases...)
		if !ok {
			continue
		}
		for _, entry := range list {
			id := record.Stringify(entry)
			if sub, ok := record.AsRecord(entry); ok {
				id = record.Lookup(sub, LineItemIDKeys...)
			}
			if s, ok := id.Get(); ok {
				ids = append(ids, s)
			}
		}
	}
	return ids
}

// References reports whether the shipment covers the line item.
func References(shipment record.Record, lineItemID record.Value) bool {
	id, ok := lineItemID.Get()
	if !ok {
		return false
	}
	for _, candidate := range ShipmentLineItemIDs(shipment) {
		if candidate == id {
			return true
		}
	}
	return false
}

// SelectShipment picks the representative shipment for a line item: the
// first shipment referencing it, else the first shipment. It reports false
// only when there are no shipments.
func SelectShipment(shipments []record.Record, lineItemID record.Value) (record.Record, bool) {
	for _, s := range shipments {
		if References(s, lineItemID) {
			return s, true
		}
	}
	if len(shipments) > 0 {
		return shipments[0], true
	}
	return nil, false
}

// TrackingNumbers returns a shipment's tracking numbers: the single-value
// aliases first, then any tracking_numbers array (strings or objects).
func TrackingNumbers(shipment record.Record) []string {
	var out []string
	if v, ok := record.Lookup(shipment, TrackingNumberKeys...).Get(); ok {
		out = append(out, v)
	}
	if list, ok := record.LookupList(shipment, TrackingNumbersKeys...); ok {
		for _, entry := range list {
			v := record.Stringify(entry)
			if sub, ok := record.AsRecord(entry); ok {
				v = record.Lookup(sub, TrackingNumberKeys...)
			}
			if s, ok := v.Get(); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// Tracking resolves the tracking column for a line item. Numbers come from
// the shipments referencing the item; when none do, from every shipment of
// the order. Numbers are deduplicated in first-seen order and joined "; ".
func Tracking(shipments []record.Record, lineItemID record.Value) record.Value {
	var referencing []record.Record
	for _, s := range shipments {
		if References(s, lineItemID) {
			referencing = append(referencing, s)
		}
	}
	if len(referencing) == 0 {
		referencing = shipments
	}

	seen := make(map[string]struct{})
	var numbers []string
	for _, s := range referencing {
		for _, n := range TrackingNumbers(s) {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			numbers = append(numbers, n)
		}
	}
	return record.Some(strings.Join(numbers, "; "))
}
