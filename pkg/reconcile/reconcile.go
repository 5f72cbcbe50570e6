// Package reconcile maps merged upstream orders, line items and shipments
// onto the export's output fields.
//
// Upstream records are inconsistently shaped, so every field is resolved
// through an ordered alias list (see aliases.go) and a chain of fallback
// sources. Resolution never fails: a field that cannot be resolved is an
// absent record.Value and becomes an empty cell when the row is assembled.
package reconcile

import (
	"github.com/Sternrassler/order-export/pkg/record"
)

// Options controls reconciliation policy.
type Options struct {
	// CrossRoleContactFallback lets the billing party borrow the shipping
	// contact (and vice versa) when its own contact object is empty.
	CrossRoleContactFallback bool
}

// DefaultOptions returns the default policy (cross-role fallback enabled).
func DefaultOptions() Options {
	return Options{CrossRoleContactFallback: true}
}

// Reconciler derives output fields from merged upstream records.
type Reconciler struct {
	opts Options
}

// New creates a reconciler.
func New(opts Options) *Reconciler {
	return &Reconciler{opts: opts}
}

// Fields is every reconciled value for one output row.
type Fields struct {
	OrderID         record.Value
	Placed          record.Value
	Status          record.Value
	LineItemID      record.Value
	Tracking        record.Value
	ShippingCost    record.Value
	ShipMethod      record.Value
	ShipDate        record.Value
	Personalization record.Value
	Quantity        record.Value
	ProductName     record.Value
	ProductOptions  record.Value
	BillingInfo     record.Value
	ShippingInfo    record.Value

	Billing  Party
	Shipping Party
}

// LineItem reconciles one (order, line item) pair. Shipment fields come
// from the representative shipment, falling back to order-level values.
func (r *Reconciler) LineItem(order, item record.Record, shipments []record.Record) Fields {
	itemID := record.Lookup(item, LineItemIDKeys...)
	shipment, _ := SelectShipment(shipments, itemID)
	itemAddress, _ := record.LookupRecord(item, LineItemAddressKeys...)

	f := Fields{
		OrderID:    record.Lookup(order, OrderIDKeys...),
		Placed:     record.Lookup(order, OrderPlacedKeys...),
		Status:     record.Lookup(order, OrderStatusKeys...),
		LineItemID: itemID,
		Tracking:   Tracking(shipments, itemID),

		ShippingCost: record.Lookup(shipment, ShippingCostKeys...).Or(record.Lookup(order, OrderShippingCostKeys...)),
		ShipMethod:   record.Lookup(shipment, ShippingMethodKeys...).Or(record.Lookup(order, OrderShippingMethodKeys...)),
		ShipDate:     record.Lookup(shipment, ShipDateKeys...).Or(record.Lookup(order, OrderShipDateKeys...)),

		Personalization: formatFirst(item, PersonalizationKeys, FormatPersonalization),
		Quantity:        record.Lookup(item, QuantityKeys...),
		ProductName:     record.Lookup(item, ProductNameKeys...),
		ProductOptions:  formatFirst(item, ProductOptionsKeys, FormatOptions),

		Billing:  r.Party(order, RoleBilling, nil, shipment),
		Shipping: r.Party(order, RoleShipping, itemAddress, shipment),
	}
	f.BillingInfo = AddressBlob(f.Billing)
	f.ShippingInfo = AddressBlob(f.Shipping)
	return f
}

// Order reconciles the order-level fields used by summary rows. Line item
// and shipment columns stay absent; the first shipment only backs the
// shipping address.
func (r *Reconciler) Order(order record.Record, shipments []record.Record) Fields {
	var first record.Record
	if len(shipments) > 0 {
		first = shipments[0]
	}

	f := Fields{
		OrderID:  record.Lookup(order, OrderIDKeys...),
		Placed:   record.Lookup(order, OrderPlacedKeys...),
		Status:   record.Lookup(order, OrderStatusKeys...),
		Billing:  r.Party(order, RoleBilling, nil, first),
		Shipping: r.Party(order, RoleShipping, nil, first),
	}
	f.BillingInfo = AddressBlob(f.Billing)
	f.ShippingInfo = AddressBlob(f.Shipping)
	return f
}

// formatFirst applies format to each alias in turn and returns the first
// non-empty rendering.
func formatFirst(r record.Record, aliases []string, format func(any) record.Value) record.Value {
	for _, key := range aliases {
		if v := format(r[key]); v.Present() {
			return v
		}
	}
	return record.None()
}
