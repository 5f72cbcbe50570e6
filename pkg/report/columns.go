package report

import (
	"github.com/Sternrassler/order-export/pkg/reconcile"
	"github.com/Sternrassler/order-export/pkg/record"
)

// Columns is the fixed output schema: 14 row fields followed by the
// structured billing and shipping fields. Downstream spreadsheets match on
// these literals, including "Shipping Landded Cost".
var Columns = []string{
	"Order #",
	"Placed",
	"Order Status",
	"Line Item ID",
	"Tracking #",
	"Shipping Landded Cost",
	"Ship Method",
	"Ship Date",
	"Product Personalization",
	"Quantity",
	"Product Name",
	"Product Options",
	"Billing Info",
	"Shipping Info",

	"Billing Name",
	"Billing Company",
	"Billing Address 1",
	"Billing Address 2",
	"Billing City",
	"Billing State",
	"Billing Zip",
	"Billing Country",
	"Billing Email",
	"Billing Phone",

	"Shipping Name",
	"Shipping Company",
	"Shipping Address 1",
	"Shipping Address 2",
	"Shipping City",
	"Shipping State",
	"Shipping Zip",
	"Shipping Country",
	"Shipping Email",
	"Shipping Phone",
}

// Row is one output row, aligned with Columns.
type Row []string

// NewRow renders reconciled fields in column order. Absent values become
// empty cells.
func NewRow(f reconcile.Fields) Row {
	values := []record.Value{
		f.OrderID,
		f.Placed,
		f.Status,
		f.LineItemID,
		f.Tracking,
		f.ShippingCost,
		f.ShipMethod,
		f.ShipDate,
		f.Personalization,
		f.Quantity,
		f.ProductName,
		f.ProductOptions,
		f.BillingInfo,
		f.ShippingInfo,
	}
	values = append(values, partyValues(f.Billing)...)
	values = append(values, partyValues(f.Shipping)...)

	row := make(Row, len(values))
	for i, v := range values {
		row[i] = v.String()
	}
	return row
}

func partyValues(p reconcile.Party) []record.Value {
	return []record.Value{
		p.Name,
		p.Company,
		p.Address1,
		p.Address2,
		p.City,
		p.State,
		p.Zip,
		p.Country,
		p.Email,
		p.Phone,
	}
}
