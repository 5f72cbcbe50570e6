package reconcile

import (
	"strings"

	"github.com/Sternrassler/order-export/pkg/record"
)

// Role selects which order-level contact and address objects a Party is
// resolved from.
type Role string

const (
	RoleBilling  Role = "billing"
	RoleShipping Role = "shipping"

	// RoleAuto resolves from the supplied object and shipment only, taking
	// the contact from whichever order-level role carries one.
	RoleAuto Role = "auto"
)

// Party is a resolved name/address/contact. Every field is resolved
// independently, so a Party may mix sources.
type Party struct {
	Name     record.Value
	Company  record.Value
	Address1 record.Value
	Address2 record.Value
	City     record.Value
	State    record.Value
	Zip      record.Value
	Country  record.Value
	Email    record.Value
	Phone    record.Value
}

// Party resolves the billing or shipping party of an order.
//
// The contact (name, email, phone) comes from the supplied object when it
// carries contact fields, then the order-level contact object for the role,
// then the other role's contact object when cross-role fallback is enabled.
// Address lines come from the supplied object, then the order-level address
// objects for the role, then the shipment's embedded address (shipping only).
func (r *Reconciler) Party(order record.Record, role Role, supplied, shipment record.Record) Party {
	contact := r.contactSource(order, role, supplied)
	chain := addressChain(order, role, supplied, shipment)

	p := Party{
		Address1: lookupChain(chain, Address1Keys),
		Address2: lookupChain(chain, Address2Keys),
		City:     lookupChain(chain, CityKeys),
		State:    lookupChain(chain, StateKeys),
		Zip:      lookupChain(chain, ZipKeys),
		Country:  lookupChain(chain, CountryKeys),
	}

	p.Name = personName(contact).Or(
		record.Lookup(order, CustomerNameKeys...),
		joinPresent(" ", record.Lookup(order, CustomerFirstNameKeys...), record.Lookup(order, CustomerLastNameKeys...)),
	)
	if role == RoleShipping {
		p.Name = p.Name.Or(recipientName(shipment))
	}

	p.Company = record.Lookup(contact, CompanyKeys...).Or(lookupChain(chain, CompanyKeys))
	p.Email = record.Lookup(contact, EmailKeys...)
	p.Phone = record.Lookup(contact, PhoneKeys...)

	// The customer's own email/phone stand in for the payer only; a
	// shipping recipient may be someone else.
	if role == RoleBilling {
		p.Email = p.Email.Or(record.Lookup(order, CustomerEmailKeys...))
		p.Phone = p.Phone.Or(record.Lookup(order, CustomerPhoneKeys...))
	}

	return p
}

// AddressBlob renders a party as a single line: the non-empty subset of
// name, company, street, "city, state zip", country, email and phone joined
// with " | ".
func AddressBlob(p Party) record.Value {
	street := joinPresent(" ", p.Address1, p.Address2)

	locality := p.City
	if stateZip := joinPresent(" ", p.State, p.Zip); stateZip.Present() {
		if p.City.Present() {
			locality = record.Some(p.City.String() + ", " + stateZip.String())
		} else {
			locality = stateZip
		}
	}

	return joinPresent(" | ", p.Name, p.Company, street, locality, p.Country, p.Email, p.Phone)
}

func (r *Reconciler) contactSource(order record.Record, role Role, supplied record.Record) record.Record {
	if hasContact(supplied) {
		return supplied
	}

	own, other := ShippingContactKeys, BillingContactKeys
	if role == RoleBilling {
		own, other = BillingContactKeys, ShippingContactKeys
	}

	if c := contactObject(order, own); c != nil {
		return c
	}
	if role == RoleAuto || r.opts.CrossRoleContactFallback {
		return contactObject(order, other)
	}
	return nil
}

// contactObject returns the first object under aliases that carries contact
// fields.
func contactObject(order record.Record, aliases []string) record.Record {
	for _, sub := range objects(order, aliases) {
		if hasContact(sub) {
			return sub
		}
	}
	return nil
}

func hasContact(r record.Record) bool {
	return personName(r).Present() ||
		record.Has(r, EmailKeys...) ||
		record.Has(r, PhoneKeys...)
}

func addressChain(order record.Record, role Role, supplied, shipment record.Record) []record.Record {
	chain := []record.Record{supplied}
	switch role {
	case RoleBilling:
		chain = append(chain, objects(order, BillingAddressKeys)...)
	case RoleShipping:
		chain = append(chain, objects(order, ShippingAddressKeys)...)
		chain = append(chain, shipmentAddress(shipment))
	default:
		chain = append(chain, shipmentAddress(shipment))
	}
	return chain
}

// objects returns every object stored under aliases, in alias order.
func objects(r record.Record, aliases []string) []record.Record {
	var out []record.Record
	for _, key := range aliases {
		if sub, ok := record.AsRecord(r[key]); ok {
			out = append(out, sub)
		}
	}
	return out
}

func shipmentAddress(shipment record.Record) record.Record {
	addr, _ := record.LookupRecord(shipment, ShipmentAddressKeys...)
	return addr
}

func lookupChain(chain []record.Record, aliases []string) record.Value {
	for _, src := range chain {
		if v := record.Lookup(src, aliases...); v.Present() {
			return v
		}
	}
	return record.None()
}

// personName is "{first} {last}" trimmed, else a full-name alias.
func personName(r record.Record) record.Value {
	full := joinPresent(" ", record.Lookup(r, FirstNameKeys...), record.Lookup(r, LastNameKeys...))
	return full.Or(record.Lookup(r, FullNameKeys...))
}

func recipientName(shipment record.Record) record.Value {
	return record.Lookup(shipment, RecipientNameKeys...).Or(personName(shipmentAddress(shipment)))
}

// joinPresent joins the present values with sep; absent when none are.
func joinPresent(sep string, values ...record.Value) record.Value {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.Get(); ok {
			parts = append(parts, s)
		}
	}
	return record.Some(strings.Join(parts, sep))
}
